package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"elasticlm-backend/internal/models"
)

// Replier answers one question within a connection's conversation.
type Replier interface {
	Reply(ctx context.Context, conv *models.Conversation, question string) (string, error)
}

// ChatHandler serves a question and answer loop on each connection. History
// lives as long as the connection does. Failed turns are reported as
// error_message and the connection stays open.
func ChatHandler(replier Replier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WebSocket upgrade failed: %v", err)
			return
		}
		defer conn.Close()
		log.Printf("Chat socket connected: %s", r.RemoteAddr)

		conv := &models.Conversation{}
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Printf("Chat socket closed: %v", err)
				}
				return
			}

			reply := answer(r.Context(), replier, conv, data)
			if err := conn.WriteJSON(reply); err != nil {
				log.Printf("Chat socket write failed: %v", err)
				return
			}
		}
	}
}

func answer(ctx context.Context, replier Replier, conv *models.Conversation, data []byte) models.RegulationsReply {
	var msg models.RegulationsQuestion
	if err := json.Unmarshal(data, &msg); err != nil {
		return models.RegulationsReply{Type: models.ReplyError, Text: "Unexpected error: invalid message"}
	}

	log.Printf("Chat socket question: %s", msg.Message)
	text, err := replier.Reply(ctx, conv, msg.Message)
	if err != nil {
		log.Printf("Chat turn failed: %v", err)
		return models.RegulationsReply{Type: models.ReplyError, Text: "Unexpected error: " + err.Error()}
	}
	return models.RegulationsReply{Type: models.ReplyFullResponse, Text: text}
}
