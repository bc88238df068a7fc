package client

import (
	"context"
	"errors"
	"strings"

	"github.com/gorilla/websocket"

	"elasticlm-backend/internal/models"
)

// ReplyError is an error_message sent by the regulations chat.
type ReplyError struct {
	Text string
}

func (e *ReplyError) Error() string { return e.Text }

// RegulationsSession is an open regulations chat. The server keeps the
// conversation history for as long as the session stays open.
type RegulationsSession struct {
	conn *websocket.Conn
}

// DialRegulations opens a regulations chat on /ws/chat.
func (c *Client) DialRegulations(ctx context.Context) (*RegulationsSession, error) {
	url := c.BaseURL + "/ws/chat"
	switch {
	case strings.HasPrefix(url, "https://"):
		url = "wss://" + strings.TrimPrefix(url, "https://")
	case strings.HasPrefix(url, "http://"):
		url = "ws://" + strings.TrimPrefix(url, "http://")
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return &RegulationsSession{conn: conn}, nil
}

// Ask sends one question and waits for its reply.
func (s *RegulationsSession) Ask(question string) (string, error) {
	if err := s.conn.WriteJSON(models.RegulationsQuestion{Message: question}); err != nil {
		return "", err
	}

	var reply models.RegulationsReply
	if err := s.conn.ReadJSON(&reply); err != nil {
		return "", err
	}
	switch reply.Type {
	case models.ReplyFullResponse:
		return reply.Text, nil
	case models.ReplyError:
		return "", &ReplyError{Text: reply.Text}
	}
	return "", errors.New("unexpected reply type " + reply.Type)
}

func (s *RegulationsSession) Close() error {
	s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return s.conn.Close()
}
