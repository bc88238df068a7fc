package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"

	"elasticlm-backend/internal/models"
)

const chatIDHeader = "X-Chat-ID"

type answerer interface {
	Answer(ctx context.Context, chatID string, req *models.ChatRequest, w io.Writer) error
}

type ChatHandler struct {
	qa answerer
}

func NewChatHandler(qa answerer) *ChatHandler {
	return &ChatHandler{qa: qa}
}

// flushWriter pushes every write to the client so the answer arrives as it
// is generated.
type flushWriter struct {
	w       io.Writer
	flusher http.Flusher
}

func (f *flushWriter) Write(p []byte) (int, error) {
	n, err := f.w.Write(p)
	if f.flusher != nil {
		f.flusher.Flush()
	}
	return n, err
}

// Chat streams the answer to the last message as plain text. The chat id is
// taken from X-Chat-ID or generated, and echoed in the same header.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if len(req.Messages) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "No messages provided", r))
		return
	}

	chatID := r.Header.Get(chatIDHeader)
	if chatID == "" {
		chatID = uuid.NewString()
	}

	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set(chatIDHeader, chatID)
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	if err := h.qa.Answer(r.Context(), chatID, &req, &flushWriter{w: w, flusher: flusher}); err != nil {
		io.WriteString(w, "Error: "+err.Error())
	}
}
