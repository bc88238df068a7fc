package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"elasticlm-backend/internal/models"
	"elasticlm-backend/internal/services"
)

type librarian interface {
	Chat(ctx context.Context, query string, history []string) (string, error)
}

type BooksHandler struct {
	librarian librarian
}

func NewBooksHandler(l librarian) *BooksHandler {
	return &BooksHandler{librarian: l}
}

func (h *BooksHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req models.BooksChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	response, err := h.librarian.Chat(r.Context(), req.Query, req.History)
	if err != nil {
		var validation *services.ValidationError
		if errors.As(err, &validation) {
			handleServiceError(w, r, err)
			return
		}
		log.Printf("Error in books chat: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An internal server error occurred.", r))
		return
	}

	writeJSON(w, http.StatusOK, models.BooksChatResponse{Response: response})
}
