package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"elasticlm-backend/internal/elastic"
	"elasticlm-backend/internal/models"
	"elasticlm-backend/internal/repository"
)

type documentAdminRepository interface {
	List(ctx context.Context) ([]*models.Document, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type chunkDeleter interface {
	DeleteByQuery(ctx context.Context, index string, body interface{}) (int, error)
}

type AdminHandler struct {
	docs        documentAdminRepository
	chunks      chunkDeleter
	docsIndex   string
	storagePath string
}

func NewAdminHandler(docs documentAdminRepository, chunks chunkDeleter, docsIndex, storagePath string) *AdminHandler {
	return &AdminHandler{docs: docs, chunks: chunks, docsIndex: docsIndex, storagePath: storagePath}
}

func (h *AdminHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.docs.List(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch documents", r))
		return
	}
	if docs == nil {
		docs = []*models.Document{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
		"total":     len(docs),
	})
}

// DeleteDocument removes the indexed chunks and summaries, the registry row
// and any stored upload of a document.
func (h *AdminHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.URL.Query().Get("document_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid document ID", r))
		return
	}

	doc, err := h.docs.GetByID(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Document not found", r))
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch document", r))
		return
	}

	deleted, err := h.chunks.DeleteByQuery(r.Context(), h.docsIndex, elastic.DocumentIDQuery(id.String()))
	if err != nil {
		log.Printf("failed to delete chunks of document %s: %v", id, err)
		writeJSON(w, http.StatusBadGateway, errorResp("UPSTREAM_ERROR", "Failed to delete indexed content", r))
		return
	}
	log.Printf("Deleted %d indexed entries of document %s", deleted, id)

	if err := h.docs.Delete(r.Context(), id); err != nil && !errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to delete document", r))
		return
	}

	if doc.StoragePath != nil && *doc.StoragePath != "" {
		path := filepath.Join(h.storagePath, *doc.StoragePath)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("failed to remove stored file %s: %v", path, err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Document deleted successfully"})
}
