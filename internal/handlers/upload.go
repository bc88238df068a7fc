package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"elasticlm-backend/internal/models"
	"elasticlm-backend/internal/repository"
	"elasticlm-backend/internal/services"
)

type documentRepository interface {
	Create(ctx context.Context, d *models.Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error)
	GetLatestByFileName(ctx context.Context, fileName string) (*models.Document, error)
	MarkError(ctx context.Context, id uuid.UUID, detail string) error
}

type jobRepository interface {
	Create(ctx context.Context, j *models.Job) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

type jobQueue interface {
	Push(ctx context.Context, job *models.Job) error
}

type UploadHandler struct {
	docs        documentRepository
	jobs        jobRepository
	queue       jobQueue
	storagePath string
	maxBytes    int64
}

func NewUploadHandler(docs documentRepository, jobs jobRepository, queue jobQueue, storagePath string, maxUploadMB int) *UploadHandler {
	return &UploadHandler{
		docs:        docs,
		jobs:        jobs,
		queue:       queue,
		storagePath: storagePath,
		maxBytes:    int64(maxUploadMB) * 1024 * 1024,
	}
}

// Upload stores the file and queues it for parsing, indexing and
// summarization. Progress is read from Status.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.maxBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("FILE_TOO_LARGE", fmt.Sprintf("File size exceeds %dMB limit", h.maxBytes/1024/1024), r))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "No file provided", r))
		return
	}
	defer file.Close()

	fileName := filepath.Base(header.Filename)
	if !services.SupportedExtension(fileName) {
		writeJSON(w, http.StatusUnsupportedMediaType, errorResp("UNSUPPORTED_FORMAT", "File type not supported", r))
		return
	}

	docID := uuid.New()
	storedName := docID.String() + strings.ToLower(filepath.Ext(fileName))
	if err := h.store(storedName, file); err != nil {
		log.Printf("failed to store upload %s: %v", fileName, err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to store file", r))
		return
	}

	doc := &models.Document{
		ID:          docID,
		FileName:    fileName,
		Source:      models.SourceFile,
		StoragePath: &storedName,
	}
	h.accept(w, r, doc, models.JobDocumentIngest)
}

// UploadYouTube queues a video transcript for the same pipeline as a file.
func (h *UploadHandler) UploadYouTube(w http.ResponseWriter, r *http.Request) {
	var req models.YouTubeUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	videoID := services.ExtractVideoID(req.URL)
	if videoID == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid YouTube URL", r))
		return
	}

	url := strings.TrimSpace(req.URL)
	doc := &models.Document{
		FileName:  "youtube-" + videoID,
		Source:    models.SourceYouTube,
		SourceURL: &url,
	}
	h.accept(w, r, doc, models.JobYouTubeIngest)
}

func (h *UploadHandler) accept(w http.ResponseWriter, r *http.Request, doc *models.Document, jobType string) {
	if err := h.docs.Create(r.Context(), doc); err != nil {
		log.Printf("failed to create document %s: %v", doc.FileName, err)
		h.removeStored(doc)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create document record", r))
		return
	}

	job := &models.Job{
		Type:        jobType,
		ReferenceID: doc.ID,
	}
	if err := h.jobs.Create(r.Context(), job); err != nil {
		h.fail(r.Context(), doc, "Failed to create job")
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create job", r))
		return
	}

	if err := h.queue.Push(r.Context(), job); err != nil {
		log.Printf("failed to enqueue %s job %s: %v", jobType, job.ID, err)
		_ = h.jobs.UpdateStatus(r.Context(), job.ID, "failed")
		h.fail(r.Context(), doc, "Failed to enqueue document")
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to enqueue document", r))
		return
	}

	writeJSON(w, http.StatusAccepted, models.UploadAccepted{
		DocumentID: doc.ID,
		FileName:   doc.FileName,
		Status:     doc.Status,
	})
}

// Status reports the state of an upload by document_id or by filename, the
// latter resolving to the most recent upload with that name.
func (h *UploadHandler) Status(w http.ResponseWriter, r *http.Request) {
	var (
		doc *models.Document
		err error
	)
	q := r.URL.Query()
	switch {
	case q.Get("document_id") != "":
		id, parseErr := uuid.Parse(q.Get("document_id"))
		if parseErr != nil {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid document ID", r))
			return
		}
		doc, err = h.docs.GetByID(r.Context(), id)
	case q.Get("filename") != "":
		doc, err = h.docs.GetLatestByFileName(r.Context(), q.Get("filename"))
	default:
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "filename or document_id is required", r))
		return
	}

	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"status": "not_found",
			"detail": "No status found for this file.",
		})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch status", r))
		return
	}

	writeJSON(w, http.StatusOK, models.UploadStatusResponse{
		DocumentID:     doc.ID,
		FileName:       doc.FileName,
		Status:         doc.Status,
		SummaryMessage: doc.SummaryMessage,
		Detail:         doc.Detail,
	})
}

func (h *UploadHandler) store(name string, src io.Reader) error {
	if err := os.MkdirAll(h.storagePath, 0o755); err != nil {
		return err
	}
	dst, err := os.Create(filepath.Join(h.storagePath, name))
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return err
	}
	return dst.Close()
}

func (h *UploadHandler) removeStored(doc *models.Document) {
	if doc.StoragePath == nil || *doc.StoragePath == "" {
		return
	}
	if err := os.Remove(filepath.Join(h.storagePath, *doc.StoragePath)); err != nil && !os.IsNotExist(err) {
		log.Printf("failed to remove stored file %s: %v", *doc.StoragePath, err)
	}
}

// fail marks doc as errored so pollers stop waiting on it.
func (h *UploadHandler) fail(ctx context.Context, doc *models.Document, detail string) {
	if err := h.docs.MarkError(ctx, doc.ID, detail); err != nil {
		log.Printf("failed to mark document %s as error: %v", doc.ID, err)
	}
	h.removeStored(doc)
}
