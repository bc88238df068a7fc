package models

import (
	"time"

	"github.com/google/uuid"
)

// Upload statuses reported by /upload/status.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusDone       = "done"
	StatusError      = "error"
)

const (
	SourceFile    = "file"
	SourceYouTube = "youtube"
)

type Document struct {
	ID             uuid.UUID `json:"document_id"`
	FileName       string    `json:"file_name"`
	Source         string    `json:"source"` // "file" | "youtube"
	SourceURL      *string   `json:"source_url,omitempty"`
	StoragePath    *string   `json:"-"`
	Status         string    `json:"status"`
	SummaryMessage *string   `json:"summary_message"`
	Detail         *string   `json:"detail,omitempty"`
	ChunkCount     int       `json:"chunk_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// UploadStatusResponse is polled by clients until status is "done" or "error".
type UploadStatusResponse struct {
	DocumentID     uuid.UUID `json:"document_id"`
	FileName       string    `json:"file_name"`
	Status         string    `json:"status"`
	SummaryMessage *string   `json:"summary_message"`
	Detail         *string   `json:"detail,omitempty"`
}

type UploadAccepted struct {
	DocumentID uuid.UUID `json:"document_id"`
	FileName   string    `json:"filename"`
	Status     string    `json:"status"`
}

type YouTubeUploadRequest struct {
	URL string `json:"url"`
}

// Page is the text of one page of an uploaded file. Number starts at 1.
type Page struct {
	Number int
	Text   string
}

// Chunk is one indexed unit of a document.
type Chunk struct {
	PDFFile       string `json:"pdf_file"`
	DocumentTitle string `json:"document_title"`
	ElementType   string `json:"element_type"`
	StartPage     int    `json:"start_page"`
	EndPage       int    `json:"end_page"`
	Text          string `json:"text"`
}

// PageSummary is an LLM summary of one page. PageNumber 0 is the overall summary.
type PageSummary struct {
	PageNumber int    `json:"page_number"`
	Summary    string `json:"summary"`
}
