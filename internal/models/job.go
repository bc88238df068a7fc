package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobDocumentIngest = "document-ingest"
	JobYouTubeIngest  = "youtube-ingest"
)

type Job struct {
	ID           uuid.UUID  `json:"id"`
	Type         string     `json:"type"` // "document-ingest" | "youtube-ingest"
	ReferenceID  uuid.UUID  `json:"reference_id"`
	Status       string     `json:"status"` // "pending" | "processing" | "completed" | "failed"
	RetryCount   int        `json:"retry_count"`
	MaxRetries   int        `json:"max_retries"`
	ErrorMessage *string    `json:"error_message"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at"`
}

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type StatusUpdate struct {
	JobID      uuid.UUID `json:"job_id"`
	DocumentID uuid.UUID `json:"document_id"`
	FileName   string    `json:"file_name"`
	Step       int       `json:"step"`
	StepName   string    `json:"step_name"`
}

type CompletedEvent struct {
	JobID          uuid.UUID `json:"job_id"`
	DocumentID     uuid.UUID `json:"document_id"`
	FileName       string    `json:"file_name"`
	SummaryMessage string    `json:"summary_message"`
}

type ErrorEvent struct {
	JobID        uuid.UUID `json:"job_id"`
	DocumentID   uuid.UUID `json:"document_id"`
	FileName     string    `json:"file_name"`
	ErrorCode    string    `json:"error_code"`
	ErrorMessage string    `json:"error_message"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

// ErrorResponse carries a top-level detail alongside the error object,
// the document chat client reads data.detail.
type ErrorResponse struct {
	Error  APIError `json:"error"`
	Detail string   `json:"detail,omitempty"`
}
