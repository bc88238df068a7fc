package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"elasticlm-backend/internal/models"
	"elasticlm-backend/internal/repository"
	"elasticlm-backend/internal/services"
)

const (
	popTimeout        = 30 * time.Second
	defaultMaxRetries = 3
)

type Queue interface {
	Push(ctx context.Context, job *models.Job) error
	Pop(ctx context.Context, timeout time.Duration) (*models.Job, error)
	Lock(ctx context.Context, job *models.Job) (bool, error)
	Unlock(ctx context.Context, job *models.Job)
}

type Publisher interface {
	Publish(ctx context.Context, msg models.WSMessage)
}

type documentStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	MarkDone(ctx context.Context, id uuid.UUID, summaryMessage string, chunkCount int) error
	MarkError(ctx context.Context, id uuid.UUID, detail string) error
}

type jobStore interface {
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	UpdateError(ctx context.Context, id uuid.UUID, errMsg string, retryCount int) error
}

type ingester interface {
	Process(ctx context.Context, doc *models.Document, data []byte, progress services.ProgressFunc) (*services.IngestResult, error)
	ProcessYouTube(ctx context.Context, doc *models.Document, progress services.ProgressFunc) (*services.IngestResult, error)
}

type Pool struct {
	queue       Queue
	publisher   Publisher
	ingest      ingester
	docs        documentStore
	jobs        jobStore
	storagePath string
	workerCount int
	backoff     func(retry int) time.Duration
	stopChan    chan struct{}
}

func NewPool(
	queue Queue,
	publisher Publisher,
	ingest ingester,
	docs documentStore,
	jobs jobStore,
	storagePath string,
	workerCount int,
) *Pool {
	return &Pool{
		queue:       queue,
		publisher:   publisher,
		ingest:      ingest,
		docs:        docs,
		jobs:        jobs,
		storagePath: storagePath,
		workerCount: workerCount,
		backoff: func(retry int) time.Duration {
			return time.Duration(1<<uint(retry)) * time.Second
		},
		stopChan: make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		go p.worker(i)
	}
	log.Printf("Started %d worker goroutines", p.workerCount)
}

func (p *Pool) Stop() {
	select {
	case <-p.stopChan:
	default:
		close(p.stopChan)
	}
}

func (p *Pool) worker(id int) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		job, err := p.queue.Pop(ctx, popTimeout)
		if err != nil {
			log.Printf("Worker %d: %v", id, err)
			continue
		}
		if job == nil {
			continue
		}

		locked, err := p.queue.Lock(ctx, job)
		if err != nil || !locked {
			continue // Another worker has this job
		}

		log.Printf("Worker %d: processing job %s (type: %s)", id, job.ID, job.Type)
		p.Run(ctx, job)
		p.queue.Unlock(ctx, job)
	}
}

// Run processes one job and records the outcome.
func (p *Pool) Run(ctx context.Context, job *models.Job) {
	p.jobs.UpdateStatus(ctx, job.ID, "processing")

	doc, err := p.process(ctx, job)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		// document deleted while queued
		log.Printf("Job %s dropped: document %s no longer exists", job.ID, job.ReferenceID)
		p.jobs.UpdateStatus(ctx, job.ID, "failed")
	case err != nil:
		p.handleFailure(ctx, job, doc, err)
	default:
		p.handleSuccess(ctx, job, doc)
	}
}

func (p *Pool) process(ctx context.Context, job *models.Job) (*models.Document, error) {
	doc, err := p.docs.GetByID(ctx, job.ReferenceID)
	if err != nil {
		return nil, err
	}
	p.docs.UpdateStatus(ctx, doc.ID, models.StatusProcessing)

	progress := func(step int, name string) {
		p.publisher.Publish(ctx, models.WSMessage{
			Type: "status_update",
			Payload: models.StatusUpdate{
				JobID:      job.ID,
				DocumentID: doc.ID,
				FileName:   doc.FileName,
				Step:       step,
				StepName:   name,
			},
		})
	}

	var result *services.IngestResult
	switch job.Type {
	case models.JobDocumentIngest:
		if doc.StoragePath == nil || *doc.StoragePath == "" {
			return doc, fmt.Errorf("document has no stored file")
		}
		data, readErr := os.ReadFile(filepath.Join(p.storagePath, *doc.StoragePath))
		if readErr != nil {
			return doc, fmt.Errorf("failed to read uploaded file: %w", readErr)
		}
		result, err = p.ingest.Process(ctx, doc, data, progress)
	case models.JobYouTubeIngest:
		result, err = p.ingest.ProcessYouTube(ctx, doc, progress)
	default:
		err = fmt.Errorf("unknown job type: %s", job.Type)
	}
	if err != nil {
		return doc, err
	}

	if err := p.docs.MarkDone(ctx, doc.ID, result.SummaryMessage, result.ChunkCount); err != nil {
		return doc, fmt.Errorf("failed to save upload result: %w", err)
	}
	doc.Status = models.StatusDone
	doc.SummaryMessage = &result.SummaryMessage
	return doc, nil
}

func (p *Pool) handleSuccess(ctx context.Context, job *models.Job, doc *models.Document) {
	p.jobs.UpdateStatus(ctx, job.ID, "completed")
	p.removeStoredFile(doc)

	summary := ""
	if doc.SummaryMessage != nil {
		summary = *doc.SummaryMessage
	}
	p.publisher.Publish(ctx, models.WSMessage{
		Type: "completed",
		Payload: models.CompletedEvent{
			JobID:          job.ID,
			DocumentID:     doc.ID,
			FileName:       doc.FileName,
			SummaryMessage: summary,
		},
	})

	log.Printf("Job %s completed successfully", job.ID)
}

func (p *Pool) handleFailure(ctx context.Context, job *models.Job, doc *models.Document, err error) {
	job.RetryCount++
	errMsg := err.Error()

	maxRetries := job.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	if job.RetryCount < maxRetries {
		log.Printf("Job %s failed (attempt %d): %s, retrying", job.ID, job.RetryCount, errMsg)
		p.jobs.UpdateStatus(ctx, job.ID, "pending")
		p.jobs.UpdateError(ctx, job.ID, errMsg, job.RetryCount)
		if doc != nil {
			p.docs.UpdateStatus(ctx, doc.ID, models.StatusPending)
		}

		retry := *job
		time.AfterFunc(p.backoff(job.RetryCount), func() {
			if err := p.queue.Push(context.Background(), &retry); err != nil {
				log.Printf("Job %s could not be requeued: %v", retry.ID, err)
			}
		})
		return
	}

	log.Printf("Job %s failed permanently: %s", job.ID, errMsg)
	p.jobs.UpdateStatus(ctx, job.ID, "failed")
	p.jobs.UpdateError(ctx, job.ID, errMsg, job.RetryCount)

	event := models.ErrorEvent{JobID: job.ID, DocumentID: job.ReferenceID, ErrorCode: "JOB_FAILED", ErrorMessage: errMsg}
	if doc != nil {
		p.docs.MarkError(ctx, doc.ID, errMsg)
		event.FileName = doc.FileName
	}
	p.publisher.Publish(ctx, models.WSMessage{Type: "error", Payload: event})
}

func (p *Pool) removeStoredFile(doc *models.Document) {
	if doc == nil || doc.StoragePath == nil || *doc.StoragePath == "" {
		return
	}
	path := filepath.Join(p.storagePath, *doc.StoragePath)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("failed to remove stored upload %s: %v", path, err)
	}
}
