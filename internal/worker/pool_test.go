package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"elasticlm-backend/internal/models"
	"elasticlm-backend/internal/repository"
	"elasticlm-backend/internal/services"
)

type stubQueue struct {
	pushed chan *models.Job
}

func (q *stubQueue) Push(ctx context.Context, job *models.Job) error {
	q.pushed <- job
	return nil
}

func (q *stubQueue) Pop(ctx context.Context, timeout time.Duration) (*models.Job, error) {
	return nil, nil
}

func (q *stubQueue) Lock(ctx context.Context, job *models.Job) (bool, error) { return true, nil }

func (q *stubQueue) Unlock(ctx context.Context, job *models.Job) {}

type stubPublisher struct {
	mu   sync.Mutex
	msgs []models.WSMessage
}

func (p *stubPublisher) Publish(ctx context.Context, msg models.WSMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
}

func (p *stubPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, m := range p.msgs {
		out = append(out, m.Type)
	}
	return out
}

type stubDocs struct {
	doc      *models.Document
	getErr   error
	statuses []string
	summary  string
	chunks   int
	detail   string
}

func (d *stubDocs) GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	if d.getErr != nil {
		return nil, d.getErr
	}
	return d.doc, nil
}

func (d *stubDocs) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	d.statuses = append(d.statuses, status)
	return nil
}

func (d *stubDocs) MarkDone(ctx context.Context, id uuid.UUID, summaryMessage string, chunkCount int) error {
	d.statuses = append(d.statuses, models.StatusDone)
	d.summary, d.chunks = summaryMessage, chunkCount
	return nil
}

func (d *stubDocs) MarkError(ctx context.Context, id uuid.UUID, detail string) error {
	d.statuses = append(d.statuses, models.StatusError)
	d.detail = detail
	return nil
}

type stubJobs struct {
	statuses []string
	errMsg   string
}

func (j *stubJobs) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	j.statuses = append(j.statuses, status)
	return nil
}

func (j *stubJobs) UpdateError(ctx context.Context, id uuid.UUID, errMsg string, retryCount int) error {
	j.errMsg = errMsg
	return nil
}

type stubIngest struct {
	data []byte
	err  error
}

func (s *stubIngest) Process(ctx context.Context, doc *models.Document, data []byte, progress services.ProgressFunc) (*services.IngestResult, error) {
	s.data = data
	progress(1, "Parsing document")
	if s.err != nil {
		return nil, s.err
	}
	return &services.IngestResult{SummaryMessage: "### done", ChunkCount: 3}, nil
}

func (s *stubIngest) ProcessYouTube(ctx context.Context, doc *models.Document, progress services.ProgressFunc) (*services.IngestResult, error) {
	return &services.IngestResult{SummaryMessage: "### video", ChunkCount: 1}, nil
}

func newTestPool(t *testing.T, ingest *stubIngest, docs *stubDocs) (*Pool, *stubQueue, *stubPublisher, *stubJobs) {
	t.Helper()
	queue := &stubQueue{pushed: make(chan *models.Job, 1)}
	pub := &stubPublisher{}
	jobs := &stubJobs{}
	p := NewPool(queue, pub, ingest, docs, jobs, t.TempDir(), 1)
	p.backoff = func(int) time.Duration { return 0 }
	return p, queue, pub, jobs
}

func storeUpload(t *testing.T, p *Pool, name, content string) *string {
	t.Helper()
	if err := os.WriteFile(filepath.Join(p.storagePath, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write upload: %v", err)
	}
	return &name
}

func TestPool_RunSuccess(t *testing.T) {
	docs := &stubDocs{}
	ingest := &stubIngest{}
	p, _, pub, jobs := newTestPool(t, ingest, docs)

	docs.doc = &models.Document{ID: uuid.New(), FileName: "a.txt", StoragePath: storeUpload(t, p, "a.txt", "hello")}
	job := &models.Job{ID: uuid.New(), Type: models.JobDocumentIngest, ReferenceID: docs.doc.ID, MaxRetries: 3}

	p.Run(context.Background(), job)

	if string(ingest.data) != "hello" {
		t.Fatalf("ingest got %q", ingest.data)
	}
	if docs.summary != "### done" || docs.chunks != 3 {
		t.Fatalf("unexpected result saved: %q %d", docs.summary, docs.chunks)
	}
	if jobs.statuses[len(jobs.statuses)-1] != "completed" {
		t.Fatalf("unexpected job statuses %v", jobs.statuses)
	}
	if _, err := os.Stat(filepath.Join(p.storagePath, "a.txt")); !os.IsNotExist(err) {
		t.Fatalf("stored upload should be removed after success")
	}
	types := pub.types()
	if len(types) != 2 || types[0] != "status_update" || types[1] != "completed" {
		t.Fatalf("unexpected published messages %v", types)
	}
}

func TestPool_RunRetriesThenFails(t *testing.T) {
	docs := &stubDocs{}
	ingest := &stubIngest{err: errors.New("Error indexing documents: Failed to index any documents.")}
	p, queue, pub, jobs := newTestPool(t, ingest, docs)

	docs.doc = &models.Document{ID: uuid.New(), FileName: "a.txt", StoragePath: storeUpload(t, p, "a.txt", "hello")}
	job := &models.Job{ID: uuid.New(), Type: models.JobDocumentIngest, ReferenceID: docs.doc.ID, MaxRetries: 3}

	p.Run(context.Background(), job)

	var requeued *models.Job
	select {
	case requeued = <-queue.pushed:
	case <-time.After(2 * time.Second):
		t.Fatalf("job was not requeued")
	}
	if requeued.RetryCount != 1 {
		t.Fatalf("expected retry count 1, got %d", requeued.RetryCount)
	}
	if docs.statuses[len(docs.statuses)-1] != models.StatusPending {
		t.Fatalf("document should return to pending while retrying, got %v", docs.statuses)
	}

	requeued.RetryCount = 2
	p.Run(context.Background(), requeued)

	if docs.detail != "Error indexing documents: Failed to index any documents." {
		t.Fatalf("unexpected detail %q", docs.detail)
	}
	if jobs.statuses[len(jobs.statuses)-1] != "failed" {
		t.Fatalf("unexpected job statuses %v", jobs.statuses)
	}
	types := pub.types()
	if types[len(types)-1] != "error" {
		t.Fatalf("expected error event, got %v", types)
	}
}

func TestPool_RunDeletedDocument(t *testing.T) {
	docs := &stubDocs{getErr: repository.ErrNotFound}
	p, queue, _, jobs := newTestPool(t, &stubIngest{}, docs)

	p.Run(context.Background(), &models.Job{ID: uuid.New(), Type: models.JobDocumentIngest})

	select {
	case <-queue.pushed:
		t.Fatalf("missing documents should not be retried")
	default:
	}
	if jobs.statuses[len(jobs.statuses)-1] != "failed" {
		t.Fatalf("unexpected job statuses %v", jobs.statuses)
	}
}

func TestPool_RunYouTube(t *testing.T) {
	docs := &stubDocs{doc: &models.Document{ID: uuid.New(), FileName: "Lecture", Source: models.SourceYouTube}}
	p, _, _, _ := newTestPool(t, &stubIngest{}, docs)

	p.Run(context.Background(), &models.Job{ID: uuid.New(), Type: models.JobYouTubeIngest, ReferenceID: docs.doc.ID})

	if docs.summary != "### video" {
		t.Fatalf("unexpected summary %q", docs.summary)
	}
}
