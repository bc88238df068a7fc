package handlers

import (
	"context"
	"encoding/json"
	"io"

	"github.com/google/uuid"

	"elasticlm-backend/internal/models"
	"elasticlm-backend/internal/repository"
)

type stubDocRepo struct {
	docs    map[uuid.UUID]*models.Document
	errored map[uuid.UUID]string
	deleted []uuid.UUID
}

func newStubDocRepo() *stubDocRepo {
	return &stubDocRepo{docs: map[uuid.UUID]*models.Document{}, errored: map[uuid.UUID]string{}}
}

func (s *stubDocRepo) Create(ctx context.Context, d *models.Document) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Status == "" {
		d.Status = models.StatusPending
	}
	s.docs[d.ID] = d
	return nil
}

func (s *stubDocRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	d, ok := s.docs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return d, nil
}

func (s *stubDocRepo) GetLatestByFileName(ctx context.Context, name string) (*models.Document, error) {
	for _, d := range s.docs {
		if d.FileName == name {
			return d, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *stubDocRepo) List(ctx context.Context) ([]*models.Document, error) {
	var out []*models.Document
	for _, d := range s.docs {
		out = append(out, d)
	}
	return out, nil
}

func (s *stubDocRepo) MarkError(ctx context.Context, id uuid.UUID, detail string) error {
	s.errored[id] = detail
	return nil
}

func (s *stubDocRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := s.docs[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.docs, id)
	s.deleted = append(s.deleted, id)
	return nil
}

type stubJobRepo struct {
	created []*models.Job
	status  map[uuid.UUID]string
}

func (s *stubJobRepo) Create(ctx context.Context, j *models.Job) error {
	j.ID = uuid.New()
	j.Status = "pending"
	s.created = append(s.created, j)
	return nil
}

func (s *stubJobRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	if s.status == nil {
		s.status = map[uuid.UUID]string{}
	}
	s.status[id] = status
	return nil
}

type stubQueue struct {
	pushed []*models.Job
	err    error
}

func (s *stubQueue) Push(ctx context.Context, job *models.Job) error {
	if s.err != nil {
		return s.err
	}
	s.pushed = append(s.pushed, job)
	return nil
}

type stubAnswerer struct {
	chatID string
	req    *models.ChatRequest
	reply  string
}

func (s *stubAnswerer) Answer(ctx context.Context, chatID string, req *models.ChatRequest, w io.Writer) error {
	s.chatID = chatID
	s.req = req
	io.WriteString(w, s.reply)
	return nil
}

type stubChunkDeleter struct {
	index string
	body  interface{}
	err   error
}

func (s *stubChunkDeleter) DeleteByQuery(ctx context.Context, index string, body interface{}) (int, error) {
	s.index = index
	s.body = body
	return 3, s.err
}

type stubWiki struct {
	hits []json.RawMessage
	data interface{}
	err  error
}

func (s *stubWiki) Search(ctx context.Context, req *models.WikiSearchRequest) ([]json.RawMessage, error) {
	return s.hits, s.err
}

func (s *stubWiki) GeoSearch(ctx context.Context, req *models.GeoSearchRequest) ([]json.RawMessage, error) {
	return s.hits, s.err
}

func (s *stubWiki) Validate(ctx context.Context, req *models.ValidateRequest) (interface{}, error) {
	return s.data, s.err
}

type stubLibrarian struct {
	query   string
	history []string
	reply   string
	err     error
}

func (s *stubLibrarian) Chat(ctx context.Context, query string, history []string) (string, error) {
	s.query = query
	s.history = history
	return s.reply, s.err
}
