package services

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"elasticlm-backend/internal/elastic"
	"elasticlm-backend/internal/models"
)

type stubLLM struct {
	mu        sync.Mutex
	prompts   []string
	complete  func(prompt string) (string, error)
	planJSON  string
	planErr   error
	chunks    []string
	streamErr error
}

func (s *stubLLM) Complete(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()
	if s.complete != nil {
		return s.complete(prompt)
	}
	return "summary", nil
}

func (s *stubLLM) CompleteJSON(ctx context.Context, prompt string) (string, error) {
	return s.planJSON, s.planErr
}

func (s *stubLLM) Stream(ctx context.Context, prompt string, fn func(chunk string) error) error {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()
	if s.streamErr != nil {
		return s.streamErr
	}
	for _, c := range s.chunks {
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}

type bulkCall struct {
	index   string
	docs    []elastic.BulkDocument
	workers int
}

type stubIndexer struct {
	mu      sync.Mutex
	calls   []bulkCall
	accept  func(call int, docs []elastic.BulkDocument) int
	bulkErr error
}

func (s *stubIndexer) BulkIndex(ctx context.Context, index string, docs []elastic.BulkDocument, workers int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, bulkCall{index: index, docs: docs, workers: workers})
	if s.bulkErr != nil {
		return 0, s.bulkErr
	}
	if s.accept != nil {
		return s.accept(len(s.calls), docs), nil
	}
	return len(docs), nil
}

type stubSearcher struct {
	bodies  []map[string]interface{}
	hits    []*models.SearchHits
	err     error
	indices []string
}

func (s *stubSearcher) Search(ctx context.Context, index string, body interface{}) (*models.SearchHits, error) {
	s.indices = append(s.indices, index)
	raw, _ := json.Marshal(body)
	var decoded map[string]interface{}
	json.Unmarshal(raw, &decoded)
	s.bodies = append(s.bodies, decoded)
	if s.err != nil {
		return nil, s.err
	}
	if len(s.hits) == 0 {
		return &models.SearchHits{Hits: []json.RawMessage{}}, nil
	}
	next := s.hits[0]
	if len(s.hits) > 1 {
		s.hits = s.hits[1:]
	}
	return next, nil
}

type stubChatStore struct {
	mu      sync.Mutex
	records map[string]*models.ChatRecord
	appends []string
}

func (s *stubChatStore) AppendChat(ctx context.Context, index string, record models.ChatRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.records == nil {
		s.records = map[string]*models.ChatRecord{}
	}
	s.appends = append(s.appends, record.ChatID)
	if existing, ok := s.records[record.ChatID]; ok {
		existing.Messages = append(existing.Messages, record.Messages...)
		existing.UpdatedAt = record.UpdatedAt
		return nil
	}
	s.records[record.ChatID] = &record
	return nil
}

type stubCache struct {
	answer string
	hit    bool
	stored map[string]string
}

func (s *stubCache) Lookup(ctx context.Context, sources []string, question string, threshold int) (string, bool, error) {
	return s.answer, s.hit, nil
}

func (s *stubCache) Store(ctx context.Context, sources []string, question, answer string) error {
	if s.stored == nil {
		s.stored = map[string]string{}
	}
	s.stored[strings.Join(sources, ",")+"|"+question] = answer
	return nil
}

func hitJSON(fileName, text string, start, end int) json.RawMessage {
	raw, _ := json.Marshal(map[string]interface{}{
		"_source": map[string]interface{}{
			"file_name":  fileName,
			"doc_type":   "parsed",
			"start_page": start,
			"end_page":   end,
			"text":       text,
		},
	})
	return raw
}
