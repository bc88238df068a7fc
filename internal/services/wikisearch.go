package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"elasticlm-backend/internal/elastic"
	"elasticlm-backend/internal/models"
)

const (
	wikiSearchTimeout   = 10 * time.Second
	wikiValidateTimeout = 5 * time.Second
)

// SearchBackend is a cluster reachable with caller-supplied credentials.
type SearchBackend interface {
	Search(ctx context.Context, index string, body interface{}) (*models.SearchHits, error)
	Validate(ctx context.Context, endpointTimeout time.Duration) (interface{}, error)
}

// BackendDialer connects to a cluster URL with an API key.
type BackendDialer func(url, apiKey string) (SearchBackend, error)

func dialElastic(url, apiKey string) (SearchBackend, error) {
	return elastic.New(url, apiKey, elastic.Options{DisableRetry: true})
}

// WikiSearchService forwards travel-guide searches to the cluster named in
// each request.
type WikiSearchService struct {
	index string
	dial  BackendDialer
}

func NewWikiSearchService(index string, dial BackendDialer) *WikiSearchService {
	if dial == nil {
		dial = dialElastic
	}
	return &WikiSearchService{index: index, dial: dial}
}

// Search runs the hybrid semantic and lexical query and returns the hits.
func (s *WikiSearchService) Search(ctx context.Context, req *models.WikiSearchRequest) ([]json.RawMessage, error) {
	if req.URL == "" || req.APIKey == "" || req.Query == "" {
		return nil, &ValidationError{Message: "Missing required parameters"}
	}
	return s.search(ctx, req.URL, req.APIKey, elastic.WikiHybridQuery(req.Query, req.MapLocationOnly))
}

// GeoSearch returns articles with coordinates inside the bounding box.
func (s *WikiSearchService) GeoSearch(ctx context.Context, req *models.GeoSearchRequest) ([]json.RawMessage, error) {
	if req.URL == "" || req.APIKey == "" {
		return nil, &ValidationError{Message: "Missing or invalid parameters"}
	}
	body, err := elastic.WikiGeoQuery(req.BBox)
	if err != nil {
		return nil, &ValidationError{Message: "Missing or invalid parameters"}
	}
	log.Printf("Geo search with bbox: %v", req.BBox)

	hits, err := s.search(ctx, req.URL, req.APIKey, body)
	if err != nil {
		return nil, err
	}
	log.Printf("Geo search returned %d results", len(hits))
	return hits, nil
}

func (s *WikiSearchService) search(ctx context.Context, url, apiKey string, body map[string]interface{}) ([]json.RawMessage, error) {
	backend, err := s.dial(url, apiKey)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, wikiSearchTimeout)
	defer cancel()

	hits, err := backend.Search(ctx, s.index, body)
	if err != nil {
		return nil, upstreamError(err)
	}
	return hits.Hits, nil
}

// Validate checks that the URL and API key reach a working cluster.
func (s *WikiSearchService) Validate(ctx context.Context, req *models.ValidateRequest) (interface{}, error) {
	if req.URL == "" || req.APIKey == "" {
		return nil, &ValidationError{Message: "URL and API key are required"}
	}

	backend, err := s.dial(req.URL, req.APIKey)
	if err != nil {
		return nil, err
	}

	data, err := backend.Validate(ctx, wikiValidateTimeout)
	if err == nil {
		return data, nil
	}

	var probeErr *elastic.ProbeError
	switch {
	case errors.Is(err, elastic.ErrUnauthorized):
		return nil, &UnauthorizedError{Message: elastic.ErrUnauthorized.Error()}
	case errors.As(err, &probeErr):
		if strings.Contains(probeErr.Reason, context.DeadlineExceeded.Error()) {
			return nil, &ValidationError{Message: "Connection timed out. Please check the URL and try again."}
		}
		return nil, &ValidationError{Message: probeErr.Error()}
	}
	return nil, err
}

// upstreamError keeps the engine's status code so callers can pass it on.
func upstreamError(err error) error {
	var statusErr *elastic.StatusError
	if errors.As(err, &statusErr) {
		return &UpstreamError{StatusCode: statusErr.StatusCode, Message: statusErr.Error()}
	}
	return err
}
