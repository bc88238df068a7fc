package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"elasticlm-backend/internal/models"
)

type wikiSearcher interface {
	Search(ctx context.Context, req *models.WikiSearchRequest) ([]json.RawMessage, error)
	GeoSearch(ctx context.Context, req *models.GeoSearchRequest) ([]json.RawMessage, error)
	Validate(ctx context.Context, req *models.ValidateRequest) (interface{}, error)
}

// SearchHandler proxies travel-guide searches to a caller-supplied cluster.
type SearchHandler struct {
	wiki wikiSearcher
}

func NewSearchHandler(wiki wikiSearcher) *SearchHandler {
	return &SearchHandler{wiki: wiki}
}

func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req models.WikiSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ProxyResponse{Error: "Missing required parameters"})
		return
	}

	hits, err := h.wiki.Search(r.Context(), &req)
	if err != nil {
		log.Printf("Error in search API: %v", err)
		writeProxyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.ProxyResponse{Success: true, Data: nonNilHits(hits)})
}

func (h *SearchHandler) GeoSearch(w http.ResponseWriter, r *http.Request) {
	var req models.GeoSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ProxyResponse{Error: "Missing or invalid parameters"})
		return
	}

	hits, err := h.wiki.GeoSearch(r.Context(), &req)
	if err != nil {
		log.Printf("Error in geo-search API: %v", err)
		writeProxyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.ProxyResponse{Success: true, Data: nonNilHits(hits)})
}

func (h *SearchHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req models.ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ProxyResponse{Error: "URL and API key are required"})
		return
	}

	data, err := h.wiki.Validate(r.Context(), &req)
	if err != nil {
		log.Printf("Error validating Elasticsearch connection: %v", err)
		writeProxyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.ProxyResponse{
		Success: true,
		Message: "Connection successful",
		Data:    data,
	})
}

func nonNilHits(hits []json.RawMessage) []json.RawMessage {
	if hits == nil {
		return []json.RawMessage{}
	}
	return hits
}
