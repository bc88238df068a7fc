package models

import "encoding/json"

// WikiSearchRequest is the body of POST /api/search.
type WikiSearchRequest struct {
	Query           string `json:"query"`
	URL             string `json:"url"`
	APIKey          string `json:"apiKey"`
	MapLocationOnly bool   `json:"mapLocationOnly"`
}

// GeoSearchRequest is the body of POST /api/geo-search.
// BBox is [minLng, minLat, maxLng, maxLat].
type GeoSearchRequest struct {
	BBox   []float64 `json:"bbox"`
	URL    string    `json:"url"`
	APIKey string    `json:"apiKey"`
}

type ValidateRequest struct {
	URL    string `json:"url"`
	APIKey string `json:"apiKey"`
}

// ProxyResponse is the envelope of the search proxy routes.
type ProxyResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// SearchHits holds engine hits verbatim.
type SearchHits struct {
	Total int               `json:"total"`
	Hits  []json.RawMessage `json:"hits"`
}
