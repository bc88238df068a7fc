package elastic

import "errors"

const (
	wikiSearchSize = 20
	wikiRankWindow = 20
	geoSearchSize  = 100

	regulationsSearchSize     = 5
	regulationsPassagesPerHit = 3
)

var wikiFields = []string{"title", "opening_text", "source_text", "coordinates.coord"}

// ErrInvalidBBox is returned for a bounding box that is not four numbers.
var ErrInvalidBBox = errors.New("bbox must be [minLng, minLat, maxLng, maxLat]")

// WikiHybridQuery fuses a semantic retriever on source_text_semantic with a
// lexical multi_match on source_text using reciprocal rank fusion.
func WikiHybridQuery(query string, mapLocationOnly bool) map[string]interface{} {
	rrf := map[string]interface{}{
		"rank_window_size": wikiRankWindow,
		"retrievers": []interface{}{
			map[string]interface{}{
				"standard": map[string]interface{}{
					"query": map[string]interface{}{
						"semantic": map[string]interface{}{
							"field": "source_text_semantic",
							"query": query,
						},
					},
				},
			},
			map[string]interface{}{
				"standard": map[string]interface{}{
					"query": map[string]interface{}{
						"multi_match": map[string]interface{}{
							"query":  query,
							"fields": []string{"source_text"},
						},
					},
				},
			},
		},
	}
	if mapLocationOnly {
		rrf["filter"] = map[string]interface{}{
			"nested": map[string]interface{}{
				"path": "coordinates",
				"query": map[string]interface{}{
					"exists": map[string]interface{}{"field": "coordinates.coord"},
				},
			},
		}
	}

	return map[string]interface{}{
		"size":      wikiSearchSize,
		"retriever": map[string]interface{}{"rrf": rrf},
		"_source":   false,
		"fields":    wikiFields,
	}
}

// WikiGeoQuery finds articles with a coordinate inside bbox, given as
// [minLng, minLat, maxLng, maxLat].
func WikiGeoQuery(bbox []float64) (map[string]interface{}, error) {
	if len(bbox) != 4 {
		return nil, ErrInvalidBBox
	}
	minLng, minLat, maxLng, maxLat := bbox[0], bbox[1], bbox[2], bbox[3]

	return map[string]interface{}{
		"size": geoSearchSize,
		"query": map[string]interface{}{
			"nested": map[string]interface{}{
				"path": "coordinates",
				"query": map[string]interface{}{
					"bool": map[string]interface{}{
						"filter": map[string]interface{}{
							"geo_bounding_box": map[string]interface{}{
								"coordinates.coord": map[string]interface{}{
									"top_left":     map[string]float64{"lat": maxLat, "lon": minLng},
									"bottom_right": map[string]float64{"lat": minLat, "lon": maxLng},
								},
							},
						},
					},
				},
			},
		},
		"_source": false,
		"fields":  wikiFields,
	}, nil
}

// DocumentQuery is the default retrieval body for a question over uploaded
// documents: semantic and lexical clauses, optionally limited to sources.
func DocumentQuery(text string, sources []string) map[string]interface{} {
	body := map[string]interface{}{
		"size": 10,
		"retriever": map[string]interface{}{
			"standard": map[string]interface{}{
				"query": map[string]interface{}{
					"bool": map[string]interface{}{
						"should": []interface{}{
							map[string]interface{}{
								"semantic": map[string]interface{}{
									"field": "semantic_text",
									"query": text,
								},
							},
							map[string]interface{}{
								"match": map[string]interface{}{
									"text": text,
								},
							},
						},
					},
				},
			},
		},
		"_source": map[string]interface{}{
			"excludes": []string{"semantic_text"},
		},
	}
	return ScopeToSources(body, sources)
}

// ScopeToSources adds a file_name terms filter to body. Bodies using a
// standard retriever get the filter on the retriever; plain query bodies are
// wrapped in a bool. body is modified in place and returned.
func ScopeToSources(body map[string]interface{}, sources []string) map[string]interface{} {
	if len(sources) == 0 || body == nil {
		return body
	}
	filter := map[string]interface{}{
		"terms": map[string]interface{}{"file_name": sources},
	}

	if retriever, ok := body["retriever"].(map[string]interface{}); ok {
		if standard, ok := retriever["standard"].(map[string]interface{}); ok {
			standard["filter"] = filter
			return body
		}
		for _, inner := range retriever {
			if m, ok := inner.(map[string]interface{}); ok {
				m["filter"] = filter
			}
		}
		return body
	}

	query, ok := body["query"]
	if !ok {
		query = map[string]interface{}{"match_all": map[string]interface{}{}}
	}
	body["query"] = map[string]interface{}{
		"bool": map[string]interface{}{
			"must":   []interface{}{query},
			"filter": []interface{}{filter},
		},
	}
	return body
}

// DocumentIDQuery matches every chunk and summary of one uploaded document.
func DocumentIDQuery(documentID string) map[string]interface{} {
	return map[string]interface{}{
		"query": map[string]interface{}{
			"term": map[string]interface{}{"document_id": documentID},
		},
	}
}

// LimitSize caps the size of a caller-supplied body.
func LimitSize(body map[string]interface{}, max int) map[string]interface{} {
	if body == nil {
		body = map[string]interface{}{}
	}
	switch size := body["size"].(type) {
	case float64:
		if int(size) <= max {
			return body
		}
	case int:
		if size <= max {
			return body
		}
	}
	body["size"] = max
	return body
}

// BooksTitleQuery is the fallback body for the books index when the model
// does not provide one.
func BooksTitleQuery(text string) map[string]interface{} {
	return map[string]interface{}{
		"size": 5,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  text,
				"fields": []string{"title^2", "authors", "description"},
			},
		},
	}
}

// RegulationsQuery runs a semantic query on field and asks for the best
// matching passages of each hit as semantic highlights.
func RegulationsQuery(question, field string) map[string]interface{} {
	return map[string]interface{}{
		"size": regulationsSearchSize,
		"query": map[string]interface{}{
			"semantic": map[string]interface{}{
				"field": field,
				"query": question,
			},
		},
		"highlight": map[string]interface{}{
			"fields": map[string]interface{}{
				field: map[string]interface{}{
					"type":                "semantic",
					"number_of_fragments": regulationsPassagesPerHit,
					"order":               "score",
				},
			},
		},
	}
}
