package elastic

import (
	"encoding/json"
	"strings"
	"testing"
)

func mustJSON(t *testing.T, v interface{}) string {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(raw)
}

func TestWikiHybridQuery(t *testing.T) {
	body := WikiHybridQuery("castles", false)
	rrf := body["retriever"].(map[string]interface{})["rrf"].(map[string]interface{})

	if rrf["rank_window_size"] != 20 {
		t.Fatalf("unexpected rank window %v", rrf["rank_window_size"])
	}
	if _, ok := rrf["filter"]; ok {
		t.Fatalf("filter should be absent without mapLocationOnly")
	}
	if body["_source"] != false {
		t.Fatalf("expected _source false")
	}

	encoded := mustJSON(t, body)
	for _, want := range []string{`"field":"source_text_semantic"`, `"fields":["source_text"]`, `"coordinates.coord"`} {
		if !strings.Contains(encoded, want) {
			t.Fatalf("expected %s in %s", want, encoded)
		}
	}

	filtered := WikiHybridQuery("castles", true)
	rrf = filtered["retriever"].(map[string]interface{})["rrf"].(map[string]interface{})
	if !strings.Contains(mustJSON(t, rrf["filter"]), `"exists":{"field":"coordinates.coord"}`) {
		t.Fatalf("expected nested exists filter, got %s", mustJSON(t, rrf["filter"]))
	}
}

func TestWikiGeoQuery(t *testing.T) {
	body, err := WikiGeoQuery([]float64{2.2, 48.8, 2.5, 48.9})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	encoded := mustJSON(t, body)
	if !strings.Contains(encoded, `"top_left":{"lat":48.9,"lon":2.2}`) {
		t.Fatalf("unexpected top_left in %s", encoded)
	}
	if !strings.Contains(encoded, `"bottom_right":{"lat":48.8,"lon":2.5}`) {
		t.Fatalf("unexpected bottom_right in %s", encoded)
	}
	if body["size"] != 100 {
		t.Fatalf("expected size 100")
	}

	if _, err := WikiGeoQuery([]float64{1, 2, 3}); err != ErrInvalidBBox {
		t.Fatalf("expected ErrInvalidBBox, got %v", err)
	}
}

func TestScopeToSources(t *testing.T) {
	body := DocumentQuery("revenue", []string{"q1.pdf"})
	standard := body["retriever"].(map[string]interface{})["standard"].(map[string]interface{})
	if !strings.Contains(mustJSON(t, standard["filter"]), `"file_name":["q1.pdf"]`) {
		t.Fatalf("expected source filter on retriever, got %s", mustJSON(t, standard))
	}

	plain := ScopeToSources(map[string]interface{}{
		"query": map[string]interface{}{"match": map[string]interface{}{"text": "x"}},
	}, []string{"a.pdf", "b.pdf"})
	if !strings.Contains(mustJSON(t, plain), `"filter":[{"terms":{"file_name":["a.pdf","b.pdf"]}}]`) {
		t.Fatalf("expected wrapped bool filter, got %s", mustJSON(t, plain))
	}

	untouched := DocumentQuery("revenue", nil)
	standard = untouched["retriever"].(map[string]interface{})["standard"].(map[string]interface{})
	if _, ok := standard["filter"]; ok {
		t.Fatalf("no filter expected without sources")
	}
}

func TestLimitSize(t *testing.T) {
	if got := LimitSize(map[string]interface{}{"size": float64(50)}, 5)["size"]; got != 5 {
		t.Fatalf("expected size capped to 5, got %v", got)
	}
	if got := LimitSize(map[string]interface{}{"size": float64(3)}, 5)["size"]; got != float64(3) {
		t.Fatalf("expected size kept, got %v", got)
	}
	if got := LimitSize(nil, 5)["size"]; got != 5 {
		t.Fatalf("expected default size, got %v", got)
	}
}

func TestRegulationsQuery(t *testing.T) {
	got := mustJSON(t, RegulationsQuery("notary fees", "semantic_content"))
	want := `{"highlight":{"fields":{"semantic_content":{"number_of_fragments":3,"order":"score","type":"semantic"}}},` +
		`"query":{"semantic":{"field":"semantic_content","query":"notary fees"}},"size":5}`
	if got != want {
		t.Fatalf("unexpected query:\n%s\nwant\n%s", got, want)
	}
}
