package services

import "testing"

func TestExtractVideoID(t *testing.T) {
	tests := map[string]string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ":             "dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ?t=10":                       "dQw4w9WgXcQ",
		"https://www.youtube.com/shorts/dQw4w9WgXcQ":              "dQw4w9WgXcQ",
		"https://www.youtube.com/embed/dQw4w9WgXcQ":               "dQw4w9WgXcQ",
		"https://m.youtube.com/watch?feature=share&v=dQw4w9WgXcQ": "dQw4w9WgXcQ",
		"https://example.com/video":                               "",
	}
	for url, want := range tests {
		if got := ExtractVideoID(url); got != want {
			t.Errorf("ExtractVideoID(%q) = %q, want %q", url, got, want)
		}
	}
}

func TestParseCaptionsXML(t *testing.T) {
	data := []byte(`<transcript><text start="0" dur="1">Hello &amp;amp; welcome</text><text start="1" dur="1">  </text><text start="2" dur="1">to graphs</text></transcript>`)
	got, err := parseCaptionsXML(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Hello & welcome to graphs" {
		t.Fatalf("unexpected transcript %q", got)
	}

	if _, err := parseCaptionsXML([]byte(`<transcript></transcript>`)); err == nil {
		t.Fatalf("expected error for empty captions")
	}
}

func TestExtractCaptionURL(t *testing.T) {
	page := `..."captionTracks":[{"baseUrl":"https:\/\/www.youtube.com\/api\/timedtext?v=abc\u0026lang=en","name":{}}],"audioTracks"...`
	got, err := extractCaptionURL(page)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "https://www.youtube.com/api/timedtext?v=abc&lang=en" {
		t.Fatalf("unexpected url %q", got)
	}

	if _, err := extractCaptionURL("<html></html>"); err == nil {
		t.Fatalf("expected error without caption tracks")
	}
}
