package services

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"elasticlm-backend/internal/models"
)

func TestDocumentTitle(t *testing.T) {
	pages := []models.Page{
		{Number: 1, Text: "\n\n"},
		{Number: 2, Text: "  Quarterly Report  \nRevenue grew."},
	}
	if got := DocumentTitle(pages); got != "Quarterly Report" {
		t.Fatalf("unexpected title %q", got)
	}
	if got := DocumentTitle(nil); got != "Untitled Document" {
		t.Fatalf("expected fallback title, got %q", got)
	}
}

func TestBuildChunks_HeaderAndPages(t *testing.T) {
	pages := []models.Page{
		{Number: 1, Text: "Annual Report\n\nRevenue grew by ten percent."},
		{Number: 3, Text: "Costs were flat."},
	}

	chunks, err := BuildChunks("report.pdf", pages, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if !strings.HasPrefix(chunks[0].Text, "File: report.pdf\nTitle: Annual Report\n\n") {
		t.Fatalf("missing header: %q", chunks[0].Text)
	}
	if chunks[1].StartPage != 3 || chunks[1].EndPage != 3 {
		t.Fatalf("unexpected page range %d-%d", chunks[1].StartPage, chunks[1].EndPage)
	}
	if chunks[0].ElementType != "NarrativeText" || chunks[0].PDFFile != "report.pdf" {
		t.Fatalf("unexpected chunk metadata: %+v", chunks[0])
	}
}

func TestBuildChunks_SplitsLongPages(t *testing.T) {
	words := strings.Repeat("lorem ipsum ", 100)
	chunks, err := BuildChunks("a.txt", []models.Page{{Number: 1, Text: words}}, 120)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 5 {
		t.Fatalf("expected the page to be split, got %d chunks", len(chunks))
	}

	header := "File: a.txt\nTitle: " + chunks[0].DocumentTitle + "\n\n"
	for _, c := range chunks {
		body := strings.TrimPrefix(c.Text, header)
		if len(body) > 120 {
			t.Fatalf("chunk body exceeds limit: %d", len(body))
		}
	}
}

func TestBuildChunks_NoContent(t *testing.T) {
	_, err := BuildChunks("empty.pdf", []models.Page{{Number: 1, Text: "   "}}, 100)
	if !errors.Is(err, ErrNoContent) {
		t.Fatalf("expected ErrNoContent, got %v", err)
	}
}

func TestDocumentTitle_TruncatesOnRunes(t *testing.T) {
	line := strings.Repeat("é", 250)
	got := DocumentTitle([]models.Page{{Number: 1, Text: line}})
	if !utf8.ValidString(got) {
		t.Fatalf("title is not valid UTF-8: %q", got)
	}
	if n := utf8.RuneCountInString(got); n != 200 {
		t.Fatalf("expected 200 runes, got %d", n)
	}
}

func TestBuildChunks_SplitsOversizedWord(t *testing.T) {
	word := strings.Repeat("ü", 150)
	chunks, err := BuildChunks("a.txt", []models.Page{{Number: 1, Text: "Title\n\n" + word}}, 64)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	header := "File: a.txt\nTitle: Title\n\n"
	var rebuilt strings.Builder
	for _, c := range chunks {
		body := strings.TrimPrefix(c.Text, header)
		if len(body) > 64 {
			t.Fatalf("chunk body exceeds limit: %d", len(body))
		}
		if !utf8.ValidString(body) {
			t.Fatalf("chunk split a rune: %q", body)
		}
		if body != "Title" {
			rebuilt.WriteString(strings.ReplaceAll(body, " ", ""))
		}
	}
	if rebuilt.String() != word {
		t.Fatalf("word content lost across chunks")
	}
}
