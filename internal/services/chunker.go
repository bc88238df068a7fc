package services

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"elasticlm-backend/internal/models"
)

const (
	DefaultChunkChars  = 2000
	untitledDocument   = "Untitled Document"
	narrativeText      = "NarrativeText"
	maxTitleCharacters = 200
)

// ErrNoContent is returned when no page yields any text.
var ErrNoContent = errors.New("No content extracted.")

// DocumentTitle returns the first non-empty line across pages.
func DocumentTitle(pages []models.Page) string {
	for _, p := range pages {
		for _, line := range strings.Split(p.Text, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if utf8.RuneCountInString(line) > maxTitleCharacters {
				line = strings.TrimSpace(string([]rune(line)[:maxTitleCharacters]))
			}
			return line
		}
	}
	return untitledDocument
}

// BuildChunks splits every page into chunks of at most maxChars bytes of
// body text, breaking at paragraph and then word boundaries. Each chunk text
// starts with a File/Title header so retrieved chunks carry their origin.
func BuildChunks(fileName string, pages []models.Page, maxChars int) ([]models.Chunk, error) {
	if maxChars <= 0 {
		maxChars = DefaultChunkChars
	}
	title := DocumentTitle(pages)
	header := fmt.Sprintf("File: %s\nTitle: %s\n\n", fileName, title)

	var chunks []models.Chunk
	for _, page := range pages {
		for _, piece := range splitText(page.Text, maxChars) {
			chunks = append(chunks, models.Chunk{
				PDFFile:       fileName,
				DocumentTitle: title,
				ElementType:   narrativeText,
				StartPage:     page.Number,
				EndPage:       page.Number,
				Text:          header + piece,
			})
		}
	}

	if len(chunks) == 0 {
		return nil, ErrNoContent
	}
	return chunks, nil
}

func splitText(text string, maxChars int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var out []string
	var cur strings.Builder
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			out = append(out, s)
		}
		cur.Reset()
	}

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if cur.Len() > 0 && cur.Len()+2+len(para) > maxChars {
			flush()
		}
		if len(para) <= maxChars {
			if cur.Len() > 0 {
				cur.WriteString("\n\n")
			}
			cur.WriteString(para)
			continue
		}

		// paragraph longer than a chunk: pack words
		for _, word := range strings.Fields(para) {
			for _, part := range splitWord(word, maxChars) {
				if cur.Len() > 0 && cur.Len()+1+len(part) > maxChars {
					flush()
				}
				if cur.Len() > 0 {
					cur.WriteString(" ")
				}
				cur.WriteString(part)
			}
		}
	}
	flush()
	return out
}

// splitWord cuts a word longer than maxChars bytes on rune boundaries.
func splitWord(word string, maxChars int) []string {
	if len(word) <= maxChars {
		return []string{word}
	}
	var parts []string
	for len(word) > maxChars {
		cut := maxChars
		for cut > 0 && !utf8.RuneStart(word[cut]) {
			cut--
		}
		if cut == 0 {
			_, cut = utf8.DecodeRuneInString(word)
		}
		parts = append(parts, word[:cut])
		word = word[cut:]
	}
	if word != "" {
		parts = append(parts, word)
	}
	return parts
}
