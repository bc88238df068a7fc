package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"elasticlm-backend/internal/elastic"
	"elasticlm-backend/internal/models"
)

const (
	DocTypeParsed  = "parsed"
	DocTypeSummary = "summary"
)

// ErrNothingIndexed is returned when the engine accepted none of the chunks.
var ErrNothingIndexed = errors.New("Failed to index any documents.")

// ChunkIndexer bulk-indexes documents and reports how many were accepted.
type ChunkIndexer interface {
	BulkIndex(ctx context.Context, index string, docs []elastic.BulkDocument, workers int) (int, error)
}

// TranscriptSource resolves the text of a video URL.
type TranscriptSource interface {
	Transcript(ctx context.Context, videoURL string) (string, error)
}

// ProgressFunc is told when the pipeline enters a new step.
type ProgressFunc func(step int, name string)

type IngestResult struct {
	SummaryMessage string
	OverallSummary string
	ChunkCount     int
}

// IngestService runs the upload pipeline: parse, index, summarize, finalize.
type IngestService struct {
	llm              LLM
	indexer          ChunkIndexer
	extract          *FileExtractService
	transcripts      TranscriptSource
	docsIndex        string
	indexConcurrency int
	chunkChars       int
}

func NewIngestService(llm LLM, indexer ChunkIndexer, extract *FileExtractService, transcripts TranscriptSource, docsIndex string, indexConcurrency int) *IngestService {
	if indexConcurrency <= 0 {
		indexConcurrency = 16
	}
	return &IngestService{
		llm:              llm,
		indexer:          indexer,
		extract:          extract,
		transcripts:      transcripts,
		docsIndex:        docsIndex,
		indexConcurrency: indexConcurrency,
		chunkChars:       DefaultChunkChars,
	}
}

// SummaryMessage is the Markdown shown to the user once an upload is done.
func SummaryMessage(fileName, overall string) string {
	return fmt.Sprintf("### %s has been successfully uploaded.\n\n**Overall summary:**\n\n%s\n\nFeel free to ask any follow-up questions.",
		fileName, strings.TrimSpace(overall))
}

// Process runs the pipeline over an uploaded file.
func (s *IngestService) Process(ctx context.Context, doc *models.Document, data []byte, progress ProgressFunc) (*IngestResult, error) {
	report(progress, 1, "Parsing document")
	pages, err := s.extract.ExtractPages(data, doc.FileName)
	if err != nil {
		return nil, fmt.Errorf("Error parsing document: %w", err)
	}
	return s.run(ctx, doc, pages, progress)
}

// ProcessYouTube runs the pipeline over a video transcript.
func (s *IngestService) ProcessYouTube(ctx context.Context, doc *models.Document, progress ProgressFunc) (*IngestResult, error) {
	if doc.SourceURL == nil || *doc.SourceURL == "" {
		return nil, &ValidationError{Message: "youtube document has no source URL"}
	}
	if s.transcripts == nil {
		return nil, fmt.Errorf("youtube transcripts are not configured")
	}

	report(progress, 1, "Extracting transcript from video")
	transcript, err := s.transcripts.Transcript(ctx, *doc.SourceURL)
	if err != nil {
		return nil, fmt.Errorf("Error parsing document: %w", err)
	}

	text := normalizeExtractedText(transcript)
	if text == "" {
		return nil, fmt.Errorf("Error parsing document: %w", ErrNoContent)
	}
	return s.run(ctx, doc, []models.Page{{Number: 1, Text: text}}, progress)
}

func (s *IngestService) run(ctx context.Context, doc *models.Document, pages []models.Page, progress ProgressFunc) (*IngestResult, error) {
	chunks, err := BuildChunks(doc.FileName, pages, s.chunkChars)
	if err != nil {
		return nil, fmt.Errorf("Error parsing document: %w", err)
	}
	log.Printf("Parsed %d chunks from %s", len(chunks), doc.FileName)

	report(progress, 2, "Indexing chunks")
	indexed, err := s.indexChunks(ctx, doc, chunks)
	if err != nil {
		return nil, fmt.Errorf("Error indexing documents: %w", err)
	}

	report(progress, 3, "Summarizing")
	overall, err := s.summarize(ctx, doc, chunks)
	if err != nil {
		return nil, fmt.Errorf("Error summarizing document: %w", err)
	}

	report(progress, 4, "Finalizing")
	return &IngestResult{
		SummaryMessage: SummaryMessage(doc.FileName, overall),
		OverallSummary: overall,
		ChunkCount:     indexed,
	}, nil
}

func (s *IngestService) baseFields(doc *models.Document, docType string) map[string]interface{} {
	return map[string]interface{}{
		"document_id": doc.ID.String(),
		"file_name":   doc.FileName,
		"source":      doc.Source,
		"doc_type":    docType,
		"indexed_at":  time.Now().UTC().Format(time.RFC3339),
	}
}

// Indexed ids derive from the document so a retried job overwrites what an
// earlier attempt already indexed.
func chunkID(doc *models.Document, page, index int) string {
	return fmt.Sprintf("%s:%d:%d", doc.ID, page, index)
}

func summaryID(doc *models.Document, page int) string {
	return fmt.Sprintf("%s:summary:%d", doc.ID, page)
}

func (s *IngestService) indexChunks(ctx context.Context, doc *models.Document, chunks []models.Chunk) (int, error) {
	docs := make([]elastic.BulkDocument, 0, len(chunks))
	for i, c := range chunks {
		body := s.baseFields(doc, DocTypeParsed)
		body["pdf_file"] = c.PDFFile
		body["document_title"] = c.DocumentTitle
		body["element_type"] = c.ElementType
		body["start_page"] = c.StartPage
		body["end_page"] = c.EndPage
		body["text"] = c.Text
		docs = append(docs, elastic.BulkDocument{ID: chunkID(doc, c.StartPage, i), Body: body})
	}

	n, err := s.indexer.BulkIndex(ctx, s.docsIndex, docs, s.indexConcurrency)
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, ErrNothingIndexed
	}
	return n, nil
}

// summarize produces one summary per page concurrently, then an overall
// summary over the joined page summaries. All of them are indexed.
func (s *IngestService) summarize(ctx context.Context, doc *models.Document, chunks []models.Chunk) (string, error) {
	byPage := map[int][]string{}
	for _, c := range chunks {
		byPage[c.StartPage] = append(byPage[c.StartPage], c.Text)
	}
	pageNumbers := make([]int, 0, len(byPage))
	for n := range byPage {
		pageNumbers = append(pageNumbers, n)
	}
	sort.Ints(pageNumbers)

	summaries := make([]models.PageSummary, len(pageNumbers))
	g, gctx := errgroup.WithContext(ctx)
	for i, n := range pageNumbers {
		i, n := i, n
		g.Go(func() error {
			text, err := s.llm.Complete(gctx, buildPageSummaryPrompt(doc.FileName, n, strings.Join(byPage[n], " ")))
			if err != nil {
				return fmt.Errorf("page %d: %w", n, err)
			}
			summaries[i] = models.PageSummary{PageNumber: n, Summary: strings.TrimSpace(text)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	joined := make([]string, len(summaries))
	for i, ps := range summaries {
		joined[i] = ps.Summary
	}
	overall, err := s.llm.Complete(ctx, buildOverallSummaryPrompt(doc.FileName, strings.Join(joined, " ")))
	if err != nil {
		return "", fmt.Errorf("overall summary: %w", err)
	}
	overall = strings.TrimSpace(overall)
	summaries = append(summaries, models.PageSummary{PageNumber: 0, Summary: overall})

	docs := make([]elastic.BulkDocument, 0, len(summaries))
	for _, ps := range summaries {
		body := s.baseFields(doc, DocTypeSummary)
		body["page_number"] = ps.PageNumber
		body["text"] = ps.Summary
		docs = append(docs, elastic.BulkDocument{ID: summaryID(doc, ps.PageNumber), Body: body})
	}
	n, err := s.indexer.BulkIndex(ctx, s.docsIndex, docs, s.indexConcurrency)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", errors.New("Failed to index any summary documents.")
	}
	return overall, nil
}

func report(progress ProgressFunc, step int, name string) {
	if progress != nil {
		progress(step, name)
	}
}
