package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"elasticlm-backend/internal/elastic"
	"elasticlm-backend/internal/models"
)

const logSeparator = "\n --- \n"

// DocumentSearcher runs a search body against an index.
type DocumentSearcher interface {
	Search(ctx context.Context, index string, body interface{}) (*models.SearchHits, error)
}

// ChatStore appends exchanges to a stored chat, creating it when missing.
type ChatStore interface {
	AppendChat(ctx context.Context, index string, record models.ChatRecord) error
}

var planSchema = gojsonschema.NewStringLoader(`{
	"type": "object",
	"required": ["steps"],
	"properties": {
		"steps": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["action", "args"],
				"properties": {
					"action": {"type": "string", "minLength": 1},
					"description": {"type": "string"},
					"args": {
						"type": "object",
						"properties": {"query": {"type": "object"}}
					}
				}
			}
		}
	}
}`)

// QAService answers chat questions over the uploaded documents.
type QAService struct {
	llm        LLM
	search     DocumentSearcher
	chats      ChatStore
	cache      AnswerCache
	docsIndex  string
	chatsIndex string
}

func NewQAService(llm LLM, search DocumentSearcher, chats ChatStore, cache AnswerCache, docsIndex, chatsIndex string) *QAService {
	return &QAService{
		llm:        llm,
		search:     search,
		chats:      chats,
		cache:      cache,
		docsIndex:  docsIndex,
		chatsIndex: chatsIndex,
	}
}

// Answer writes the answer to req's last message into w as
// "<search log>\n --- \n<answer>". Pipeline failures are written as
// "Error: <message>"; only request validation errors are returned.
func (s *QAService) Answer(ctx context.Context, chatID string, req *models.ChatRequest, w io.Writer) error {
	if len(req.Messages) == 0 {
		return &ValidationError{Message: "No messages provided"}
	}
	question := req.Question()

	useCache := s.cache != nil && req.EnableCaching
	if useCache && !req.IgnoreCache {
		cached, hit, err := s.cache.Lookup(ctx, req.SelectedSources, question, req.SimilarityThreshold)
		if err != nil {
			log.Printf("Answer cache lookup failed: %v", err)
		}
		if hit {
			log.Printf("Answer cache hit for chat %s", chatID)
			io.WriteString(w, cached)
			s.persist(ctx, chatID, question, cached)
			return nil
		}
	}

	answer, err := s.run(ctx, req, question, w)
	if err != nil {
		log.Printf("QA pipeline failed for chat %s: %v", chatID, err)
		io.WriteString(w, fmt.Sprintf("Error: %v", err))
		return nil
	}

	if useCache {
		if err := s.cache.Store(ctx, req.SelectedSources, question, answer); err != nil {
			log.Printf("Answer cache store failed: %v", err)
		}
	}
	s.persist(ctx, chatID, question, answer)
	return nil
}

func (s *QAService) run(ctx context.Context, req *models.ChatRequest, question string, w io.Writer) (string, error) {
	plan := s.plan(ctx, question, req.SelectedSources)

	var queryLogs []string
	var contextHits []string
	for _, step := range plan.Steps {
		if step.Action != models.ActionQueryElasticsearch {
			continue
		}

		body := stepQuery(step, question, req.SelectedSources)
		term := searchTerm(body, question)
		queryLogs = append(queryLogs, fmt.Sprintf("- [**ES Search**]: '%s'", term))

		hits, err := s.search.Search(ctx, s.docsIndex, elastic.ScopeToSources(body, req.SelectedSources))
		if err != nil {
			return "", err
		}
		if hits.Total == 0 || len(hits.Hits) == 0 {
			queryLogs = append(queryLogs, fmt.Sprintf("- [**ES Search**]: No results found for '%s'", term))
			continue
		}
		for _, hit := range hits.Hits {
			contextHits = append(contextHits, formatHit(hit))
		}
	}

	var out strings.Builder
	out.WriteString(strings.Join(queryLogs, "\n"))
	out.WriteString(logSeparator)
	if _, err := io.WriteString(w, out.String()); err != nil {
		return "", err
	}

	prompt := buildGeneratorPrompt(req.CustomPrompt, question, contextHits)
	err := s.llm.Stream(ctx, prompt, func(chunk string) error {
		out.WriteString(chunk)
		_, err := io.WriteString(w, chunk)
		return err
	})
	if err != nil {
		return "", err
	}
	return out.String(), nil
}

// plan asks the model for search steps and falls back to a single default
// search when the output is missing or does not match the plan schema.
func (s *QAService) plan(ctx context.Context, question string, sources []string) *models.Plan {
	fallback := defaultPlan(question, sources)

	raw, err := s.llm.CompleteJSON(ctx, buildPlannerPrompt(question))
	if err != nil {
		log.Printf("Planner failed, using default search: %v", err)
		return fallback
	}

	plan, err := parsePlan(raw)
	if err != nil {
		log.Printf("Planner output rejected, using default search: %v", err)
		return fallback
	}
	return plan
}

func parsePlan(raw string) (*models.Plan, error) {
	raw = stripCodeFences(raw)
	result, err := gojsonschema.Validate(planSchema, gojsonschema.NewStringLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("schema validation error: %w", err)
	}
	if !result.Valid() {
		var details []string
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return nil, fmt.Errorf("plan failed validation: %s", strings.Join(details, "; "))
	}

	var plan models.Plan
	if err := json.Unmarshal([]byte(raw), &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

func defaultPlan(question string, sources []string) *models.Plan {
	body, _ := json.Marshal(elastic.DocumentQuery(question, sources))
	return &models.Plan{Steps: []models.PlanStep{{
		Action:      models.ActionQueryElasticsearch,
		Description: "Search the uploaded documents for the question",
		Args:        map[string]json.RawMessage{"query": body},
	}}}
}

func stepQuery(step models.PlanStep, question string, sources []string) map[string]interface{} {
	if raw, ok := step.Args["query"]; ok {
		var body map[string]interface{}
		if err := json.Unmarshal(raw, &body); err == nil && len(body) > 0 {
			return body
		}
	}
	return elastic.DocumentQuery(question, sources)
}

// searchTerm reads the semantic query text out of a planner search body.
func searchTerm(body map[string]interface{}, fallback string) string {
	var node interface{} = body
	for _, key := range []string{"retriever", "standard", "query", "bool", "should"} {
		m, ok := node.(map[string]interface{})
		if !ok {
			return fallback
		}
		node = m[key]
	}
	should, ok := node.([]interface{})
	if !ok || len(should) == 0 {
		return fallback
	}
	first, ok := should[0].(map[string]interface{})
	if !ok {
		return fallback
	}
	semantic, ok := first["semantic"].(map[string]interface{})
	if !ok {
		return fallback
	}
	if q, ok := semantic["query"].(string); ok && q != "" {
		return q
	}
	return fallback
}

func formatHit(raw json.RawMessage) string {
	var hit struct {
		Source struct {
			FileName  string `json:"file_name"`
			DocType   string `json:"doc_type"`
			StartPage int    `json:"start_page"`
			EndPage   int    `json:"end_page"`
			Text      string `json:"text"`
		} `json:"_source"`
	}
	if err := json.Unmarshal(raw, &hit); err != nil || hit.Source.Text == "" {
		return string(raw)
	}

	src := hit.Source
	if src.DocType == DocTypeSummary {
		return fmt.Sprintf("[%s, summary]\n%s", src.FileName, src.Text)
	}
	pages := fmt.Sprintf("p. %d", src.StartPage)
	if src.EndPage != src.StartPage {
		pages = fmt.Sprintf("pp. %d-%d", src.StartPage, src.EndPage)
	}
	return fmt.Sprintf("[%s, %s]\n%s", src.FileName, pages, src.Text)
}

func (s *QAService) persist(ctx context.Context, chatID, question, answer string) {
	if s.chats == nil || s.chatsIndex == "" {
		return
	}
	now := time.Now().UTC().Format(time.RFC3339)
	record := models.ChatRecord{
		ChatID: chatID,
		Messages: []models.ChatRecordEntry{
			{Role: "user", Content: question, Timestamp: now},
			{Role: "assistant", Content: answer, Timestamp: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.chats.AppendChat(ctx, s.chatsIndex, record); err != nil {
		log.Printf("Failed to store chat %s: %v", chatID, err)
	}
}
