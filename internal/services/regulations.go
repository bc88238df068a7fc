package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"elasticlm-backend/internal/elastic"
	"elasticlm-backend/internal/models"
)

const (
	roleSystem    = "system"
	roleUser      = "user"
	roleAssistant = "assistant"

	regulationsFallbackAnswer = "Sorry, I'm having trouble reaching the AI model right now. Please try again shortly."
	passageSeparator          = "\n --- \n"
)

// RegulationsChatService answers questions about city regulations from a
// semantic index, keeping a compacted history per conversation.
type RegulationsChatService struct {
	llm    LLM
	search DocumentSearcher
	index  string
	field  string
}

func NewRegulationsChatService(llm LLM, search DocumentSearcher, index, field string) *RegulationsChatService {
	return &RegulationsChatService{llm: llm, search: search, index: index, field: field}
}

// Reply answers question and folds the exchange into conv. A model failure
// yields a fallback answer; search failures are returned and leave conv
// untouched.
func (s *RegulationsChatService) Reply(ctx context.Context, conv *models.Conversation, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", &ValidationError{Message: "No message provided"}
	}

	hits, err := s.search.Search(ctx, s.index, elastic.RegulationsQuery(question, s.field))
	if err != nil {
		return "", upstreamError(err)
	}

	prompt := buildRegulationsPrompt(question, regulationsContext(hits.Hits, s.field), formatHistory(conv.Messages))
	answer, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		log.Printf("Regulations answer failed: %v", err)
		answer = regulationsFallbackAnswer
	}
	answer = strings.TrimSpace(answer)

	s.remember(ctx, conv, question, answer)
	return answer, nil
}

// remember appends the first exchange as is. From then on the history is
// replaced by a model summary, the previous exchange and the new one.
func (s *RegulationsChatService) remember(ctx context.Context, conv *models.Conversation, question, answer string) {
	turn := []models.ChatMessage{
		{Role: roleUser, Content: question},
		{Role: roleAssistant, Content: answer},
	}
	if len(conv.Messages) < 2 {
		conv.Messages = append(conv.Messages, turn...)
		return
	}

	previous := conv.Messages[len(conv.Messages)-2:]
	next := make([]models.ChatMessage, 0, 5)

	summary, err := s.llm.Complete(ctx, buildHistorySummaryPrompt(formatHistory(conv.Messages), question, answer))
	if err != nil {
		log.Printf("History summary failed, keeping recent turns: %v", err)
		if conv.Messages[0].Role == roleSystem {
			next = append(next, conv.Messages[0])
		}
	} else {
		next = append(next, models.ChatMessage{Role: roleSystem, Content: strings.TrimSpace(summary)})
	}

	next = append(next, previous...)
	conv.Messages = append(next, turn...)
}

func formatHistory(messages []models.ChatMessage) string {
	if len(messages) == 0 {
		return "(none)"
	}
	lines := make([]string, len(messages))
	for i, m := range messages {
		lines[i] = fmt.Sprintf("%s: %s", m.Role, m.Content)
	}
	return strings.Join(lines, "\n")
}

// regulationsContext numbers each hit's passages for citation. Highlighted
// passages are preferred over the stored field.
func regulationsContext(hits []json.RawMessage, field string) string {
	var b strings.Builder
	n := 0
	for _, raw := range hits {
		var hit struct {
			Source    map[string]json.RawMessage `json:"_source"`
			Highlight map[string][]string        `json:"highlight"`
		}
		if err := json.Unmarshal(raw, &hit); err != nil {
			continue
		}

		text := strings.Join(hit.Highlight[field], passageSeparator)
		if text == "" {
			text = fieldText(hit.Source[field])
		}
		if text == "" {
			continue
		}
		n++
		fmt.Fprintf(&b, "[%d] %s\n\n", n, text)
	}
	return strings.TrimSpace(b.String())
}

// fieldText reads a semantic_text value, stored either as a string or as an
// object carrying "text".
func fieldText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var obj struct {
		Text string `json:"text"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		return obj.Text
	}
	return ""
}
