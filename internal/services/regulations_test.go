package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"elasticlm-backend/internal/models"
)

func regulationHit(highlights []string, content string) json.RawMessage {
	hit := map[string]interface{}{
		"_index":  "nyc_regulations",
		"_source": map[string]interface{}{"semantic_content": content},
	}
	if len(highlights) > 0 {
		hit["highlight"] = map[string]interface{}{"semantic_content": highlights}
	}
	raw, _ := json.Marshal(hit)
	return raw
}

func TestRegulationsChat_Reply(t *testing.T) {
	llm := &stubLLM{complete: func(prompt string) (string, error) {
		return " Notaries may charge $2 per signature [1]. ", nil
	}}
	searcher := &stubSearcher{hits: []*models.SearchHits{{
		Total: 2,
		Hits: []json.RawMessage{
			regulationHit([]string{"Fees are $2.", "Per signature."}, "ignored"),
			regulationHit(nil, "Commissions last four years."),
		},
	}}}
	svc := NewRegulationsChatService(llm, searcher, "nyc_regulations", "semantic_content")

	conv := &models.Conversation{}
	answer, err := svc.Reply(context.Background(), conv, "What can a notary charge?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != "Notaries may charge $2 per signature [1]." {
		t.Fatalf("unexpected answer %q", answer)
	}
	if searcher.indices[0] != "nyc_regulations" {
		t.Fatalf("searched %q", searcher.indices[0])
	}

	prompt := llm.prompts[0]
	if !strings.Contains(prompt, "[1] Fees are $2.\n --- \nPer signature.") {
		t.Fatalf("highlighted passages missing from prompt:\n%s", prompt)
	}
	if !strings.Contains(prompt, "[2] Commissions last four years.") {
		t.Fatalf("stored field missing from prompt:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Conversation History:\n(none)") {
		t.Fatalf("expected empty history in prompt:\n%s", prompt)
	}

	if len(conv.Messages) != 2 || conv.Messages[0].Content != "What can a notary charge?" || conv.Messages[1].Role != "assistant" {
		t.Fatalf("unexpected history %+v", conv.Messages)
	}
}

func TestRegulationsChat_CompactsHistory(t *testing.T) {
	llm := &stubLLM{complete: func(prompt string) (string, error) {
		if strings.HasPrefix(prompt, "You are a conversation summarizer") {
			return "SUMMARY: notary questions", nil
		}
		return "answer", nil
	}}
	svc := NewRegulationsChatService(llm, &stubSearcher{}, "nyc_regulations", "semantic_content")

	conv := &models.Conversation{}
	for _, q := range []string{"q1", "q2", "q3"} {
		if _, err := svc.Reply(context.Background(), conv, q); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if len(conv.Messages) != 5 {
		t.Fatalf("expected summary plus two exchanges, got %+v", conv.Messages)
	}
	if conv.Messages[0].Role != "system" || conv.Messages[0].Content != "SUMMARY: notary questions" {
		t.Fatalf("expected summary first, got %+v", conv.Messages[0])
	}
	if conv.Messages[1].Content != "q2" || conv.Messages[3].Content != "q3" {
		t.Fatalf("expected the two latest questions, got %+v", conv.Messages)
	}

	last := llm.prompts[len(llm.prompts)-1]
	if !strings.Contains(last, "New User Message:\nq3") || !strings.Contains(last, "system: SUMMARY: notary questions") {
		t.Fatalf("summary prompt should carry the old summary and new turn:\n%s", last)
	}
}

func TestRegulationsChat_ModelFailureFallsBack(t *testing.T) {
	llm := &stubLLM{complete: func(prompt string) (string, error) {
		return "", errors.New("quota exceeded")
	}}
	svc := NewRegulationsChatService(llm, &stubSearcher{}, "nyc_regulations", "semantic_content")

	conv := &models.Conversation{Messages: []models.ChatMessage{
		{Role: "system", Content: "older summary"},
		{Role: "user", Content: "q1"},
		{Role: "assistant", Content: "a1"},
	}}
	answer, err := svc.Reply(context.Background(), conv, "q2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != regulationsFallbackAnswer {
		t.Fatalf("unexpected answer %q", answer)
	}
	if len(conv.Messages) != 5 || conv.Messages[0].Content != "older summary" || conv.Messages[4].Content != regulationsFallbackAnswer {
		t.Fatalf("failed summary should keep the previous one, got %+v", conv.Messages)
	}
}

func TestRegulationsChat_SearchFailure(t *testing.T) {
	svc := NewRegulationsChatService(&stubLLM{}, &stubSearcher{err: errors.New("connection refused")}, "nyc_regulations", "semantic_content")

	conv := &models.Conversation{}
	if _, err := svc.Reply(context.Background(), conv, "q1"); err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("expected search error, got %v", err)
	}
	if len(conv.Messages) != 0 {
		t.Fatalf("history should be untouched, got %+v", conv.Messages)
	}

	var vErr *ValidationError
	if _, err := svc.Reply(context.Background(), conv, "  "); !errors.As(err, &vErr) {
		t.Fatalf("expected validation error for blank message, got %v", err)
	}
}
