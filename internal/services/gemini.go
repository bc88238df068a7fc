package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const qaSystemInstruction = "You are part of a knowledge Q&A system. Follow the user prompts."

// LLM is the text generation surface the pipelines depend on.
type LLM interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteJSON(ctx context.Context, prompt string) (string, error)
	Stream(ctx context.Context, prompt string, fn func(chunk string) error) error
}

// ToolExecutor runs one function call requested by the model.
type ToolExecutor func(ctx context.Context, name string, args map[string]interface{}) (map[string]interface{}, error)

// ErrMaxSteps is returned when the model keeps calling tools past the limit.
var ErrMaxSteps = errors.New("agent stopped after reaching the maximum number of steps")

type GeminiService struct {
	client    *genai.Client
	modelName string
	model     *genai.GenerativeModel
	jsonModel *genai.GenerativeModel
	rateChan  chan struct{} // Token bucket
}

func NewGeminiService(apiKey, modelName string, concurrentReqs int) (*GeminiService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if concurrentReqs <= 0 {
		concurrentReqs = 1
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.3)
	model.SetTopP(0.95)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(qaSystemInstruction)}}

	jsonModel := client.GenerativeModel(modelName)
	jsonModel.SetTemperature(0.1)
	jsonModel.ResponseMIMEType = "application/json"
	jsonModel.SystemInstruction = model.SystemInstruction

	// Token bucket for rate limiting
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiService{
		client:    client,
		modelName: modelName,
		model:     model,
		jsonModel: jsonModel,
		rateChan:  rateChan,
	}, nil
}

func (s *GeminiService) Close() {
	s.client.Close()
}

// acquireRate blocks until a rate slot is available
func (s *GeminiService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *GeminiService) releaseRate() {
	s.rateChan <- struct{}{}
}

func (s *GeminiService) generate(ctx context.Context, model *genai.GenerativeModel, prompt string) (string, error) {
	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	for i, cand := range resp.Candidates {
		if cand.FinishReason != genai.FinishReasonStop {
			log.Printf("WARNING: Gemini candidate %d stopped due to %s", i, cand.FinishReason)
		}
	}

	text := extractText(resp)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("Gemini returned empty text")
	}
	return text, nil
}

// Complete returns the model's text answer to prompt.
func (s *GeminiService) Complete(ctx context.Context, prompt string) (string, error) {
	return s.generate(ctx, s.model, prompt)
}

// CompleteJSON asks for a JSON response and strips any code fences.
func (s *GeminiService) CompleteJSON(ctx context.Context, prompt string) (string, error) {
	text, err := s.generate(ctx, s.jsonModel, prompt)
	if err != nil {
		return "", err
	}
	return stripCodeFences(text), nil
}

// Stream calls fn with each text fragment as the model produces it.
func (s *GeminiService) Stream(ctx context.Context, prompt string, fn func(chunk string) error) error {
	if err := s.acquireRate(ctx); err != nil {
		return err
	}
	defer s.releaseRate()

	iter := s.model.GenerateContentStream(ctx, genai.Text(prompt))
	for {
		resp, err := iter.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return fmt.Errorf("Gemini stream error: %w", err)
		}
		if text := extractText(resp); text != "" {
			if err := fn(text); err != nil {
				return err
			}
		}
	}
}

// RunTools drives a function-calling conversation until the model answers in
// text or maxSteps tool rounds have been spent.
func (s *GeminiService) RunTools(ctx context.Context, systemPrompt string, tools []*genai.FunctionDeclaration, prompt string, exec ToolExecutor, maxSteps int) (string, error) {
	model := s.client.GenerativeModel(s.modelName)
	model.SetTemperature(0.4)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}
	model.Tools = []*genai.Tool{{FunctionDeclarations: tools}}

	cs := model.StartChat()
	parts := []genai.Part{genai.Text(prompt)}

	for step := 0; step < maxSteps; step++ {
		resp, err := s.send(ctx, cs, parts)
		if err != nil {
			return "", err
		}

		calls := functionCalls(resp)
		if len(calls) == 0 {
			return strings.TrimSpace(extractText(resp)), nil
		}

		parts = make([]genai.Part, 0, len(calls))
		for _, call := range calls {
			log.Printf("Agent is using tool: %s", call.Name)
			result, err := exec(ctx, call.Name, call.Args)
			if err != nil {
				result = map[string]interface{}{"error": err.Error()}
			}
			parts = append(parts, genai.FunctionResponse{Name: call.Name, Response: result})
		}
	}

	return "", ErrMaxSteps
}

func (s *GeminiService) send(ctx context.Context, cs *genai.ChatSession, parts []genai.Part) (*genai.GenerateContentResponse, error) {
	if err := s.acquireRate(ctx); err != nil {
		return nil, err
	}
	defer s.releaseRate()

	resp, err := cs.SendMessage(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}
	return resp, nil
}

// TranscribeAudio uses Gemini File API to transcribe uploaded audio bytes.
func (s *GeminiService) TranscribeAudio(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	if len(audio) == 0 {
		return "", fmt.Errorf("audio payload is empty")
	}

	file, err := s.client.UploadFile(ctx, "", bytes.NewReader(audio), &genai.UploadFileOptions{
		DisplayName: "youtube-audio",
		MIMEType:    mimeType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload audio to Gemini: %w", err)
	}
	defer s.client.DeleteFile(context.Background(), file.Name)

	for i := 0; i < 20; i++ {
		current, getErr := s.client.GetFile(ctx, file.Name)
		if getErr != nil {
			return "", fmt.Errorf("failed to get uploaded file status: %w", getErr)
		}

		if current.State == genai.FileStateActive {
			file = current
			break
		}
		if current.State == genai.FileStateFailed {
			return "", fmt.Errorf("Gemini failed to process uploaded audio file")
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}

	if file.State != genai.FileStateActive {
		return "", fmt.Errorf("audio file did not become active in time")
	}

	prompt := "Transcribe the provided audio verbatim. Return plain text only, without markdown, headers, or explanations."

	model := s.client.GenerativeModel(s.modelName)
	resp, err := model.GenerateContent(ctx,
		genai.Text(prompt),
		genai.FileData{MIMEType: mimeType, URI: file.URI},
	)
	if err != nil {
		return "", fmt.Errorf("Gemini transcription error: %w", err)
	}

	text := strings.TrimSpace(extractText(resp))
	if text == "" {
		return "", fmt.Errorf("Gemini returned empty transcription")
	}

	return text, nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

func functionCalls(resp *genai.GenerateContentResponse) []genai.FunctionCall {
	var calls []genai.FunctionCall
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if fc, ok := part.(genai.FunctionCall); ok {
				calls = append(calls, fc)
			}
		}
	}
	return calls
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
