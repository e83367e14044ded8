package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	genai "google.golang.org/genai"

	"github.com/capitalize-ai/comment-consultant/pkg/metrics"
)

// GeminiClient is a thin wrapper around the official genai client.
type GeminiClient struct {
	cli *genai.Client
}

// NewGeminiClient creates a Gemini API client.
func NewGeminiClient(ctx context.Context, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: gemini API key is required", ErrUnavailable)
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiClient{cli: cli}, nil
}

// Name returns the provider name.
func (g *GeminiClient) Name() string { return "gemini" }

// Models returns known models.
func (g *GeminiClient) Models() []string {
	return []string{"gemini-2.0-flash", "gemini-1.5-flash"}
}

// Complete flattens the conversation into one prompt; system messages become
// the system instruction.
func (g *GeminiClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	model := req.Model
	if model == "" || strings.Contains(model, "/") {
		model = "gemini-2.0-flash"
	}

	var system, prompt strings.Builder
	for _, msg := range req.Messages {
		if msg.Role == "system" {
			system.WriteString(msg.Content)
			system.WriteString("\n")
			continue
		}
		prompt.WriteString("[")
		prompt.WriteString(msg.Role)
		prompt.WriteString("]\n")
		prompt.WriteString(msg.Content)
		prompt.WriteString("\n\n")
	}

	temperature := float32(req.Temperature)
	cfg := &genai.GenerateContentConfig{Temperature: &temperature}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.JSONMode {
		cfg.ResponseMIMEType = "application/json"
	}
	if system.Len() > 0 {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system.String()}}}
	}

	resp, err := g.cli.Models.GenerateContent(ctx, model,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: prompt.String()}}}},
		cfg,
	)
	if err != nil {
		metrics.RecordLLMRequest(g.Name(), model, "error", time.Since(start).Seconds(), 0, 0)
		return nil, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		metrics.RecordLLMRequest(g.Name(), model, "empty", time.Since(start).Seconds(), 0, 0)
		return nil, fmt.Errorf("gemini: empty response")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}

	out := &CompletionResponse{
		Content:    text.String(),
		Model:      model,
		StopReason: string(resp.Candidates[0].FinishReason),
		LatencyMs:  time.Since(start).Milliseconds(),
	}
	if resp.UsageMetadata != nil {
		out.TokensIn = int(resp.UsageMetadata.PromptTokenCount)
		out.TokensOut = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	metrics.RecordLLMRequest(g.Name(), model, "ok", time.Since(start).Seconds(), out.TokensIn, out.TokensOut)
	return out, nil
}
