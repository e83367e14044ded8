// Package llm provides LLM client interfaces and implementations.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// CompletionRequest represents a completion request.
type CompletionRequest struct {
	Model       string
	Messages    []ChatMessage
	MaxTokens   int
	Temperature float64
	// JSONMode asks the provider to return a single JSON object.
	JSONMode bool
}

// ChatMessage represents a chat message for LLM.
type ChatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolDefinition declares a callable operation to providers with native tool calling.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToolCall is an operation invocation requested by the model.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// CompletionResponse represents a completion response.
type CompletionResponse struct {
	Content    string
	ToolCalls  []ToolCall
	Model      string
	TokensIn   int
	TokensOut  int
	StopReason string
	LatencyMs  int64
}

// Client is the interface for LLM providers.
type Client interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider name.
	Name() string

	// Models returns known models.
	Models() []string
}

// ToolCaller is implemented by providers that support native tool calling.
type ToolCaller interface {
	Client
	CompleteWithTools(ctx context.Context, req *CompletionRequest, tools []ToolDefinition) (*CompletionResponse, error)
}

// ErrUnavailable marks failures that retrying will not fix: missing or
// rejected credentials, exhausted quota.
var ErrUnavailable = errors.New("inference service unavailable")

// Provider is the type of LLM provider.
type Provider string

const (
	ProviderOpenAI     Provider = "openai"
	ProviderOpenRouter Provider = "openrouter"
	ProviderAnthropic  Provider = "anthropic"
	ProviderGemini     Provider = "gemini"
)

// Options configures NewClient.
type Options struct {
	APIKey  string
	BaseURL string
}

// NewClient creates a client for the given provider.
func NewClient(ctx context.Context, provider Provider, opts Options) (Client, error) {
	switch provider {
	case ProviderOpenAI, ProviderOpenRouter:
		return NewOpenAIClient(string(provider), opts.APIKey, opts.BaseURL)
	case ProviderAnthropic:
		return NewAnthropicClient(opts.APIKey)
	case ProviderGemini:
		return NewGeminiClient(ctx, opts.APIKey)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", provider)
	}
}

// unavailableStatus reports whether an HTTP status means the service cannot
// serve this deployment until someone intervenes.
func unavailableStatus(code int) bool {
	switch code {
	case 401, 402, 403, 429:
		return true
	}
	return false
}
