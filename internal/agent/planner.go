package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/capitalize-ai/comment-consultant/internal/llm"
	"github.com/capitalize-ai/comment-consultant/internal/model"
	"github.com/capitalize-ai/comment-consultant/internal/taxonomy"
	"github.com/capitalize-ai/comment-consultant/pkg/logger"
)

// ErrEmptyPlan is returned when the reasoning service answers with nothing.
var ErrEmptyPlan = errors.New("reasoning service returned an empty reply")

// PlanInput is what a planner sees of a turn.
type PlanInput struct {
	Utterance  string
	VideoID    string
	AnalysisID int64
}

// Intent is the planner's decision: a direct answer or operations to run.
type Intent struct {
	Answer string
	Calls  []Call

	// messages is the conversation so far, replayed during composition.
	messages []llm.ChatMessage
}

// Direct reports whether the intent needs no operations.
func (i *Intent) Direct() bool {
	return len(i.Calls) == 0
}

// Planner delegates planning and composition to a reasoning service.
type Planner interface {
	// Plan decides which operations, if any, the utterance needs.
	Plan(ctx context.Context, in PlanInput) (*Intent, error)
	// Compose turns operation results into the final answer.
	Compose(ctx context.Context, in PlanInput, intent *Intent, results []Result) (string, error)
}

// PlannerOptions configures the reasoning requests.
type PlannerOptions struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// NewPlanner returns a native tool-calling planner when the client supports
// it and a JSON action-envelope planner otherwise.
func NewPlanner(client llm.Client, tax *taxonomy.Taxonomy, opts PlannerOptions, log *logger.Logger) Planner {
	if tc, ok := client.(llm.ToolCaller); ok {
		return NewToolPlanner(tc, tax, opts, log)
	}
	return NewEnvelopePlanner(client, tax, opts, log)
}

const consultantPrompt = `You are a YouTube comment consultant: a polite, tactful assistant that helps channel authors understand how viewers react to their videos.

Rules:
- Answer only from the data returned by the operations. Never invent comments, topics or numbers.
- When data is missing, say so honestly and suggest an action: analyse the video, import more comments, raise the limit.
- Reply in the user's language. Be brief and structured, quote real comments as evidence, use emoji sparingly.
- Do not give medical or financial advice and do not name individual commenters.
- After a video was analysed, answer follow-up questions about it without analysing again.
- A new YouTube link means a new video: run analyze_video for it.

Topics (use these ids as topic_id):
%s
Sentiments: positive, neutral, negative.`

func systemPrompt(tax *taxonomy.Taxonomy) string {
	return fmt.Sprintf(consultantPrompt, tax.Describe())
}

// userContent prefixes the utterance with the conversation's video.
func userContent(in PlanInput) string {
	if in.VideoID == "" {
		return in.Utterance
	}
	if _, explicit := ExtractVideoID(in.Utterance); explicit {
		return in.Utterance
	}
	return fmt.Sprintf("[Context: current video %s]\n\n%s", in.VideoID, in.Utterance)
}

// resultsPayload renders operation results for composition.
func resultsPayload(results []Result) string {
	type entry struct {
		Tool     string   `json:"tool"`
		Executed string   `json:"executed,omitempty"`
		Result   Envelope `json:"result"`
	}
	entries := make([]entry, 0, len(results))
	for _, r := range results {
		e := entry{Tool: r.Call.Tool, Result: r.Envelope}
		if r.Executed != r.Call.Tool {
			e.Executed = r.Executed
		}
		entries = append(entries, e)
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func envelopeJSON(env Envelope) string {
	b, err := json.Marshal(env)
	if err != nil {
		return `{"success":false,"error":"unencodable result"}`
	}
	return string(b)
}

// EnvelopePlanner works with any provider: the menu is part of the system
// prompt and the reply is a JSON action envelope.
type EnvelopePlanner struct {
	client   llm.Client
	taxonomy *taxonomy.Taxonomy
	opts     PlannerOptions
	logger   *logger.Logger
}

// NewEnvelopePlanner creates an EnvelopePlanner.
func NewEnvelopePlanner(client llm.Client, tax *taxonomy.Taxonomy, opts PlannerOptions, log *logger.Logger) *EnvelopePlanner {
	return &EnvelopePlanner{client: client, taxonomy: tax, opts: opts, logger: log.Component("planner")}
}

const envelopeInstruction = `

Operations you can request:
%s
Reply with exactly one JSON object and nothing else, in one of two forms:
{"action":"tool","calls":[{"tool":"<operation name>","arguments":{...}}]}
{"action":"final","answer":"<answer for the user>"}
Request operations whenever the answer depends on comment data.`

// Plan implements Planner.
func (p *EnvelopePlanner) Plan(ctx context.Context, in PlanInput) (*Intent, error) {
	messages := []llm.ChatMessage{
		{Role: string(model.RoleSystem), Content: systemPrompt(p.taxonomy) + fmt.Sprintf(envelopeInstruction, DescribeMenu())},
		{Role: string(model.RoleUser), Content: userContent(in)},
	}
	resp, err := p.client.Complete(ctx, &llm.CompletionRequest{
		Model:       p.opts.Model,
		Messages:    messages,
		MaxTokens:   p.opts.MaxTokens,
		Temperature: p.opts.Temperature,
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}

	intent, err := ParseEnvelope(resp.Content)
	if err != nil {
		return nil, err
	}
	intent.messages = append(messages, llm.ChatMessage{Role: string(model.RoleAssistant), Content: resp.Content})
	p.logger.Debug("plan decided", zap.Int("calls", len(intent.Calls)), zap.Bool("direct", intent.Direct()))
	return intent, nil
}

// Compose implements Planner.
func (p *EnvelopePlanner) Compose(ctx context.Context, in PlanInput, intent *Intent, results []Result) (string, error) {
	messages := append([]llm.ChatMessage{}, intent.messages...)
	messages = append(messages, llm.ChatMessage{
		Role: string(model.RoleUser),
		Content: "Operation results:\n" + resultsPayload(results) +
			"\n\nWrite the final answer for the user as plain text, not JSON. Use only these results.",
	})
	resp, err := p.client.Complete(ctx, &llm.CompletionRequest{
		Model:       p.opts.Model,
		Messages:    messages,
		MaxTokens:   p.opts.MaxTokens,
		Temperature: p.opts.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("compose: %w", err)
	}
	return strings.TrimSpace(resp.Content), nil
}

type actionEnvelope struct {
	Action string `json:"action"`
	Calls  []struct {
		Tool      string          `json:"tool"`
		Arguments json.RawMessage `json:"arguments"`
	} `json:"calls"`
	Answer string `json:"answer"`
}

// ParseEnvelope decodes an action envelope. A reply that is not JSON is
// taken as a direct free-text answer.
func ParseEnvelope(content string) (*Intent, error) {
	text := strings.TrimSpace(content)
	if text == "" {
		return nil, ErrEmptyPlan
	}
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}

	var env actionEnvelope
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		return &Intent{Answer: strings.TrimSpace(content)}, nil
	}

	intent := &Intent{Answer: strings.TrimSpace(env.Answer)}
	for i, c := range env.Calls {
		if c.Tool == "" {
			continue
		}
		intent.Calls = append(intent.Calls, Call{
			ID:        fmt.Sprintf("call_%d", i+1),
			Tool:      c.Tool,
			Arguments: c.Arguments,
		})
	}
	if intent.Direct() && intent.Answer == "" {
		return nil, fmt.Errorf("%w: action %q without calls or answer", ErrEmptyPlan, env.Action)
	}
	return intent, nil
}

// ToolPlanner uses the provider's native tool calling.
type ToolPlanner struct {
	client   llm.ToolCaller
	taxonomy *taxonomy.Taxonomy
	opts     PlannerOptions
	logger   *logger.Logger
}

// NewToolPlanner creates a ToolPlanner.
func NewToolPlanner(client llm.ToolCaller, tax *taxonomy.Taxonomy, opts PlannerOptions, log *logger.Logger) *ToolPlanner {
	return &ToolPlanner{client: client, taxonomy: tax, opts: opts, logger: log.Component("planner")}
}

// Plan implements Planner.
func (p *ToolPlanner) Plan(ctx context.Context, in PlanInput) (*Intent, error) {
	messages := []llm.ChatMessage{
		{Role: string(model.RoleSystem), Content: systemPrompt(p.taxonomy)},
		{Role: string(model.RoleUser), Content: userContent(in)},
	}
	resp, err := p.client.CompleteWithTools(ctx, &llm.CompletionRequest{
		Model:       p.opts.Model,
		Messages:    messages,
		MaxTokens:   p.opts.MaxTokens,
		Temperature: p.opts.Temperature,
	}, Definitions())
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}

	intent := &Intent{Answer: strings.TrimSpace(resp.Content)}
	assistant := llm.ChatMessage{Role: string(model.RoleAssistant), Content: resp.Content}
	for i, tc := range resp.ToolCalls {
		id := tc.ID
		if id == "" {
			id = fmt.Sprintf("call_%d", i+1)
		}
		intent.Calls = append(intent.Calls, Call{ID: id, Tool: tc.Name, Arguments: json.RawMessage(tc.Arguments)})
		assistant.ToolCalls = append(assistant.ToolCalls, llm.ToolCall{ID: id, Name: tc.Name, Arguments: tc.Arguments})
	}
	if intent.Direct() && intent.Answer == "" {
		return nil, ErrEmptyPlan
	}
	intent.messages = append(messages, assistant)
	p.logger.Debug("plan decided", zap.Int("calls", len(intent.Calls)), zap.Bool("direct", intent.Direct()))
	return intent, nil
}

// Compose implements Planner.
func (p *ToolPlanner) Compose(ctx context.Context, in PlanInput, intent *Intent, results []Result) (string, error) {
	messages := append([]llm.ChatMessage{}, intent.messages...)
	for _, r := range results {
		messages = append(messages, llm.ChatMessage{
			Role:       string(model.RoleTool),
			ToolCallID: r.Call.ID,
			Content:    envelopeJSON(r.Envelope),
		})
	}
	resp, err := p.client.Complete(ctx, &llm.CompletionRequest{
		Model:       p.opts.Model,
		Messages:    messages,
		MaxTokens:   p.opts.MaxTokens,
		Temperature: p.opts.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("compose: %w", err)
	}
	return strings.TrimSpace(resp.Content), nil
}
