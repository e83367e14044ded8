package agent

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/comment-consultant/internal/llm"
	"github.com/capitalize-ai/comment-consultant/internal/model"
	"github.com/capitalize-ai/comment-consultant/internal/taxonomy"
	"github.com/capitalize-ai/comment-consultant/pkg/logger"
)

func TestParseEnvelope(t *testing.T) {
	t.Run("tool calls", func(t *testing.T) {
		intent, err := ParseEnvelope(`{"action":"tool","calls":[{"tool":"get_analysis_data","arguments":{}},{"tool":"search_comments","arguments":{"question":"why"}}]}`)
		require.NoError(t, err)
		require.Len(t, intent.Calls, 2)
		assert.Equal(t, "call_1", intent.Calls[0].ID)
		assert.Equal(t, ToolSearchComments, intent.Calls[1].Tool)
		assert.JSONEq(t, `{"question":"why"}`, string(intent.Calls[1].Arguments))
	})

	t.Run("final answer", func(t *testing.T) {
		intent, err := ParseEnvelope(`{"action":"final","answer":"Hello!"}`)
		require.NoError(t, err)
		assert.True(t, intent.Direct())
		assert.Equal(t, "Hello!", intent.Answer)
	})

	t.Run("fenced", func(t *testing.T) {
		intent, err := ParseEnvelope("```json\n{\"action\":\"final\",\"answer\":\"ok\"}\n```")
		require.NoError(t, err)
		assert.Equal(t, "ok", intent.Answer)
	})

	t.Run("free text is a direct answer", func(t *testing.T) {
		intent, err := ParseEnvelope("Sure, send me a link.")
		require.NoError(t, err)
		assert.Equal(t, "Sure, send me a link.", intent.Answer)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := ParseEnvelope("  ")
		assert.ErrorIs(t, err, ErrEmptyPlan)
	})

	t.Run("object without calls or answer", func(t *testing.T) {
		_, err := ParseEnvelope(`{"action":"tool","calls":[]}`)
		assert.ErrorIs(t, err, ErrEmptyPlan)
	})
}

func TestNewPlannerPicksNativeTools(t *testing.T) {
	tax := taxonomy.Default()
	log := logger.NewNop()

	_, native := NewPlanner(&fakeToolLLM{}, tax, PlannerOptions{}, log).(*ToolPlanner)
	assert.True(t, native)

	_, envelope := NewPlanner(&fakeLLM{}, tax, PlannerOptions{}, log).(*EnvelopePlanner)
	assert.True(t, envelope)
}

func TestEnvelopePlannerRoundTrip(t *testing.T) {
	client := &fakeLLM{replies: []*llm.CompletionResponse{
		{Content: `{"action":"tool","calls":[{"tool":"get_analysis_data","arguments":{}}]}`},
		{Content: "  Please analyse the video first.  "},
	}}
	p := NewEnvelopePlanner(client, taxonomy.Default(), PlannerOptions{Model: "m"}, logger.NewNop())
	in := PlanInput{Utterance: "what are the top topics?", VideoID: testVideo}

	intent, err := p.Plan(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, intent.Calls, 1)

	first := client.requests[0]
	assert.True(t, first.JSONMode)
	assert.Contains(t, first.Messages[0].Content, "get_sentiment_analysis")
	assert.Contains(t, first.Messages[1].Content, "current video "+testVideo)

	results := []Result{{
		Call:     intent.Calls[0],
		Executed: ToolGetAnalysisData,
		Envelope: Envelope{Success: true, Data: NoAnalysisData{Error: NoAnalysis, VideoID: testVideo}},
	}}
	answer, err := p.Compose(context.Background(), in, intent, results)
	require.NoError(t, err)
	assert.Equal(t, "Please analyse the video first.", answer)

	second := client.requests[1]
	assert.False(t, second.JSONMode)
	last := second.Messages[len(second.Messages)-1]
	assert.Contains(t, last.Content, `"error":"no analysis"`)
	assert.Equal(t, string(model.RoleAssistant), second.Messages[len(second.Messages)-2].Role)
}

func TestToolPlannerRoundTrip(t *testing.T) {
	client := &fakeToolLLM{fakeLLM{replies: []*llm.CompletionResponse{
		{ToolCalls: []llm.ToolCall{{ID: "tc-1", Name: ToolSearchComments, Arguments: `{"question":"price"}`}}},
		{Content: "People find it expensive."},
	}}}
	p := NewToolPlanner(client, taxonomy.Default(), PlannerOptions{Model: "m"}, logger.NewNop())
	in := PlanInput{Utterance: "what about the price?", VideoID: testVideo}

	intent, err := p.Plan(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, intent.Calls, 1)
	assert.Equal(t, "tc-1", intent.Calls[0].ID)
	assert.Len(t, client.toolsSeen[0], 7)

	answer, err := p.Compose(context.Background(), in, intent, []Result{{
		Call:     intent.Calls[0],
		Executed: ToolSearchComments,
		Envelope: Envelope{Success: true, Data: map[string]any{"comments": []any{}}},
	}})
	require.NoError(t, err)
	assert.Equal(t, "People find it expensive.", answer)

	msgs := client.requests[1].Messages
	toolMsg := msgs[len(msgs)-1]
	assert.Equal(t, string(model.RoleTool), toolMsg.Role)
	assert.Equal(t, "tc-1", toolMsg.ToolCallID)
	var env map[string]any
	require.NoError(t, json.Unmarshal([]byte(toolMsg.Content), &env))
	assert.Equal(t, true, env["success"])

	assistant := msgs[len(msgs)-2]
	require.Len(t, assistant.ToolCalls, 1)
	assert.Equal(t, ToolSearchComments, assistant.ToolCalls[0].Name)
	assert.Nil(t, client.toolsSeen[1])
}

func TestToolPlannerEmptyReply(t *testing.T) {
	client := &fakeToolLLM{fakeLLM{replies: []*llm.CompletionResponse{{}}}}
	p := NewToolPlanner(client, taxonomy.Default(), PlannerOptions{}, logger.NewNop())

	_, err := p.Plan(context.Background(), PlanInput{Utterance: "hi"})
	assert.ErrorIs(t, err, ErrEmptyPlan)
}

func TestUserContentSkipsContextForExplicitVideo(t *testing.T) {
	assert.Equal(t, "hi", userContent(PlanInput{Utterance: "hi"}))
	assert.Contains(t, userContent(PlanInput{Utterance: "hi", VideoID: testVideo}), testVideo)
	explicit := "look at https://youtu.be/abcDEF12345"
	assert.Equal(t, explicit, userContent(PlanInput{Utterance: explicit, VideoID: testVideo}))
}
