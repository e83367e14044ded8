package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/comment-consultant/internal/llm"
	"github.com/capitalize-ai/comment-consultant/internal/model"
	"github.com/capitalize-ai/comment-consultant/pkg/logger"
)

func newTestAgent(p Planner, src *fakeSource, an *fakeAnalyzer) *Agent {
	return New(p, newTestExecutor(src, an), time.Minute, logger.NewNop())
}

var fullPipeline = []State{
	StateAwaitingInput, StateResolvingContext, StatePlanning, StateExecuting, StateComposing, StateDone,
}

func TestTurnPositiveCommentsUsesFilteredRetrieval(t *testing.T) {
	src := newFakeSource()
	src.seedAnalysed(testVideo)
	utterance := "show me the positive comments"
	planner := &scriptedPlanner{plan: func(in PlanInput) (*Intent, error) {
		return &Intent{Calls: []Call{call(ToolSearchComments, map[string]any{"question": in.Utterance})}}, nil
	}}
	a := newTestAgent(planner, src, nil)

	res := a.Turn(context.Background(), model.ConversationState{UserID: "u1", VideoID: testVideo}, utterance)

	assert.Equal(t, "composed answer", res.Answer)
	assert.Equal(t, OutcomeAnswered, res.Outcome)
	assert.False(t, res.Degraded)
	assert.Equal(t, fullPipeline, res.States)
	assert.Equal(t, testVideo, planner.planInputs[0].VideoID)

	require.Len(t, res.Results, 1)
	assert.Equal(t, ToolGetFilteredComments, res.Results[0].Executed)
	require.Len(t, src.filters, 1)
	assert.Equal(t, model.SentimentPositive, src.filters[0].Sentiment)
	assert.Empty(t, src.filters[0].TopicID)
	assert.Zero(t, src.commentsCalls)
	assert.Equal(t, 1, res.Session.Turns)
}

func TestTurnWithoutAnalysisAsksToAnalyse(t *testing.T) {
	planner := &scriptedPlanner{plan: callsIntent(call(ToolGetAnalysisData, nil))}
	a := newTestAgent(planner, newFakeSource(), nil)

	res := a.Turn(context.Background(), model.ConversationState{UserID: "u1", VideoID: testVideo}, "what are the top topics?")

	assert.Equal(t, AnswerNeedAnalyze, res.Answer)
	assert.Equal(t, OutcomeNoAnalysis, res.Outcome)
	assert.Empty(t, planner.composed, "no composition over empty data")
	require.Len(t, res.Results, 1)
	assert.True(t, res.Results[0].IsNoAnalysis())
	assert.Equal(t, fullPipeline, res.States)
}

func TestTurnWithoutVideoAsksForOne(t *testing.T) {
	planner := &scriptedPlanner{plan: callsIntent(call(ToolGetAnalysisData, nil), call(ToolGetSentimentAnalysis, nil))}
	a := newTestAgent(planner, newFakeSource(), nil)

	res := a.Turn(context.Background(), model.ConversationState{UserID: "u1"}, "what do people think?")

	assert.Equal(t, AnswerNeedVideo, res.Answer)
	assert.Equal(t, OutcomeNoVideo, res.Outcome)
	assert.True(t, res.Degraded)
	assert.Empty(t, planner.composed)
}

func TestTurnAllOperationsFail(t *testing.T) {
	planner := &scriptedPlanner{plan: callsIntent(call(ToolGetTopicDetails, nil), call("bogus", nil))}
	a := newTestAgent(planner, newFakeSource(), nil)

	res := a.Turn(context.Background(), model.ConversationState{UserID: "u1", VideoID: testVideo}, "details")

	assert.Equal(t, AnswerFailed, res.Answer)
	assert.Equal(t, OutcomeFailed, res.Outcome)
}

func TestTurnPartialFailureIsComposed(t *testing.T) {
	src := newFakeSource()
	src.seedAnalysed(testVideo)
	planner := &scriptedPlanner{plan: callsIntent(call(ToolGetAnalysisData, nil), call(ToolGetTopicDetails, nil))}
	a := newTestAgent(planner, src, nil)

	res := a.Turn(context.Background(), model.ConversationState{UserID: "u1", VideoID: testVideo}, "overview")

	assert.Equal(t, "composed answer", res.Answer)
	assert.True(t, res.Degraded)
	require.Len(t, planner.composed, 1)
	require.Len(t, planner.composed[0], 2)
	assert.ErrorIs(t, planner.composed[0][1].Err, ErrMissingArgument)
	assert.Equal(t, int64(7), res.Session.AnalysisID)
}

func TestTurnDirectAnswer(t *testing.T) {
	planner := &scriptedPlanner{plan: func(PlanInput) (*Intent, error) {
		return &Intent{Answer: "Hi! Send me a video link."}, nil
	}}
	a := newTestAgent(planner, newFakeSource(), nil)

	res := a.Turn(context.Background(), model.ConversationState{UserID: "u1"}, "hello")

	assert.Equal(t, "Hi! Send me a video link.", res.Answer)
	assert.Equal(t, OutcomeDirect, res.Outcome)
	assert.Equal(t, []State{StateAwaitingInput, StateResolvingContext, StatePlanning, StateDone}, res.States)
}

func TestTurnVideoInUtteranceBecomesActive(t *testing.T) {
	planner := &scriptedPlanner{plan: func(in PlanInput) (*Intent, error) {
		return &Intent{Calls: []Call{call(ToolAnalyzeVideo, map[string]any{"url_or_id": in.VideoID})}}, nil
	}}
	an := &fakeAnalyzer{}
	a := newTestAgent(planner, newFakeSource(), an)

	prev := model.ConversationState{UserID: "u1", VideoID: "abcDEF12345", AnalysisID: 3}
	res := a.Turn(context.Background(), prev, "analyse https://youtu.be/dQw4w9WgXcQ")

	assert.Equal(t, testVideo, planner.planInputs[0].VideoID)
	assert.Equal(t, []string{testVideo}, an.calls)
	assert.Equal(t, testVideo, res.Session.VideoID)
	assert.Equal(t, int64(42), res.Session.AnalysisID)
}

func TestTurnInheritsVideo(t *testing.T) {
	planner := &scriptedPlanner{plan: func(PlanInput) (*Intent, error) {
		return &Intent{Answer: "ok"}, nil
	}}
	a := newTestAgent(planner, newFakeSource(), nil)

	res := a.Turn(context.Background(), model.ConversationState{UserID: "u1", VideoID: testVideo, AnalysisID: 9}, "and what else?")

	assert.Equal(t, testVideo, planner.planInputs[0].VideoID)
	assert.Equal(t, int64(9), planner.planInputs[0].AnalysisID)
	assert.Equal(t, testVideo, res.Session.VideoID)
}

func TestTurnFailures(t *testing.T) {
	tests := []struct {
		name       string
		planErr    error
		composeErr error
		want       string
		outcome    Outcome
	}{
		{"plan unavailable", fmt.Errorf("plan: %w", llm.ErrUnavailable), nil, AnswerUnavailable, OutcomeUnavailable},
		{"plan deadline", fmt.Errorf("plan: %w", context.DeadlineExceeded), nil, AnswerTimeout, OutcomeTimeout},
		{"plan other", errors.New("bad gateway"), nil, AnswerFailed, OutcomeFailed},
		{"compose unavailable", nil, fmt.Errorf("compose: %w", llm.ErrUnavailable), AnswerUnavailable, OutcomeUnavailable},
		{"compose other", nil, errors.New("boom"), AnswerFailed, OutcomeFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newFakeSource()
			src.seedAnalysed(testVideo)
			planner := &scriptedPlanner{
				plan: func(PlanInput) (*Intent, error) {
					if tt.planErr != nil {
						return nil, tt.planErr
					}
					return &Intent{Calls: []Call{call(ToolGetAnalysisData, nil)}}, nil
				},
				compose: func([]Result) (string, error) { return "", tt.composeErr },
			}
			a := newTestAgent(planner, src, nil)

			res := a.Turn(context.Background(), model.ConversationState{UserID: "u1", VideoID: testVideo}, "topics?")

			assert.Equal(t, tt.want, res.Answer)
			assert.Equal(t, tt.outcome, res.Outcome)
			assert.True(t, res.Degraded)
			assert.Equal(t, StateDone, res.States[len(res.States)-1])
		})
	}
}

func TestTurnUnavailableDuringAnalysis(t *testing.T) {
	planner := &scriptedPlanner{plan: callsIntent(call(ToolAnalyzeVideo, map[string]any{"url_or_id": testVideo}))}
	an := &fakeAnalyzer{err: fmt.Errorf("classify: %w", llm.ErrUnavailable)}
	a := newTestAgent(planner, newFakeSource(), an)

	res := a.Turn(context.Background(), model.ConversationState{UserID: "u1"}, "analyse "+testVideo)

	assert.Equal(t, AnswerUnavailable, res.Answer)
	assert.Empty(t, planner.composed)
}

func TestTurnEmptyComposition(t *testing.T) {
	src := newFakeSource()
	src.seedAnalysed(testVideo)
	planner := &scriptedPlanner{
		plan:    callsIntent(call(ToolGetAnalysisData, nil)),
		compose: func([]Result) (string, error) { return "", nil },
	}
	a := newTestAgent(planner, src, nil)

	res := a.Turn(context.Background(), model.ConversationState{UserID: "u1", VideoID: testVideo}, "topics?")

	assert.NotEmpty(t, res.Answer)
	assert.Equal(t, AnswerFailed, res.Answer)
}
