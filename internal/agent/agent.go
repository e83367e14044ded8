// Package agent answers user turns about analysed videos: it resolves the
// video in context, asks a reasoning service for a plan, runs the requested
// operations and has the reasoning service compose the answer.
package agent

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/capitalize-ai/comment-consultant/internal/llm"
	"github.com/capitalize-ai/comment-consultant/internal/model"
	"github.com/capitalize-ai/comment-consultant/pkg/logger"
	"github.com/capitalize-ai/comment-consultant/pkg/metrics"
	"github.com/capitalize-ai/comment-consultant/pkg/tracing"
)

// State is a step of the per-turn pipeline.
type State string

const (
	StateAwaitingInput    State = "awaiting-input"
	StateResolvingContext State = "resolving-context"
	StatePlanning         State = "planning"
	StateExecuting        State = "executing"
	StateComposing        State = "composing"
	StateDone             State = "done"
)

// Fixed answers for turns that cannot be composed from data.
const (
	AnswerNeedVideo   = "Please send a YouTube link or a video id so I know which video to look at."
	AnswerNeedAnalyze = "This video has not been analysed yet. Ask me to analyse it first and I will classify its comments."
	AnswerFailed      = "Sorry, I could not get any data to answer that. Please try again in a moment."
	AnswerUnavailable = "The analysis service is unavailable right now. Please try again later."
	AnswerTimeout     = "Sorry, that took too long. Please try again."
)

// Outcome labels a finished turn for metrics and callers.
type Outcome string

const (
	OutcomeDirect      Outcome = "direct"
	OutcomeAnswered    Outcome = "answered"
	OutcomeNoVideo     Outcome = "no_video"
	OutcomeNoAnalysis  Outcome = "no_analysis"
	OutcomeFailed      Outcome = "failed"
	OutcomeUnavailable Outcome = "unavailable"
	OutcomeTimeout     Outcome = "timeout"
)

// TurnResult is everything a turn produced. Answer is never empty.
type TurnResult struct {
	Answer   string
	Session  model.ConversationState
	Intent   *Intent
	Results  []Result
	States   []State
	Outcome  Outcome
	Degraded bool
}

// Agent runs the turn pipeline.
type Agent struct {
	planner  Planner
	executor *Executor
	timeout  time.Duration
	logger   *logger.Logger
}

// New creates an agent. A zero timeout means no per-turn deadline.
func New(planner Planner, executor *Executor, timeout time.Duration, log *logger.Logger) *Agent {
	return &Agent{
		planner:  planner,
		executor: executor,
		timeout:  timeout,
		logger:   log.Component("agent"),
	}
}

type turn struct {
	result *TurnResult
}

func (t *turn) enter(s State) {
	t.result.States = append(t.result.States, s)
}

// Turn processes one utterance against the given session and returns the
// updated session inside the result. The caller owns persisting it.
func (a *Agent) Turn(ctx context.Context, session model.ConversationState, utterance string) *TurnResult {
	start := time.Now()
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	ctx, span := tracing.Tracer().Start(ctx, "agent.Turn")
	defer span.End()

	t := &turn{result: &TurnResult{Session: session}}
	t.enter(StateAwaitingInput)
	a.run(ctx, t, utterance)
	t.enter(StateDone)

	res := t.result
	res.Session.Turns++
	span.SetAttributes(
		attribute.String("outcome", string(res.Outcome)),
		attribute.Int("calls", len(res.Results)),
	)
	metrics.RecordTurn(string(res.Outcome), time.Since(start).Seconds())
	a.logger.Info("turn finished",
		zap.String("user_id", session.UserID),
		zap.Bool("has_video", res.Session.HasVideo()),
		zap.String("video_id", res.Session.VideoID),
		zap.String("outcome", string(res.Outcome)),
		zap.Int("calls", len(res.Results)),
		zap.Duration("duration", time.Since(start)),
	)
	return res
}

func (a *Agent) run(ctx context.Context, t *turn, utterance string) {
	res := t.result

	t.enter(StateResolvingContext)
	if videoID, ok := ExtractVideoID(utterance); ok && videoID != res.Session.VideoID {
		res.Session.VideoID = videoID
		res.Session.AnalysisID = 0
	}
	in := PlanInput{Utterance: utterance, VideoID: res.Session.VideoID, AnalysisID: res.Session.AnalysisID}

	t.enter(StatePlanning)
	intent, err := a.planner.Plan(ctx, in)
	if err != nil {
		a.fail(t, err, "planning failed")
		return
	}
	res.Intent = intent
	if intent.Direct() {
		res.Answer = intent.Answer
		res.Outcome = OutcomeDirect
		return
	}

	t.enter(StateExecuting)
	res.Results = a.executor.Execute(ctx, intent.Calls, TurnContext{VideoID: in.VideoID, Utterance: utterance})
	a.remember(res)

	t.enter(StateComposing)
	if answer, outcome, ok := shortcut(res.Results); ok {
		res.Answer = answer
		res.Outcome = outcome
		res.Degraded = outcome != OutcomeNoAnalysis
		return
	}

	answer, err := a.planner.Compose(ctx, in, intent, res.Results)
	if err != nil {
		a.fail(t, err, "composition failed")
		return
	}
	if answer == "" {
		res.Answer = AnswerFailed
		res.Outcome = OutcomeFailed
		res.Degraded = true
		return
	}
	res.Answer = answer
	res.Outcome = OutcomeAnswered
	for _, r := range res.Results {
		if !r.Envelope.Success {
			res.Degraded = true
		}
	}
}

// remember moves the session to the video and analysis the operations used.
func (a *Agent) remember(res *TurnResult) {
	for _, r := range res.Results {
		if !r.Envelope.Success || r.VideoID == "" {
			continue
		}
		if r.VideoID != res.Session.VideoID {
			res.Session.VideoID = r.VideoID
			res.Session.AnalysisID = 0
		}
		if r.AnalysisID != 0 {
			res.Session.AnalysisID = r.AnalysisID
		}
	}
}

// shortcut returns a fixed answer when the results leave nothing to compose:
// the service is unavailable, every operation failed, or every successful
// operation found no analysis.
func shortcut(results []Result) (string, Outcome, bool) {
	var succeeded, noAnalysis, noVideo, failed int
	for _, r := range results {
		switch {
		case errors.Is(r.Err, llm.ErrUnavailable):
			return AnswerUnavailable, OutcomeUnavailable, true
		case r.IsNoAnalysis():
			succeeded++
			noAnalysis++
		case r.Envelope.Success:
			succeeded++
		case errors.Is(r.Err, ErrNoVideo):
			failed++
			noVideo++
		default:
			failed++
		}
	}

	switch {
	case succeeded > 0 && noAnalysis == succeeded:
		return AnswerNeedAnalyze, OutcomeNoAnalysis, true
	case succeeded == 0 && failed > 0 && noVideo == failed:
		return AnswerNeedVideo, OutcomeNoVideo, true
	case succeeded == 0:
		return AnswerFailed, OutcomeFailed, true
	}
	return "", "", false
}

func (a *Agent) fail(t *turn, err error, msg string) {
	res := t.result
	res.Degraded = true
	switch {
	case errors.Is(err, llm.ErrUnavailable):
		res.Answer, res.Outcome = AnswerUnavailable, OutcomeUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		res.Answer, res.Outcome = AnswerTimeout, OutcomeTimeout
	default:
		res.Answer, res.Outcome = AnswerFailed, OutcomeFailed
	}
	a.logger.Warn(msg, zap.String("outcome", string(res.Outcome)), zap.Error(err))
}
