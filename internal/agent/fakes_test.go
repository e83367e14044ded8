package agent

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/capitalize-ai/comment-consultant/internal/llm"
	"github.com/capitalize-ai/comment-consultant/internal/model"
	"github.com/capitalize-ai/comment-consultant/internal/taxonomy"
	"github.com/capitalize-ai/comment-consultant/pkg/logger"
)

const testVideo = "dQw4w9WgXcQ"

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// fakeSource is an in-memory DataSource.
type fakeSource struct {
	mu        sync.Mutex
	snapshots map[string]*model.Snapshot
	views     map[string][]model.CommentView
	comments  map[string][]model.Comment

	filters       []model.CommentFilter
	commentsCalls int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		snapshots: map[string]*model.Snapshot{},
		views:     map[string][]model.CommentView{},
		comments:  map[string][]model.Comment{},
	}
}

func (f *fakeSource) LatestAnalysis(_ context.Context, videoID string) (*model.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, ok := f.snapshots[videoID]
	if !ok {
		return nil, model.ErrNotFound
	}
	return snap, nil
}

func (f *fakeSource) FilteredComments(_ context.Context, videoID string, filter model.CommentFilter) ([]model.CommentView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, filter)
	if _, ok := f.snapshots[videoID]; !ok {
		return nil, model.ErrNotFound
	}
	out := []model.CommentView{}
	for _, v := range f.views[videoID] {
		if filter.Sentiment != "" && v.Sentiment != filter.Sentiment {
			continue
		}
		if filter.TopicID != "" && !contains(v.Topics, filter.TopicID) {
			continue
		}
		out = append(out, v)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (f *fakeSource) TopicQuotes(ctx context.Context, videoID, topicID string, limit int) ([]model.CommentView, error) {
	return f.FilteredComments(ctx, videoID, model.CommentFilter{TopicID: topicID, Limit: limit})
}

func (f *fakeSource) Comments(_ context.Context, videoID string) ([]model.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commentsCalls++
	return f.comments[videoID], nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// seedAnalysed stores a small analysed video.
func (f *fakeSource) seedAnalysed(videoID string) {
	f.snapshots[videoID] = &model.Snapshot{
		Analysis: model.Analysis{ID: 7, VideoID: videoID, CreatedAt: t0, Model: "m", TotalItems: 3, ClassifiedItems: 3},
		Topics: []model.TopicSummary{
			{TopicID: "praise", Count: 2, Share: 2.0 / 3, Quote: &model.Quote{CommentID: "a", Text: "great video", LikeCount: 10, PublishedAt: t0}},
			{TopicID: "av_quality", Count: 1, Share: 1.0 / 3},
		},
		Sentiment: []model.SentimentSummary{
			{Sentiment: model.SentimentPositive, Count: 2, Share: 2.0 / 3},
			{Sentiment: model.SentimentNeutral, Count: 0, Share: 0},
			{Sentiment: model.SentimentNegative, Count: 1, Share: 1.0 / 3},
		},
	}
	f.views[videoID] = []model.CommentView{
		{ID: "a", Text: "great video", LikeCount: 10, PublishedAt: t0, Topics: []string{"praise"}, Sentiment: model.SentimentPositive},
		{ID: "b", Text: "thanks a lot", LikeCount: 4, PublishedAt: t0, Topics: []string{"praise"}, Sentiment: model.SentimentPositive},
		{ID: "c", Text: "the sound is awful", LikeCount: 1, PublishedAt: t0, Topics: []string{"av_quality"}, Sentiment: model.SentimentNegative},
	}
	f.comments[videoID] = []model.Comment{
		{ID: "a", VideoID: videoID, Text: "great video", LikeCount: 10, PublishedAt: t0},
		{ID: "b", VideoID: videoID, Text: "thanks a lot", LikeCount: 4, PublishedAt: t0},
		{ID: "c", VideoID: videoID, Text: "the sound is awful", LikeCount: 1, PublishedAt: t0},
	}
}

// fakeAnalyzer records analysis requests.
type fakeAnalyzer struct {
	mu     sync.Mutex
	calls  []string
	report *model.AnalysisReport
	err    error
}

func (a *fakeAnalyzer) Analyze(_ context.Context, videoID string, req model.AnalyzeRequest) (*model.AnalysisReport, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, videoID)
	if a.err != nil {
		return nil, a.err
	}
	if a.report != nil {
		return a.report, nil
	}
	return &model.AnalysisReport{
		Snapshot: model.Snapshot{Analysis: model.Analysis{ID: 42, VideoID: videoID, CreatedAt: t0}},
		Stats:    model.AnalysisStats{TotalFetched: 10, UsedForAnalysis: 8, Classified: 8},
	}, nil
}

// scriptedPlanner returns canned intents and answers.
type scriptedPlanner struct {
	plan       func(in PlanInput) (*Intent, error)
	compose    func(results []Result) (string, error)
	planInputs []PlanInput
	composed   [][]Result
}

func (p *scriptedPlanner) Plan(_ context.Context, in PlanInput) (*Intent, error) {
	p.planInputs = append(p.planInputs, in)
	return p.plan(in)
}

func (p *scriptedPlanner) Compose(_ context.Context, _ PlanInput, _ *Intent, results []Result) (string, error) {
	p.composed = append(p.composed, results)
	if p.compose == nil {
		return "composed answer", nil
	}
	return p.compose(results)
}

func callsIntent(calls ...Call) func(PlanInput) (*Intent, error) {
	return func(PlanInput) (*Intent, error) {
		return &Intent{Calls: calls}, nil
	}
}

func call(tool string, args map[string]any) Call {
	raw, _ := json.Marshal(args)
	return Call{ID: tool, Tool: tool, Arguments: raw}
}

// fakeLLM is a scripted llm.Client; when tools is set it also implements
// native tool calling through fakeToolLLM.
type fakeLLM struct {
	mu        sync.Mutex
	replies   []*llm.CompletionResponse
	err       error
	requests  []*llm.CompletionRequest
	toolsSeen [][]llm.ToolDefinition
}

func (f *fakeLLM) Complete(_ context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return f.next(req, nil)
}

func (f *fakeLLM) next(req *llm.CompletionRequest, tools []llm.ToolDefinition) (*llm.CompletionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	f.toolsSeen = append(f.toolsSeen, tools)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.replies) == 0 {
		return &llm.CompletionResponse{}, nil
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r, nil
}

func (f *fakeLLM) Name() string     { return "fake" }
func (f *fakeLLM) Models() []string { return []string{"fake"} }

type fakeToolLLM struct {
	fakeLLM
}

func (f *fakeToolLLM) CompleteWithTools(_ context.Context, req *llm.CompletionRequest, tools []llm.ToolDefinition) (*llm.CompletionResponse, error) {
	return f.next(req, tools)
}

func newTestExecutor(src *fakeSource, an *fakeAnalyzer) *Executor {
	if an == nil {
		an = &fakeAnalyzer{}
	}
	return NewExecutor(src, an, taxonomy.Default(), logger.NewNop())
}
