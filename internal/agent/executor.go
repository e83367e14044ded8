package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/capitalize-ai/comment-consultant/internal/llm"
	"github.com/capitalize-ai/comment-consultant/internal/model"
	"github.com/capitalize-ai/comment-consultant/internal/taxonomy"
	"github.com/capitalize-ai/comment-consultant/pkg/logger"
	"github.com/capitalize-ai/comment-consultant/pkg/metrics"
	"github.com/capitalize-ai/comment-consultant/pkg/tracing"
)

// NoAnalysis is the error text returned inside a successful envelope when
// the video has no stored analysis.
const NoAnalysis = "no analysis"

const (
	defaultQuoteLimit    = 3
	defaultFilteredLimit = 10
	defaultSearchLimit   = 5
	maxResultLimit       = 50
	sentimentExamples    = 3
)

// DataSource is the read side of the result store used by the operations.
type DataSource interface {
	LatestAnalysis(ctx context.Context, videoID string) (*model.Snapshot, error)
	FilteredComments(ctx context.Context, videoID string, f model.CommentFilter) ([]model.CommentView, error)
	TopicQuotes(ctx context.Context, videoID, topicID string, limit int) ([]model.CommentView, error)
	Comments(ctx context.Context, videoID string) ([]model.Comment, error)
}

// Analyzer runs a classification over a video's stored comments.
type Analyzer interface {
	Analyze(ctx context.Context, videoID string, req model.AnalyzeRequest) (*model.AnalysisReport, error)
}

// Call is one operation invocation requested by the planner.
type Call struct {
	ID        string          `json:"id,omitempty"`
	Tool      string          `json:"tool"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Envelope is the response shape of every operation.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NoAnalysisData is the payload of a read operation on a video without analysis.
type NoAnalysisData struct {
	Error   string `json:"error"`
	VideoID string `json:"video_id"`
}

// Result is the outcome of one Call.
type Result struct {
	Call Call
	// Executed names the operation that actually ran. It differs from
	// Call.Tool when a search was answered by filtered retrieval.
	Executed   string
	VideoID    string
	AnalysisID int64
	Envelope   Envelope
	// Err is the typed failure behind an unsuccessful envelope.
	Err error
}

// IsNoAnalysis reports whether the result is a successful "no analysis" payload.
func (r Result) IsNoAnalysis() bool {
	_, ok := r.Envelope.Data.(NoAnalysisData)
	return r.Envelope.Success && ok
}

// TurnContext is what the executor knows about the turn.
type TurnContext struct {
	VideoID   string
	Utterance string
}

// Executor runs operations against the result store and the analyzer.
type Executor struct {
	source   DataSource
	analyzer Analyzer
	taxonomy *taxonomy.Taxonomy
	logger   *logger.Logger
}

// NewExecutor creates an executor.
func NewExecutor(source DataSource, analyzer Analyzer, tax *taxonomy.Taxonomy, log *logger.Logger) *Executor {
	return &Executor{
		source:   source,
		analyzer: analyzer,
		taxonomy: tax,
		logger:   log.Component("executor"),
	}
}

// Execute runs every call concurrently and returns the results in call
// order once all of them have finished.
func (e *Executor) Execute(ctx context.Context, calls []Call, tc TurnContext) []Result {
	results := make([]Result, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call Call) {
			defer wg.Done()
			results[i] = e.run(ctx, call, tc)
		}(i, call)
	}
	wg.Wait()
	return results
}

func (e *Executor) run(ctx context.Context, call Call, tc TurnContext) Result {
	ctx, span := tracing.Tracer().Start(ctx, "agent.tool")
	defer span.End()
	span.SetAttributes(attribute.String("tool", call.Tool))

	start := time.Now()
	res := Result{Call: call, Executed: call.Tool}

	data, err := e.dispatch(ctx, call, tc, &res)
	switch {
	case err == nil:
		res.Envelope = Envelope{Success: true, Data: data}
	case errors.Is(err, model.ErrNotFound) && call.Tool != ToolAnalyzeVideo:
		res.Envelope = Envelope{Success: true, Data: NoAnalysisData{Error: NoAnalysis, VideoID: res.VideoID}}
	default:
		res.Err = err
		res.Envelope = Envelope{Success: false, Error: errorText(err)}
	}

	status := "ok"
	switch {
	case res.IsNoAnalysis():
		status = "no_analysis"
	case !res.Envelope.Success:
		status = "error"
		span.SetStatus(codes.Error, err.Error())
	}
	metrics.RecordToolCall(call.Tool, status)

	log := e.logger.With(
		zap.String("tool", call.Tool),
		zap.String("executed", res.Executed),
		zap.String("video_id", res.VideoID),
		zap.String("status", status),
		zap.Duration("duration", time.Since(start)),
	)
	if res.Err != nil {
		log.Warn("operation failed", zap.Error(res.Err))
	} else {
		log.Info("operation completed")
	}
	return res
}

func (e *Executor) dispatch(ctx context.Context, call Call, tc TurnContext, res *Result) (any, error) {
	tool, ok := LookupTool(call.Tool)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, call.Tool)
	}

	switch tool.Name {
	case ToolAnalyzeVideo:
		var args AnalyzeVideoArgs
		if err := decodeArgs(tool, call.Arguments, &args); err != nil {
			return nil, err
		}
		return e.analyzeVideo(ctx, args, res)

	case ToolGetAnalysisData, ToolAnalyzeCategories, ToolGetSentimentAnalysis:
		var args VideoArgs
		if err := decodeArgs(tool, call.Arguments, &args); err != nil {
			return nil, err
		}
		videoID, err := resolveVideo(args.VideoID, tc)
		if err != nil {
			return nil, err
		}
		res.VideoID = videoID
		snap, err := e.source.LatestAnalysis(ctx, videoID)
		if err != nil {
			return nil, err
		}
		res.AnalysisID = snap.Analysis.ID
		switch tool.Name {
		case ToolAnalyzeCategories:
			return e.categories(snap), nil
		case ToolGetSentimentAnalysis:
			return e.sentimentAnalysis(ctx, snap)
		default:
			return e.analysisData(snap), nil
		}

	case ToolGetTopicDetails:
		var args TopicDetailsArgs
		if err := decodeArgs(tool, call.Arguments, &args); err != nil {
			return nil, err
		}
		videoID, err := resolveVideo(args.VideoID, tc)
		if err != nil {
			return nil, err
		}
		res.VideoID = videoID
		return e.topicDetails(ctx, args, res)

	case ToolGetFilteredComments:
		var args FilteredCommentsArgs
		if err := decodeArgs(tool, call.Arguments, &args); err != nil {
			return nil, err
		}
		videoID, err := resolveVideo(args.VideoID, tc)
		if err != nil {
			return nil, err
		}
		res.VideoID = videoID
		return e.filteredComments(ctx, videoID, args)

	case ToolSearchComments:
		var args SearchArgs
		if err := decodeArgs(tool, call.Arguments, &args); err != nil {
			return nil, err
		}
		videoID, err := resolveVideo(args.VideoID, tc)
		if err != nil {
			return nil, err
		}
		res.VideoID = videoID
		return e.search(ctx, videoID, args, res)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownTool, call.Tool)
}

// resolveVideo picks the explicit argument over the conversation's video.
func resolveVideo(arg string, tc TurnContext) (string, error) {
	if arg != "" {
		id, ok := ParseVideoRef(arg)
		if !ok {
			return "", fmt.Errorf("%w: %q is not a video id or URL", ErrInvalidArgument, arg)
		}
		return id, nil
	}
	if tc.VideoID != "" {
		return tc.VideoID, nil
	}
	return "", ErrNoVideo
}

func (e *Executor) analyzeVideo(ctx context.Context, args AnalyzeVideoArgs, res *Result) (any, error) {
	videoID, ok := ParseVideoRef(args.URLOrID)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a video id or URL", ErrInvalidArgument, args.URLOrID)
	}
	res.VideoID = videoID
	if args.Limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", ErrInvalidArgument)
	}

	report, err := e.analyzer.Analyze(ctx, videoID, model.AnalyzeRequest{Limit: args.Limit, Force: args.Force})
	if err != nil {
		return nil, err
	}
	res.AnalysisID = report.Analysis.ID

	data := e.analysisData(&report.Snapshot)
	data.Stats = &report.Stats
	data.FromCache = report.FromCache
	return data, nil
}

type topicView struct {
	TopicID string       `json:"topic_id"`
	Name    string       `json:"name"`
	Count   int          `json:"count"`
	Share   float64      `json:"share"`
	Quote   *model.Quote `json:"top_quote,omitempty"`
}

type sentimentView struct {
	Sentiment model.Sentiment `json:"sentiment"`
	Name      string          `json:"name"`
	Emoji     string          `json:"emoji"`
	Count     int             `json:"count"`
	Share     float64         `json:"share"`
}

type analysisView struct {
	VideoID         string               `json:"video_id"`
	AnalysisID      int64                `json:"analysis_id"`
	CreatedAt       time.Time            `json:"created_at"`
	Model           string               `json:"model"`
	TotalItems      int                  `json:"total_items"`
	ClassifiedItems int                  `json:"classified_items"`
	Topics          []topicView          `json:"topics"`
	Sentiment       []sentimentView      `json:"sentiment"`
	Stats           *model.AnalysisStats `json:"stats,omitempty"`
	FromCache       bool                 `json:"from_cache,omitempty"`
}

func (e *Executor) analysisData(snap *model.Snapshot) analysisView {
	return analysisView{
		VideoID:         snap.Analysis.VideoID,
		AnalysisID:      snap.Analysis.ID,
		CreatedAt:       snap.Analysis.CreatedAt,
		Model:           snap.Analysis.Model,
		TotalItems:      snap.Analysis.TotalItems,
		ClassifiedItems: snap.Analysis.ClassifiedItems,
		Topics:          e.topicViews(snap.Topics),
		Sentiment:       sentimentViews(snap.Sentiment),
	}
}

func (e *Executor) topicViews(rows []model.TopicSummary) []topicView {
	out := make([]topicView, 0, len(rows))
	for _, t := range rows {
		out = append(out, topicView{
			TopicID: t.TopicID,
			Name:    e.taxonomy.Name(t.TopicID),
			Count:   t.Count,
			Share:   t.Share,
			Quote:   t.Quote,
		})
	}
	return out
}

func sentimentViews(rows []model.SentimentSummary) []sentimentView {
	out := make([]sentimentView, 0, len(rows))
	for _, s := range rows {
		out = append(out, sentimentView{
			Sentiment: s.Sentiment,
			Name:      taxonomy.SentimentName(s.Sentiment),
			Emoji:     taxonomy.SentimentEmoji(s.Sentiment),
			Count:     s.Count,
			Share:     s.Share,
		})
	}
	return out
}

type categoryView struct {
	TopicID string  `json:"topic_id"`
	Name    string  `json:"name"`
	Count   int     `json:"count"`
	Share   float64 `json:"share"`
	Insight string  `json:"insight"`
	Example string  `json:"example,omitempty"`
}

func (e *Executor) categories(snap *model.Snapshot) any {
	categories := make([]categoryView, 0, len(snap.Topics))
	for _, t := range snap.Topics {
		name := e.taxonomy.Name(t.TopicID)
		c := categoryView{
			TopicID: t.TopicID,
			Name:    name,
			Count:   t.Count,
			Share:   t.Share,
			Insight: CategoryInsight(t.TopicID, name, t.Share),
		}
		if t.Quote != nil {
			c.Example = t.Quote.Text
		}
		categories = append(categories, c)
	}
	return struct {
		VideoID       string          `json:"video_id"`
		TotalComments int             `json:"total_comments"`
		Categories    []categoryView  `json:"categories"`
		Sentiment     []sentimentView `json:"sentiment"`
	}{
		VideoID:       snap.Analysis.VideoID,
		TotalComments: snap.Analysis.ClassifiedItems,
		Categories:    categories,
		Sentiment:     sentimentViews(snap.Sentiment),
	}
}

func (e *Executor) sentimentAnalysis(ctx context.Context, snap *model.Snapshot) (any, error) {
	examples := make(map[model.Sentiment][]model.CommentView)
	for _, row := range snap.Sentiment {
		if row.Count == 0 {
			continue
		}
		comments, err := e.source.FilteredComments(ctx, snap.Analysis.VideoID, model.CommentFilter{
			Sentiment: row.Sentiment,
			Limit:     sentimentExamples,
		})
		if err != nil {
			return nil, fmt.Errorf("load %s examples: %w", row.Sentiment, err)
		}
		examples[row.Sentiment] = comments
	}
	return struct {
		VideoID       string                                `json:"video_id"`
		TotalComments int                                   `json:"total_comments"`
		Distribution  []sentimentView                       `json:"sentiment_distribution"`
		Examples      map[model.Sentiment][]model.CommentView `json:"examples"`
	}{
		VideoID:       snap.Analysis.VideoID,
		TotalComments: snap.Analysis.ClassifiedItems,
		Distribution:  sentimentViews(snap.Sentiment),
		Examples:      examples,
	}, nil
}

func (e *Executor) topicDetails(ctx context.Context, args TopicDetailsArgs, res *Result) (any, error) {
	if !e.taxonomy.Contains(args.TopicID) {
		return nil, fmt.Errorf("%w: unknown topic %q", ErrInvalidArgument, args.TopicID)
	}
	snap, err := e.source.LatestAnalysis(ctx, res.VideoID)
	if err != nil {
		return nil, err
	}
	res.AnalysisID = snap.Analysis.ID

	quotes, err := e.source.TopicQuotes(ctx, res.VideoID, args.TopicID, clampLimit(args.Limit, defaultQuoteLimit))
	if err != nil {
		return nil, err
	}

	view := topicView{TopicID: args.TopicID, Name: e.taxonomy.Name(args.TopicID)}
	for _, t := range snap.Topics {
		if t.TopicID == args.TopicID {
			view.Count = t.Count
			view.Share = t.Share
			break
		}
	}
	return struct {
		topicView
		Quotes []model.CommentView `json:"quotes"`
	}{view, quotes}, nil
}

type filterView struct {
	TopicID   string          `json:"topic_id,omitempty"`
	Category  string          `json:"category,omitempty"`
	Sentiment model.Sentiment `json:"sentiment,omitempty"`
}

type commentsView struct {
	VideoID  string              `json:"video_id"`
	Filter   filterView          `json:"filter"`
	Comments []model.CommentView `json:"comments"`
	Total    int                 `json:"total"`
}

func (e *Executor) filteredComments(ctx context.Context, videoID string, args FilteredCommentsArgs) (any, error) {
	f := Filter{}
	if args.TopicID != "" {
		if !e.taxonomy.Contains(args.TopicID) {
			return nil, fmt.Errorf("%w: unknown topic %q", ErrInvalidArgument, args.TopicID)
		}
		f.TopicID = args.TopicID
	}
	if args.Sentiment != "" {
		s, ok := model.ParseSentiment(args.Sentiment)
		if !ok {
			return nil, fmt.Errorf("%w: unknown sentiment %q", ErrInvalidArgument, args.Sentiment)
		}
		f.Sentiment = s
	}
	return e.filtered(ctx, videoID, f, clampLimit(args.Limit, defaultFilteredLimit))
}

func (e *Executor) filtered(ctx context.Context, videoID string, f Filter, limit int) (commentsView, error) {
	comments, err := e.source.FilteredComments(ctx, videoID, model.CommentFilter{
		TopicID:   f.TopicID,
		Sentiment: f.Sentiment,
		Limit:     limit,
	})
	if err != nil {
		return commentsView{}, err
	}
	view := commentsView{
		VideoID:  videoID,
		Filter:   filterView{TopicID: f.TopicID, Sentiment: f.Sentiment},
		Comments: comments,
		Total:    len(comments),
	}
	if f.TopicID != "" {
		view.Filter.Category = e.taxonomy.Name(f.TopicID)
	}
	return view, nil
}

// search answers a free-text question. When the question names a topic or
// a sentiment, filtered retrieval replaces relevance scoring.
func (e *Executor) search(ctx context.Context, videoID string, args SearchArgs, res *Result) (any, error) {
	if f := Resolve(args.Question); f.Matched() {
		res.Executed = ToolGetFilteredComments
		e.logger.Debug("search resolved to filter",
			zap.String("topic_id", f.TopicID),
			zap.String("sentiment", string(f.Sentiment)),
		)
		return e.filtered(ctx, videoID, f, clampLimit(args.MaxResults, defaultFilteredLimit))
	}

	comments, err := e.source.Comments(ctx, videoID)
	if err != nil {
		return nil, err
	}
	return struct {
		VideoID  string   `json:"video_id"`
		Keywords []string `json:"keywords"`
		Comments []Match  `json:"comments"`
	}{
		VideoID:  videoID,
		Keywords: Keywords(args.Question),
		Comments: Search(comments, args.Question, clampLimit(args.MaxResults, defaultSearchLimit)),
	}, nil
}

func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > maxResultLimit {
		return maxResultLimit
	}
	return limit
}

// errorText is the short message placed in a failed envelope.
func errorText(err error) string {
	switch {
	case errors.Is(err, ErrNoVideo):
		return "no video given and no current video; ask the user for a YouTube link"
	case errors.Is(err, ErrMissingArgument), errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrUnknownTool):
		return err.Error()
	case errors.Is(err, model.ErrNotFound):
		return "no stored comments for this video"
	case errors.Is(err, llm.ErrUnavailable):
		return "inference service unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return "operation timed out"
	default:
		return "operation failed"
	}
}
