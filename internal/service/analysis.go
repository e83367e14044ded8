// Package service provides the analysis and chat use cases on top of the
// classifier, the result store and the agent.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/capitalize-ai/comment-consultant/internal/aggregate"
	"github.com/capitalize-ai/comment-consultant/internal/classifier"
	"github.com/capitalize-ai/comment-consultant/internal/llm"
	"github.com/capitalize-ai/comment-consultant/internal/model"
	"github.com/capitalize-ai/comment-consultant/internal/taxonomy"
	"github.com/capitalize-ai/comment-consultant/pkg/logger"
	"github.com/capitalize-ai/comment-consultant/pkg/metrics"
	"github.com/capitalize-ai/comment-consultant/pkg/tracing"
)

// ErrInvalidInput marks requests rejected before any work is done.
var ErrInvalidInput = errors.New("invalid input")

// AnalysisStore is the part of the result store an analysis run needs.
type AnalysisStore interface {
	UpsertComments(ctx context.Context, comments []model.Comment) (int, error)
	Comments(ctx context.Context, videoID string) ([]model.Comment, error)
	LatestAnalysis(ctx context.Context, videoID string) (*model.Snapshot, error)
	SaveAnalysis(ctx context.Context, a model.Analysis, labels []model.LabelRecord, summary model.Summary) (model.Analysis, error)
}

// Classifier labels a batch of comments. *classifier.Classifier implements it.
type Classifier interface {
	Classify(ctx context.Context, items []classifier.Item) ([]classifier.Result, classifier.Report)
	Model() string
}

// EventPublisher publishes domain events. A nil publisher disables events.
type EventPublisher interface {
	PublishAnalysisEvent(ctx context.Context, event *model.AnalysisEvent) (uint64, error)
	PublishTurnEvent(ctx context.Context, event *model.TurnEvent) (uint64, error)
}

// AnalysisOptions configures comment selection for a run.
type AnalysisOptions struct {
	DefaultLimit  int
	MinTextLength int
}

// AnalysisService runs classification over a video's stored comments and
// persists the outcome.
type AnalysisService struct {
	store      AnalysisStore
	classifier Classifier
	taxonomy   *taxonomy.Taxonomy
	events     EventPublisher
	opts       AnalysisOptions
	logger     *logger.Logger
}

// NewAnalysisService creates a new analysis service.
func NewAnalysisService(
	store AnalysisStore,
	c Classifier,
	tax *taxonomy.Taxonomy,
	events EventPublisher,
	opts AnalysisOptions,
	log *logger.Logger,
) *AnalysisService {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 1200
	}
	return &AnalysisService{
		store:      store,
		classifier: c,
		taxonomy:   tax,
		events:     events,
		opts:       opts,
		logger:     log.Component("analysis"),
	}
}

// ImportComments stores comments for a video. Comments without a video id
// take videoID; comments naming another video are rejected.
func (s *AnalysisService) ImportComments(ctx context.Context, videoID string, comments []model.Comment) (*model.ImportCommentsResponse, error) {
	for i := range comments {
		if comments[i].VideoID == "" {
			comments[i].VideoID = videoID
		}
		if comments[i].VideoID != videoID {
			return nil, fmt.Errorf("%w: comment %q belongs to video %q", ErrInvalidInput, comments[i].ID, comments[i].VideoID)
		}
	}

	n, err := s.store.UpsertComments(ctx, comments)
	if err != nil {
		return nil, fmt.Errorf("failed to import comments: %w", err)
	}

	s.logger.Info("comments imported", zap.String("video_id", videoID), zap.Int("count", n))
	return &model.ImportCommentsResponse{VideoID: videoID, Imported: n}, nil
}

// Analyze returns the latest analysis of a video, running a new one when
// none exists or req.Force is set. A run whose every batch was refused by
// the inference service fails with llm.ErrUnavailable and stores nothing.
func (s *AnalysisService) Analyze(ctx context.Context, videoID string, req model.AnalyzeRequest) (*model.AnalysisReport, error) {
	ctx, span := tracing.Tracer().Start(ctx, "service.Analyze")
	defer span.End()
	span.SetAttributes(attribute.String("video_id", videoID), attribute.Bool("force", req.Force))

	start := time.Now()
	log := s.logger.With(zap.String("video_id", videoID))

	comments, err := s.store.Comments(ctx, videoID)
	if err != nil {
		return nil, s.failed(span, fmt.Errorf("failed to load comments: %w", err))
	}

	if !req.Force {
		snap, err := s.store.LatestAnalysis(ctx, videoID)
		switch {
		case err == nil:
			metrics.AnalysisRuns.WithLabelValues("cached").Inc()
			log.Debug("returning cached analysis", zap.Int64("analysis_id", snap.Analysis.ID))
			return &model.AnalysisReport{
				Snapshot: *snap,
				Stats: model.AnalysisStats{
					TotalFetched:    len(comments),
					UsedForAnalysis: snap.Analysis.TotalItems,
					Classified:      snap.Analysis.ClassifiedItems,
				},
				FromCache:         true,
				ProcessingSeconds: time.Since(start).Seconds(),
			}, nil
		case !errors.Is(err, model.ErrNotFound):
			return nil, s.failed(span, fmt.Errorf("failed to load latest analysis: %w", err))
		}
	}

	limit := req.Limit
	if limit <= 0 {
		limit = s.opts.DefaultLimit
	}
	selected := SelectComments(comments, s.opts.MinTextLength, limit)
	if len(selected) == 0 {
		return nil, s.failed(span, fmt.Errorf("comments of %s: %w", videoID, model.ErrNotFound))
	}

	items := make([]classifier.Item, len(selected))
	for i, c := range selected {
		items[i] = classifier.Item{ID: c.ID, Text: c.Text}
	}
	results, report := s.classifier.Classify(ctx, items)
	log.Info("comments classified", zap.Stringer("report", report))

	if report.Classified == 0 && report.Unavailable > 0 {
		err := fmt.Errorf("classify %s: %w", videoID, llm.ErrUnavailable)
		s.publishAnalysis(ctx, &model.AnalysisEvent{
			Type:    model.EventAnalysisFailed,
			VideoID: videoID,
			Model:   s.classifier.Model(),
			Reason:  err.Error(),
		})
		return nil, s.failed(span, err)
	}

	labels, entries := s.collect(videoID, selected, results)
	summary := aggregate.Summarize(s.taxonomy, entries)

	saved, err := s.store.SaveAnalysis(ctx, model.Analysis{
		VideoID:         videoID,
		Model:           s.classifier.Model(),
		TotalItems:      len(selected),
		ClassifiedItems: report.Classified,
	}, labels, summary)
	if err != nil {
		return nil, s.failed(span, fmt.Errorf("failed to save analysis: %w", err))
	}

	stats := model.AnalysisStats{
		TotalFetched:    len(comments),
		UsedForAnalysis: len(selected),
		Classified:      report.Classified,
	}
	s.publishAnalysis(ctx, &model.AnalysisEvent{
		Type:       model.EventAnalysisCompleted,
		VideoID:    videoID,
		AnalysisID: saved.ID,
		Model:      saved.Model,
		Stats:      stats,
		Metadata: map[string]any{
			"batches":        report.Batches,
			"failed_batches": report.Failed,
		},
	})

	metrics.AnalysisRuns.WithLabelValues("completed").Inc()
	span.SetAttributes(attribute.Int64("analysis_id", saved.ID), attribute.Int("classified", report.Classified))
	log.Info("analysis saved",
		zap.Int64("analysis_id", saved.ID),
		zap.Int("used", len(selected)),
		zap.Int("classified", report.Classified),
		zap.Duration("duration", time.Since(start)),
	)

	return &model.AnalysisReport{
		Snapshot: model.Snapshot{
			Analysis:  saved,
			Topics:    summary.Topics,
			Sentiment: summary.Sentiment,
		},
		Stats:             stats,
		ProcessingSeconds: time.Since(start).Seconds(),
	}, nil
}

// collect turns classifier results into label records and aggregation
// entries. Only classified items are kept, with labels restricted to the
// taxonomy.
func (s *AnalysisService) collect(videoID string, selected []model.Comment, results []classifier.Result) ([]model.LabelRecord, []aggregate.Entry) {
	labels := make([]model.LabelRecord, 0, len(results))
	entries := make([]aggregate.Entry, 0, len(results))
	for i, r := range results {
		if !r.Classified {
			continue
		}
		topics := s.taxonomy.Filter(r.Labels, model.MaxTopicsPerItem)
		labels = append(labels, model.LabelRecord{
			CommentID: r.ID,
			VideoID:   videoID,
			Topics:    topics,
			Sentiment: r.Sentiment,
		})
		c := selected[i]
		entries = append(entries, aggregate.Entry{
			CommentID:   c.ID,
			Text:        c.Text,
			LikeCount:   c.LikeCount,
			PublishedAt: c.PublishedAt,
			Topics:      topics,
			Sentiment:   r.Sentiment,
			Classified:  true,
		})
	}
	return labels, entries
}

func (s *AnalysisService) publishAnalysis(ctx context.Context, event *model.AnalysisEvent) {
	if s.events == nil {
		return
	}
	event.ID = uuid.Must(uuid.NewV7()).String()
	event.CreatedAt = time.Now().UTC()
	if _, err := s.events.PublishAnalysisEvent(ctx, event); err != nil {
		s.logger.Warn("failed to publish analysis event",
			zap.String("video_id", event.VideoID),
			zap.String("type", string(event.Type)),
			zap.Error(err),
		)
	}
}

func (s *AnalysisService) failed(span trace.Span, err error) error {
	metrics.AnalysisRuns.WithLabelValues("failed").Inc()
	span.SetStatus(codes.Error, err.Error())
	s.logger.Warn("analysis failed", zap.Error(err))
	return err
}

// SelectComments picks the top-level comments worth classifying: trimmed
// text of at least minLen runes, most liked first, older first on ties,
// at most limit of them.
func SelectComments(comments []model.Comment, minLen, limit int) []model.Comment {
	selected := make([]model.Comment, 0, len(comments))
	for _, c := range comments {
		if c.IsReply || c.ParentID != "" {
			continue
		}
		if utf8.RuneCountInString(strings.TrimSpace(c.Text)) < minLen {
			continue
		}
		selected = append(selected, c)
	}
	sort.SliceStable(selected, func(i, j int) bool {
		if selected[i].LikeCount != selected[j].LikeCount {
			return selected[i].LikeCount > selected[j].LikeCount
		}
		return selected[i].PublishedAt.Before(selected[j].PublishedAt)
	})
	if limit > 0 && len(selected) > limit {
		selected = selected[:limit]
	}
	return selected
}
