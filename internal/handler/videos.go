package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/capitalize-ai/comment-consultant/internal/agent"
	"github.com/capitalize-ai/comment-consultant/internal/middleware"
	"github.com/capitalize-ai/comment-consultant/internal/model"
	"github.com/capitalize-ai/comment-consultant/internal/service"
	"github.com/capitalize-ai/comment-consultant/internal/taxonomy"
	"github.com/capitalize-ai/comment-consultant/pkg/logger"
)

// VideoStore is the read side of the result store used by the video endpoints.
type VideoStore interface {
	Videos(ctx context.Context) ([]model.VideoInfo, error)
	Comments(ctx context.Context, videoID string) ([]model.Comment, error)
	LatestAnalysis(ctx context.Context, videoID string) (*model.Snapshot, error)
	Analyses(ctx context.Context, videoID string) ([]model.Analysis, error)
	FilteredComments(ctx context.Context, videoID string, f model.CommentFilter) ([]model.CommentView, error)
	DeleteAnalyses(ctx context.Context, videoID string) error
}

// VideoHandler handles comment import, analysis runs and analysis reads.
type VideoHandler struct {
	analysis *service.AnalysisService
	store    VideoStore
	taxonomy *taxonomy.Taxonomy
	logger   *logger.Logger
}

// NewVideoHandler creates a new video handler.
func NewVideoHandler(analysis *service.AnalysisService, store VideoStore, tax *taxonomy.Taxonomy, log *logger.Logger) *VideoHandler {
	return &VideoHandler{
		analysis: analysis,
		store:    store,
		taxonomy: tax,
		logger:   log.Component("video_handler"),
	}
}

// CommentsPage is the response of the filtered comments endpoint.
type CommentsPage struct {
	VideoID   string              `json:"video_id"`
	TopicID   string              `json:"topic_id,omitempty"`
	Sentiment model.Sentiment     `json:"sentiment,omitempty"`
	Comments  []model.CommentView `json:"comments"`
}

// SearchPage is the response of the relevance search endpoint.
type SearchPage struct {
	VideoID  string        `json:"video_id"`
	Query    string        `json:"query"`
	Keywords []string      `json:"keywords"`
	Comments []agent.Match `json:"comments"`
}

// AnalysisPage is the latest analysis with its run history.
type AnalysisPage struct {
	*model.Snapshot
	History []model.Analysis `json:"history"`
}

// List handles GET /api/v1/videos
func (h *VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	videos, err := h.store.Videos(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if videos == nil {
		videos = []model.VideoInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"videos": videos})
}

// ImportComments handles POST /api/v1/videos/:videoID/comments
func (h *VideoHandler) ImportComments(w http.ResponseWriter, r *http.Request) {
	videoID, ok := pathVideoID(w, r)
	if !ok {
		return
	}

	comments, err := service.DecodeComments(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	resp, err := h.analysis.ImportComments(r.Context(), videoID, comments)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Analyze handles POST /api/v1/videos/:videoID/analyses
func (h *VideoHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	videoID, ok := pathVideoID(w, r)
	if !ok {
		return
	}

	var req model.AnalyzeRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Limit < 0 {
		writeError(w, http.StatusBadRequest, "limit must not be negative")
		return
	}

	report, err := h.analysis.Analyze(r.Context(), videoID, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	status := http.StatusCreated
	if report.FromCache {
		status = http.StatusOK
	}
	writeJSON(w, status, report)
}

// Latest handles GET /api/v1/videos/:videoID/analysis
func (h *VideoHandler) Latest(w http.ResponseWriter, r *http.Request) {
	videoID, ok := pathVideoID(w, r)
	if !ok {
		return
	}

	snap, err := h.store.LatestAnalysis(r.Context(), videoID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	history, err := h.store.Analyses(r.Context(), videoID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AnalysisPage{Snapshot: snap, History: history})
}

// Comments handles GET /api/v1/videos/:videoID/comments?topic=&sentiment=&limit=
func (h *VideoHandler) Comments(w http.ResponseWriter, r *http.Request) {
	videoID, ok := pathVideoID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	topicID := strings.TrimSpace(q.Get("topic"))
	if topicID != "" && !h.taxonomy.Contains(topicID) {
		writeError(w, http.StatusBadRequest, "unknown topic")
		return
	}
	sentiment, err := middleware.ParseSentiment(q.Get("sentiment"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := middleware.ParseLimit(q.Get("limit"), 10, 100)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	comments, err := h.store.FilteredComments(r.Context(), videoID, model.CommentFilter{
		TopicID:   topicID,
		Sentiment: sentiment,
		Limit:     limit,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CommentsPage{VideoID: videoID, TopicID: topicID, Sentiment: sentiment, Comments: comments})
}

// Search handles GET /api/v1/videos/:videoID/search?q=&limit=
func (h *VideoHandler) Search(w http.ResponseWriter, r *http.Request) {
	videoID, ok := pathVideoID(w, r)
	if !ok {
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit, err := middleware.ParseLimit(r.URL.Query().Get("limit"), 5, 50)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	comments, err := h.store.Comments(r.Context(), videoID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SearchPage{
		VideoID:  videoID,
		Query:    query,
		Keywords: agent.Keywords(query),
		Comments: agent.Search(comments, query, limit),
	})
}

// DeleteAnalyses handles DELETE /api/v1/videos/:videoID/analyses
func (h *VideoHandler) DeleteAnalyses(w http.ResponseWriter, r *http.Request) {
	videoID, ok := pathVideoID(w, r)
	if !ok {
		return
	}

	if err := h.store.DeleteAnalyses(r.Context(), videoID); err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Info("analyses deleted",
		zap.String("video_id", videoID),
		zap.String("user_id", middleware.GetUserID(r.Context())),
	)
	w.WriteHeader(http.StatusNoContent)
}

func pathVideoID(w http.ResponseWriter, r *http.Request) (string, bool) {
	videoID := chi.URLParam(r, "videoID")
	if err := middleware.ValidateVideoID(videoID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return videoID, true
}

func (h *VideoHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := errorStatus(err)
	if status >= http.StatusInternalServerError {
		ctx := r.Context()
		h.logger.WithContext(middleware.GetCorrelationID(ctx), middleware.GetUserID(ctx)).
			Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeError(w, status, msg)
}
