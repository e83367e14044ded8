package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/comment-consultant/internal/model"
	"github.com/capitalize-ai/comment-consultant/internal/service"
	"github.com/capitalize-ai/comment-consultant/pkg/logger"
	"github.com/capitalize-ai/comment-consultant/pkg/metrics"
)

// StreamHandler runs an analysis and reports its progress as server-sent events.
type StreamHandler struct {
	analysis  *service.AnalysisService
	heartbeat time.Duration
	logger    *logger.Logger
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(analysis *service.AnalysisService, heartbeat time.Duration, log *logger.Logger) *StreamHandler {
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	return &StreamHandler{
		analysis:  analysis,
		heartbeat: heartbeat,
		logger:    log.Component("stream_handler"),
	}
}

// StartedEvent is the first event of an analysis stream.
type StartedEvent struct {
	VideoID string `json:"video_id"`
	Force   bool   `json:"force"`
}

// HeartbeatEvent keeps the connection alive while classification runs.
type HeartbeatEvent struct {
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

// ErrorEvent ends a stream whose analysis failed.
type ErrorEvent struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

type analysisOutcome struct {
	report *model.AnalysisReport
	err    error
}

// AnalyzeStream handles GET /api/v1/videos/:videoID/analyses/stream?force=&limit=
func (h *StreamHandler) AnalyzeStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	videoID, ok := pathVideoID(w, r)
	if !ok {
		return
	}

	req := model.AnalyzeRequest{}
	if f := r.URL.Query().Get("force"); f != "" {
		force, err := strconv.ParseBool(f)
		if err != nil {
			writeError(w, http.StatusBadRequest, "force must be a boolean")
			return
		}
		req.Force = force
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil || limit <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		req.Limit = limit
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	start := time.Now()
	sendSSEEvent(w, flusher, "started", &StartedEvent{VideoID: videoID, Force: req.Force})

	done := make(chan analysisOutcome, 1)
	go func() {
		report, err := h.analysis.Analyze(ctx, videoID, req)
		done <- analysisOutcome{report: report, err: err}
	}()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("analysis stream client disconnected", zap.String("video_id", videoID))
			return

		case <-heartbeat.C:
			sendSSEEvent(w, flusher, "heartbeat", &HeartbeatEvent{ElapsedSeconds: time.Since(start).Seconds()})

		case out := <-done:
			if out.err != nil {
				status, msg := errorStatus(out.err)
				if status >= http.StatusInternalServerError {
					h.logger.Warn("streamed analysis failed", zap.String("video_id", videoID), zap.Error(out.err))
				}
				sendSSEEvent(w, flusher, "error", &ErrorEvent{Status: status, Message: msg})
				return
			}
			sendSSEEvent(w, flusher, "completed", out.report)
			return
		}
	}
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
	flusher.Flush()

	return nil
}
