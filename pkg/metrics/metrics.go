// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// ClassificationBatches counts classification batches by outcome.
	ClassificationBatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classification_batches_total",
			Help: "Classification batches by outcome (ok, recovered, failed, timeout)",
		},
		[]string{"outcome"},
	)

	// ClassificationBatchDuration tracks the latency of one batch request.
	ClassificationBatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "classification_batch_duration_seconds",
			Help:    "Duration of a single classification batch request",
			Buckets: []float64{.5, 1, 2, 5, 10, 20, 30, 45, 60},
		},
		[]string{"outcome"},
	)

	// ClassificationInFlight is the number of batch requests holding an admission slot.
	ClassificationInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "classification_batches_in_flight",
			Help: "Batch requests currently in flight",
		},
	)

	// ClassificationQueued is the number of batches waiting for an admission slot.
	ClassificationQueued = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "classification_batches_queued",
			Help: "Batch requests waiting for admission",
		},
	)

	// ClassifiedItems counts items by result (classified, defaulted).
	ClassifiedItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classification_items_total",
			Help: "Items processed by the classifier",
		},
		[]string{"result"},
	)

	// AnalysisRuns counts analysis runs by outcome.
	AnalysisRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_runs_total",
			Help: "Analysis runs by outcome (completed, cached, failed)",
		},
		[]string{"outcome"},
	)

	// AgentTurns counts agent turns by outcome.
	AgentTurns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_turns_total",
			Help: "Agent turns by outcome",
		},
		[]string{"outcome"},
	)

	// AgentTurnDuration tracks end-to-end turn latency.
	AgentTurnDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "agent_turn_duration_seconds",
			Help:    "Agent turn duration",
			Buckets: []float64{.25, .5, 1, 2, 5, 10, 20, 30, 60, 90},
		},
	)

	// ToolCalls counts operations executed by the agent.
	ToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_tool_calls_total",
			Help: "Agent operations by tool and status",
		},
		[]string{"tool", "status"},
	)

	// LLMRequestDuration tracks inference request duration.
	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_request_duration_seconds",
			Help:    "Inference request duration",
			Buckets: []float64{.5, 1, 2, 5, 10, 20, 30, 45, 60, 90, 120},
		},
		[]string{"provider", "status"},
	)

	// LLMTokensTotal tracks total LLM tokens processed.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"model", "direction"},
	)

	// SessionsActive tracks conversation sessions held in memory.
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "agent_sessions_active",
			Help: "Conversation sessions currently held",
		},
	)

	// SSEConnections tracks open event-stream connections.
	SSEConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_sse_connections_active",
			Help: "Open analysis progress streams",
		},
	)

	// EventsPublished counts NATS events by subject kind and status.
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Events published to JetStream",
		},
		[]string{"kind", "status"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordBatch records the outcome and latency of one classification batch.
func RecordBatch(outcome string, duration float64) {
	ClassificationBatches.WithLabelValues(outcome).Inc()
	ClassificationBatchDuration.WithLabelValues(outcome).Observe(duration)
}

// RecordItems records how many items were classified and how many fell back to defaults.
func RecordItems(classified, defaulted int) {
	ClassifiedItems.WithLabelValues("classified").Add(float64(classified))
	ClassifiedItems.WithLabelValues("defaulted").Add(float64(defaulted))
}

// RecordLLMRequest records metrics for one inference request.
func RecordLLMRequest(provider, model, status string, duration float64, tokensIn, tokensOut int) {
	LLMRequestDuration.WithLabelValues(provider, status).Observe(duration)
	LLMTokensTotal.WithLabelValues(model, "in").Add(float64(tokensIn))
	LLMTokensTotal.WithLabelValues(model, "out").Add(float64(tokensOut))
}

// RecordTurn records the outcome of one agent turn.
func RecordTurn(outcome string, duration float64) {
	AgentTurns.WithLabelValues(outcome).Inc()
	AgentTurnDuration.Observe(duration)
}

// RecordToolCall records one agent operation.
func RecordToolCall(tool, status string) {
	ToolCalls.WithLabelValues(tool, status).Inc()
}

// IncrementSSEConnections increments the open stream gauge.
func IncrementSSEConnections() {
	SSEConnections.Inc()
}

// DecrementSSEConnections decrements the open stream gauge.
func DecrementSSEConnections() {
	SSEConnections.Dec()
}
