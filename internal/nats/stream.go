package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/capitalize-ai/comment-consultant/internal/model"
	"github.com/capitalize-ai/comment-consultant/pkg/metrics"
)

const (
	// StreamName is the name of the analysis events stream.
	StreamName = "ANALYSES"

	analysisPrefix = "analysis"
	turnPrefix     = "turn"
)

// StreamManager handles JetStream stream operations.
type StreamManager struct {
	client *Client
}

// NewStreamManager creates a new stream manager.
func NewStreamManager(client *Client) *StreamManager {
	return &StreamManager{client: client}
}

// EnsureStream ensures the events stream exists with proper configuration.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	js := m.client.JetStream()

	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, jetstream.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream: %w", err)
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{analysisPrefix + ".>", turnPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      30 * 24 * time.Hour,
		MaxBytes:    1024 * 1024 * 1024,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Analysis runs and agent turns",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// AnalysisSubject returns the subject of an analysis event, e.g.
// analysis.dQw4w9WgXcQ.completed.
func AnalysisSubject(videoID string, eventType model.EventType) string {
	return fmt.Sprintf("%s.%s.%s", analysisPrefix, token(videoID), lastToken(eventType))
}

// TurnSubject returns the subject of a turn event.
func TurnSubject(userID string, eventType model.EventType) string {
	return fmt.Sprintf("%s.%s.%s", turnPrefix, token(userID), lastToken(eventType))
}

// AnalysisFilter returns the filter subject for all events of one video.
func AnalysisFilter(videoID string) string {
	return fmt.Sprintf("%s.%s.>", analysisPrefix, token(videoID))
}

// token makes s safe to use as a single subject token.
func token(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, s)
}

func lastToken(t model.EventType) string {
	s := string(t)
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// PublishAnalysisEvent publishes an analysis event to JetStream.
func (m *StreamManager) PublishAnalysisEvent(ctx context.Context, event *model.AnalysisEvent) (uint64, error) {
	return m.publish(ctx, "analysis", AnalysisSubject(event.VideoID, event.Type), event)
}

// PublishTurnEvent publishes a turn event to JetStream.
func (m *StreamManager) PublishTurnEvent(ctx context.Context, event *model.TurnEvent) (uint64, error) {
	return m.publish(ctx, "turn", TurnSubject(event.UserID, event.Type), event)
}

func (m *StreamManager) publish(ctx context.Context, kind, subject string, event any) (uint64, error) {
	data, err := json.Marshal(event)
	if err != nil {
		metrics.EventsPublished.WithLabelValues(kind, "error").Inc()
		return 0, fmt.Errorf("failed to marshal event: %w", err)
	}

	ack, err := m.client.JetStream().Publish(ctx, subject, data)
	if err != nil {
		metrics.EventsPublished.WithLabelValues(kind, "error").Inc()
		return 0, fmt.Errorf("failed to publish event: %w", err)
	}

	metrics.EventsPublished.WithLabelValues(kind, "ok").Inc()
	return ack.Sequence, nil
}

// AnalysisEvents returns up to limit analysis events of a video, oldest first.
func (m *StreamManager) AnalysisEvents(ctx context.Context, videoID string, limit int) ([]model.AnalysisEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	consumer, err := m.client.JetStream().OrderedConsumer(ctx, StreamName, jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{AnalysisFilter(videoID)},
		DeliverPolicy:  jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	batch, err := consumer.Fetch(limit, jetstream.FetchMaxWait(2*time.Second))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch events: %w", err)
	}

	var events []model.AnalysisEvent
	for msg := range batch.Messages() {
		var event model.AnalysisEvent
		if err := json.Unmarshal(msg.Data(), &event); err != nil {
			continue
		}
		events = append(events, event)
	}

	if err := batch.Error(); err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, jetstream.ErrNoMessages) {
		return nil, fmt.Errorf("batch error: %w", err)
	}

	return events, nil
}
