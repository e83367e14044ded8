package model

import (
	"time"
)

// EventType represents the type of a published domain event.
type EventType string

const (
	EventAnalysisCompleted EventType = "analysis.completed"
	EventAnalysisFailed    EventType = "analysis.failed"
	EventTurnCompleted     EventType = "turn.completed"
)

// AnalysisEvent is published after an analysis run finishes.
type AnalysisEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	VideoID    string         `json:"video_id"`
	AnalysisID int64          `json:"analysis_id,omitempty"`
	Model      string         `json:"model,omitempty"`
	Stats      AnalysisStats  `json:"stats"`
	Reason     string         `json:"reason,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// TurnEvent is published after an agent turn finishes.
type TurnEvent struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id"`
	VideoID   string      `json:"video_id,omitempty"`
	Tools     []ToolTrace `json:"tools,omitempty"`
	Degraded  bool        `json:"degraded"`
	LatencyMs int64       `json:"latency_ms"`
	CreatedAt time.Time   `json:"created_at"`
}
