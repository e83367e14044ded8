package model

import (
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// ChatRequest is one user utterance sent to the agent.
type ChatRequest struct {
	Message string `json:"message"`
}

// ToolTrace describes one operation executed during a turn.
type ToolTrace struct {
	Tool    string `json:"tool"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ChatResponse is the agent's answer to one turn.
type ChatResponse struct {
	TurnID    string      `json:"turn_id"`
	Answer    string      `json:"answer"`
	VideoID   string      `json:"video_id,omitempty"`
	Tools     []ToolTrace `json:"tools,omitempty"`
	Degraded  bool        `json:"degraded,omitempty"`
	LatencyMs int64       `json:"latency_ms"`
	CreatedAt time.Time   `json:"created_at"`
}

// AnalyzeRequest asks for a classification run.
type AnalyzeRequest struct {
	Limit int  `json:"limit,omitempty"`
	Force bool `json:"force,omitempty"`
}

// ImportCommentsResponse reports how many comments were stored.
type ImportCommentsResponse struct {
	VideoID  string `json:"video_id"`
	Imported int    `json:"imported"`
}
