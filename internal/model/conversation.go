package model

import (
	"time"
)

// ConversationState is the short-term memory of one user: the video the
// conversation is about and the analysis it last looked at.
type ConversationState struct {
	UserID     string    `json:"user_id"`
	VideoID    string    `json:"video_id,omitempty"`
	AnalysisID int64     `json:"analysis_id,omitempty"`
	Turns      int       `json:"turns"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// HasVideo reports whether a video has been resolved for this user.
func (s ConversationState) HasVideo() bool {
	return s.VideoID != ""
}
