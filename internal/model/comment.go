// Package model defines data structures shared by the classifier, the store and the agent.
package model

import (
	"strings"
	"time"
)

// Sentiment is the closed set of sentiment labels.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Sentiments lists every sentiment in display order.
var Sentiments = []Sentiment{SentimentPositive, SentimentNeutral, SentimentNegative}

// ParseSentiment reports whether s names a known sentiment.
func ParseSentiment(s string) (Sentiment, bool) {
	switch Sentiment(strings.ToLower(strings.TrimSpace(s))) {
	case SentimentPositive:
		return SentimentPositive, true
	case SentimentNeutral:
		return SentimentNeutral, true
	case SentimentNegative:
		return SentimentNegative, true
	}
	return "", false
}

// NormalizeSentiment maps anything unrecognised to neutral.
func NormalizeSentiment(s string) Sentiment {
	if v, ok := ParseSentiment(s); ok {
		return v
	}
	return SentimentNeutral
}

// Comment is one audience comment on a video. Comments are immutable once stored.
type Comment struct {
	ID          string    `json:"comment_id"`
	VideoID     string    `json:"video_id"`
	ParentID    string    `json:"parent_id,omitempty"`
	Author      string    `json:"author"`
	Text        string    `json:"text"`
	LikeCount   int       `json:"like_count"`
	ReplyCount  int       `json:"reply_count,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	IsReply     bool      `json:"is_reply"`
}

// CommentView is a comment joined with its latest labels, as returned to the agent.
type CommentView struct {
	ID          string    `json:"comment_id"`
	Text        string    `json:"text"`
	Author      string    `json:"author"`
	LikeCount   int       `json:"likes"`
	PublishedAt time.Time `json:"published_at"`
	Topics      []string  `json:"topics,omitempty"`
	Sentiment   Sentiment `json:"sentiment,omitempty"`
}

// CommentFilter narrows filtered retrieval. Empty fields do not filter.
type CommentFilter struct {
	TopicID   string
	Sentiment Sentiment
	Limit     int
}
