package model

import "time"

// Labels is the classification of one comment: up to two topic ids and a sentiment.
type Labels struct {
	Topics    []string  `json:"labels"`
	Sentiment Sentiment `json:"sentiment"`
}

// MaxTopicsPerItem bounds how many topics a single comment can carry.
const MaxTopicsPerItem = 2

// Analysis is one classification run over one video.
type Analysis struct {
	ID              int64     `json:"analysis_id"`
	VideoID         string    `json:"video_id"`
	CreatedAt       time.Time `json:"created_at"`
	Model           string    `json:"model"`
	TotalItems      int       `json:"total_items"`
	ClassifiedItems int       `json:"classified_items"`
}

// LabelRecord is the persisted classification of one comment within an analysis.
type LabelRecord struct {
	CommentID  string    `json:"comment_id"`
	VideoID    string    `json:"video_id"`
	AnalysisID int64     `json:"analysis_id"`
	Topics     []string  `json:"labels"`
	Sentiment  Sentiment `json:"sentiment"`
}

// TopLabel returns the first topic, or "".
func (r LabelRecord) TopLabel() string {
	if len(r.Topics) == 0 {
		return ""
	}
	return r.Topics[0]
}

// Quote is a representative comment for a topic.
type Quote struct {
	CommentID   string    `json:"comment_id"`
	Text        string    `json:"text"`
	LikeCount   int       `json:"likes"`
	PublishedAt time.Time `json:"published_at"`
}

// TopicSummary is the derived per-topic statistic of an analysis.
type TopicSummary struct {
	TopicID string  `json:"topic_id"`
	Count   int     `json:"count"`
	Share   float64 `json:"share"`
	Quote   *Quote  `json:"top_quote,omitempty"`
}

// SentimentSummary is the derived per-sentiment statistic of an analysis.
type SentimentSummary struct {
	Sentiment Sentiment `json:"sentiment"`
	Count     int       `json:"count"`
	Share     float64   `json:"share"`
}

// Summary holds everything derived from the per-item labels of one analysis.
type Summary struct {
	Classified int                `json:"classified"`
	Topics     []TopicSummary     `json:"topics"`
	Sentiment  []SentimentSummary `json:"sentiment"`
}

// Snapshot is the latest durable state of one video's analysis.
type Snapshot struct {
	Analysis  Analysis           `json:"analysis"`
	Topics    []TopicSummary     `json:"topics"`
	Sentiment []SentimentSummary `json:"sentiment"`
}

// VideoInfo is a row of the video listing.
type VideoInfo struct {
	VideoID        string     `json:"video_id"`
	Comments       int        `json:"comments"`
	LatestAnalysis *int64     `json:"latest_analysis_id,omitempty"`
	AnalyzedAt     *time.Time `json:"analyzed_at,omitempty"`
}

// AnalysisStats describes how many comments flowed through a run.
type AnalysisStats struct {
	TotalFetched    int `json:"total_fetched"`
	UsedForAnalysis int `json:"used_for_analysis"`
	Classified      int `json:"classified"`
}

// AnalysisReport is returned by an analysis run.
type AnalysisReport struct {
	Snapshot
	Stats             AnalysisStats `json:"stats"`
	FromCache         bool          `json:"from_cache"`
	ProcessingSeconds float64       `json:"processing_seconds"`
}
