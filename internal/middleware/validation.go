package middleware

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/capitalize-ai/comment-consultant/internal/agent"
	"github.com/capitalize-ai/comment-consultant/internal/model"
)

// MaxMessageBytes bounds a chat message body.
const MaxMessageBytes = 16 * 1024

// ValidateMessageContent validates a chat utterance.
func ValidateMessageContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return errors.New("message cannot be empty")
	}
	if len(content) > MaxMessageBytes {
		return errors.New("message exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("message must be valid UTF-8")
	}
	return nil
}

// ValidateVideoID validates a path video id. URLs are not accepted here.
func ValidateVideoID(id string) error {
	if !agent.ValidVideoID(id) {
		return errors.New("invalid video ID format")
	}
	return nil
}

// ParseLimit reads an optional positive limit, applying def when raw is
// empty and capping at max.
func ParseLimit(raw string, def, max int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("limit must be a positive integer")
	}
	if n > max {
		n = max
	}
	return n, nil
}

// ParseSentiment reads an optional sentiment filter.
func ParseSentiment(raw string) (model.Sentiment, error) {
	if raw == "" {
		return "", nil
	}
	s, ok := model.ParseSentiment(raw)
	if !ok {
		return "", errors.New("sentiment must be positive, neutral or negative")
	}
	return s, nil
}
