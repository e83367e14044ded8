package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSentiment(t *testing.T) {
	tests := []struct {
		in   string
		want Sentiment
	}{
		{"positive", SentimentPositive},
		{" Negative ", SentimentNegative},
		{"NEUTRAL", SentimentNeutral},
		{"mixed", SentimentNeutral},
		{"", SentimentNeutral},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeSentiment(tt.in))
		})
	}
}

func TestParseSentimentRejectsUnknown(t *testing.T) {
	_, ok := ParseSentiment("angry")
	assert.False(t, ok)
}

func TestTopLabel(t *testing.T) {
	assert.Equal(t, "", LabelRecord{}.TopLabel())
	assert.Equal(t, "praise", LabelRecord{Topics: []string{"praise", "questions"}}.TopLabel())
}
