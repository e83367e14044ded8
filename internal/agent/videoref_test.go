package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		text   string
		want   string
		wantOK bool
	}{
		{"analyse https://www.youtube.com/watch?v=dQw4w9WgXcQ please", "dQw4w9WgXcQ", true},
		{"https://youtube.com/watch?feature=share&v=dQw4w9WgXcQ&t=10", "dQw4w9WgXcQ", true},
		{"https://youtu.be/dQw4w9WgXcQ?si=abc", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://youtube.com/shorts/abcDEF12345", "abcDEF12345", true},
		{"https://www.youtube.com/live/abc_def-123", "abc_def-123", true},
		{"what about dQw4w9WgXcQ?", "dQw4w9WgXcQ", true},
		{"Що думають про відео dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"bare id with separators abc_def-123", "abc_def-123", true},
		{"is the course first-class?", "", false},
		{"comments about self-esteem", "", false},
		{"was the hype short-lived", "", false},
		{"snake_words", "", false},
		{"tell me more information", "", false},
		{"Information", "", false},
		{"show me the positive comments", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := ExtractVideoID(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseVideoRef(t *testing.T) {
	id, ok := ParseVideoRef(" dQw4w9WgXcQ ")
	assert.True(t, ok)
	assert.Equal(t, "dQw4w9WgXcQ", id)

	// Explicit ids are accepted even when they look like words.
	id, ok = ParseVideoRef("information")
	assert.True(t, ok)
	assert.Equal(t, "information", id)

	id, ok = ParseVideoRef("https://youtu.be/dQw4w9WgXcQ")
	assert.True(t, ok)
	assert.Equal(t, "dQw4w9WgXcQ", id)

	_, ok = ParseVideoRef("not a video")
	assert.False(t, ok)
	_, ok = ParseVideoRef("short")
	assert.False(t, ok)
}

func TestValidVideoID(t *testing.T) {
	assert.True(t, ValidVideoID("dQw4w9WgXcQ"))
	assert.False(t, ValidVideoID("dQw4w9WgXc"))
	assert.False(t, ValidVideoID("dQw4w9WgXc!"))
}
