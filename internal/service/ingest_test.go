package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeComments(t *testing.T) {
	t.Run("array", func(t *testing.T) {
		comments, err := DecodeComments(strings.NewReader(`
			[{"comment_id":"c1","text":"hi","like_count":3,"published_at":"2024-05-01T12:00:00Z"},
			 {"comment_id":"c2","text":"there","parent_id":"c1"}]`))
		require.NoError(t, err)
		require.Len(t, comments, 2)
		assert.Equal(t, 3, comments[0].LikeCount)
		assert.Equal(t, t0, comments[0].PublishedAt)
		assert.Equal(t, "c1", comments[1].ParentID)
	})

	t.Run("json lines", func(t *testing.T) {
		comments, err := DecodeComments(strings.NewReader("{\"comment_id\":\"c1\",\"text\":\"hi\"}\n\n{\"comment_id\":\"c2\",\"text\":\"yo\"}\n"))
		require.NoError(t, err)
		require.Len(t, comments, 2)
		assert.Equal(t, "c2", comments[1].ID)
	})

	t.Run("bad line", func(t *testing.T) {
		_, err := DecodeComments(strings.NewReader("{\"comment_id\":\"c1\"}\nnot json\n"))
		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.Contains(t, err.Error(), "line 2")
	})

	t.Run("empty", func(t *testing.T) {
		_, err := DecodeComments(strings.NewReader("  \n"))
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}
