package agent

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/comment-consultant/internal/model"
)

func TestSessionStoreUpdate(t *testing.T) {
	s := NewSessionStore(10, time.Hour)

	_, ok := s.Get("u1")
	assert.False(t, ok)

	state, err := s.Update("u1", func(st *model.ConversationState) error {
		st.VideoID = testVideo
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "u1", state.UserID)
	assert.False(t, state.CreatedAt.IsZero())

	got, ok := s.Get("u1")
	require.True(t, ok)
	assert.Equal(t, testVideo, got.VideoID)

	// A failing update leaves the stored session untouched.
	_, err = s.Update("u1", func(st *model.ConversationState) error {
		st.VideoID = "changed"
		return errors.New("boom")
	})
	assert.Error(t, err)
	got, _ = s.Get("u1")
	assert.Equal(t, testVideo, got.VideoID)

	assert.True(t, s.Clear("u1"))
	_, ok = s.Get("u1")
	assert.False(t, ok)
	assert.False(t, s.Clear("u1"))
}

func TestSessionStoreSerializesPerUser(t *testing.T) {
	s := NewSessionStore(10, time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Update("u1", func(st *model.ConversationState) error {
				turns := st.Turns
				time.Sleep(time.Millisecond)
				st.Turns = turns + 1
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, ok := s.Get("u1")
	require.True(t, ok)
	assert.Equal(t, 50, got.Turns)
	assert.Empty(t, s.locks)
}

func TestSessionStoreBounds(t *testing.T) {
	s := NewSessionStore(2, time.Hour)
	for _, u := range []string{"a", "b", "c"} {
		_, err := s.Update(u, func(*model.ConversationState) error { return nil })
		require.NoError(t, err)
	}
	assert.Equal(t, 2, s.Len())
	_, ok := s.Get("a")
	assert.False(t, ok)
}

func TestSessionStoreExpires(t *testing.T) {
	s := NewSessionStore(10, 50*time.Millisecond)
	_, err := s.Update("u1", func(*model.ConversationState) error { return nil })
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		_, ok := s.Get("u1")
		return !ok
	}, 2*time.Second, 20*time.Millisecond)
}
