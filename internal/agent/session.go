package agent

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/capitalize-ai/comment-consultant/internal/model"
	"github.com/capitalize-ai/comment-consultant/pkg/metrics"
)

// SessionStore holds one ConversationState per user. It is bounded in size
// and forgets sessions that were not updated within the TTL. Updates for
// the same user are serialized; different users never wait on each other.
type SessionStore struct {
	cache *expirable.LRU[string, model.ConversationState]
	now   func() time.Time

	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

// NewSessionStore creates a store holding at most capacity sessions.
func NewSessionStore(capacity int, ttl time.Duration) *SessionStore {
	if capacity <= 0 {
		capacity = 10000
	}
	s := &SessionStore{
		now:   time.Now,
		locks: make(map[string]*userLock),
	}
	s.cache = expirable.NewLRU[string, model.ConversationState](capacity, nil, ttl)
	return s
}

// Get returns a copy of the user's session.
func (s *SessionStore) Get(userID string) (model.ConversationState, bool) {
	return s.cache.Get(userID)
}

// Update runs fn on the user's session (a fresh one when none exists) and
// stores the result unless fn fails. Concurrent updates for the same user
// run one after another, so each sees the state written by the previous one.
func (s *SessionStore) Update(userID string, fn func(*model.ConversationState) error) (model.ConversationState, error) {
	l := s.lock(userID)
	defer s.unlock(userID, l)

	state, ok := s.cache.Get(userID)
	if !ok {
		now := s.now()
		state = model.ConversationState{UserID: userID, CreatedAt: now, UpdatedAt: now}
	}
	if err := fn(&state); err != nil {
		return state, err
	}
	state.UpdatedAt = s.now()
	s.cache.Add(userID, state)
	metrics.SessionsActive.Set(float64(s.cache.Len()))
	return state, nil
}

// Clear forgets the user's session.
func (s *SessionStore) Clear(userID string) bool {
	l := s.lock(userID)
	defer s.unlock(userID, l)
	removed := s.cache.Remove(userID)
	metrics.SessionsActive.Set(float64(s.cache.Len()))
	return removed
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	return s.cache.Len()
}

func (s *SessionStore) lock(userID string) *userLock {
	s.mu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &userLock{}
		s.locks[userID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return l
}

func (s *SessionStore) unlock(userID string, l *userLock) {
	l.mu.Unlock()

	s.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(s.locks, userID)
	}
	s.mu.Unlock()
}
