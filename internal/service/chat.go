package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/comment-consultant/internal/agent"
	"github.com/capitalize-ai/comment-consultant/internal/model"
	"github.com/capitalize-ai/comment-consultant/pkg/logger"
)

// MaxMessageLength bounds a single user utterance in runes.
const MaxMessageLength = 4000

// ChatService runs agent turns against per-user sessions.
type ChatService struct {
	agent    *agent.Agent
	sessions *agent.SessionStore
	events   EventPublisher
	logger   *logger.Logger
}

// NewChatService creates a new chat service.
func NewChatService(a *agent.Agent, sessions *agent.SessionStore, events EventPublisher, log *logger.Logger) *ChatService {
	return &ChatService{
		agent:    a,
		sessions: sessions,
		events:   events,
		logger:   log.Component("chat"),
	}
}

// Send runs one turn for the user. Turns of the same user are serialised, so
// each starts from the session the previous one left behind.
func (s *ChatService) Send(ctx context.Context, userID string, req *model.ChatRequest) (*model.ChatResponse, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, fmt.Errorf("%w: message is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(message) > MaxMessageLength {
		return nil, fmt.Errorf("%w: message exceeds %d characters", ErrInvalidInput, MaxMessageLength)
	}

	start := time.Now()
	var res *agent.TurnResult
	session, err := s.sessions.Update(userID, func(st *model.ConversationState) error {
		res = s.agent.Turn(ctx, *st, message)
		*st = res.Session
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to run turn: %w", err)
	}

	resp := &model.ChatResponse{
		TurnID:    uuid.Must(uuid.NewV7()).String(),
		Answer:    res.Answer,
		VideoID:   session.VideoID,
		Tools:     traces(res.Results),
		Degraded:  res.Degraded,
		LatencyMs: time.Since(start).Milliseconds(),
		CreatedAt: time.Now().UTC(),
	}

	s.publishTurn(ctx, userID, resp)
	return resp, nil
}

// Session returns the user's conversation state.
func (s *ChatService) Session(userID string) (model.ConversationState, bool) {
	return s.sessions.Get(userID)
}

// ClearSession forgets the user's conversation state.
func (s *ChatService) ClearSession(userID string) bool {
	return s.sessions.Clear(userID)
}

func traces(results []agent.Result) []model.ToolTrace {
	if len(results) == 0 {
		return nil
	}
	out := make([]model.ToolTrace, len(results))
	for i, r := range results {
		out[i] = model.ToolTrace{
			Tool:    r.Executed,
			Success: r.Envelope.Success,
			Error:   r.Envelope.Error,
		}
	}
	return out
}

func (s *ChatService) publishTurn(ctx context.Context, userID string, resp *model.ChatResponse) {
	if s.events == nil {
		return
	}
	event := &model.TurnEvent{
		ID:        resp.TurnID,
		Type:      model.EventTurnCompleted,
		UserID:    userID,
		VideoID:   resp.VideoID,
		Tools:     resp.Tools,
		Degraded:  resp.Degraded,
		LatencyMs: resp.LatencyMs,
		CreatedAt: resp.CreatedAt,
	}
	if _, err := s.events.PublishTurnEvent(ctx, event); err != nil {
		s.logger.Warn("failed to publish turn event", zap.String("user_id", userID), zap.Error(err))
	}
}
