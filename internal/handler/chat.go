package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/capitalize-ai/comment-consultant/internal/middleware"
	"github.com/capitalize-ai/comment-consultant/internal/model"
	"github.com/capitalize-ai/comment-consultant/internal/service"
	"github.com/capitalize-ai/comment-consultant/pkg/logger"
)

// ChatHandler handles agent turns and session endpoints.
type ChatHandler struct {
	chat   *service.ChatService
	logger *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(chat *service.ChatService, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		chat:   chat,
		logger: log.Component("chat_handler"),
	}
}

// Send handles POST /api/v1/chat
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req model.ChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateMessageContent(req.Message); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.chat.Send(ctx, userID, &req)
	if err != nil {
		status, msg := errorStatus(err)
		if status >= http.StatusInternalServerError {
			h.logger.WithContext(middleware.GetCorrelationID(ctx), userID).
				Error("turn failed", zap.Error(err))
		}
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Session handles GET /api/v1/session
func (h *ChatHandler) Session(w http.ResponseWriter, r *http.Request) {
	state, ok := h.chat.Session(middleware.GetUserID(r.Context()))
	if !ok {
		writeError(w, http.StatusNotFound, "no session")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// ClearSession handles DELETE /api/v1/session
func (h *ChatHandler) ClearSession(w http.ResponseWriter, r *http.Request) {
	h.chat.ClearSession(middleware.GetUserID(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}
