package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"dubstudio/internal/api/errors"
	"dubstudio/internal/api/middleware"
	"dubstudio/internal/api/v1/dto"
	"dubstudio/internal/api/v1/services"
	"dubstudio/internal/app/auth"
	apperrors "dubstudio/internal/app/errors"
	"dubstudio/internal/app/model"
)

// ChatHandler handles chat sessions
type ChatHandler struct {
	chat   services.ChatService
	events services.EventService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chat services.ChatService, events services.EventService) *ChatHandler {
	return &ChatHandler{chat: chat, events: events}
}

func caller(c *gin.Context) (*auth.Principal, bool) {
	p := auth.FromContext(c.Request.Context())
	if p == nil {
		middleware.HandleError(c, apperrors.ErrUnauthenticated)
		return nil, false
	}
	return p, true
}

// Session returns the caller's active session, creating it on first use
// @Summary Get or create the chat session
// @Tags Chat
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.SessionResponse
// @Failure 401 {object} errors.APIError
// @Router /api/v1/chat/session [post]
func (h *ChatHandler) Session(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	session, err := h.chat.GetOrCreateSession(c.Request.Context(), p.UID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSessionResponse(session))
}

// Messages returns the most recent messages of a session, oldest first
// @Summary List recent messages
// @Tags Chat
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Param limit query int false "Window size" minimum(1) maximum(200)
// @Success 200 {object} dto.MessageListResponse
// @Failure 404 {object} errors.APIError
// @Router /api/v1/chat/sessions/{id}/messages [get]
func (h *ChatHandler) Messages(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 200 {
			middleware.HandleError(c, errors.NewValidationError("Invalid query parameters",
				map[string]string{"limit": "must be between 1 and 200"}))
			return
		}
		limit = n
	}

	sessionID := c.Param("id")
	if _, err := h.chat.Session(c.Request.Context(), p.UID, sessionID); err != nil {
		middleware.HandleError(c, err)
		return
	}
	msgs, err := h.chat.RecentMessages(c.Request.Context(), sessionID, limit)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	resp := dto.MessageListResponse{Messages: make([]*dto.MessageResponse, 0, len(msgs))}
	for _, m := range msgs {
		resp.Messages = append(resp.Messages, dto.NewMessageResponse(m))
	}
	c.JSON(http.StatusOK, resp)
}

// PostMessage appends a user message; the assistant replies asynchronously
// @Summary Post a message
// @Tags Chat
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Param request body dto.PostMessageRequest true "Message"
// @Success 201 {object} dto.MessageResponse
// @Failure 404 {object} errors.APIError
// @Failure 422 {object} errors.APIError
// @Router /api/v1/chat/sessions/{id}/messages [post]
func (h *ChatHandler) PostMessage(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	var req dto.PostMessageRequest
	if err := middleware.ValidateRequest(c, &req); err != nil {
		middleware.HandleError(c, err)
		return
	}

	msg, err := h.chat.PostMessage(c.Request.Context(), p.UID, c.Param("id"), req.Content)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewMessageResponse(msg))
}

// Events streams the recent window of a session and every later message
// @Summary Stream session messages
// @Tags Chat
// @Produce text/event-stream
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Param access_token query string false "Token for clients that cannot set headers"
// @Success 200 {object} dto.MessageResponse
// @Router /api/v1/chat/sessions/{id}/events [get]
func (h *ChatHandler) Events(c *gin.Context) {
	msgs, err := h.events.WatchSession(c.Request.Context(), auth.FromContext(c.Request.Context()), c.Param("id"))
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	stream(c, msgs, func(m *model.ChatMessage) (string, interface{}) {
		return "message", dto.NewMessageResponse(m)
	})
}
