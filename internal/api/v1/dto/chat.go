package dto

import (
	"time"

	"dubstudio/internal/app/model"
)

// PostMessageRequest appends a user message to a session
type PostMessageRequest struct {
	Content string `json:"content"`
}

// SessionResponse represents a chat session
type SessionResponse struct {
	ID              string     `json:"id"`
	Status          string     `json:"status"`
	CreatedAt       time.Time  `json:"createdAt"`
	LastInteraction *time.Time `json:"lastInteraction,omitempty"`
}

// NewSessionResponse converts a session for the API
func NewSessionResponse(s *model.ChatSession) *SessionResponse {
	return &SessionResponse{
		ID:              s.ID,
		Status:          string(s.Status),
		CreatedAt:       s.CreatedAt,
		LastInteraction: s.LastInteraction,
	}
}

// MessageResponse represents a chat message
type MessageResponse struct {
	ID                string    `json:"id"`
	SessionID         string    `json:"sessionId"`
	Sender            string    `json:"sender"`
	Content           string    `json:"content"`
	Type              string    `json:"type"`
	Error             bool      `json:"error,omitempty"`
	OriginalMessageID string    `json:"originalMessageId,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

// NewMessageResponse converts a message for the API
func NewMessageResponse(m *model.ChatMessage) *MessageResponse {
	return &MessageResponse{
		ID:                m.ID,
		SessionID:         m.SessionID,
		Sender:            m.Sender,
		Content:           m.Content,
		Type:              m.Type,
		Error:             m.Error,
		OriginalMessageID: m.OriginalMessageID,
		Timestamp:         m.Timestamp,
	}
}

// MessageListResponse holds messages oldest first
type MessageListResponse struct {
	Messages []*MessageResponse `json:"messages"`
}
