package model

import (
	"time"
)

// AssistantID is the sender identity of every AI-authored chat message
const AssistantID = "ai_assistant_01"

// MessageTypeText is the only message type produced by the assistant
const MessageTypeText = "text"

// SessionStatus is the lifecycle state of a chat session
type SessionStatus string

const (
	SessionActive SessionStatus = "active"
	SessionEnded  SessionStatus = "ended"
)

// ChatSession owns an ordered, append-only log of messages
type ChatSession struct {
	ID              string        `json:"id"`
	OwnerID         string        `json:"ownerId"`
	Status          SessionStatus `json:"status"`
	CreatedAt       time.Time     `json:"createdAt"`
	LastInteraction *time.Time    `json:"lastInteraction,omitempty"`
}

// ChatMessage is immutable once written
type ChatMessage struct {
	ID                string    `json:"id"`
	SessionID         string    `json:"sessionId"`
	Sender            string    `json:"sender"`
	Content           string    `json:"content"`
	Type              string    `json:"type"`
	Error             bool      `json:"error,omitempty"`
	OriginalMessageID string    `json:"originalMessageId,omitempty"`
	UserID            string    `json:"userId,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

// FromAssistant reports whether the message was authored by the assistant
func (m *ChatMessage) FromAssistant() bool {
	return m.Sender == AssistantID
}
