// Package chat manages chat sessions and their message logs
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	apperrors "dubstudio/internal/app/errors"
	"dubstudio/internal/app/model"
	"dubstudio/internal/app/pubsub"
	"dubstudio/internal/app/repository"
)

// InitialWindow is the number of recent messages a session view starts with
const InitialWindow = 50

// Service creates sessions and appends messages
type Service struct {
	dao    repository.ChatDAO
	hub    pubsub.Hub
	logger *zap.Logger
	now    func() time.Time
	newID  func() string

	createMu sync.Mutex

	stampMu   sync.Mutex
	lastStamp map[string]time.Time
	lastPrune time.Time
}

// stampRetention is how long a session's last timestamp is remembered. Past
// it the clock has moved on and a fresh reading is already later.
const stampRetention = 5 * time.Second

// NewService creates a chat service
func NewService(dao repository.ChatDAO, hub pubsub.Hub, logger *zap.Logger) *Service {
	return &Service{
		dao:       dao,
		hub:       hub,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
		lastStamp: make(map[string]time.Time),
	}
}

// GetOrCreateSession returns the owner's active session, creating it on first access
func (s *Service) GetOrCreateSession(ctx context.Context, ownerID string) (*model.ChatSession, error) {
	s.createMu.Lock()
	defer s.createMu.Unlock()

	session, err := s.dao.ActiveSession(ctx, ownerID)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, apperrors.ErrSessionNotFound) {
		return nil, apperrors.Internal(err, "failed to look up chat session")
	}

	session = &model.ChatSession{
		ID:        s.newID(),
		OwnerID:   ownerID,
		Status:    model.SessionActive,
		CreatedAt: s.now(),
	}
	if err := s.dao.CreateSession(ctx, session); err != nil {
		return nil, apperrors.Internal(err, "failed to create chat session")
	}
	s.logger.Info("chat session created", zap.String("session_id", session.ID), zap.String("owner_id", ownerID))
	return session, nil
}

// Session returns a session owned by ownerID. Sessions of other owners are reported as not found.
func (s *Service) Session(ctx context.Context, ownerID, sessionID string) (*model.ChatSession, error) {
	session, err := s.dao.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.OwnerID != ownerID {
		return nil, apperrors.ErrSessionNotFound
	}
	return session, nil
}

// PostMessage appends a user message to one of the owner's sessions
func (s *Service) PostMessage(ctx context.Context, ownerID, sessionID, content string) (*model.ChatMessage, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperrors.RequiredFields("Message content is required.", "content")
	}
	if _, err := s.Session(ctx, ownerID, sessionID); err != nil {
		return nil, err
	}
	return s.Append(ctx, &model.ChatMessage{
		SessionID: sessionID,
		Sender:    ownerID,
		Content:   content,
		Type:      model.MessageTypeText,
	})
}

// RecentMessages returns up to limit of the latest messages, oldest first
func (s *Service) RecentMessages(ctx context.Context, sessionID string, limit int) ([]*model.ChatMessage, error) {
	if limit <= 0 {
		limit = InitialWindow
	}
	msgs, err := s.dao.LatestMessages(ctx, sessionID, limit)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to load chat messages")
	}
	return lo.Reverse(msgs), nil
}

// Append assigns id and timestamp, persists msg and announces it
func (s *Service) Append(ctx context.Context, msg *model.ChatMessage) (*model.ChatMessage, error) {
	m := *msg
	if m.ID == "" {
		m.ID = s.newID()
	}
	if m.Type == "" {
		m.Type = model.MessageTypeText
	}
	m.Timestamp = s.stamp(m.SessionID)

	if err := s.dao.AppendMessage(ctx, &m); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(&m)
	if err != nil {
		return &m, nil
	}
	for _, topic := range []string{pubsub.SessionTopic(m.SessionID), pubsub.SessionMessagesTopic} {
		if err := s.hub.Publish(ctx, topic, payload); err != nil {
			s.logger.Warn("failed to publish chat message",
				zap.String("topic", topic),
				zap.String("message_id", m.ID),
				zap.Error(err))
		}
	}
	return &m, nil
}

// MessagesBefore returns up to limit messages older than before, newest first
func (s *Service) MessagesBefore(ctx context.Context, sessionID string, before time.Time, limit int) ([]*model.ChatMessage, error) {
	return s.dao.MessagesBefore(ctx, sessionID, before, limit)
}

// TouchSession records the last assistant interaction
func (s *Service) TouchSession(ctx context.Context, sessionID string, at time.Time) error {
	return s.dao.TouchSession(ctx, sessionID, at)
}

// stamp returns a timestamp strictly after every earlier one in the session, at
// the microsecond precision both SQL backends keep
func (s *Service) stamp(sessionID string) time.Time {
	s.stampMu.Lock()
	defer s.stampMu.Unlock()
	ts := s.now().Truncate(time.Microsecond)
	if last, ok := s.lastStamp[sessionID]; ok && !ts.After(last) {
		ts = last.Add(time.Microsecond)
	}
	s.lastStamp[sessionID] = ts

	if ts.Sub(s.lastPrune) > stampRetention {
		for id, last := range s.lastStamp {
			if ts.Sub(last) > stampRetention {
				delete(s.lastStamp, id)
			}
		}
		s.lastPrune = ts
	}
	return ts
}
