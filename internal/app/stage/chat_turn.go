package stage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"dubstudio/internal/app/chatmodel"
	"dubstudio/internal/app/model"
)

// ChatHistoryWindow is the number of earlier messages sent as context
const ChatHistoryWindow = 10

// Assistant reply texts
const (
	ReplyEmpty       = "Sorry, I could not generate a response."
	ReplyUnavailable = "Sorry, I am currently unable to process your request as the AI model is not available."
	replyFailed      = "Sorry, I encountered an error trying to respond."
)

// HistorySource reads earlier messages of a session
type HistorySource interface {
	// MessagesBefore returns up to limit messages older than before, newest first
	MessagesBefore(ctx context.Context, sessionID string, before time.Time, limit int) ([]*model.ChatMessage, error)
}

// MessageSink appends messages to a session log
type MessageSink interface {
	// Append assigns id and timestamp, persists and publishes msg
	Append(ctx context.Context, msg *model.ChatMessage) (*model.ChatMessage, error)
	TouchSession(ctx context.Context, sessionID string, at time.Time) error
}

// ChatTurn answers one user message with exactly one assistant message
type ChatTurn struct {
	completer chatmodel.Completer
	history   HistorySource
	sink      MessageSink
	logger    *zap.Logger
	now       func() time.Time
}

// NewChatTurn creates the chat stage. completer may be nil when no model client
// could be initialized; every turn is then answered with an error-flagged reply.
func NewChatTurn(completer chatmodel.Completer, history HistorySource, sink MessageSink, logger *zap.Logger) *ChatTurn {
	return &ChatTurn{
		completer: completer,
		history:   history,
		sink:      sink,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *ChatTurn) Name() string { return NameChatTurn }

// ShouldRespond reports whether msg triggers a turn
func ShouldRespond(msg *model.ChatMessage) bool {
	return msg != nil && !msg.FromAssistant() && msg.Content != ""
}

// Run answers trigger and returns the persisted assistant message. An error is
// returned only when the reply itself could not be persisted.
func (s *ChatTurn) Run(ctx context.Context, trigger *model.ChatMessage) (*model.ChatMessage, error) {
	reply := &model.ChatMessage{
		SessionID:         trigger.SessionID,
		Sender:            model.AssistantID,
		Type:              model.MessageTypeText,
		OriginalMessageID: trigger.ID,
		UserID:            trigger.Sender,
	}

	if s.completer == nil {
		s.logger.Error("chat model client is not initialized, cannot process message",
			zap.String("session_id", trigger.SessionID),
			zap.String("message_id", trigger.ID))
		reply.Content = ReplyUnavailable
		reply.Error = true
		return s.sink.Append(ctx, reply)
	}

	text, err := s.complete(ctx, trigger)
	switch {
	case err != nil:
		s.logger.Error("chat completion failed",
			zap.String("session_id", trigger.SessionID),
			zap.String("message_id", trigger.ID),
			zap.Error(err))
		reply.Content = failureReply(err)
		reply.Error = true
	case strings.TrimSpace(text) == "":
		reply.Content = ReplyEmpty
	default:
		reply.Content = text
	}

	saved, err := s.sink.Append(ctx, reply)
	if err != nil {
		return nil, fmt.Errorf("failed to save assistant reply: %w", err)
	}
	if !reply.Error {
		if err := s.sink.TouchSession(ctx, trigger.SessionID, s.now()); err != nil {
			s.logger.Warn("failed to update session last interaction",
				zap.String("session_id", trigger.SessionID), zap.Error(err))
		}
	}
	return saved, nil
}

func (s *ChatTurn) complete(ctx context.Context, trigger *model.ChatMessage) (string, error) {
	before := trigger.Timestamp
	if before.IsZero() {
		before = s.now()
	}
	recent, err := s.history.MessagesBefore(ctx, trigger.SessionID, before, ChatHistoryWindow)
	if err != nil {
		return "", fmt.Errorf("failed to load chat history: %w", err)
	}

	history := lo.Map(lo.Reverse(recent), func(m *model.ChatMessage, _ int) chatmodel.Turn {
		role := chatmodel.RoleModel
		if m.Sender == trigger.Sender {
			role = chatmodel.RoleUser
		}
		return chatmodel.Turn{Role: role, Text: m.Content}
	})

	return s.completer.Complete(ctx, history, trigger.Content)
}

func failureReply(err error) string {
	var blocked *chatmodel.BlockedError
	if errors.As(err, &blocked) {
		return fmt.Sprintf("%s (Reason: %s)", replyFailed, blocked.Reason)
	}
	return fmt.Sprintf("%s (%s)", replyFailed, err.Error())
}
