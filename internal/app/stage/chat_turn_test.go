package stage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dubstudio/internal/app/chatmodel"
	"dubstudio/internal/app/model"
	"dubstudio/internal/app/repository/memory"
)

type mockCompleter struct {
	mock.Mock
}

func (m *mockCompleter) Complete(ctx context.Context, history []chatmodel.Turn, message string) (string, error) {
	args := m.Called(ctx, history, message)
	return args.String(0), args.Error(1)
}

// memorySink appends to a memory store the way the chat service does
type memorySink struct {
	mu      sync.Mutex
	store   *memory.Store
	next    int
	clock   time.Time
	touched int
}

func (s *memorySink) Append(ctx context.Context, msg *model.ChatMessage) (*model.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.clock = s.clock.Add(time.Second)
	msg.ID = fmt.Sprintf("reply-%d", s.next)
	msg.Timestamp = s.clock
	return msg, s.store.AppendMessage(ctx, msg)
}

func (s *memorySink) TouchSession(ctx context.Context, sessionID string, at time.Time) error {
	s.mu.Lock()
	s.touched++
	s.mu.Unlock()
	return s.store.TouchSession(ctx, sessionID, at)
}

func newChatFixture(t *testing.T) (*memory.Store, *memorySink, time.Time) {
	t.Helper()
	store := memory.New()
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.CreateSession(context.Background(), &model.ChatSession{
		ID: "s1", OwnerID: "u1", Status: model.SessionActive, CreatedAt: base,
	}))
	return store, &memorySink{store: store, clock: base.Add(time.Hour)}, base
}

func userMessage(t *testing.T, store *memory.Store, id, content string, at time.Time) *model.ChatMessage {
	t.Helper()
	msg := &model.ChatMessage{ID: id, SessionID: "s1", Sender: "u1", Content: content, Type: model.MessageTypeText, Timestamp: at}
	require.NoError(t, store.AppendMessage(context.Background(), msg))
	return msg
}

func TestChatTurn_RoundTripEmptyHistory(t *testing.T) {
	store, sink, base := newChatFixture(t)
	trigger := userMessage(t, store, "m1", "hello", base.Add(time.Minute))

	completer := &mockCompleter{}
	completer.On("Complete", mock.Anything, []chatmodel.Turn{}, "hello").Return("Hi! How can I help?", nil)

	reply, err := NewChatTurn(completer, store, sink, zap.NewNop()).Run(context.Background(), trigger)
	require.NoError(t, err)

	assert.Equal(t, model.AssistantID, reply.Sender)
	assert.Equal(t, "Hi! How can I help?", reply.Content)
	assert.Equal(t, "m1", reply.OriginalMessageID)
	assert.Equal(t, "u1", reply.UserID)
	assert.False(t, reply.Error)

	log, err := store.LatestMessages(context.Background(), "s1", 50)
	require.NoError(t, err)
	require.Len(t, log, 2)
	assert.Equal(t, reply.ID, log[0].ID, "reply is appended after the user message")
	assert.Equal(t, "m1", log[1].ID)
	assert.Equal(t, 1, sink.touched)
	completer.AssertExpectations(t)
}

func TestChatTurn_HistoryWindow(t *testing.T) {
	store, sink, base := newChatFixture(t)
	for i := 0; i < 15; i++ {
		sender := "u1"
		if i%2 == 1 {
			sender = model.AssistantID
		}
		require.NoError(t, store.AppendMessage(context.Background(), &model.ChatMessage{
			ID: fmt.Sprintf("h%02d", i), SessionID: "s1", Sender: sender,
			Content: fmt.Sprintf("msg %d", i), Timestamp: base.Add(time.Duration(i) * time.Second),
		}))
	}
	trigger := userMessage(t, store, "now", "latest", base.Add(time.Minute))

	var history []chatmodel.Turn
	completer := &mockCompleter{}
	completer.On("Complete", mock.Anything, mock.Anything, "latest").
		Run(func(args mock.Arguments) { history = args.Get(1).([]chatmodel.Turn) }).
		Return("ok", nil)

	_, err := NewChatTurn(completer, store, sink, zap.NewNop()).Run(context.Background(), trigger)
	require.NoError(t, err)

	require.Len(t, history, ChatHistoryWindow)
	assert.Equal(t, chatmodel.Turn{Role: chatmodel.RoleModel, Text: "msg 5"}, history[0])
	assert.Equal(t, chatmodel.Turn{Role: chatmodel.RoleUser, Text: "msg 14"}, history[9])
}

func TestChatTurn_Replies(t *testing.T) {
	tests := []struct {
		name        string
		completer   func() chatmodel.Completer
		wantContent string
		wantError   bool
	}{
		{
			name: "empty model output",
			completer: func() chatmodel.Completer {
				m := &mockCompleter{}
				m.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("  ", nil)
				return m
			},
			wantContent: ReplyEmpty,
		},
		{
			name:        "model unavailable",
			completer:   func() chatmodel.Completer { return nil },
			wantContent: ReplyUnavailable,
			wantError:   true,
		},
		{
			name: "model failure",
			completer: func() chatmodel.Completer {
				m := &mockCompleter{}
				m.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("deadline exceeded"))
				return m
			},
			wantContent: "Sorry, I encountered an error trying to respond. (deadline exceeded)",
			wantError:   true,
		},
		{
			name: "prompt blocked",
			completer: func() chatmodel.Completer {
				m := &mockCompleter{}
				m.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("", &chatmodel.BlockedError{Reason: "SAFETY"})
				return m
			},
			wantContent: "Sorry, I encountered an error trying to respond. (Reason: SAFETY)",
			wantError:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, sink, base := newChatFixture(t)
			trigger := userMessage(t, store, "m1", "hello", base.Add(time.Minute))

			reply, err := NewChatTurn(tt.completer(), store, sink, zap.NewNop()).Run(context.Background(), trigger)
			require.NoError(t, err)
			assert.Equal(t, tt.wantContent, reply.Content)
			assert.Equal(t, tt.wantError, reply.Error)
			assert.Equal(t, model.AssistantID, reply.Sender)

			log, err := store.LatestMessages(context.Background(), "s1", 50)
			require.NoError(t, err)
			assert.Len(t, log, 2, "exactly one reply per turn")
		})
	}
}

func TestShouldRespond(t *testing.T) {
	assert.True(t, ShouldRespond(&model.ChatMessage{Sender: "u1", Content: "hello"}))
	assert.False(t, ShouldRespond(&model.ChatMessage{Sender: model.AssistantID, Content: "hello"}))
	assert.True(t, ShouldRespond(&model.ChatMessage{Sender: "u1", Content: "   "}))
	assert.False(t, ShouldRespond(&model.ChatMessage{Sender: "u1", Content: ""}))
	assert.False(t, ShouldRespond(nil))
}
