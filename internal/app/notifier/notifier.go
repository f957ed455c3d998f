// Package notifier exposes job and chat session change streams to remote,
// authenticated subscribers
package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"dubstudio/internal/app/auth"
	apperrors "dubstudio/internal/app/errors"
	"dubstudio/internal/app/jobstore"
	"dubstudio/internal/app/model"
	"dubstudio/internal/app/pubsub"
)

// SessionReader is the part of the chat service a session stream needs
type SessionReader interface {
	Session(ctx context.Context, ownerID, sessionID string) (*model.ChatSession, error)
	RecentMessages(ctx context.Context, sessionID string, limit int) ([]*model.ChatMessage, error)
}

// Notifier opens change streams on behalf of a caller
type Notifier struct {
	jobs     *jobstore.Store
	sessions SessionReader
	hub      pubsub.Hub
	logger   *zap.Logger
	window   int
}

// New creates a notifier
func New(jobs *jobstore.Store, sessions SessionReader, hub pubsub.Hub, logger *zap.Logger) *Notifier {
	return &Notifier{jobs: jobs, sessions: sessions, hub: hub, logger: logger, window: 50}
}

// WatchJob streams snapshots of a job owned by the caller. A job owned by
// someone else is indistinguishable from a missing one.
func (n *Notifier) WatchJob(ctx context.Context, principal *auth.Principal, jobID string) (<-chan jobstore.Event, error) {
	if principal == nil {
		return nil, apperrors.ErrUnauthenticated
	}

	ctx, cancel := context.WithCancel(ctx)
	events, err := n.jobs.Subscribe(ctx, jobID)
	if err != nil {
		cancel()
		return nil, apperrors.Internal(err, "failed to subscribe to job")
	}

	out := make(chan jobstore.Event)
	go func() {
		defer close(out)
		defer cancel()

		first, ok := <-events
		if !ok {
			return
		}
		if first.Type == jobstore.EventSnapshot && first.Job.OwnerID != principal.UID {
			first = jobstore.Event{Type: jobstore.EventNotFound, JobID: jobID, Message: fmt.Sprintf("job %s not found", jobID)}
		}

		for ev := first; ; {
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
			if ev.Final() {
				return
			}
			if ev, ok = <-events; !ok {
				return
			}
		}
	}()
	return out, nil
}

// WatchSession streams the latest messages of a session, oldest first, then
// every message appended afterwards
func (n *Notifier) WatchSession(ctx context.Context, principal *auth.Principal, sessionID string) (<-chan *model.ChatMessage, error) {
	if principal == nil {
		return nil, apperrors.ErrUnauthenticated
	}
	if _, err := n.sessions.Session(ctx, principal.UID, sessionID); err != nil {
		return nil, err
	}

	// subscribe before the initial read so nothing falls between the two
	sub, err := n.hub.Subscribe(ctx, pubsub.SessionTopic(sessionID))
	if err != nil {
		return nil, apperrors.Internal(err, "failed to subscribe to session")
	}
	initial, err := n.sessions.RecentMessages(ctx, sessionID, n.window)
	if err != nil {
		sub.Close()
		return nil, err
	}

	out := make(chan *model.ChatMessage)
	go func() {
		defer close(out)
		defer sub.Close()

		seen := make(map[string]bool, len(initial))
		send := func(m *model.ChatMessage) bool {
			if seen[m.ID] {
				return true
			}
			seen[m.ID] = true
			select {
			case out <- m:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for _, m := range initial {
			if !send(m) {
				return
			}
		}
		for {
			select {
			case <-ctx.Done():
				return
			case payload, ok := <-sub.C():
				if !ok {
					return
				}
				var m model.ChatMessage
				if err := json.Unmarshal(payload, &m); err != nil {
					n.logger.Warn("dropping malformed chat event", zap.String("session_id", sessionID), zap.Error(err))
					continue
				}
				if !send(&m) {
					return
				}
			}
		}
	}()
	return out, nil
}
