package jobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	apperrors "dubstudio/internal/app/errors"
	"dubstudio/internal/app/model"
	"dubstudio/internal/app/pubsub"
)

// EventType tags a job change event
type EventType string

const (
	// EventSnapshot carries the full job after a mutation
	EventSnapshot EventType = "snapshot"
	// EventNotFound is the only event of a subscription to an unknown job
	EventNotFound EventType = "not_found"
	// EventDeleted ends a subscription whose job was removed
	EventDeleted EventType = "deleted"
)

// Event is one notification on a job subscription
type Event struct {
	Type    EventType  `json:"type"`
	JobID   string     `json:"jobId"`
	Job     *model.Job `json:"job,omitempty"`
	Message string     `json:"message,omitempty"`
}

// Final reports whether no events follow this one
func (e Event) Final() bool {
	if e.Type != EventSnapshot {
		return true
	}
	return e.Job != nil && e.Job.Status.IsTerminal()
}

// Subscribe streams the current snapshot of the job followed by every later
// mutation in apply order. The channel closes after a terminal snapshot, after a
// not-found or deleted event, or when ctx is cancelled.
func (s *Store) Subscribe(ctx context.Context, id string) (<-chan Event, error) {
	// subscribe before reading so no mutation between the two is lost
	sub, err := s.hub.Subscribe(ctx, pubsub.JobTopic(id))
	if err != nil {
		return nil, fmt.Errorf("subscribe to job %s: %w", id, err)
	}

	job, err := s.dao.GetJob(ctx, id)
	if err != nil && !errors.Is(err, apperrors.ErrJobNotFound) {
		sub.Close()
		return nil, err
	}

	out := make(chan Event, 1)
	if job == nil {
		sub.Close()
		out <- Event{Type: EventNotFound, JobID: id, Message: fmt.Sprintf("job %s not found", id)}
		close(out)
		return out, nil
	}

	go s.forward(ctx, id, job, sub, out)
	return out, nil
}

func (s *Store) forward(ctx context.Context, id string, initial *model.Job, sub pubsub.Subscription, out chan<- Event) {
	defer close(out)
	defer sub.Close()

	send := func(ev Event) bool {
		select {
		case out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	first := Event{Type: EventSnapshot, JobID: id, Job: initial}
	if !send(first) || first.Final() {
		return
	}
	lastVersion := initial.Version

	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-sub.C():
			if !ok {
				return
			}
			var ev Event
			if err := json.Unmarshal(payload, &ev); err != nil {
				s.logger.Warn("dropping malformed job event", zap.String("job_id", id), zap.Error(err))
				continue
			}
			switch ev.Type {
			case EventDeleted:
				ev.Message = fmt.Sprintf("job %s no longer found", id)
				send(ev)
				return
			case EventSnapshot:
				// already covered by the initial read or an earlier event
				if ev.Job == nil || ev.Job.Version <= lastVersion {
					continue
				}
				lastVersion = ev.Job.Version
				if !send(ev) || ev.Final() {
					return
				}
			}
		}
	}
}
