package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	apperrors "dubstudio/internal/app/errors"
	"dubstudio/internal/app/model"
	"dubstudio/internal/app/repository"
)

// Store keeps jobs and chat logs in process memory. Used for development and tests.
type Store struct {
	mu       sync.RWMutex
	jobs     map[string]*model.Job
	sessions map[string]*model.ChatSession
	messages map[string][]*model.ChatMessage
}

var _ repository.Store = (*Store)(nil)

// New creates an empty in-memory store
func New() *Store {
	return &Store{
		jobs:     make(map[string]*model.Job),
		sessions: make(map[string]*model.ChatSession),
		messages: make(map[string][]*model.ChatMessage),
	}
}

func (s *Store) Migrate(ctx context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) CreateJob(ctx context.Context, job *model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return apperrors.Newf(apperrors.KindInvalidArgument, "job %s already exists", job.ID)
	}
	s.jobs[job.ID] = job.Clone()
	return nil
}

func (s *Store) GetJob(ctx context.Context, id string) (*model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, apperrors.ErrJobNotFound
	}
	return job.Clone(), nil
}

func (s *Store) UpdateJob(ctx context.Context, id string, fn repository.MutateFunc) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.jobs[id]
	if !ok {
		return nil, apperrors.ErrJobNotFound
	}
	working := current.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	s.jobs[id] = working.Clone()
	return working, nil
}

func (s *Store) DeleteJob(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return apperrors.ErrJobNotFound
	}
	delete(s.jobs, id)
	return nil
}

func (s *Store) ListJobs(ctx context.Context, filter model.JobFilter) ([]*model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statuses := make(map[model.JobStatus]bool, len(filter.Statuses))
	for _, st := range filter.Statuses {
		statuses[st] = true
	}

	jobs := make([]*model.Job, 0)
	for _, job := range s.jobs {
		if filter.OwnerID != "" && job.OwnerID != filter.OwnerID {
			continue
		}
		if filter.Kind != "" && job.Kind != filter.Kind {
			continue
		}
		if len(statuses) > 0 && !statuses[job.Status] {
			continue
		}
		if !filter.UpdatedBefore.IsZero() && !job.UpdatedAt.Before(filter.UpdatedBefore) {
			continue
		}
		jobs = append(jobs, job.Clone())
	}

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.After(jobs[j].CreatedAt) })
	if filter.Limit > 0 && len(jobs) > filter.Limit {
		jobs = jobs[:filter.Limit]
	}
	return jobs, nil
}

func (s *Store) ActiveSession(ctx context.Context, ownerID string) (*model.ChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var newest *model.ChatSession
	for _, session := range s.sessions {
		if session.OwnerID != ownerID || session.Status != model.SessionActive {
			continue
		}
		if newest == nil || session.CreatedAt.After(newest.CreatedAt) {
			newest = session
		}
	}
	if newest == nil {
		return nil, apperrors.ErrSessionNotFound
	}
	c := *newest
	return &c, nil
}

func (s *Store) CreateSession(ctx context.Context, session *model.ChatSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *session
	s.sessions[session.ID] = &c
	return nil
}

func (s *Store) GetSession(ctx context.Context, id string) (*model.ChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}
	c := *session
	return &c, nil
}

func (s *Store) TouchSession(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return apperrors.ErrSessionNotFound
	}
	session.LastInteraction = &at
	return nil
}

func (s *Store) AppendMessage(ctx context.Context, msg *model.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *msg
	log := s.messages[msg.SessionID]
	// keep the log sorted by timestamp; appends are almost always at the tail
	i := sort.Search(len(log), func(i int) bool { return log[i].Timestamp.After(c.Timestamp) })
	log = append(log, nil)
	copy(log[i+1:], log[i:])
	log[i] = &c
	s.messages[msg.SessionID] = log
	return nil
}

func (s *Store) MessagesBefore(ctx context.Context, sessionID string, before time.Time, limit int) ([]*model.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	log := s.messages[sessionID]
	end := sort.Search(len(log), func(i int) bool { return !log[i].Timestamp.Before(before) })
	return newestFirst(log[:end], limit), nil
}

func (s *Store) LatestMessages(ctx context.Context, sessionID string, limit int) ([]*model.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newestFirst(s.messages[sessionID], limit), nil
}

func newestFirst(log []*model.ChatMessage, limit int) []*model.ChatMessage {
	out := make([]*model.ChatMessage, 0, limit)
	for i := len(log) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		c := *log[i]
		out = append(out, &c)
	}
	return out
}
