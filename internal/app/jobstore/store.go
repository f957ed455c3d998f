// Package jobstore is the single source of truth for job records. Every
// mutation goes through Update and is published to the job's topic.
package jobstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "dubstudio/internal/app/errors"
	"dubstudio/internal/app/model"
	"dubstudio/internal/app/pubsub"
	"dubstudio/internal/app/repository"
)

// Store creates, mutates and publishes jobs
type Store struct {
	dao    repository.JobDAO
	hub    pubsub.Hub
	logger *zap.Logger
	locks  *keyedMutex
	now    func() time.Time
	newID  func() string
}

// NewStore creates a job store over dao that publishes changes to hub
func NewStore(dao repository.JobDAO, hub pubsub.Hub, logger *zap.Logger) *Store {
	return &Store{
		dao:    dao,
		hub:    hub,
		logger: logger,
		locks:  newKeyedMutex(),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

// Create persists a new queued job and returns it
func (s *Store) Create(ctx context.Context, kind model.JobKind, inputs model.JobInputs, ownerID string) (*model.Job, error) {
	if !kind.Valid() {
		return nil, apperrors.Newf(apperrors.KindInvalidArgument, "unknown job kind %q", kind)
	}
	progress, _ := model.Milestone(kind, model.StatusQueued)
	now := s.now()

	job := &model.Job{
		ID:           s.newID(),
		OwnerID:      ownerID,
		Kind:         kind,
		Status:       model.StatusQueued,
		StatusDetail: "Job created",
		Progress:     progress,
		Inputs:       inputs,
		Artifacts:    map[string]string{},
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.dao.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	s.publish(ctx, Event{Type: EventSnapshot, Job: job})
	return job.Clone(), nil
}

// Get returns the job, or errors.ErrJobNotFound
func (s *Store) Get(ctx context.Context, id string) (*model.Job, error) {
	return s.dao.GetJob(ctx, id)
}

// List returns jobs matching filter, newest first
func (s *Store) List(ctx context.Context, filter model.JobFilter) ([]*model.Job, error) {
	return s.dao.ListJobs(ctx, filter)
}

// Update merges patch into the job atomically and delivers the new snapshot to
// subscribers before returning.
func (s *Store) Update(ctx context.Context, id string, patch model.JobPatch) (*model.Job, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	job, err := s.dao.UpdateJob(ctx, id, func(j *model.Job) error {
		return apply(j, patch, s.now())
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, Event{Type: EventSnapshot, Job: job})
	return job.Clone(), nil
}

// Delete removes the job; subscribers are told it no longer exists
func (s *Store) Delete(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	if err := s.dao.DeleteJob(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, Event{Type: EventDeleted, JobID: id})
	return nil
}

// publish failures never fail the mutation; subscribers converge on their next event
func (s *Store) publish(ctx context.Context, ev Event) {
	jobID := ev.JobID
	if ev.Job != nil {
		jobID = ev.Job.ID
		ev.JobID = jobID
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		s.logger.Error("failed to encode job event", zap.String("job_id", jobID), zap.Error(err))
		return
	}
	if err := s.hub.Publish(ctx, pubsub.JobTopic(jobID), payload); err != nil {
		s.logger.Warn("failed to publish job event",
			zap.String("job_id", jobID),
			zap.String("type", string(ev.Type)),
			zap.Error(err))
	}
}

// apply enforces the job invariants while merging a patch
func apply(job *model.Job, patch model.JobPatch, now time.Time) error {
	if job.Status.IsTerminal() {
		return apperrors.ErrJobTerminal
	}
	if patch.ExpectStatus != nil && job.Status != *patch.ExpectStatus {
		return apperrors.ErrUnexpectedState
	}

	for key, value := range patch.Artifacts {
		if existing, ok := job.Artifacts[key]; ok && existing != value {
			return apperrors.InvalidArgument(
				fmt.Sprintf("artifact %s already recorded for job %s", key, job.ID),
				map[string]string{key: "is write-once"},
			)
		}
	}
	if job.Artifacts == nil {
		job.Artifacts = make(map[string]string, len(patch.Artifacts))
	}
	for key, value := range patch.Artifacts {
		job.Artifacts[key] = value
	}

	if patch.Status != nil {
		job.Status = *patch.Status
	}
	if patch.StatusDetail != nil {
		job.StatusDetail = *patch.StatusDetail
	}
	if patch.Progress != nil && *patch.Progress > job.Progress {
		job.Progress = min(*patch.Progress, 100)
	}
	if patch.TranslatedText != nil {
		job.TranslatedText = *patch.TranslatedText
	}

	if job.Status == model.StatusFailed {
		if patch.ErrorMessage != nil {
			job.ErrorMessage = *patch.ErrorMessage
		}
		if job.ErrorMessage == "" {
			job.ErrorMessage = "unknown error"
		}
	} else {
		job.ErrorMessage = ""
	}

	job.Version++
	job.UpdatedAt = now
	return nil
}

// keyedMutex serializes work per key without holding memory for idle keys
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
