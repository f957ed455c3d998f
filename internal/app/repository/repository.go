package repository

import (
	"context"
	"time"

	"dubstudio/internal/app/model"
)

// MutateFunc edits a job in place inside UpdateJob. Returning an error aborts the update.
type MutateFunc func(job *model.Job) error

// JobDAO persists job records
type JobDAO interface {
	CreateJob(ctx context.Context, job *model.Job) error

	// GetJob returns errors.ErrJobNotFound when the job does not exist
	GetJob(ctx context.Context, id string) (*model.Job, error)

	// UpdateJob reads the job, applies fn and writes the result atomically
	UpdateJob(ctx context.Context, id string, fn MutateFunc) (*model.Job, error)

	DeleteJob(ctx context.Context, id string) error

	ListJobs(ctx context.Context, filter model.JobFilter) ([]*model.Job, error)
}

// ChatDAO persists chat sessions and their append-only message logs
type ChatDAO interface {
	// ActiveSession returns the owner's active session, or errors.ErrSessionNotFound
	ActiveSession(ctx context.Context, ownerID string) (*model.ChatSession, error)

	CreateSession(ctx context.Context, session *model.ChatSession) error

	GetSession(ctx context.Context, id string) (*model.ChatSession, error)

	TouchSession(ctx context.Context, id string, at time.Time) error

	AppendMessage(ctx context.Context, msg *model.ChatMessage) error

	// MessagesBefore returns up to limit messages older than before, newest first
	MessagesBefore(ctx context.Context, sessionID string, before time.Time, limit int) ([]*model.ChatMessage, error)

	// LatestMessages returns up to limit of the most recent messages, newest first
	LatestMessages(ctx context.Context, sessionID string, limit int) ([]*model.ChatMessage, error)
}

// Store is a complete persistence backend
type Store interface {
	JobDAO
	ChatDAO

	// Migrate creates the schema if it does not exist
	Migrate(ctx context.Context) error

	Close() error
}
