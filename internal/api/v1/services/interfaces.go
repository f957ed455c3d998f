package services

import (
	"context"

	"dubstudio/internal/app/auth"
	"dubstudio/internal/app/jobstore"
	"dubstudio/internal/app/model"
	"dubstudio/internal/app/orchestrator"
)

// JobService defines the caller-scoped job operations
type JobService interface {
	SubmitTranslation(ctx context.Context, principal *auth.Principal, req orchestrator.TranslationRequest) (string, error)
	SubmitAvatarVideo(ctx context.Context, principal *auth.Principal, req orchestrator.AvatarRequest) (string, error)
	GetJob(ctx context.Context, principal *auth.Principal, jobID string) (*model.Job, error)
	ListJobs(ctx context.Context, principal *auth.Principal, filter model.JobFilter) ([]*model.Job, error)
	DeleteJob(ctx context.Context, principal *auth.Principal, jobID string) error
	ReportStage(ctx context.Context, jobID string, cb orchestrator.StageCallback) (*model.Job, error)
}

// ChatService defines the chat session operations
type ChatService interface {
	GetOrCreateSession(ctx context.Context, ownerID string) (*model.ChatSession, error)
	Session(ctx context.Context, ownerID, sessionID string) (*model.ChatSession, error)
	PostMessage(ctx context.Context, ownerID, sessionID, content string) (*model.ChatMessage, error)
	RecentMessages(ctx context.Context, sessionID string, limit int) ([]*model.ChatMessage, error)
}

// EventService opens change streams
type EventService interface {
	WatchJob(ctx context.Context, principal *auth.Principal, jobID string) (<-chan jobstore.Event, error)
	WatchSession(ctx context.Context, principal *auth.Principal, sessionID string) (<-chan *model.ChatMessage, error)
}
