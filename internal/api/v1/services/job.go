package services

import (
	"context"

	"go.uber.org/zap"

	"dubstudio/internal/app/auth"
	apperrors "dubstudio/internal/app/errors"
	"dubstudio/internal/app/jobstore"
	"dubstudio/internal/app/model"
	"dubstudio/internal/app/orchestrator"
)

// JobServiceImpl implements JobService over the orchestrator and job store
type JobServiceImpl struct {
	orchestrator *orchestrator.Orchestrator
	jobs         *jobstore.Store
	logger       *zap.Logger
}

// NewJobService creates a new job service
func NewJobService(orch *orchestrator.Orchestrator, jobs *jobstore.Store, logger *zap.Logger) *JobServiceImpl {
	return &JobServiceImpl{orchestrator: orch, jobs: jobs, logger: logger}
}

func (s *JobServiceImpl) SubmitTranslation(ctx context.Context, principal *auth.Principal, req orchestrator.TranslationRequest) (string, error) {
	return s.orchestrator.RequestVideoTranslation(ctx, principal, req)
}

func (s *JobServiceImpl) SubmitAvatarVideo(ctx context.Context, principal *auth.Principal, req orchestrator.AvatarRequest) (string, error) {
	return s.orchestrator.RequestAvatarVideo(ctx, principal, req)
}

// GetJob returns a job owned by the caller. Other owners' jobs are not found.
func (s *JobServiceImpl) GetJob(ctx context.Context, principal *auth.Principal, jobID string) (*model.Job, error) {
	if principal == nil {
		return nil, apperrors.ErrUnauthenticated
	}
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.OwnerID != principal.UID {
		return nil, apperrors.ErrJobNotFound
	}
	return job, nil
}

// ListJobs returns the caller's jobs, newest first
func (s *JobServiceImpl) ListJobs(ctx context.Context, principal *auth.Principal, filter model.JobFilter) ([]*model.Job, error) {
	if principal == nil {
		return nil, apperrors.ErrUnauthenticated
	}
	filter.OwnerID = principal.UID
	jobs, err := s.jobs.List(ctx, filter)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to list jobs")
	}
	return jobs, nil
}

// DeleteJob removes one of the caller's jobs
func (s *JobServiceImpl) DeleteJob(ctx context.Context, principal *auth.Principal, jobID string) error {
	if _, err := s.GetJob(ctx, principal, jobID); err != nil {
		return err
	}
	if err := s.jobs.Delete(ctx, jobID); err != nil {
		return err
	}
	s.logger.Info("job deleted", zap.String("job_id", jobID), zap.String("user_id", principal.UID))
	return nil
}

func (s *JobServiceImpl) ReportStage(ctx context.Context, jobID string, cb orchestrator.StageCallback) (*model.Job, error) {
	return s.orchestrator.HandleCallback(ctx, jobID, cb)
}
