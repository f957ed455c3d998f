package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	apperrors "dubstudio/internal/app/errors"
	"dubstudio/internal/app/model"
	"dubstudio/internal/app/stage"
)

// pendingStage names the out-of-process stage a pending status waits on
var pendingStage = map[model.JobStatus]string{
	model.StatusAudioExtractionPending: stage.NameAudioExtraction,
	model.StatusLipSyncPending:         stage.NameLipSync,
}

// SweepPending fails every job that has waited on a worker for longer than
// timeout and returns how many were failed
func (o *Orchestrator) SweepPending(ctx context.Context, timeout time.Duration) (int, error) {
	stale, err := o.jobs.List(ctx, model.JobFilter{
		Statuses:      model.PendingStatuses,
		UpdatedBefore: o.now().Add(-timeout),
	})
	if err != nil {
		return 0, fmt.Errorf("list pending jobs: %w", err)
	}

	swept := 0
	for _, job := range stale {
		message := fmt.Sprintf("timed out waiting for %s", pendingStage[job.Status])
		_, err := o.jobs.Update(ctx, job.ID, model.Failure("Timed out", message).From(job.Status))
		switch {
		case err == nil:
			swept++
			o.metrics.JobTransition(string(job.Kind), string(model.StatusFailed))
			o.logger.Warn("pending job timed out",
				zap.String("job_id", job.ID),
				zap.String("status", string(job.Status)),
				zap.Time("updated_at", job.UpdatedAt))
		case errors.Is(err, apperrors.ErrUnexpectedState),
			errors.Is(err, apperrors.ErrJobTerminal),
			errors.Is(err, apperrors.ErrJobNotFound):
			// a callback or deletion got there first
		default:
			o.logger.Error("failed to time out pending job", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
	return swept, nil
}

// RunSweeper sweeps pending jobs every interval until ctx is cancelled
func (o *Orchestrator) RunSweeper(ctx context.Context, interval, timeout time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	o.logger.Info("pending job sweeper started",
		zap.Duration("interval", interval),
		zap.Duration("timeout", timeout))
	for {
		select {
		case <-ctx.Done():
			o.logger.Info("pending job sweeper stopped")
			return
		case <-ticker.C:
			if n, err := o.SweepPending(ctx, timeout); err != nil {
				o.logger.Error("pending job sweep failed", zap.Error(err))
			} else if n > 0 {
				o.logger.Info("pending jobs timed out", zap.Int("count", n))
			}
		}
	}
}
