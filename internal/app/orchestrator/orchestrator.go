// Package orchestrator drives jobs through their stage pipelines. Submission
// runs the first stages synchronously; everything after an out-of-process
// stage is advanced by callbacks.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"dubstudio/internal/app/auth"
	apperrors "dubstudio/internal/app/errors"
	"dubstudio/internal/app/jobstore"
	"dubstudio/internal/app/metrics"
	"dubstudio/internal/app/model"
	"dubstudio/internal/app/stage"
)

// TranslationRequest submits a video for dubbing into another language
type TranslationRequest struct {
	VideoURL      string `json:"videoUrl" validate:"required,max=2048"`
	SourceLang    string `json:"sourceLang" validate:"required,max=16"`
	TargetLang    string `json:"targetLang" validate:"required,max=16"`
	VideoFileName string `json:"videoFileName" validate:"required,max=255"`
}

// AvatarRequest submits a script for a talking-avatar render
type AvatarRequest struct {
	AvatarID string `json:"avatarId" validate:"required,max=128"`
	Script   string `json:"script" validate:"required"`
}

// Stages are the processors a job can pass through
type Stages struct {
	Extraction  stage.Processor
	Synthesis   *stage.SpeechSynthesis
	LipSync     stage.Processor
	Composition stage.Processor
}

// Orchestrator owns every job status change
type Orchestrator struct {
	jobs     *jobstore.Store
	stages   Stages
	validate *validator.Validate
	logger   *zap.Logger
	metrics  *metrics.Recorder
	now      func() time.Time
}

// New creates an orchestrator
func New(jobs *jobstore.Store, stages Stages, logger *zap.Logger, recorder *metrics.Recorder) *Orchestrator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return &Orchestrator{
		jobs:     jobs,
		stages:   stages,
		validate: v,
		logger:   logger,
		metrics:  recorder,
		now:      time.Now,
	}
}

// RequestVideoTranslation creates a translation job and dispatches audio
// extraction. The job is persisted as queued before the worker is contacted.
func (o *Orchestrator) RequestVideoTranslation(ctx context.Context, principal *auth.Principal, req TranslationRequest) (jobID string, err error) {
	defer func() { o.metrics.JobSubmitted(string(model.KindTranslation), err) }()

	if principal == nil {
		return "", apperrors.ErrUnauthenticated
	}
	if err := o.check(req); err != nil {
		return "", err
	}
	if o.stages.Extraction == nil {
		return "", apperrors.Unavailable("Audio extraction")
	}

	job, err := o.jobs.Create(ctx, model.KindTranslation, model.JobInputs{
		VideoURL:      req.VideoURL,
		SourceLang:    req.SourceLang,
		TargetLang:    req.TargetLang,
		VideoFileName: req.VideoFileName,
	}, principal.UID)
	if err != nil {
		return "", apperrors.Internal(err, "failed to create translation job")
	}
	o.metrics.JobTransition(string(job.Kind), string(job.Status))
	o.logger.Info("translation job created",
		zap.String("job_id", job.ID),
		zap.String("user_id", principal.UID),
		zap.String("source_lang", req.SourceLang),
		zap.String("target_lang", req.TargetLang))

	if _, err := o.runStage(ctx, o.stages.Extraction, job); err != nil {
		o.failJob(ctx, job, "Failed to start audio extraction", err)
		return "", apperrors.Internal(err, "failed to start video translation")
	}
	return job.ID, nil
}

// RequestAvatarVideo creates an avatar job, synthesizes its script and submits
// the lip-sync render before returning
func (o *Orchestrator) RequestAvatarVideo(ctx context.Context, principal *auth.Principal, req AvatarRequest) (jobID string, err error) {
	defer func() { o.metrics.JobSubmitted(string(model.KindAvatar), err) }()

	if principal == nil {
		return "", apperrors.ErrUnauthenticated
	}
	if err := o.check(req); err != nil {
		return "", err
	}
	if err := stage.ValidateSynthesisText("script", req.Script); err != nil {
		return "", err
	}
	if !o.stages.Synthesis.Available() {
		return "", apperrors.Unavailable("Text-to-Speech")
	}
	if o.stages.LipSync == nil {
		return "", apperrors.Unavailable("Lip sync")
	}

	job, err := o.jobs.Create(ctx, model.KindAvatar, model.JobInputs{
		AvatarID: req.AvatarID,
		Script:   req.Script,
	}, principal.UID)
	if err != nil {
		return "", apperrors.Internal(err, "failed to create avatar video job")
	}
	o.metrics.JobTransition(string(job.Kind), string(job.Status))
	o.logger.Info("avatar video job created",
		zap.String("job_id", job.ID),
		zap.String("user_id", principal.UID),
		zap.String("avatar_id", req.AvatarID))

	if err := o.synthesizeAndLipSync(ctx, job); err != nil {
		return "", apperrors.Internal(err, "failed to start avatar video")
	}
	return job.ID, nil
}

// synthesizeAndLipSync runs processing_tts → audio_completed → lipsync_pending,
// failing the job on the first error
func (o *Orchestrator) synthesizeAndLipSync(ctx context.Context, job *model.Job) error {
	job, err := o.advance(ctx, job, model.StatusProcessingTTS, "Generating audio")
	if err != nil {
		o.failJob(ctx, job, "Failed to start speech synthesis", err)
		return err
	}

	job, err = o.runStage(ctx, o.stages.Synthesis, job)
	if err != nil {
		o.failJob(ctx, job, "Speech synthesis failed", err)
		return err
	}

	if _, err = o.runStage(ctx, o.stages.LipSync, job); err != nil {
		o.failJob(ctx, job, "Failed to start lip sync", err)
		return err
	}
	return nil
}

// advance moves job into status at that status's milestone progress
func (o *Orchestrator) advance(ctx context.Context, job *model.Job, status model.JobStatus, detail string) (*model.Job, error) {
	progress, _ := model.Milestone(job.Kind, status)
	updated, err := o.jobs.Update(ctx, job.ID, model.Transition(status, detail, progress).From(job.Status))
	if err != nil {
		return job, err
	}
	o.metrics.JobTransition(string(updated.Kind), string(updated.Status))
	return updated, nil
}

// runStage runs p and persists the transition it describes. On error the
// returned job is the input job.
func (o *Orchestrator) runStage(ctx context.Context, p stage.Processor, job *model.Job) (*model.Job, error) {
	started := time.Now()
	tr, err := p.Run(ctx, job)
	o.metrics.StageObserved(p.Name(), started, err)
	if err != nil {
		return job, fmt.Errorf("%s: %w", p.Name(), err)
	}

	updated, err := o.jobs.Update(ctx, job.ID, tr.Patch().From(job.Status))
	if err != nil {
		return job, fmt.Errorf("record %s result: %w", p.Name(), err)
	}
	o.metrics.JobTransition(string(updated.Kind), string(updated.Status))
	o.logger.Info("job advanced",
		zap.String("job_id", updated.ID),
		zap.String("stage", p.Name()),
		zap.String("status", string(updated.Status)),
		zap.Int("progress", updated.Progress))
	return updated, nil
}

// failJob marks job failed. A failure to do so is logged and swallowed so the
// original error reaches the caller.
func (o *Orchestrator) failJob(ctx context.Context, job *model.Job, detail string, cause error) {
	o.logger.Error("job failed",
		zap.String("job_id", job.ID),
		zap.String("kind", string(job.Kind)),
		zap.String("detail", detail),
		zap.Error(cause))

	if _, err := o.jobs.Update(context.WithoutCancel(ctx), job.ID, model.Failure(detail, errorMessage(cause))); err != nil {
		o.logger.Error("failed to mark job as failed", zap.String("job_id", job.ID), zap.Error(err))
		return
	}
	o.metrics.JobTransition(string(job.Kind), string(model.StatusFailed))
}

func errorMessage(err error) string {
	var e *apperrors.Error
	if errors.As(err, &e) && e.Kind() != apperrors.KindInternal {
		return e.Message()
	}
	return err.Error()
}

// check validates a request struct and reports every failing field at once
func (o *Orchestrator) check(req interface{}) error {
	err := o.validate.Struct(req)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.InvalidArgument(err.Error(), nil)
	}

	fields := make(map[string]string, len(verrs))
	var missing, malformed []string
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			fields[fe.Field()] = "is required"
			missing = append(missing, fe.Field())
		case "max":
			fields[fe.Field()] = fmt.Sprintf("must be at most %s characters", fe.Param())
			malformed = append(malformed, fe.Field())
		default:
			fields[fe.Field()] = fmt.Sprintf("failed %s validation", fe.Tag())
			malformed = append(malformed, fe.Field())
		}
	}
	if len(missing) > 0 {
		return apperrors.InvalidArgument(
			fmt.Sprintf("Missing required parameters (%s).", strings.Join(missing, ", ")), fields)
	}
	return apperrors.InvalidArgument(
		fmt.Sprintf("Invalid parameters (%s).", strings.Join(malformed, ", ")), fields)
}
