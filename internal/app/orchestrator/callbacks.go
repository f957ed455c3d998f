package orchestrator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	apperrors "dubstudio/internal/app/errors"
	"dubstudio/internal/app/model"
)

// Callback stages reported by out-of-process workers
const (
	CallbackAudioExtraction = "audio_extraction"
	CallbackTranscript      = "transcript"
	CallbackLipSync         = "lipsync"
)

// StageCallback is a worker's report that a dispatched stage finished
type StageCallback struct {
	Stage          string            `json:"stage" validate:"required,oneof=audio_extraction transcript lipsync"`
	Artifacts      map[string]string `json:"artifacts"`
	TranslatedText string            `json:"translatedText"`
	Error          string            `json:"error"`
}

// waitingFor is the status a job must be in to accept a callback stage
var waitingFor = map[string]model.JobStatus{
	CallbackAudioExtraction: model.StatusAudioExtractionPending,
	CallbackTranscript:      model.StatusAudioExtractionPending,
	CallbackLipSync:         model.StatusLipSyncPending,
}

// HandleCallback advances a job after one of its out-of-process stages reports
// back. A reported error fails the job; the returned job is its latest state.
func (o *Orchestrator) HandleCallback(ctx context.Context, jobID string, cb StageCallback) (*model.Job, error) {
	if err := o.check(cb); err != nil {
		return nil, err
	}

	job, err := o.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.IsTerminal() {
		return nil, apperrors.ErrJobTerminal
	}
	if want := waitingFor[cb.Stage]; job.Status != want {
		return nil, apperrors.InvalidArgument(
			fmt.Sprintf("job %s is %s, not waiting for %s", job.ID, job.Status, cb.Stage),
			map[string]string{"stage": "unexpected for the job's current status"},
		)
	}

	o.logger.Info("stage callback received",
		zap.String("job_id", job.ID),
		zap.String("stage", cb.Stage),
		zap.Bool("error", cb.Error != ""))

	if cb.Error != "" {
		detail := fmt.Sprintf("%s failed", cb.Stage)
		updated, err := o.jobs.Update(ctx, job.ID, model.Failure(detail, cb.Error).From(job.Status))
		if err != nil {
			return nil, err
		}
		o.metrics.JobTransition(string(updated.Kind), string(updated.Status))
		return updated, nil
	}

	switch cb.Stage {
	case CallbackAudioExtraction:
		return o.extractionDone(ctx, job, cb)
	case CallbackTranscript:
		return o.transcriptReady(ctx, job, cb.TranslatedText)
	default:
		return o.lipSyncDone(ctx, job, cb)
	}
}

func (o *Orchestrator) extractionDone(ctx context.Context, job *model.Job, cb StageCallback) (*model.Job, error) {
	audio := cb.Artifacts[model.ArtifactExtractedAudio]
	if audio == "" {
		return nil, apperrors.RequiredFields("Missing extracted audio.", "artifacts."+model.ArtifactExtractedAudio)
	}

	patch := model.JobPatch{
		ExpectStatus: &job.Status,
		Artifacts:    map[string]string{model.ArtifactExtractedAudio: audio},
	}
	detail := "Audio extracted, waiting for transcript"
	progress := model.ExtractionReportedProgress
	patch.StatusDetail = &detail
	patch.Progress = &progress

	updated, err := o.jobs.Update(ctx, job.ID, patch)
	if err != nil {
		return nil, err
	}
	if cb.TranslatedText == "" {
		return updated, nil
	}
	return o.transcriptReady(ctx, updated, cb.TranslatedText)
}

// transcriptReady voices the translated text and submits the lip-sync render
func (o *Orchestrator) transcriptReady(ctx context.Context, job *model.Job, text string) (*model.Job, error) {
	if text == "" {
		return nil, apperrors.RequiredFields("Missing translated text.", "translatedText")
	}

	progress, _ := model.Milestone(job.Kind, model.StatusProcessingTTS)
	patch := model.Transition(model.StatusProcessingTTS, "Generating translated audio", progress).From(job.Status)
	patch.TranslatedText = &text
	job, err := o.jobs.Update(ctx, job.ID, patch)
	if err != nil {
		return nil, err
	}
	o.metrics.JobTransition(string(job.Kind), string(job.Status))

	job, err = o.runStage(ctx, o.stages.Synthesis, job)
	if err != nil {
		o.failJob(ctx, job, "Speech synthesis failed", err)
		return nil, apperrors.Internal(err, "failed to synthesize translated audio")
	}
	job, err = o.runStage(ctx, o.stages.LipSync, job)
	if err != nil {
		o.failJob(ctx, job, "Failed to start lip sync", err)
		return nil, apperrors.Internal(err, "failed to start lip sync")
	}
	return job, nil
}

// lipSyncDone composes the render into the final video. A job is only
// completed once composition produced the video artifact.
func (o *Orchestrator) lipSyncDone(ctx context.Context, job *model.Job, cb StageCallback) (*model.Job, error) {
	video := cb.Artifacts[model.ArtifactLipSyncVideo]
	if video == "" {
		return nil, apperrors.RequiredFields("Missing lip sync video.", "artifacts."+model.ArtifactLipSyncVideo)
	}

	progress, _ := model.Milestone(job.Kind, model.StatusComposing)
	patch := model.Transition(model.StatusComposing, "Composing final video", progress).From(job.Status)
	patch.Artifacts = map[string]string{model.ArtifactLipSyncVideo: video}
	job, err := o.jobs.Update(ctx, job.ID, patch)
	if err != nil {
		return nil, err
	}
	o.metrics.JobTransition(string(job.Kind), string(job.Status))

	job, err = o.runStage(ctx, o.stages.Composition, job)
	if err != nil {
		o.failJob(ctx, job, "Composition failed", err)
		return nil, apperrors.Internal(err, "failed to compose final video")
	}
	o.logger.Info("job completed", zap.String("job_id", job.ID), zap.String("video", job.Artifacts[model.ArtifactVideo]))
	return job, nil
}
