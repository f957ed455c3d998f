package dto

import (
	"time"

	"dubstudio/internal/app/jobstore"
	"dubstudio/internal/app/model"
	"dubstudio/internal/app/orchestrator"
)

// CreateTranslationRequest submits a video for dubbing
type CreateTranslationRequest struct {
	VideoURL      string `json:"videoUrl"`
	SourceLang    string `json:"sourceLang"`
	TargetLang    string `json:"targetLang"`
	VideoFileName string `json:"videoFileName"`
}

// ToDomain converts the request for the orchestrator, which validates it
func (r *CreateTranslationRequest) ToDomain() orchestrator.TranslationRequest {
	return orchestrator.TranslationRequest{
		VideoURL:      r.VideoURL,
		SourceLang:    r.SourceLang,
		TargetLang:    r.TargetLang,
		VideoFileName: r.VideoFileName,
	}
}

// CreateAvatarVideoRequest submits a script for an avatar render
type CreateAvatarVideoRequest struct {
	AvatarID string `json:"avatarId"`
	Script   string `json:"script"`
}

// ToDomain converts the request for the orchestrator
func (r *CreateAvatarVideoRequest) ToDomain() orchestrator.AvatarRequest {
	return orchestrator.AvatarRequest{AvatarID: r.AvatarID, Script: r.Script}
}

// JobCreatedResponse is returned once a job was accepted
type JobCreatedResponse struct {
	JobID string `json:"jobId"`
}

// ListJobsQuery filters the caller's jobs
type ListJobsQuery struct {
	Kind   string `form:"kind" binding:"omitempty,oneof=translation avatar"`
	Status string `form:"status" binding:"omitempty,oneof=queued audio_extraction_pending processing_tts audio_completed lipsync_pending composing completed failed"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

// Filter builds the store filter; the owner is set by the service
func (q *ListJobsQuery) Filter() model.JobFilter {
	f := model.JobFilter{Kind: model.JobKind(q.Kind), Limit: q.Limit}
	if q.Status != "" {
		f.Statuses = []model.JobStatus{model.JobStatus(q.Status)}
	}
	if f.Limit == 0 {
		f.Limit = 20
	}
	return f
}

// JobResponse represents a job in API responses
type JobResponse struct {
	ID             string            `json:"id"`
	Kind           string            `json:"kind"`
	Status         string            `json:"status"`
	StatusDetail   string            `json:"statusDetail"`
	Progress       int               `json:"progress"`
	Inputs         model.JobInputs   `json:"inputs"`
	Artifacts      map[string]string `json:"artifacts"`
	TranslatedText string            `json:"translatedText,omitempty"`
	ErrorMessage   string            `json:"errorMessage,omitempty"`
	Version        int64             `json:"version"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// NewJobResponse converts a job for the API
func NewJobResponse(job *model.Job) *JobResponse {
	if job == nil {
		return nil
	}
	artifacts := job.Artifacts
	if artifacts == nil {
		artifacts = map[string]string{}
	}
	return &JobResponse{
		ID:             job.ID,
		Kind:           string(job.Kind),
		Status:         string(job.Status),
		StatusDetail:   job.StatusDetail,
		Progress:       job.Progress,
		Inputs:         job.Inputs,
		Artifacts:      artifacts,
		TranslatedText: job.TranslatedText,
		ErrorMessage:   job.ErrorMessage,
		Version:        job.Version,
		CreatedAt:      job.CreatedAt,
		UpdatedAt:      job.UpdatedAt,
	}
}

// JobListResponse represents a list of jobs
type JobListResponse struct {
	Jobs  []*JobResponse `json:"jobs"`
	Total int            `json:"total"`
}

// JobEventResponse is the data of one job event on the stream
type JobEventResponse struct {
	Type    string       `json:"type"`
	JobID   string       `json:"jobId"`
	Job     *JobResponse `json:"job,omitempty"`
	Message string       `json:"message,omitempty"`
}

// NewJobEventResponse converts a job event for the stream
func NewJobEventResponse(ev jobstore.Event) *JobEventResponse {
	return &JobEventResponse{
		Type:    string(ev.Type),
		JobID:   ev.JobID,
		Job:     NewJobResponse(ev.Job),
		Message: ev.Message,
	}
}

// StageCallbackRequest is posted by a worker when a dispatched stage ends
type StageCallbackRequest struct {
	Stage          string            `json:"stage" binding:"required"`
	Artifacts      map[string]string `json:"artifacts,omitempty"`
	TranslatedText string            `json:"translatedText,omitempty"`
	Error          string            `json:"error,omitempty"`
}

// ToDomain converts the callback for the orchestrator
func (r *StageCallbackRequest) ToDomain() orchestrator.StageCallback {
	return orchestrator.StageCallback{
		Stage:          r.Stage,
		Artifacts:      r.Artifacts,
		TranslatedText: r.TranslatedText,
		Error:          r.Error,
	}
}
