package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dubstudio/internal/api/middleware"
	"dubstudio/internal/api/v1/dto"
	"dubstudio/internal/api/v1/services"
	"dubstudio/internal/app/auth"
	"dubstudio/internal/app/jobstore"
)

// JobHandler handles job submission, lookup and observation
type JobHandler struct {
	jobs   services.JobService
	events services.EventService
}

// NewJobHandler creates a new job handler
func NewJobHandler(jobs services.JobService, events services.EventService) *JobHandler {
	return &JobHandler{jobs: jobs, events: events}
}

// CreateTranslation submits a video translation job
// @Summary Submit a video translation
// @Description Creates a translation job and dispatches audio extraction
// @Tags Jobs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateTranslationRequest true "Translation request"
// @Success 202 {object} dto.JobCreatedResponse
// @Failure 401 {object} errors.APIError
// @Failure 422 {object} errors.APIError
// @Router /api/v1/translations [post]
func (h *JobHandler) CreateTranslation(c *gin.Context) {
	var req dto.CreateTranslationRequest
	if err := middleware.ValidateRequest(c, &req); err != nil {
		middleware.HandleError(c, err)
		return
	}

	jobID, err := h.jobs.SubmitTranslation(c.Request.Context(), auth.FromContext(c.Request.Context()), req.ToDomain())
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, dto.JobCreatedResponse{JobID: jobID})
}

// CreateAvatarVideo submits an avatar video job
// @Summary Submit an avatar video
// @Description Synthesizes the script and dispatches the lip-sync render
// @Tags Jobs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateAvatarVideoRequest true "Avatar video request"
// @Success 202 {object} dto.JobCreatedResponse
// @Failure 401 {object} errors.APIError
// @Failure 422 {object} errors.APIError
// @Failure 503 {object} errors.APIError
// @Router /api/v1/avatar-videos [post]
func (h *JobHandler) CreateAvatarVideo(c *gin.Context) {
	var req dto.CreateAvatarVideoRequest
	if err := middleware.ValidateRequest(c, &req); err != nil {
		middleware.HandleError(c, err)
		return
	}

	jobID, err := h.jobs.SubmitAvatarVideo(c.Request.Context(), auth.FromContext(c.Request.Context()), req.ToDomain())
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, dto.JobCreatedResponse{JobID: jobID})
}

// Get returns one of the caller's jobs
// @Summary Get a job
// @Tags Jobs
// @Produce json
// @Security BearerAuth
// @Param id path string true "Job ID"
// @Success 200 {object} dto.JobResponse
// @Failure 404 {object} errors.APIError
// @Router /api/v1/jobs/{id} [get]
func (h *JobHandler) Get(c *gin.Context) {
	job, err := h.jobs.GetJob(c.Request.Context(), auth.FromContext(c.Request.Context()), c.Param("id"))
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewJobResponse(job))
}

// List returns the caller's jobs, newest first
// @Summary List jobs
// @Tags Jobs
// @Produce json
// @Security BearerAuth
// @Param kind query string false "translation or avatar"
// @Param status query string false "Job status"
// @Param limit query int false "Page size" minimum(1) maximum(100)
// @Success 200 {object} dto.JobListResponse
// @Failure 422 {object} errors.APIError
// @Router /api/v1/jobs [get]
func (h *JobHandler) List(c *gin.Context) {
	var query dto.ListJobsQuery
	if err := middleware.ValidateQuery(c, &query); err != nil {
		middleware.HandleError(c, err)
		return
	}

	jobs, err := h.jobs.ListJobs(c.Request.Context(), auth.FromContext(c.Request.Context()), query.Filter())
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	resp := dto.JobListResponse{Jobs: make([]*dto.JobResponse, 0, len(jobs)), Total: len(jobs)}
	for _, job := range jobs {
		resp.Jobs = append(resp.Jobs, dto.NewJobResponse(job))
	}
	c.JSON(http.StatusOK, resp)
}

// Delete removes one of the caller's jobs
// @Summary Delete a job
// @Tags Jobs
// @Security BearerAuth
// @Param id path string true "Job ID"
// @Success 204
// @Failure 404 {object} errors.APIError
// @Router /api/v1/jobs/{id} [delete]
func (h *JobHandler) Delete(c *gin.Context) {
	if err := h.jobs.DeleteJob(c.Request.Context(), auth.FromContext(c.Request.Context()), c.Param("id")); err != nil {
		middleware.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Events streams job snapshots until the job reaches a terminal state
// @Summary Stream job updates
// @Description Server-sent events: one snapshot, then every change until the job is terminal
// @Tags Jobs
// @Produce text/event-stream
// @Security BearerAuth
// @Param id path string true "Job ID"
// @Param access_token query string false "Token for clients that cannot set headers"
// @Success 200 {object} dto.JobEventResponse
// @Router /api/v1/jobs/{id}/events [get]
func (h *JobHandler) Events(c *gin.Context) {
	events, err := h.events.WatchJob(c.Request.Context(), auth.FromContext(c.Request.Context()), c.Param("id"))
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	stream(c, events, func(ev jobstore.Event) (string, interface{}) {
		return string(ev.Type), dto.NewJobEventResponse(ev)
	})
}

// Callback records the outcome of a stage run by an external worker
// @Summary Report a stage outcome
// @Description Called by media workers when extraction or lip-sync finishes
// @Tags Workers
// @Accept json
// @Produce json
// @Param X-Callback-Token header string false "Worker shared secret"
// @Param id path string true "Job ID"
// @Param request body dto.StageCallbackRequest true "Stage outcome"
// @Success 200 {object} dto.JobResponse
// @Failure 401 {object} errors.APIError
// @Failure 404 {object} errors.APIError
// @Failure 422 {object} errors.APIError
// @Router /api/v1/jobs/{id}/callbacks [post]
func (h *JobHandler) Callback(c *gin.Context) {
	var req dto.StageCallbackRequest
	if err := middleware.ValidateRequest(c, &req); err != nil {
		middleware.HandleError(c, err)
		return
	}

	job, err := h.jobs.ReportStage(c.Request.Context(), c.Param("id"), req.ToDomain())
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewJobResponse(job))
}
