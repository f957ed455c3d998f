// Package dispatch hands long-running media stages to out-of-process workers.
// Dispatch returns once the work is accepted; completion arrives later as a
// stage callback.
package dispatch

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Workflow names registered by the media workers
const (
	AudioExtractionWorkflow = "AudioExtractionWorkflow"
	LipSyncWorkflow         = "LipSyncWorkflow"
)

// ExtractionRequest asks a worker to pull the audio track out of a video
type ExtractionRequest struct {
	JobID           string `json:"job_id"`
	InputVideoURI   string `json:"input_video_gcs_uri"`
	OutputAudioPath string `json:"output_audio_gcs_path"`
	CallbackURL     string `json:"callback_url,omitempty"`
}

// LipSyncRequest asks a renderer to animate an avatar, or re-sync a source
// video, to the given audio
type LipSyncRequest struct {
	JobID          string `json:"job_id"`
	AudioURL       string `json:"audio_url"`
	AvatarID       string `json:"avatar_id,omitempty"`
	SourceVideoURL string `json:"source_video_url,omitempty"`
	CallbackURL    string `json:"callback_url,omitempty"`
}

// Dispatcher submits stage work and returns an opaque dispatch id
type Dispatcher interface {
	DispatchExtraction(ctx context.Context, req ExtractionRequest) (string, error)
	DispatchLipSync(ctx context.Context, req LipSyncRequest) (string, error)
}

// SimulatedDispatcher accepts every request without doing any work. Jobs then
// wait for callbacks posted by hand or by a test harness.
type SimulatedDispatcher struct {
	logger *zap.Logger
}

// NewSimulatedDispatcher creates a dispatcher that only logs
func NewSimulatedDispatcher(logger *zap.Logger) *SimulatedDispatcher {
	return &SimulatedDispatcher{logger: logger}
}

func (d *SimulatedDispatcher) DispatchExtraction(ctx context.Context, req ExtractionRequest) (string, error) {
	id := fmt.Sprintf("simulated-extract-%s", uuid.NewString()[:8])
	d.logger.Info("audio extraction dispatched (simulated)",
		zap.String("job_id", req.JobID),
		zap.String("input", req.InputVideoURI),
		zap.String("output", req.OutputAudioPath),
		zap.String("dispatch_id", id))
	return id, nil
}

func (d *SimulatedDispatcher) DispatchLipSync(ctx context.Context, req LipSyncRequest) (string, error) {
	id := fmt.Sprintf("simulated-lipsync-%s", uuid.NewString()[:8])
	d.logger.Info("lip sync dispatched (simulated)",
		zap.String("job_id", req.JobID),
		zap.String("audio", req.AudioURL),
		zap.String("avatar_id", req.AvatarID),
		zap.String("dispatch_id", id))
	return id, nil
}
