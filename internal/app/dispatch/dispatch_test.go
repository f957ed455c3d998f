package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/mocks"
	"go.uber.org/zap"
)

func TestTemporalDispatcher_DispatchExtraction(t *testing.T) {
	c := &mocks.Client{}
	run := &mocks.WorkflowRun{}
	run.On("GetID").Return("extract-audio-j1")

	req := ExtractionRequest{
		JobID:           "j1",
		InputVideoURI:   "gs://bucket/in.mp4",
		OutputAudioPath: "translationJobs/j1/extracted_audio.mp3",
	}
	c.On("ExecuteWorkflow", mock.Anything,
		mock.MatchedBy(func(o client.StartWorkflowOptions) bool {
			return o.ID == "extract-audio-j1" && o.TaskQueue == "media"
		}),
		AudioExtractionWorkflow, req,
	).Return(run, nil)

	id, err := NewTemporalDispatcher(c, "media").DispatchExtraction(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "extract-audio-j1", id)
	c.AssertExpectations(t)
	run.AssertExpectations(t)
}

func TestTemporalDispatcher_DispatchLipSyncError(t *testing.T) {
	c := &mocks.Client{}
	c.On("ExecuteWorkflow", mock.Anything, mock.Anything, LipSyncWorkflow, mock.Anything).
		Return(nil, errors.New("namespace not found"))

	_, err := NewTemporalDispatcher(c, "media").DispatchLipSync(context.Background(), LipSyncRequest{JobID: "j1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start LipSyncWorkflow")
	assert.Contains(t, err.Error(), "namespace not found")
}

func TestSimulatedDispatcher(t *testing.T) {
	d := NewSimulatedDispatcher(zap.NewNop())

	id, err := d.DispatchExtraction(context.Background(), ExtractionRequest{JobID: "j1"})
	require.NoError(t, err)
	assert.Contains(t, id, "simulated-extract-")

	id, err = d.DispatchLipSync(context.Background(), LipSyncRequest{JobID: "j1"})
	require.NoError(t, err)
	assert.Contains(t, id, "simulated-lipsync-")
}
