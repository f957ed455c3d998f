package dispatch

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/client"
)

// TemporalConfig holds Temporal client configuration
type TemporalConfig struct {
	HostPort  string
	Namespace string
	TaskQueue string
}

// NewTemporalClient creates a new Temporal client with the given configuration
func NewTemporalClient(config TemporalConfig) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  config.HostPort,
		Namespace: config.Namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Temporal client: %w", err)
	}
	return c, nil
}

// TemporalDispatcher starts one workflow per stage request
type TemporalDispatcher struct {
	temporalClient client.Client
	taskQueue      string
}

// NewTemporalDispatcher creates a dispatcher on taskQueue
func NewTemporalDispatcher(c client.Client, taskQueue string) *TemporalDispatcher {
	return &TemporalDispatcher{temporalClient: c, taskQueue: taskQueue}
}

func (d *TemporalDispatcher) DispatchExtraction(ctx context.Context, req ExtractionRequest) (string, error) {
	return d.start(ctx, "extract-audio-"+req.JobID, AudioExtractionWorkflow, req)
}

func (d *TemporalDispatcher) DispatchLipSync(ctx context.Context, req LipSyncRequest) (string, error) {
	return d.start(ctx, "lipsync-"+req.JobID, LipSyncWorkflow, req)
}

func (d *TemporalDispatcher) start(ctx context.Context, workflowID, workflow string, request interface{}) (string, error) {
	options := client.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: d.taskQueue,
	}

	we, err := d.temporalClient.ExecuteWorkflow(ctx, options, workflow, request)
	if err != nil {
		return "", fmt.Errorf("failed to start %s: %w", workflow, err)
	}
	return we.GetID(), nil
}
