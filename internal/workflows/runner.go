package workflows

import (
	"context"
	"fmt"
	"strings"
	"time"

	"readcast/internal/readcast"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
)

// TemporalRunner runs podcast synthesis as a PodcastAudioWorkflow and waits
// for it to finish.
type TemporalRunner struct {
	client    client.Client
	taskQueue string
	pacing    time.Duration
}

func NewTemporalRunner(c client.Client, taskQueue string, pacing time.Duration) *TemporalRunner {
	return &TemporalRunner{client: c, taskQueue: taskQueue, pacing: pacing}
}

func (r *TemporalRunner) Run(ctx context.Context, job readcast.AudioJob) (readcast.AudioOutcome, error) {
	run, err := r.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:                                       workflowID(job),
		TaskQueue:                                r.taskQueue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, PodcastAudioWorkflow, PodcastAudioInput{
		Script:       job.Script,
		Filename:     job.Filename,
		DocumentID:   job.DocumentID,
		UserID:       job.UserID,
		Mode:         job.Mode,
		PacingMillis: int(r.pacing / time.Millisecond),
	})
	if err != nil {
		return readcast.AudioOutcome{}, fmt.Errorf("start podcast workflow: %w", err)
	}
	var out PodcastAudioResult
	if err := run.Get(ctx, &out); err != nil {
		return readcast.AudioOutcome{}, fmt.Errorf("podcast workflow %s: %w", run.GetID(), err)
	}
	return readcast.AudioOutcome{Filename: out.Filename, Attached: out.Attached}, nil
}

// workflowID follows the output filename; filenames are unique per request.
func workflowID(job readcast.AudioJob) string {
	return "podcast-" + strings.TrimSuffix(job.Filename, ".mp3")
}
