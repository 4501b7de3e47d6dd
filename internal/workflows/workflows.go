package workflows

import (
	"time"

	"readcast/internal/activities"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const QueryGetPodcastStatus = "GetPodcastStatus"

// PodcastAudioWorkflow speaks a script one step at a time, in order, with a
// durable pacing timer between calls, then merges and publishes the audio.
// The work dir is removed whether or not the run succeeds.
func PodcastAudioWorkflow(ctx workflow.Context, input PodcastAudioInput) (PodcastAudioResult, error) {
	status := PodcastStatus{
		Filename:    input.Filename,
		DocumentID:  input.DocumentID,
		CurrentStep: "init",
		Status:      "processing",
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetPodcastStatus, func() (PodcastStatus, error) {
		return status, nil
	}); err != nil {
		return PodcastAudioResult{}, err
	}
	fail := func(err error) (PodcastAudioResult, error) {
		status.Status = "failed"
		status.FailReason = err.Error()
		return PodcastAudioResult{}, err
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)
	// speech retries happen inside the activity
	speakCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})

	status.CurrentStep = "prepare"
	var prep activities.PrepareStepsOutput
	if err := workflow.ExecuteActivity(ctx, "PrepareStepsActivity", activities.PrepareStepsInput{Script: input.Script, Filename: input.Filename}).Get(ctx, &prep); err != nil {
		return fail(err)
	}
	defer func() {
		dctx, _ := workflow.NewDisconnectedContext(ctx)
		_ = workflow.ExecuteActivity(dctx, "CleanupActivity", activities.CleanupInput{WorkDir: prep.WorkDir}).Get(dctx, nil)
	}()

	status.Total = len(prep.Steps)
	for _, step := range prep.Steps {
		status.Steps = append(status.Steps, StepStatus{Kind: step.Kind, Index: step.Index, Status: "pending"})
	}
	pacing := time.Duration(input.PacingMillis) * time.Millisecond
	parts := make([]string, 0, len(prep.Steps))
	for i, step := range prep.Steps {
		if i > 0 && pacing > 0 {
			if err := workflow.Sleep(ctx, pacing); err != nil {
				return fail(err)
			}
		}
		status.CurrentStep = "synthesize"
		status.Steps[i].Status = "processing"
		var out activities.SynthesizeStepOutput
		if err := workflow.ExecuteActivity(speakCtx, "SynthesizeStepActivity", activities.SynthesizeStepInput{WorkDir: prep.WorkDir, Position: i, Step: step}).Get(ctx, &out); err != nil {
			status.Steps[i].Status = "failed"
			return fail(err)
		}
		status.Steps[i].Status = "done"
		status.Done++
		parts = append(parts, out.PartPath)
	}

	status.CurrentStep = "merge"
	var merged activities.MergeStepsOutput
	if err := workflow.ExecuteActivity(ctx, "MergeStepsActivity", activities.MergeStepsInput{WorkDir: prep.WorkDir, Parts: parts, Filename: input.Filename}).Get(ctx, &merged); err != nil {
		return fail(err)
	}

	status.CurrentStep = "publish"
	if err := workflow.ExecuteActivity(ctx, "PublishPodcastActivity", activities.PublishPodcastInput{Path: merged.Path, Filename: input.Filename}).Get(ctx, nil); err != nil {
		return fail(err)
	}

	result := PodcastAudioResult{Filename: input.Filename}
	if input.DocumentID > 0 {
		status.CurrentStep = "attach"
		// the audio is already published; the caller records it if attaching fails
		err := workflow.ExecuteActivity(ctx, "AttachPodcastActivity", activities.AttachPodcastInput{DocumentID: input.DocumentID, Mode: input.Mode, Filename: input.Filename}).Get(ctx, nil)
		if err != nil {
			workflow.GetLogger(ctx).Warn("attach podcast failed", "document_id", input.DocumentID, "error", err)
		}
		result.Attached = err == nil
	}
	status.CurrentStep = "done"
	status.Status = "completed"
	return result, nil
}
