package workflows

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"readcast/internal/activities"
	"readcast/internal/models"
	"readcast/internal/readcast"
	"readcast/internal/tts"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"
)

func registerActivityName[T any](env *testsuite.TestWorkflowEnvironment, name string, fn T) {
	env.RegisterActivityWithOptions(fn, activity.RegisterOptions{Name: name})
}

func newPodcastEnv(t *testing.T) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(PodcastAudioWorkflow)
	registerActivityName(env, "PrepareStepsActivity", func(context.Context, activities.PrepareStepsInput) (activities.PrepareStepsOutput, error) {
		return activities.PrepareStepsOutput{}, nil
	})
	registerActivityName(env, "SynthesizeStepActivity", func(context.Context, activities.SynthesizeStepInput) (activities.SynthesizeStepOutput, error) {
		return activities.SynthesizeStepOutput{}, nil
	})
	registerActivityName(env, "MergeStepsActivity", func(context.Context, activities.MergeStepsInput) (activities.MergeStepsOutput, error) {
		return activities.MergeStepsOutput{}, nil
	})
	registerActivityName(env, "PublishPodcastActivity", func(context.Context, activities.PublishPodcastInput) error { return nil })
	registerActivityName(env, "AttachPodcastActivity", func(context.Context, activities.AttachPodcastInput) error { return nil })
	registerActivityName(env, "CleanupActivity", func(context.Context, activities.CleanupInput) error { return nil })
	return env
}

var threeSteps = []tts.Step{
	{Kind: tts.StepIntro, Text: "Welcome."},
	{Kind: tts.StepSegment, Index: 0, Text: "Hello."},
	{Kind: tts.StepOutro, Text: "Bye."},
}

func podcastInput(docID int64) PodcastAudioInput {
	return PodcastAudioInput{
		Script:       models.PodcastScript{Mode: models.PodcastSolo, Intro: "Welcome.", Segments: []models.ScriptSegment{{Content: "Hello."}}, Outro: "Bye."},
		Filename:     "podcast_solo_u1_1.mp3",
		DocumentID:   docID,
		UserID:       "u1",
		Mode:         models.PodcastSolo,
		PacingMillis: 500,
	}
}

func TestPodcastAudioWorkflowSuccess(t *testing.T) {
	env := newPodcastEnv(t)
	var spoken []string
	env.OnActivity("PrepareStepsActivity", mock.Anything, mock.Anything).Return(activities.PrepareStepsOutput{WorkDir: "/tmp/w", Steps: threeSteps}, nil)
	env.OnActivity("SynthesizeStepActivity", mock.Anything, mock.Anything).Return(
		func(_ context.Context, in activities.SynthesizeStepInput) (activities.SynthesizeStepOutput, error) {
			spoken = append(spoken, in.Step.Text)
			return activities.SynthesizeStepOutput{PartPath: fmt.Sprintf("/tmp/w/part_%03d.mp3", in.Position)}, nil
		})
	env.OnActivity("MergeStepsActivity", mock.Anything, activities.MergeStepsInput{
		WorkDir:  "/tmp/w",
		Parts:    []string{"/tmp/w/part_000.mp3", "/tmp/w/part_001.mp3", "/tmp/w/part_002.mp3"},
		Filename: "podcast_solo_u1_1.mp3",
	}).Return(activities.MergeStepsOutput{Path: "/tmp/w/podcast_solo_u1_1.mp3"}, nil)
	env.OnActivity("PublishPodcastActivity", mock.Anything, activities.PublishPodcastInput{Path: "/tmp/w/podcast_solo_u1_1.mp3", Filename: "podcast_solo_u1_1.mp3"}).Return(nil)
	env.OnActivity("AttachPodcastActivity", mock.Anything, activities.AttachPodcastInput{DocumentID: 7, Mode: models.PodcastSolo, Filename: "podcast_solo_u1_1.mp3"}).Return(nil)
	env.OnActivity("CleanupActivity", mock.Anything, activities.CleanupInput{WorkDir: "/tmp/w"}).Return(nil).Once()

	env.ExecuteWorkflow(PodcastAudioWorkflow, podcastInput(7))
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out PodcastAudioResult
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, PodcastAudioResult{Filename: "podcast_solo_u1_1.mp3", Attached: true}, out)
	require.Equal(t, []string{"Welcome.", "Hello.", "Bye."}, spoken)
	env.AssertExpectations(t)

	val, err := env.QueryWorkflow(QueryGetPodcastStatus)
	require.NoError(t, err)
	var status PodcastStatus
	require.NoError(t, val.Get(&status))
	require.Equal(t, "completed", status.Status)
	require.Equal(t, 3, status.Done)
	require.Len(t, status.Steps, 3)
	require.Equal(t, "done", status.Steps[2].Status)
}

func TestPodcastAudioWorkflowStepFailureStillCleansUp(t *testing.T) {
	env := newPodcastEnv(t)
	env.OnActivity("PrepareStepsActivity", mock.Anything, mock.Anything).Return(activities.PrepareStepsOutput{WorkDir: "/tmp/w", Steps: threeSteps}, nil)
	env.OnActivity("SynthesizeStepActivity", mock.Anything, mock.Anything).Return(
		func(_ context.Context, in activities.SynthesizeStepInput) (activities.SynthesizeStepOutput, error) {
			if in.Position == 1 {
				return activities.SynthesizeStepOutput{}, errors.New("speech api rate limit exceeded")
			}
			return activities.SynthesizeStepOutput{PartPath: "p"}, nil
		})
	env.OnActivity("CleanupActivity", mock.Anything, activities.CleanupInput{WorkDir: "/tmp/w"}).Return(nil).Once()

	env.ExecuteWorkflow(PodcastAudioWorkflow, podcastInput(7))
	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())
	require.Contains(t, env.GetWorkflowError().Error(), "rate limit")
	env.AssertExpectations(t)
	env.AssertNumberOfCalls(t, "SynthesizeStepActivity", 2)
	env.AssertNotCalled(t, "MergeStepsActivity", mock.Anything, mock.Anything)
	env.AssertNotCalled(t, "PublishPodcastActivity", mock.Anything, mock.Anything)

	val, err := env.QueryWorkflow(QueryGetPodcastStatus)
	require.NoError(t, err)
	var status PodcastStatus
	require.NoError(t, val.Get(&status))
	require.Equal(t, "failed", status.Status)
	require.Equal(t, "failed", status.Steps[1].Status)
	require.Equal(t, "pending", status.Steps[2].Status)
}

func TestPodcastAudioWorkflowWithoutDocument(t *testing.T) {
	env := newPodcastEnv(t)
	env.OnActivity("PrepareStepsActivity", mock.Anything, mock.Anything).Return(activities.PrepareStepsOutput{WorkDir: "/tmp/w", Steps: threeSteps[:1]}, nil)
	env.OnActivity("SynthesizeStepActivity", mock.Anything, mock.Anything).Return(activities.SynthesizeStepOutput{PartPath: "/tmp/w/part_000.mp3"}, nil)
	env.OnActivity("MergeStepsActivity", mock.Anything, mock.Anything).Return(activities.MergeStepsOutput{Path: "/tmp/w/out.mp3"}, nil)
	env.OnActivity("PublishPodcastActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("CleanupActivity", mock.Anything, mock.Anything).Return(nil)

	env.ExecuteWorkflow(PodcastAudioWorkflow, podcastInput(0))
	require.NoError(t, env.GetWorkflowError())
	var out PodcastAudioResult
	require.NoError(t, env.GetWorkflowResult(&out))
	require.False(t, out.Attached)
	env.AssertNotCalled(t, "AttachPodcastActivity", mock.Anything, mock.Anything)
}

func TestPodcastAudioWorkflowAttachFailureLeavesItToCaller(t *testing.T) {
	env := newPodcastEnv(t)
	env.OnActivity("PrepareStepsActivity", mock.Anything, mock.Anything).Return(activities.PrepareStepsOutput{WorkDir: "/tmp/w", Steps: threeSteps[:1]}, nil)
	env.OnActivity("SynthesizeStepActivity", mock.Anything, mock.Anything).Return(activities.SynthesizeStepOutput{PartPath: "/tmp/w/part_000.mp3"}, nil)
	env.OnActivity("MergeStepsActivity", mock.Anything, mock.Anything).Return(activities.MergeStepsOutput{Path: "/tmp/w/out.mp3"}, nil)
	env.OnActivity("PublishPodcastActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("AttachPodcastActivity", mock.Anything, mock.Anything).Return(errors.New("connection refused"))
	env.OnActivity("CleanupActivity", mock.Anything, mock.Anything).Return(nil)

	env.ExecuteWorkflow(PodcastAudioWorkflow, podcastInput(7))
	require.NoError(t, env.GetWorkflowError())
	var out PodcastAudioResult
	require.NoError(t, env.GetWorkflowResult(&out))
	require.False(t, out.Attached)
	require.Equal(t, "podcast_solo_u1_1.mp3", out.Filename)
}

func TestWorkflowIDFollowsFilename(t *testing.T) {
	require.Equal(t, "podcast-podcast_dialogue_u1_42", workflowID(readcast.AudioJob{Filename: "podcast_dialogue_u1_42.mp3"}))
}
