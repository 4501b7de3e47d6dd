package activities

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"readcast/internal/artifacts"
	"readcast/internal/logger"
	"readcast/internal/models"
	"readcast/internal/tts"
	"readcast/internal/util"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
)

// PodcastRecorder records a finished podcast on its document.
type PodcastRecorder interface {
	SetPodcast(ctx context.Context, id int64, mode models.PodcastMode, name string) error
}

type Activities struct {
	synth    *tts.Synthesizer
	podcasts artifacts.Bucket
	docs     PodcastRecorder
	workDir  string
	log      *logger.Logger
}

func New(synth *tts.Synthesizer, podcasts artifacts.Bucket, docs PodcastRecorder, workDir string, log *logger.Logger) *Activities {
	if log == nil {
		log = logger.Nop()
	}
	return &Activities{
		synth:    synth,
		podcasts: podcasts,
		docs:     docs,
		workDir:  workDir,
		log:      log.Component("podcast_activities"),
	}
}

func (a *Activities) PrepareStepsActivity(ctx context.Context, in PrepareStepsInput) (PrepareStepsOutput, error) {
	_ = ctx
	steps := a.synth.Steps(in.Script)
	if len(steps) == 0 {
		return PrepareStepsOutput{}, temporal.NewNonRetryableApplicationError(tts.ErrEmptyScript.Error(), "EmptyScript", tts.ErrEmptyScript)
	}
	if a.workDir != "" {
		if err := util.EnsureDir(a.workDir); err != nil {
			return PrepareStepsOutput{}, err
		}
	}
	dir, err := os.MkdirTemp(a.workDir, "readcast-podcast-*")
	if err != nil {
		return PrepareStepsOutput{}, fmt.Errorf("create podcast work dir: %w", err)
	}
	return PrepareStepsOutput{WorkDir: dir, Steps: steps}, nil
}

// SynthesizeStepActivity speaks one step and writes it to its part file. The
// speech retry policy runs inside the activity, so a returned error is final.
func (a *Activities) SynthesizeStepActivity(ctx context.Context, in SynthesizeStepInput) (SynthesizeStepOutput, error) {
	audio, err := a.synth.SpeakStep(ctx, in.Step)
	if err != nil {
		return SynthesizeStepOutput{}, temporal.NewNonRetryableApplicationError(err.Error(), string(tts.Classify(err)), err)
	}
	p := tts.PartPath(in.WorkDir, in.Position)
	if err := os.WriteFile(p, audio, 0o644); err != nil {
		return SynthesizeStepOutput{}, fmt.Errorf("write audio part: %w", err)
	}
	activity.GetLogger(ctx).Debug("step synthesized", "kind", in.Step.Kind, "index", in.Step.Index, "bytes", len(audio))
	return SynthesizeStepOutput{PartPath: p, Bytes: len(audio)}, nil
}

func (a *Activities) MergeStepsActivity(ctx context.Context, in MergeStepsInput) (MergeStepsOutput, error) {
	out := filepath.Join(in.WorkDir, in.Filename)
	if err := a.synth.Merge(ctx, in.Parts, out); err != nil {
		return MergeStepsOutput{}, err
	}
	return MergeStepsOutput{Path: out}, nil
}

func (a *Activities) PublishPodcastActivity(ctx context.Context, in PublishPodcastInput) error {
	if err := a.podcasts.PutFile(ctx, in.Filename, in.Path, artifacts.ContentType(in.Filename)); err != nil {
		return fmt.Errorf("publish podcast %s: %w", in.Filename, err)
	}
	a.log.Stage("publish").Info("podcast published", "file", in.Filename)
	return nil
}

func (a *Activities) AttachPodcastActivity(ctx context.Context, in AttachPodcastInput) error {
	if err := a.docs.SetPodcast(ctx, in.DocumentID, in.Mode, in.Filename); err != nil {
		return fmt.Errorf("attach podcast to document %d: %w", in.DocumentID, err)
	}
	return nil
}

func (a *Activities) CleanupActivity(ctx context.Context, in CleanupInput) error {
	_ = ctx
	if in.WorkDir == "" {
		return nil
	}
	if err := os.RemoveAll(in.WorkDir); err != nil {
		a.log.Stage("cleanup").Warn("podcast work dir cleanup failed", "dir", in.WorkDir, "error", err)
		return err
	}
	return nil
}
