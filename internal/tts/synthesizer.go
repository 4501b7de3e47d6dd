// Package tts turns podcast scripts into one merged audio file through a
// rate-limited speech API.
package tts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"readcast/internal/logger"
	"readcast/internal/models"
	"readcast/internal/util"
)

const MaxTextRunes = 5000

var ErrEmptyScript = errors.New("podcast script has nothing to speak")

type Options struct {
	MaxAttempts int
	Pacing      time.Duration
	WorkDir     string
	Resolver    VoiceResolver
	Merger      Merger
}

type Synthesizer struct {
	speaker     Speaker
	resolver    VoiceResolver
	merger      Merger
	maxAttempts int
	pacing      time.Duration
	workDir     string
	sleep       func(ctx context.Context, d time.Duration) error
	log         *logger.Logger
}

func NewSynthesizer(speaker Speaker, opts Options, log *logger.Logger) *Synthesizer {
	if log == nil {
		log = logger.Nop()
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.Resolver == nil {
		opts.Resolver = DefaultResolver()
	}
	if opts.Merger == nil {
		opts.Merger = NewFFmpegMerger("")
	}
	return &Synthesizer{
		speaker:     speaker,
		resolver:    opts.Resolver,
		merger:      opts.Merger,
		maxAttempts: opts.MaxAttempts,
		pacing:      opts.Pacing,
		workDir:     opts.WorkDir,
		sleep:       sleepContext,
		log:         log.Component("tts_synthesizer"),
	}
}

func (s *Synthesizer) Steps(script models.PodcastScript) []Step {
	return Steps(script, s.resolver)
}

func (s *Synthesizer) Pacing() time.Duration {
	return s.pacing
}

// SpeakStep synthesizes one step with truncation and the retry policy applied.
func (s *Synthesizer) SpeakStep(ctx context.Context, step Step) ([]byte, error) {
	text := step.Text
	if n := utf8.RuneCountInString(text); n > MaxTextRunes {
		s.log.Warn("speech text too long, truncating", "kind", step.Kind, "index", step.Index, "runes", n, "limit", MaxTextRunes)
		text = util.TruncateRunes(text, MaxTextRunes)
	}
	return s.speakWithRetry(ctx, text, ProfileFor(step.Language, step.Gender))
}

// Synthesize speaks every step in order into a temporary directory, merges the
// parts into outDir/filename and returns the merged path. Parts are removed
// whether or not the merge succeeds.
func (s *Synthesizer) Synthesize(ctx context.Context, script models.PodcastScript, outDir, filename string) (string, error) {
	steps := s.Steps(script)
	if len(steps) == 0 {
		return "", ErrEmptyScript
	}
	tmp, err := os.MkdirTemp(s.workDir, "readcast-podcast-*")
	if err != nil {
		return "", fmt.Errorf("create podcast work dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	parts := make([]string, 0, len(steps))
	for i, step := range steps {
		if i > 0 && s.pacing > 0 {
			if err := s.sleep(ctx, s.pacing); err != nil {
				return "", err
			}
		}
		s.log.Debug("synthesizing step", "kind", step.Kind, "index", step.Index, "position", i+1, "total", len(steps))
		audio, err := s.SpeakStep(ctx, step)
		if err != nil {
			return "", fmt.Errorf("synthesize %s %d: %w", step.Kind, step.Index, err)
		}
		p := PartPath(tmp, i)
		if err := os.WriteFile(p, audio, 0o644); err != nil {
			return "", fmt.Errorf("write audio part: %w", err)
		}
		parts = append(parts, p)
	}

	if err := util.EnsureDir(outDir); err != nil {
		return "", err
	}
	out := filepath.Join(outDir, filename)
	if err := s.Merge(ctx, parts, out); err != nil {
		return "", err
	}
	s.log.Ctx(ctx).Info("podcast audio merged", "file", filename, "steps", len(steps))
	return out, nil
}

func PartPath(dir string, position int) string {
	return filepath.Join(dir, fmt.Sprintf("part_%03d.mp3", position))
}

// Merge prefers the configured merger and falls back to byte concatenation.
func (s *Synthesizer) Merge(ctx context.Context, parts []string, out string) error {
	if len(parts) == 0 {
		return ErrEmptyScript
	}
	err := s.merger.Merge(ctx, parts, out)
	if err == nil {
		return nil
	}
	s.log.Warn("audio merge failed, falling back to byte concatenation", "error", err)
	if err := ConcatFiles(parts, out); err != nil {
		return fmt.Errorf("merge audio: %w", err)
	}
	return nil
}
