package tts

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Merger joins encoded audio files into out in the given order.
type Merger interface {
	Merge(ctx context.Context, parts []string, out string) error
}

// Manifest renders an ffmpeg concat list, quoting each path.
func Manifest(parts []string) string {
	var b strings.Builder
	for _, p := range parts {
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(p, "'", `'\''`))
	}
	return b.String()
}

// FFmpegMerger uses the concat demuxer with stream copy.
type FFmpegMerger struct {
	Path string
	run  func(ctx context.Context, name string, args ...string) ([]byte, error)
}

func NewFFmpegMerger(path string) *FFmpegMerger {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpegMerger{Path: path, run: runCommand}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

func (m *FFmpegMerger) Merge(ctx context.Context, parts []string, out string) error {
	list, err := os.CreateTemp("", "readcast-concat-*.txt")
	if err != nil {
		return fmt.Errorf("create concat list: %w", err)
	}
	defer os.Remove(list.Name())
	if _, err := list.WriteString(Manifest(parts)); err != nil {
		_ = list.Close()
		return fmt.Errorf("write concat list: %w", err)
	}
	if err := list.Close(); err != nil {
		return fmt.Errorf("close concat list: %w", err)
	}
	output, err := m.run(ctx, m.Path, "-safe", "0", "-f", "concat", "-i", list.Name(), "-c", "copy", out, "-y")
	if err != nil {
		return fmt.Errorf("ffmpeg concat: %w: %s", err, strings.TrimSpace(snippet(output)))
	}
	return nil
}

// ConcatFiles appends the raw bytes of parts into out.
func ConcatFiles(parts []string, out string) error {
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create merged audio: %w", err)
	}
	for _, p := range parts {
		if err := appendFile(f, p); err != nil {
			_ = f.Close()
			return err
		}
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close merged audio: %w", err)
	}
	return nil
}

func appendFile(dst io.Writer, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open audio part: %w", err)
	}
	defer src.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("copy audio part: %w", err)
	}
	return nil
}
