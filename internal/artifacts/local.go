package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"readcast/internal/util"
)

type LocalBucket struct {
	root string
}

func NewLocalBucket(root string) (*LocalBucket, error) {
	if err := util.EnsureDir(root); err != nil {
		return nil, err
	}
	return &LocalBucket{root: root}, nil
}

func (b *LocalBucket) path(name string) (string, error) {
	if !util.ValidFilename(name) {
		return "", fmt.Errorf("%w: %q", util.ErrInvalidFilename, name)
	}
	return util.SafeJoin(b.root, name), nil
}

func (b *LocalBucket) Put(_ context.Context, name string, data []byte, _ string) error {
	p, err := b.path(name)
	if err != nil {
		return err
	}
	if err := util.WriteBytesAtomic(p, data); err != nil {
		return fmt.Errorf("write artifact %s: %w", name, err)
	}
	return nil
}

func (b *LocalBucket) PutFile(ctx context.Context, name, src, contentType string) error {
	p, err := b.path(name)
	if err != nil {
		return err
	}
	if err := os.Rename(src, p); err == nil {
		return nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read artifact source: %w", err)
	}
	if err := b.Put(ctx, name, data, contentType); err != nil {
		return err
	}
	_ = os.Remove(src)
	return nil
}

func (b *LocalBucket) Open(_ context.Context, name string) (io.ReadCloser, error) {
	p, err := b.path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open artifact %s: %w", name, err)
	}
	return f, nil
}

func (b *LocalBucket) Exists(_ context.Context, name string) (bool, error) {
	p, err := b.path(name)
	if err != nil {
		return false, err
	}
	st, err := os.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat artifact %s: %w", name, err)
	}
	return st.Mode().IsRegular(), nil
}
