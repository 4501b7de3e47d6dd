// Package artifacts stores generated documents and podcasts by filename.
package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"readcast/internal/config"
	"readcast/internal/logger"
	"readcast/internal/models"
)

var ErrNotFound = errors.New("artifact not found")

// Bucket is a flat namespace of artifact files addressed by filename only.
type Bucket interface {
	Put(ctx context.Context, name string, data []byte, contentType string) error
	// PutFile moves or uploads the file at path; the source may be gone afterwards.
	PutFile(ctx context.Context, name, path, contentType string) error
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Exists(ctx context.Context, name string) (bool, error)
}

type Kind string

const (
	KindDocument Kind = "document"
	KindPodcast  Kind = "podcast"
)

func ParseKind(raw string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(raw))); k {
	case KindDocument, KindPodcast:
		return k, nil
	default:
		return "", fmt.Errorf("invalid artifact type %q", raw)
	}
}

type Store struct {
	Documents Bucket
	Podcasts  Bucket
}

func (s Store) Bucket(k Kind) Bucket {
	if k == KindPodcast {
		return s.Podcasts
	}
	return s.Documents
}

// Open builds the document and podcast buckets for the configured backend.
func Open(ctx context.Context, cfg config.Config, log *logger.Logger) (Store, error) {
	switch strings.ToLower(cfg.ArtifactBackend) {
	case "", "local":
		docs, err := NewLocalBucket(cfg.DocumentsDir)
		if err != nil {
			return Store{}, err
		}
		pods, err := NewLocalBucket(cfg.PodcastsDir)
		if err != nil {
			return Store{}, err
		}
		return Store{Documents: docs, Podcasts: pods}, nil
	case "s3":
		client, err := NewS3Client(S3Options{
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			return Store{}, err
		}
		log.Info("artifact backend s3", "bucket", cfg.S3Bucket, "prefix", cfg.S3Prefix)
		return Store{
			Documents: NewS3Bucket(client, cfg.S3Bucket, cfg.S3Prefix+"/documents"),
			Podcasts:  NewS3Bucket(client, cfg.S3Bucket, cfg.S3Prefix+"/podcasts"),
		}, nil
	default:
		return Store{}, fmt.Errorf("unknown artifact backend %q", cfg.ArtifactBackend)
	}
}

func ContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return "application/pdf"
	case ".json":
		return "application/json"
	case ".md":
		return "text/markdown"
	case ".mp3":
		return "audio/mpeg"
	default:
		return "application/octet-stream"
	}
}

func ArticleFilename(articleID int64, userID string, f models.Format, at time.Time) string {
	return fmt.Sprintf("article_%d_%s_%d.%s", articleID, userID, at.UnixNano(), f)
}

func FavoritesFilename(sel models.FavoritesSelection, userID string, f models.Format, at time.Time) string {
	return fmt.Sprintf("favorites_%s_%s_%d.%s", sel, userID, at.UnixNano(), f)
}

func PodcastFilename(mode models.PodcastMode, userID string, at time.Time) string {
	return fmt.Sprintf("podcast_%s_%s_%d.mp3", mode, userID, at.UnixNano())
}

// OwnedBy reports whether name is a generated filename of the shape
// <kind>_<qualifier>_<userID>_<timestamp>.<ext> for exactly this user.
// User ids may contain underscores; kind and qualifier never do.
func OwnedBy(name, userID string) bool {
	if userID == "" {
		return false
	}
	base := strings.TrimSuffix(name, filepath.Ext(name))
	i := strings.LastIndexByte(base, '_')
	if i < 0 || !isDigits(base[i+1:]) {
		return false
	}
	head, ok := strings.CutSuffix(base[:i], "_"+userID)
	if !ok {
		return false
	}
	kind, qualifier, ok := strings.Cut(head, "_")
	if !ok || qualifier == "" || strings.Contains(qualifier, "_") {
		return false
	}
	switch kind {
	case "article":
		return isDigits(qualifier)
	case "favorites", "podcast":
		return true
	default:
		return false
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
