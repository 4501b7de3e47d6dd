package readcast

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"readcast/internal/artifacts"
	"readcast/internal/util"
)

// Download opens an artifact the user may read. Unknown kinds, malformed
// names, foreign files and missing files all read as not found.
func (s *Service) Download(ctx context.Context, userID, kind, filename string) (io.ReadCloser, string, error) {
	if err := requireUser(userID); err != nil {
		return nil, "", err
	}
	k, err := artifacts.ParseKind(kind)
	if err != nil || !util.ValidFilename(filename) {
		return nil, "", notFound("file")
	}
	ok, err := s.canRead(ctx, userID, k, filename)
	if err != nil {
		return nil, "", err
	}
	if !ok {
		s.log.Ctx(ctx).Warn("download denied", "kind", k, "file", filename)
		return nil, "", notFound("file")
	}
	rc, err := s.store.Bucket(k).Open(ctx, filename)
	if err != nil {
		if errors.Is(err, artifacts.ErrNotFound) {
			return nil, "", notFound("file")
		}
		return nil, "", fmt.Errorf("open artifact: %w", err)
	}
	return rc, artifacts.ContentType(filename), nil
}

func (s *Service) canRead(ctx context.Context, userID string, k artifacts.Kind, name string) (bool, error) {
	owner := artifacts.OwnedBy(name, userID)
	switch ext := strings.ToLower(filepath.Ext(name)); {
	case k == artifacts.KindDocument && ext == ".pdf":
		if owner {
			return true, nil
		}
		return s.docs.OwnsPDF(ctx, userID, name)
	case k == artifacts.KindDocument && (ext == ".md" || ext == ".json"):
		return owner, nil
	case k == artifacts.KindPodcast && ext == ".mp3":
		if owner {
			return true, nil
		}
		return s.docs.OwnsPodcast(ctx, userID, name)
	default:
		return false, nil
	}
}
