package api

import (
	"bytes"
	"context"
	"io"
	"os"
	"sync"
	"time"

	"readcast/internal/artifacts"
	"readcast/internal/models"
	"readcast/internal/storage"
)

type memDocs struct {
	mu   sync.Mutex
	recs []models.DocumentRecord
}

func (m *memDocs) FindLatest(_ context.Context, key models.CacheKey) (models.DocumentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key = key.Normalized()
	for i := len(m.recs) - 1; i >= 0; i-- {
		r := m.recs[i]
		var aid int64
		if r.ArticleID != nil {
			aid = *r.ArticleID
		}
		if (models.CacheKey{Kind: r.Kind, ArticleID: aid, UserID: r.UserID, Difficulty: r.Difficulty,
			Language: r.Language, CustomRequirements: r.CustomRequirements}).Normalized() == key {
			return r, nil
		}
	}
	return models.DocumentRecord{}, storage.ErrNotFound
}

func (m *memDocs) Insert(_ context.Context, rec models.DocumentRecord) (models.DocumentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = int64(len(m.recs) + 1)
	rec.CreatedAt = time.Now()
	m.recs = append(m.recs, rec)
	return rec, nil
}

func (m *memDocs) GetForUser(_ context.Context, id int64, userID string) (models.DocumentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.recs {
		if r.ID == id && r.UserID == userID {
			return r, nil
		}
	}
	return models.DocumentRecord{}, storage.ErrNotFound
}

func (m *memDocs) ListForArticle(_ context.Context, articleID int64, userID string) ([]models.DocumentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.DocumentRecord
	for i := len(m.recs) - 1; i >= 0; i-- {
		r := m.recs[i]
		if r.ArticleID != nil && *r.ArticleID == articleID && r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memDocs) set(id int64, fn func(*models.DocumentRecord)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.recs {
		if m.recs[i].ID == id {
			fn(&m.recs[i])
			return nil
		}
	}
	return storage.ErrNotFound
}

func (m *memDocs) SetPDFPath(_ context.Context, id int64, name string) error {
	return m.set(id, func(r *models.DocumentRecord) { r.PDFPath = name })
}

func (m *memDocs) SetPodcastScript(_ context.Context, id int64, mode models.PodcastMode, script models.PodcastScript) error {
	return m.set(id, func(r *models.DocumentRecord) { r.PodcastMode, r.PodcastScript = mode, &script })
}

func (m *memDocs) SetPodcast(_ context.Context, id int64, mode models.PodcastMode, name string) error {
	return m.set(id, func(r *models.DocumentRecord) { r.PodcastMode, r.PodcastPath = mode, name })
}

func (m *memDocs) OwnsPDF(context.Context, string, string) (bool, error)     { return false, nil }
func (m *memDocs) OwnsPodcast(context.Context, string, string) (bool, error) { return false, nil }

type memArticles struct {
	mu   sync.Mutex
	list []models.Article
}

func (m *memArticles) Create(_ context.Context, a models.Article) (models.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = int64(len(m.list) + 1)
	m.list = append(m.list, a)
	return a, nil
}

func (m *memArticles) Get(_ context.Context, id int64) (models.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id < 1 || int(id) > len(m.list) {
		return models.Article{}, storage.ErrNotFound
	}
	return m.list[id-1], nil
}

func (m *memArticles) List(_ context.Context, limit int) ([]models.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Article(nil), m.list...), nil
}

type memFavorites struct{}

func (memFavorites) Create(_ context.Context, f models.FavoriteSentence) (models.FavoriteSentence, error) {
	f.ID = 1
	return f, nil
}

func (memFavorites) ListSince(context.Context, string, time.Time) ([]models.FavoriteSentence, error) {
	return nil, nil
}

func (memFavorites) ListByIDs(context.Context, string, []int64) ([]models.FavoriteSentence, error) {
	return nil, nil
}

type memBucket struct {
	mu    sync.Mutex
	files map[string][]byte
}

func (b *memBucket) Put(_ context.Context, name string, data []byte, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.files[name] = data
	return nil
}

func (b *memBucket) PutFile(ctx context.Context, name, path, ct string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return b.Put(ctx, name, data, ct)
}

func (b *memBucket) Open(_ context.Context, name string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.files[name]
	if !ok {
		return nil, artifacts.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *memBucket) Exists(_ context.Context, name string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.files[name]
	return ok, nil
}
