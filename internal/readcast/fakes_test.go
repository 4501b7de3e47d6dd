package readcast

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"readcast/internal/artifacts"
	"readcast/internal/extract"
	"readcast/internal/logger"
	"readcast/internal/models"
	"readcast/internal/providers"
	"readcast/internal/storage"
)

type fakeDocs struct {
	mu        sync.Mutex
	recs      []models.DocumentRecord
	insertErr error
}

func (f *fakeDocs) FindLatest(_ context.Context, key models.CacheKey) (models.DocumentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key = key.Normalized()
	for i := len(f.recs) - 1; i >= 0; i-- {
		r := f.recs[i]
		var aid int64
		if r.ArticleID != nil {
			aid = *r.ArticleID
		}
		got := models.CacheKey{Kind: r.Kind, ArticleID: aid, UserID: r.UserID, Difficulty: r.Difficulty,
			Language: r.Language, CustomRequirements: r.CustomRequirements}.Normalized()
		if got == key {
			return r, nil
		}
	}
	return models.DocumentRecord{}, storage.ErrNotFound
}

func (f *fakeDocs) Insert(_ context.Context, rec models.DocumentRecord) (models.DocumentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return models.DocumentRecord{}, f.insertErr
	}
	rec.ID = int64(len(f.recs) + 1)
	rec.CreatedAt = time.Now()
	rec.UpdatedAt = rec.CreatedAt
	f.recs = append(f.recs, rec)
	return rec, nil
}

func (f *fakeDocs) GetForUser(_ context.Context, id int64, userID string) (models.DocumentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.recs {
		if r.ID == id && r.UserID == userID {
			return r, nil
		}
	}
	return models.DocumentRecord{}, storage.ErrNotFound
}

func (f *fakeDocs) ListForArticle(_ context.Context, articleID int64, userID string) ([]models.DocumentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.DocumentRecord
	for _, r := range f.recs {
		if r.ArticleID != nil && *r.ArticleID == articleID && r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeDocs) update(id int64, fn func(*models.DocumentRecord)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.recs {
		if f.recs[i].ID == id {
			fn(&f.recs[i])
			return nil
		}
	}
	return storage.ErrNotFound
}

func (f *fakeDocs) SetPDFPath(_ context.Context, id int64, name string) error {
	return f.update(id, func(r *models.DocumentRecord) { r.PDFPath = name })
}

func (f *fakeDocs) SetPodcastScript(_ context.Context, id int64, mode models.PodcastMode, script models.PodcastScript) error {
	return f.update(id, func(r *models.DocumentRecord) {
		r.PodcastMode = mode
		r.PodcastScript = &script
	})
}

func (f *fakeDocs) SetPodcast(_ context.Context, id int64, mode models.PodcastMode, name string) error {
	return f.update(id, func(r *models.DocumentRecord) {
		r.PodcastMode = mode
		r.PodcastPath = name
	})
}

func (f *fakeDocs) owns(userID string, match func(models.DocumentRecord) bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.recs {
		if r.UserID == userID && match(r) {
			return true
		}
	}
	return false
}

func (f *fakeDocs) OwnsPDF(_ context.Context, userID, name string) (bool, error) {
	return f.owns(userID, func(r models.DocumentRecord) bool { return r.PDFPath == name }), nil
}

func (f *fakeDocs) OwnsPodcast(_ context.Context, userID, name string) (bool, error) {
	return f.owns(userID, func(r models.DocumentRecord) bool { return r.PodcastPath == name }), nil
}

func (f *fakeDocs) get(id int64) models.DocumentRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recs[id-1]
}

type fakeArticles struct {
	mu   sync.Mutex
	list []models.Article
}

func (f *fakeArticles) Create(_ context.Context, a models.Article) (models.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a.ID = int64(len(f.list) + 1)
	f.list = append(f.list, a)
	return a, nil
}

func (f *fakeArticles) Get(_ context.Context, id int64) (models.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.list {
		if a.ID == id {
			return a, nil
		}
	}
	return models.Article{}, storage.ErrNotFound
}

func (f *fakeArticles) List(_ context.Context, limit int) ([]models.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit > len(f.list) {
		limit = len(f.list)
	}
	return append([]models.Article(nil), f.list[:limit]...), nil
}

type fakeFavorites struct {
	mu   sync.Mutex
	list []models.FavoriteSentence
}

func (f *fakeFavorites) Create(_ context.Context, fav models.FavoriteSentence) (models.FavoriteSentence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fav.ID = int64(len(f.list) + 1)
	if fav.CreatedAt.IsZero() {
		fav.CreatedAt = time.Now()
	}
	f.list = append(f.list, fav)
	return fav, nil
}

func (f *fakeFavorites) ListSince(_ context.Context, userID string, since time.Time) ([]models.FavoriteSentence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.FavoriteSentence
	for _, fav := range f.list {
		if fav.UserID == userID && !fav.CreatedAt.Before(since) {
			out = append(out, fav)
		}
	}
	return out, nil
}

func (f *fakeFavorites) ListByIDs(_ context.Context, userID string, ids []int64) ([]models.FavoriteSentence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.FavoriteSentence
	for _, fav := range f.list {
		for _, id := range ids {
			if fav.ID == id && fav.UserID == userID {
				out = append(out, fav)
			}
		}
	}
	return out, nil
}

type memBucket struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemBucket() *memBucket {
	return &memBucket{files: map[string][]byte{}}
}

func (b *memBucket) Put(_ context.Context, name string, data []byte, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.files[name] = append([]byte(nil), data...)
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

func (b *memBucket) remove(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.files, name)
}

func (b *memBucket) names(ext string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for n := range b.files {
		if strings.HasSuffix(n, ext) {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

// fakeLLM answers from the mock provider unless reply overrides an operation.
type fakeLLM struct {
	mu      sync.Mutex
	calls   map[string]int
	prompts map[string][]string
	reply   func(req providers.GenerateRequest) (string, error)
}

func newFakeLLM() *fakeLLM {
	return &fakeLLM{calls: map[string]int{}, prompts: map[string][]string{}}
}

func (f *fakeLLM) Generate(ctx context.Context, req providers.GenerateRequest) (providers.GenerateResponse, providers.ProviderInfo, error) {
	f.mu.Lock()
	f.calls[req.Operation]++
	f.prompts[req.Operation] = append(f.prompts[req.Operation], req.Prompt)
	reply := f.reply
	f.mu.Unlock()
	if reply != nil {
		text, err := reply(req)
		if err != nil {
			return providers.GenerateResponse{}, providers.ProviderInfo{}, err
		}
		if text != "" {
			return providers.GenerateResponse{Text: text}, providers.ProviderInfo{Name: "fake"}, nil
		}
	}
	return providers.NewMockProvider().Generate(ctx, req)
}

func (f *fakeLLM) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

type fakeRunner struct {
	mu       sync.Mutex
	jobs     []AudioJob
	attached bool
	err      error
}

func (r *fakeRunner) Run(_ context.Context, job AudioJob) (AudioOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return AudioOutcome{}, r.err
	}
	r.jobs = append(r.jobs, job)
	return AudioOutcome{Filename: job.Filename, Attached: r.attached}, nil
}

type fakeExtractor struct {
	parsed extract.Parsed
	err    error
}

func (f fakeExtractor) Parse(context.Context, string) (extract.Parsed, error) {
	return f.parsed, f.err
}

type harness struct {
	svc       *Service
	docs      *fakeDocs
	articles  *fakeArticles
	favorites *fakeFavorites
	documents *memBucket
	podcasts  *memBucket
	llm       *fakeLLM
	runner    *fakeRunner
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		docs:      &fakeDocs{},
		articles:  &fakeArticles{},
		favorites: &fakeFavorites{},
		documents: newMemBucket(),
		podcasts:  newMemBucket(),
		llm:       newFakeLLM(),
		runner:    &fakeRunner{},
	}
	h.svc = New(Deps{
		Documents: h.docs,
		Articles:  h.articles,
		Favorites: h.favorites,
		Artifacts: artifacts.Store{Documents: h.documents, Podcasts: h.podcasts},
		LLM:       h.llm,
		Extractor: fakeExtractor{err: errors.New("no network in tests")},
		Audio:     h.runner,
		Log:       logger.Nop(),
	})
	var mu sync.Mutex
	tick := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	h.svc.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick = tick.Add(time.Millisecond)
		return tick
	}
	_, _ = h.articles.Create(context.Background(), models.Article{
		Title:   "Ocean Winds",
		Content: "Offshore wind farms are spreading along the coast as turbines grow larger and cheaper to build.",
		Type:    "technology",
	})
	return h
}
