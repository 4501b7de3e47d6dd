// Package readcast is the document pipeline: cached study-document generation,
// lazy exports, podcast scripts and audio, access-controlled downloads and
// document Q&A.
package readcast

import (
	"context"
	"errors"
	"net/url"
	"time"

	"readcast/internal/agents"
	"readcast/internal/artifacts"
	"readcast/internal/export"
	"readcast/internal/extract"
	"readcast/internal/logger"
	"readcast/internal/models"
	"readcast/internal/providers"
	"readcast/internal/session"
	"readcast/internal/storage"
)

type DocumentStore interface {
	FindLatest(ctx context.Context, key models.CacheKey) (models.DocumentRecord, error)
	Insert(ctx context.Context, rec models.DocumentRecord) (models.DocumentRecord, error)
	GetForUser(ctx context.Context, id int64, userID string) (models.DocumentRecord, error)
	ListForArticle(ctx context.Context, articleID int64, userID string) ([]models.DocumentRecord, error)
	SetPDFPath(ctx context.Context, id int64, name string) error
	SetPodcastScript(ctx context.Context, id int64, mode models.PodcastMode, script models.PodcastScript) error
	SetPodcast(ctx context.Context, id int64, mode models.PodcastMode, name string) error
	OwnsPDF(ctx context.Context, userID, name string) (bool, error)
	OwnsPodcast(ctx context.Context, userID, name string) (bool, error)
}

type ArticleStore interface {
	Create(ctx context.Context, a models.Article) (models.Article, error)
	Get(ctx context.Context, id int64) (models.Article, error)
	List(ctx context.Context, limit int) ([]models.Article, error)
}

type FavoriteStore interface {
	Create(ctx context.Context, f models.FavoriteSentence) (models.FavoriteSentence, error)
	ListSince(ctx context.Context, userID string, since time.Time) ([]models.FavoriteSentence, error)
	ListByIDs(ctx context.Context, userID string, ids []int64) ([]models.FavoriteSentence, error)
}

type ArticleExtractor interface {
	Parse(ctx context.Context, rawURL string) (extract.Parsed, error)
}

type Deps struct {
	Documents DocumentStore
	Articles  ArticleStore
	Favorites FavoriteStore
	Artifacts artifacts.Store
	LLM       providers.LLMProvider
	PDF       *export.PDFRenderer
	Extractor ArticleExtractor
	Sessions  session.Store
	Audio     AudioRunner
	Log       *logger.Logger
}

type Service struct {
	docs      DocumentStore
	articles  ArticleStore
	favorites FavoriteStore
	store     artifacts.Store

	docGen     *agents.DocumentGenerator
	scriptGen  *agents.ScriptGenerator
	classifier *agents.Classifier
	tutor      *agents.Tutor

	pdf       *export.PDFRenderer
	extractor ArticleExtractor
	sessions  session.Store
	audio     AudioRunner
	log       *logger.Logger
	now       func() time.Time
}

func New(d Deps) *Service {
	log := d.Log
	if log == nil {
		log = logger.Nop()
	}
	pdf := d.PDF
	if pdf == nil {
		pdf = export.NewPDFRenderer(nil, log)
	}
	sessions := d.Sessions
	if sessions == nil {
		sessions = session.NewMemoryStore(session.Options{})
	}
	return &Service{
		docs:       d.Documents,
		articles:   d.Articles,
		favorites:  d.Favorites,
		store:      d.Artifacts,
		docGen:     agents.NewDocumentGenerator(d.LLM, log),
		scriptGen:  agents.NewScriptGenerator(d.LLM, log),
		classifier: agents.NewClassifier(d.LLM, log),
		tutor:      agents.NewTutor(d.LLM),
		pdf:        pdf,
		extractor:  d.Extractor,
		sessions:   sessions,
		audio:      d.Audio,
		log:        log.Component("readcast"),
		now:        time.Now,
	}
}

// DownloadURL is the API path serving an artifact by bucket and filename.
func DownloadURL(kind artifacts.Kind, name string) string {
	if name == "" {
		return ""
	}
	return "/api/readcast/download/" + string(kind) + "/" + url.PathEscape(name)
}

// storeErr maps repository not-found onto the service error.
func storeErr(err error, what string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return notFound(what)
	}
	return err
}

func requireUser(userID string) error {
	if userID == "" {
		return invalid("missing user id")
	}
	return nil
}
