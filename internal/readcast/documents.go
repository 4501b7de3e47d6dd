package readcast

import (
	"context"
	"errors"
	"fmt"
	"time"

	"readcast/internal/agents"
	"readcast/internal/artifacts"
	"readcast/internal/export"
	"readcast/internal/models"
	"readcast/internal/storage"
)

type ArticleDocumentRequest struct {
	UserID             string
	ArticleID          int64
	Difficulty         string
	Language           string
	CustomRequirements string
	ForceNew           bool
	Format             string
}

type FavoritesDocumentRequest struct {
	UserID             string
	Type               string
	FavoriteIDs        []int64
	Difficulty         string
	Language           string
	CustomRequirements string
	ForceNew           bool
	Format             string
}

type DocumentResult struct {
	DocumentID  int64                `json:"documentId"`
	Document    models.StudyDocument `json:"document"`
	Format      models.Format        `json:"format"`
	Filename    string               `json:"filename,omitempty"`
	FileURL     string               `json:"fileUrl,omitempty"`
	JSONContent *export.Envelope     `json:"jsonContent,omitempty"`
	CacheHit    bool                 `json:"cacheHit"`
}

type params struct {
	difficulty models.Difficulty
	language   models.LanguageMode
	format     models.Format
}

func parseParams(difficulty, language, format string) (params, error) {
	var p params
	var err error
	if p.difficulty, err = models.ParseDifficulty(difficulty); err != nil {
		return p, invalid("%v", err)
	}
	if p.language, err = models.ParseLanguage(language); err != nil {
		return p, invalid("%v", err)
	}
	if p.format, err = models.ParseFormat(format); err != nil {
		return p, invalid("%v", err)
	}
	return p, nil
}

// subject is what a document is generated from, plus how its exports are named.
type subject struct {
	key          models.CacheKey
	articleID    *int64
	articleTitle string
	generate     func(ctx context.Context) (models.StudyDocument, error)
	filename     func(f models.Format, at time.Time) string
}

func (s *Service) GenerateArticleDocument(ctx context.Context, req ArticleDocumentRequest) (DocumentResult, error) {
	if err := requireUser(req.UserID); err != nil {
		return DocumentResult{}, err
	}
	if req.ArticleID <= 0 {
		return DocumentResult{}, invalid("articleId is required")
	}
	p, err := parseParams(req.Difficulty, req.Language, req.Format)
	if err != nil {
		return DocumentResult{}, err
	}
	article, err := s.articles.Get(ctx, req.ArticleID)
	if err != nil {
		return DocumentResult{}, storeErr(err, "article")
	}
	sub := s.articleSubject(article, req.UserID, p, req.CustomRequirements)
	return s.produce(ctx, sub, p, req.ForceNew)
}

func (s *Service) articleSubject(article models.Article, userID string, p params, custom string) subject {
	id := article.ID
	return subject{
		key: models.CacheKey{
			Kind:               models.SubjectArticle,
			ArticleID:          article.ID,
			UserID:             userID,
			Difficulty:         p.difficulty,
			Language:           p.language,
			CustomRequirements: custom,
		},
		articleID:    &id,
		articleTitle: article.Title,
		generate: func(ctx context.Context) (models.StudyDocument, error) {
			return s.docGen.Generate(ctx, agents.DocumentInput{
				Text:               article.Content,
				Title:              article.Title,
				Difficulty:         p.difficulty,
				Language:           p.language,
				CustomRequirements: custom,
				TypeHint:           article.Type,
			})
		},
		filename: func(f models.Format, at time.Time) string {
			return artifacts.ArticleFilename(article.ID, userID, f, at)
		},
	}
}

func (s *Service) GenerateFavoritesDocument(ctx context.Context, req FavoritesDocumentRequest) (DocumentResult, error) {
	if err := requireUser(req.UserID); err != nil {
		return DocumentResult{}, err
	}
	sel, err := models.ParseSelection(req.Type)
	if err != nil {
		return DocumentResult{}, invalid("%v", err)
	}
	if sel == models.SelectSelected && len(req.FavoriteIDs) == 0 {
		return DocumentResult{}, invalid("favoriteIds are required for selected favorites")
	}
	p, err := parseParams(req.Difficulty, req.Language, req.Format)
	if err != nil {
		return DocumentResult{}, err
	}
	sub, err := s.favoritesSubject(ctx, req.UserID, sel, req.FavoriteIDs, p, req.CustomRequirements)
	if err != nil {
		return DocumentResult{}, err
	}
	return s.produce(ctx, sub, p, req.ForceNew)
}

func (s *Service) favoritesSubject(ctx context.Context, userID string, sel models.FavoritesSelection, ids []int64, p params, custom string) (subject, error) {
	favs, err := s.loadFavorites(ctx, userID, sel, ids)
	if err != nil {
		return subject{}, err
	}
	return subject{
		key: models.CacheKey{
			Kind:               models.SubjectFavorites,
			UserID:             userID,
			Difficulty:         p.difficulty,
			Language:           p.language,
			CustomRequirements: custom,
		},
		generate: func(ctx context.Context) (models.StudyDocument, error) {
			return s.docGen.GenerateFromFavorites(ctx, agents.FavoritesInput{
				Favorites:          favs,
				Difficulty:         p.difficulty,
				Language:           p.language,
				CustomRequirements: custom,
				Selection:          sel,
			})
		},
		filename: func(f models.Format, at time.Time) string {
			return artifacts.FavoritesFilename(sel, userID, f, at)
		},
	}, nil
}

func (s *Service) loadFavorites(ctx context.Context, userID string, sel models.FavoritesSelection, ids []int64) ([]models.FavoriteSentence, error) {
	var favs []models.FavoriteSentence
	var err error
	if sel == models.SelectToday {
		now := s.now()
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		favs, err = s.favorites.ListSince(ctx, userID, midnight)
	} else {
		favs, err = s.favorites.ListByIDs(ctx, userID, ids)
	}
	if err != nil {
		return nil, fmt.Errorf("load favorite sentences: %w", err)
	}
	if len(favs) == 0 {
		return nil, notFound("favorite sentences")
	}
	return favs, nil
}

// produce resolves the document and renders the requested export.
func (s *Service) produce(ctx context.Context, sub subject, p params, forceNew bool) (DocumentResult, error) {
	rec, hit, err := s.resolveOrGenerate(ctx, sub, p.format, forceNew)
	if err != nil {
		return DocumentResult{}, err
	}
	res := DocumentResult{DocumentID: rec.ID, Document: *rec.Document, Format: p.format, CacheHit: hit}
	meta := s.metadata(rec, sub.articleTitle)

	switch p.format {
	case models.FormatJSON:
		env := export.NewEnvelope(*rec.Document, meta)
		res.JSONContent = &env
	case models.FormatMarkdown:
		name := sub.filename(models.FormatMarkdown, s.now())
		if err := s.store.Documents.Put(ctx, name, []byte(export.Markdown(*rec.Document, meta)), artifacts.ContentType(name)); err != nil {
			return DocumentResult{}, saveErr("write markdown", true, err)
		}
		res.Filename = name
	case models.FormatPDF:
		name, err := s.ensurePDF(ctx, &rec, sub, meta)
		if err != nil {
			return DocumentResult{}, err
		}
		res.Filename = name
	}
	if res.Filename != "" {
		res.FileURL = DownloadURL(artifacts.KindDocument, res.Filename)
	}
	s.log.Ctx(ctx).Stage("document").Info("document resolved", "document_id", rec.ID, "format", p.format, "cache_hit", hit)
	return res, nil
}

// resolveOrGenerate reuses the newest record for the cache key unless forceNew.
// On a miss it generates, and for pdf renders and stores the file before the
// row is inserted so the record is born with its path.
func (s *Service) resolveOrGenerate(ctx context.Context, sub subject, format models.Format, forceNew bool) (models.DocumentRecord, bool, error) {
	key := sub.key.Normalized()
	if !forceNew {
		rec, err := s.docs.FindLatest(ctx, key)
		switch {
		case err == nil && rec.Document != nil:
			return rec, true, nil
		case err != nil && !errors.Is(err, storage.ErrNotFound):
			return models.DocumentRecord{}, false, fmt.Errorf("look up cached document: %w", err)
		}
	}

	doc, err := sub.generate(ctx)
	if err != nil {
		return models.DocumentRecord{}, false, upstream(err)
	}
	rec := models.DocumentRecord{
		Kind:               key.Kind,
		ArticleID:          sub.articleID,
		UserID:             key.UserID,
		Difficulty:         key.Difficulty,
		Language:           key.Language,
		CustomRequirements: key.CustomRequirements,
		Document:           &doc,
	}
	if format == models.FormatPDF {
		name, err := s.writePDF(ctx, doc, sub, s.metadata(rec, sub.articleTitle))
		if err != nil {
			return models.DocumentRecord{}, false, err
		}
		rec.PDFPath = name
	}
	saved, err := s.docs.Insert(ctx, rec)
	if err != nil {
		return models.DocumentRecord{}, false, saveErr("insert document record", true, err)
	}
	return saved, false, nil
}

// ensurePDF returns the record's pdf, regenerating it when the path is unset
// or the file has gone missing from the bucket.
func (s *Service) ensurePDF(ctx context.Context, rec *models.DocumentRecord, sub subject, meta export.Metadata) (string, error) {
	if rec.PDFPath != "" {
		ok, err := s.store.Documents.Exists(ctx, rec.PDFPath)
		if err != nil {
			return "", fmt.Errorf("check pdf artifact: %w", err)
		}
		if ok {
			return rec.PDFPath, nil
		}
		s.log.Ctx(ctx).Stage("pdf").Warn("pdf artifact missing, regenerating", "document_id", rec.ID, "file", rec.PDFPath)
	}
	name, err := s.writePDF(ctx, *rec.Document, sub, meta)
	if err != nil {
		return "", err
	}
	if err := s.docs.SetPDFPath(ctx, rec.ID, name); err != nil {
		return "", saveErr("update pdf path", true, err)
	}
	rec.PDFPath = name
	return name, nil
}

func (s *Service) writePDF(ctx context.Context, doc models.StudyDocument, sub subject, meta export.Metadata) (string, error) {
	b, err := s.pdf.Render(doc, meta)
	if err != nil {
		return "", saveErr("render pdf", true, err)
	}
	name := sub.filename(models.FormatPDF, s.now())
	if err := s.store.Documents.Put(ctx, name, b, artifacts.ContentType(name)); err != nil {
		return "", saveErr("write pdf", true, err)
	}
	return name, nil
}

func (s *Service) metadata(rec models.DocumentRecord, articleTitle string) export.Metadata {
	title := ""
	if rec.Document != nil {
		title = rec.Document.Title
	}
	return export.Metadata{
		Title:        title,
		ArticleTitle: articleTitle,
		Difficulty:   rec.Difficulty,
		Kind:         rec.Kind,
		Language:     rec.Language,
		GeneratedAt:  s.now(),
	}
}

// DocumentView is a stored record with download links for its artifacts.
type DocumentView struct {
	models.DocumentRecord
	PDFURL     string `json:"pdfUrl,omitempty"`
	PodcastURL string `json:"podcastUrl,omitempty"`
}

func view(rec models.DocumentRecord) DocumentView {
	return DocumentView{
		DocumentRecord: rec,
		PDFURL:         DownloadURL(artifacts.KindDocument, rec.PDFPath),
		PodcastURL:     DownloadURL(artifacts.KindPodcast, rec.PodcastPath),
	}
}

func (s *Service) GetDocument(ctx context.Context, userID string, id int64) (DocumentView, error) {
	if err := requireUser(userID); err != nil {
		return DocumentView{}, err
	}
	rec, err := s.docs.GetForUser(ctx, id, userID)
	if err != nil {
		return DocumentView{}, storeErr(err, "document")
	}
	return view(rec), nil
}

// ListArticleDocuments returns the user's documents for an article, newest first.
func (s *Service) ListArticleDocuments(ctx context.Context, userID string, articleID int64) ([]DocumentView, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	recs, err := s.docs.ListForArticle(ctx, articleID, userID)
	if err != nil {
		return nil, err
	}
	out := make([]DocumentView, 0, len(recs))
	for _, r := range recs {
		out = append(out, view(r))
	}
	return out, nil
}

// PreviewHTML renders a stored document's markdown export as HTML.
func (s *Service) PreviewHTML(ctx context.Context, userID string, id int64) (string, error) {
	if err := requireUser(userID); err != nil {
		return "", err
	}
	rec, err := s.docs.GetForUser(ctx, id, userID)
	if err != nil {
		return "", storeErr(err, "document")
	}
	if rec.Document == nil {
		return "", notFound("document content")
	}
	title := ""
	if rec.ArticleID != nil {
		if a, err := s.articles.Get(ctx, *rec.ArticleID); err == nil {
			title = a.Title
		}
	}
	return export.HTML(*rec.Document, s.metadata(rec, title))
}
