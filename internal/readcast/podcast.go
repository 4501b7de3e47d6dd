package readcast

import (
	"context"
	"errors"
	"fmt"
	"os"

	"readcast/internal/artifacts"
	"readcast/internal/models"
	"readcast/internal/tts"
)

// AudioJob is one script to synthesize into the podcasts bucket under Filename.
// DocumentID is zero for scripts not tied to a stored document.
type AudioJob struct {
	Script     models.PodcastScript `json:"script"`
	Filename   string               `json:"filename"`
	DocumentID int64                `json:"documentId,omitempty"`
	UserID     string               `json:"userId"`
	Mode       models.PodcastMode   `json:"mode"`
}

// AudioOutcome reports where the audio landed. Attached is true when the
// runner already recorded the podcast on the document.
type AudioOutcome struct {
	Filename string `json:"filename"`
	Attached bool   `json:"attached"`
}

// AudioRunner executes podcast synthesis, in process or as a durable workflow.
type AudioRunner interface {
	Run(ctx context.Context, job AudioJob) (AudioOutcome, error)
}

// InlineRunner synthesizes within the calling request.
type InlineRunner struct {
	synth    *tts.Synthesizer
	podcasts artifacts.Bucket
	workDir  string
}

func NewInlineRunner(synth *tts.Synthesizer, podcasts artifacts.Bucket, workDir string) *InlineRunner {
	return &InlineRunner{synth: synth, podcasts: podcasts, workDir: workDir}
}

func (r *InlineRunner) Run(ctx context.Context, job AudioJob) (AudioOutcome, error) {
	path, err := r.synth.Synthesize(ctx, job.Script, r.workDir, job.Filename)
	if err != nil {
		if errors.Is(err, tts.ErrEmptyScript) {
			return AudioOutcome{}, invalid("%v", err)
		}
		return AudioOutcome{}, upstream(err)
	}
	// PutFile may have moved it already.
	defer os.Remove(path)
	if err := r.podcasts.PutFile(ctx, job.Filename, path, artifacts.ContentType(job.Filename)); err != nil {
		return AudioOutcome{}, saveErr("store podcast audio", false, err)
	}
	return AudioOutcome{Filename: job.Filename}, nil
}

type ScriptRequest struct {
	UserID     string
	DocumentID int64
	Document   *models.StudyDocument
	Mode       string
	Language   string
}

type ScriptResult struct {
	DocumentID int64                `json:"documentId,omitempty"`
	Script     models.PodcastScript `json:"script"`
}

// GenerateScript writes a podcast script for a stored document or for inline
// document content. Scripts for stored documents are saved on the record.
func (s *Service) GenerateScript(ctx context.Context, req ScriptRequest) (ScriptResult, error) {
	if err := requireUser(req.UserID); err != nil {
		return ScriptResult{}, err
	}
	mode, err := models.ParsePodcastMode(req.Mode)
	if err != nil {
		return ScriptResult{}, invalid("%v", err)
	}
	var doc models.StudyDocument
	lang := req.Language
	switch {
	case req.DocumentID > 0:
		rec, err := s.docs.GetForUser(ctx, req.DocumentID, req.UserID)
		if err != nil {
			return ScriptResult{}, storeErr(err, "document")
		}
		if rec.Document == nil {
			return ScriptResult{}, notFound("document content")
		}
		doc = *rec.Document
		if lang == "" {
			lang = string(rec.Language)
		}
	case req.Document != nil:
		doc = *req.Document
	default:
		return ScriptResult{}, invalid("documentId or documentContent is required")
	}
	language, err := models.ParseLanguage(lang)
	if err != nil {
		return ScriptResult{}, invalid("%v", err)
	}

	script, err := s.scriptGen.Generate(ctx, doc, mode, language)
	if err != nil {
		return ScriptResult{}, upstream(err)
	}
	if req.DocumentID > 0 {
		if err := s.docs.SetPodcastScript(ctx, req.DocumentID, mode, script); err != nil {
			return ScriptResult{}, saveErr("save podcast script", true, err)
		}
	}
	return ScriptResult{DocumentID: req.DocumentID, Script: script}, nil
}

type AudioRequest struct {
	UserID     string
	DocumentID int64
	Script     models.PodcastScript
	Mode       string
}

type AudioResult struct {
	DocumentID int64  `json:"documentId,omitempty"`
	Filename   string `json:"filename"`
	PodcastURL string `json:"podcastUrl"`
}

func (s *Service) GenerateAudio(ctx context.Context, req AudioRequest) (AudioResult, error) {
	if err := requireUser(req.UserID); err != nil {
		return AudioResult{}, err
	}
	if s.audio == nil {
		return AudioResult{}, upstream(errors.New("podcast audio is not configured"))
	}
	raw := req.Mode
	if raw == "" {
		raw = string(req.Script.Mode)
	}
	if raw == "" {
		raw = string(models.PodcastSolo)
	}
	mode, err := models.ParsePodcastMode(raw)
	if err != nil {
		return AudioResult{}, invalid("%v", err)
	}
	if len(tts.Steps(req.Script, tts.DefaultResolver())) == 0 {
		return AudioResult{}, invalid("script has nothing to speak")
	}
	if req.DocumentID > 0 {
		if _, err := s.docs.GetForUser(ctx, req.DocumentID, req.UserID); err != nil {
			return AudioResult{}, storeErr(err, "document")
		}
	}

	req.Script.Mode = mode
	job := AudioJob{
		Script:     req.Script,
		Filename:   artifacts.PodcastFilename(mode, req.UserID, s.now()),
		DocumentID: req.DocumentID,
		UserID:     req.UserID,
		Mode:       mode,
	}
	out, err := s.audio.Run(ctx, job)
	if err != nil {
		return AudioResult{}, classifyRunErr(err)
	}
	if req.DocumentID > 0 && !out.Attached {
		if err := s.docs.SetPodcast(ctx, req.DocumentID, mode, out.Filename); err != nil {
			return AudioResult{}, saveErr("attach podcast", true, err)
		}
	}
	s.log.Ctx(ctx).Stage("podcast_audio").Info("podcast audio ready", "document_id", req.DocumentID, "file", out.Filename)
	return AudioResult{
		DocumentID: req.DocumentID,
		Filename:   out.Filename,
		PodcastURL: DownloadURL(artifacts.KindPodcast, out.Filename),
	}, nil
}

// classifyRunErr leaves runner errors that already carry a service category
// alone and treats anything else as an upstream failure.
func classifyRunErr(err error) error {
	var se *SaveError
	switch {
	case errors.As(err, &se), errors.Is(err, ErrInvalidInput), errors.Is(err, ErrUpstream), errors.Is(err, ErrNotFound):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return upstream(err)
	}
}

type ArticlePodcastRequest struct {
	UserID             string
	ArticleID          int64
	Difficulty         string
	Language           string
	CustomRequirements string
	ForceNew           bool
	Mode               string
}

type FavoritesPodcastRequest struct {
	UserID             string
	Type               string
	FavoriteIDs        []int64
	Difficulty         string
	Language           string
	CustomRequirements string
	ForceNew           bool
	Mode               string
}

type PodcastResult struct {
	DocumentID int64                `json:"documentId"`
	Script     models.PodcastScript `json:"script"`
	Filename   string               `json:"filename"`
	PodcastURL string               `json:"podcastUrl"`
	CacheHit   bool                 `json:"cacheHit"`
}

// GenerateArticlePodcast resolves the article's document, scripts it and
// synthesizes the audio in one call.
func (s *Service) GenerateArticlePodcast(ctx context.Context, req ArticlePodcastRequest) (PodcastResult, error) {
	if err := requireUser(req.UserID); err != nil {
		return PodcastResult{}, err
	}
	if req.ArticleID <= 0 {
		return PodcastResult{}, invalid("articleId is required")
	}
	p, err := parseParams(req.Difficulty, req.Language, string(models.FormatJSON))
	if err != nil {
		return PodcastResult{}, err
	}
	if _, err := models.ParsePodcastMode(req.Mode); err != nil {
		return PodcastResult{}, invalid("%v", err)
	}
	article, err := s.articles.Get(ctx, req.ArticleID)
	if err != nil {
		return PodcastResult{}, storeErr(err, "article")
	}
	sub := s.articleSubject(article, req.UserID, p, req.CustomRequirements)
	return s.podcastFor(ctx, sub, p, req.ForceNew, req.Mode)
}

func (s *Service) GenerateFavoritesPodcast(ctx context.Context, req FavoritesPodcastRequest) (PodcastResult, error) {
	if err := requireUser(req.UserID); err != nil {
		return PodcastResult{}, err
	}
	sel, err := models.ParseSelection(req.Type)
	if err != nil {
		return PodcastResult{}, invalid("%v", err)
	}
	if sel == models.SelectSelected && len(req.FavoriteIDs) == 0 {
		return PodcastResult{}, invalid("favoriteIds are required for selected favorites")
	}
	p, err := parseParams(req.Difficulty, req.Language, string(models.FormatJSON))
	if err != nil {
		return PodcastResult{}, err
	}
	if _, err := models.ParsePodcastMode(req.Mode); err != nil {
		return PodcastResult{}, invalid("%v", err)
	}
	sub, err := s.favoritesSubject(ctx, req.UserID, sel, req.FavoriteIDs, p, req.CustomRequirements)
	if err != nil {
		return PodcastResult{}, err
	}
	return s.podcastFor(ctx, sub, p, req.ForceNew, req.Mode)
}

func (s *Service) podcastFor(ctx context.Context, sub subject, p params, forceNew bool, mode string) (PodcastResult, error) {
	rec, hit, err := s.resolveOrGenerate(ctx, sub, p.format, forceNew)
	if err != nil {
		return PodcastResult{}, err
	}
	script, err := s.GenerateScript(ctx, ScriptRequest{
		UserID:     sub.key.UserID,
		DocumentID: rec.ID,
		Mode:       mode,
		Language:   string(p.language),
	})
	if err != nil {
		return PodcastResult{}, fmt.Errorf("podcast script for document %d: %w", rec.ID, err)
	}
	audio, err := s.GenerateAudio(ctx, AudioRequest{
		UserID:     sub.key.UserID,
		DocumentID: rec.ID,
		Script:     script.Script,
		Mode:       mode,
	})
	if err != nil {
		return PodcastResult{}, fmt.Errorf("podcast audio for document %d: %w", rec.ID, err)
	}
	return PodcastResult{
		DocumentID: rec.ID,
		Script:     script.Script,
		Filename:   audio.Filename,
		PodcastURL: audio.PodcastURL,
		CacheHit:   hit,
	}, nil
}
