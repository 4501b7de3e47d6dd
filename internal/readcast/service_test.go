package readcast

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"readcast/internal/agents"
	"readcast/internal/artifacts"
	"readcast/internal/extract"
	"readcast/internal/logger"
	"readcast/internal/models"
	"readcast/internal/providers"
	"readcast/internal/session"
	"readcast/internal/tts"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func articleReq(format string) ArticleDocumentRequest {
	return ArticleDocumentRequest{UserID: "u1", ArticleID: 1, Difficulty: "medium", Language: "bilingual", Format: format}
}

func TestArticleDocumentIsCachedByParameters(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.svc.GenerateArticleDocument(ctx, articleReq("pdf"))
	require.NoError(t, err)
	require.False(t, first.CacheHit)
	require.NotEmpty(t, first.Filename)
	require.Equal(t, DownloadURL(artifacts.KindDocument, first.Filename), first.FileURL)
	require.Equal(t, first.Filename, h.docs.get(first.DocumentID).PDFPath)

	second, err := h.svc.GenerateArticleDocument(ctx, articleReq("pdf"))
	require.NoError(t, err)
	require.True(t, second.CacheHit)
	require.Equal(t, first.DocumentID, second.DocumentID)
	require.Equal(t, first.Filename, second.Filename)
	require.Equal(t, first.Document, second.Document)
	require.Equal(t, 1, h.llm.count(agents.OpStudyDocument))
	require.Len(t, h.documents.names(".pdf"), 1)

	req := articleReq("pdf")
	req.CustomRequirements = "   "
	padded, err := h.svc.GenerateArticleDocument(ctx, req)
	require.NoError(t, err)
	require.True(t, padded.CacheHit)

	req = articleReq("pdf")
	req.Difficulty = "high"
	other, err := h.svc.GenerateArticleDocument(ctx, req)
	require.NoError(t, err)
	require.False(t, other.CacheHit)
	require.NotEqual(t, first.DocumentID, other.DocumentID)

	req = articleReq("pdf")
	req.ForceNew = true
	forced, err := h.svc.GenerateArticleDocument(ctx, req)
	require.NoError(t, err)
	require.False(t, forced.CacheHit)
	require.NotEqual(t, first.DocumentID, forced.DocumentID)
	require.Equal(t, 3, h.llm.count(agents.OpStudyDocument))

	// the newest record now answers the original parameters
	again, err := h.svc.GenerateArticleDocument(ctx, articleReq("pdf"))
	require.NoError(t, err)
	require.Equal(t, forced.DocumentID, again.DocumentID)
}

func TestJSONExportIsInline(t *testing.T) {
	h := newHarness(t)
	res, err := h.svc.GenerateArticleDocument(context.Background(), articleReq("json"))
	require.NoError(t, err)
	require.NotNil(t, res.JSONContent)
	require.Empty(t, res.Filename)
	require.Empty(t, res.FileURL)
	require.Equal(t, "Mock Study Document", res.JSONContent.Content.Title)
	require.Empty(t, h.documents.names(""))
	require.Empty(t, h.docs.get(res.DocumentID).PDFPath)
}

func TestMarkdownExportWritesFreshFile(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a, err := h.svc.GenerateArticleDocument(ctx, articleReq("markdown"))
	require.NoError(t, err)
	b, err := h.svc.GenerateArticleDocument(ctx, articleReq("md"))
	require.NoError(t, err)
	require.True(t, b.CacheHit)
	require.Equal(t, a.DocumentID, b.DocumentID)
	require.NotEqual(t, a.Filename, b.Filename)
	require.Len(t, h.documents.names(".md"), 2)
	require.True(t, strings.HasPrefix(a.Filename, "article_1_u1_"))
}

func TestCachedPDFRegeneratedWhenMissing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// a json request leaves the record without a pdf
	j, err := h.svc.GenerateArticleDocument(ctx, articleReq("json"))
	require.NoError(t, err)
	p, err := h.svc.GenerateArticleDocument(ctx, articleReq("pdf"))
	require.NoError(t, err)
	require.True(t, p.CacheHit)
	require.Equal(t, j.DocumentID, p.DocumentID)
	require.Equal(t, p.Filename, h.docs.get(p.DocumentID).PDFPath)

	h.documents.remove(p.Filename)
	again, err := h.svc.GenerateArticleDocument(ctx, articleReq("pdf"))
	require.NoError(t, err)
	require.NotEqual(t, p.Filename, again.Filename)
	require.Equal(t, again.Filename, h.docs.get(p.DocumentID).PDFPath)
	ok, _ := h.documents.Exists(ctx, again.Filename)
	require.True(t, ok)
	require.Equal(t, 1, h.llm.count(agents.OpStudyDocument))
}

func TestConcurrentMissingPDFRequestsBothSucceed(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.svc.GenerateArticleDocument(ctx, articleReq("json"))
	require.NoError(t, err)

	results := make([]DocumentResult, 2)
	var g errgroup.Group
	for i := range results {
		i := i
		g.Go(func() error {
			res, err := h.svc.GenerateArticleDocument(ctx, articleReq("pdf"))
			results[i] = res
			return err
		})
	}
	require.NoError(t, g.Wait())
	require.Equal(t, results[0].DocumentID, results[1].DocumentID)
	final := h.docs.get(results[0].DocumentID).PDFPath
	require.Contains(t, []string{results[0].Filename, results[1].Filename}, final)
	ok, _ := h.documents.Exists(ctx, final)
	require.True(t, ok)
}

func TestGenerationErrorsAreClassified(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.GenerateArticleDocument(ctx, ArticleDocumentRequest{UserID: "u1", ArticleID: 1, Difficulty: "extreme"})
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = h.svc.GenerateArticleDocument(ctx, ArticleDocumentRequest{UserID: "u1", ArticleID: 99, Difficulty: "low"})
	require.ErrorIs(t, err, ErrNotFound)
	_, err = h.svc.GenerateArticleDocument(ctx, ArticleDocumentRequest{ArticleID: 1, Difficulty: "low"})
	require.ErrorIs(t, err, ErrInvalidInput)

	h.llm.reply = func(providers.GenerateRequest) (string, error) {
		return "", errors.New("all providers failed")
	}
	_, err = h.svc.GenerateArticleDocument(ctx, articleReq("pdf"))
	require.ErrorIs(t, err, ErrUpstream)
	require.Empty(t, h.docs.recs)
}

func TestInsertFailureReportsGeneratedDocument(t *testing.T) {
	h := newHarness(t)
	h.docs.insertErr = errors.New("connection refused")
	_, err := h.svc.GenerateArticleDocument(context.Background(), articleReq("json"))
	var se *SaveError
	require.ErrorAs(t, err, &se)
	require.True(t, se.DocumentGenerated)
	require.Contains(t, err.Error(), "generated but not saved")
}

func TestFavoritesDocument(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.GenerateFavoritesDocument(ctx, FavoritesDocumentRequest{UserID: "u1", Type: "today", Difficulty: "low"})
	require.ErrorIs(t, err, ErrNotFound)
	_, err = h.svc.GenerateFavoritesDocument(ctx, FavoritesDocumentRequest{UserID: "u1", Type: "selected", Difficulty: "low"})
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = h.svc.GenerateFavoritesDocument(ctx, FavoritesDocumentRequest{UserID: "u1", Type: "weekly", Difficulty: "low"})
	require.ErrorIs(t, err, ErrInvalidInput)

	today := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	_, _ = h.favorites.Create(ctx, models.FavoriteSentence{UserID: "u1", Sentence: "Turbines grow larger.", CreatedAt: today})
	_, _ = h.favorites.Create(ctx, models.FavoriteSentence{UserID: "u1", Sentence: "Old sentence.", CreatedAt: today.AddDate(0, 0, -2)})
	_, _ = h.favorites.Create(ctx, models.FavoriteSentence{UserID: "u2", Sentence: "Someone else's.", CreatedAt: today})

	res, err := h.svc.GenerateFavoritesDocument(ctx, FavoritesDocumentRequest{UserID: "u1", Type: "today", Difficulty: "low", Format: "md"})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(res.Filename, "favorites_today_u1_"))
	prompt := h.llm.prompts[agents.OpFavoritesDocument][0]
	require.Contains(t, prompt, "Turbines grow larger.")
	require.NotContains(t, prompt, "Old sentence.")
	require.NotContains(t, prompt, "Someone else's.")
	rec := h.docs.get(res.DocumentID)
	require.Equal(t, models.SubjectFavorites, rec.Kind)
	require.Nil(t, rec.ArticleID)

	sel, err := h.svc.GenerateFavoritesDocument(ctx, FavoritesDocumentRequest{UserID: "u1", Type: "selected", FavoriteIDs: []int64{2}, Difficulty: "low", Format: "json"})
	require.NoError(t, err)
	require.True(t, sel.CacheHit)
	require.Equal(t, res.DocumentID, sel.DocumentID)

	_, err = h.svc.GenerateFavoritesDocument(ctx, FavoritesDocumentRequest{UserID: "u1", Type: "selected", FavoriteIDs: []int64{3}, Difficulty: "low"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDocumentHistoryAndPreview(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a, err := h.svc.GenerateArticleDocument(ctx, articleReq("pdf"))
	require.NoError(t, err)
	req := articleReq("json")
	req.Difficulty = "low"
	b, err := h.svc.GenerateArticleDocument(ctx, req)
	require.NoError(t, err)

	list, err := h.svc.ListArticleDocuments(ctx, "u1", 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, b.DocumentID, list[0].ID)
	require.Equal(t, a.FileURL, list[1].PDFURL)
	require.Empty(t, list[0].PDFURL)

	others, err := h.svc.ListArticleDocuments(ctx, "u2", 1)
	require.NoError(t, err)
	require.Empty(t, others)

	_, err = h.svc.GetDocument(ctx, "u2", a.DocumentID)
	require.ErrorIs(t, err, ErrNotFound)
	v, err := h.svc.GetDocument(ctx, "u1", a.DocumentID)
	require.NoError(t, err)
	require.Equal(t, models.DifficultyMedium, v.Difficulty)

	html, err := h.svc.PreviewHTML(ctx, "u1", a.DocumentID)
	require.NoError(t, err)
	require.Contains(t, html, "Mock Study Document")
	require.Contains(t, html, "<h1")
}

func TestDownloadAccessControl(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res, err := h.svc.GenerateArticleDocument(ctx, articleReq("pdf"))
	require.NoError(t, err)

	rc, ct, err := h.svc.Download(ctx, "u1", "document", res.Filename)
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	require.Equal(t, "application/pdf", ct)
	require.True(t, strings.HasPrefix(string(body), "%PDF"))

	_, _, err = h.svc.Download(ctx, "u2", "document", res.Filename)
	require.ErrorIs(t, err, ErrNotFound)

	// a pdf referenced by the user's record is readable even when not named for the user
	_ = h.documents.Put(ctx, "legacy.pdf", []byte("%PDF-1.3"), "application/pdf")
	require.NoError(t, h.docs.SetPDFPath(ctx, res.DocumentID, "legacy.pdf"))
	_, _, err = h.svc.Download(ctx, "u1", "document", "legacy.pdf")
	require.NoError(t, err)
	_, _, err = h.svc.Download(ctx, "u2", "document", "legacy.pdf")
	require.ErrorIs(t, err, ErrNotFound)

	md, err := h.svc.GenerateArticleDocument(ctx, articleReq("md"))
	require.NoError(t, err)
	_, ct, err = h.svc.Download(ctx, "u1", "document", md.Filename)
	require.NoError(t, err)
	require.Equal(t, "text/markdown", ct)
	_, _, err = h.svc.Download(ctx, "u2", "document", md.Filename)
	require.ErrorIs(t, err, ErrNotFound)

	for _, tc := range []struct{ kind, name string }{
		{"document", "../" + res.Filename},
		{"images", res.Filename},
		{"podcast", res.Filename},
		{"document", "notes.txt"},
		{"document", "article_1_u1_5.pdf"},
	} {
		_, _, err = h.svc.Download(ctx, "u1", tc.kind, tc.name)
		require.ErrorIs(t, err, ErrNotFound, "%s/%s", tc.kind, tc.name)
	}
}

func TestDownloadUnderscoreUserIDs(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req := articleReq("md")
	req.UserID = "a_b"
	md, err := h.svc.GenerateArticleDocument(ctx, req)
	require.NoError(t, err)

	rc, _, err := h.svc.Download(ctx, "a_b", "document", md.Filename)
	require.NoError(t, err)
	_ = rc.Close()
	for _, other := range []string{"b", "a"} {
		_, _, err = h.svc.Download(ctx, other, "document", md.Filename)
		require.ErrorIs(t, err, ErrNotFound, other)
	}
}

func TestGenerateScriptPersistsOnRecord(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	doc, err := h.svc.GenerateArticleDocument(ctx, articleReq("json"))
	require.NoError(t, err)

	res, err := h.svc.GenerateScript(ctx, ScriptRequest{UserID: "u1", DocumentID: doc.DocumentID, Mode: "dialogue"})
	require.NoError(t, err)
	require.Equal(t, models.PodcastDialogue, res.Script.Mode)
	require.NotEmpty(t, res.Script.Segments)
	rec := h.docs.get(doc.DocumentID)
	require.Equal(t, models.PodcastDialogue, rec.PodcastMode)
	require.Equal(t, res.Script, *rec.PodcastScript)

	_, err = h.svc.GenerateScript(ctx, ScriptRequest{UserID: "u2", DocumentID: doc.DocumentID, Mode: "solo"})
	require.ErrorIs(t, err, ErrNotFound)
	_, err = h.svc.GenerateScript(ctx, ScriptRequest{UserID: "u1", Mode: "solo"})
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = h.svc.GenerateScript(ctx, ScriptRequest{UserID: "u1", DocumentID: doc.DocumentID, Mode: "panel"})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestGenerateScriptFallsBackOnUnusableOutput(t *testing.T) {
	h := newHarness(t)
	h.llm.reply = func(req providers.GenerateRequest) (string, error) {
		if req.Operation == agents.OpPodcastScript {
			return "I'd rather not produce JSON today.", nil
		}
		return "", nil
	}
	doc := models.StudyDocument{Title: "Wind", Summary: "Wind power keeps growing."}
	res, err := h.svc.GenerateScript(context.Background(), ScriptRequest{UserID: "u1", Document: &doc, Mode: "solo", Language: "english"})
	require.NoError(t, err)
	require.Len(t, res.Script.Segments, 1)
	require.Equal(t, "Wind power keeps growing.", res.Script.Segments[0].Content)
	require.Equal(t, models.PodcastSolo, res.Script.Mode)
	require.NotEmpty(t, res.Script.Intro)
}

func sampleScript() models.PodcastScript {
	return models.PodcastScript{
		Mode:     models.PodcastDialogue,
		Intro:    "Welcome.",
		Segments: []models.ScriptSegment{{Speaker: "Teacher", Content: "Hello."}, {Speaker: "Student", Content: "Hi."}},
	}
}

func TestGenerateAudioAttachesToDocument(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	doc, err := h.svc.GenerateArticleDocument(ctx, articleReq("json"))
	require.NoError(t, err)

	res, err := h.svc.GenerateAudio(ctx, AudioRequest{UserID: "u1", DocumentID: doc.DocumentID, Script: sampleScript()})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(res.Filename, "podcast_dialogue_u1_"))
	require.Equal(t, "/api/readcast/download/podcast/"+res.Filename, res.PodcastURL)
	rec := h.docs.get(doc.DocumentID)
	require.Equal(t, res.Filename, rec.PodcastPath)
	require.Equal(t, models.PodcastDialogue, rec.PodcastMode)
	require.Len(t, h.runner.jobs, 1)
	require.Equal(t, doc.DocumentID, h.runner.jobs[0].DocumentID)

	// a runner that attached the podcast itself is not followed by a second write
	h.runner.attached = true
	require.NoError(t, h.docs.SetPodcast(ctx, doc.DocumentID, models.PodcastSolo, "kept.mp3"))
	_, err = h.svc.GenerateAudio(ctx, AudioRequest{UserID: "u1", DocumentID: doc.DocumentID, Script: sampleScript(), Mode: "solo"})
	require.NoError(t, err)
	require.Equal(t, "kept.mp3", h.docs.get(doc.DocumentID).PodcastPath)

	standalone, err := h.svc.GenerateAudio(ctx, AudioRequest{UserID: "u1", Script: sampleScript()})
	require.NoError(t, err)
	require.Zero(t, standalone.DocumentID)
}

func TestGenerateAudioErrors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.GenerateAudio(ctx, AudioRequest{UserID: "u1", Script: models.PodcastScript{Segments: []models.ScriptSegment{{Content: "  "}}}})
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = h.svc.GenerateAudio(ctx, AudioRequest{UserID: "u1", DocumentID: 42, Script: sampleScript()})
	require.ErrorIs(t, err, ErrNotFound)

	h.runner.err = errors.New("workflow failed")
	_, err = h.svc.GenerateAudio(ctx, AudioRequest{UserID: "u1", Script: sampleScript()})
	require.ErrorIs(t, err, ErrUpstream)

	h.runner.err = saveErr("store podcast audio", false, errors.New("disk full"))
	_, err = h.svc.GenerateAudio(ctx, AudioRequest{UserID: "u1", Script: sampleScript()})
	var se *SaveError
	require.ErrorAs(t, err, &se)
	require.NotErrorIs(t, err, ErrUpstream)
}

func TestArticlePodcastEndToEnd(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res, err := h.svc.GenerateArticlePodcast(ctx, ArticlePodcastRequest{UserID: "u1", ArticleID: 1, Difficulty: "medium", Mode: "solo"})
	require.NoError(t, err)
	require.False(t, res.CacheHit)
	rec := h.docs.get(res.DocumentID)
	require.Equal(t, res.Filename, rec.PodcastPath)
	require.NotNil(t, rec.PodcastScript)
	require.Empty(t, rec.PDFPath)

	_, err = h.svc.GenerateArticlePodcast(ctx, ArticlePodcastRequest{UserID: "u1", ArticleID: 1, Difficulty: "medium", Mode: "duet"})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, _ = h.favorites.Create(ctx, models.FavoriteSentence{UserID: "u1", Sentence: "Keep it.", CreatedAt: time.Now()})
	fav, err := h.svc.GenerateFavoritesPodcast(ctx, FavoritesPodcastRequest{UserID: "u1", Type: "selected", FavoriteIDs: []int64{1}, Difficulty: "low", Mode: "dialogue"})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(fav.Filename, "podcast_dialogue_u1_"))
	require.Len(t, h.runner.jobs, 2)
}

type silentMerger struct{}

func (silentMerger) Merge(context.Context, []string, string) error {
	return errors.New("ffmpeg not installed")
}

type echoSpeaker struct{}

func (echoSpeaker) Speak(_ context.Context, text string, _ tts.Voice) ([]byte, error) {
	return []byte("ID3" + text + "|"), nil
}

func TestInlineRunnerStoresMergedAudio(t *testing.T) {
	podcasts := newMemBucket()
	synth := tts.NewSynthesizer(echoSpeaker{}, tts.Options{Merger: silentMerger{}}, logger.Nop())
	runner := NewInlineRunner(synth, podcasts, t.TempDir())

	out, err := runner.Run(context.Background(), AudioJob{Script: sampleScript(), Filename: "podcast_dialogue_u1_1.mp3", UserID: "u1"})
	require.NoError(t, err)
	require.False(t, out.Attached)
	require.Equal(t, "ID3Welcome.|ID3Hello.|ID3Hi.|", string(podcasts.files["podcast_dialogue_u1_1.mp3"]))

	_, err = runner.Run(context.Background(), AudioJob{Filename: "podcast_solo_u1_2.mp3"})
	require.ErrorIs(t, err, ErrInvalidInput)
}

type brokenBucket struct{ *memBucket }

func (brokenBucket) PutFile(context.Context, string, string, string) error {
	return errors.New("bucket offline")
}

func TestInlineRunnerCleansUpWhenStoreFails(t *testing.T) {
	workDir := t.TempDir()
	synth := tts.NewSynthesizer(echoSpeaker{}, tts.Options{Merger: silentMerger{}}, logger.Nop())
	runner := NewInlineRunner(synth, brokenBucket{newMemBucket()}, workDir)

	_, err := runner.Run(context.Background(), AudioJob{Script: sampleScript(), Filename: "podcast_dialogue_u1_1.mp3", UserID: "u1"})
	var se *SaveError
	require.ErrorAs(t, err, &se)
	require.False(t, se.DocumentGenerated)
	require.NoFileExists(t, filepath.Join(workDir, "podcast_dialogue_u1_1.mp3"))
}

func TestAskKeepsSessionHistory(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.svc.sessions = session.NewMemoryStore(session.Options{})
	doc, err := h.svc.GenerateArticleDocument(ctx, articleReq("json"))
	require.NoError(t, err)

	first, err := h.svc.Ask(ctx, AskRequest{UserID: "u1", DocumentID: doc.DocumentID, Question: "What is a turbine?"})
	require.NoError(t, err)
	require.NotEmpty(t, first.SessionID)
	require.NotEmpty(t, first.Answer)

	var chunks []string
	second, err := h.svc.AskStream(ctx, AskRequest{UserID: "u1", DocumentID: doc.DocumentID, SessionID: first.SessionID, Question: "And offshore?"},
		func(c string) { chunks = append(chunks, c) })
	require.NoError(t, err)
	require.Equal(t, first.SessionID, second.SessionID)
	require.Equal(t, second.Answer, strings.Join(chunks, ""))
	prompts := h.llm.prompts[agents.OpDocumentQA]
	require.Len(t, prompts, 2)
	require.NotContains(t, prompts[0], "Conversation so far")
	require.Contains(t, prompts[1], "Conversation so far")
	require.Contains(t, prompts[1], "user: What is a turbine?")

	hist, err := h.svc.sessions.History(ctx, sessionKey("u1", first.SessionID))
	require.NoError(t, err)
	require.Len(t, hist, 4)

	require.NoError(t, h.svc.ClearSession(ctx, "u1", first.SessionID))
	hist, err = h.svc.sessions.History(ctx, sessionKey("u1", first.SessionID))
	require.NoError(t, err)
	require.Empty(t, hist)

	_, err = h.svc.Ask(ctx, AskRequest{UserID: "u2", DocumentID: doc.DocumentID, Question: "Hi?"})
	require.ErrorIs(t, err, ErrNotFound)
	_, err = h.svc.Ask(ctx, AskRequest{UserID: "u1", DocumentID: doc.DocumentID, Question: " "})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestImportArticle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.llm.reply = func(req providers.GenerateRequest) (string, error) {
		if req.Operation == agents.OpClassifyArticle {
			return "Sports.", nil
		}
		return "", nil
	}

	a, err := h.svc.ImportArticle(ctx, ImportRequest{UserID: "u1", Text: "The match ended in a draw after extra time."})
	require.NoError(t, err)
	require.Equal(t, "sports", a.Type)
	require.Equal(t, "Untitled Article", a.Title)

	b, err := h.svc.ImportArticle(ctx, ImportRequest{UserID: "u1", Text: "Chips.", Title: "Fabs", Type: "Technology"})
	require.NoError(t, err)
	require.Equal(t, "technology", b.Type)
	require.Equal(t, 1, h.llm.count(agents.OpClassifyArticle))

	_, err = h.svc.ImportArticle(ctx, ImportRequest{UserID: "u1"})
	require.ErrorIs(t, err, ErrInvalidInput)

	h.svc.extractor = fakeExtractor{err: &extract.Error{Message: "page not found", Suggestion: "paste the article text directly instead of a URL"}}
	_, err = h.svc.ImportArticle(ctx, ImportRequest{UserID: "u1", URL: "https://example.com/gone"})
	var ee *extract.Error
	require.ErrorAs(t, err, &ee)
	require.Contains(t, ee.Suggestion, "paste the article text")

	h.svc.extractor = fakeExtractor{parsed: extract.Parsed{Title: "Fetched", Content: "Body text", Source: "example.com"}}
	c, err := h.svc.ImportArticle(ctx, ImportRequest{UserID: "u1", URL: "https://example.com/a", Type: "business"})
	require.NoError(t, err)
	require.Equal(t, "Fetched", c.Title)
	require.Equal(t, "https://example.com/a", c.URL)

	list, err := h.svc.ListArticles(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 4)
}

func TestFavorites(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	missing := int64(77)
	_, err := h.svc.AddFavorite(ctx, FavoriteRequest{UserID: "u1", Sentence: "x", ArticleID: &missing})
	require.ErrorIs(t, err, ErrNotFound)
	_, err = h.svc.AddFavorite(ctx, FavoriteRequest{UserID: "u1", Sentence: "  "})
	require.ErrorIs(t, err, ErrInvalidInput)

	one := int64(1)
	f, err := h.svc.AddFavorite(ctx, FavoriteRequest{UserID: "u1", Sentence: " Turbines grow. ", ArticleID: &one, Tags: []string{"energy"}})
	require.NoError(t, err)
	require.Equal(t, "Turbines grow.", f.Sentence)

	got, err := h.svc.ListFavorites(ctx, "u1", "", []int64{f.ID})
	require.NoError(t, err)
	require.Len(t, got, 1)
	got, err = h.svc.ListFavorites(ctx, "u2", "", []int64{f.ID})
	require.NoError(t, err)
	require.Empty(t, got)
	_, err = h.svc.ListFavorites(ctx, "u1", "selected", nil)
	require.ErrorIs(t, err, ErrInvalidInput)
}
