package api

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"readcast/internal/logger"
	"readcast/internal/models"
	"readcast/internal/readcast"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	JWTSecret   string
	CORSOrigins []string
	DB          Pinger
	Log         *logger.Logger
}

type Server struct {
	svc    *readcast.Service
	db     Pinger
	secret []byte
	cors   []string
	log    *logger.Logger
}

func NewServer(svc *readcast.Service, opts Options) *Server {
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Server{
		svc:    svc,
		db:     opts.DB,
		secret: []byte(opts.JWTSecret),
		cors:   opts.CORSOrigins,
		log:    log.Component("api"),
	}
}

func (s *Server) Routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), requestLogger(s.log))
	if len(s.cors) > 0 {
		r.Use(corsMiddleware(s.cors))
	}
	r.GET("/healthz", s.handleHealthz)

	g := r.Group("/api/readcast", RequireAuth(s.secret))
	g.POST("/articles", s.handleImportArticle)
	g.GET("/articles", s.handleListArticles)
	g.GET("/articles/:id", s.handleGetArticle)
	g.GET("/articles/:id/documents", s.handleArticleDocuments)

	g.POST("/favorites", s.handleAddFavorite)
	g.GET("/favorites", s.handleListFavorites)

	g.POST("/documents/article", s.handleArticleDocument)
	g.POST("/documents/favorites", s.handleFavoritesDocument)
	g.GET("/documents/:id", s.handleGetDocument)
	g.GET("/documents/:id/preview", s.handlePreview)
	g.POST("/documents/:id/ask", s.handleAsk)
	g.DELETE("/sessions/:sessionId", s.handleClearSession)

	g.POST("/podcast/script", s.handlePodcastScript)
	g.POST("/podcast/audio", s.handlePodcastAudio)
	g.POST("/podcast/article", s.handleArticlePodcast)
	g.POST("/podcast/favorites", s.handleFavoritesPodcast)

	g.GET("/download/:type/:filename", s.handleDownload)
	return r
}

func (s *Server) handleHealthz(c *gin.Context) {
	if s.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "database": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// bind decodes a JSON body, writing the error response itself on failure.
func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		writeErr(c, errMalformedJSON)
		return false
	}
	return true
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		writeErr(c, readcast.ErrNotFound)
		return 0, false
	}
	return id, true
}

type importArticleRequest struct {
	URL   string `json:"url"`
	Text  string `json:"text"`
	Title string `json:"title"`
	Type  string `json:"type"`
}

func (s *Server) handleImportArticle(c *gin.Context) {
	var req importArticleRequest
	if !bind(c, &req) {
		return
	}
	a, err := s.svc.ImportArticle(c.Request.Context(), readcast.ImportRequest{
		UserID: userID(c),
		URL:    req.URL,
		Text:   req.Text,
		Title:  req.Title,
		Type:   req.Type,
	})
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"article": a})
}

func (s *Server) handleListArticles(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	list, err := s.svc.ListArticles(c.Request.Context(), limit)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"articles": list})
}

func (s *Server) handleGetArticle(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	a, err := s.svc.GetArticle(c.Request.Context(), id)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"article": a})
}

func (s *Server) handleArticleDocuments(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	docs, err := s.svc.ListArticleDocuments(c.Request.Context(), userID(c), id)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

type favoriteRequest struct {
	ArticleID        *int64   `json:"articleId"`
	Sentence         string   `json:"sentence"`
	OriginalSentence string   `json:"originalSentence"`
	Explanation      string   `json:"explanation"`
	Tags             []string `json:"tags"`
}

func (s *Server) handleAddFavorite(c *gin.Context) {
	var req favoriteRequest
	if !bind(c, &req) {
		return
	}
	f, err := s.svc.AddFavorite(c.Request.Context(), readcast.FavoriteRequest{
		UserID:           userID(c),
		ArticleID:        req.ArticleID,
		Sentence:         req.Sentence,
		OriginalSentence: req.OriginalSentence,
		Explanation:      req.Explanation,
		Tags:             req.Tags,
	})
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"favorite": f})
}

func (s *Server) handleListFavorites(c *gin.Context) {
	ids, err := parseIDs(c.Query("ids"))
	if err != nil {
		writeErr(c, err)
		return
	}
	favs, err := s.svc.ListFavorites(c.Request.Context(), userID(c), c.Query("type"), ids)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorites": favs})
}

func parseIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, errMalformedJSON
		}
		ids = append(ids, id)
	}
	return ids, nil
}

type articleDocumentRequest struct {
	ArticleID          int64  `json:"articleId"`
	Difficulty         string `json:"difficulty"`
	Language           string `json:"language"`
	CustomRequirements string `json:"customRequirements"`
	ForceNew           bool   `json:"forceNew"`
	Format             string `json:"format"`
}

func (s *Server) handleArticleDocument(c *gin.Context) {
	var req articleDocumentRequest
	if !bind(c, &req) {
		return
	}
	res, err := s.svc.GenerateArticleDocument(c.Request.Context(), readcast.ArticleDocumentRequest{
		UserID:             userID(c),
		ArticleID:          req.ArticleID,
		Difficulty:         req.Difficulty,
		Language:           req.Language,
		CustomRequirements: req.CustomRequirements,
		ForceNew:           req.ForceNew,
		Format:             req.Format,
	})
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type favoritesDocumentRequest struct {
	Type               string  `json:"type"`
	FavoriteIDs        []int64 `json:"favoriteIds"`
	Difficulty         string  `json:"difficulty"`
	Language           string  `json:"language"`
	CustomRequirements string  `json:"customRequirements"`
	ForceNew           bool    `json:"forceNew"`
	Format             string  `json:"format"`
}

func (s *Server) handleFavoritesDocument(c *gin.Context) {
	var req favoritesDocumentRequest
	if !bind(c, &req) {
		return
	}
	res, err := s.svc.GenerateFavoritesDocument(c.Request.Context(), readcast.FavoritesDocumentRequest{
		UserID:             userID(c),
		Type:               req.Type,
		FavoriteIDs:        req.FavoriteIDs,
		Difficulty:         req.Difficulty,
		Language:           req.Language,
		CustomRequirements: req.CustomRequirements,
		ForceNew:           req.ForceNew,
		Format:             req.Format,
	})
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleGetDocument(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	doc, err := s.svc.GetDocument(c.Request.Context(), userID(c), id)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"document": doc})
}

func (s *Server) handlePreview(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	html, err := s.svc.PreviewHTML(c.Request.Context(), userID(c), id)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

type askRequest struct {
	SessionID string `json:"sessionId"`
	Question  string `json:"question"`
	Stream    bool   `json:"stream"`
}

func (s *Server) handleAsk(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req askRequest
	if !bind(c, &req) {
		return
	}
	in := readcast.AskRequest{UserID: userID(c), DocumentID: id, SessionID: req.SessionID, Question: req.Question}
	if !req.Stream {
		res, err := s.svc.Ask(c.Request.Context(), in)
		if err != nil {
			writeErr(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
		return
	}

	started := false
	res, err := s.svc.AskStream(c.Request.Context(), in, func(chunk string) {
		if !started {
			started = true
			c.Header("Content-Type", "text/event-stream")
			c.Header("Cache-Control", "no-cache")
			c.Header("Connection", "keep-alive")
			c.Status(http.StatusOK)
		}
		c.SSEvent("chunk", chunk)
		c.Writer.Flush()
	})
	switch {
	case err != nil && !started:
		writeErr(c, err)
	case err != nil:
		_, apiErr := toAPIError(err)
		c.SSEvent("error", apiErr)
	default:
		if !started {
			c.Header("Content-Type", "text/event-stream")
			c.Status(http.StatusOK)
		}
		c.SSEvent("done", res)
	}
	c.Writer.Flush()
}

func (s *Server) handleClearSession(c *gin.Context) {
	if err := s.svc.ClearSession(c.Request.Context(), userID(c), c.Param("sessionId")); err != nil {
		writeErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type scriptRequest struct {
	DocumentID      int64                 `json:"documentId"`
	DocumentContent *models.StudyDocument `json:"documentContent"`
	Mode            string                `json:"mode"`
	Language        string                `json:"language"`
}

func (s *Server) handlePodcastScript(c *gin.Context) {
	var req scriptRequest
	if !bind(c, &req) {
		return
	}
	res, err := s.svc.GenerateScript(c.Request.Context(), readcast.ScriptRequest{
		UserID:     userID(c),
		DocumentID: req.DocumentID,
		Document:   req.DocumentContent,
		Mode:       req.Mode,
		Language:   req.Language,
	})
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type audioRequest struct {
	DocumentID int64                `json:"documentId"`
	Script     models.PodcastScript `json:"script"`
	Mode       string               `json:"mode"`
}

func (s *Server) handlePodcastAudio(c *gin.Context) {
	var req audioRequest
	if !bind(c, &req) {
		return
	}
	res, err := s.svc.GenerateAudio(c.Request.Context(), readcast.AudioRequest{
		UserID:     userID(c),
		DocumentID: req.DocumentID,
		Script:     req.Script,
		Mode:       req.Mode,
	})
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type articlePodcastRequest struct {
	articleDocumentRequest
	Mode string `json:"mode"`
}

func (s *Server) handleArticlePodcast(c *gin.Context) {
	var req articlePodcastRequest
	if !bind(c, &req) {
		return
	}
	res, err := s.svc.GenerateArticlePodcast(c.Request.Context(), readcast.ArticlePodcastRequest{
		UserID:             userID(c),
		ArticleID:          req.ArticleID,
		Difficulty:         req.Difficulty,
		Language:           req.Language,
		CustomRequirements: req.CustomRequirements,
		ForceNew:           req.ForceNew,
		Mode:               req.Mode,
	})
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type favoritesPodcastRequest struct {
	favoritesDocumentRequest
	Mode string `json:"mode"`
}

func (s *Server) handleFavoritesPodcast(c *gin.Context) {
	var req favoritesPodcastRequest
	if !bind(c, &req) {
		return
	}
	res, err := s.svc.GenerateFavoritesPodcast(c.Request.Context(), readcast.FavoritesPodcastRequest{
		UserID:             userID(c),
		Type:               req.Type,
		FavoriteIDs:        req.FavoriteIDs,
		Difficulty:         req.Difficulty,
		Language:           req.Language,
		CustomRequirements: req.CustomRequirements,
		ForceNew:           req.ForceNew,
		Mode:               req.Mode,
	})
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleDownload(c *gin.Context) {
	name := c.Param("filename")
	rc, contentType, err := s.svc.Download(c.Request.Context(), userID(c), c.Param("type"), name)
	if err != nil {
		writeErr(c, err)
		return
	}
	defer rc.Close()
	if cd := mime.FormatMediaType("attachment", map[string]string{"filename": name}); cd != "" {
		c.Header("Content-Disposition", cd)
	}
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Ctx(c.Request.Context()).Warn("download copy failed", "file", name, "error", err)
	}
}
