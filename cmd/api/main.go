package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"readcast/internal/api"
	"readcast/internal/artifacts"
	"readcast/internal/config"
	"readcast/internal/export"
	"readcast/internal/extract"
	"readcast/internal/logger"
	"readcast/internal/providers"
	"readcast/internal/readcast"
	"readcast/internal/session"
	"readcast/internal/storage"
	"readcast/internal/tts"
	"readcast/internal/workflows"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
	"golang.org/x/sync/errgroup"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid config", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	db, err := storage.NewDB(dbCtx, cfg.PostgresURL)
	cancel()
	if err != nil {
		log.Fatal("connect postgres", "error", err)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		log.Fatal("migrate", "error", err)
	}

	docs := storage.NewDocumentRepo(db)
	llm, err := providers.NewManager(cfg, log)
	if err != nil {
		log.Fatal("llm providers", "error", err)
	}
	llm.SetAuditor(storage.NewLLMAuditRepo(db))

	store, err := artifacts.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal("artifact store", "error", err)
	}

	sessions, closeSessions := openSessions(cfg, log)
	defer closeSessions()

	audio, closeAudio := audioRunner(cfg, store, log)
	defer closeAudio()

	svc := readcast.New(readcast.Deps{
		Documents: docs,
		Articles:  storage.NewArticleRepo(db),
		Favorites: storage.NewFavoriteRepo(db),
		Artifacts: store,
		LLM:       llm,
		PDF:       export.NewPDFRenderer(export.FontCandidates(cfg.FontsDir), log),
		Extractor: extract.New(log),
		Sessions:  sessions,
		Audio:     audio,
		Log:       log,
	})
	srv := &http.Server{
		Addr: cfg.APIAddr,
		Handler: api.NewServer(svc, api.Options{
			JWTSecret:   cfg.JWTSecret,
			CORSOrigins: cfg.CORSOrigins,
			DB:          db,
			Log:         log,
		}).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("readcast api listening", "addr", cfg.APIAddr, "llm_providers", cfg.LLMProviders, "podcast_runner", cfg.PodcastRunner)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		log.Error("api stopped", "error", err)
	}
}

func openSessions(cfg config.Config, log *logger.Logger) (session.Store, func()) {
	opts := session.Options{
		TTL:      time.Duration(cfg.SessionTTLMinutes) * time.Minute,
		MaxTurns: cfg.SessionMaxTurns,
	}
	if cfg.RedisURL == "" {
		return session.NewMemoryStore(opts), func() {}
	}
	rs, err := session.ConnectRedis(cfg.RedisURL, opts)
	if err != nil {
		log.Warn("redis unavailable, using in-memory sessions", "error", err)
		return session.NewMemoryStore(opts), func() {}
	}
	return rs, func() { _ = rs.Close() }
}

// audioRunner returns nil when speech synthesis is not configured; audio
// requests then fail as upstream errors and the rest of the API still starts.
func audioRunner(cfg config.Config, store artifacts.Store, log *logger.Logger) (readcast.AudioRunner, func()) {
	pacing := time.Duration(cfg.TTSPacingMillis) * time.Millisecond
	if cfg.PodcastRunner == "temporal" {
		c, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress})
		if err != nil {
			log.Warn("temporal unavailable, podcast audio disabled", "address", cfg.TemporalAddress, "error", err)
			return nil, func() {}
		}
		return workflows.NewTemporalRunner(c, cfg.TemporalTaskQueue, pacing), c.Close
	}
	synth, err := newSynthesizer(cfg, log)
	if err != nil {
		log.Warn("speech synthesis disabled", "error", err)
		return nil, func() {}
	}
	return readcast.NewInlineRunner(synth, store.Podcasts, cfg.WorkDir), func() {}
}

func newSynthesizer(cfg config.Config, log *logger.Logger) (*tts.Synthesizer, error) {
	speaker, err := tts.NewClient(tts.ClientOptions{
		BaseURL: cfg.TTSBaseURL,
		APIKey:  cfg.MiniMaxAPIKey,
		Model:   cfg.TTSModel,
		Timeout: time.Duration(cfg.TTSTimeoutSeconds) * time.Second,
	}, log)
	if err != nil {
		return nil, err
	}
	return tts.NewSynthesizer(speaker, tts.Options{
		MaxAttempts: cfg.TTSMaxAttempts,
		Pacing:      time.Duration(cfg.TTSPacingMillis) * time.Millisecond,
		WorkDir:     cfg.WorkDir,
		Resolver:    tts.DefaultResolver(),
		Merger:      tts.NewFFmpegMerger(cfg.FFmpegPath),
	}, log), nil
}
