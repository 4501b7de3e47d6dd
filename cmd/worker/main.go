package main

import (
	"context"
	"time"

	"readcast/internal/activities"
	"readcast/internal/artifacts"
	"readcast/internal/config"
	"readcast/internal/logger"
	"readcast/internal/storage"
	"readcast/internal/tts"
	"readcast/internal/workflows"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	c, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		log.Fatal("temporal dial", "address", cfg.TemporalAddress, "error", err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatal("connect postgres", "error", err)
	}
	defer db.Close()

	store, err := artifacts.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal("artifact store", "error", err)
	}
	speaker, err := tts.NewClient(tts.ClientOptions{
		BaseURL: cfg.TTSBaseURL,
		APIKey:  cfg.MiniMaxAPIKey,
		Model:   cfg.TTSModel,
		Timeout: time.Duration(cfg.TTSTimeoutSeconds) * time.Second,
	}, log)
	if err != nil {
		log.Fatal("tts client", "error", err)
	}
	synth := tts.NewSynthesizer(speaker, tts.Options{
		MaxAttempts: cfg.TTSMaxAttempts,
		Pacing:      time.Duration(cfg.TTSPacingMillis) * time.Millisecond,
		WorkDir:     cfg.WorkDir,
		Resolver:    tts.DefaultResolver(),
		Merger:      tts.NewFFmpegMerger(cfg.FFmpegPath),
	}, log)

	w := worker.New(c, cfg.TemporalTaskQueue, worker.Options{})
	workflows.Register(w)
	activities.Register(w, activities.New(synth, store.Podcasts, storage.NewDocumentRepo(db), cfg.WorkDir, log))

	log.Info("readcast worker listening", "address", cfg.TemporalAddress, "queue", cfg.TemporalTaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatal("worker stopped", "error", err)
	}
}
