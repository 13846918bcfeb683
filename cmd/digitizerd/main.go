package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/async"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/common"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/document"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/export"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/extraction"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/ingest"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/pipeline"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/repository"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/server"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/vision"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/vision/gemini"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/vision/openai"
)

func main() {
	// .env is optional; real env vars win either way
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.Open(ctx, repository.Config{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.MaxConnLifetime,
	}, logger)
	if err != nil {
		logger.Error("database open failed", "error", err)
		os.Exit(1)
	}
	defer repository.Close(db, logger)

	if err := repository.Migrate(ctx, db, logger); err != nil {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}
	if err := repository.HealthCheck(ctx, db, cfg.Database.PingTimeout, logger); err != nil {
		logger.Error("database health check failed", "error", err)
		os.Exit(1)
	}
	logger.Info("database ready", "dialect", db.Dialect)

	docs := repository.NewDocumentRepository(db, logger)
	bills := repository.NewBillRepository(db, logger)

	extractor, closeExtractor := buildExtractor(ctx, cfg, logger)
	defer closeExtractor()

	prep := document.NewPreparer(document.Config{
		MaxEdge:       cfg.Document.MaxImageEdge,
		EnableOCR:     cfg.Document.OCREnabled || extractor == nil,
		Tesseract:     cfg.Document.TesseractPath,
		TesseractLang: cfg.Document.TesseractLang,
		TessdataDir:   cfg.Document.TessdataDir,
	}, logger)

	orch := extraction.NewOrchestrator(nil, logger)
	proc := pipeline.NewProcessor(docs, bills, prep, extractor, orch, logger)

	queue := async.NewWorkerPool(proc.ProcessJob, logger,
		async.WithWorkers(cfg.Queue.Workers),
		async.WithQueueSize(cfg.Queue.Size),
		async.WithJobTimeout(cfg.Queue.ProcessTimeout))

	ingestor := ingest.NewFSIngestor(docs, logger)

	inboxDir := cfg.Ingest.InboxDir
	if inboxDir == "" {
		inboxDir = "uploads"
	}

	if cfg.Ingest.InboxDir != "" {
		if err := startInboxWatcher(ctx, cfg, ingestor, queue, logger); err != nil {
			logger.Error("watcher start failed", "inbox", cfg.Ingest.InboxDir, "error", err)
			os.Exit(1)
		}
	}

	srv := server.New(server.Config{
		Addr:            cfg.Server.HTTPAddr,
		InboxDir:        inboxDir,
		MaxUploadBytes:  cfg.Server.MaxUploadBytes,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, db, docs, bills, ingestor, queue, export.NewService(bills, docs, logger), logger)

	logger.Info("digitizer daemon ready",
		"addr", cfg.Server.HTTPAddr,
		"provider", cfg.Vision.Provider,
		"workers", cfg.Queue.Workers)

	if err := srv.Run(ctx); err != nil {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	queue.Shutdown(drainCtx)
	logger.Info("stopped")
}

// buildExtractor returns the configured vision client, or nil when the
// daemon should run on the deterministic path only.
func buildExtractor(ctx context.Context, cfg *common.Config, logger *slog.Logger) (vision.Extractor, func()) {
	noop := func() {}
	switch cfg.Vision.Provider {
	case "gemini":
		if cfg.Vision.GeminiAPIKey == "" {
			logger.Warn("GEMINI_API_KEY not set, extraction falls back to the deterministic path")
			return nil, noop
		}
		client, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:          cfg.Vision.GeminiAPIKey,
			Model:           cfg.Vision.GeminiModel,
			Temperature:     cfg.Vision.Temperature,
			MaxOutputTokens: cfg.Vision.MaxOutputTokens,
			Timeout:         cfg.Vision.Timeout,
		}, logger)
		if err != nil {
			logger.Error("gemini client init failed", "error", err)
			os.Exit(1)
		}
		return client, func() { _ = client.Close() }
	case "openai":
		if cfg.Vision.OpenAIAPIKey == "" {
			logger.Warn("OPENAI_API_KEY not set, extraction falls back to the deterministic path")
			return nil, noop
		}
		return openai.NewClient(openai.Config{
			APIKey:      cfg.Vision.OpenAIAPIKey,
			BaseURL:     cfg.Vision.OpenAIBaseURL,
			Model:       cfg.Vision.OpenAIModel,
			Temperature: cfg.Vision.Temperature,
			Timeout:     cfg.Vision.Timeout,
		}, logger), noop
	default:
		logger.Info("vision provider disabled, deterministic extraction only")
		return nil, noop
	}
}

// startInboxWatcher feeds debounced filesystem events into the ingest
// and processing pipeline.
func startInboxWatcher(ctx context.Context, cfg *common.Config, ingestor ingest.Ingestor, queue async.Queue, logger *slog.Logger) error {
	if err := os.MkdirAll(cfg.Ingest.InboxDir, 0o755); err != nil {
		return err
	}
	events, watchErrs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       []string{cfg.Ingest.InboxDir},
		InitialScan: true,
		Debounce:    cfg.Ingest.WatchDebounce,
	}, logger)
	if err != nil {
		return err
	}

	go func() {
		for path := range events {
			res, err := ingestor.IngestPath(ctx, path)
			if err != nil {
				logger.Warn("watch ingest failed", "path", path, "error", err)
				continue
			}
			id, err := uuid.Parse(res.DocumentID)
			if err != nil {
				continue
			}
			if err := queue.Enqueue(ctx, async.Job{DocumentID: id}); err != nil {
				logger.Warn("enqueue failed", "document_id", res.DocumentID, "error", err)
			}
		}
	}()
	go func() {
		for err := range watchErrs {
			logger.Warn("watcher error", "error", err)
		}
	}()
	return nil
}
