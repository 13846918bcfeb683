package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/common"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/document"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/export"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/extraction"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/ingest"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/pipeline"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/repository"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/vision"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/vision/gemini"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/vision/openai"
)

func main() {
	_ = godotenv.Load()

	fs := ff.NewFlagSet("digitize")
	var (
		dir           = fs.StringLong("dir", "", "directory of receipts and invoices to digitize (required)")
		out           = fs.StringLong("out", "", "output XLSX path (default: bills.xlsx next to --dir)")
		dbURL         = fs.StringLong("db-url", "", "database DSN (default: in-memory SQLite)")
		fromStr       = fs.StringLong("from", "", "only export bills dated on or after YYYY-MM-DD")
		toStr         = fs.StringLong("to", "", "only export bills dated on or before YYYY-MM-DD")
		includeHidden = fs.BoolLong("include-hidden", "descend into hidden files and directories")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("DIGITIZER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *dir == "" {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintln(os.Stderr, "error: --dir is required")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(filepath.Clean(*dir)), "bills.xlsx")
	}

	from, err := parseDate(*fromStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid --from: %v\n", err)
		os.Exit(1)
	}
	to, err := parseDate(*toStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid --to: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx := context.Background()
	cfg := common.LoadConfig()

	dsn := *dbURL
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := repository.Open(ctx, repository.Config{DSN: dsn}, logger)
	if err != nil {
		logger.Error("database open failed", "error", err)
		os.Exit(1)
	}
	defer repository.Close(db, logger)

	if err := repository.Migrate(ctx, db, logger); err != nil {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}

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

	proc := pipeline.NewProcessor(docs, bills, prep, extractor, extraction.NewOrchestrator(nil, logger), logger)
	ingestor := ingest.NewFSIngestor(docs, logger)

	logger.Info("starting ingestion", "dir", *dir)
	results, stats, err := ingestor.IngestDirectory(ctx, *dir, !*includeHidden)
	if err != nil {
		logger.Error("directory ingest failed", "error", err)
		os.Exit(1)
	}
	logger.Info("ingestion complete",
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed)

	processed := 0
	failures := 0
	for _, res := range results {
		if res.Err != "" {
			continue
		}
		id, err := uuid.Parse(res.DocumentID)
		if err != nil {
			logger.Error("bad document id", "document_id", res.DocumentID, "error", err)
			continue
		}
		if _, err := proc.ProcessFile(ctx, id); err != nil {
			logger.Error("processing failed", "path", res.SourcePath, "error", err)
			failures++
			continue
		}
		processed++
	}

	xlsx, err := export.NewService(bills, docs, logger).ExportBillsXLSX(ctx, from, to)
	if err != nil {
		logger.Error("export failed", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsx, 0o644); err != nil {
		logger.Error("writing output failed", "path", *out, "error", err)
		os.Exit(1)
	}

	logger.Info("batch complete",
		"ingested", stats.Succeeded,
		"processed", processed,
		"failures", failures,
		"output", *out)

	fmt.Printf("Digitized %d of %d files", processed, stats.Matched)
	if failures > 0 {
		fmt.Printf(" (%d failed)", failures)
	}
	fmt.Printf("\nWorkbook: %s\n", *out)
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("use YYYY-MM-DD: %w", err)
	}
	return &t, nil
}

// buildExtractor returns the configured vision client, or nil for the
// deterministic path.
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
