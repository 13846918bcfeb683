// Package server exposes the digitizer over a gin REST API: ingestion,
// reprocessing, bill queries and XLSX export.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/async"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/common"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/export"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/ingest"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/repository"
)

// Config carries the server-level knobs; everything else arrives as a
// constructed dependency.
type Config struct {
	Addr            string
	InboxDir        string
	MaxUploadBytes  int64
	ShutdownTimeout time.Duration
}

// Server wires the HTTP layer to the ingestion, queue, repository and
// export components.
type Server struct {
	cfg      Config
	db       *repository.DB
	docs     repository.DocumentRepository
	bills    repository.BillRepository
	ingestor ingest.Ingestor
	queue    async.Queue
	exporter *export.Service
	logger   *slog.Logger
	engine   *gin.Engine
}

func New(
	cfg Config,
	db *repository.DB,
	docs repository.DocumentRepository,
	bills repository.BillRepository,
	ingestor ingest.Ingestor,
	queue async.Queue,
	exporter *export.Service,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:      cfg,
		db:       db,
		docs:     docs,
		bills:    bills,
		ingestor: ingestor,
		queue:    queue,
		exporter: exporter,
		logger:   logger,
	}
	s.engine = s.buildRouter()
	return s
}

func (s *Server) buildRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestID(), s.accessLog())
	if s.cfg.MaxUploadBytes > 0 {
		r.MaxMultipartMemory = s.cfg.MaxUploadBytes
	}

	r.GET("/healthz", s.handleHealthz)

	api := r.Group("/api/v1")
	{
		api.POST("/ingest", s.handleIngestPath)
		api.POST("/ingest/directory", s.handleIngestDirectory)
		api.POST("/upload", s.handleUpload)
		api.POST("/documents/:id/process", s.handleProcessDocument)
		api.GET("/bills", s.handleListBills)
		api.GET("/bills/:id", s.handleGetBill)
		api.DELETE("/bills/:id", s.handleDeleteBill)
		api.GET("/export", s.handleExport)
	}
	return r
}

// Handler returns the routed engine for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then drains in-flight requests
// within the configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http.listen", "addr", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	s.logger.Info("http.shutdown", "timeout", timeout.String())
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return common.WrapError(err, "http shutdown")
	}
	return nil
}

func (s *Server) handleHealthz(c *gin.Context) {
	if s.db != nil {
		if err := repository.HealthCheck(c.Request.Context(), s.db, 2*time.Second, s.logger); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// writeError maps an error onto a JSON body and the status from
// common.HTTPStatus. AppError codes pass through; everything else is
// reported as INTERNAL without leaking the cause chain.
func writeError(c *gin.Context, err error) {
	code := "INTERNAL"
	msg := "internal error"
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		code = appErr.Code
		msg = appErr.Message
	}
	c.AbortWithStatusJSON(common.HTTPStatus(err), gin.H{"code": code, "error": msg})
}
