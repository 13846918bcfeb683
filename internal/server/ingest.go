package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/async"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/common"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/ingest"
)

type ingestPathRequest struct {
	Path string `json:"path"`
}

type ingestDirectoryRequest struct {
	RootPath      string `json:"root_path"`
	IncludeHidden bool   `json:"include_hidden"`
}

type ingestResponse struct {
	ingest.IngestionResult
	Queued bool `json:"queued"`
}

type ingestDirectoryResponse struct {
	Stats   ingest.DirStats          `json:"stats"`
	Results []ingest.IngestionResult `json:"results"`
	Queued  int                      `json:"queued"`
}

// enqueueDocument submits a processing job for a successfully ingested
// file. A full queue is not fatal: the document is stored and can be
// re-queued via /documents/:id/process.
func (s *Server) enqueueDocument(ctx context.Context, res ingest.IngestionResult, force bool) bool {
	if res.Err != "" || res.DocumentID == "" {
		return false
	}
	id, err := uuid.Parse(res.DocumentID)
	if err != nil {
		return false
	}
	if err := s.queue.Enqueue(ctx, async.Job{DocumentID: id, Force: force}); err != nil {
		s.logger.Warn("enqueue failed", "document_id", res.DocumentID, "error", err)
		return false
	}
	return true
}

func (s *Server) handleIngestPath(c *gin.Context) {
	var req ingestPathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, common.InvalidInputError("body must be JSON with a path field"))
		return
	}

	validator := common.NewValidator()
	validator.Field("path", req.Path, common.Required)
	if err := common.ValidateAndReturnError(validator); err != nil {
		writeError(c, err)
		return
	}

	res, err := s.ingestor.IngestPath(c.Request.Context(), strings.TrimSpace(req.Path))
	if err != nil {
		writeError(c, err)
		return
	}
	queued := s.enqueueDocument(c.Request.Context(), res, false)
	c.JSON(http.StatusAccepted, ingestResponse{IngestionResult: res, Queued: queued})
}

func (s *Server) handleIngestDirectory(c *gin.Context) {
	var req ingestDirectoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, common.InvalidInputError("body must be JSON with a root_path field"))
		return
	}

	validator := common.NewValidator()
	validator.Field("root_path", req.RootPath, common.Required)
	if err := common.ValidateAndReturnError(validator); err != nil {
		writeError(c, err)
		return
	}

	results, stats, err := s.ingestor.IngestDirectory(c.Request.Context(), req.RootPath, !req.IncludeHidden)
	if err != nil {
		writeError(c, err)
		return
	}

	queued := 0
	for _, res := range results {
		if s.enqueueDocument(c.Request.Context(), res, false) {
			queued++
		}
	}
	c.JSON(http.StatusOK, ingestDirectoryResponse{Stats: stats, Results: results, Queued: queued})
}

func (s *Server) handleUpload(c *gin.Context) {
	if s.cfg.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes)
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		writeError(c, common.InvalidInputError("multipart field 'file' is required"))
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if name == "." || name == string(filepath.Separator) || name == "" {
		writeError(c, common.InvalidInputError("upload has no usable filename"))
		return
	}
	if !ingest.AllowedExt(filepath.Ext(name)) {
		writeError(c, common.NewAppError("UNSUPPORTED_FILE",
			fmt.Sprintf("unsupported file extension %q", filepath.Ext(name)), common.ErrUnsupportedFile))
		return
	}

	dst, err := s.saveUpload(file, name)
	if err != nil {
		s.logger.Error("upload save failed", "filename", name, "error", err)
		writeError(c, common.NewAppError("UPLOAD_FAILED", "could not store upload", common.ErrInternal))
		return
	}

	res, err := s.ingestor.IngestPath(c.Request.Context(), dst)
	if err != nil {
		writeError(c, err)
		return
	}
	queued := s.enqueueDocument(c.Request.Context(), res, false)
	c.JSON(http.StatusAccepted, ingestResponse{IngestionResult: res, Queued: queued})
}

// saveUpload copies the part into the inbox directory, never
// overwriting an existing file with the same name.
func (s *Server) saveUpload(src io.Reader, name string) (string, error) {
	if err := os.MkdirAll(s.cfg.InboxDir, 0o755); err != nil {
		return "", err
	}
	dst := filepath.Join(s.cfg.InboxDir, name)
	if _, err := os.Stat(dst); err == nil {
		dst = filepath.Join(s.cfg.InboxDir, uuid.New().String()[:8]+"_"+name)
	}
	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer out.Close()
	if _, err := io.Copy(out, src); err != nil {
		os.Remove(dst)
		return "", err
	}
	return dst, nil
}

func (s *Server) handleProcessDocument(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeError(c, common.InvalidInputError("id must be a UUID"))
		return
	}

	doc, err := s.docs.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	if err := s.queue.Enqueue(c.Request.Context(), async.Job{DocumentID: doc.ID, Force: true}); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"document_id": doc.ID, "queued": true})
}
