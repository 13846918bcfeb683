package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/constants"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/async"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/common"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/document"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/entity"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/extraction"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/repository"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/vision"
)

// DocumentPreparer yields a vision-ready page for a stored document.
type DocumentPreparer interface {
	Prepare(ctx context.Context, path string) (document.Prepared, error)
}

// Processor coordinates document preparation, extraction and storage.
// With no Extractor configured it runs in deterministic mode: the text
// layer alone feeds the regex pipeline.
type Processor struct {
	Docs      repository.DocumentRepository
	Bills     repository.BillRepository
	Preparer  DocumentPreparer
	Extractor vision.Extractor
	Orch      *extraction.Orchestrator
	Log       *slog.Logger
}

func NewProcessor(
	docs repository.DocumentRepository,
	bills repository.BillRepository,
	prep DocumentPreparer,
	ex vision.Extractor,
	orch *extraction.Orchestrator,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{Docs: docs, Bills: bills, Preparer: prep, Extractor: ex, Orch: orch, Log: logger}
}

// ProcessJob is the queue entry point. Without Force, documents that
// already extracted are skipped.
func (p *Processor) ProcessJob(ctx context.Context, job async.Job) error {
	if !job.Force {
		doc, err := p.Docs.GetByID(ctx, job.DocumentID)
		if err != nil {
			return err
		}
		if doc.Status == string(constants.DocStatusExtracted) {
			p.Log.Info("pipeline.process.skipped", "document_id", job.DocumentID, "status", doc.Status)
			return nil
		}
	}
	_, err := p.ProcessFile(ctx, job.DocumentID)
	return err
}

// ProcessFile runs the whole pipeline for one stored document and returns
// the stored bill. Earlier bills for the document are replaced.
func (p *Processor) ProcessFile(ctx context.Context, documentID uuid.UUID) (*entity.Bill, error) {
	start := time.Now()

	doc, err := p.Docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	if err := p.Docs.SetStatus(ctx, doc.ID, constants.DocStatusRunning, ""); err != nil {
		return nil, err
	}

	bill, err := p.extract(ctx, doc)
	if err != nil {
		if serr := p.Docs.SetStatus(ctx, doc.ID, constants.DocStatusFailed, err.Error()); serr != nil {
			p.Log.Error("failed to mark document failed", "document_id", doc.ID, "error", serr)
		}
		p.Log.Error("pipeline.process.failed", "document_id", doc.ID, "error", err)
		return nil, err
	}

	if err := p.Docs.SetStatus(ctx, doc.ID, constants.DocStatusExtracted, ""); err != nil {
		return nil, err
	}
	p.Log.Info("pipeline.process.ok",
		"document_id", doc.ID,
		"bill_id", bill.ID,
		"vendor", bill.VendorName,
		"total", bill.TotalAmount,
		"is_valid", bill.Report == nil || bill.Report.IsValid,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return bill, nil
}

func (p *Processor) extract(ctx context.Context, doc *entity.Document) (*entity.Bill, error) {
	ctx = common.WithDocumentID(ctx, doc.ID.String())

	prep, err := p.Preparer.Prepare(ctx, doc.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("prepare document: %w", err)
	}
	for _, w := range prep.Warnings {
		p.Log.Warn("prepare warning", "document_id", doc.ID, "warning", w)
	}

	var result *extraction.ExtractionResult
	if p.Extractor != nil {
		raw, _, err := p.Extractor.ExtractBill(ctx, vision.Request{
			ImagePNG: prep.PNG,
			Text:     prep.Text,
			Filename: doc.Filename,
		})
		if err != nil {
			return nil, fmt.Errorf("vision extract: %w", err)
		}
		result, err = p.Orch.Run(raw)
		if err != nil {
			return nil, err
		}
	} else {
		if strings.TrimSpace(prep.Text) == "" {
			return nil, common.NewAppError("MISSING_EXTRACTION",
				"document has no text layer for deterministic extraction", common.ErrMissingExtraction)
		}
		result, err = p.Orch.RunFallbackOnly(prep.Text)
		if err != nil {
			return nil, err
		}
	}

	if n, err := p.Bills.DeleteByDocument(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("replace previous bills: %w", err)
	} else if n > 0 {
		p.Log.Info("pipeline.process.replaced", "document_id", doc.ID, "previous_bills", n)
	}

	bill, err := p.Bills.Create(ctx, &repository.CreateBillRequest{
		DocumentID: doc.ID,
		Bill:       &result.Bill,
		Report:     &result.Report,
		Origins:    result.Origins,
	})
	if err != nil {
		return nil, fmt.Errorf("store bill: %w", err)
	}
	return bill, nil
}
