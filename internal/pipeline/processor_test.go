package pipeline

import (
	"context"
	"crypto/sha256"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/constants"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/async"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/common"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/document"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/entity"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/extraction"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/repository"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/vision"
)

const sampleReceiptText = `ACME TRADERS PVT LTD
123 Main Street
Receipt #AB-1029
Date: 15/01/2026 Time: 14:32
1 COFFEE 2 5.00
2 BAGEL 1 3.50
SUBTOTAL 13.50
TAX 1.35
TOTAL $14.85
Paid by CARD`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakePreparer struct {
	mu       sync.Mutex
	prepared document.Prepared
	err      error
	calls    int
}

func (f *fakePreparer) Prepare(_ context.Context, _ string) (document.Prepared, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.prepared, f.err
}

func (f *fakePreparer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeExtractor struct {
	raw     *entity.RawExtraction
	err     error
	lastReq vision.Request
}

func (f *fakeExtractor) ExtractBill(_ context.Context, req vision.Request) (*entity.RawExtraction, []byte, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.raw, []byte(`{}`), nil
}

func setupRepos(t *testing.T) (repository.DocumentRepository, repository.BillRepository) {
	t.Helper()
	logger := testLogger()
	db, err := repository.Open(context.Background(), repository.Config{DSN: ":memory:"}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { repository.Close(db, logger) })
	require.NoError(t, repository.Migrate(context.Background(), db, logger))
	return repository.NewDocumentRepository(db, logger), repository.NewBillRepository(db, logger)
}

func seedDoc(t *testing.T, docs repository.DocumentRepository, name string) *entity.Document {
	t.Helper()
	sum := sha256.Sum256([]byte(name))
	doc, _, err := docs.UpsertByHash(context.Background(), &entity.Document{
		SourcePath:  "/inbox/" + name,
		Filename:    name,
		FileExt:     "pdf",
		ContentHash: sum[:],
	})
	require.NoError(t, err)
	return doc
}

func TestProcessFileDeterministic(t *testing.T) {
	docs, bills := setupRepos(t)
	doc := seedDoc(t, docs, "acme.pdf")

	prep := &fakePreparer{prepared: document.Prepared{
		Text: sampleReceiptText, Method: "pdf-text", Confidence: 0.92,
	}}
	proc := NewProcessor(docs, bills, prep, nil, extraction.NewOrchestrator(nil, testLogger()), testLogger())

	bill, err := proc.ProcessFile(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "ACME TRADERS PVT LTD", bill.VendorName)
	assert.Equal(t, "2026-01-15", bill.PurchaseDate)
	assert.InDelta(t, 14.85, bill.TotalAmount, 0.0001)
	require.Len(t, bill.Items, 2)

	stored, err := docs.GetByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, string(constants.DocStatusExtracted), stored.Status)
	require.NotNil(t, stored.ProcessedAt)
	assert.Nil(t, stored.ErrorMessage)

	fromDB, err := bills.Get(context.Background(), bill.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, fromDB.DocumentID)
	require.Len(t, fromDB.Items, 2)
}

func TestProcessFileWithVisionExtractor(t *testing.T) {
	docs, bills := setupRepos(t)
	doc := seedDoc(t, docs, "photo.png")

	ex := &fakeExtractor{raw: &entity.RawExtraction{
		OCRText:      "STARBUCKS COFFEE\nTOTAL $8.50",
		VendorName:   "STARBUCKS COFFEE",
		PurchaseDate: "2026-02-01",
		Currency:     "USD",
		TotalAmount:  8.5,
	}}
	prep := &fakePreparer{prepared: document.Prepared{PNG: []byte("png bytes"), Method: "image"}}
	proc := NewProcessor(docs, bills, prep, ex, extraction.NewOrchestrator(nil, testLogger()), testLogger())

	bill, err := proc.ProcessFile(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "STARBUCKS COFFEE", bill.VendorName)
	assert.InDelta(t, 8.5, bill.TotalAmount, 0.0001)
	assert.Equal(t, entity.OriginAI, bill.Origins[entity.FieldVendorName])

	// the prepared page reaches the extractor untouched
	assert.Equal(t, []byte("png bytes"), ex.lastReq.ImagePNG)
	assert.Equal(t, "photo.png", ex.lastReq.Filename)
}

func TestProcessFileVisionFailureMarksFailed(t *testing.T) {
	docs, bills := setupRepos(t)
	doc := seedDoc(t, docs, "flaky.png")

	ex := &fakeExtractor{err: errors.New("model unavailable")}
	prep := &fakePreparer{prepared: document.Prepared{PNG: []byte("png"), Method: "image"}}
	proc := NewProcessor(docs, bills, prep, ex, extraction.NewOrchestrator(nil, testLogger()), testLogger())

	_, err := proc.ProcessFile(context.Background(), doc.ID)
	require.Error(t, err)

	stored, err := docs.GetByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, string(constants.DocStatusFailed), stored.Status)
	require.NotNil(t, stored.ErrorMessage)
	assert.Contains(t, *stored.ErrorMessage, "model unavailable")
}

func TestProcessFileDeterministicNeedsText(t *testing.T) {
	docs, bills := setupRepos(t)
	doc := seedDoc(t, docs, "scan-only.png")

	prep := &fakePreparer{prepared: document.Prepared{PNG: []byte("png"), Method: "image"}}
	proc := NewProcessor(docs, bills, prep, nil, extraction.NewOrchestrator(nil, testLogger()), testLogger())

	_, err := proc.ProcessFile(context.Background(), doc.ID)
	assert.ErrorIs(t, err, common.ErrMissingExtraction)

	stored, err := docs.GetByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, string(constants.DocStatusFailed), stored.Status)
}

func TestProcessFileUnknownDocument(t *testing.T) {
	docs, bills := setupRepos(t)
	prep := &fakePreparer{}
	proc := NewProcessor(docs, bills, prep, nil, extraction.NewOrchestrator(nil, testLogger()), testLogger())

	_, err := proc.ProcessFile(context.Background(), uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.Zero(t, prep.callCount())
}

func TestReprocessReplacesPreviousBill(t *testing.T) {
	docs, bills := setupRepos(t)
	doc := seedDoc(t, docs, "rerun.pdf")

	prep := &fakePreparer{prepared: document.Prepared{Text: sampleReceiptText, Method: "pdf-text"}}
	proc := NewProcessor(docs, bills, prep, nil, extraction.NewOrchestrator(nil, testLogger()), testLogger())

	_, err := proc.ProcessFile(context.Background(), doc.ID)
	require.NoError(t, err)
	_, err = proc.ProcessFile(context.Background(), doc.ID)
	require.NoError(t, err)

	all, err := bills.List(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestProcessJobSkipsExtractedUnlessForced(t *testing.T) {
	docs, bills := setupRepos(t)
	doc := seedDoc(t, docs, "done.pdf")

	prep := &fakePreparer{prepared: document.Prepared{Text: sampleReceiptText, Method: "pdf-text"}}
	proc := NewProcessor(docs, bills, prep, nil, extraction.NewOrchestrator(nil, testLogger()), testLogger())
	ctx := context.Background()

	_, err := proc.ProcessFile(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, 1, prep.callCount())

	require.NoError(t, proc.ProcessJob(ctx, async.Job{DocumentID: doc.ID}))
	assert.Equal(t, 1, prep.callCount())

	require.NoError(t, proc.ProcessJob(ctx, async.Job{DocumentID: doc.ID, Force: true}))
	assert.Equal(t, 2, prep.callCount())
}
