package server

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/async"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/entity"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/export"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/ingest"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/repository"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordQueue struct {
	mu   sync.Mutex
	jobs []async.Job
	err  error
}

var _ async.Queue = (*recordQueue)(nil)

func (q *recordQueue) Enqueue(_ context.Context, job async.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *recordQueue) Shutdown(context.Context) {}

func (q *recordQueue) recorded() []async.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]async.Job(nil), q.jobs...)
}

type testEnv struct {
	server *Server
	docs   repository.DocumentRepository
	bills  repository.BillRepository
	queue  *recordQueue
	inbox  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := testLogger()
	db, err := repository.Open(context.Background(), repository.Config{DSN: ":memory:"}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { repository.Close(db, logger) })
	require.NoError(t, repository.Migrate(context.Background(), db, logger))

	docs := repository.NewDocumentRepository(db, logger)
	bills := repository.NewBillRepository(db, logger)
	queue := &recordQueue{}
	inbox := filepath.Join(t.TempDir(), "inbox")

	srv := New(Config{
		Addr:            ":0",
		InboxDir:        inbox,
		MaxUploadBytes:  8 << 20,
		ShutdownTimeout: time.Second,
	}, db, docs, bills, ingest.NewFSIngestor(docs, logger), queue, export.NewService(bills, docs, logger), logger)

	return &testEnv{server: srv, docs: docs, bills: bills, queue: queue, inbox: inbox}
}

func (e *testEnv) doJSON(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func writeSample(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 "+name), 0o644))
	return path
}

func seedBill(t *testing.T, env *testEnv, name, date string) *entity.Bill {
	t.Helper()
	sum := sha256.Sum256([]byte(name))
	doc, _, err := env.docs.UpsertByHash(context.Background(), &entity.Document{
		SourcePath:  "/inbox/" + name,
		Filename:    name,
		FileExt:     "pdf",
		ContentHash: sum[:],
	})
	require.NoError(t, err)

	bill, err := env.bills.Create(context.Background(), &repository.CreateBillRequest{
		DocumentID: doc.ID,
		Bill: &entity.ConvertedBill{
			NormalizedBill: entity.NormalizedBill{
				VendorName:   "ACME TRADERS",
				PurchaseDate: date,
				Currency:     "USD",
				Items: []entity.NormalizedLineItem{
					{SerialNo: 1, ItemName: "COFFEE", Quantity: 2, UnitPrice: 5, ItemTotal: 10},
					{SerialNo: 2, ItemName: "BAGEL", Quantity: 1, UnitPrice: 3.5, ItemTotal: 3.5},
				},
				Subtotal:    13.5,
				TaxAmount:   0.81,
				TotalAmount: 14.31,
			},
			TotalAmountUSD:   14.31,
			TaxAmountUSD:     0.81,
			OriginalCurrency: "USD",
			ExchangeRateUsed: 1,
		},
	})
	require.NoError(t, err)
	return bill
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	w := env.doJSON(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	decodeJSON(t, w, &body)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestIngestEndpointStoresAndQueues(t *testing.T) {
	env := newTestEnv(t)
	path := writeSample(t, "receipt.pdf")

	w := env.doJSON(t, http.MethodPost, "/api/v1/ingest", map[string]string{"path": path})
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp struct {
		DocumentID   string `json:"document_id"`
		Deduplicated bool   `json:"deduplicated"`
		Queued       bool   `json:"queued"`
	}
	decodeJSON(t, w, &resp)
	assert.False(t, resp.Deduplicated)
	assert.True(t, resp.Queued)

	id, err := uuid.Parse(resp.DocumentID)
	require.NoError(t, err)

	jobs := env.queue.recorded()
	require.Len(t, jobs, 1)
	assert.Equal(t, id, jobs[0].DocumentID)
	assert.False(t, jobs[0].Force)
}

func TestIngestEndpointValidation(t *testing.T) {
	env := newTestEnv(t)

	w := env.doJSON(t, http.MethodPost, "/api/v1/ingest", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.doJSON(t, http.MethodPost, "/api/v1/ingest", map[string]string{"path": "   "})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]string
	decodeJSON(t, w, &body)
	assert.Equal(t, "INVALID_INPUT", body["code"])
}

func TestIngestEndpointRejectsUnsupportedFile(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("plain text"), 0o644))

	w := env.doJSON(t, http.MethodPost, "/api/v1/ingest", map[string]string{"path": path})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]string
	decodeJSON(t, w, &body)
	assert.Equal(t, "UNSUPPORTED_FILE", body["code"])
	assert.Empty(t, env.queue.recorded())
}

func TestIngestDirectoryEndpoint(t *testing.T) {
	env := newTestEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.pdf"), []byte("%PDF-1.4 a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.jpg"), []byte("jpegdata"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skip.txt"), []byte("noise"), 0o644))

	w := env.doJSON(t, http.MethodPost, "/api/v1/ingest/directory", map[string]any{"root_path": dir})
	require.Equal(t, http.StatusOK, w.Code)

	var resp ingestDirectoryResponse
	decodeJSON(t, w, &resp)
	assert.EqualValues(t, 2, resp.Stats.Matched)
	assert.EqualValues(t, 2, resp.Stats.Succeeded)
	assert.Equal(t, 2, resp.Queued)
	assert.Len(t, resp.Results, 2)
	assert.Len(t, env.queue.recorded(), 2)
}

func TestIngestDirectoryEndpointRequiresRoot(t *testing.T) {
	env := newTestEnv(t)
	w := env.doJSON(t, http.MethodPost, "/api/v1/ingest/directory", map[string]string{"root_path": " "})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]string
	decodeJSON(t, w, &body)
	assert.Equal(t, "INVALID_INPUT", body["code"])
}

func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func TestUploadEndpoint(t *testing.T) {
	env := newTestEnv(t)
	buf, contentType := multipartBody(t, "upload.pdf", []byte("%PDF-1.4 uploaded"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", buf)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp struct {
		SourcePath string `json:"source_path"`
		Queued     bool   `json:"queued"`
	}
	decodeJSON(t, w, &resp)
	assert.True(t, resp.Queued)
	assert.Equal(t, filepath.Join(env.inbox, "upload.pdf"), resp.SourcePath)

	saved, err := os.ReadFile(resp.SourcePath)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 uploaded", string(saved))
	assert.Len(t, env.queue.recorded(), 1)
}

func TestUploadEndpointRejectsUnsupportedExtension(t *testing.T) {
	env := newTestEnv(t)
	buf, contentType := multipartBody(t, "payload.exe", []byte("MZ"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", buf)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]string
	decodeJSON(t, w, &body)
	assert.Equal(t, "UNSUPPORTED_FILE", body["code"])
	assert.Empty(t, env.queue.recorded())

	entries, err := os.ReadDir(env.inbox)
	if err == nil {
		assert.Empty(t, entries)
	}
}

func TestProcessDocumentEndpoint(t *testing.T) {
	env := newTestEnv(t)
	sum := sha256.Sum256([]byte("stored.pdf"))
	doc, _, err := env.docs.UpsertByHash(context.Background(), &entity.Document{
		SourcePath:  "/inbox/stored.pdf",
		Filename:    "stored.pdf",
		FileExt:     "pdf",
		ContentHash: sum[:],
	})
	require.NoError(t, err)

	w := env.doJSON(t, http.MethodPost, "/api/v1/documents/"+doc.ID.String()+"/process", nil)
	require.Equal(t, http.StatusAccepted, w.Code)

	jobs := env.queue.recorded()
	require.Len(t, jobs, 1)
	assert.Equal(t, doc.ID, jobs[0].DocumentID)
	assert.True(t, jobs[0].Force)
}

func TestProcessDocumentEndpointErrors(t *testing.T) {
	env := newTestEnv(t)

	w := env.doJSON(t, http.MethodPost, "/api/v1/documents/not-a-uuid/process", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.doJSON(t, http.MethodPost, "/api/v1/documents/"+uuid.New().String()+"/process", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	var body map[string]string
	decodeJSON(t, w, &body)
	assert.Equal(t, "NOT_FOUND", body["code"])
}

func TestListBillsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	seedBill(t, env, "jan.pdf", "2025-01-15")
	seedBill(t, env, "feb.pdf", "2025-02-20")

	w := env.doJSON(t, http.MethodGet, "/api/v1/bills", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Bills []entity.Bill `json:"bills"`
		Count int           `json:"count"`
	}
	decodeJSON(t, w, &resp)
	assert.Equal(t, 2, resp.Count)
	require.Len(t, resp.Bills, 2)

	w = env.doJSON(t, http.MethodGet, "/api/v1/bills?from=2025-02-01&to=2025-02-28", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeJSON(t, w, &resp)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "2025-02-20", resp.Bills[0].PurchaseDate)

	w = env.doJSON(t, http.MethodGet, "/api/v1/bills?from=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetAndDeleteBill(t *testing.T) {
	env := newTestEnv(t)
	bill := seedBill(t, env, "jan.pdf", "2025-01-15")

	w := env.doJSON(t, http.MethodGet, "/api/v1/bills/"+bill.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got entity.Bill
	decodeJSON(t, w, &got)
	assert.Equal(t, "ACME TRADERS", got.VendorName)
	assert.Len(t, got.Items, 2)
	assert.InDelta(t, 14.31, got.TotalAmount, 0.001)

	w = env.doJSON(t, http.MethodDelete, "/api/v1/bills/"+bill.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.doJSON(t, http.MethodGet, "/api/v1/bills/"+bill.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportEndpoint(t *testing.T) {
	env := newTestEnv(t)
	seedBill(t, env, "jan.pdf", "2025-01-15")

	w := env.doJSON(t, http.MethodGet, "/api/v1/export?from=2025-01-01&to=2025-03-31", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "bills_2025-01-01_2025-03-31.xlsx")

	wb, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer func() { _ = wb.Close() }()

	rows, err := wb.GetRows("Bills")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "ACME TRADERS", rows[1][1])
}

func TestRequestIDIsEchoed(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
}

func TestGracefulShutdown(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- env.server.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}
