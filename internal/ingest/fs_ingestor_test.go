package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/constants"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/common"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/entity"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/repository"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeDocRepo struct {
	byHash map[string]*entity.Document
	byID   map[uuid.UUID]*entity.Document
}

var _ repository.DocumentRepository = (*fakeDocRepo)(nil)

func newFakeDocRepo() *fakeDocRepo {
	return &fakeDocRepo{
		byHash: map[string]*entity.Document{},
		byID:   map[uuid.UUID]*entity.Document{},
	}
}

func (f *fakeDocRepo) GetByID(_ context.Context, id uuid.UUID) (*entity.Document, error) {
	if d, ok := f.byID[id]; ok {
		return d, nil
	}
	return nil, common.NotFoundError("document not found")
}

func (f *fakeDocRepo) GetByHash(_ context.Context, hash []byte) (*entity.Document, error) {
	if d, ok := f.byHash[hex.EncodeToString(hash)]; ok {
		return d, nil
	}
	return nil, common.NotFoundError("document not found")
}

func (f *fakeDocRepo) UpsertByHash(_ context.Context, doc *entity.Document) (*entity.Document, bool, error) {
	key := hex.EncodeToString(doc.ContentHash)
	if existing, ok := f.byHash[key]; ok {
		return existing, true, nil
	}
	doc.ID = uuid.New()
	if doc.Status == "" {
		doc.Status = string(constants.DocStatusQueued)
	}
	f.byHash[key] = doc
	f.byID[doc.ID] = doc
	return doc, false, nil
}

func (f *fakeDocRepo) SetStatus(_ context.Context, id uuid.UUID, status constants.DocStatus, errMsg string) error {
	d, ok := f.byID[id]
	if !ok {
		return common.NotFoundError("document not found")
	}
	d.Status = string(status)
	if errMsg != "" {
		d.ErrorMessage = &errMsg
	}
	return nil
}

func (f *fakeDocRepo) List(_ context.Context, _ int) ([]*entity.Document, error) {
	var out []*entity.Document
	for _, d := range f.byID {
		out = append(out, d)
	}
	return out, nil
}

func TestIngestPathHashesAndStores(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "receipt.pdf")
	content := []byte("%PDF-1.4 fake invoice body")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	repo := newFakeDocRepo()
	ing := NewFSIngestor(repo, testLogger())

	res, err := ing.IngestPath(context.Background(), path)
	require.NoError(t, err)

	sum := sha256.Sum256(content)
	assert.Equal(t, hex.EncodeToString(sum[:]), res.HashHex)
	assert.Equal(t, "pdf", res.FileExt)
	assert.False(t, res.Deduplicated)
	assert.NotEmpty(t, res.DocumentID)
	assert.False(t, res.IngestedAt.IsZero())

	docs, err := repo.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, path, docs[0].SourcePath)
	assert.Equal(t, "receipt.pdf", docs[0].Filename)
	assert.Equal(t, int64(len(content)), docs[0].FileSize)
	assert.Equal(t, string(constants.DocStatusQueued), docs[0].Status)
}

func TestIngestPathRejectsUnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("not a receipt"), 0o600))

	repo := newFakeDocRepo()
	ing := NewFSIngestor(repo, testLogger())

	_, err := ing.IngestPath(context.Background(), path)
	assert.ErrorIs(t, err, common.ErrUnsupportedFile)

	docs, err := repo.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestIngestPathDeduplicatesByContent(t *testing.T) {
	dir := t.TempDir()
	content := []byte("same bytes twice")
	first := filepath.Join(dir, "original.pdf")
	second := filepath.Join(dir, "copy-of-original.pdf")
	require.NoError(t, os.WriteFile(first, content, 0o600))
	require.NoError(t, os.WriteFile(second, content, 0o600))

	repo := newFakeDocRepo()
	ing := NewFSIngestor(repo, testLogger())
	ctx := context.Background()

	r1, err := ing.IngestPath(ctx, first)
	require.NoError(t, err)
	require.False(t, r1.Deduplicated)

	r2, err := ing.IngestPath(ctx, second)
	require.NoError(t, err)
	assert.True(t, r2.Deduplicated)
	assert.Equal(t, r1.DocumentID, r2.DocumentID)
	assert.Equal(t, r1.HashHex, r2.HashHex)

	docs, err := repo.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestIngestDirectoryWalksAndCounts(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".cache"), 0o750))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o750))
	files := map[string]string{
		"a.pdf":        "aaa",
		"b.jpg":        "bbb",
		"notes.txt":    "skip me",
		".cache/c.pdf": "ccc",
		"sub/d.png":    "ddd",
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(body), 0o600))
	}

	repo := newFakeDocRepo()
	ing := NewFSIngestor(repo, testLogger())
	ctx := context.Background()

	results, stats, err := ing.IngestDirectory(ctx, root, true)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), stats.Scanned) // root, .cache, a, b, notes, sub, d
	assert.Equal(t, uint32(3), stats.Matched)
	assert.Equal(t, uint32(3), stats.Succeeded)
	assert.Equal(t, uint32(0), stats.Failed)
	assert.Len(t, results, 3)

	// hidden directories participate when not skipped
	repo2 := newFakeDocRepo()
	ing2 := NewFSIngestor(repo2, testLogger())
	_, stats2, err := ing2.IngestDirectory(ctx, root, false)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), stats2.Matched)
	assert.Equal(t, uint32(4), stats2.Succeeded)
}

func TestIngestDirectoryCountsDeduplicates(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "x.pdf"), []byte("dup"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "y.pdf"), []byte("dup"), 0o600))

	ing := NewFSIngestor(newFakeDocRepo(), testLogger())
	_, stats, err := ing.IngestDirectory(context.Background(), root, true)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), stats.Succeeded)
	assert.Equal(t, uint32(1), stats.Deduplicated)
}

func TestIngestDirectoryRequiresRoot(t *testing.T) {
	ing := NewFSIngestor(newFakeDocRepo(), testLogger())
	_, _, err := ing.IngestDirectory(context.Background(), "   ", true)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestIngestedAtIsUTC(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tz.pdf")
	require.NoError(t, os.WriteFile(path, []byte("tz"), 0o600))

	ing := NewFSIngestor(newFakeDocRepo(), testLogger())
	res, err := ing.IngestPath(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, res.IngestedAt.Location())
}
