package repository

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/constants"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/common"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/entity"
)

// timeLayout keeps stored timestamps lexicographically ordered.
const timeLayout = time.RFC3339

const documentColumns = `id, source_path, filename, file_ext, file_size, content_hash,
	status, error_message, ingested_at, processed_at`

type DocumentRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Document, error)
	GetByHash(ctx context.Context, hash []byte) (*entity.Document, error)
	// UpsertByHash returns the existing row when the content hash is already
	// known; the bool reports deduplication.
	UpsertByHash(ctx context.Context, doc *entity.Document) (*entity.Document, bool, error)
	SetStatus(ctx context.Context, id uuid.UUID, status constants.DocStatus, errMsg string) error
	List(ctx context.Context, limit int) ([]*entity.Document, error)
}

type documentRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewDocumentRepository(db *DB, logger *slog.Logger) DocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentRepo{db: db, logger: logger}
}

func (r *documentRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	row := r.db.QueryRowContext(ctx,
		r.db.Rebind(`SELECT `+documentColumns+` FROM documents WHERE id = ?`), id.String())
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundError("document not found")
	}
	if err != nil {
		r.logger.Error("failed to get document", "document_id", id, "error", err)
		return nil, err
	}
	return doc, nil
}

func (r *documentRepo) GetByHash(ctx context.Context, hash []byte) (*entity.Document, error) {
	row := r.db.QueryRowContext(ctx,
		r.db.Rebind(`SELECT `+documentColumns+` FROM documents WHERE content_hash = ?`),
		hex.EncodeToString(hash))
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundError("document not found")
	}
	if err != nil {
		r.logger.Error("failed to get document by hash", "error", err)
		return nil, err
	}
	return doc, nil
}

func (r *documentRepo) UpsertByHash(ctx context.Context, doc *entity.Document) (*entity.Document, bool, error) {
	if existing, err := r.GetByHash(ctx, doc.ContentHash); err == nil {
		return existing, true, nil
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, false, err
	}

	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if doc.IngestedAt.IsZero() {
		doc.IngestedAt = time.Now().UTC()
	}
	if doc.Status == "" {
		doc.Status = string(constants.DocStatusQueued)
	}

	_, err := r.db.ExecContext(ctx, r.db.Rebind(`INSERT INTO documents
		(id, source_path, filename, file_ext, file_size, content_hash, status, error_message, ingested_at, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, NULL, ?, NULL)`),
		doc.ID.String(), doc.SourcePath, doc.Filename, doc.FileExt, doc.FileSize,
		hex.EncodeToString(doc.ContentHash), doc.Status, doc.IngestedAt.UTC().Format(timeLayout))
	if err != nil {
		r.logger.Error("failed to insert document", "source_path", doc.SourcePath, "error", err)
		return nil, false, err
	}
	return doc, false, nil
}

func (r *documentRepo) SetStatus(ctx context.Context, id uuid.UUID, status constants.DocStatus, errMsg string) error {
	var errVal, processedVal any
	if errMsg != "" {
		errVal = errMsg
	}
	if status == constants.DocStatusExtracted || status == constants.DocStatusFailed {
		processedVal = time.Now().UTC().Format(timeLayout)
	}

	res, err := r.db.ExecContext(ctx, r.db.Rebind(
		`UPDATE documents SET status = ?, error_message = ?, processed_at = ? WHERE id = ?`),
		string(status), errVal, processedVal, id.String())
	if err != nil {
		r.logger.Error("failed to set document status", "document_id", id, "status", status, "error", err)
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.NotFoundError("document not found")
	}
	return nil
}

func (r *documentRepo) List(ctx context.Context, limit int) ([]*entity.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents ORDER BY ingested_at DESC, id`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(q), args...)
	if err != nil {
		r.logger.Error("failed to list documents", "error", err)
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []*entity.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*entity.Document, error) {
	var (
		doc         entity.Document
		idStr       string
		hashHex     string
		errMsg      sql.NullString
		ingestedAt  string
		processedAt sql.NullString
	)
	err := row.Scan(&idStr, &doc.SourcePath, &doc.Filename, &doc.FileExt, &doc.FileSize,
		&hashHex, &doc.Status, &errMsg, &ingestedAt, &processedAt)
	if err != nil {
		return nil, err
	}

	doc.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	doc.ContentHash, err = hex.DecodeString(hashHex)
	if err != nil {
		return nil, err
	}
	if errMsg.Valid {
		doc.ErrorMessage = &errMsg.String
	}
	if doc.IngestedAt, err = time.Parse(timeLayout, ingestedAt); err != nil {
		return nil, err
	}
	if processedAt.Valid {
		t, err := time.Parse(timeLayout, processedAt.String)
		if err != nil {
			return nil, err
		}
		doc.ProcessedAt = &t
	}
	return &doc, nil
}
