package repository

import (
	"context"
	"fmt"
	"log/slog"
)

// Schema statements are written in the dialect intersection both drivers
// accept: TEXT ids and timestamps (UTC RFC3339), hex-encoded hashes,
// DOUBLE PRECISION money.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		id            TEXT PRIMARY KEY,
		source_path   TEXT NOT NULL,
		filename      TEXT NOT NULL,
		file_ext      TEXT NOT NULL,
		file_size     BIGINT NOT NULL DEFAULT 0,
		content_hash  TEXT NOT NULL,
		status        TEXT NOT NULL,
		error_message TEXT,
		ingested_at   TEXT NOT NULL,
		processed_at  TEXT
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_documents_content_hash ON documents(content_hash)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status)`,
	`CREATE TABLE IF NOT EXISTS bills (
		id                TEXT PRIMARY KEY,
		document_id       TEXT NOT NULL REFERENCES documents(id),
		invoice_number    TEXT NOT NULL DEFAULT '',
		vendor_name       TEXT NOT NULL,
		purchase_date     TEXT NOT NULL DEFAULT '',
		purchase_time     TEXT NOT NULL DEFAULT '',
		currency          TEXT NOT NULL,
		subtotal          DOUBLE PRECISION NOT NULL DEFAULT 0,
		discount          DOUBLE PRECISION NOT NULL DEFAULT 0,
		tax_amount        DOUBLE PRECISION NOT NULL DEFAULT 0,
		total_amount      DOUBLE PRECISION NOT NULL DEFAULT 0,
		payment_method    TEXT NOT NULL DEFAULT '',
		total_amount_usd  DOUBLE PRECISION NOT NULL DEFAULT 0,
		tax_amount_usd    DOUBLE PRECISION NOT NULL DEFAULT 0,
		original_currency TEXT NOT NULL DEFAULT '',
		exchange_rate     DOUBLE PRECISION NOT NULL DEFAULT 1,
		is_valid          BOOLEAN NOT NULL DEFAULT TRUE,
		items_sum         DOUBLE PRECISION NOT NULL DEFAULT 0,
		validation_detail TEXT NOT NULL DEFAULT '',
		origins           TEXT NOT NULL DEFAULT '{}',
		created_at        TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bills_purchase_date ON bills(purchase_date)`,
	`CREATE INDEX IF NOT EXISTS idx_bills_document ON bills(document_id)`,
	`CREATE TABLE IF NOT EXISTS line_items (
		id         TEXT PRIMARY KEY,
		bill_id    TEXT NOT NULL REFERENCES bills(id),
		serial_no  INTEGER NOT NULL,
		item_name  TEXT NOT NULL,
		quantity   INTEGER NOT NULL DEFAULT 0,
		unit_price DOUBLE PRECISION NOT NULL DEFAULT 0,
		item_total DOUBLE PRECISION NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_line_items_bill ON line_items(bill_id)`,
}

// Migrate applies the schema idempotently.
func Migrate(ctx context.Context, db *DB, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("applying database migrations", "statements", len(migrations))
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			logger.Error("migration failed", "index", i, "error", err)
			return fmt.Errorf("migrate statement %d: %w", i, err)
		}
	}
	logger.Info("database migrations applied")
	return nil
}
