package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/common"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/entity"
)

// CreateBillRequest wraps everything persisted for one extracted document.
type CreateBillRequest struct {
	DocumentID uuid.UUID
	Bill       *entity.ConvertedBill
	Report     *entity.ValidationReport
	Origins    entity.OriginMap
}

type BillRepository interface {
	// Create inserts the bill header and its line items in one transaction.
	Create(ctx context.Context, req *CreateBillRequest) (*entity.Bill, error)
	List(ctx context.Context, from, to *time.Time) ([]*entity.Bill, error)
	Get(ctx context.Context, id uuid.UUID) (*entity.Bill, error)
	ListItems(ctx context.Context, billID uuid.UUID) ([]entity.NormalizedLineItem, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// DeleteByDocument removes bills from earlier runs over the document.
	DeleteByDocument(ctx context.Context, documentID uuid.UUID) (int64, error)
}

type billRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewBillRepository(db *DB, logger *slog.Logger) BillRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &billRepo{db: db, logger: logger}
}

const billColumns = `id, document_id, invoice_number, vendor_name, purchase_date, purchase_time,
	currency, subtotal, discount, tax_amount, total_amount, payment_method,
	total_amount_usd, tax_amount_usd, original_currency, exchange_rate,
	is_valid, items_sum, validation_detail, origins, created_at`

func (r *billRepo) Create(ctx context.Context, req *CreateBillRequest) (*entity.Bill, error) {
	if req == nil || req.Bill == nil {
		return nil, common.InvalidInputError("bill payload is required")
	}

	id := uuid.New()
	now := time.Now().UTC()

	isValid := true
	var itemsSum float64
	var detail string
	if req.Report != nil {
		isValid = req.Report.IsValid
		itemsSum = req.Report.ItemsSum
		if len(req.Report.Errors) > 0 {
			detail = req.Report.Errors[0].Detail
		}
	}

	originsJSON := []byte(`{}`)
	if len(req.Origins) > 0 {
		b, err := json.Marshal(req.Origins)
		if err != nil {
			return nil, err
		}
		originsJSON = b
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	b := req.Bill
	_, err = tx.ExecContext(ctx, r.db.Rebind(`INSERT INTO bills
		(id, document_id, invoice_number, vendor_name, purchase_date, purchase_time,
		 currency, subtotal, discount, tax_amount, total_amount, payment_method,
		 total_amount_usd, tax_amount_usd, original_currency, exchange_rate,
		 is_valid, items_sum, validation_detail, origins, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		id.String(), req.DocumentID.String(), b.InvoiceNumber, b.VendorName,
		b.PurchaseDate, b.PurchaseTime, b.Currency, b.Subtotal, b.Discount,
		b.TaxAmount, b.TotalAmount, b.PaymentMethod, b.TotalAmountUSD,
		b.TaxAmountUSD, b.OriginalCurrency, b.ExchangeRateUsed,
		isValid, itemsSum, detail, string(originsJSON), now.Format(timeLayout))
	if err != nil {
		r.logger.Error("failed to insert bill", "document_id", req.DocumentID, "error", err)
		return nil, err
	}

	for _, it := range b.Items {
		_, err = tx.ExecContext(ctx, r.db.Rebind(`INSERT INTO line_items
			(id, bill_id, serial_no, item_name, quantity, unit_price, item_total)
			VALUES (?, ?, ?, ?, ?, ?, ?)`),
			uuid.New().String(), id.String(), it.SerialNo, it.ItemName,
			it.Quantity, it.UnitPrice, it.ItemTotal)
		if err != nil {
			r.logger.Error("failed to insert line item", "bill_id", id, "serial_no", it.SerialNo, "error", err)
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &entity.Bill{
		ID:            id,
		DocumentID:    req.DocumentID,
		ConvertedBill: *b,
		Report:        req.Report,
		Origins:       req.Origins,
		CreatedAt:     now,
	}, nil
}

func (r *billRepo) List(ctx context.Context, from, to *time.Time) ([]*entity.Bill, error) {
	q := `SELECT ` + billColumns + ` FROM bills`
	var conds []string
	var args []any
	if from != nil {
		conds = append(conds, `purchase_date >= ?`)
		args = append(args, from.Format("2006-01-02"))
	}
	if to != nil {
		conds = append(conds, `purchase_date <= ?`)
		args = append(args, to.Format("2006-01-02"))
	}
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, " AND ")
	}
	q += ` ORDER BY created_at DESC, id`

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(q), args...)
	if err != nil {
		r.logger.Error("failed to list bills", "error", err)
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []*entity.Bill
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, bill)
	}
	return out, rows.Err()
}

func (r *billRepo) Get(ctx context.Context, id uuid.UUID) (*entity.Bill, error) {
	row := r.db.QueryRowContext(ctx,
		r.db.Rebind(`SELECT `+billColumns+` FROM bills WHERE id = ?`), id.String())
	bill, err := scanBill(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundError("bill not found")
	}
	if err != nil {
		r.logger.Error("failed to get bill", "bill_id", id, "error", err)
		return nil, err
	}

	items, err := r.ListItems(ctx, id)
	if err != nil {
		return nil, err
	}
	bill.Items = items
	return bill, nil
}

func (r *billRepo) ListItems(ctx context.Context, billID uuid.UUID) ([]entity.NormalizedLineItem, error) {
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(
		`SELECT serial_no, item_name, quantity, unit_price, item_total
		 FROM line_items WHERE bill_id = ? ORDER BY serial_no`), billID.String())
	if err != nil {
		r.logger.Error("failed to list line items", "bill_id", billID, "error", err)
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var items []entity.NormalizedLineItem
	for rows.Next() {
		var it entity.NormalizedLineItem
		if err := rows.Scan(&it.SerialNo, &it.ItemName, &it.Quantity, &it.UnitPrice, &it.ItemTotal); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *billRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, r.db.Rebind(
		`DELETE FROM line_items WHERE bill_id = ?`), id.String()); err != nil {
		r.logger.Error("failed to delete line items", "bill_id", id, "error", err)
		return err
	}
	res, err := tx.ExecContext(ctx, r.db.Rebind(
		`DELETE FROM bills WHERE id = ?`), id.String())
	if err != nil {
		r.logger.Error("failed to delete bill", "bill_id", id, "error", err)
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.NotFoundError("bill not found")
	}
	return tx.Commit()
}

func (r *billRepo) DeleteByDocument(ctx context.Context, documentID uuid.UUID) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, r.db.Rebind(
		`DELETE FROM line_items WHERE bill_id IN (SELECT id FROM bills WHERE document_id = ?)`),
		documentID.String()); err != nil {
		r.logger.Error("failed to delete line items", "document_id", documentID, "error", err)
		return 0, err
	}
	res, err := tx.ExecContext(ctx, r.db.Rebind(
		`DELETE FROM bills WHERE document_id = ?`), documentID.String())
	if err != nil {
		r.logger.Error("failed to delete bills", "document_id", documentID, "error", err)
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, tx.Commit()
}

func scanBill(row rowScanner) (*entity.Bill, error) {
	var (
		bill        entity.Bill
		idStr       string
		docStr      string
		isValid     bool
		itemsSum    float64
		detail      string
		originsJSON string
		createdAt   string
	)
	err := row.Scan(&idStr, &docStr, &bill.InvoiceNumber, &bill.VendorName,
		&bill.PurchaseDate, &bill.PurchaseTime, &bill.Currency, &bill.Subtotal,
		&bill.Discount, &bill.TaxAmount, &bill.TotalAmount, &bill.PaymentMethod,
		&bill.TotalAmountUSD, &bill.TaxAmountUSD, &bill.OriginalCurrency,
		&bill.ExchangeRateUsed, &isValid, &itemsSum, &detail, &originsJSON, &createdAt)
	if err != nil {
		return nil, err
	}

	if bill.ID, err = uuid.Parse(idStr); err != nil {
		return nil, err
	}
	if bill.DocumentID, err = uuid.Parse(docStr); err != nil {
		return nil, err
	}
	if bill.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, err
	}

	report := &entity.ValidationReport{
		IsValid:     isValid,
		ItemsSum:    itemsSum,
		TaxAmount:   bill.TaxAmount,
		TotalAmount: bill.TotalAmount,
	}
	if detail != "" {
		report.Errors = []entity.ValidationError{{Kind: entity.ErrKindAmountMismatch, Detail: detail}}
	}
	bill.Report = report

	if originsJSON != "" && originsJSON != "{}" {
		if err := json.Unmarshal([]byte(originsJSON), &bill.Origins); err != nil {
			return nil, err
		}
	}
	return &bill, nil
}
