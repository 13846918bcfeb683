package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/entity"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/repository"
)

// Service is a tiny façade over repositories that produces XLSX bytes for exports.
type Service struct {
	bills  repository.BillRepository
	docs   repository.DocumentRepository
	logger *slog.Logger
}

func NewService(bills repository.BillRepository, docs repository.DocumentRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{bills: bills, docs: docs, logger: logger}
}

const (
	billsSheet = "Bills"
	itemsSheet = "Line Items"
)

// ExportBillsXLSX returns an XLSX workbook (as bytes) for the given date window.
// If only from is provided -> from..today (inclusive).
// If only to is provided   -> beginning..to (inclusive).
// If neither is provided   -> all bills.
func (s *Service) ExportBillsXLSX(ctx context.Context, from, to *time.Time) ([]byte, error) {
	start := time.Now()

	// Normalize dates (date-only, UTC)
	var fromDate, toDate *time.Time
	if from != nil {
		f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
		fromDate = &f
	}
	if to != nil {
		t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
		toDate = &t
	}
	if fromDate != nil && toDate == nil {
		today := time.Now().UTC()
		t := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
		toDate = &t
	}

	bills, err := s.bills.List(ctx, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("query bills: %w", err)
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", billsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(itemsSheet); err != nil {
		return nil, err
	}
	if idx, err := f.GetSheetIndex(billsSheet); err == nil {
		f.SetActiveSheet(idx)
	}

	write := func(sheet string, col, row int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, v)
	}

	billHeaders := []string{
		"Date",
		"Vendor",
		"Invoice No",
		"Currency",
		"Subtotal",
		"Discount",
		"Tax",
		"Total",
		"Total (USD)",
		"Payment Method",
		"Valid",
		"Notes",
		"Source File",
	}
	for i, h := range billHeaders {
		write(billsSheet, i+1, 1, h)
	}

	itemHeaders := []string{
		"Bill ID",
		"Date",
		"Vendor",
		"S.No",
		"Item",
		"Qty",
		"Unit Price",
		"Line Total",
	}
	for i, h := range itemHeaders {
		write(itemsSheet, i+1, 1, h)
	}

	itemRow := 2
	itemCount := 0
	for i, b := range bills {
		row := i + 2

		// Resolve the original file if the document still exists
		sourcePath := ""
		if doc, err := s.docs.GetByID(ctx, b.DocumentID); err == nil {
			sourcePath = doc.SourcePath
		}

		valid := "yes"
		notes := ""
		if b.Report != nil && !b.Report.IsValid {
			valid = "no"
			if len(b.Report.Errors) > 0 {
				notes = truncate(b.Report.Errors[0].Detail, 140)
			}
		}

		write(billsSheet, 1, row, b.PurchaseDate)
		write(billsSheet, 2, row, b.VendorName)
		write(billsSheet, 3, row, b.InvoiceNumber)
		write(billsSheet, 4, row, b.Currency)
		write(billsSheet, 5, row, b.Subtotal)
		write(billsSheet, 6, row, b.Discount)
		write(billsSheet, 7, row, b.TaxAmount)
		write(billsSheet, 8, row, b.TotalAmount)
		write(billsSheet, 9, row, b.TotalAmountUSD)
		write(billsSheet, 10, row, b.PaymentMethod)
		write(billsSheet, 11, row, valid)
		write(billsSheet, 12, row, notes)
		write(billsSheet, 13, row, sourcePath)

		items, err := s.bills.ListItems(ctx, b.ID)
		if err != nil {
			return nil, fmt.Errorf("query line items: %w", err)
		}
		for _, it := range items {
			writeItemRow(write, itemRow, b, it)
			itemRow++
			itemCount++
		}
	}

	_ = f.SetColWidth(billsSheet, "A", "A", 12)
	_ = f.SetColWidth(billsSheet, "B", "B", 28)
	_ = f.SetColWidth(billsSheet, "C", "C", 16)
	_ = f.SetColWidth(billsSheet, "D", "D", 10)
	_ = f.SetColWidth(billsSheet, "E", "I", 12)
	_ = f.SetColWidth(billsSheet, "J", "J", 16)
	_ = f.SetColWidth(billsSheet, "K", "K", 8)
	_ = f.SetColWidth(billsSheet, "L", "L", 40)
	_ = f.SetColWidth(billsSheet, "M", "M", 60)

	_ = f.SetColWidth(itemsSheet, "A", "A", 38)
	_ = f.SetColWidth(itemsSheet, "B", "B", 12)
	_ = f.SetColWidth(itemsSheet, "C", "C", 28)
	_ = f.SetColWidth(itemsSheet, "D", "D", 6)
	_ = f.SetColWidth(itemsSheet, "E", "E", 40)
	_ = f.SetColWidth(itemsSheet, "F", "H", 12)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(bills),
		"items", itemCount,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeItemRow(write func(sheet string, col, row int, v any), row int, b *entity.Bill, it entity.NormalizedLineItem) {
	write(itemsSheet, 1, row, b.ID.String())
	write(itemsSheet, 2, row, b.PurchaseDate)
	write(itemsSheet, 3, row, b.VendorName)
	write(itemsSheet, 4, row, it.SerialNo)
	write(itemsSheet, 5, row, truncate(it.ItemName, 120))
	write(itemsSheet, 6, row, it.Quantity)
	write(itemsSheet, 7, row, it.UnitPrice)
	write(itemsSheet, 8, row, it.ItemTotal)
}

// FileName builds an attachment name that reflects the exported window.
func FileName(from, to *time.Time) string {
	switch {
	case from != nil && to != nil:
		return fmt.Sprintf("bills_%s_%s.xlsx", from.Format("2006-01-02"), to.Format("2006-01-02"))
	case from != nil:
		return fmt.Sprintf("bills_from_%s.xlsx", from.Format("2006-01-02"))
	case to != nil:
		return fmt.Sprintf("bills_until_%s.xlsx", to.Format("2006-01-02"))
	default:
		return "bills.xlsx"
	}
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
