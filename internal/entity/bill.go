package entity

import (
	"time"

	"github.com/google/uuid"
)

// UnknownVendor is the sentinel stored when no vendor name could be
// resolved by any strategy.
const UnknownVendor = "UNKNOWN"

// NormalizedLineItem is a line item after normalization: numeric fields
// coerced, serials re-sequenced from 1, totals recomputed when absent.
type NormalizedLineItem struct {
	SerialNo  int     `json:"s_no"`
	ItemName  string  `json:"item_name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	ItemTotal float64 `json:"item_total"`
}

// NormalizedBill is the canonical bill schema produced by normalization.
// Monetary fields are non-negative and rounded to 2 decimals; dates are
// ISO-8601 or empty; the vendor name is never empty.
type NormalizedBill struct {
	InvoiceNumber string               `json:"invoice_number,omitempty"`
	VendorName    string               `json:"vendor_name"`
	PurchaseDate  string               `json:"purchase_date"`
	PurchaseTime  string               `json:"purchase_time"`
	Currency      string               `json:"currency"`
	Items         []NormalizedLineItem `json:"items"`
	Subtotal      float64              `json:"subtotal"`
	Discount      float64              `json:"discount"`
	TaxAmount     float64              `json:"tax_amount"`
	TotalAmount   float64              `json:"total_amount"`
	PaymentMethod string               `json:"payment_method"`
}

// ConvertedBill is a NormalizedBill plus USD-denominated copies of the
// monetary headline figures. Original-currency fields are never altered
// by conversion; the rate used is recorded for audit.
type ConvertedBill struct {
	NormalizedBill
	TotalAmountUSD   float64 `json:"total_amount_usd"`
	TaxAmountUSD     float64 `json:"tax_amount_usd"`
	OriginalCurrency string  `json:"original_currency"`
	ExchangeRateUsed float64 `json:"exchange_rate_used"`
}

// Bill represents a stored bill row for data transfer between layers.
type Bill struct {
	ID         uuid.UUID        `json:"id"`
	DocumentID uuid.UUID        `json:"document_id"`
	ConvertedBill
	Report    *ValidationReport `json:"validation,omitempty"`
	Origins   OriginMap         `json:"origins,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
