package entity

import "strings"

// RawLineItem is a single line item as emitted by a vision model or the
// regex fallback. Values keep whatever type the producer emitted; strings,
// numbers and nulls are all legal until normalization resolves them.
type RawLineItem struct {
	SerialNo  any `json:"s_no,omitempty"`
	ItemName  any `json:"item_name,omitempty"`
	Quantity  any `json:"quantity,omitempty"`
	UnitPrice any `json:"unit_price,omitempty"`
	ItemTotal any `json:"item_total,omitempty"`
}

// RawExtraction is the loosely typed extraction payload for one document
// page. Produced once by the vision call (or assembled from OCR text on
// fallback-only input) and treated as immutable apart from the fallback
// merge, which only ever fills weak fields.
type RawExtraction struct {
	OCRText       string        `json:"ocr_text"`
	InvoiceNumber any           `json:"invoice_number,omitempty"`
	VendorName    any           `json:"vendor_name,omitempty"`
	PurchaseDate  any           `json:"purchase_date,omitempty"`
	PurchaseTime  any           `json:"purchase_time,omitempty"`
	Currency      any           `json:"currency,omitempty"`
	Items         []RawLineItem `json:"items,omitempty"`
	Subtotal      any           `json:"subtotal,omitempty"`
	Discount      any           `json:"discount,omitempty"`
	TaxAmount     any           `json:"tax_amount,omitempty"`
	TotalAmount   any           `json:"total_amount,omitempty"`
	PaymentMethod any           `json:"payment_method,omitempty"`
}

// IsEmpty reports whether the extraction carries nothing usable: no OCR
// text, no items and every header field absent or blank.
func (r *RawExtraction) IsEmpty() bool {
	if r == nil {
		return true
	}
	if strings.TrimSpace(r.OCRText) != "" || len(r.Items) > 0 {
		return false
	}
	for _, v := range []any{
		r.InvoiceNumber, r.VendorName, r.PurchaseDate, r.PurchaseTime,
		r.Currency, r.Subtotal, r.Discount, r.TaxAmount, r.TotalAmount,
		r.PaymentMethod,
	} {
		if !blank(v) {
			return false
		}
	}
	return true
}

func blank(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}
