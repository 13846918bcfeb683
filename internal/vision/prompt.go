package vision

import "strings"

// BuildBillPrompt composes the instruction sent with every extraction call.
// The schema block pins the JSON shape; typing is deliberately loose because
// models mix strings and numbers, normalization downstream resolves them.
func BuildBillPrompt() string {
	parts := []string{
		"Extract receipt/invoice data AND return the raw OCR text.",
		"Return ONLY valid JSON.",
		"Do NOT include explanations.",
		"If a field is missing or uncertain, return an empty string or null.",
		"",
		"Schema:",
		"{",
		`  "ocr_text": "raw text from the document (REQUIRED)",`,
		`  "invoice_number": "string",`,
		`  "vendor_name": "string",`,
		`  "purchase_date": "YYYY-MM-DD",`,
		`  "purchase_time": "HH:MM",`,
		`  "currency": "string",`,
		`  "items": [{"s_no": 1, "item_name": "string", "quantity": 1, "unit_price": 0.0, "item_total": 0.0}],`,
		`  "subtotal": 0.0,`,
		`  "discount": 0.0,`,
		`  "tax_amount": 0.0,`,
		`  "total_amount": 0.0,`,
		`  "payment_method": "string"`,
		"}",
	}
	return strings.Join(parts, "\n")
}
