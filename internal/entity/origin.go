package entity

// FieldOrigin records which strategy produced a field's final value.
type FieldOrigin string

const (
	OriginAI        FieldOrigin = "ai"        // taken from the vision model as-is
	OriginRegex     FieldOrigin = "regex"     // recovered by the regex fallback
	OriginHeuristic FieldOrigin = "heuristic" // recovered by the vendor line scorer
	OriginDefault   FieldOrigin = "default"   // sentinel or computed default
)

// Canonical field names shared by weakness detection, fallback merge and
// origin tracking. Values match the wire keys of RawExtraction.
const (
	FieldInvoiceNumber = "invoice_number"
	FieldVendorName    = "vendor_name"
	FieldPurchaseDate  = "purchase_date"
	FieldPurchaseTime  = "purchase_time"
	FieldCurrency      = "currency"
	FieldTaxAmount     = "tax_amount"
	FieldTotalAmount   = "total_amount"
	FieldPaymentMethod = "payment_method"
)

// OriginMap maps a field name to the strategy that produced its value.
type OriginMap map[string]FieldOrigin
