package entity

// Validation error kinds recorded in a ValidationReport.
const (
	ErrKindAmountMismatch = "AMOUNT_MISMATCH"
)

// ValidationError is a single advisory finding from amount validation.
type ValidationError struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

// ValidationReport summarizes the arithmetic cross-check of a bill.
// It is advisory: an invalid report never blocks storage or export.
type ValidationReport struct {
	IsValid     bool              `json:"is_valid"`
	ItemsSum    float64           `json:"items_sum"`
	TaxAmount   float64           `json:"tax_amount"`
	TotalAmount float64           `json:"total_amount"`
	Errors      []ValidationError `json:"errors,omitempty"`
}
