package extraction

import (
	"strings"

	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/entity"
)

// WeaknessSet is the set of field names judged too unreliable to trust
// for one extraction pass.
type WeaknessSet map[string]bool

func (s WeaknessSet) Has(field string) bool {
	return s[field]
}

// Fields returns the weak field names in canonical order.
func (s WeaknessSet) Fields() []string {
	var fields []string
	for _, f := range criticalFields {
		if s[f] {
			fields = append(fields, f)
		}
	}
	return fields
}

// criticalFields are the fields checked for weakness, in the order they
// are reported and merged.
var criticalFields = []string{
	entity.FieldInvoiceNumber,
	entity.FieldVendorName,
	entity.FieldPurchaseDate,
	entity.FieldCurrency,
	entity.FieldTotalAmount,
}

// IsWeak reports whether a value is absent, null or a blank string.
// It never fails on malformed input; anything unrecognizable is weak.
func IsWeak(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	default:
		return false
	}
}

// IsWeakAmount extends IsWeak for strictly positive fields: zero and
// unparseable numbers are also weak.
func IsWeakAmount(v any) bool {
	if IsWeak(v) {
		return true
	}
	f, ok := toFloat(v)
	if !ok {
		return true
	}
	return f == 0
}

// DetectWeakFields checks the critical fields of a raw extraction and
// returns the set that should be handed to the fallback chain.
func DetectWeakFields(raw *entity.RawExtraction) WeaknessSet {
	weak := WeaknessSet{}
	if raw == nil {
		for _, f := range criticalFields {
			weak[f] = true
		}
		return weak
	}
	if IsWeak(raw.InvoiceNumber) {
		weak[entity.FieldInvoiceNumber] = true
	}
	if IsWeak(raw.VendorName) {
		weak[entity.FieldVendorName] = true
	}
	if IsWeak(raw.PurchaseDate) {
		weak[entity.FieldPurchaseDate] = true
	}
	if IsWeak(raw.Currency) {
		weak[entity.FieldCurrency] = true
	}
	if IsWeakAmount(raw.TotalAmount) {
		weak[entity.FieldTotalAmount] = true
	}
	return weak
}
