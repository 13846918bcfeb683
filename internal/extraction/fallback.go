package extraction

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/entity"
)

// Recovered is a partial mapping of canonical field name to the value the
// regex fallback recovered. Fields without a match are simply absent.
type Recovered map[string]any

// ExtractWeak runs the pattern tables for every weak field that has one.
// Strong fields are never touched, even when a pattern would match.
func ExtractWeak(ocrText string, weak WeaknessSet) Recovered {
	rec := Recovered{}
	if strings.TrimSpace(ocrText) == "" || len(weak) == 0 {
		return rec
	}
	if weak.Has(entity.FieldInvoiceNumber) {
		if v := ExtractInvoiceNumber(ocrText); v != "" {
			rec[entity.FieldInvoiceNumber] = v
		}
	}
	if weak.Has(entity.FieldPurchaseDate) {
		if v := ExtractDate(ocrText); v != "" {
			rec[entity.FieldPurchaseDate] = v
		}
	}
	if weak.Has(entity.FieldCurrency) {
		if v := ExtractCurrency(ocrText); v != "" {
			rec[entity.FieldCurrency] = v
		}
	}
	if weak.Has(entity.FieldTotalAmount) {
		if v, ok := ExtractTotalAmount(ocrText); ok && v != 0 {
			rec[entity.FieldTotalAmount] = v
		}
	}
	return rec
}

// ExtractInvoiceNumber finds an invoice/bill/receipt number. Matching is
// effectively case-insensitive: the text is uppercased first.
func ExtractInvoiceNumber(text string) string {
	upper := strings.ToUpper(text)
	for _, p := range invoicePatterns {
		if m := p.re.FindStringSubmatch(upper); m != nil {
			return m[p.group]
		}
	}
	return ""
}

// ExtractDate finds the first date and re-emits it as ISO-8601. A match
// that fails to parse with its own layout yields no result rather than a
// default.
func ExtractDate(text string) string {
	for _, p := range datePatterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		return normalizeDateString(m[1], p.layout)
	}
	return ""
}

// ExtractTime finds the first time of day, truncated to HH:MM.
func ExtractTime(text string) string {
	for _, re := range timePatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return normalizeTime(m[1])
		}
	}
	return ""
}

// ExtractCurrency maps the first matching symbol or code to ISO 4217.
func ExtractCurrency(text string) string {
	for _, p := range currencyPatterns {
		if p.re.MatchString(text) {
			return p.code
		}
	}
	return ""
}

// ExtractPaymentMethod finds the first recognizable payment method.
func ExtractPaymentMethod(text string) string {
	upper := strings.ToUpper(text)
	for _, p := range paymentPatterns {
		if p.re.MatchString(upper) {
			return string(p.method)
		}
	}
	return ""
}

// ExtractTotalAmount scans for a line carrying a total label and returns
// the last monetary figure on it.
func ExtractTotalAmount(text string) (float64, bool) {
	return extractLabeledAmount(text, totalLabelPatterns)
}

// ExtractTaxAmount scans for a line carrying a tax label and returns the
// last monetary figure on it.
func ExtractTaxAmount(text string) (float64, bool) {
	return extractLabeledAmount(text, taxLabelPatterns)
}

// ExtractSubtotal scans for a line carrying a subtotal label and returns
// the last monetary figure on it.
func ExtractSubtotal(text string) (float64, bool) {
	return extractLabeledAmount(text, subtotalLabelPatterns)
}

func extractLabeledAmount(text string, labels []*regexp.Regexp) (float64, bool) {
	lines := strings.Split(strings.ToUpper(text), "\n")
	for _, label := range labels {
		for _, line := range lines {
			if !label.MatchString(line) {
				continue
			}
			amounts := amountPattern.FindAllString(line, -1)
			if len(amounts) == 0 {
				continue
			}
			raw := strings.ReplaceAll(amounts[len(amounts)-1], ",", "")
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				continue
			}
			return v, true
		}
	}
	return 0, false
}

// ExtractLineItems parses SERNO NAME QTY PRICE rows out of the OCR text.
// Item totals are left absent; normalization recomputes them.
func ExtractLineItems(text string) []entity.RawLineItem {
	upper := strings.ToUpper(text)
	var items []entity.RawLineItem
	for _, line := range strings.Split(upper, "\n") {
		m := lineItemPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		serial, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		qty, err := strconv.ParseFloat(m[3], 64)
		if err != nil {
			continue
		}
		price, err := strconv.ParseFloat(m[4], 64)
		if err != nil {
			continue
		}
		items = append(items, entity.RawLineItem{
			SerialNo:  serial,
			ItemName:  strings.TrimSpace(m[2]),
			Quantity:  qty,
			UnitPrice: price,
		})
	}
	return items
}

// FromOCRText assembles a RawExtraction purely from OCR text, for use
// when no vision model is configured. Every recovered field carries
// regex origin.
func FromOCRText(text string) *entity.RawExtraction {
	raw := &entity.RawExtraction{OCRText: text}
	if strings.TrimSpace(text) == "" {
		return raw
	}
	if v := ExtractInvoiceNumber(text); v != "" {
		raw.InvoiceNumber = v
	}
	if v := ExtractDate(text); v != "" {
		raw.PurchaseDate = v
	}
	if v := ExtractTime(text); v != "" {
		raw.PurchaseTime = v
	}
	if v := ExtractCurrency(text); v != "" {
		raw.Currency = v
	}
	if v := ExtractPaymentMethod(text); v != "" {
		raw.PaymentMethod = v
	}
	if v, ok := ExtractTotalAmount(text); ok {
		raw.TotalAmount = v
	}
	if v, ok := ExtractTaxAmount(text); ok {
		raw.TaxAmount = v
	}
	if v, ok := ExtractSubtotal(text); ok {
		raw.Subtotal = v
	}
	if items := ExtractLineItems(text); len(items) > 0 {
		raw.Items = items
	}
	return raw
}
