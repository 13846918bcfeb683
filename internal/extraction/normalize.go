package extraction

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/constants"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/entity"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/utils"
)

var timeShape = regexp.MustCompile(`^\d{2}:\d{2}(:\d{2})?$`)

// Normalize maps a raw extraction into the canonical bill schema, using
// the current date for defaulting.
func Normalize(raw *entity.RawExtraction) entity.NormalizedBill {
	return NormalizeAt(raw, time.Now())
}

// NormalizeAt is Normalize with an explicit processing date. It is a pure
// function: it never fails, and re-normalizing its output produces the
// same bill.
func NormalizeAt(raw *entity.RawExtraction, now time.Time) entity.NormalizedBill {
	if raw == nil {
		raw = &entity.RawExtraction{}
	}

	bill := entity.NormalizedBill{
		InvoiceNumber: strings.TrimSpace(toString(raw.InvoiceNumber)),
		VendorName:    normalizeVendor(raw.VendorName),
		PurchaseDate:  normalizeDate(raw.PurchaseDate, now),
		PurchaseTime:  normalizeTime(toString(raw.PurchaseTime)),
		Currency:      normalizeCurrency(toString(raw.Currency)),
		PaymentMethod: normalizePayment(toString(raw.PaymentMethod)),
	}

	bill.Items = normalizeItems(raw.Items)

	tax, _ := toFloat(raw.TaxAmount)
	bill.TaxAmount = utils.Round2(utils.ClampNonNeg(tax))

	discount, _ := toFloat(raw.Discount)
	bill.Discount = utils.Round2(utils.ClampNonNeg(discount))

	total, _ := toFloat(raw.TotalAmount)
	bill.TotalAmount = utils.Round2(utils.ClampNonNeg(total))

	// subtotal: keep a supplied value, otherwise derive it from the
	// headline figures, never below zero
	if sub, ok := toFloat(raw.Subtotal); ok {
		bill.Subtotal = utils.Round2(utils.ClampNonNeg(sub))
	} else {
		bill.Subtotal = utils.Round2(utils.ClampNonNeg(bill.TotalAmount - bill.TaxAmount))
	}

	return bill
}

func normalizeVendor(v any) string {
	name := strings.TrimSpace(toString(v))
	if name == "" {
		return entity.UnknownVendor
	}
	return name
}

// normalizeDate resolves a loose date value to ISO-8601. A field that is
// entirely absent defaults to the processing date; a present but
// unparseable value becomes "" so a real date is never invented.
func normalizeDate(v any, now time.Time) string {
	if v == nil {
		return now.Format("2006-01-02")
	}
	s := strings.TrimSpace(toString(v))
	if s == "" {
		return ""
	}
	for _, p := range datePatterns {
		if t, err := time.Parse(p.layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}

// normalizeDateString parses a date string with the given layout and
// re-emits it as ISO-8601, or "" when the digits don't form a real date.
func normalizeDateString(s, layout string) string {
	t, err := time.Parse(layout, s)
	if err != nil {
		return ""
	}
	return t.Format("2006-01-02")
}

// normalizeTime truncates a time of day to HH:MM; anything not shaped
// like a clock reading becomes "".
func normalizeTime(s string) string {
	s = strings.TrimSpace(s)
	if !timeShape.MatchString(s) {
		return ""
	}
	return s[:5]
}

func normalizeCurrency(s string) string {
	code := strings.ToUpper(strings.TrimSpace(s))
	if code == "" {
		return "USD"
	}
	return code
}

// normalizePayment canonicalizes recognizable payment methods and leaves
// everything else as supplied.
func normalizePayment(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if method, ok := constants.CanonicalPaymentMethod(s); ok {
		return string(method)
	}
	return s
}

// itemTotalTolerance bounds how far a supplied item total may sit from
// quantity*unit_price before the product wins.
const itemTotalTolerance = 0.02

func normalizeItems(raw []entity.RawLineItem) []entity.NormalizedLineItem {
	items := make([]entity.NormalizedLineItem, 0, len(raw))
	for i, it := range raw {
		qtyF, _ := toFloat(it.Quantity)
		// quantities are whole counts; fractional readings truncate
		qty := int(utils.ClampNonNeg(qtyF))

		price, _ := toFloat(it.UnitPrice)
		price = utils.Round2(utils.ClampNonNeg(price))

		computed := utils.Round2(float64(qty) * price)

		// a supplied non-zero item total wins while it agrees with the
		// product; a zero product means there is nothing to check against
		total, ok := toFloat(it.ItemTotal)
		supplied := utils.Round2(utils.ClampNonNeg(total))
		var itemTotal float64
		if ok && supplied != 0 && (computed == 0 || math.Abs(supplied-computed) <= itemTotalTolerance) {
			itemTotal = supplied
		} else {
			itemTotal = computed
		}

		items = append(items, entity.NormalizedLineItem{
			SerialNo:  i + 1,
			ItemName:  strings.TrimSpace(toString(it.ItemName)),
			Quantity:  qty,
			UnitPrice: price,
			ItemTotal: itemTotal,
		})
	}
	return items
}
