package validation

import (
	"fmt"
	"math"

	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/entity"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/utils"
)

// DefaultTolerance absorbs the rounding noise OCR parsing introduces.
const DefaultTolerance = 0.02

// Validator cross-checks a bill's arithmetic without assuming whether
// item totals already include tax. It is advisory: results never block
// the bill.
type Validator struct {
	Tolerance float64
}

func NewValidator() *Validator {
	return &Validator{Tolerance: DefaultTolerance}
}

// ValidateAmounts compares the summed line items against the headline
// figures under both tax models and accepts either.
func (v *Validator) ValidateAmounts(bill entity.NormalizedBill) entity.ValidationReport {
	tolerance := v.Tolerance
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	var itemsSum float64
	for _, item := range bill.Items {
		itemsSum += item.ItemTotal
	}

	approxEqual := func(a, b float64) bool {
		return math.Abs(a-b) <= tolerance
	}

	// regions differ on tax handling; check both models
	matchesInclusive := approxEqual(itemsSum, bill.TotalAmount)
	matchesExclusive := approxEqual(itemsSum+bill.TaxAmount, bill.TotalAmount)
	isValid := matchesInclusive || matchesExclusive

	report := entity.ValidationReport{
		IsValid:     isValid,
		ItemsSum:    utils.Round2(itemsSum),
		TaxAmount:   utils.Round2(bill.TaxAmount),
		TotalAmount: utils.Round2(bill.TotalAmount),
	}
	if !isValid {
		report.Errors = append(report.Errors, entity.ValidationError{
			Kind: entity.ErrKindAmountMismatch,
			Detail: fmt.Sprintf("items_sum=%.2f tax_amount=%.2f total_amount=%.2f",
				report.ItemsSum, report.TaxAmount, report.TotalAmount),
		})
	}
	return report
}
