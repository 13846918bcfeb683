package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/entity"
)

func billWith(total, tax float64, itemTotals ...float64) entity.NormalizedBill {
	bill := entity.NormalizedBill{TotalAmount: total, TaxAmount: tax}
	for i, it := range itemTotals {
		bill.Items = append(bill.Items, entity.NormalizedLineItem{SerialNo: i + 1, ItemTotal: it})
	}
	return bill
}

func TestValidateAmountsAcceptsEitherTaxModel(t *testing.T) {
	v := NewValidator()

	// total = items + tax (tax-exclusive)
	report := v.ValidateAmounts(billWith(55, 5, 50))
	assert.True(t, report.IsValid)
	assert.Empty(t, report.Errors)

	// total = items, tax already inside (tax-inclusive)
	report = v.ValidateAmounts(billWith(50, 5, 50))
	assert.True(t, report.IsValid)
	assert.Empty(t, report.Errors)
}

func TestValidateAmountsMismatch(t *testing.T) {
	v := NewValidator()

	report := v.ValidateAmounts(billWith(60, 5, 50))

	assert.False(t, report.IsValid)
	assert.Equal(t, 50.0, report.ItemsSum)
	assert.Equal(t, 5.0, report.TaxAmount)
	assert.Equal(t, 60.0, report.TotalAmount)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, entity.ErrKindAmountMismatch, report.Errors[0].Kind)
	assert.Equal(t, "items_sum=50.00 tax_amount=5.00 total_amount=60.00", report.Errors[0].Detail)
}

func TestValidateAmountsToleranceBoundary(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name  string
		total float64
		valid bool
	}{
		{"inside tolerance", 55.02, true},
		{"outside tolerance", 55.03, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := v.ValidateAmounts(billWith(tt.total, 5, 50))
			assert.Equal(t, tt.valid, report.IsValid)
		})
	}
}

func TestValidateAmountsSumsAllItems(t *testing.T) {
	v := NewValidator()

	report := v.ValidateAmounts(billWith(25, 0, 12.5, 7.5, 5))

	assert.True(t, report.IsValid)
	assert.Equal(t, 25.0, report.ItemsSum)
}

func TestValidateAmountsNoItems(t *testing.T) {
	v := NewValidator()

	// an all-zero bill balances trivially
	assert.True(t, v.ValidateAmounts(billWith(0, 0)).IsValid)

	// a headline total with no line items does not
	report := v.ValidateAmounts(billWith(14.85, 0))
	assert.False(t, report.IsValid)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, entity.ErrKindAmountMismatch, report.Errors[0].Kind)
}

func TestValidatorToleranceOverrides(t *testing.T) {
	// zero or negative tolerance falls back to the default
	v := &Validator{Tolerance: 0}
	assert.True(t, v.ValidateAmounts(billWith(50.01, 0, 50)).IsValid)

	// a tighter tolerance rejects the same bill
	v = &Validator{Tolerance: 0.005}
	assert.False(t, v.ValidateAmounts(billWith(50.01, 0, 50)).IsValid)
}
