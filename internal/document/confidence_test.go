package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeuristicConfidence(t *testing.T) {
	assert.InDelta(t, 0.2, heuristicConfidence(""), 0.001)
	assert.InDelta(t, 0.2, heuristicConfidence("lorem ipsum dolor"), 0.001)

	receipt := "ACME TRADERS\nDate: 15/01/2026\nTOTAL $14.85"
	assert.InDelta(t, 0.7, heuristicConfidence(receipt), 0.001)

	long := receipt + "\n1 COFFEE 2 5.00\n2 BAGEL 1 3.50\nSUBTOTAL 13.50\nTAX 1.35\nPaid by CARD\nThank you for shopping with us today"
	assert.InDelta(t, 0.8, heuristicConfidence(long), 0.001)
}

func TestConfidencePatterns(t *testing.T) {
	assert.True(t, hasDatePattern("2026-01-15"))
	assert.True(t, hasDatePattern("15/01/2026"))
	assert.False(t, hasDatePattern("no dates here"))

	assert.True(t, hasCurrencyPattern("total usd 10"))
	assert.True(t, hasCurrencyPattern("₹1,000"))
	assert.True(t, hasCurrencyPattern("rm 50.00"))
	assert.False(t, hasCurrencyPattern("plain words"))

	assert.True(t, hasAmountPattern("1,234.56"))
	assert.True(t, hasAmountPattern("14.85"))
	assert.False(t, hasAmountPattern("no 123 money"))
}
