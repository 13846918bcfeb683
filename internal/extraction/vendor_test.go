package extraction

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLine(t *testing.T) {
	assert.Equal(t, "ACME TRADERS", normalizeLine("ACME* TRADERS!!"))
	assert.Equal(t, "B&J Cafe - Main St.", normalizeLine("B&J Cafe - Main St."))
	assert.Equal(t, "spaced out", normalizeLine("  spaced    out  "))
	assert.Equal(t, "", normalizeLine("@#$%^"))
}

func TestScoreLine(t *testing.T) {
	// top line, all caps, legal suffix, 4 tokens: 12 + 4 + 4 + 3
	assert.Equal(t, 23.0, ScoreLine("ACME TRADERS PVT LTD", 0))

	// address line: 11 - 4 (digits) - 5 (STREET) + 2 (title case) + 3 (tokens)
	assert.Equal(t, 7.0, ScoreLine("123 Main Street", 1))

	// stopword-only line still rides the positional bias
	assert.Equal(t, 14.5, ScoreLine("INVOICE", 0))

	// past the positional window the bias is gone
	assert.Equal(t, 11.0, ScoreLine("ACME TRADERS PVT LTD", 12))

	// symbol penalty applies to the raw line even though
	// normalization strips the symbols themselves
	assert.Equal(t, 21.0, ScoreLine("ACME TRADERS PVT LTD #1", 0)) // 12+4+4+3-2

	assert.Equal(t, 0.0, ScoreLine("@@@@", 3))
	assert.Equal(t, 0.0, ScoreLine("", 5))
}

func TestExtractVendorPicksTopScoringLine(t *testing.T) {
	text := `ACME TRADERS PVT LTD
123 Main Street
RECEIPT #AB-1029
TOTAL 14.85`
	assert.Equal(t, "ACME TRADERS PVT LTD", ExtractVendor(text))
}

func TestExtractVendorConfidenceGate(t *testing.T) {
	// every candidate normalizes to nothing, so the best score is 0
	assert.Equal(t, "", ExtractVendor("@@@@\n!!!!\n####"))
	assert.Equal(t, "", ExtractVendor(""))
	// lines shorter than 3 runes never become candidates
	assert.Equal(t, "", ExtractVendor("ab\nx\n12"))
}

func TestExtractVendorTieBreaksToEarliestLine(t *testing.T) {
	// twelve numeric filler lines exhaust the positional bias, then two
	// candidates score identically (caps + legal suffix + token count)
	filler := make([]string, 12)
	for i := range filler {
		filler[i] = "1234567890"
	}
	text := strings.Join(filler, "\n") + "\nALPHA TRADERS LTD\nOMEGA STORES INC"

	assert.Equal(t, "ALPHA TRADERS LTD", ExtractVendor(text))
}

func TestExtractVendorCapsCandidateLines(t *testing.T) {
	// the winning line sits past the 20-line window and is never scored
	lines := make([]string, 0, 26)
	for i := 0; i < 25; i++ {
		lines = append(lines, "1234567890")
	}
	lines = append(lines, "ACME TRADERS PVT LTD")
	text := strings.Join(lines, "\n")

	// best candidate inside the window is a digit line at index 0:
	// 12 - 4 = 8, which clears the gate
	assert.Equal(t, "1234567890", ExtractVendor(text))
}
