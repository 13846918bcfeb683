package extraction

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/utils"
)

// Heuristic vendor-name extraction for noisy OCR output. Scores the top
// lines of the document and returns the best candidate only when it
// clears a confidence gate.

var vendorStopwords = map[string]bool{
	"INVOICE": true, "RECEIPT": true, "TAX": true, "GST": true, "VAT": true, "TOTAL": true,
	"BILL": true, "DATE": true, "TIME": true, "CASH": true, "CARD": true, "AMOUNT": true,
	"CHANGE": true, "BALANCE": true,
}

var legalSuffixes = map[string]bool{
	"LTD": true, "LIMITED": true, "PVT": true, "PRIVATE": true, "LLP": true,
	"INC": true, "CORP": true, "CO": true, "COMPANY": true, "SDN": true, "BHD": true,
}

var addressKeywords = map[string]bool{
	"ROAD": true, "STREET": true, "ST": true, "RD": true, "AVE": true, "AVENUE": true,
	"LANE": true, "JALAN": true, "NAGAR": true, "SECTOR": true,
	"CITY": true, "STATE": true, "COUNTRY": true, "PIN": true, "ZIP": true,
}

var (
	vendorPunctuation = regexp.MustCompile(`[^\p{L}\p{N}_\s&\-.]`)
	multiSpace        = regexp.MustCompile(`\s{2,}`)
	symbolHeavy       = regexp.MustCompile(`[#@:]`)
)

// normalizeLine cleans OCR noise while preserving business naming style.
func normalizeLine(line string) string {
	line = vendorPunctuation.ReplaceAllString(line, "")
	return strings.TrimSpace(multiSpace.ReplaceAllString(line, " "))
}

const (
	vendorMaxLines  = 20
	vendorMinScore  = 4.0
	vendorMinRunes  = 3
	maxDigitDensity = 0.15
)

// ScoreLine estimates how likely a raw OCR line is to be the vendor name.
// Most checks run on the normalized form; the symbol penalty looks at the
// raw line, since normalization strips the symbols it penalizes.
func ScoreLine(rawLine string, index int) float64 {
	line := normalizeLine(rawLine)
	if line == "" {
		return 0.0
	}

	tokens := strings.Fields(line)
	tokenCount := len(tokens)
	score := 0.0

	// 1. Positional bias (top-heavy)
	if index < 12 {
		score += float64(12 - index)
	}

	// 2. Penalize numeric-heavy lines
	digits := 0
	runes := 0
	for _, r := range line {
		runes++
		if unicode.IsDigit(r) {
			digits++
		}
	}
	if runes > 0 && float64(digits)/float64(runes) > maxDigitDensity {
		score -= 4
	}

	// 3. Address detection (strong penalty)
	if anyToken(tokens, addressKeywords) {
		score -= 5
	}

	// 4. Case structure (ALL CAPS or Title Case)
	if isUpperLine(line) {
		score += 4
	} else if isTitleLine(line) {
		score += 2
	}

	// 5. Legal suffix bonus
	if anyToken(tokens, legalSuffixes) {
		score += 4
	}

	// 6. Stopword penalty (soft)
	hits := 0
	for _, tok := range tokens {
		if vendorStopwords[strings.ToUpper(tok)] {
			hits++
		}
	}
	score -= float64(hits) * 1.5

	// 7. Length heuristic
	if tokenCount >= 2 && tokenCount <= 6 {
		score += 3
	} else if tokenCount > 10 {
		score -= 4
	}

	// 8. Symbol-heavy penalty
	if symbolHeavy.MatchString(rawLine) {
		score -= 2
	}

	return utils.Round2(score)
}

func anyToken(tokens []string, set map[string]bool) bool {
	for _, tok := range tokens {
		if set[strings.ToUpper(tok)] {
			return true
		}
	}
	return false
}

// isUpperLine reports whether every cased rune is uppercase and at least
// one cased rune exists.
func isUpperLine(s string) bool {
	hasCased := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			hasCased = true
		}
	}
	return hasCased
}

// isTitleLine reports whether the line is title-cased: uppercase runes
// start words, lowercase runes only continue them.
func isTitleLine(s string) bool {
	hasCased := false
	prevCased := false
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			if prevCased {
				return false
			}
			hasCased = true
			prevCased = true
		case unicode.IsLower(r):
			if !prevCased {
				return false
			}
		default:
			prevCased = false
		}
	}
	return hasCased
}

// ExtractVendor returns the best-scoring candidate line, normalized, or
// "" when no line clears the confidence gate.
func ExtractVendor(ocrText string) string {
	if ocrText == "" {
		return ""
	}

	type candidate struct {
		score float64
		line  string
	}
	var candidates []candidate
	for _, rawLine := range strings.Split(ocrText, "\n") {
		if utf8.RuneCountInString(strings.TrimSpace(rawLine)) < vendorMinRunes {
			continue
		}
		if len(candidates) == vendorMaxLines {
			break
		}
		candidates = append(candidates, candidate{
			score: ScoreLine(rawLine, len(candidates)),
			line:  normalizeLine(rawLine),
		})
	}
	if len(candidates) == 0 {
		return ""
	}

	// stable sort: ties resolve to the earliest line
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if candidates[0].score < vendorMinScore {
		return ""
	}
	return candidates[0].line
}
