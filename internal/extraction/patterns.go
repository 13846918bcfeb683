package extraction

import (
	"regexp"

	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/constants"
)

// Pattern tables for the regex fallback. Compiled once at init; order is
// load-bearing everywhere: the first matching entry wins.

// datePatterns pair each recognizer with the layout used to re-emit the
// match as ISO-8601.
var datePatterns = []struct {
	re     *regexp.Regexp
	layout string
}{
	{regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`), "2006-01-02"}, // 2026-01-15
	{regexp.MustCompile(`\b(\d{2}/\d{2}/\d{4})\b`), "02/01/2006"}, // 15/01/2026
	{regexp.MustCompile(`\b(\d{2}-\d{2}-\d{4})\b`), "02-01-2006"}, // 15-01-2026
}

// timePatterns capture HH:MM; a seconds suffix is left behind by the
// match boundary and normalization truncates to HH:MM anyway.
var timePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(\d{2}:\d{2})\b`), // 14:32, 14:32:10
}

// invoicePatterns run against uppercased text; group selects the capture
// holding the document number.
var invoicePatterns = []struct {
	re    *regexp.Regexp
	group int
}{
	{regexp.MustCompile(`(INVOICE|BILL|RECEIPT)[\s:#-]*([A-Z0-9\-/]+)`), 2},
	{regexp.MustCompile(`\bINV[\s\-:]?([A-Z0-9]+)\b`), 1},
	{regexp.MustCompile(`\bBILL[\s\-:]?([A-Z0-9\-/]+)\b`), 1},
}

// currencyPatterns map a symbol or code to its ISO 4217 code.
var currencyPatterns = []struct {
	code string
	re   *regexp.Regexp
}{
	{"USD", regexp.MustCompile(`\bUSD\b|\$`)},
	{"INR", regexp.MustCompile(`\bINR\b|₹`)},
	{"MYR", regexp.MustCompile(`\bMYR\b|\bRM\b`)},
	{"EUR", regexp.MustCompile(`\bEUR\b|€`)},
	{"GBP", regexp.MustCompile(`\bGBP\b|£`)},
}

// paymentPatterns run against uppercased text.
var paymentPatterns = []struct {
	method constants.PaymentMethod
	re     *regexp.Regexp
}{
	{constants.PaymentCash, regexp.MustCompile(`\bCASH\b`)},
	{constants.PaymentCard, regexp.MustCompile(`\bCARD\b|\bCREDIT\b|\bDEBIT\b`)},
	{constants.PaymentUPI, regexp.MustCompile(`\bUPI\b`)},
	{constants.PaymentNetBanking, regexp.MustCompile(`\bNET BANKING\b|\bONLINE\b`)},
	{constants.PaymentWallet, regexp.MustCompile(`\bPAYTM\b|\bPHONEPE\b|\bGPAY\b`)},
}

var taxLabelPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bTAX\b`),
	regexp.MustCompile(`\bGST\b`),
	regexp.MustCompile(`\bVAT\b`),
	regexp.MustCompile(`\bCGST\b`),
	regexp.MustCompile(`\bSGST\b`),
	regexp.MustCompile(`\bIGST\b`),
}

var totalLabelPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bTOTAL\b`),
	regexp.MustCompile(`\bAMOUNT DUE\b`),
	regexp.MustCompile(`\bGRAND TOTAL\b`),
}

var subtotalLabelPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bSUBTOTAL\b`),
	regexp.MustCompile(`\bSUB TOTAL\b`),
}

// amountPattern matches monetary figures with or without thousand
// separators: 100, 1234.56, 1,000, 1,000.00, 99.99.
var amountPattern = regexp.MustCompile(`\b\d+(?:,\d{3})*(?:\.\d{2})?\b`)

// lineItemPattern captures SERNO  ITEMNAME  QTY  UNITPRICE rows from
// uppercased OCR text.
var lineItemPattern = regexp.MustCompile(`(\d+)\s+([A-Z0-9\s\-.]+)\s+(\d+(?:\.\d+)?)\s+(\d+(?:\.\d+)?)`)
