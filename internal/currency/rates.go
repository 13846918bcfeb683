package currency

// RateSource resolves an ISO 4217 code to its conversion rate into USD.
// Implementations report ok=false for codes they do not carry; callers
// decide the fallback policy.
type RateSource interface {
	Rate(code string) (float64, bool)
}

// StaticRates is a fixed in-memory rate table keyed by ISO 4217 code.
type StaticRates map[string]float64

func (r StaticRates) Rate(code string) (float64, bool) {
	rate, ok := r[code]
	return rate, ok
}

// DefaultRates returns the built-in table covering the currencies the
// fallback extractor can recognize.
func DefaultRates() StaticRates {
	return StaticRates{
		"USD": 1.0,
		"INR": 0.012,
		"MYR": 0.21,
		"EUR": 1.09,
		"GBP": 1.27,
	}
}
