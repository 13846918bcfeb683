package utils

import "math"

// Round2 rounds a monetary value to 2 decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ClampNonNeg floors negative values at zero.
func ClampNonNeg(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
