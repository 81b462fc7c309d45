// Package calculator holds the pure arithmetic behind the record form:
// the insulin dose formula and the per-product carbohydrate recomputation.
package calculator

import (
	"math"
	"strconv"
	"strings"
)

// DefaultCoefficient is used for any coefficient that is blank or not a
// number when the dose is computed.
const DefaultCoefficient = 1.0

// InsulinDose computes the suggested bolus:
//
//	insulin = round1(carbs / 10 * personal * sport * time)
func InsulinDose(carbs, timeCoeff, sportCoeff, personalCoeff float64) float64 {
	return Round1((carbs / 10) * personalCoeff * sportCoeff * timeCoeff)
}

// Round1 rounds v to one decimal place, half away from zero.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// FormatOneDecimal renders v with exactly one decimal ("5" -> "5.0").
func FormatOneDecimal(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// ParseNumber parses a user-entered decimal. Surrounding whitespace is
// ignored. Empty input, NaN and infinities are rejected.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// CoefficientOrDefault parses a coefficient field, falling back to
// DefaultCoefficient when it is blank or malformed.
func CoefficientOrDefault(s string) float64 {
	if v, ok := ParseNumber(s); ok {
		return v
	}
	return DefaultCoefficient
}
