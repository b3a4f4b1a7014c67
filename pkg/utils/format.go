// Package utils provides formatting helpers shared by the CLI and reports.
package utils

import (
	"fmt"
	"math"
	"strings"
)

// FormatPct formats a percentage value with sign and suffix.
// e.g., 2.45 → "+2.45%", -1.23 → "-1.23%"
func FormatPct(pct float64) string {
	if pct >= 0 {
		return fmt.Sprintf("+%.2f%%", pct)
	}
	return fmt.Sprintf("%.2f%%", pct)
}

// FormatRatio formats a fraction as a signed percentage with one decimal.
// e.g., 0.153 → "+15.3%"
func FormatRatio(r float64) string {
	if r >= 0 {
		return fmt.Sprintf("+%.1f%%", r*100)
	}
	return fmt.Sprintf("%.1f%%", r*100)
}

// FormatNumber formats a number with thousands separators and two decimals.
// e.g., 1234567.891 → "1,234,567.89"
func FormatNumber(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	negative := v < 0
	s := fmt.Sprintf("%.2f", math.Abs(v))
	intPart, dec, _ := strings.Cut(s, ".")

	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	b.WriteByte('.')
	b.WriteString(dec)
	return b.String()
}

// FormatCompact formats a number in compact notation.
// e.g., 21500 → "21.50K", 21500000000 → "21.50B"
func FormatCompact(v float64) string {
	a := math.Abs(v)
	sign := ""
	if v < 0 {
		sign = "-"
	}
	switch {
	case a >= 1e12:
		return fmt.Sprintf("%s%.2fT", sign, a/1e12)
	case a >= 1e9:
		return fmt.Sprintf("%s%.2fB", sign, a/1e9)
	case a >= 1e6:
		return fmt.Sprintf("%s%.2fM", sign, a/1e6)
	case a >= 1e3:
		return fmt.Sprintf("%s%.2fK", sign, a/1e3)
	default:
		return fmt.Sprintf("%s%.2f", sign, a)
	}
}
