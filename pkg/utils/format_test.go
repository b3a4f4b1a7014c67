package utils

import (
	"math"
	"testing"
)

func TestFormatPct(t *testing.T) {
	tests := []struct {
		input    float64
		expected string
	}{
		{2.45, "+2.45%"},
		{-1.23, "-1.23%"},
		{0.0, "+0.00%"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			result := FormatPct(tt.input)
			if result != tt.expected {
				t.Errorf("FormatPct(%f) = %s, want %s", tt.input, result, tt.expected)
			}
		})
	}
}

func TestFormatRatio(t *testing.T) {
	if got := FormatRatio(0.153); got != "+15.3%" {
		t.Errorf("FormatRatio(0.153) = %s", got)
	}
	if got := FormatRatio(-0.5); got != "-50.0%" {
		t.Errorf("FormatRatio(-0.5) = %s", got)
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		input    float64
		expected string
	}{
		{0, "0.00"},
		{999.5, "999.50"},
		{1000, "1,000.00"},
		{1234567.891, "1,234,567.89"},
		{-98765.4, "-98,765.40"},
		{math.NaN(), "n/a"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := FormatNumber(tt.input); got != tt.expected {
				t.Errorf("FormatNumber(%f) = %s, want %s", tt.input, got, tt.expected)
			}
		})
	}
}

func TestFormatCompact(t *testing.T) {
	tests := []struct {
		input    float64
		expected string
	}{
		{500, "500.00"},
		{21500, "21.50K"},
		{2150000, "2.15M"},
		{21500000000, "21.50B"},
		{-3e12, "-3.00T"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := FormatCompact(tt.input); got != tt.expected {
				t.Errorf("FormatCompact(%f) = %s, want %s", tt.input, got, tt.expected)
			}
		})
	}
}
