// Package transform holds the pure table transforms applied after
// alignment. Every function returns a new table and leaves its input
// untouched. Degenerate inputs (zero divisors, non-positive logs, short
// windows) are encoded as missing or undefined cells, never as errors.
package transform

import (
	"errors"
	"fmt"
	"strings"

	"github.com/seenimoa/crossasset/pkg/models"
)

// ErrUnknownColumn is returned when a transform names a column the table lacks.
var ErrUnknownColumn = errors.New("unknown column")

func unknownColumn(name string) error {
	return fmt.Errorf("%w: %q", ErrUnknownColumn, name)
}

// Options collects the user-facing transform settings.
type Options struct {
	// Denominator is a series name, or "", "none" or "USD" for dollars.
	Denominator string `json:"denominator,omitempty"`
	// ShiftMonths is the lead/lag in months; positive means the anchor leads.
	ShiftMonths int `json:"shift_months,omitempty"`
	// Anchor is exempt from the shift.
	Anchor string `json:"anchor,omitempty"`
	Mode   Mode   `json:"mode"`
	// Weights maps column names to non-negative portfolio weights.
	Weights map[string]float64 `json:"weights,omitempty"`
}

// HasDenominator reports whether a denominator other than USD is set.
func (s Options) HasDenominator() bool {
	switch strings.ToLower(s.Denominator) {
	case "", DenominatorNone, "usd":
		return false
	}
	return true
}

// Validate checks option ranges.
func (s Options) Validate() error {
	if _, err := ParseMode(string(s.Mode)); err != nil {
		return err
	}
	return validateWeights(s.Weights)
}

// mapColumns builds a table on t's axis, replacing every column not in
// skip with fn's output.
func mapColumns(t *models.Table, fn func(col []models.Value) []models.Value, skip ...string) *models.Table {
	out := models.NewTable(t.Dates())
	for _, name := range t.Columns() {
		col, _ := t.Column(name)
		if !contains(skip, name) {
			col = fn(col)
		}
		out.MustAddColumn(name, col)
	}
	return out
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
