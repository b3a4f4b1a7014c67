// Package report turns analysed tables into the user-facing summaries:
// the leaderboard, macro insights, easy-money regimes and the purchasing
// power calculator, plus their markdown rendering.
package report

import (
	"errors"
	"fmt"
	"sort"

	"github.com/seenimoa/crossasset/internal/transform"
	"github.com/seenimoa/crossasset/pkg/models"
)

// Status marks whether an asset outgrew the reference series.
type Status string

const (
	StatusBeat Status = "BEAT"
	StatusLost Status = "LOST"
)

// ErrNoReferenceGrowth is returned when the reference column has no
// usable start or end value.
var ErrNoReferenceGrowth = errors.New("reference series has no growth over the table")

// Standing is one leaderboard row. Returns are fractions.
type Standing struct {
	Asset       string  `json:"asset"`
	TotalReturn float64 `json:"total_return"`
	RealReturn  float64 `json:"real_return"`
	Status      Status  `json:"status"`
}

// Growth returns last/first - 1 for a column, using its first numeric
// value and its value on the final row.
func Growth(t *models.Table, name string) (float64, bool) {
	_, first, ok := t.FirstValid(name)
	if !ok || first == 0 || t.Len() == 0 {
		return 0, false
	}
	last, ok := t.At(name, t.Len()-1).Float()
	if !ok {
		return 0, false
	}
	return last/first - 1, true
}

// Leaderboard ranks assets by growth in excess of the reference column's
// growth. Assets absent from t or without a final value are skipped.
func Leaderboard(t *models.Table, ref string, assets []string) ([]Standing, error) {
	if !t.Has(ref) {
		return nil, fmt.Errorf("%w: %q", transform.ErrUnknownColumn, ref)
	}
	refGrowth, ok := Growth(t, ref)
	if !ok {
		return nil, ErrNoReferenceGrowth
	}

	var out []Standing
	for _, a := range assets {
		if a == ref || !t.Has(a) {
			continue
		}
		g, ok := Growth(t, a)
		if !ok {
			continue
		}
		s := Standing{Asset: a, TotalReturn: g, RealReturn: g - refGrowth, Status: StatusLost}
		if s.RealReturn > 0 {
			s.Status = StatusBeat
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RealReturn > out[j].RealReturn })
	return out, nil
}
