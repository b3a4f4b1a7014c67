package report

import (
	"github.com/seenimoa/crossasset/internal/transform"
	"github.com/seenimoa/crossasset/pkg/models"
)

const (
	// YearObservations approximates one year of daily rows.
	YearObservations = 252
	// EasyMoneyThreshold is the yearly money supply growth above which
	// a period counts as easy money.
	EasyMoneyThreshold = 0.05
	// TighteningThreshold splits the current reading into easy money
	// and tightening.
	TighteningThreshold = 0.02
)

// Regime is a contiguous span of easy money, inclusive on both ends.
type Regime struct {
	Start models.Date `json:"start"`
	End   models.Date `json:"end"`
}

// GrowthPeriods is the lag used for yearly growth: 252 rows, or a tenth
// of the column for shorter tables.
func GrowthPeriods(n int) int {
	if n > YearObservations {
		return YearObservations
	}
	return max(1, n/10)
}

// EasyMoneyRegimes finds the spans where the column grew more than 5%
// over GrowthPeriods rows.
func EasyMoneyRegimes(t *models.Table, name string) []Regime {
	col, ok := t.Column(name)
	if !ok {
		return nil
	}
	growth := transform.PctChange(col, GrowthPeriods(len(col)), 1)

	var out []Regime
	open := false
	for i, g := range growth {
		x, ok := g.Float()
		easy := ok && x > EasyMoneyThreshold
		switch {
		case easy && !open:
			out = append(out, Regime{Start: t.Date(i), End: t.Date(i)})
			open = true
		case easy:
			out[len(out)-1].End = t.Date(i)
		default:
			open = false
		}
	}
	return out
}
