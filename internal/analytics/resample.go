// Package analytics computes correlation and regression statistics over
// aligned tables. All statistics work on percent changes, pairing rows
// and dropping any pair with a non-numeric side.
package analytics

import (
	"github.com/seenimoa/crossasset/internal/transform"
	"github.com/seenimoa/crossasset/pkg/models"
)

// ResampleMonthly keeps one row per calendar month, dated at month end,
// holding each column's last numeric value within that month.
func ResampleMonthly(t *models.Table) *models.Table {
	var months []models.Date
	var bounds [][2]int // row span per month
	for i := 0; i < t.Len(); i++ {
		d := t.Date(i)
		if n := len(months); n > 0 && months[n-1].SameMonth(d) {
			bounds[n-1][1] = i + 1
			continue
		}
		months = append(months, d.MonthEnd())
		bounds = append(bounds, [2]int{i, i + 1})
	}

	out := models.NewTable(months)
	for _, name := range t.Columns() {
		col, _ := t.Column(name)
		vals := make([]models.Value, len(months))
		for m, b := range bounds {
			for i := b[1] - 1; i >= b[0]; i-- {
				if col[i].IsNumber() {
					vals[m] = col[i]
					break
				}
			}
		}
		out.MustAddColumn(name, vals)
	}
	return out
}

// Returns converts every column to fractional period-over-period changes.
func Returns(t *models.Table) *models.Table {
	out := models.NewTable(t.Dates())
	for _, name := range t.Columns() {
		col, _ := t.Column(name)
		out.MustAddColumn(name, transform.PctChange(col, 1, 1))
	}
	return out
}
