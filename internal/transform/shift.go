package transform

import (
	"github.com/seenimoa/crossasset/pkg/models"
)

// DaysPerMonth is the fixed month length used by Shift.
const DaysPerMonth = 30

// Shift moves every column except anchor by months*30 calendar days.
//
// With a positive shift the anchor leads: the value shown for another
// column at date D is the one it had at D+months*30, pulling later asset
// moves back onto the anchor's dates. Targets that fall outside the table
// become missing, and rows left with no numeric cell are dropped.
func Shift(t *models.Table, anchor string, months int) (*models.Table, error) {
	if anchor != "" && !t.Has(anchor) {
		return nil, unknownColumn(anchor)
	}
	if months == 0 || t.Len() == 0 {
		return t.Clone(), nil
	}

	days := months * DaysPerMonth
	first, last := t.First(), t.Last()
	src := make([]int, t.Len())
	for i := range src {
		target := t.Date(i).Add(days)
		if target.Before(first) || target.After(last) {
			src[i] = -1
			continue
		}
		src[i] = t.Floor(target)
	}

	shifted := mapColumns(t, func(col []models.Value) []models.Value {
		out := make([]models.Value, len(col))
		for i, j := range src {
			if j >= 0 {
				out[i] = col[j]
			}
		}
		return out
	}, anchor)
	return shifted.DropEmptyRows(), nil
}
