package transform

import (
	"fmt"

	"github.com/seenimoa/crossasset/pkg/models"
)

// DenominatorNone keeps values in USD.
const DenominatorNone = "none"

// Denominate divides every column except name by denom, which must be
// aligned to t's axis. A zero or non-numeric divisor yields a missing cell.
// The column called name, if present, is left as is.
func Denominate(t *models.Table, name string, denom []models.Value) (*models.Table, error) {
	if len(denom) != t.Len() {
		return nil, fmt.Errorf("denominator %q has %d rows, table has %d", name, len(denom), t.Len())
	}
	return mapColumns(t, func(col []models.Value) []models.Value {
		for i, v := range col {
			col[i] = divide(v, denom[i])
		}
		return col
	}, name), nil
}

// DenominateBy divides by a column already in the table.
func DenominateBy(t *models.Table, name string) (*models.Table, error) {
	denom, ok := t.Column(name)
	if !ok {
		return nil, unknownColumn(name)
	}
	return Denominate(t, name, denom)
}

func divide(v, by models.Value) models.Value {
	d, ok := by.Float()
	if !ok || d == 0 {
		return models.Missing()
	}
	x, ok := v.Float()
	if !ok {
		return v
	}
	return models.Num(x / d)
}
