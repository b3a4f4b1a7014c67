package transform

import (
	"fmt"
	"math"
	"strings"

	"github.com/seenimoa/crossasset/pkg/models"
)

// Mode selects a normalization.
type Mode string

const (
	ModeRaw       Mode = "raw"
	ModeIndex100  Mode = "index100"
	ModePctChange Mode = "pct_change"
	ModeLog       Mode = "log"
)

// Modes lists the supported modes.
func Modes() []Mode { return []Mode{ModeRaw, ModeIndex100, ModePctChange, ModeLog} }

// ParseMode accepts a mode name or one of its display labels.
// An empty string means index100.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "index100", "index=100", "index":
		return ModeIndex100, nil
	case "raw", "raw data":
		return ModeRaw, nil
	case "pct_change", "pct", "% change", "percent":
		return ModePctChange, nil
	case "log", "log scale":
		return ModeLog, nil
	}
	return "", fmt.Errorf("unknown normalization mode %q", s)
}

// Normalize applies mode to each column independently.
func Normalize(t *models.Table, mode Mode) (*models.Table, error) {
	m, err := ParseMode(string(mode))
	if err != nil {
		return nil, err
	}
	switch m {
	case ModeIndex100:
		return mapColumns(t, Index100), nil
	case ModePctChange:
		return mapColumns(t, func(col []models.Value) []models.Value { return PctChange(col, 1, 100) }), nil
	case ModeLog:
		return mapColumns(t, Log), nil
	}
	return t.Clone(), nil
}

// Index100 rescales col so its first numeric value is 100. A column with
// no numeric value, or whose first value is zero, becomes all missing.
func Index100(col []models.Value) []models.Value {
	out := make([]models.Value, len(col))
	base, ok := firstNumber(col)
	if !ok || base == 0 {
		return out
	}
	for i, v := range col {
		if x, ok := v.Float(); ok {
			out[i] = models.Num(x / base * 100)
		} else {
			out[i] = v
		}
	}
	return out
}

// PctChange returns (x[i]/x[i-periods] - 1) * scale. The first periods
// rows are missing, as is any row whose pair is not numeric. A zero base
// gives an undefined cell.
func PctChange(col []models.Value, periods int, scale float64) []models.Value {
	out := make([]models.Value, len(col))
	if periods < 1 {
		periods = 1
	}
	for i := periods; i < len(col); i++ {
		cur, ok1 := col[i].Float()
		prev, ok2 := col[i-periods].Float()
		switch {
		case !ok1 || !ok2:
		case prev == 0:
			out[i] = models.Undefined()
		default:
			out[i] = models.Num((cur/prev - 1) * scale)
		}
	}
	return out
}

// Log takes the natural logarithm. Non-positive values are undefined.
func Log(col []models.Value) []models.Value {
	out := make([]models.Value, len(col))
	for i, v := range col {
		x, ok := v.Float()
		switch {
		case !ok:
			out[i] = v
		case x <= 0:
			out[i] = models.Undefined()
		default:
			out[i] = models.Num(math.Log(x))
		}
	}
	return out
}

func firstNumber(col []models.Value) (float64, bool) {
	for _, v := range col {
		if x, ok := v.Float(); ok {
			return x, true
		}
	}
	return 0, false
}
