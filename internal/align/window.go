package align

import (
	"fmt"
	"strings"

	"github.com/seenimoa/crossasset/pkg/models"
)

// Window is a slice of the aligned history. Relative windows count back
// from the last date of the table; custom windows are inclusive on both ends.
type Window struct {
	Range string      `json:"range"`
	Start models.Date `json:"start,omitzero"`
	End   models.Date `json:"end,omitzero"`
}

// Supported range names.
const (
	RangeMax    = "max"
	RangeCustom = "custom"
)

var lookbackYears = map[string]int{"1y": 1, "5y": 5, "10y": 10, "20y": 20}

// Ranges lists the accepted range names.
func Ranges() []string { return []string{"1y", "5y", "10y", "20y", RangeMax, RangeCustom} }

// ParseWindow validates a range name and, for custom ranges, its bounds.
func ParseWindow(rng string, start, end models.Date) (Window, error) {
	rng = strings.ToLower(strings.TrimSpace(rng))
	if rng == "" {
		rng = RangeMax
	}
	switch {
	case rng == RangeMax:
		return Window{Range: rng}, nil
	case rng == RangeCustom:
		if start.IsZero() && end.IsZero() {
			return Window{}, fmt.Errorf("custom range needs a start or end date")
		}
		if !start.IsZero() && !end.IsZero() && end.Before(start) {
			return Window{}, fmt.Errorf("custom range end %s before start %s", end, start)
		}
		return Window{Range: rng, Start: start, End: end}, nil
	}
	if _, ok := lookbackYears[rng]; ok {
		return Window{Range: rng}, nil
	}
	return Window{}, fmt.Errorf("unknown range %q (want one of %s)", rng, strings.Join(Ranges(), ", "))
}

// Bounds resolves the window against a table whose last date is last.
// Zero values leave a side open.
func (w Window) Bounds(last models.Date) (from, to models.Date) {
	if n, ok := lookbackYears[w.Range]; ok {
		return last.Add(-n * 365), models.Date{}
	}
	if w.Range == RangeCustom {
		return w.Start, w.End
	}
	return models.Date{}, models.Date{}
}

// Apply slices t to the window. t should already be aligned over full
// history so fill state entering the window is correct.
func (w Window) Apply(t *models.Table) *models.Table {
	if t.Len() == 0 {
		return t.Clone()
	}
	from, to := w.Bounds(t.Last())
	return t.Between(from, to)
}

func (w Window) String() string {
	if w.Range != RangeCustom {
		return w.Range
	}
	return fmt.Sprintf("%s..%s", w.Start, w.End)
}
