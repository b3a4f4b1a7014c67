package transform

import (
	"fmt"
	"math"

	"github.com/seenimoa/crossasset/pkg/models"
)

// DefaultIndicatorWindow is the moving-average length in observations.
const DefaultIndicatorWindow = 200

// Band holds a moving average and its Bollinger envelope.
type Band struct {
	SMA   []models.Value
	Upper []models.Value
	Lower []models.Value
}

// Bollinger computes the simple moving average over window observations
// and bands at mean ± 2 sample standard deviations. A point is defined
// only when all window observations ending at it are numeric.
func Bollinger(col []models.Value, window int) Band {
	n := len(col)
	b := Band{
		SMA:   make([]models.Value, n),
		Upper: make([]models.Value, n),
		Lower: make([]models.Value, n),
	}
	if window < 2 {
		return b
	}

	run := 0 // consecutive numeric observations ending at i
	for i := 0; i < n; i++ {
		if !col[i].IsNumber() {
			run = 0
			continue
		}
		run++
		if run < window {
			continue
		}
		win := models.Numbers(col[i-window+1 : i+1])
		mean := avg(win)
		sd := stddev(win, mean)
		b.SMA[i] = models.Num(mean)
		b.Upper[i] = models.Num(mean + 2*sd)
		b.Lower[i] = models.Num(mean - 2*sd)
	}
	return b
}

// SMAColumn names the moving-average column derived from name.
func SMAColumn(name string, window int) string { return fmt.Sprintf("%s_SMA_%d", name, window) }

// UpperColumn and LowerColumn name the band columns derived from name.
func UpperColumn(name string) string { return name + "_BB_Upper" }
func LowerColumn(name string) string { return name + "_BB_Lower" }

// Indicators computes the moving average and bands for each named column
// (all columns when none are given) and returns them as a new table on
// t's axis.
func Indicators(t *models.Table, window int, names ...string) (*models.Table, error) {
	if window < 2 {
		return nil, fmt.Errorf("indicator window must be at least 2, got %d", window)
	}
	if len(names) == 0 {
		names = t.Columns()
	}
	out := models.NewTable(t.Dates())
	for _, name := range names {
		col, ok := t.Column(name)
		if !ok {
			return nil, unknownColumn(name)
		}
		b := Bollinger(col, window)
		out.MustAddColumn(SMAColumn(name, window), b.SMA)
		out.MustAddColumn(UpperColumn(name), b.Upper)
		out.MustAddColumn(LowerColumn(name), b.Lower)
	}
	return out, nil
}

func avg(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stddev is the sample standard deviation.
func stddev(xs []float64, mean float64) float64 {
	ss := 0.0
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}
