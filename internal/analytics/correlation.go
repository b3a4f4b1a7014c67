package analytics

import (
	"errors"
	"fmt"
	"math"

	"github.com/seenimoa/crossasset/internal/transform"
	"github.com/seenimoa/crossasset/pkg/models"
)

// DefaultRollingWindow is the rolling correlation length in observations.
const DefaultRollingWindow = 180

// ErrSameColumn is returned when both sides of a pairwise statistic are the same column.
var ErrSameColumn = errors.New("x and y must be different columns")

// Pearson returns the correlation of the numeric pairs of x and y and the
// number of pairs used. Fewer than two pairs, or a constant side, gives an
// undefined result.
func Pearson(x, y []models.Value) (models.Value, int) {
	xs, ys := pairs(x, y)
	n := len(xs)
	if n < 2 {
		return models.Undefined(), n
	}
	mx, my := mean(xs), mean(ys)
	var sxy, sxx, syy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return models.Undefined(), n
	}
	r := sxy / math.Sqrt(sxx*syy)
	return models.Num(math.Max(-1, math.Min(1, r))), n
}

// Matrix is a symmetric correlation matrix.
type Matrix struct {
	Columns []string         `json:"columns"`
	Values  [][]models.Value `json:"values"`
}

// At returns the correlation between two columns.
func (m Matrix) At(a, b string) models.Value {
	i, j := m.index(a), m.index(b)
	if i < 0 || j < 0 {
		return models.Missing()
	}
	return m.Values[i][j]
}

func (m Matrix) index(name string) int {
	for i, c := range m.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// CorrelationMatrix resamples t to month ends and correlates the monthly
// percent changes of every column pair.
func CorrelationMatrix(t *models.Table) Matrix {
	r := Returns(ResampleMonthly(t))
	names := r.Columns()
	cols := make([][]models.Value, len(names))
	for i, n := range names {
		cols[i], _ = r.Column(n)
	}

	m := Matrix{Columns: names, Values: make([][]models.Value, len(names))}
	for i := range names {
		m.Values[i] = make([]models.Value, len(names))
	}
	for i := range names {
		for j := i; j < len(names); j++ {
			c, _ := Pearson(cols[i], cols[j])
			m.Values[i][j] = c
			m.Values[j][i] = c
		}
	}
	return m
}

// RollingCorrelation correlates the daily percent changes of x and y over
// a trailing window of observations. A point is defined only when every
// pair in its window is numeric, so at least the first window-1 points
// are missing.
func RollingCorrelation(t *models.Table, x, y string, window int) ([]models.Value, error) {
	if window < 2 {
		return nil, fmt.Errorf("rolling window must be at least 2, got %d", window)
	}
	xr, yr, err := returnPair(t, x, y)
	if err != nil {
		return nil, err
	}

	out := make([]models.Value, t.Len())
	run := 0
	for i := range out {
		if !xr[i].IsNumber() || !yr[i].IsNumber() {
			run = 0
			continue
		}
		run++
		if run < window {
			continue
		}
		out[i], _ = Pearson(xr[i-window+1:i+1], yr[i-window+1:i+1])
	}
	return out, nil
}

// returnPair validates two columns and returns their daily fractional changes.
func returnPair(t *models.Table, x, y string) ([]models.Value, []models.Value, error) {
	if x == y {
		return nil, nil, ErrSameColumn
	}
	xc, ok := t.Column(x)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", transform.ErrUnknownColumn, x)
	}
	yc, ok := t.Column(y)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", transform.ErrUnknownColumn, y)
	}
	return transform.PctChange(xc, 1, 1), transform.PctChange(yc, 1, 1), nil
}

func pairs(x, y []models.Value) ([]float64, []float64) {
	n := min(len(x), len(y))
	xs := make([]float64, 0, n)
	ys := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		a, ok1 := x[i].Float()
		b, ok2 := y[i].Float()
		if ok1 && ok2 {
			xs = append(xs, a)
			ys = append(ys, b)
		}
	}
	return xs, ys
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
