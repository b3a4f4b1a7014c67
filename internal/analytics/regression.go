package analytics

import (
	"math"

	"github.com/seenimoa/crossasset/pkg/models"
)

// Regression is an ordinary least squares fit of y on x.
type Regression struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	RSquared  float64 `json:"r_squared"`
	N         int     `json:"n"`
}

// Regress fits y = slope*x + intercept over the numeric pairs of x and y.
// With fewer than two pairs, or no variation in x, it returns a zero
// result carrying the pair count.
func Regress(x, y []models.Value) Regression {
	xs, ys := pairs(x, y)
	n := len(xs)
	if n < 2 {
		return Regression{N: n}
	}
	mx, my := mean(xs), mean(ys)
	var sxy, sxx, syy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 {
		return Regression{N: n}
	}
	slope := sxy / sxx
	r := Regression{Slope: slope, Intercept: my - slope*mx, N: n}
	if syy > 0 {
		r.RSquared = math.Max(0, math.Min(1, sxy*sxy/(sxx*syy)))
	}
	return r
}

// Beta regresses the daily percent changes of y on those of x.
func Beta(t *models.Table, x, y string) (Regression, error) {
	xr, yr, err := returnPair(t, x, y)
	if err != nil {
		return Regression{}, err
	}
	return Regress(xr, yr), nil
}
