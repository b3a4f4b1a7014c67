package analytics

import (
	"errors"
	"fmt"
	"math"

	"github.com/seenimoa/crossasset/internal/transform"
	"github.com/seenimoa/crossasset/pkg/models"
)

// ScatterPoint is one monthly percent-change pair.
type ScatterPoint struct {
	Date models.Date `json:"date"`
	X    float64     `json:"x"`
	Y    float64     `json:"y"`
}

// Scatter holds the monthly pairs of two columns and their trendline.
type Scatter struct {
	X      string         `json:"x"`
	Y      string         `json:"y"`
	Points []ScatterPoint `json:"points"`
	Fit    Regression     `json:"fit"`
}

// ScatterOf pairs the month-end percent changes of x and y and fits a line
// through them.
func ScatterOf(t *models.Table, x, y string) (Scatter, error) {
	if x == y {
		return Scatter{}, ErrSameColumn
	}
	for _, name := range []string{x, y} {
		if !t.Has(name) {
			return Scatter{}, fmt.Errorf("%w: %q", transform.ErrUnknownColumn, name)
		}
	}
	monthly := ResampleMonthly(t.Select(x, y))
	xc, _ := monthly.Column(x)
	yc, _ := monthly.Column(y)
	xr := transform.PctChange(xc, 1, 100)
	yr := transform.PctChange(yc, 1, 100)

	s := Scatter{X: x, Y: y, Fit: Regress(xr, yr)}
	for i := range xr {
		a, ok1 := xr[i].Float()
		b, ok2 := yr[i].Float()
		if ok1 && ok2 {
			s.Points = append(s.Points, ScatterPoint{Date: monthly.Date(i), X: a, Y: b})
		}
	}
	return s, nil
}

// ErrTooFewFactors is returned when fewer than two factor columns are present.
var ErrTooFewFactors = errors.New("sensitivity needs at least two factor columns")

// Exposure is the strength of an asset's link to each factor.
type Exposure struct {
	Asset   string         `json:"asset"`
	Factors []string       `json:"factors"`
	Values  []models.Value `json:"values"`
}

// Sensitivity computes |correlation| between the daily percent changes of
// each asset and each factor column present in t. Factors missing from
// the table are skipped.
func Sensitivity(t *models.Table, assets, factors []string) ([]Exposure, error) {
	var present []string
	for _, f := range factors {
		if t.Has(f) {
			present = append(present, f)
		}
	}
	if len(present) < 2 {
		return nil, ErrTooFewFactors
	}

	returns := Returns(t)
	var out []Exposure
	for _, a := range assets {
		ac, ok := returns.Column(a)
		if !ok {
			continue
		}
		e := Exposure{Asset: a, Factors: present, Values: make([]models.Value, len(present))}
		for i, f := range present {
			fc, _ := returns.Column(f)
			c, _ := Pearson(ac, fc)
			if r, ok := c.Float(); ok {
				c = models.Num(math.Abs(r))
			}
			e.Values[i] = c
		}
		out = append(out, e)
	}
	return out, nil
}
