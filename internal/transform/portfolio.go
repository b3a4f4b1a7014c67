package transform

import (
	"fmt"
	"math"
	"slices"

	"github.com/seenimoa/crossasset/pkg/models"
)

// PortfolioColumn names the derived portfolio column.
const PortfolioColumn = "Custom Portfolio"

func validateWeights(weights map[string]float64) error {
	for name, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("weight for %q must be a non-negative number, got %v", name, w)
		}
	}
	return nil
}

// Portfolio blends the weighted columns into one index. Each included
// column is rebased to 100 at its first numeric value in t, scaled by
// weight/total and summed. Weights for columns absent from t are ignored.
// When the total weight is zero the result is all zeros. A date on which
// any included column is not numeric is missing.
func Portfolio(t *models.Table, weights map[string]float64) ([]models.Value, error) {
	if err := validateWeights(weights); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(weights))
	total := 0.0
	for name, w := range weights {
		if t.Has(name) {
			names = append(names, name)
			total += w
		}
	}
	slices.Sort(names)

	out := make([]models.Value, t.Len())
	if total == 0 {
		for i := range out {
			out[i] = models.Num(0)
		}
		return out, nil
	}

	sum := make([]float64, t.Len())
	valid := make([]bool, t.Len())
	for i := range valid {
		valid[i] = true
	}
	for _, name := range names {
		w := weights[name]
		_, base, ok := t.FirstValid(name)
		if !ok || base == 0 || w == 0 {
			continue
		}
		col, _ := t.Column(name)
		for i, v := range col {
			x, ok := v.Float()
			if !ok {
				valid[i] = false
				continue
			}
			sum[i] += x / base * 100 * (w / total)
		}
	}
	for i := range out {
		if valid[i] {
			out[i] = models.Num(sum[i])
		}
	}
	return out, nil
}

// AddPortfolio returns a copy of t with the portfolio appended as
// PortfolioColumn. A nil or empty weights map leaves t unchanged.
func AddPortfolio(t *models.Table, weights map[string]float64) (*models.Table, error) {
	out := t.Clone()
	if len(weights) == 0 {
		return out, nil
	}
	vals, err := Portfolio(t, weights)
	if err != nil {
		return nil, err
	}
	if err := out.AddColumn(PortfolioColumn, vals); err != nil {
		return nil, err
	}
	return out, nil
}
