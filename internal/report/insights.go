package report

import (
	"fmt"
	"math"

	"github.com/seenimoa/crossasset/internal/analytics"
	"github.com/seenimoa/crossasset/internal/transform"
	"github.com/seenimoa/crossasset/pkg/models"
)

// Regime labels for the current money supply reading.
const (
	RegimeEasyMoney  = "Easy Money"
	RegimeTightening = "Tightening"
)

// Insights summarises how the first asset relates to the first reference
// series. Nil fields could not be computed.
type Insights struct {
	Reference   string                `json:"reference"`
	Asset       string                `json:"asset"`
	Correlation *float64              `json:"correlation,omitempty"`
	Beta        *analytics.Regression `json:"beta,omitempty"`
	MoneyGrowth *float64              `json:"money_growth,omitempty"`
	Regime      string                `json:"regime,omitempty"`
}

// BuildInsights reads correlation and beta from the shifted table and the
// current yearly money supply growth from the unshifted one.
func BuildInsights(combined, shifted *models.Table, ref, asset, moneySupply string) Insights {
	in := Insights{Reference: ref, Asset: asset}
	if ref != "" && asset != "" && ref != asset && shifted.Has(ref) && shifted.Has(asset) {
		m := analytics.CorrelationMatrix(shifted.Select(ref, asset))
		if c, ok := m.At(ref, asset).Float(); ok {
			in.Correlation = &c
		}
		if b, err := analytics.Beta(shifted, ref, asset); err == nil && b.N >= 2 {
			in.Beta = &b
		}
	}
	if g, ok := CurrentMoneyGrowth(combined, moneySupply); ok {
		in.MoneyGrowth = &g
		in.Regime = RegimeTightening
		if g > TighteningThreshold {
			in.Regime = RegimeEasyMoney
		}
	}
	return in
}

// CurrentMoneyGrowth is the 252-row growth of the column at the last row.
func CurrentMoneyGrowth(t *models.Table, name string) (float64, bool) {
	col, ok := t.Column(name)
	if !ok || len(col) <= YearObservations {
		return 0, false
	}
	growth := transform.PctChange(col, YearObservations, 1)
	return growth[len(growth)-1].Float()
}

// Lines renders the insights as markdown bullet text.
func (in Insights) Lines() []string {
	var out []string
	if in.Correlation != nil {
		dir := "negative"
		if *in.Correlation > 0 {
			dir = "positive"
		}
		out = append(out, fmt.Sprintf("**Correlation**: %s has a **%.0f%%** %s link with %s.",
			in.Asset, math.Abs(*in.Correlation)*100, dir, in.Reference))
	}
	if in.Beta != nil {
		out = append(out, fmt.Sprintf("**Sensitivity**: For every 1%% move in %s, %s historically moves **%.2f%%** (R² %.2f).",
			in.Reference, in.Asset, in.Beta.Slope, in.Beta.RSquared))
	}
	if in.MoneyGrowth != nil {
		switch in.Regime {
		case RegimeEasyMoney:
			out = append(out, fmt.Sprintf("**Regime**: Current M2 growth is **%.1f%%**. We are in an **'Easy Money'** environment where hard assets typically thrive.", *in.MoneyGrowth*100))
		default:
			out = append(out, fmt.Sprintf("**Regime**: Current M2 growth is **%.1f%%**. The macro environment is **'Tightening'**, which often pressures risk assets.", *in.MoneyGrowth*100))
		}
	}
	return out
}
