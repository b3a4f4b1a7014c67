package report

import (
	"errors"
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/seenimoa/crossasset/pkg/models"
)

// DefaultCurrency is the unit of the cash amount.
const DefaultCurrency = money.USD

// ErrNoPowerData is returned when no column has a value on the base date.
var ErrNoPowerData = errors.New("no asset data available for the comparison date")

// Holding is the purchasing power of the cash amount measured in one column.
type Holding struct {
	Asset      string          `json:"asset"`
	StartPrice float64         `json:"start_price"`
	EndPrice   float64         `json:"end_price"`
	Factor     decimal.Decimal `json:"factor"`
	Value      decimal.Decimal `json:"value"`
	Change     decimal.Decimal `json:"change"`
}

// PowerReport answers how much a cash amount held since Base buys today.
type PowerReport struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Base     models.Date     `json:"base"`
	End      models.Date     `json:"end"`
	Holdings []Holding       `json:"holdings"`
}

// PurchasingPower uses the table row nearest to base as the start. For each
// column, factor = end/start, today's value = amount/factor and the change
// in purchasing power = 1/factor - 1. Columns without a numeric start or
// end price, or with a zero price, are skipped.
func PurchasingPower(t *models.Table, amount decimal.Decimal, base models.Date, currency string) (PowerReport, error) {
	if currency == "" {
		currency = DefaultCurrency
	}
	if money.GetCurrency(currency) == nil {
		return PowerReport{}, fmt.Errorf("unknown currency %q", currency)
	}
	if amount.IsNegative() {
		return PowerReport{}, fmt.Errorf("amount must not be negative, got %s", amount)
	}
	if t.Len() == 0 {
		return PowerReport{}, ErrNoPowerData
	}

	idx := t.Nearest(base)
	last := t.Len() - 1
	r := PowerReport{Amount: amount, Currency: currency, Base: t.Date(idx), End: t.Date(last)}
	one := decimal.NewFromInt(1)
	for _, name := range t.Columns() {
		start, ok1 := t.At(name, idx).Float()
		end, ok2 := t.At(name, last).Float()
		if !ok1 || !ok2 || start == 0 || end == 0 {
			continue
		}
		factor := decimal.NewFromFloat(end).Div(decimal.NewFromFloat(start))
		r.Holdings = append(r.Holdings, Holding{
			Asset:      name,
			StartPrice: start,
			EndPrice:   end,
			Factor:     factor,
			Value:      amount.Div(factor).Round(2),
			Change:     one.Div(factor).Sub(one),
		})
	}
	if len(r.Holdings) == 0 {
		return r, ErrNoPowerData
	}
	return r, nil
}

// FormatMoney renders an amount in a currency, e.g. "$1,234.56".
func FormatMoney(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return amount.StringFixed(2) + " " + currency
	}
	factor, _ := decimal.NewFromInt(10).PowInt32(int32(cur.Fraction))
	return money.New(amount.Mul(factor).Round(0).IntPart(), currency).Display()
}
