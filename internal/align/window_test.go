package align

import (
	"testing"

	"github.com/seenimoa/crossasset/pkg/models"
)

func TestParseWindow(t *testing.T) {
	tests := []struct {
		rng        string
		start, end models.Date
		wantErr    bool
	}{
		{"10y", models.Date{}, models.Date{}, false},
		{"MAX", models.Date{}, models.Date{}, false},
		{"", models.Date{}, models.Date{}, false},
		{"custom", d("2020-01-01"), d("2021-01-01"), false},
		{"custom", models.Date{}, models.Date{}, true},
		{"custom", d("2021-01-01"), d("2020-01-01"), true},
		{"3y", models.Date{}, models.Date{}, true},
	}
	for _, tt := range tests {
		_, err := ParseWindow(tt.rng, tt.start, tt.end)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseWindow(%q): err=%v, wantErr=%v", tt.rng, err, tt.wantErr)
		}
	}
}

func dailyTable(from, to models.Date) *models.Table {
	var dates []models.Date
	var vals []models.Value
	for x := from; !x.After(to); x = x.Add(1) {
		dates = append(dates, x)
		vals = append(vals, models.Num(float64(len(vals))))
	}
	t := models.NewTable(dates)
	t.MustAddColumn("X", vals)
	return t
}

func TestWindowApply(t *testing.T) {
	tbl := dailyTable(d("2018-01-01"), d("2021-01-01"))

	w, _ := ParseWindow("1y", models.Date{}, models.Date{})
	got := w.Apply(tbl)
	if got.First() != d("2020-01-02") || got.Last() != d("2021-01-01") {
		t.Errorf("1y: got %s..%s", got.First(), got.Last())
	}

	w, _ = ParseWindow("custom", d("2019-03-01"), d("2019-03-31"))
	got = w.Apply(tbl)
	if got.Len() != 31 {
		t.Errorf("custom: got %d rows, want 31 inclusive", got.Len())
	}

	w, _ = ParseWindow("max", models.Date{}, models.Date{})
	if w.Apply(tbl).Len() != tbl.Len() {
		t.Error("max should keep every row")
	}
	if tbl.Len() != 1097 {
		t.Errorf("input mutated: %d rows", tbl.Len())
	}
}

func TestWindowKeepsFillState(t *testing.T) {
	m := series(models.MacroRef("M2", "M2SL"), map[string]float64{"2019-01-01": 50})
	a := series(models.AssetRef("Gold", "GC=F"), map[string]float64{"2020-06-01": 1, "2020-06-02": 2})
	w, _ := ParseWindow("custom", d("2020-01-01"), models.Date{})
	got := w.Apply(Combine([]models.NamedSeries{m, a}))
	if got.Len() != 2 {
		t.Fatalf("rows: got %d, want 2", got.Len())
	}
	if v, _ := got.At("M2", 0).Float(); v != 50 {
		t.Errorf("fill state lost at window start: %v", got.At("M2", 0))
	}
}
