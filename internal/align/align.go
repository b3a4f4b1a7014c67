// Package align merges fetched series onto one shared daily axis.
package align

import (
	"slices"

	"github.com/seenimoa/crossasset/pkg/models"
)

// Combine outer-joins the series onto the sorted union of their dates and
// forward-fills each column independently. Rows where every column is
// still missing are dropped. Series without any numeric observation are
// skipped. The result has one column per distinct series name, in input
// order.
func Combine(series []models.NamedSeries) *models.Table {
	var used []models.NamedSeries
	seen := make(map[string]bool, len(series))
	for _, s := range series {
		if s.Empty() || seen[s.Name] {
			continue
		}
		seen[s.Name] = true
		used = append(used, s)
	}
	if len(used) == 0 {
		return models.NewTable(nil)
	}

	t := models.NewTable(unionDates(used))
	for _, s := range used {
		t.MustAddColumn(s.Name, fill(s, t.Dates()))
	}
	return t.DropEmptyRows()
}

// Reindex places s onto dates using the latest numeric observation at or
// before each date.
func Reindex(s models.NamedSeries, dates []models.Date) []models.Value {
	return fill(s, dates)
}

// fill walks the sorted axis and the sorted points together.
func fill(s models.NamedSeries, dates []models.Date) []models.Value {
	out := make([]models.Value, len(dates))
	last := models.Missing()
	j := 0
	for i, d := range dates {
		for j < len(s.Points) && !s.Points[j].Date.After(d) {
			if s.Points[j].Value.IsNumber() {
				last = s.Points[j].Value
			}
			j++
		}
		out[i] = last
	}
	return out
}

func unionDates(series []models.NamedSeries) []models.Date {
	n := 0
	for _, s := range series {
		n += s.Len()
	}
	dates := make([]models.Date, 0, n)
	for _, s := range series {
		dates = append(dates, s.Dates()...)
	}
	slices.SortFunc(dates, models.Date.Compare)
	return slices.Compact(dates)
}
