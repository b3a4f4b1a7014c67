package pipeline

import (
	"context"
	"fmt"

	"github.com/seenimoa/crossasset/internal/align"
	"github.com/seenimoa/crossasset/internal/analytics"
	"github.com/seenimoa/crossasset/internal/catalog"
	"github.com/seenimoa/crossasset/internal/report"
	"github.com/seenimoa/crossasset/internal/transform"
	"github.com/seenimoa/crossasset/pkg/models"
)

// Overlay returns the moving average and Bollinger bands of each asset
// column of the shifted table.
func (r *Result) Overlay(window int) (*models.Table, error) {
	if window <= 0 {
		window = transform.DefaultIndicatorWindow
	}
	return transform.Indicators(r.Shifted, window, r.Assets...)
}

// Correlation is the monthly correlation matrix of the shifted table.
func (r *Result) Correlation() analytics.Matrix {
	return analytics.CorrelationMatrix(r.Shifted)
}

// Rolling correlates x and y over a trailing window on the shifted table.
// Empty names default to the anchor and the first asset.
func (r *Result) Rolling(x, y string, window int) ([]models.Value, error) {
	x, y = r.Pair(x, y)
	if window <= 0 {
		window = analytics.DefaultRollingWindow
	}
	return analytics.RollingCorrelation(r.Shifted, x, y, window)
}

// Scatter pairs the monthly changes of x and y on the shifted table.
func (r *Result) Scatter(x, y string) (analytics.Scatter, error) {
	x, y = r.Pair(x, y)
	return analytics.ScatterOf(r.Shifted, x, y)
}

// Sensitivity measures each asset against the catalog's factor columns.
func (r *Result) Sensitivity(factors []string) ([]analytics.Exposure, error) {
	return analytics.Sensitivity(r.Combined, r.Assets, factors)
}

// Leaderboard ranks assets against the first reference series.
func (r *Result) Leaderboard() ([]report.Standing, error) {
	if len(r.References) == 0 {
		return nil, nil
	}
	return report.Leaderboard(r.Combined, r.References[0], r.Assets)
}

// Pair fills empty column names: x defaults to the anchor and y to the
// first asset other than x.
func (r *Result) Pair(x, y string) (string, string) {
	if x == "" {
		x = r.Anchor
	}
	if y == "" {
		for _, a := range r.Assets {
			if a != x {
				y = a
				break
			}
		}
	}
	return x, y
}

// MoneySupply returns the money supply column over the result's dates,
// fetching it when the comparison did not include it.
func (r *Runner) MoneySupply(ctx context.Context, res *Result) (*models.Table, error) {
	name := r.catalog.MoneySupply
	if name == "" {
		return nil, fmt.Errorf("catalog defines no money supply series")
	}
	if res.Combined.Has(name) {
		return res.Combined.Select(name), nil
	}
	ref, err := r.catalog.Resolve(name)
	if err != nil {
		return nil, err
	}
	s, err := r.fetchOne(ctx, ref)
	if err != nil {
		return nil, err
	}
	return align.Combine([]models.NamedSeries{s}).Between(res.Combined.First(), res.Combined.Last()), nil
}

// Events returns the catalog events plus any feed events inside the
// result's date range.
func (r *Runner) Events(ctx context.Context, res *Result) []catalog.Event {
	return r.EventsBetween(ctx, res.Combined.First(), res.Combined.Last())
}

// EventsBetween returns catalog and feed events inside [from, to]. Zero
// bounds are open. A failing feed is logged and skipped.
func (r *Runner) EventsBetween(ctx context.Context, from, to models.Date) []catalog.Event {
	events := r.catalog.EventsBetween(from, to)
	extra, err := r.events.Events(ctx)
	if err != nil {
		r.log.Warn().Err(err).Msg("event feed unavailable")
		return events
	}
	return append(events, catalog.FilterEvents(extra, from, to)...)
}

// Summarize builds the leaderboard, insights, regimes and events for a result.
func (r *Runner) Summarize(ctx context.Context, res *Result) report.Summary {
	s := report.Summary{
		Title:    "Cross-Asset Summary",
		Period:   fmt.Sprintf("%s to %s", res.Combined.First(), res.Combined.Last()),
		Warnings: res.WarningMessages(),
	}
	if res.Request.Story != "" {
		s.Title = res.Request.Story
	}
	if len(res.References) > 0 {
		s.Reference = res.References[0]
		board, err := res.Leaderboard()
		if err != nil {
			s.Warnings = append(s.Warnings, "leaderboard: "+err.Error())
		}
		s.Leaderboard = board
	}

	var ref, asset string
	if len(res.References) > 0 {
		ref = res.References[0]
	}
	if len(res.Assets) > 0 {
		asset = res.Assets[0]
	}
	s.Insights = report.BuildInsights(res.Combined, res.Shifted, ref, asset, r.catalog.MoneySupply)

	if m2, err := r.MoneySupply(ctx, res); err != nil {
		r.log.Warn().Err(err).Msg("money supply unavailable for regimes")
	} else {
		s.Regimes = report.EasyMoneyRegimes(m2, r.catalog.MoneySupply)
	}
	s.Events = r.Events(ctx, res)
	return s
}
