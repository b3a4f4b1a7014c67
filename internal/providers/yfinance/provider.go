// Package yfinance implements the asset price source backed by the Yahoo
// Finance v8 chart endpoint. Only daily closing prices are used.
package yfinance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/seenimoa/crossasset/internal/infra"
	"github.com/seenimoa/crossasset/internal/provider"
	"github.com/seenimoa/crossasset/pkg/models"
)

const (
	providerName = "yfinance"
	// DefaultBaseURL is the chart API host.
	DefaultBaseURL = "https://query1.finance.yahoo.com"
)

// Source fetches daily closes from Yahoo Finance.
type Source struct {
	provider.BaseSource
	baseURL string
}

// Option configures a Source.
type Option func(*Source)

// WithBaseURL points the source at another host, e.g. an httptest server.
func WithBaseURL(u string) Option {
	return func(s *Source) {
		if u != "" {
			s.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// New creates a Yahoo Finance source.
func New(client *infra.HTTPClient, limiter *infra.RateLimiter, opts ...Option) *Source {
	s := &Source{
		BaseSource: provider.NewBaseSource(provider.Info{
			Name:        providerName,
			Description: "Yahoo Finance - daily prices for indices, commodities, FX and crypto",
			Website:     "https://finance.yahoo.com",
			Kind:        models.Asset,
		}, client, limiter),
		baseURL: DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch downloads daily history for ref.Code and returns the closing prices.
func (s *Source) Fetch(ctx context.Context, ref models.Ref, rng provider.Range) (models.NamedSeries, error) {
	if err := s.CheckRef(ref); err != nil {
		return models.NamedSeries{}, err
	}
	if err := s.RateLimit(ctx); err != nil {
		return models.NamedSeries{}, err
	}

	body, _, err := s.Client().DoGet(ctx, s.chartURL(ref.Code, rng), map[string]string{"Accept": "application/json"})
	if err != nil {
		return models.NamedSeries{}, fmt.Errorf("yfinance chart %s: %w", ref.Code, err)
	}
	defer body.Close()

	points, err := decodeChart(body, ref.Code)
	if err != nil {
		return models.NamedSeries{}, fmt.Errorf("yfinance chart %s: %w", ref.Code, err)
	}
	kept := points[:0]
	for _, p := range points {
		if rng.Contains(p.Date) {
			kept = append(kept, p)
		}
	}
	series := models.NewSeries(ref, kept)
	if series.Empty() {
		return series, &provider.ErrEmptySeries{Ref: ref}
	}
	return series, nil
}

func (s *Source) chartURL(ticker string, rng provider.Range) string {
	q := url.Values{}
	q.Set("interval", "1d")
	q.Set("includeAdjustedClose", "true")
	if rng.From.IsZero() {
		q.Set("range", "max")
	} else {
		end := time.Now()
		if !rng.To.IsZero() {
			end = rng.To.Add(1).Time()
		}
		q.Set("period1", fmt.Sprint(rng.From.Time().Unix()))
		q.Set("period2", fmt.Sprint(end.Unix()))
	}
	return s.baseURL + "/v8/finance/chart/" + url.PathEscape(ticker) + "?" + q.Encode()
}

func decodeChart(r io.Reader, ticker string) ([]models.Point, error) {
	var resp chartResponse
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("%s: %s", resp.Chart.Error.Code, resp.Chart.Error.Description)
	}
	res, err := pickResult(resp.Chart.Result, ticker)
	if err != nil {
		return nil, err
	}
	return closes(res), nil
}

// pickResult collapses a batch response to the result for ticker. A single
// result is accepted whatever symbol it reports.
func pickResult(results []chartResult, ticker string) (*chartResult, error) {
	switch len(results) {
	case 0:
		return nil, fmt.Errorf("no chart result")
	case 1:
		return &results[0], nil
	}
	for i := range results {
		if strings.EqualFold(results[i].Meta.Symbol, ticker) {
			return &results[i], nil
		}
	}
	return nil, fmt.Errorf("no chart result for %s among %d symbols", ticker, len(results))
}

// closes extracts the close column, falling back to adjusted close when the
// quote block carries no closes at all.
func closes(res *chartResult) []models.Point {
	var col []*float64
	if len(res.Indicators.Quote) > 0 {
		col = res.Indicators.Quote[0].Close
	}
	if !anyNonNil(col) && len(res.Indicators.AdjClose) > 0 {
		col = res.Indicators.AdjClose[0].AdjClose
	}

	loc := exchangeLocation(res.Meta)
	points := make([]models.Point, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		v := models.Missing()
		if i < len(col) && col[i] != nil {
			v = models.Num(*col[i])
		}
		points = append(points, models.Point{
			Date:  models.DateOf(time.Unix(ts, 0).In(loc)),
			Value: v,
		})
	}
	return points
}

// exchangeLocation returns the exchange's zone so timestamps map to the
// trading day they belong to.
func exchangeLocation(m chartMeta) *time.Location {
	if m.ExchangeTimezoneName != "" {
		if loc, err := time.LoadLocation(m.ExchangeTimezoneName); err == nil {
			return loc
		}
	}
	return time.FixedZone("exchange", int(m.GMTOffset))
}

func anyNonNil(xs []*float64) bool {
	for _, x := range xs {
		if x != nil {
			return true
		}
	}
	return false
}
