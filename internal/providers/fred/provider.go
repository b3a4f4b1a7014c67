// Package fred implements the macro series source backed by FRED
// (Federal Reserve Economic Data). Series are downloaded from the public
// fredgraph CSV endpoint, which needs no API key.
// Docs: https://fred.stlouisfed.org/docs/api/fred/
package fred

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/seenimoa/crossasset/internal/infra"
	"github.com/seenimoa/crossasset/internal/provider"
	"github.com/seenimoa/crossasset/pkg/models"
)

const (
	providerName = "fred"
	// DefaultBaseURL serves both the CSV download and the series pages.
	DefaultBaseURL = "https://fred.stlouisfed.org"
)

// Source fetches macro series from FRED.
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

// New creates a FRED source.
func New(client *infra.HTTPClient, limiter *infra.RateLimiter, opts ...Option) *Source {
	s := &Source{
		BaseSource: provider.NewBaseSource(provider.Info{
			Name:        providerName,
			Description: "Federal Reserve Economic Data - money supply, prices, rates",
			Website:     "https://fred.stlouisfed.org",
			Kind:        models.Macro,
		}, client, limiter),
		baseURL: DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch downloads the CSV for ref.Code and parses it into a series.
// Placeholder tokens such as "." become missing values.
func (s *Source) Fetch(ctx context.Context, ref models.Ref, rng provider.Range) (models.NamedSeries, error) {
	if err := s.CheckRef(ref); err != nil {
		return models.NamedSeries{}, err
	}
	if err := s.RateLimit(ctx); err != nil {
		return models.NamedSeries{}, err
	}

	body, _, err := s.Client().DoGet(ctx, s.csvURL(ref.Code, rng), csvHeaders())
	if err != nil {
		return models.NamedSeries{}, fmt.Errorf("fred %s: %w", ref.Code, err)
	}
	defer body.Close()

	points, err := parseCSV(body, ref.Code)
	if err != nil {
		return models.NamedSeries{}, fmt.Errorf("fred %s: %w", ref.Code, err)
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

func (s *Source) csvURL(code string, rng provider.Range) string {
	q := url.Values{}
	q.Set("id", code)
	if !rng.From.IsZero() {
		q.Set("cosd", rng.From.String())
	}
	if !rng.To.IsZero() {
		q.Set("coed", rng.To.String())
	}
	return s.baseURL + "/graph/fredgraph.csv?" + q.Encode()
}

func csvHeaders() map[string]string {
	return map[string]string{"Accept": "text/csv"}
}
