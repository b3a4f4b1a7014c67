// Package pipeline runs a comparison end to end: fetch, align, window,
// denominate, portfolio, shift and normalize. Each stage produces a new
// table; the intermediate tables are kept on the Result for analytics.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/seenimoa/crossasset/internal/align"
	"github.com/seenimoa/crossasset/internal/catalog"
	"github.com/seenimoa/crossasset/internal/fetcher"
	"github.com/seenimoa/crossasset/internal/infra"
	"github.com/seenimoa/crossasset/internal/provider"
	"github.com/seenimoa/crossasset/internal/transform"
	"github.com/seenimoa/crossasset/pkg/models"
)

var (
	// ErrNoData means no selected series produced data in the window.
	ErrNoData = errors.New("no data found for the selected combination and timeframe")
	// ErrNoSelection means the request named no series at all.
	ErrNoSelection = fmt.Errorf("%w: select at least one reference series or asset", ErrNoData)
)

// SeriesFetcher is the slice of the fetcher used by the pipeline. Every
// fetch goes through FetchAll so the snapshot cache applies.
type SeriesFetcher interface {
	FetchAll(ctx context.Context, refs []models.Ref, rng provider.Range) (*fetcher.Result, error)
}

// Result holds every stage of a run.
type Result struct {
	Request Request      `json:"request"`
	Window  align.Window `json:"window"`
	// Combined is aligned, windowed, denominated and carries the portfolio
	// column. Leaderboard, sensitivity and export read it.
	Combined *models.Table `json:"combined"`
	// Shifted is Combined after the lead/lag shift. Correlations read it.
	Shifted *models.Table `json:"-"`
	// Normalized is what gets plotted.
	Normalized *models.Table     `json:"normalized"`
	Anchor     string            `json:"anchor"`
	References []string          `json:"references"`
	Assets     []string          `json:"assets"`
	Warnings   []fetcher.Warning `json:"warnings,omitempty"`
	Cached     bool              `json:"cached"`
}

// WarningMessages flattens the warnings for display.
func (r *Result) WarningMessages() []string {
	out := make([]string, len(r.Warnings))
	for i, w := range r.Warnings {
		out[i] = w.Error()
	}
	return out
}

// Runner executes requests against a catalog and a fetcher.
type Runner struct {
	catalog      *catalog.Catalog
	fetch        SeriesFetcher
	events       *catalog.EventFeed
	metrics      *infra.Recorder
	log          zerolog.Logger
	defaultRange string
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option { return func(r *Runner) { r.log = l } }

// WithMetrics records pipeline outcomes.
func WithMetrics(m *infra.Recorder) Option { return func(r *Runner) { r.metrics = m } }

// WithEventFeed adds annotations from an RSS or Atom feed.
func WithEventFeed(f *catalog.EventFeed) Option { return func(r *Runner) { r.events = f } }

// WithDefaultRange sets the range used when a request names none.
func WithDefaultRange(rng string) Option { return func(r *Runner) { r.defaultRange = rng } }

// New creates a Runner.
func New(cat *catalog.Catalog, f SeriesFetcher, opts ...Option) *Runner {
	r := &Runner{
		catalog:      cat,
		fetch:        f,
		log:          zerolog.Nop(),
		defaultRange: "10y",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Catalog returns the runner's catalog.
func (r *Runner) Catalog() *catalog.Catalog { return r.catalog }

// Run executes req. Per-series fetch failures are reported as warnings on
// the result; ErrNoData is returned when nothing usable remains.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	res, err := r.run(ctx, req)
	switch {
	case err == nil:
		r.metrics.RecordPipeline("ok")
	case errors.Is(err, ErrNoData):
		r.metrics.RecordPipeline("no_data")
	case errors.Is(err, ErrInvalidRequest):
		r.metrics.RecordPipeline("invalid")
	default:
		r.metrics.RecordPipeline("error")
	}
	return res, err
}

func (r *Runner) run(ctx context.Context, req Request) (*Result, error) {
	if req.Story != "" {
		story, ok := r.catalog.Story(req.Story)
		if !ok {
			return nil, fmt.Errorf("%w: unknown story %q", ErrInvalidRequest, req.Story)
		}
		req.ApplyStory(story)
	}
	if req.Empty() {
		return nil, ErrNoSelection
	}
	window, err := req.prepare(ctx, r.defaultRange)
	if err != nil {
		return nil, err
	}
	refs, err := r.catalog.ResolveAll(append(append([]string{}, req.References...), req.Assets...))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	// Always fetch full history so the fill state entering the window is right.
	fetched, err := r.fetch.FetchAll(ctx, refs, provider.Full)
	if err != nil {
		return nil, err
	}
	res := &Result{Request: req, Window: window, Warnings: fetched.Warnings, Cached: fetched.Cached}

	table := window.Apply(align.Combine(fetched.NonEmpty()))
	if table.Empty() {
		return res, ErrNoData
	}
	r.log.Debug().
		Int("rows", table.Len()).
		Strs("columns", table.Columns()).
		Str("window", window.String()).
		Msg("aligned")

	if table, err = r.denominate(ctx, res, table); err != nil {
		return nil, err
	}
	if table, err = transform.AddPortfolio(table, req.Weights); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	res.Combined = table

	res.References = present(table, req.References)
	res.Assets = present(table, req.Assets)
	if table.Has(transform.PortfolioColumn) {
		res.Assets = append(res.Assets, transform.PortfolioColumn)
	}
	res.Anchor = table.Columns()[0]
	if len(res.References) > 0 {
		res.Anchor = res.References[0]
	}

	if res.Shifted, err = transform.Shift(table, res.Anchor, req.ShiftMonths); err != nil {
		return nil, err
	}
	if res.Shifted.Empty() {
		return res, ErrNoData
	}
	if res.Normalized, err = transform.Normalize(res.Shifted, transform.Mode(req.Mode)); err != nil {
		return nil, err
	}
	return res, nil
}

// denominate divides by the requested denominator. A denominator that is
// not already a column is fetched over full history and filled onto the
// table's axis. If that fetch fails the table is returned unchanged with
// a warning.
func (r *Runner) denominate(ctx context.Context, res *Result, t *models.Table) (*models.Table, error) {
	opts := res.Request.Options("")
	if !opts.HasDenominator() {
		return t, nil
	}
	name := opts.Denominator
	if t.Has(name) {
		return transform.DenominateBy(t, name)
	}

	ref, err := r.catalog.Resolve(name)
	if err != nil {
		return nil, fmt.Errorf("%w: denominator: %v", ErrInvalidRequest, err)
	}
	series, err := r.fetchOne(ctx, ref)
	if err != nil {
		res.Warnings = append(res.Warnings, fetcher.Warning{
			Series:  name,
			Message: "denominator unavailable, showing USD values: " + err.Error(),
			Err:     err,
		})
		return t, nil
	}
	return transform.Denominate(t, name, align.Reindex(series, t.Dates()))
}

// fetchOne fetches the full history of a single series.
func (r *Runner) fetchOne(ctx context.Context, ref models.Ref) (models.NamedSeries, error) {
	fr, err := r.fetch.FetchAll(ctx, []models.Ref{ref}, provider.Full)
	if err != nil {
		return models.NamedSeries{Ref: ref}, err
	}
	if len(fr.Warnings) > 0 {
		return models.NamedSeries{Ref: ref}, fr.Warnings[0].Err
	}
	return fr.Series[0], nil
}

func present(t *models.Table, names []string) []string {
	var out []string
	for _, n := range names {
		if t.Has(n) && !contains(out, n) {
			out = append(out, n)
		}
	}
	return out
}

// ExportFilename is the download name of the CSV export.
const ExportFilename = "cross_asset_data.csv"

// WriteCSV exports the combined table.
func (r *Result) WriteCSV(w io.Writer) error {
	return r.Combined.WriteCSV(w)
}
