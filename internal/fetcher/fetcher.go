// Package fetcher retrieves named series from their upstream sources.
//
// Every series is fetched independently with its own timeout; a failure
// degrades that one series to an empty result plus a Warning and never
// aborts the others. Completed multi-series fetches are cached as
// immutable snapshots keyed by (series set, range).
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/crossasset/internal/infra"
	"github.com/seenimoa/crossasset/internal/provider"
	"github.com/seenimoa/crossasset/pkg/models"
)

// Resolver finds the source serving a series kind.
type Resolver interface {
	For(kind models.Kind) (provider.Source, error)
}

// Warning reports a series that could not be fetched.
type Warning struct {
	Series   string `json:"series"`
	Provider string `json:"provider,omitempty"`
	Message  string `json:"message"`
	Err      error  `json:"-"`
}

func (w Warning) Error() string { return fmt.Sprintf("%s: %s", w.Series, w.Message) }
func (w Warning) Unwrap() error { return w.Err }

// Result is the outcome of FetchAll. Series is in request order; a failed
// series is present with no points.
type Result struct {
	Series    []models.NamedSeries `json:"series"`
	Warnings  []Warning            `json:"warnings,omitempty"`
	FetchedAt time.Time            `json:"fetched_at"`
	Cached    bool                 `json:"cached"`
}

// NonEmpty returns the series that produced at least one observation.
func (r *Result) NonEmpty() []models.NamedSeries {
	out := make([]models.NamedSeries, 0, len(r.Series))
	for _, s := range r.Series {
		if !s.Empty() {
			out = append(out, s)
		}
	}
	return out
}

// Err joins all warnings, or returns nil when every series was fetched.
func (r *Result) Err() error {
	errs := make([]error, len(r.Warnings))
	for i, w := range r.Warnings {
		errs[i] = w
	}
	return errors.Join(errs...)
}

// Fetcher fetches series through a Resolver with caching and bounded fan-out.
type Fetcher struct {
	sources     Resolver
	cache       Cache
	timeout     time.Duration
	concurrency int
	metrics     *infra.Recorder
	log         zerolog.Logger
	observers   []Observer
	now         func() time.Time
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithCache sets the snapshot cache. The default caches nothing.
func WithCache(c Cache) Option { return func(f *Fetcher) { f.cache = c } }

// WithTimeout bounds each series fetch.
func WithTimeout(d time.Duration) Option { return func(f *Fetcher) { f.timeout = d } }

// WithConcurrency limits how many series are fetched at once.
func WithConcurrency(n int) Option { return func(f *Fetcher) { f.concurrency = n } }

// WithMetrics records fetch and cache metrics.
func WithMetrics(r *infra.Recorder) Option { return func(f *Fetcher) { f.metrics = r } }

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option { return func(f *Fetcher) { f.log = l } }

// WithObserver subscribes to fetch events.
func WithObserver(o Observer) Option {
	return func(f *Fetcher) { f.observers = append(f.observers, o) }
}

// New creates a Fetcher.
func New(sources Resolver, opts ...Option) *Fetcher {
	f := &Fetcher{
		sources:     sources,
		cache:       noCache{},
		timeout:     30 * time.Second,
		concurrency: 4,
		log:         zerolog.Nop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.concurrency < 1 {
		f.concurrency = 1
	}
	return f
}

// Fetch retrieves a single series. On failure it returns an empty series
// for ref together with the error, so callers can keep going.
func (f *Fetcher) Fetch(ctx context.Context, ref models.Ref, rng provider.Range) (models.NamedSeries, error) {
	empty := models.NamedSeries{Ref: ref}

	src, err := f.sources.For(ref.Kind)
	if err != nil {
		return empty, err
	}
	providerName := src.Info().Name

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	f.notify(Event{Type: EventFetchStart, Series: ref.Name, Provider: providerName})
	start := time.Now()
	series, err := src.Fetch(ctx, ref, rng)
	took := time.Since(start)
	f.metrics.RecordFetch(providerName, err, took)

	if err != nil {
		f.log.Warn().
			Err(err).
			Str("series", ref.Name).
			Str("code", ref.Code).
			Str("provider", providerName).
			Dur("took", took).
			Msg("series fetch failed")
		f.notify(Event{Type: EventFetchFailed, Series: ref.Name, Provider: providerName, Error: err.Error(), Took: took})
		return empty, err
	}
	series.Ref = ref
	f.log.Debug().
		Str("series", ref.Name).
		Str("provider", providerName).
		Int("points", series.Len()).
		Dur("took", took).
		Msg("series fetched")
	f.notify(Event{Type: EventFetchDone, Series: ref.Name, Provider: providerName, Points: series.Len(), Took: took})
	return series, nil
}

// FetchAll fetches every ref over rng. Duplicate names are fetched once.
// Per-series failures become warnings; the returned error is non-nil only
// when ctx itself is done. Only fully successful fetches are cached.
func (f *Fetcher) FetchAll(ctx context.Context, refs []models.Ref, rng provider.Range) (*Result, error) {
	refs = dedupe(refs)
	if len(refs) == 0 {
		return &Result{FetchedAt: f.now()}, nil
	}

	key := Key{Refs: refs, Range: rng}
	if e, ok := f.cache.Get(ctx, key); ok {
		f.metrics.RecordCache(true)
		f.notify(Event{Type: EventCacheHit, Key: key.String()})
		return &Result{Series: e.Series, FetchedAt: e.FetchedAt, Cached: true}, nil
	}
	f.metrics.RecordCache(false)

	var (
		mu       sync.Mutex
		warnings []Warning
		series   = make([]models.NamedSeries, len(refs))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for i, ref := range refs {
		i, ref := i, ref
		g.Go(func() error {
			s, err := f.Fetch(gctx, ref, rng)
			series[i] = s
			if err != nil {
				w := Warning{Series: ref.Name, Message: err.Error(), Err: err}
				if src, serr := f.sources.For(ref.Kind); serr == nil {
					w.Provider = src.Info().Name
				}
				mu.Lock()
				warnings = append(warnings, w)
				mu.Unlock()
			}
			return nil // non-fatal
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{Series: series, Warnings: sortWarnings(warnings, refs), FetchedAt: f.now()}
	if len(res.Warnings) == 0 {
		f.cache.Put(ctx, key, Entry{Series: series, FetchedAt: res.FetchedAt})
	}
	return res, nil
}

func dedupe(refs []models.Ref) []models.Ref {
	seen := make(map[string]bool, len(refs))
	out := make([]models.Ref, 0, len(refs))
	for _, r := range refs {
		if seen[r.Name] {
			continue
		}
		seen[r.Name] = true
		out = append(out, r)
	}
	return out
}

// sortWarnings orders warnings like the request so output is deterministic.
func sortWarnings(ws []Warning, refs []models.Ref) []Warning {
	if len(ws) < 2 {
		return ws
	}
	out := make([]Warning, 0, len(ws))
	for _, r := range refs {
		for _, w := range ws {
			if w.Series == r.Name {
				out = append(out, w)
			}
		}
	}
	return out
}
