package main

import (
	"context"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/seenimoa/crossasset/internal/catalog"
	"github.com/seenimoa/crossasset/internal/fetcher"
	"github.com/seenimoa/crossasset/internal/infra"
	"github.com/seenimoa/crossasset/internal/logging"
	"github.com/seenimoa/crossasset/internal/pipeline"
	"github.com/seenimoa/crossasset/internal/providers"
)

// app is everything a command needs, built from the loaded config.
type app struct {
	log      zerolog.Logger
	sources  *providers.Set
	runner   *pipeline.Runner
	registry *prometheus.Registry
	closers  []func() error
}

func loadCatalog() (*catalog.Catalog, error) {
	return catalog.Load(cfg.Catalog.Path)
}

// newApp wires logging, providers, the fetch cache and the pipeline.
// observers receive fetch progress events.
func newApp(ctx context.Context, observers ...fetcher.Observer) (*app, error) {
	log, err := logging.New(cfg.Logging, os.Stderr)
	if err != nil {
		return nil, err
	}
	cat, err := loadCatalog()
	if err != nil {
		return nil, err
	}
	sources, err := providers.New(cfg.Fetch)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rec := infra.NewRecorder(reg)

	a := &app{log: log, sources: sources, registry: reg}

	var cache fetcher.Cache = fetcher.NewMemoryCache(cfg.Cache.TTL)
	if cfg.Cache.RedisAddr != "" {
		rc, err := fetcher.NewRedisCache(ctx, fetcher.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			TTL:      cfg.Cache.TTL,
		}, logging.Component(log, "redis"))
		if err != nil {
			log.Warn().Err(err).Msg("redis cache unavailable, using memory only")
		} else {
			cache = fetcher.NewLayeredCache(cache, rc)
			a.closers = append(a.closers, rc.Close)
		}
	}

	opts := []fetcher.Option{
		fetcher.WithCache(cache),
		fetcher.WithTimeout(cfg.Fetch.Timeout),
		fetcher.WithConcurrency(cfg.Fetch.Concurrency),
		fetcher.WithMetrics(rec),
		fetcher.WithLogger(logging.Component(log, "fetcher")),
	}
	for _, o := range observers {
		opts = append(opts, fetcher.WithObserver(o))
	}
	f := fetcher.New(sources.Registry, opts...)

	runnerOpts := []pipeline.Option{
		pipeline.WithLogger(logging.Component(log, "pipeline")),
		pipeline.WithMetrics(rec),
		pipeline.WithDefaultRange(cfg.Analysis.DefaultRange),
	}
	if cfg.Catalog.EventsFeed != "" {
		runnerOpts = append(runnerOpts, pipeline.WithEventFeed(catalog.NewEventFeed(cfg.Catalog.EventsFeed, cfg.Cache.TTL)))
	}
	a.runner = pipeline.New(cat, f, runnerOpts...)
	return a, nil
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.log.Warn().Err(err).Msg("close")
		}
	}
}
