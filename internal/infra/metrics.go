package infra

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder exposes fetch and cache counters. A nil *Recorder is valid and records nothing.
type Recorder struct {
	fetches     *prometheus.CounterVec
	fetchTime   *prometheus.HistogramVec
	cacheLookup *prometheus.CounterVec
	pipelines   *prometheus.CounterVec
}

// NewRecorder registers the crossasset collectors on reg. Pass
// prometheus.DefaultRegisterer in binaries and a fresh registry in tests.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		fetches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crossasset_series_fetches_total",
				Help: "Upstream series fetches by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		fetchTime: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crossasset_series_fetch_duration_seconds",
				Help:    "Duration of upstream series fetches in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		cacheLookup: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crossasset_cache_lookups_total",
				Help: "Fetch cache lookups by result",
			},
			[]string{"result"},
		),
		pipelines: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crossasset_pipeline_runs_total",
				Help: "Pipeline runs by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// RecordFetch records one upstream call.
func (r *Recorder) RecordFetch(provider string, err error, took time.Duration) {
	if r == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.fetches.WithLabelValues(provider, outcome).Inc()
	r.fetchTime.WithLabelValues(provider).Observe(took.Seconds())
}

// RecordCache records a cache hit or miss.
func (r *Recorder) RecordCache(hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookup.WithLabelValues(result).Inc()
}

// RecordPipeline records the outcome of a pipeline run ("ok", "no_data", "invalid", "error").
func (r *Recorder) RecordPipeline(outcome string) {
	if r == nil {
		return
	}
	r.pipelines.WithLabelValues(outcome).Inc()
}
