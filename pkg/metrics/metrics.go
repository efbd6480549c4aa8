// Package metrics defines the Prometheus metric collectors for the build and
// query pipelines and exposes an HTTP handler for scraping.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors.
type Metrics struct {
	DocsIndexedTotal     prometheus.Counter
	DocsSkippedTotal     prometheus.Counter
	SegmentsFlushedTotal *prometheus.CounterVec
	SegmentTermsFlushed  prometheus.Histogram
	MergeDuration        prometheus.Histogram
	SearchQueriesTotal   *prometheus.CounterVec
	SearchLatency        prometheus.Histogram
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
}

// New creates and registers all collectors on the given registerer.
// Passing nil uses the default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		DocsIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docs_indexed_total",
				Help: "Total documents successfully indexed.",
			},
		),
		DocsSkippedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docs_skipped_total",
				Help: "Total malformed documents skipped during ingestion.",
			},
		),
		SegmentsFlushedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "segments_flushed_total",
				Help: "Partial segment flushes by status (ok, error).",
			},
			[]string{"status"},
		),
		SegmentTermsFlushed: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "segment_terms_flushed",
				Help:    "Unique terms per flushed partial segment.",
				Buckets: []float64{100, 1000, 5000, 10000, 25000, 50000, 100000},
			},
		),
		MergeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "merge_duration_seconds",
				Help:    "Wall time of the k-way segment merge.",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Total search queries by result type (hit, zero_result, error).",
			},
			[]string{"result_type"},
		),
		SearchLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "Search query latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "query_cache_hits_total",
				Help: "Total query cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "query_cache_misses_total",
				Help: "Total query cache misses.",
			},
		),
	}
	reg.MustRegister(
		m.DocsIndexedTotal,
		m.DocsSkippedTotal,
		m.SegmentsFlushedTotal,
		m.SegmentTermsFlushed,
		m.MergeDuration,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
	)
	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes the scrape handler on the given port. It blocks, so callers
// run it in a goroutine for the lifetime of the process.
func Serve(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	return http.ListenAndServe(fmt.Sprintf(":%d", port), mux)
}
