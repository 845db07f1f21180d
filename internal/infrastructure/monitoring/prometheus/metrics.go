// Package prometheus registers and serves the engine's operational metrics.
package prometheus

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "longmap"

var (
	httpDurationBuckets  = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5}
	fetchDurationBuckets = []float64{.1, .5, 1, 5, 10, 30, 60, 120}
	runDurationBuckets   = []float64{1, 5, 10, 30, 60, 300, 600, 1800}
)

// Metrics holds every metric the services record. All components share one
// instance; the registry backing it is private so tests never collide with
// the global default registry.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP layer
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Ingest pipeline
	SourceFetchTotal      *prometheus.CounterVec
	SourceFetchDuration   *prometheus.HistogramVec
	ProblemsIngestedTotal *prometheus.CounterVec
	CapabilitiesExtracted *prometheus.CounterVec
	PayloadsArchivedTotal *prometheus.CounterVec

	// Analysis
	AnalysisRunsTotal   *prometheus.CounterVec
	AnalysisRunDuration prometheus.Histogram
	GapsDetectedTotal   *prometheus.CounterVec
	GapsOpen            *prometheus.GaugeVec

	// Embedding and vector index
	EmbeddingRequestsTotal  *prometheus.CounterVec
	EmbeddingFallbacksTotal prometheus.Counter

	// Infrastructure
	CacheRequestsTotal   *prometheus.CounterVec
	EventsPublishedTotal *prometheus.CounterVec
}

// New builds a Metrics set on a fresh registry with process and Go runtime
// collectors attached.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)

	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   httpDurationBuckets,
		}, []string{"method", "route"}),

		SourceFetchTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_fetch_total",
			Help:      "Literature source fetches by source and outcome.",
		}, []string{"source", "status"}),
		SourceFetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_fetch_duration_seconds",
			Help:      "Time spent fetching one batch from a source.",
			Buckets:   fetchDurationBuckets,
		}, []string{"source"}),
		ProblemsIngestedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "problems_ingested_total",
			Help:      "Ingested problems by source and outcome (created, duplicate, failed).",
		}, []string{"source", "status"}),
		CapabilitiesExtracted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capabilities_extracted_total",
			Help:      "Capabilities extracted from problem descriptions by type.",
		}, []string{"type"}),
		PayloadsArchivedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payloads_archived_total",
			Help:      "Raw source payloads written to the archive by outcome.",
		}, []string{"status"}),

		AnalysisRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_runs_total",
			Help:      "Gap analysis runs by outcome.",
		}, []string{"status"}),
		AnalysisRunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_run_duration_seconds",
			Help:      "Wall time of one full gap analysis run.",
			Buckets:   runDurationBuckets,
		}),
		GapsDetectedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gaps_detected_total",
			Help:      "Gaps written during analysis runs by priority.",
		}, []string{"priority"}),
		GapsOpen: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gaps_open",
			Help:      "Currently open gaps by priority.",
		}, []string{"priority"}),

		EmbeddingRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_requests_total",
			Help:      "Embedding provider calls by outcome.",
		}, []string{"status"}),
		EmbeddingFallbacksTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_fallbacks_total",
			Help:      "Resource matches that fell back to token-overlap similarity.",
		}),

		CacheRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Analysis cache lookups by result (hit, miss, error).",
		}, []string{"result"}),
		EventsPublishedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Kafka events published by topic and outcome.",
		}, []string{"topic", "status"}),
	}
}

// Handler serves the scrape endpoint for this metrics set.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// ObserveHTTPRequest records one finished HTTP request.
func (m *Metrics) ObserveHTTPRequest(method, route, status string, elapsed time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
