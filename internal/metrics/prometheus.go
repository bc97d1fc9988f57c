// Package metrics provides Prometheus metrics for pitch extraction,
// alignment scoring and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeOK          = "ok"
	OutcomeEmpty       = "empty"
	OutcomeDecodeError = "decode_error"
	OutcomeEmptyTrack  = "empty_track"
	OutcomeTooLong     = "too_long"
	OutcomeError       = "error"
)

// Cache lookup results.
const (
	CacheHitMemory = "hit_memory"
	CacheHitDB     = "hit_db"
	CacheMiss      = "miss"
)

// Manager owns a registry and the collectors registered on it. A nil
// *Manager is valid and records nothing.
type Manager struct {
	namespace         string
	subsystem         string
	durationBuckets   []float64
	enabled           bool
	runtimeCollectors bool
	registry          *prometheus.Registry

	extractions        *prometheus.CounterVec
	extractionDuration *prometheus.HistogramVec
	comparisons        *prometheus.CounterVec
	comparisonDuration prometheus.Histogram
	similarityScore    prometheus.Histogram
	cacheLookups       *prometheus.CounterVec

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewManager creates a metrics manager on a fresh registry unless one is
// supplied.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:       "fretcoach",
		durationBuckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		enabled:         true,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	if m.runtimeCollectors {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.extractions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pitch_extractions_total",
		Help:      "Pitch extractions by source (reference, user) and outcome",
	}, []string{"source", "outcome"})

	m.extractionDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pitch_extraction_duration_seconds",
		Help:      "Time spent decoding and estimating pitch",
		Buckets:   m.durationBuckets,
	}, []string{"source"})

	m.comparisons = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "comparisons_total",
		Help:      "Track comparisons by outcome",
	}, []string{"outcome"})

	m.comparisonDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "comparison_duration_seconds",
		Help:      "Time spent aligning and scoring two tracks",
		Buckets:   m.durationBuckets,
	})

	m.similarityScore = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "similarity_score",
		Help:      "Distribution of similarity scores",
		Buckets:   prometheus.LinearBuckets(10, 10, 10),
	})

	m.cacheLookups = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pitch_cache_lookups_total",
		Help:      "Reference pitch cache lookups by result",
	}, []string{"result"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   m.durationBuckets,
	}, []string{"endpoint", "method", "status_code"})
}

func (m *Manager) active() bool { return m != nil && m.enabled }

// ObserveExtraction records one extraction of source ("reference" or "user").
func (m *Manager) ObserveExtraction(source, outcome string, d time.Duration) {
	if !m.active() {
		return
	}
	m.extractions.WithLabelValues(source, outcome).Inc()
	m.extractionDuration.WithLabelValues(source).Observe(d.Seconds())
}

// ObserveComparison records a comparison; score is only observed on success.
func (m *Manager) ObserveComparison(outcome string, d time.Duration, score float64) {
	if !m.active() {
		return
	}
	m.comparisons.WithLabelValues(outcome).Inc()
	m.comparisonDuration.Observe(d.Seconds())
	if outcome == OutcomeOK {
		m.similarityScore.Observe(score)
	}
}

func (m *Manager) RecordCacheLookup(result string) {
	if !m.active() {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *Manager) ObserveHTTPRequest(endpoint, method string, status int, d time.Duration) {
	if !m.active() {
		return
	}
	code := strconv.Itoa(status)
	m.httpRequests.WithLabelValues(endpoint, method, code).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, code).Observe(d.Seconds())
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
