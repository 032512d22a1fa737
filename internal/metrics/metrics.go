// Package metrics exposes Prometheus collectors for jobscout.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Card skip reasons.
const (
	SkipNoTitle    = "no_title"
	SkipParseError = "parse_error"
)

var (
	sourceRunsTotal            *prometheus.CounterVec
	sourceDurationSeconds      *prometheus.HistogramVec
	jobsEmittedTotal           *prometheus.CounterVec
	cardsSkippedTotal          *prometheus.CounterVec
	sweepKeywordsTotal         *prometheus.CounterVec
	jobsPersistedTotal         prometheus.Counter
	cacheLookupsTotal          *prometheus.CounterVec
	activeSweeps               prometheus.Gauge
	rateLimitDelaySeconds      *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init registers the collectors with the default registry.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		sourceRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobscout_source_runs_total",
				Help: "Agent runs, labeled by source and outcome.",
			},
			[]string{"source", "status"},
		)

		sourceDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jobscout_source_duration_seconds",
				Help:    "Wall time of a single agent run, settle and scroll waits included.",
				Buckets: []float64{1, 5, 10, 15, 20, 30, 60, 120},
			},
			[]string{"source"},
		)

		jobsEmittedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobscout_jobs_emitted_total",
				Help: "Normalized jobs produced, labeled by source.",
			},
			[]string{"source"},
		)

		cardsSkippedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobscout_cards_skipped_total",
				Help: "Cards dropped during extraction, labeled by source and reason.",
			},
			[]string{"source", "reason"},
		)

		sweepKeywordsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobscout_sweep_keywords_total",
				Help: "Keywords processed by background sweeps, labeled by status.",
			},
			[]string{"status"},
		)

		jobsPersistedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "jobscout_jobs_persisted_total",
				Help: "Jobs written through the persistence gateway.",
			},
		)

		cacheLookupsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobscout_cache_lookups_total",
				Help: "Agent result cache lookups, labeled by result.",
			},
			[]string{"result"},
		)

		activeSweeps = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "jobscout_active_sweeps",
				Help: "Background sweeps currently running.",
			},
		)

		rateLimitDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jobscout_rate_limit_delay_seconds",
				Help:    "Time spent waiting on the per-host navigation limiter.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"host"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 30, 120},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeHost extracts a lowercase hostname from a URL, or "unknown".
func SanitizeHost(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveSourceRun records the outcome and duration of one agent run.
func ObserveSourceRun(source, status string, emitted int, duration time.Duration) {
	Init()
	sourceRunsTotal.WithLabelValues(source, status).Inc()
	sourceDurationSeconds.WithLabelValues(source).Observe(duration.Seconds())
	if emitted > 0 {
		jobsEmittedTotal.WithLabelValues(source).Add(float64(emitted))
	}
}

// ObserveCardSkipped counts a card dropped during extraction.
func ObserveCardSkipped(source, reason string) {
	Init()
	cardsSkippedTotal.WithLabelValues(source, reason).Inc()
}

// ObserveSweepKeyword counts a keyword finished by a sweep.
func ObserveSweepKeyword(status string) {
	Init()
	sweepKeywordsTotal.WithLabelValues(status).Inc()
}

// ObservePersisted adds n freshly written jobs.
func ObservePersisted(n int) {
	Init()
	if n > 0 {
		jobsPersistedTotal.Add(float64(n))
	}
}

// ObserveCacheLookup counts a cache hit, miss or error.
func ObserveCacheLookup(result string) {
	Init()
	cacheLookupsTotal.WithLabelValues(result).Inc()
}

// IncActiveSweeps marks a sweep as started.
func IncActiveSweeps() {
	Init()
	activeSweeps.Inc()
}

// DecActiveSweeps marks a sweep as finished.
func DecActiveSweeps() {
	Init()
	activeSweeps.Dec()
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(host string, duration time.Duration) {
	Init()
	rateLimitDelaySeconds.WithLabelValues(host).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
