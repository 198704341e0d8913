// Package metrics exposes Prometheus collectors for the ingestion service.
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

var (
	ingestRequestsTotal        *prometheus.CounterVec
	chaptersFetchedTotal       *prometheus.CounterVec
	fetchDurationSeconds       *prometheus.HistogramVec
	validatorIssuesTotal       *prometheus.CounterVec
	activeIngests              prometheus.Gauge
	rateLimitDelaysSeconds     *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		ingestRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "novelforge_ingest_requests_total",
				Help: "Total number of ingestion requests finalized, labeled by terminal status.",
			},
			[]string{"status"},
		)

		chaptersFetchedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "novelforge_chapters_fetched_total",
				Help: "Total number of chapter fetches, labeled by site and outcome.",
			},
			[]string{"site", "outcome"},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "novelforge_fetch_duration_seconds",
				Help:    "Histogram of page fetch latencies, labeled by site.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"site"},
		)

		validatorIssuesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "novelforge_validator_issues_total",
				Help: "Total number of content quality issues flagged, labeled by issue tag.",
			},
			[]string{"issue"},
		)

		activeIngests = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "novelforge_active_ingests",
				Help: "Number of requests currently being processed.",
			},
		)

		rateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "novelforge_rate_limit_delays_seconds",
				Help:    "Histogram of rate limit wait durations, labeled by domain.",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"domain"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "novelforge_http_requests_total",
				Help: "Total number of API requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "novelforge_http_request_duration_seconds",
				Help:    "Histogram of API request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
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

// ObserveIngest increments the finalized-request counter for a status.
func ObserveIngest(status string) {
	Init()
	ingestRequestsTotal.WithLabelValues(status).Inc()
}

// ObserveChapter records a chapter fetch outcome ("ok" or "failed").
func ObserveChapter(site, outcome string) {
	Init()
	chaptersFetchedTotal.WithLabelValues(SanitizeSite(site), outcome).Inc()
}

// ObserveFetch records the duration of a page fetch.
func ObserveFetch(site string, duration time.Duration) {
	Init()
	fetchDurationSeconds.WithLabelValues(SanitizeSite(site)).Observe(duration.Seconds())
}

// ObserveValidatorIssue increments the counter for an issue tag.
func ObserveValidatorIssue(issue string) {
	Init()
	validatorIssuesTotal.WithLabelValues(issue).Inc()
}

// IncActiveIngests increments the in-flight request gauge.
func IncActiveIngests() {
	Init()
	activeIngests.Inc()
}

// DecActiveIngests decrements the in-flight request gauge.
func DecActiveIngests() {
	Init()
	activeIngests.Dec()
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(domain string, duration time.Duration) {
	Init()
	rateLimitDelaysSeconds.WithLabelValues(domain).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the API request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
