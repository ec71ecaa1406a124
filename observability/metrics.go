package observability

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics records riskd API traffic by module and chi route pattern.
type HTTPMetrics struct {
	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	inFlight  *prometheus.GaugeVec
	throttles *prometheus.CounterVec
}

var (
	httpMetricsOnce sync.Once
	httpRegistry    *HTTPMetrics

	oracleMetricsOnce sync.Once
	oracleRegistry    *OracleMetrics
)

// HTTP returns the process-wide API collectors, registering them on first use.
func HTTP() *HTTPMetrics {
	httpMetricsOnce.Do(func() {
		httpRegistry = &HTTPMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "riskgate",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "API requests by module, route pattern, method and status class.",
			}, []string{"module", "route", "method", "code"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "riskgate",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "API handler latency.",
				Buckets:   []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			}, []string{"module", "route"}),
			inFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "riskgate",
				Subsystem: "http",
				Name:      "in_flight_requests",
				Help:      "Requests currently being served.",
			}, []string{"module"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "riskgate",
				Subsystem: "http",
				Name:      "throttled_total",
				Help:      "Requests rejected before reaching a handler.",
			}, []string{"module", "reason"}),
		}
		prometheus.MustRegister(
			httpRegistry.requests,
			httpRegistry.latency,
			httpRegistry.inFlight,
			httpRegistry.throttles,
		)
	})
	return httpRegistry
}

// Begin marks a request in flight and returns the matching completion hook.
func (m *HTTPMetrics) Begin(module string) func() {
	if m == nil {
		return func() {}
	}
	gauge := m.inFlight.WithLabelValues(orUnknown(module))
	gauge.Inc()
	return gauge.Dec
}

// Observe records a served request. route should be the router pattern, not
// the raw path, to keep label cardinality bounded.
func (m *HTTPMetrics) Observe(module, route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	module, route = orUnknown(module), orUnknown(route)
	m.requests.WithLabelValues(module, route, method, statusClass(status)).Inc()
	m.latency.WithLabelValues(module, route).Observe(duration.Seconds())
}

// RecordThrottle counts a rejection such as "rate_limit" or "unauthenticated".
func (m *HTTPMetrics) RecordThrottle(module, reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(orUnknown(module), reason).Inc()
}

func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "other"
	}
	return fmt.Sprintf("%dxx", status/100)
}

func orUnknown(v string) string {
	if strings.TrimSpace(v) == "" {
		return "unknown"
	}
	return v
}

// OracleMetrics bundles collectors for price postings and freshness.
type OracleMetrics struct {
	postings  *prometheus.CounterVec
	rejected  *prometheus.CounterVec
	freshness *prometheus.GaugeVec
}

// Oracle returns the metrics registry for the price feed.
func Oracle() *OracleMetrics {
	oracleMetricsOnce.Do(func() {
		oracleRegistry = &OracleMetrics{
			postings: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "riskgate",
				Subsystem: "oracle",
				Name:      "prices_posted_total",
				Help:      "Count of accepted price postings per asset.",
			}, []string{"asset"}),
			rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "riskgate",
				Subsystem: "oracle",
				Name:      "prices_rejected_total",
				Help:      "Count of rejected price postings per reason.",
			}, []string{"reason"}),
			freshness: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "riskgate",
				Subsystem: "oracle",
				Name:      "price_age_seconds",
				Help:      "Age in seconds of the price served for an asset.",
			}, []string{"asset"}),
		}
		prometheus.MustRegister(oracleRegistry.postings, oracleRegistry.rejected, oracleRegistry.freshness)
	})
	return oracleRegistry
}

// RecordPosting increments the posting counter for an asset.
func (m *OracleMetrics) RecordPosting(asset string) {
	if m == nil {
		return
	}
	m.postings.WithLabelValues(labelAsset(asset)).Inc()
}

// RecordRejection counts a refused posting.
func (m *OracleMetrics) RecordRejection(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.rejected.WithLabelValues(reason).Inc()
}

// RecordFreshness records how stale a served price was.
func (m *OracleMetrics) RecordFreshness(asset string, age time.Duration) {
	if m == nil {
		return
	}
	seconds := age.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.freshness.WithLabelValues(labelAsset(asset)).Set(seconds)
}

func labelAsset(asset string) string {
	trimmed := strings.TrimSpace(asset)
	if trimmed == "" {
		return "unknown"
	}
	return strings.ToLower(trimmed)
}
