package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ComptrollerMetrics tracks policy decisions and governance activity of the
// risk engine.
type ComptrollerMetrics struct {
	decisions  *prometheus.CounterVec
	aborts     *prometheus.CounterVec
	governance *prometheus.CounterVec
	liquidity  prometheus.Histogram
}

var (
	comptrollerOnce     sync.Once
	comptrollerRegistry *ComptrollerMetrics
)

func Comptroller() *ComptrollerMetrics {
	comptrollerOnce.Do(func() {
		comptrollerRegistry = &ComptrollerMetrics{
			decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "riskgate",
				Subsystem: "comptroller",
				Name:      "decisions_total",
				Help:      "Policy decisions by operation, outcome and denial reason.",
			}, []string{"operation", "outcome", "reason"}),
			aborts: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "riskgate",
				Subsystem: "comptroller",
				Name:      "aborts_total",
				Help:      "Policy checks aborted by pricing, authorization or consistency failures.",
			}, []string{"operation"}),
			governance: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "riskgate",
				Subsystem: "comptroller",
				Name:      "governance_changes_total",
				Help:      "Applied governance operations.",
			}, []string{"operation"}),
			liquidity: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: "riskgate",
				Subsystem: "comptroller",
				Name:      "liquidity_duration_seconds",
				Help:      "Time spent computing account liquidity.",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
			}),
		}
		prometheus.MustRegister(
			comptrollerRegistry.decisions,
			comptrollerRegistry.aborts,
			comptrollerRegistry.governance,
			comptrollerRegistry.liquidity,
		)
	})
	return comptrollerRegistry
}

func (m *ComptrollerMetrics) RecordDecision(operation, reason string, allowed bool) {
	if m == nil {
		return
	}
	if operation == "" {
		operation = "unknown"
	}
	outcome := "denied"
	if allowed {
		outcome = "allowed"
	}
	m.decisions.WithLabelValues(operation, outcome, reason).Inc()
}

func (m *ComptrollerMetrics) RecordAbort(operation string) {
	if m == nil {
		return
	}
	if operation == "" {
		operation = "unknown"
	}
	m.aborts.WithLabelValues(operation).Inc()
}

func (m *ComptrollerMetrics) RecordGovernance(operation string) {
	if m == nil {
		return
	}
	m.governance.WithLabelValues(operation).Inc()
}

func (m *ComptrollerMetrics) ObserveLiquidity(d time.Duration) {
	if m == nil {
		return
	}
	m.liquidity.Observe(d.Seconds())
}
