package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestHTTPMetrics(t *testing.T) {
	m := HTTP()
	require.Same(t, m, HTTP())

	requests := m.requests.WithLabelValues("riskd", "/v1/markets", "GET", "2xx")
	before := testutil.ToFloat64(requests)
	m.Observe("riskd", "/v1/markets", "GET", 200, time.Millisecond)
	require.Equal(t, before+1, testutil.ToFloat64(requests))

	done := m.Begin("riskd")
	require.Equal(t, 1.0, testutil.ToFloat64(m.inFlight.WithLabelValues("riskd")))
	done()
	require.Equal(t, 0.0, testutil.ToFloat64(m.inFlight.WithLabelValues("riskd")))

	m.RecordThrottle("", "")
	require.GreaterOrEqual(t, testutil.ToFloat64(m.throttles.WithLabelValues("unknown", "unspecified")), 1.0)
}

func TestStatusClass(t *testing.T) {
	require.Equal(t, "4xx", statusClass(422))
	require.Equal(t, "5xx", statusClass(503))
	require.Equal(t, "other", statusClass(0))
}

func TestOracleMetricsLabels(t *testing.T) {
	m := Oracle()
	m.RecordPosting(" ETH ")
	require.GreaterOrEqual(t, testutil.ToFloat64(m.postings.WithLabelValues("eth")), 1.0)
	m.RecordFreshness("eth", -time.Second)
	require.Equal(t, 0.0, testutil.ToFloat64(m.freshness.WithLabelValues("eth")))

	var nilMetrics *HTTPMetrics
	nilMetrics.Observe("riskd", "/", "GET", 200, 0)
	nilMetrics.Begin("riskd")()
}
