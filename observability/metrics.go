package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type settlementMetrics struct {
	requests *prometheus.CounterVec
	errors   *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

var (
	settlementOnce sync.Once
	settlementReg  *settlementMetrics
)

// SettlementMetrics returns the lazily-initialised metrics registry used to
// record settlement RPC activity.
func SettlementMetrics() *settlementMetrics {
	settlementOnce.Do(func() {
		settlementReg = &settlementMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "payprotector",
				Subsystem: "settlement",
				Name:      "requests_total",
				Help:      "Total settlement calls segmented by method and outcome.",
			}, []string{"method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "payprotector",
				Subsystem: "settlement",
				Name:      "errors_total",
				Help:      "Total settlement call errors segmented by method and status code.",
			}, []string{"method", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "payprotector",
				Subsystem: "settlement",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for settlement call handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method"}),
		}
		prometheus.MustRegister(
			settlementReg.requests,
			settlementReg.errors,
			settlementReg.latency,
		)
	})
	return settlementReg
}

// Observe records the outcome of a settlement call. The status code should be
// the HTTP status that was ultimately written to the response writer.
func (m *settlementMetrics) Observe(method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if status >= 400 {
		outcome = "error"
		m.errors.WithLabelValues(method, strconv.Itoa(status)).Inc()
	}
	m.requests.WithLabelValues(method, outcome).Inc()
	m.latency.WithLabelValues(method).Observe(duration.Seconds())
}
