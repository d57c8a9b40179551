package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for chain registry calls.
type Metrics struct {
	Calls    *prometheus.CounterVec
	Retries  *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// New creates and registers all chain metrics.
func New() *Metrics {
	return &Metrics{
		Calls: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "idverse_chain_calls_total",
			Help: "Total chain registry calls by operation and outcome",
		}, []string{"op", "outcome"}),
		Retries: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "idverse_chain_retries_total",
			Help: "Total retried chain registry calls by operation",
		}, []string{"op"}),
		Duration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "idverse_chain_call_duration_seconds",
			Help:    "Chain registry call latency including retries",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
	}
}

// ObserveCall records one completed call.
func (m *Metrics) ObserveCall(op, outcome string, elapsed time.Duration) {
	m.Calls.WithLabelValues(op, outcome).Inc()
	m.Duration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// IncrementRetries counts one retry attempt for the operation.
func (m *Metrics) IncrementRetries(op string) {
	m.Retries.WithLabelValues(op).Inc()
}

// Noop returns metrics backed by an isolated registry, for tests.
func Noop() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		Calls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "idverse_chain_calls_total",
		}, []string{"op", "outcome"}),
		Retries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "idverse_chain_retries_total",
		}, []string{"op"}),
		Duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name: "idverse_chain_call_duration_seconds",
		}, []string{"op"}),
	}
}
