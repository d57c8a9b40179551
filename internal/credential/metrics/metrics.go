package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the credential lifecycle.
type Metrics struct {
	Issued         prometheus.Counter
	Revoked        prometheus.Counter
	Verifications  *prometheus.CounterVec
	ChecksFailed   *prometheus.CounterVec
	VerifyDuration prometheus.Histogram
}

func newWith(factory promauto.Factory) *Metrics {
	return &Metrics{
		Issued: factory.NewCounter(prometheus.CounterOpts{
			Name: "idverse_credentials_issued_total",
			Help: "Total credentials issued",
		}),
		Revoked: factory.NewCounter(prometheus.CounterOpts{
			Name: "idverse_credentials_revoked_total",
			Help: "Total credentials revoked",
		}),
		Verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "idverse_verifications_total",
			Help: "Total verification calls by verdict",
		}, []string{"verdict"}),
		ChecksFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "idverse_verification_checks_failed_total",
			Help: "Total failed verification checks by check name",
		}, []string{"check"}),
		VerifyDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "idverse_verify_duration_seconds",
			Help:    "Verification latency including chain status lookup",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// New creates and registers all credential metrics on the default registry.
func New() *Metrics {
	return newWith(promauto.With(prometheus.DefaultRegisterer))
}

// Noop returns metrics on an isolated registry, for tests.
func Noop() *Metrics {
	return newWith(promauto.With(prometheus.NewRegistry()))
}

// ObserveVerification records one verification verdict with its failed
// checks.
func (m *Metrics) ObserveVerification(verified bool, failedChecks []string) {
	verdict := "verified"
	if !verified {
		verdict = "failed"
	}
	m.Verifications.WithLabelValues(verdict).Inc()
	for _, check := range failedChecks {
		m.ChecksFailed.WithLabelValues(check).Inc()
	}
}
