package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	Verifications  *prometheus.CounterVec
	Lockouts       prometheus.Counter
	ConsentToggles *prometheus.CounterVec
	AuditDropped   prometheus.Counter
	RequestLatency *prometheus.HistogramVec
}

// New creates all metrics on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates all metrics on the given registry. Tests pass a
// fresh registry to avoid duplicate-registration panics.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "consentd_kba_verifications_total",
			Help: "KBA verification attempts by outcome",
		}, []string{"outcome"}),
		Lockouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "consentd_kba_lockouts_total",
			Help: "Identifiers locked out after exceeding max attempts",
		}),
		ConsentToggles: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "consentd_consent_toggles_total",
			Help: "Consent toggles by direction",
		}, []string{"direction"}),
		AuditDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "consentd_audit_dropped_total",
			Help: "Audit entries dropped in best-effort mode",
		}),
		RequestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "consentd_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

// ObserveVerification records a verification outcome.
func (m *Metrics) ObserveVerification(outcome string) {
	m.Verifications.WithLabelValues(outcome).Inc()
}

// ObserveToggle records a consent toggle direction.
func (m *Metrics) ObserveToggle(granted bool) {
	direction := "revoked"
	if granted {
		direction = "granted"
	}
	m.ConsentToggles.WithLabelValues(direction).Inc()
}
