package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Rejected       prometheus.Counter
	StoreErrors    prometheus.Counter
	FallbackChecks prometheus.Counter
	CircuitOpen    prometheus.Gauge
	Transitions    *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Rejected: f.NewCounter(prometheus.CounterOpts{
			Name: "registrar_ratelimit_rejected_total",
			Help: "Requests rejected with 429 by the rate limiter",
		}),
		StoreErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "registrar_ratelimit_store_errors_total",
			Help: "Errors returned by the primary rate limit store",
		}),
		FallbackChecks: f.NewCounter(prometheus.CounterOpts{
			Name: "registrar_ratelimit_fallback_checks_total",
			Help: "Checks answered by the in-memory fallback limiter",
		}),
		CircuitOpen: f.NewGauge(prometheus.GaugeOpts{
			Name: "registrar_ratelimit_circuit_open",
			Help: "1 while the primary rate limit store is bypassed",
		}),
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "registrar_ratelimit_route_changes_total",
			Help: "Times rate limit checks switched between the shared store and process memory",
		}, []string{"to"}),
	}
}

func (m *Metrics) IncrementRejected() {
	if m == nil {
		return
	}
	m.Rejected.Inc()
}

func (m *Metrics) IncrementStoreErrors() {
	if m == nil {
		return
	}
	m.StoreErrors.Inc()
}

func (m *Metrics) IncrementFallbackChecks() {
	if m == nil {
		return
	}
	m.FallbackChecks.Inc()
}

// RecordRouteChange tracks a switch to ("fallback") or back from ("primary")
// the in-memory limiter.
func (m *Metrics) RecordRouteChange(to string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(to).Inc()
	if to == "fallback" {
		m.CircuitOpen.Set(1)
		return
	}
	m.CircuitOpen.Set(0)
}
