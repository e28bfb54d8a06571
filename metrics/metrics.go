// Package metrics exposes Prometheus instrumentation for the session layer.
// A single Metrics value is shared between the store (creations, closes,
// live count) and the middleware factory (rejected calls).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reject reasons used as the "reason" label on CallsRejected.
const (
	ReasonEmptyCookie    = "empty_cookie"
	ReasonUnknownSession = "unknown_session"
)

// Metrics holds the session-layer collectors. Construct with New; the zero
// value is not usable.
type Metrics struct {
	SessionsCreated prometheus.Counter
	SessionsClosed  prometheus.Counter
	ActiveSessions  prometheus.Gauge
	CallsRejected   *prometheus.CounterVec
}

// New registers the session collectors with reg and returns them. Pass
// prometheus.DefaultRegisterer for the usual process-wide registry, or a
// fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SessionsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "flight_sessions_created_total",
			Help: "Sessions created by the store.",
		}),
		SessionsClosed: f.NewCounter(prometheus.CounterOpts{
			Name: "flight_sessions_closed_total",
			Help: "Sessions removed from the store by client request.",
		}),
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "flight_sessions_active",
			Help: "Sessions currently registered in the store.",
		}),
		CallsRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "flight_session_calls_rejected_total",
			Help: "Calls rejected before handler dispatch, by reason.",
		}, []string{"reason"}),
	}
}
