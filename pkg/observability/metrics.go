// Package observability exposes prometheus collectors for the engine's
// hot-path events. All helpers are nil-safe so instrumented code never has
// to branch on whether metrics are enabled.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the engine's collectors.
type Metrics struct {
	compiles    prometheus.Counter
	transitions *prometheus.CounterVec
	sessions    prometheus.Counter
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		compiles: factory.NewCounter(prometheus.CounterOpts{
			Name: "onramp_process_compiles_total",
			Help: "Process definitions compiled, cache misses included.",
		}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "onramp_transitions_total",
			Help: "Advance attempts by process and outcome.",
		}, []string{"process", "result"}),
		sessions: factory.NewCounter(prometheus.CounterOpts{
			Name: "onramp_sessions_started_total",
			Help: "Execution sessions initialized.",
		}),
	}
}

// ObserveCompile counts one compilation.
func (m *Metrics) ObserveCompile() {
	if m == nil {
		return
	}
	m.compiles.Inc()
}

// ObserveTransition counts one advance attempt.
func (m *Metrics) ObserveTransition(process string, blocked bool) {
	if m == nil {
		return
	}
	result := "advanced"
	if blocked {
		result = "blocked"
	}
	m.transitions.WithLabelValues(process, result).Inc()
}

// ObserveSessionStart counts one session initialization.
func (m *Metrics) ObserveSessionStart() {
	if m == nil {
		return
	}
	m.sessions.Inc()
}
