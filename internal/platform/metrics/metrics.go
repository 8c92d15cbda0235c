// Package metrics owns the Prometheus collectors exported at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "frontdesk"

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	registry *prometheus.Registry

	checkInDecisions *prometheus.CounterVec
	waitlistOps      *prometheus.CounterVec
	waitlistWaiting  prometheus.Gauge
}

// New registers the collectors on a fresh registry together with the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		checkInDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkin_decisions_total",
			Help:      "Check-in decisions by policy, outcome and denial reason.",
		}, []string{"policy", "outcome", "reason"}),
		waitlistOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "waitlist_operations_total",
			Help:      "Waitlist operations by kind and result.",
		}, []string{"operation", "result"}),
		waitlistWaiting: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "waitlist_waiting",
			Help:      "Entries currently waiting, as last observed after a waitlist mutation.",
		}),
	}
}

func (m *Metrics) CheckInDecision(policy, outcome, reason string) {
	if m == nil {
		return
	}
	m.checkInDecisions.WithLabelValues(policy, outcome, reason).Inc()
}

func (m *Metrics) WaitlistOperation(operation, result string) {
	if m == nil {
		return
	}
	m.waitlistOps.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) SetWaitlistWaiting(n int) {
	if m == nil {
		return
	}
	m.waitlistWaiting.Set(float64(n))
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
