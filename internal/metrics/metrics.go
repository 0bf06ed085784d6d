// Package metrics records form activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dlovans/factform/pkg/form"
)

// Metrics holds all Prometheus metrics for the form server. A nil *Metrics
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Facts written by fields, by input kind
	FactsCommitted *prometheus.CounterVec
	// Values the store refused, by input kind
	FactsRejected *prometheus.CounterVec
	// Navigation gate evaluations by outcome
	GateEvaluations *prometheus.CounterVec
	// Collection items added and removed by the user
	ItemsAdded   prometheus.Counter
	ItemsRemoved prometheus.Counter
	// Signals published on the bus
	Signals *prometheus.CounterVec
	// Live sessions held by the server
	Sessions prometheus.Gauge
}

var _ form.Recorder = (*Metrics)(nil)

// New creates a Metrics instance registered on its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		FactsCommitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "factform_facts_committed_total",
			Help: "Total facts written from form fields by input kind",
		}, []string{"kind"}),
		FactsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "factform_facts_rejected_total",
			Help: "Total field values rejected by the fact store by input kind",
		}, []string{"kind"}),
		GateEvaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "factform_gate_evaluations_total",
			Help: "Total navigation gate evaluations by outcome",
		}, []string{"passed"}),
		ItemsAdded: factory.NewCounter(prometheus.CounterOpts{
			Name: "factform_collection_items_added_total",
			Help: "Total collection items added",
		}),
		ItemsRemoved: factory.NewCounter(prometheus.CounterOpts{
			Name: "factform_collection_items_removed_total",
			Help: "Total collection items removed",
		}),
		Signals: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "factform_signals_published_total",
			Help: "Total signals published on the form bus",
		}, []string{"signal"}),
		Sessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "factform_sessions",
			Help: "Number of form sessions held in memory",
		}),
	}
}

// Registry returns the registry holding every metric.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// FactCommitted counts a fact written by a field.
func (m *Metrics) FactCommitted(kind string) {
	if m != nil {
		m.FactsCommitted.WithLabelValues(kind).Inc()
	}
}

// FactRejected counts a value the store refused.
func (m *Metrics) FactRejected(kind string) {
	if m != nil {
		m.FactsRejected.WithLabelValues(kind).Inc()
	}
}

// GateEvaluated counts a navigation gate check.
func (m *Metrics) GateEvaluated(passed bool) {
	if m != nil {
		m.GateEvaluations.WithLabelValues(strconv.FormatBool(passed)).Inc()
	}
}

func (m *Metrics) ItemAdded() {
	if m != nil {
		m.ItemsAdded.Inc()
	}
}

func (m *Metrics) ItemRemoved() {
	if m != nil {
		m.ItemsRemoved.Inc()
	}
}

// SignalPublished counts a signal published on the bus.
func (m *Metrics) SignalPublished(s form.Signal) {
	if m != nil {
		m.Signals.WithLabelValues(string(s)).Inc()
	}
}

// SetSessions records how many sessions are live.
func (m *Metrics) SetSessions(n int) {
	if m != nil {
		m.Sessions.Set(float64(n))
	}
}
