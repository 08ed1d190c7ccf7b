package collection

import (
	"github.com/prometheus/client_golang/prometheus"

	"bookshelf/internal/models"
)

// Metrics exposes store activity to Prometheus. A nil *Metrics records nothing.
type Metrics struct {
	hydrations     *prometheus.CounterVec
	remoteFailures *prometheus.CounterVec
	items          *prometheus.GaugeVec
	hydrated       prometheus.Gauge
}

// NewMetrics creates the store metrics and registers them on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		hydrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookshelf",
			Name:      "hydrations_total",
			Help:      "Startup hydrations by the source that supplied the collection.",
		}, []string{"source"}),
		remoteFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookshelf",
			Name:      "remote_failures_total",
			Help:      "Failed remote store calls by operation.",
		}, []string{"op"}),
		items: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "bookshelf",
			Name:      "items",
			Help:      "Items currently held in memory per group.",
		}, []string{"group"}),
		hydrated: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bookshelf",
			Name:      "hydrated",
			Help:      "1 once the collection has been hydrated.",
		}),
	}
	reg.MustRegister(m.hydrations, m.remoteFailures, m.items, m.hydrated)
	return m
}

func (m *Metrics) hydratedFrom(source string) {
	if m == nil {
		return
	}
	m.hydrations.WithLabelValues(source).Inc()
	m.hydrated.Set(1)
}

func (m *Metrics) remoteFailed(op string) {
	if m == nil {
		return
	}
	m.remoteFailures.WithLabelValues(op).Inc()
}

func (m *Metrics) observe(c models.Collection) {
	if m == nil {
		return
	}
	for _, g := range models.Groups {
		m.items.WithLabelValues(string(g)).Set(float64(len(c.Group(g))))
	}
}
