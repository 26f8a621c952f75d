package state

import "github.com/prometheus/client_golang/prometheus"

const (
	refreshOK      = "ok"
	refreshPartial = "partial"
	refreshFailed  = "failed"
	refreshStale   = "stale"
)

// Metrics counts refresh outcomes and tracks live containers.
type Metrics struct {
	refreshes  *prometheus.CounterVec
	containers prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg when it is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "libflow",
			Subsystem: "state",
			Name:      "refreshes_total",
			Help:      "Library refreshes by outcome (ok, partial, failed, stale).",
		}, []string{"outcome"}),
		containers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "libflow",
			Subsystem: "state",
			Name:      "containers",
			Help:      "Session state containers currently held in memory.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.refreshes, m.containers)
	}
	return m
}

func (m *Metrics) refresh(outcome string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) setContainers(n int) {
	if m == nil {
		return
	}
	m.containers.Set(float64(n))
}
