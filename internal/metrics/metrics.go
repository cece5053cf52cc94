package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects counters for the map view and the decision dialog.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	refreshes    *prometheus.CounterVec
	markers      prometheus.Gauge
	reservations *prometheus.CounterVec
	finishes     *prometheus.CounterVec
	syncs        *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parkd",
			Name:      "map_refreshes_total",
			Help:      "Parking list refreshes by result.",
		}, []string{"result"}),
		markers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "parkd",
			Name:      "map_markers",
			Help:      "Markers currently displayed on the map.",
		}),
		reservations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parkd",
			Name:      "reservation_attempts_total",
			Help:      "Reservation attempts by outcome.",
		}, []string{"outcome"}),
		finishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parkd",
			Name:      "reservation_finishes_total",
			Help:      "Finish attempts by outcome.",
		}, []string{"outcome"}),
		syncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parkd",
			Name:      "status_syncs_total",
			Help:      "Active reservation status syncs by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.refreshes, m.markers, m.reservations, m.finishes, m.syncs)
	return m
}

// Refresh records a map refresh result and, on success, the marker count.
func (m *Metrics) Refresh(result string, markers int) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(result).Inc()
	if result == "ok" {
		m.markers.Set(float64(markers))
	}
}

// Reservation records the outcome of a reservation attempt.
func (m *Metrics) Reservation(outcome string) {
	if m == nil {
		return
	}
	m.reservations.WithLabelValues(outcome).Inc()
}

// Finish records the outcome of a finish attempt.
func (m *Metrics) Finish(outcome string) {
	if m == nil {
		return
	}
	m.finishes.WithLabelValues(outcome).Inc()
}

// Sync records the result of a status sync.
func (m *Metrics) Sync(result string) {
	if m == nil {
		return
	}
	m.syncs.WithLabelValues(result).Inc()
}
