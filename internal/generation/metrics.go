package generation

import (
	"github.com/prometheus/client_golang/prometheus"
)

// metrics are registered on the service's own registry so several services
// (tests, embedded use) never collide on the default one
type metrics struct {
	started  *prometheus.CounterVec
	finished *prometheus.CounterVec
	inFlight prometheus.Gauge
	duration *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		started: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roost",
			Name:      "generations_started_total",
			Help:      "Generation jobs accepted, by architecture.",
		}, []string{"architecture"}),
		finished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roost",
			Name:      "generations_finished_total",
			Help:      "Generation jobs resolved, by architecture and final status.",
		}, []string{"architecture", "status"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "roost",
			Name:      "generations_in_flight",
			Help:      "Generation jobs currently running.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "roost",
			Name:      "generation_duration_seconds",
			Help:      "Time from job start to resolution.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"architecture"}),
	}
	reg.MustRegister(m.started, m.finished, m.inFlight, m.duration)
	return m
}
