package racecontrol

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	state        prometheus.Gauge
	transitions  *prometheus.CounterVec
	raceDuration prometheus.Histogram
}

func newMetrics(registry *prometheus.Registry) (*metrics, error) {
	m := &metrics{
		state: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "racegame",
			Name:      "race_state",
			Help:      "Current race state (0 counting down, 1 running, 2 over).",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "racegame",
			Name:      "race_state_transitions_total",
			Help:      "Number of race state transitions, by the state entered.",
		}, []string{"state"}),
		raceDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "racegame",
			Name:      "race_duration_seconds",
			Help:      "Duration of completed races.",
			Buckets:   []float64{15, 30, 60, 120, 300, 600, 1200},
		}),
	}

	for _, collector := range []prometheus.Collector{m.state, m.transitions, m.raceDuration} {
		if err := registry.Register(collector); err != nil {
			return nil, err
		}
	}

	return m, nil
}
