// Package metrics keeps Prometheus counters for model builds and solves on
// a dedicated registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Registry *prometheus.Registry

	Builds        *prometheus.CounterVec
	Columns       prometheus.Gauge
	Rows          prometheus.Gauge
	Solves        *prometheus.CounterVec
	SolveDuration *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Builds: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "packsched_builds_total", Help: "Model builds by mode."},
			[]string{"mode"},
		),
		Columns: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "packsched_model_columns", Help: "Columns in the last built model."},
		),
		Rows: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "packsched_model_rows", Help: "Rows in the last built model."},
		),
		Solves: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "packsched_solves_total", Help: "Solves by backend and status."},
			[]string{"solver", "status"},
		),
		SolveDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "packsched_solve_duration_seconds",
				Help:    "Wall time of solves in seconds.",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300, 1800},
			},
			[]string{"solver"},
		),
	}
	m.Registry.MustRegister(m.Builds, m.Columns, m.Rows, m.Solves, m.SolveDuration)
	return m
}

// ObserveBuild records a built model's size.
func (m *Metrics) ObserveBuild(mode string, columns, rows int) {
	m.Builds.WithLabelValues(mode).Inc()
	m.Columns.Set(float64(columns))
	m.Rows.Set(float64(rows))
}

func (m *Metrics) ObserveSolve(solver, status string, elapsed time.Duration) {
	m.Solves.WithLabelValues(solver, status).Inc()
	m.SolveDuration.WithLabelValues(solver).Observe(elapsed.Seconds())
}

// WriteTextfile writes the registry in the text exposition format for the
// node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
