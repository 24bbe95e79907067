// Package metrics holds the Prometheus collectors for imports and headshot
// fetches. A nil *Import is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Import tracks import runs, row outcomes and image fetches.
type Import struct {
	runs     *prometheus.CounterVec
	rows     *prometheus.CounterVec
	duration prometheus.Histogram
	images   *prometheus.CounterVec
}

// NewImport creates the collectors and registers them on reg.
func NewImport(reg prometheus.Registerer) *Import {
	m := &Import{
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "profile_import_runs_total",
				Help: "Import runs by phase and import mode.",
			},
			[]string{"phase", "mode"},
		),
		rows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "profile_import_rows_total",
				Help: "Imported rows by decided action and final outcome.",
			},
			[]string{"action", "outcome"},
		),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "profile_import_duration_seconds",
			Help:    "Wall time of an import run.",
			Buckets: prometheus.DefBuckets,
		}),
		images: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "profile_image_fetch_total",
				Help: "Headshot fetch attempts by outcome.",
			},
			[]string{"outcome"},
		),
	}
	reg.MustRegister(m.runs, m.rows, m.duration, m.images)
	return m
}

// Run records one preview or process run.
func (m *Import) Run(phase, mode string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(phase, mode).Inc()
	m.duration.Observe(elapsed.Seconds())
}

// Row records the outcome of one processed row.
func (m *Import) Row(action, outcome string) {
	if m == nil {
		return
	}
	m.rows.WithLabelValues(action, outcome).Inc()
}

// Image records a headshot fetch attempt ("ok" or "failed").
func (m *Import) Image(outcome string) {
	if m == nil {
		return
	}
	m.images.WithLabelValues(outcome).Inc()
}
