// Package metrics records generation and comparison activity as Prometheus
// metrics. Each Metrics owns its registry so a run can write its own textfile
// for the node exporter textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Zone outcomes recorded by ObserveZone.
const (
	ZoneGenerated = "generated"
	ZoneCached    = "cached"
	ZoneSkipped   = "skipped"
)

// Metrics provides observability for generator and comparator runs. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Zones processed by outcome
	Zones *prometheus.CounterVec

	// Per-zone sampling latency
	ZoneLatency prometheus.Histogram

	// Bisection steps spent per located transition
	BisectIterations prometheus.Histogram

	// Items emitted by kind: "transition", "sample"
	Items *prometheus.CounterVec

	// Comparison results by verdict
	Comparisons *prometheus.CounterVec

	// Comparator diagnostics by category
	Diagnostics *prometheus.CounterVec
}

// New creates a Metrics instance with all metrics registered on a fresh
// registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		Zones: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tzval_zones_total",
			Help: "Zones processed by the generator by outcome",
		}, []string{"outcome"}),
		ZoneLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "tzval_zone_duration_seconds",
			Help:    "Duration of sampling one zone",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		BisectIterations: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "tzval_bisect_iterations",
			Help:    "Bisection iterations per located transition",
			Buckets: prometheus.LinearBuckets(1, 2, 9),
		}),
		Items: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tzval_items_total",
			Help: "Test items emitted by kind",
		}, []string{"kind"}),
		Comparisons: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tzval_comparisons_total",
			Help: "Document comparisons by verdict",
		}, []string{"verdict"}),
		Diagnostics: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tzval_diagnostics_total",
			Help: "Comparator diagnostics by category",
		}, []string{"category"}),
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveZone records one processed zone.
func (m *Metrics) ObserveZone(outcome string, d time.Duration) {
	if m != nil {
		m.Zones.WithLabelValues(outcome).Inc()
		if outcome != ZoneSkipped {
			m.ZoneLatency.Observe(d.Seconds())
		}
	}
}

// ObserveBisection records the iterations spent on one transition.
func (m *Metrics) ObserveBisection(iterations int) {
	if m != nil {
		m.BisectIterations.Observe(float64(iterations))
	}
}

// AddItems counts emitted items.
func (m *Metrics) AddItems(kind string, n int) {
	if m != nil && n > 0 {
		m.Items.WithLabelValues(kind).Add(float64(n))
	}
}

// ObserveComparison records a comparison verdict and its diagnostic
// categories.
func (m *Metrics) ObserveComparison(valid bool, categories []string) {
	if m == nil {
		return
	}
	verdict := "fail"
	if valid {
		verdict = "pass"
	}
	m.Comparisons.WithLabelValues(verdict).Inc()
	for _, c := range categories {
		m.Diagnostics.WithLabelValues(c).Inc()
	}
}

// WriteTextfile writes every registered metric to path in the text exposition
// format. The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics %q: %w", path, err)
	}
	return nil
}
