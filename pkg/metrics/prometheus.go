// Package metrics exposes optional Prometheus instrumentation for the
// Monte Carlo failure-analysis engine. Nothing in the
// analysis core requires metrics to be initialized — a nil *Recorder is a
// valid no-op.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder is the set of counters/histograms the FailureManager reports
// into: iterations, unique patterns, iteration durations (serial runs
// only) and workers in flight. PlacementRatio and MSDProbesTotal are
// registered, but nothing in this module records into them. It is safe
// for concurrent use by worker goroutines.
type Recorder struct {
	IterationsTotal     *prometheus.CounterVec
	UniquePatternsTotal prometheus.Counter
	IterationDuration    prometheus.Histogram
	PlacementRatio      prometheus.Histogram
	WorkersInFlight     prometheus.Gauge
	MSDProbesTotal      *prometheus.CounterVec
}

// NewRecorder registers the engine's collectors under namespace/subsystem.
func NewRecorder(namespace, subsystem string) *Recorder {
	return &Recorder{
		IterationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "monte_carlo_iterations_total",
				Help:      "Total Monte Carlo iterations run, by analysis function.",
			},
			[]string{"analysis_function"},
		),
		UniquePatternsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "monte_carlo_unique_patterns_total",
				Help:      "Total unique failure patterns discovered across all runs.",
			},
		),
		IterationDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "monte_carlo_iteration_duration_seconds",
				Help:      "Duration of a single analysis-function invocation.",
				Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
			},
		),
		PlacementRatio: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "demand_placement_ratio",
				Help:      "placed/demand ratio observed across placement-engine runs.",
				Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
			},
		),
		WorkersInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "monte_carlo_workers_in_flight",
				Help:      "Number of worker goroutines currently evaluating a failure pattern.",
			},
		),
		MSDProbesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "msd_probes_total",
				Help:      "Total alpha probes evaluated by the MSD search, by feasibility.",
			},
			[]string{"feasible"},
		),
	}
}
