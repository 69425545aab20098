// Package metrics provides Prometheus metrics for generation and ingestion.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// GenerationRuns counts generate invocations by result.
	GenerationRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dailysets",
			Name:      "generation_runs_total",
			Help:      "Total number of daily set generation runs",
		},
		[]string{"result"},
	)

	// ModeOutcomes counts per-mode generation outcomes.
	ModeOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dailysets",
			Name:      "mode_outcomes_total",
			Help:      "Per-mode generation outcomes",
		},
		[]string{"mode", "status"},
	)

	// SelectedItems observes lineup sizes per mode.
	SelectedItems = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dailysets",
			Name:      "selected_items",
			Help:      "Distribution of lineup sizes",
			Buckets:   []float64{0, 5, 10, 25, 50, 100, 200},
		},
		[]string{"mode"},
	)

	// FreshnessFallbacks counts modes that drew from the unfiltered pool.
	FreshnessFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dailysets",
			Name:      "freshness_fallbacks_total",
			Help:      "Modes whose fresh pool was below the minimum",
		},
		[]string{"mode"},
	)

	// IngestedItems counts items seen by ingestion per source and result.
	IngestedItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dailysets",
			Name:      "ingested_items_total",
			Help:      "Items processed by ingestion",
		},
		[]string{"source", "result"},
	)

	// SourceErrors counts failed source fetches.
	SourceErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dailysets",
			Name:      "source_errors_total",
			Help:      "Failed source fetches",
		},
		[]string{"source"},
	)
)

// RecordRun records the result of a generation run.
func RecordRun(ok bool) {
	result := "success"
	if !ok {
		result = "failure"
	}
	GenerationRuns.WithLabelValues(result).Inc()
}

// RecordMode records a per-mode outcome.
func RecordMode(mode, status string, selected int, fellBack bool) {
	ModeOutcomes.WithLabelValues(mode, status).Inc()
	if status == "generated" {
		SelectedItems.WithLabelValues(mode).Observe(float64(selected))
	}
	if fellBack {
		FreshnessFallbacks.WithLabelValues(mode).Inc()
	}
}

// RecordIngest records per-source ingestion tallies.
func RecordIngest(source string, inserted, duplicates, invalid int) {
	IngestedItems.WithLabelValues(source, "inserted").Add(float64(inserted))
	IngestedItems.WithLabelValues(source, "duplicate").Add(float64(duplicates))
	IngestedItems.WithLabelValues(source, "invalid").Add(float64(invalid))
}

// RecordSourceError records a failed fetch.
func RecordSourceError(source string) {
	SourceErrors.WithLabelValues(source).Inc()
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
