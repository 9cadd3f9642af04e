// Package metrics registers the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// GeocodeAttempts counts provider calls by provider and outcome
	// (ok, miss, error, not_configured).
	GeocodeAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "afisha",
		Name:      "geocode_attempts_total",
		Help:      "Geocoding provider attempts by provider and outcome",
	}, []string{"provider", "outcome"})

	// CacheLookups counts address cache lookups by result
	// (hit, unresolved_hit, miss, evicted).
	CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "afisha",
		Name:      "geocode_cache_lookups_total",
		Help:      "Address cache lookups by result",
	}, []string{"result"})

	// RunEvents reports added/updated/deleted counts of the last run.
	RunEvents = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "afisha",
		Name:      "run_events",
		Help:      "Events added/updated/deleted by the last sync run",
	}, []string{"action"})

	// RowsSkipped counts spreadsheet rows dropped during normalization.
	RowsSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "afisha",
		Name:      "rows_skipped_total",
		Help:      "Spreadsheet rows skipped as malformed or unresolvable",
	})

	// DatasetSize is the number of events in the persisted dataset.
	DatasetSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "afisha",
		Name:      "dataset_events",
		Help:      "Events in the persisted dataset after the last run",
	})

	// RunDuration summarizes full sync cycle durations.
	RunDuration = prometheus.NewSummary(prometheus.SummaryOpts{
		Namespace: "afisha",
		Name:      "run_duration_seconds",
		Help:      "Time spent per sync run",
	})

	// LastSuccess is the unix timestamp of the last successful run.
	LastSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "afisha",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix timestamp of the last successful sync run",
	})
)

func init() {
	prometheus.MustRegister(
		GeocodeAttempts, CacheLookups, RunEvents,
		RowsSkipped, DatasetSize, RunDuration, LastSuccess,
	)
}
