package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "threatdesk"
)

var (
	refreshDurationBuckets = []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120}

	// Refresh Metrics
	RefreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "refresh_duration_seconds",
		Help:      "Time taken for a full refresh cycle across all sources.",
		Buckets:   refreshDurationBuckets,
	})

	RefreshRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "refresh_runs_total",
		Help:      "Count of refresh cycles by outcome.",
	}, []string{"status"})

	RefreshLastSuccessTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "refresh_last_success_timestamp_seconds",
		Help:      "Unix timestamp of the last published snapshot.",
	})

	// Source Metrics
	SourceFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "source_fetches_total",
		Help:      "Count of source reads by outcome.",
	}, []string{"source", "status"})

	SourceFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "source_fetch_duration_seconds",
		Help:      "Time taken to read one source.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"source"})

	SourceRecordsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "source_records_dropped_total",
		Help:      "Records discarded during normalization.",
	}, []string{"source"})

	FindingsTotal = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "findings_total",
		Help:      "Number of findings in the latest snapshot.",
	}, []string{"source"})

	DuplicateFindingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "duplicate_findings_total",
		Help:      "Duplicate finding ids resolved during aggregation.",
	}, []string{"kind"})

	// Workflow Metrics
	RemediationGenerationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "remediation_generations_total",
		Help:      "Remediation artifact requests by category and outcome.",
	}, []string{"category", "status"})

	StatusTogglesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "status_toggles_total",
		Help:      "Status write-backs by source and outcome.",
	}, []string{"source", "status"})
)
