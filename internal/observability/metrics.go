package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the update pipeline.
// Counters are organized by level: whole runs, per-record outcomes, data
// update kinds, recorded errors, and store writes. Everything is registered
// via promauto against the default Prometheus registry.
type Metrics struct {
	// RunsStarted counts update runs initiated.
	RunsStarted prometheus.Counter

	// RunsCompleted counts runs that finished, including runs with
	// partial per-record failures.
	RunsCompleted prometheus.Counter

	// RunsFailed counts runs aborted by a fatal error or cancellation.
	RunsFailed prometheus.Counter

	// RunDuration observes the end-to-end duration of runs in seconds.
	RunDuration prometheus.Histogram

	// PackagesProcessed counts records that entered per-record processing.
	PackagesProcessed prometheus.Counter

	// PackagesUpdated counts records with at least one pending field change,
	// whether written live or captured by a dry run.
	PackagesUpdated prometheus.Counter

	// PackagesSkipped counts records processed without any pending change.
	PackagesSkipped prometheus.Counter

	// PackagesFailed counts records whose processing or write-back failed.
	PackagesFailed prometheus.Counter

	// DataUpdates counts records enriched per data kind
	// (repository, publication, github_data, citation).
	DataUpdates *prometheus.CounterVec

	// RunErrors counts recorded errors by category.
	RunErrors *prometheus.CounterVec

	// StoreWrites counts successful record write-backs.
	StoreWrites prometheus.Counter

	// StoreWriteFailures counts write-backs that exhausted their retries.
	StoreWriteFailures prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		RunsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_started_total",
			Help:      "Total number of update runs started",
		}),
		RunsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_completed_total",
			Help:      "Total number of update runs completed",
		}),
		RunsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_failed_total",
			Help:      "Total number of update runs aborted by a fatal error",
		}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of update runs in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1200, 1800, 3600},
		}),

		PackagesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packages_processed_total",
			Help:      "Total number of package records processed",
		}),
		PackagesUpdated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packages_updated_total",
			Help:      "Total number of package records with pending field changes",
		}),
		PackagesSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packages_skipped_total",
			Help:      "Total number of package records processed without changes",
		}),
		PackagesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packages_failed_total",
			Help:      "Total number of package records that failed",
		}),

		DataUpdates: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "data_updates_total",
			Help:      "Total number of package enrichments by data kind",
		}, []string{"kind"}),
		RunErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "run_errors_total",
			Help:      "Total number of errors recorded during runs by category",
		}, []string{"category"}),

		StoreWrites: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_writes_total",
			Help:      "Total number of successful record write-backs",
		}),
		StoreWriteFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_write_failures_total",
			Help:      "Total number of write-backs that exhausted their retries",
		}),
	}
}

// RecordRunStarted records that an update run has started.
func (m *Metrics) RecordRunStarted() {
	m.RunsStarted.Inc()
}

// RecordRunCompleted records that an update run has finished.
func (m *Metrics) RecordRunCompleted(durationSeconds float64) {
	m.RunsCompleted.Inc()
	m.RunDuration.Observe(durationSeconds)
}

// RecordRunFailed records that an update run was aborted.
func (m *Metrics) RecordRunFailed(durationSeconds float64) {
	m.RunsFailed.Inc()
	m.RunDuration.Observe(durationSeconds)
}

// RecordPackageProcessed records that a package record entered processing.
func (m *Metrics) RecordPackageProcessed() {
	m.PackagesProcessed.Inc()
}

// RecordPackageUpdated records a package record with pending field changes.
func (m *Metrics) RecordPackageUpdated() {
	m.PackagesUpdated.Inc()
}

// RecordPackageSkipped records a package record processed without changes.
func (m *Metrics) RecordPackageSkipped() {
	m.PackagesSkipped.Inc()
}

// RecordPackageFailed records a package record that failed.
func (m *Metrics) RecordPackageFailed() {
	m.PackagesFailed.Inc()
}

// RecordDataUpdate records a package enrichment of the given kind.
func (m *Metrics) RecordDataUpdate(kind string) {
	m.DataUpdates.WithLabelValues(kind).Inc()
}

// RecordRunError records an error of the given category.
func (m *Metrics) RecordRunError(category string) {
	m.RunErrors.WithLabelValues(category).Inc()
}

// RecordStoreWrite records a successful record write-back.
func (m *Metrics) RecordStoreWrite() {
	m.StoreWrites.Inc()
}

// RecordStoreWriteFailure records a write-back that exhausted its retries.
func (m *Metrics) RecordStoreWriteFailure() {
	m.StoreWriteFailures.Inc()
}
