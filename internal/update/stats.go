// Package update orchestrates enrichment runs over the vault catalog: it
// selects records from the store, fans each batch out to the repository and
// publication sources, applies the merge policy, and writes the resulting
// field changes back (or captures them for a dry run).
package update

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/caddvault/vault-updater/internal/observability"
)

// ErrorCategory classifies a recorded run error by the phase that produced it.
type ErrorCategory string

const (
	// CategoryRepository marks failures while fetching repository metadata.
	CategoryRepository ErrorCategory = "repository"

	// CategoryPublication marks failures while resolving publication data.
	CategoryPublication ErrorCategory = "publication"

	// CategoryProcessing marks unexpected failures inside per-record
	// processing.
	CategoryProcessing ErrorCategory = "processing"

	// CategoryStoreWrite marks write-backs that exhausted their retries.
	CategoryStoreWrite ErrorCategory = "store_write"

	// CategoryCritical marks fatal errors that abort the whole run.
	CategoryCritical ErrorCategory = "critical"
)

// RunError is one failure recorded during a run. RecordID is "system" for
// errors not tied to a single record.
type RunError struct {
	RecordID  string
	Message   string
	Category  ErrorCategory
	Timestamp time.Time
}

// Change is one field change captured during a dry run.
type Change struct {
	RecordID string
	Name     string
	Field    string
	Old      string
	New      string
}

// RunStatistics accumulates counters, errors, and dry-run changes for one
// run. It is safe for concurrent use; per-record goroutines report into the
// same instance. When metrics is non-nil every increment is mirrored into
// the Prometheus counters.
type RunStatistics struct {
	mu      sync.Mutex
	metrics *observability.Metrics

	runID    string
	started  time.Time
	finished time.Time

	total     int
	processed int
	updated   int
	skipped   int
	failed    int

	repositoryUpdates  int
	publicationUpdates int
	githubDataUpdates  int
	citationUpdates    int

	errors  []RunError
	changes []Change
}

// NewRunStatistics creates an accumulator for one run with a fresh run id.
// The metrics parameter may be nil (metrics recording will be skipped).
func NewRunStatistics(metrics *observability.Metrics) *RunStatistics {
	return &RunStatistics{
		metrics: metrics,
		runID:   uuid.NewString(),
		started: time.Now().UTC(),
	}
}

// RunID returns the run's correlation id.
func (s *RunStatistics) RunID() string {
	return s.runID
}

// SetTotal records the number of records selected for the run.
func (s *RunStatistics) SetTotal(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total = n
}

// AddProcessed counts a record that entered per-record processing.
func (s *RunStatistics) AddProcessed() {
	s.mu.Lock()
	s.processed++
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordPackageProcessed()
	}
}

// AddUpdated counts a record with at least one pending field change.
func (s *RunStatistics) AddUpdated() {
	s.mu.Lock()
	s.updated++
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordPackageUpdated()
	}
}

// AddSkipped counts a record processed without any pending change.
func (s *RunStatistics) AddSkipped() {
	s.mu.Lock()
	s.skipped++
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordPackageSkipped()
	}
}

// AddFailed counts a record whose processing or write-back failed.
func (s *RunStatistics) AddFailed() {
	s.mu.Lock()
	s.failed++
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordPackageFailed()
	}
}

// AddRepositoryUpdate counts a record enriched with repository data.
func (s *RunStatistics) AddRepositoryUpdate() {
	s.mu.Lock()
	s.repositoryUpdates++
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordDataUpdate("repository")
	}
}

// AddPublicationUpdate counts a record enriched with publication data.
func (s *RunStatistics) AddPublicationUpdate() {
	s.mu.Lock()
	s.publicationUpdates++
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordDataUpdate("publication")
	}
}

// AddGitHubDataUpdate counts a record whose repository fetch produced data.
func (s *RunStatistics) AddGitHubDataUpdate() {
	s.mu.Lock()
	s.githubDataUpdates++
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordDataUpdate("github_data")
	}
}

// AddCitationUpdate counts a record with a refreshed citation count.
func (s *RunStatistics) AddCitationUpdate() {
	s.mu.Lock()
	s.citationUpdates++
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordDataUpdate("citation")
	}
}

// RecordError appends an error entry for the given record and category.
func (s *RunStatistics) RecordError(recordID string, category ErrorCategory, message string) {
	entry := RunError{
		RecordID:  recordID,
		Message:   message,
		Category:  category,
		Timestamp: time.Now().UTC(),
	}

	s.mu.Lock()
	s.errors = append(s.errors, entry)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordRunError(string(category))
	}
}

// RecordChange appends a dry-run change entry.
func (s *RunStatistics) RecordChange(c Change) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changes = append(s.changes, c)
}

// Finish stamps the finish time (once) and returns a summary snapshot.
func (s *RunStatistics) Finish() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished.IsZero() {
		s.finished = time.Now().UTC()
	}

	errs := make([]RunError, len(s.errors))
	copy(errs, s.errors)
	changes := make([]Change, len(s.changes))
	copy(changes, s.changes)

	return Summary{
		RunID:              s.runID,
		Started:            s.started,
		Finished:           s.finished,
		Duration:           s.finished.Sub(s.started),
		Total:              s.total,
		Processed:          s.processed,
		Updated:            s.updated,
		Skipped:            s.skipped,
		Failed:             s.failed,
		RepositoryUpdates:  s.repositoryUpdates,
		PublicationUpdates: s.publicationUpdates,
		GitHubDataUpdates:  s.githubDataUpdates,
		CitationUpdates:    s.citationUpdates,
		Errors:             errs,
		Changes:            changes,
	}
}

// Summary is an immutable snapshot of the accumulated run statistics.
type Summary struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	Duration time.Duration

	Total     int
	Processed int
	Updated   int
	Skipped   int
	Failed    int

	RepositoryUpdates  int
	PublicationUpdates int
	GitHubDataUpdates  int
	CitationUpdates    int

	Errors  []RunError
	Changes []Change
}

// SuccessRate returns the share of processed records that did not fail, as a
// percentage. Zero processed records yield zero.
func (s Summary) SuccessRate() float64 {
	if s.Processed == 0 {
		return 0
	}
	return float64(s.Processed-s.Failed) / float64(s.Processed) * 100
}
