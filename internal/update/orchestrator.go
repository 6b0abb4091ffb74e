package update

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog"

	"github.com/caddvault/vault-updater/internal/domain"
	"github.com/caddvault/vault-updater/internal/observability"
	"github.com/caddvault/vault-updater/internal/retry"
	"github.com/caddvault/vault-updater/internal/store"
)

const (
	// DefaultBatchSize is the default number of records per batch.
	DefaultBatchSize = 50

	// DefaultBatchDelay is the default pause between batches.
	DefaultBatchDelay = 5 * time.Second

	// DefaultWriteRetries is the default attempt ceiling for one write-back.
	DefaultWriteRetries = 3

	// DefaultPageSize is the default number of rows per store query.
	DefaultPageSize = 1000

	// maxLoggedErrors caps the error entries echoed into the summary log.
	maxLoggedErrors = 5
)

// Config holds configuration for the update orchestrator.
type Config struct {
	// BatchSize is the number of records processed concurrently per batch.
	BatchSize int

	// BatchDelay is the pause between consecutive batches. The delay is
	// skipped after the final batch.
	BatchDelay time.Duration

	// WriteRetries is the attempt ceiling for one record write-back.
	WriteRetries int

	// PageSize caps the rows fetched per store query.
	PageSize int
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.BatchSize == 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.BatchDelay == 0 {
		c.BatchDelay = DefaultBatchDelay
	}
	if c.WriteRetries == 0 {
		c.WriteRetries = DefaultWriteRetries
	}
	if c.PageSize == 0 {
		c.PageSize = DefaultPageSize
	}
}

// RepositorySource resolves a package's repository URL into hosting
// metadata. An unrecognized URL yields an unset field without error.
type RepositorySource interface {
	RepositoryData(ctx context.Context, rawURL string) (domain.Field[domain.Repository], error)
}

// PublicationSource resolves publication identifiers: preprint status,
// citation counts, journal identity, and impact factors.
type PublicationSource interface {
	CheckPublicationStatus(ctx context.Context, rawURL string) domain.PreprintResolution
	Citations(ctx context.Context, rawURL string) (domain.Field[int64], error)
	Journal(ctx context.Context, rawURL string) (domain.Field[domain.JournalInfo], error)
	ImpactFactor(ctx context.Context, journal domain.JournalInfo) (domain.Field[float64], error)
}

// Dependencies bundles the collaborators an Orchestrator needs.
type Dependencies struct {
	// Store is the catalog backend records are read from and written to.
	Store store.Store

	// Repositories resolves repository hosting metadata.
	Repositories RepositorySource

	// Publications resolves publication status and metadata.
	Publications PublicationSource

	// Metrics may be nil (metrics recording will be skipped).
	Metrics *observability.Metrics

	// Output receives the run summary table. os.Stdout when nil.
	Output io.Writer
}

// RunOptions selects and scopes the records of one run.
type RunOptions struct {
	// DryRun computes and captures changes without writing them.
	DryRun bool

	// IDs selects specific records, bypassing pagination. Mutually
	// exclusive with Limit.
	IDs []string

	// Limit caps the number of records fetched. Zero or negative fetches
	// everything the selection matches.
	Limit int

	// UpdatedBefore keeps only records last updated before the cutoff.
	// The zero time disables the cutoff.
	UpdatedBefore time.Time

	// GitHubOnly keeps only records with a GitHub repository link.
	GitHubOnly bool

	// PublicationsOnly keeps only records with a publication identifier.
	PublicationsOnly bool

	// Output is the dry-run export path. Empty disables the export.
	Output string

	// Format is the dry-run export format ("csv" or "xlsx"). The output
	// path's extension wins when both are given.
	Format string
}

// Orchestrator drives one update run end to end: select records, fetch them
// page by page, process fixed-size batches concurrently, write changes back
// with retries, and summarize the outcome.
type Orchestrator struct {
	config      Config
	store       store.Store
	repos       RepositorySource
	pubs        PublicationSource
	metrics     *observability.Metrics
	writePolicy retry.Policy
	out         io.Writer
	logger      zerolog.Logger
}

// New creates a new Orchestrator with the given configuration and
// collaborators.
func New(cfg Config, deps Dependencies, logger zerolog.Logger) *Orchestrator {
	cfg.applyDefaults()

	out := deps.Output
	if out == nil {
		out = os.Stdout
	}

	return &Orchestrator{
		config:  cfg,
		store:   deps.Store,
		repos:   deps.Repositories,
		pubs:    deps.Publications,
		metrics: deps.Metrics,
		writePolicy: retry.Policy{
			MaxAttempts:     cfg.WriteRetries,
			InitialInterval: time.Second,
			MaxInterval:     30 * time.Second,
			Multiplier:      2.0,
			Retryable:       retry.IsTransient,
		},
		out:    out,
		logger: logger.With().Str("component", "update").Logger(),
	}
}

// run carries the state of one Run invocation so concurrent runs never
// share statistics.
type run struct {
	o      *Orchestrator
	stats  *RunStatistics
	logger zerolog.Logger
	dryRun bool
}

// Run executes one update run and returns its summary. A fetch-phase error
// is fatal: it is recorded as a critical error and returned. Per-record
// failures are recorded in the summary and never abort the run.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) (Summary, error) {
	stats := NewRunStatistics(o.metrics)
	r := &run{
		o:      o,
		stats:  stats,
		logger: o.logger.With().Str("run_id", stats.RunID()).Logger(),
		dryRun: opts.DryRun,
	}

	mode := "live"
	if opts.DryRun {
		mode = "dry-run"
	}
	r.logger.Info().
		Str("mode", mode).
		Int("batch_size", o.config.BatchSize).
		Int("page_size", o.config.PageSize).
		Msg("starting update run")
	if o.metrics != nil {
		o.metrics.RecordRunStarted()
	}

	records, err := r.fetch(ctx, opts)
	if err != nil {
		if ctx.Err() == nil {
			stats.RecordError("system", CategoryCritical, err.Error())
		}
		sum := stats.Finish()
		if o.metrics != nil {
			o.metrics.RecordRunFailed(sum.Duration.Seconds())
		}
		return sum, fmt.Errorf("fetching records: %w", err)
	}
	stats.SetTotal(len(records))
	r.logger.Info().Int("records", len(records)).Msg("records selected")

	if err := r.processBatches(ctx, records); err != nil {
		sum := stats.Finish()
		if o.metrics != nil {
			o.metrics.RecordRunFailed(sum.Duration.Seconds())
		}
		return sum, err
	}

	sum := stats.Finish()
	if o.metrics != nil {
		o.metrics.RecordRunCompleted(sum.Duration.Seconds())
	}
	r.logSummary(sum)
	r.renderSummary(sum)

	if opts.DryRun && opts.Output != "" {
		// An export failure costs the report, not the run.
		if err := ExportDryRun(sum, opts.Output, opts.Format, r.logger); err != nil {
			r.logger.Error().Err(err).Str("output", opts.Output).Msg("dry run export failed")
		}
	}

	return sum, nil
}

// fetch selects the run's records. An explicit id selection is fetched in
// one query; everything else pages through the store in PageSize windows
// until a short page or the caller's cap.
func (r *run) fetch(ctx context.Context, opts RunOptions) ([]domain.PackageRecord, error) {
	sel := store.Selection{
		IDs:             opts.IDs,
		UpdatedBefore:   opts.UpdatedBefore,
		RepoHostOnly:    opts.GitHubOnly,
		WithPublication: opts.PublicationsOnly,
	}

	if len(opts.IDs) > 0 {
		return r.o.store.List(ctx, sel, 0, 0)
	}

	pageSize := r.o.config.PageSize
	var all []domain.PackageRecord
	for page := 0; ; page++ {
		fetch := pageSize
		if opts.Limit > 0 {
			remaining := opts.Limit - len(all)
			if remaining <= 0 {
				break
			}
			if remaining < fetch {
				fetch = remaining
			}
		}

		rows, err := r.o.store.List(ctx, sel, page*pageSize, fetch)
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)

		if len(rows) < fetch {
			break
		}
		if opts.Limit > 0 && len(all) >= opts.Limit {
			break
		}
	}
	return all, nil
}

// processBatches walks the records in fixed-size batches, processing every
// record of a batch concurrently. Cancellation is honored between batches
// and during the inter-batch delay.
func (r *run) processBatches(ctx context.Context, records []domain.PackageRecord) error {
	batchSize := r.o.config.BatchSize
	batchCount := (len(records) + batchSize - 1) / batchSize

	for start := 0; start < len(records); start += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := start + batchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]

		r.logger.Info().
			Int("batch", start/batchSize+1).
			Int("batch_count", batchCount).
			Int("size", len(batch)).
			Msg("processing batch")

		var wg sync.WaitGroup
		for i := range batch {
			wg.Add(1)
			go func(rec *domain.PackageRecord) {
				defer wg.Done()
				r.processRecord(ctx, rec)
			}(&batch[i])
		}
		wg.Wait()

		// The delay paces upstream APIs between batches and is skipped
		// after the final one.
		if end < len(records) && r.o.config.BatchDelay > 0 {
			timer := time.NewTimer(r.o.config.BatchDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	return nil
}

// processRecord runs one record through the merge policy and writes or
// captures the outcome. Every failure path ends in the statistics; nothing
// escapes to abort sibling records.
func (r *run) processRecord(ctx context.Context, rec *domain.PackageRecord) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error().
				Str("record_id", rec.ID).
				Interface("panic", p).
				Msg("record processing panicked")
			r.stats.RecordError(rec.ID, CategoryProcessing, fmt.Sprintf("panic: %v", p))
			r.stats.AddFailed()
		}
	}()

	logger := r.logger.With().
		Str("record_id", rec.ID).
		Str("name", rec.DisplayName()).
		Logger()
	logger.Debug().Msg("processing record")
	r.stats.AddProcessed()

	var set domain.FieldUpdateSet
	if repoSet := r.repositoryUpdates(ctx, rec); repoSet.Len() > 0 {
		set.Merge(repoSet)
		r.stats.AddRepositoryUpdate()
	}
	if pubSet := r.publicationUpdates(ctx, rec); pubSet.Len() > 0 {
		set.Merge(pubSet)
		r.stats.AddPublicationUpdate()
	}

	if set.Len() == 0 {
		r.stats.AddSkipped()
		logger.Debug().Msg("no updates needed")
		return
	}

	if r.dryRun {
		r.captureChanges(rec, set)
		r.stats.AddUpdated()
		logger.Info().Int("fields", set.Len()).Msg("would update record")
		return
	}

	if err := r.write(ctx, rec.ID, set); err != nil {
		logger.Error().Err(err).Msg("record write failed")
		r.stats.RecordError(rec.ID, CategoryStoreWrite, err.Error())
		r.stats.AddFailed()
		return
	}
	r.stats.AddUpdated()
	logger.Info().Int("fields", set.Len()).Msg("record updated")
}

// write persists one record's pending changes, retrying transient store
// failures under the orchestrator's write policy.
func (r *run) write(ctx context.Context, id string, set domain.FieldUpdateSet) error {
	err := r.o.writePolicy.Do(ctx, func() error {
		return r.o.store.Update(ctx, id, set)
	})
	if r.o.metrics != nil {
		if err != nil {
			r.o.metrics.RecordStoreWriteFailure()
		} else {
			r.o.metrics.RecordStoreWrite()
		}
	}
	return err
}

// logSummary emits the structured end-of-run summary and echoes the first
// few recorded errors.
func (r *run) logSummary(sum Summary) {
	mode := "live"
	if r.dryRun {
		mode = "dry-run"
	}

	event := r.logger.Info().
		Str("mode", mode).
		Int("total", sum.Total).
		Int("processed", sum.Processed).
		Int("updated", sum.Updated).
		Int("skipped", sum.Skipped).
		Int("failed", sum.Failed).
		Int("repository_updates", sum.RepositoryUpdates).
		Int("publication_updates", sum.PublicationUpdates).
		Int("github_data_updates", sum.GitHubDataUpdates).
		Int("citation_updates", sum.CitationUpdates).
		Float64("success_rate", sum.SuccessRate()).
		Dur("duration", sum.Duration)
	if r.dryRun {
		event = event.Int("captured_changes", len(sum.Changes))
	}
	event.Msg("update run complete")

	if len(sum.Errors) == 0 {
		return
	}
	shown := len(sum.Errors)
	if shown > maxLoggedErrors {
		shown = maxLoggedErrors
	}
	for _, e := range sum.Errors[:shown] {
		r.logger.Error().
			Str("record_id", e.RecordID).
			Str("category", string(e.Category)).
			Msg(e.Message)
	}
	if rest := len(sum.Errors) - shown; rest > 0 {
		r.logger.Error().Int("omitted", rest).Msg("additional errors not shown")
	}
}

// renderSummary prints the run summary table.
func (r *run) renderSummary(sum Summary) {
	tw := table.NewWriter()
	tw.SetOutputMirror(r.o.out)
	tw.SetStyle(table.StyleRounded)
	if r.dryRun {
		tw.SetTitle("Update Run %s (dry run)", sum.RunID)
	} else {
		tw.SetTitle("Update Run %s", sum.RunID)
	}

	tw.AppendHeader(table.Row{"Metric", "Value"})
	tw.AppendRows([]table.Row{
		{"Total records", sum.Total},
		{"Processed", sum.Processed},
		{"Updated", sum.Updated},
		{"Skipped", sum.Skipped},
		{"Failed", sum.Failed},
	})
	tw.AppendSeparator()
	tw.AppendRows([]table.Row{
		{"Repository updates", sum.RepositoryUpdates},
		{"Publication updates", sum.PublicationUpdates},
		{"GitHub data updates", sum.GitHubDataUpdates},
		{"Citation updates", sum.CitationUpdates},
	})
	if r.dryRun {
		tw.AppendRow(table.Row{"Captured changes", len(sum.Changes)})
	}
	tw.AppendSeparator()
	tw.AppendRows([]table.Row{
		{"Errors", len(sum.Errors)},
		{"Success rate", fmt.Sprintf("%.1f%%", sum.SuccessRate())},
		{"Duration", sum.Duration.Round(time.Millisecond).String()},
	})
	tw.Render()
}
