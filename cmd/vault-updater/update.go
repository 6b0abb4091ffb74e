package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/caddvault/vault-updater/internal/config"
	"github.com/caddvault/vault-updater/internal/domain"
	"github.com/caddvault/vault-updater/internal/observability"
	"github.com/caddvault/vault-updater/internal/publication"
	"github.com/caddvault/vault-updater/internal/retry"
	"github.com/caddvault/vault-updater/internal/sources/arxiv"
	"github.com/caddvault/vault-updater/internal/sources/biorxiv"
	"github.com/caddvault/vault-updater/internal/sources/crossref"
	"github.com/caddvault/vault-updater/internal/sources/europepmc"
	"github.com/caddvault/vault-updater/internal/sources/github"
	"github.com/caddvault/vault-updater/internal/store"
	"github.com/caddvault/vault-updater/internal/update"
)

// defaultSelectionLimit caps a run invoked without any selection flag, so an
// accidental bare invocation stays a small test run.
const defaultSelectionLimit = 10

// updateOptions collects the update command's flag values.
type updateOptions struct {
	dryRun           bool
	limit            int
	ids              []string
	all              bool
	daysSinceUpdate  int
	githubOnly       bool
	publicationsOnly bool
	output           string
	format           string
	batchSize        int
	delay            time.Duration
	verbose          bool
	quiet            bool
}

func newUpdateCommand(configFlag *string) *cobra.Command {
	opts := &updateOptions{}

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Run one enrichment pass over the catalog",
		Long: `Update selects catalog records, refreshes their repository and publication
metadata from the upstream APIs, and writes the changes back to the record
store. With --dry-run the changes are reported instead of written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(cmd, *configFlag, opts)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.dryRun, "dry-run", false, "Report changes without writing to the store")
	flags.IntVar(&opts.limit, "limit", 0, "Process at most N records")
	flags.StringSliceVar(&opts.ids, "ids", nil, "Process only the given record IDs (comma-separated)")
	flags.BoolVar(&opts.all, "all", false, "Process every record in the catalog")
	flags.IntVar(&opts.daysSinceUpdate, "days-since-update", 0, "Process only records last updated at least N days ago")
	flags.BoolVar(&opts.githubOnly, "github-only", false, "Refresh repository data only, for records with a repository URL")
	flags.BoolVar(&opts.publicationsOnly, "publications-only", false, "Refresh publication data only, for records with a publication URL")
	flags.StringVarP(&opts.output, "output", "o", "", "Dry-run report path (.csv or .xlsx)")
	flags.StringVar(&opts.format, "format", "", "Dry-run report format, csv or xlsx (the output extension wins)")
	flags.IntVar(&opts.batchSize, "batch-size", 0, "Records per concurrent batch")
	flags.DurationVar(&opts.delay, "delay", 0, "Pause between batches")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log at debug level")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "Log warnings and errors only")

	cmd.MarkFlagsMutuallyExclusive("limit", "ids", "all")
	cmd.MarkFlagsMutuallyExclusive("github-only", "publications-only")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	return cmd
}

func runUpdate(cmd *cobra.Command, configPath string, opts *updateOptions) error {
	ctx := cmd.Context()

	if opts.format != "" && opts.format != update.FormatCSV && opts.format != update.FormatXLSX {
		return fmt.Errorf("unsupported format %q: use csv or xlsx", opts.format)
	}

	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logCfg := observability.LoggingConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}
	switch {
	case opts.verbose:
		logCfg.Level = "debug"
	case opts.quiet:
		logCfg.Level = "warn"
	}
	logger := observability.NewLogger(logCfg)

	if opts.batchSize > 0 {
		cfg.Run.BatchSize = opts.batchSize
	}
	if opts.delay > 0 {
		cfg.Run.BatchDelay = opts.delay
	}

	runOpts := update.RunOptions{
		DryRun:           opts.dryRun,
		IDs:              opts.ids,
		Limit:            opts.limit,
		GitHubOnly:       opts.githubOnly,
		PublicationsOnly: opts.publicationsOnly,
		Output:           opts.output,
		Format:           opts.format,
	}
	if !opts.all && opts.limit == 0 && len(opts.ids) == 0 {
		runOpts.Limit = defaultSelectionLimit
		logger.Warn().
			Int("limit", defaultSelectionLimit).
			Msg("no selection flag given, defaulting to a small test run (use --all for the full catalog)")
	}
	if opts.daysSinceUpdate > 0 {
		runOpts.UpdatedBefore = time.Now().AddDate(0, 0, -opts.daysSinceUpdate)
	}
	if opts.dryRun && runOpts.Output == "" {
		runOpts.Output = fmt.Sprintf("dry_run_results_%s.csv", time.Now().Format("20060102_150405"))
	}

	// One run at a time. The lock is held until the run finishes.
	lock := flock.New(cfg.Run.LockFile)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("%w (lock file %s)", domain.ErrRunLocked, cfg.Run.LockFile)
	}
	defer func() { _ = lock.Unlock() }()

	metrics := observability.NewMetrics("vault_updater")

	if cfg.Debug.ListenAddr != "" {
		debugSrv := observability.NewDebugServer(cfg.Debug.ListenAddr, logger)
		go func() {
			if err := debugSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("debug server error")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = debugSrv.Shutdown(shutdownCtx)
		}()
	}

	var st store.Store
	switch cfg.Store.Backend {
	case "postgres":
		pool, err := store.Connect(ctx, cfg.Store.DSN, logger)
		if err != nil {
			return fmt.Errorf("connect to store: %w", err)
		}
		defer pool.Close()
		st = store.NewPostgres(pool, store.PostgresConfig{Table: cfg.Store.Table}, logger)
	default:
		st, err = store.NewPostgREST(store.PostgRESTConfig{
			BaseURL: cfg.Store.URL,
			APIKey:  cfg.Store.APIKey,
			Table:   cfg.Store.Table,
			Timeout: cfg.Store.Timeout,
		}, logger)
		if err != nil {
			return fmt.Errorf("create store client: %w", err)
		}
	}

	retryPolicy := retry.Default()

	gh := github.New(github.Config{
		BaseURL:   cfg.GitHub.BaseURL,
		Token:     cfg.GitHub.Token,
		Contact:   cfg.Contact,
		Timeout:   cfg.GitHub.Timeout,
		RateLimit: cfg.GitHub.RateLimit,
		BurstSize: cfg.GitHub.BurstSize,
		Retry:     retryPolicy,
	}, logger)

	crossrefClient := crossref.New(crossref.Config{
		BaseURL:   cfg.Crossref.BaseURL,
		Contact:   cfg.Contact,
		Timeout:   cfg.Crossref.Timeout,
		RateLimit: cfg.Crossref.RateLimit,
		BurstSize: cfg.Crossref.BurstSize,
		Retry:     retryPolicy,
	}, logger)
	europepmcClient := europepmc.New(europepmc.Config{
		BaseURL:   cfg.EuropePMC.BaseURL,
		Contact:   cfg.Contact,
		Timeout:   cfg.EuropePMC.Timeout,
		RateLimit: cfg.EuropePMC.RateLimit,
		BurstSize: cfg.EuropePMC.BurstSize,
		Retry:     retryPolicy,
	}, logger)
	arxivClient := arxiv.New(arxiv.Config{
		BaseURL:   cfg.Arxiv.BaseURL,
		Contact:   cfg.Contact,
		Timeout:   cfg.Arxiv.Timeout,
		RateLimit: cfg.Arxiv.RateLimit,
		BurstSize: cfg.Arxiv.BurstSize,
		Retry:     retryPolicy,
	}, logger)
	biorxivClient := biorxiv.New(biorxiv.Config{
		BaseURL:   cfg.Biorxiv.BaseURL,
		Contact:   cfg.Contact,
		Timeout:   cfg.Biorxiv.Timeout,
		RateLimit: cfg.Biorxiv.RateLimit,
		BurstSize: cfg.Biorxiv.BurstSize,
		Retry:     retryPolicy,
	}, logger)

	// The journal impact classifier is optional; without the data file,
	// impact factor lookups report no value.
	var classifier publication.Classifier
	if cfg.Impact.DataFile != "" {
		csvClassifier, err := publication.NewCSVClassifier(cfg.Impact.DataFile)
		if err != nil {
			return fmt.Errorf("load journal impact data: %w", err)
		}
		classifier = csvClassifier
	}

	pubs, err := publication.New(publication.Config{CacheSize: cfg.Impact.CacheSize}, publication.Dependencies{
		Arxiv:      arxivClient,
		Biorxiv:    biorxivClient,
		EuropePMC:  europepmcClient,
		Crossref:   crossrefClient,
		Classifier: classifier,
	}, logger)
	if err != nil {
		return fmt.Errorf("create publication client: %w", err)
	}

	orch := update.New(update.Config{
		BatchSize:    cfg.Run.BatchSize,
		BatchDelay:   cfg.Run.BatchDelay,
		WriteRetries: cfg.Run.WriteRetries,
		PageSize:     cfg.Run.PageSize,
	}, update.Dependencies{
		Store:        st,
		Repositories: gh,
		Publications: pubs,
		Metrics:      metrics,
		Output:       cmd.OutOrStdout(),
	}, logger)

	sum, err := orch.Run(ctx, runOpts)
	if err != nil {
		return err
	}

	logger.Info().
		Int("processed", sum.Processed).
		Int("updated", sum.Updated).
		Int("failed", sum.Failed).
		Msg("update run finished")
	return nil
}
