// Package observability provides logging and metrics support for the
// vault updater.
//
// # Logging
//
// Create a logger from configuration:
//
//	cfg := observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "auto",
//	    Output: "stderr",
//	}
//
//	logger := observability.NewLogger(cfg)
//	logger.Info().Int("packages", n).Msg("update run started")
//
// The "auto" format emits human-readable console output when attached to a
// terminal and JSON otherwise, so piped or scheduled runs stay
// machine-parseable without extra flags.
//
// # Metrics
//
// Initialize metrics once per process:
//
//	metrics := observability.NewMetrics("vault_updater")
//
// Record outcomes as the pipeline progresses:
//
//	metrics.RecordRunStarted()
//	metrics.RecordPackageUpdated()
//	metrics.RecordDataUpdate("github_data")
//
// # Debug Server
//
// An optional HTTP listener exposes /healthz and /metrics for deployments
// that run the updater on a schedule:
//
//	srv := observability.NewDebugServer(":9090", logger)
//	go srv.Start()
//	defer srv.Shutdown(ctx)
//
// # Thread Safety
//
// All components are safe for concurrent use from multiple goroutines.
package observability
