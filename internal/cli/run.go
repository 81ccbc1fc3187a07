package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/meetup-events/internal/dispatch"
	"github.com/pfrederiksen/meetup-events/internal/logger"
	"github.com/pfrederiksen/meetup-events/internal/pipeline"
	"github.com/pfrederiksen/meetup-events/internal/reconcile"
	"github.com/pfrederiksen/meetup-events/internal/scraper"
)

// runScrape is the main command logic
func runScrape(cmd *cobra.Command, opts *options) error {
	format, err := opts.outputFormat()
	if err != nil {
		return err
	}
	sortOrder, err := ParseSortOrder(opts.sortBy)
	if err != nil {
		return err
	}

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	runID := pipeline.NewRunID()
	if err := opts.setupLogging(cfg, runID); err != nil {
		return err
	}

	ctx := cmd.Context()

	store, err := newStore(cfg)
	if err != nil {
		return fmt.Errorf("opening ledger: %w", err)
	}
	lock, err := newLock(cfg)
	if err != nil {
		return err
	}
	renderer, err := scraper.NewBrowserless(cfg.Browserless)
	if err != nil {
		return fmt.Errorf("creating renderer: %w", err)
	}

	p, err := pipeline.New(pipeline.Config{
		RunID:       runID,
		Groups:      cfg.Groups,
		Concurrency: cfg.Fetch.Concurrency,
		LockTimeout: cfg.Ledger.LockTimeout,
		DryRun:      opts.dryRun,
	}, pipeline.Deps{
		Store:      store,
		Lock:       lock,
		Fetcher:    scraper.New(renderer),
		Engine:     reconcile.NewEngine(store, loc),
		Dispatcher: dispatch.New(newIntegrations(ctx, cfg, loc, opts.dryRun, cmd.ErrOrStderr())...),
	})
	if err != nil {
		return err
	}

	logger.Info("Starting run", logger.Fields{
		"groups":  len(cfg.Groups),
		"dry_run": opts.dryRun,
	})

	summary, err := p.Run(ctx)
	writeMetrics(cfg.Metrics.Textfile)
	if err != nil {
		return err
	}

	logger.Info("Run finished", logger.Fields{
		"new_events":          summary.NewCount(),
		"groups_failed":       summary.GroupsFailed,
		"integrations_failed": len(summary.IntegrationsFailed),
		"duration_ms":         summary.Duration.Milliseconds(),
	})

	if err := WriteSummary(cmd.OutOrStdout(), summary, format, sortOrder, opts.verbose); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	if opts.exitNew && summary.NewCount() > 0 {
		return &exitCodeError{code: ExitNewEvents}
	}
	return nil
}

// writeMetrics exports run metrics for the node_exporter textfile collector.
func writeMetrics(path string) {
	if path == "" {
		return
	}
	if err := logger.DefaultMetrics().WriteTextfile(path); err != nil {
		logger.Warn("Failed to write metrics", logger.Fields{
			"path":  path,
			"error": err.Error(),
		})
	}
}
