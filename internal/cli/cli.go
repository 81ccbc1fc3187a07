package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/meetup-events/internal/config"
	"github.com/pfrederiksen/meetup-events/internal/logger"
)

const (
	ExitSuccess   = 0
	ExitError     = 1
	ExitNewEvents = 2
)

// exitCodeError carries a non-zero exit code that is not a failure.
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("exit %d", e.code)
}

// options are the flags shared by every command.
type options struct {
	configFile string
	format     string
	verbose    bool

	// run
	dryRun  bool
	exitNew bool
	sortBy  string

	// reset-calendar
	skipDelete bool
	resync     bool
}

func (o *options) outputFormat() (OutputFormat, error) {
	format := OutputFormat(strings.ToLower(o.format))
	if format != FormatText && format != FormatJSON {
		return "", fmt.Errorf("invalid format: %s (must be 'text' or 'json')", o.format)
	}
	return format, nil
}

// loadConfig reads the configuration next to the config file, or from the
// working directory.
func (o *options) loadConfig() (*config.Config, error) {
	dir := "."
	if o.configFile != "" {
		dir = filepath.Dir(o.configFile)
	}
	cfg, err := config.Load(dir, o.configFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// setupLogging installs the default logger and metrics for a command.
func (o *options) setupLogging(cfg *config.Config, runID string) error {
	logCfg := cfg.Log
	if o.verbose {
		logCfg.Level = string(logger.LevelDebug)
	}
	l, err := logger.New(logCfg)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	if runID != "" {
		l = l.With(logger.Fields{"run_id": runID})
	}
	logger.SetDefault(l)
	logger.SetDefaultMetrics(logger.NewMetrics())
	return nil
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "meetup-events",
		Short: "Track Meetup group events and notify when new ones appear",
		Long: `A CLI tool that scrapes the events pages of configured Meetup groups,
keeps a ledger of every event seen, and notifies Slack, Telegram, Twitter,
calendars and spreadsheets about events that are new since the last run.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScrape(cmd, opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "Config file (default: ./config.json when present)")
	cmd.PersistentFlags().StringVar(&opts.format, "format", "text", "Output format: text or json")
	cmd.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "Enable debug logging")

	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Fetch and reconcile without saving the ledger or notifying integrations")
	cmd.Flags().BoolVar(&opts.exitNew, "exit-new", false, "Exit with code 2 when new events were found")
	cmd.Flags().StringVar(&opts.sortBy, "sort", string(SortByDate), "Order of new events in the output: date, group or title")

	cmd.AddCommand(
		newExportCalendarCmd(opts),
		newResetCalendarCmd(opts),
		newAuthCmd(opts),
	)

	return cmd
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	return execute(NewRootCmd(), os.Args[1:], os.Stderr)
}

func execute(cmd *cobra.Command, args []string, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	_ = logger.Default().Sync()

	var exitErr *exitCodeError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &exitErr):
		return exitErr.code
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitError
	}
}
