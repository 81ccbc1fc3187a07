package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/meetup-events/internal/calendar"
	"github.com/pfrederiksen/meetup-events/internal/event"
	"github.com/pfrederiksen/meetup-events/internal/google"
)

func newExportCalendarCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "export-calendar",
		Short: "Write upcoming events not yet exported to a single ICS file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := opts.outputFormat()
			if err != nil {
				return err
			}
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateBase(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			if err := opts.setupLogging(cfg, ""); err != nil {
				return err
			}

			state, err := calendar.LoadState(cfg.Calendar.StatePath)
			if err != nil {
				return err
			}

			var res *calendar.ExportResult
			err = withLedger(cmd.Context(), cfg, loc, func(events []*event.Event) error {
				var err error
				res, err = calendar.Export(events, state, cfg.Calendar.ExportPath,
					calendarOptions(cfg, loc, cfg.Calendar.DefaultDurationHours))
				return err
			})
			if err != nil {
				return err
			}
			return WriteExport(cmd.OutOrStdout(), res, format)
		},
	}
}

func newResetCalendarCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset-calendar",
		Short: "Delete synced Google Calendar events and clear the sync state",
		Long: `Deletes every Google Calendar event created for a ledger event that is
still upcoming, then clears the sync state. With --skip-delete only the state
is cleared. With --resync the upcoming events are synced again afterwards.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := opts.outputFormat()
			if err != nil {
				return err
			}
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateBase(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			if err := opts.setupLogging(cfg, ""); err != nil {
				return err
			}

			ctx := cmd.Context()
			gs, err := newGoogleCalendarSync(ctx, cfg, loc)
			if err != nil {
				return fmt.Errorf("setting up Google Calendar: %w", err)
			}

			var (
				reset  *google.ResetResult
				resync *google.SyncResult
			)
			err = withLedger(ctx, cfg, loc, func(events []*event.Event) error {
				var err error
				reset, err = gs.Reset(ctx, events, opts.skipDelete)
				if err != nil || !opts.resync {
					return err
				}
				resync, err = gs.Sync(ctx, events)
				return err
			})
			if reset != nil {
				if werr := WriteReset(cmd.OutOrStdout(), reset, resync, format); werr != nil && err == nil {
					err = werr
				}
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&opts.skipDelete, "skip-delete", false, "Only clear the sync state, leave calendar events in place")
	cmd.Flags().BoolVar(&opts.resync, "resync", false, "Sync upcoming events again after the reset")
	return cmd
}
