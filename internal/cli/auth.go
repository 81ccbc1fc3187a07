package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/meetup-events/internal/crypto"
	"github.com/pfrederiksen/meetup-events/internal/google"
)

func newAuthCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authorize Google Calendar access and store the OAuth token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			oauthCfg, err := google.LoadOAuthConfig(cfg.GoogleCalendar.CredentialsPath, google.CalendarScope)
			if err != nil {
				return err
			}
			store, err := google.NewTokenStore(cfg.GoogleCalendar.TokenPath, crypto.NewEncryptor(cfg.GoogleCalendar.TokenKey))
			if err != nil {
				return err
			}

			tok, err := google.Authorize(cmd.Context(), oauthCfg, cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := store.Save(tok); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Token saved to %s\n", store.Path())
			return nil
		},
	}
}
