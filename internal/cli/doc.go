// Package cli implements the command-line interface for meetup-events.
//
// The root command runs one scrape: it fetches every configured Meetup
// group, reconciles the events into the ledger and notifies the enabled
// integrations, then prints a run summary as text or JSON. Subcommands
// export the upcoming events as one calendar file, reset the Google
// Calendar sync and obtain the Google OAuth token.
package cli
