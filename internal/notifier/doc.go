// Package notifier announces newly discovered Meetup events.
//
// A Notifier posts a list of events to one channel: a Slack incoming webhook
// (Block Kit message), a Telegram chat (digest grouped by group), Twitter (one
// tweet per event) or standard output for dry runs. Notifiers only ever see
// the delta of a run; Integration adapts a Notifier to the dispatcher.
package notifier
