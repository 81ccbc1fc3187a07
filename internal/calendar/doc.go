// Package calendar renders ledger events as iCalendar data.
//
// It writes one .ics file per newly seen event, exports all upcoming events
// into a single combined calendar, and keeps the sidecar sync state shared by
// every calendar-style integration.
package calendar
