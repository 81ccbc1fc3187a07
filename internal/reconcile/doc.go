// Package reconcile merges freshly scraped events into the ledger.
//
// Merge is a pure function of the existing ledger, the scraped batch and the
// run date. It returns the new ledger and the delta: events seen for the
// first time in this run, in the order they were scraped. An event already in
// the ledger is never overwritten by a later scrape; the first record for a
// URL wins and only its status changes afterwards.
//
// Recompute derives every event's status from its date. An event whose date
// is before the run date is DONE; an event on the run date is still UPCOMING.
// DONE is never reverted.
//
// Engine wraps Merge with persistence: it saves the new ledger through a
// ledger.Store before the delta is handed to any integration.
package reconcile
