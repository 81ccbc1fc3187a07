// Package pipeline runs one scrape: it locks the ledger, loads it, fetches
// every configured group, normalizes and reconciles the records, saves the
// ledger and hands the delta and full ledger to the integrations.
//
// Only a corrupt ledger, a held lock or a failed save abort a run. Failed
// groups, malformed records and failed integrations are logged, counted and
// reported in the Summary.
package pipeline
