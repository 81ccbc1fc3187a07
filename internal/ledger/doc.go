// Package ledger persists the durable table of every event ever discovered.
//
// The ledger is a CSV document with a fixed header; column order and presence
// are part of the contract with earlier and later runs. Two backends are
// provided: FileStore, which publishes writes with a temp-file-and-rename so
// a crash never exposes a partial ledger, and GistStore, which keeps the same
// document in a GitHub Gist. Cross-process exclusion around load and save is
// provided by Lock.
package ledger
