// Package google syncs the ledger to Google Calendar and Google Sheets.
//
// Calendar access uses a user OAuth token obtained once with the auth
// command and stored, optionally sealed, on disk. Sheets access uses a
// service-account key.
package google
