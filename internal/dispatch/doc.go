// Package dispatch hands the result of a run to the configured integrations.
//
// Every integration receives the same Batch: the delta of events first seen
// in this run and the full ledger after reconciliation. Integrations run one
// after another; a failing integration is logged and recorded as an
// *IntegrationError and never stops the rest. Dispatch happens after the
// ledger has been saved, so no integration failure can roll it back.
package dispatch
