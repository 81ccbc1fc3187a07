// Package event provides the canonical Event type for Meetup group listings.
//
// Raw records handed over by the extraction step are loosely typed maps. The
// normalizer in this package converts each one into a strict Event at the
// boundary, so everything downstream (ledger, reconciliation, integrations)
// only ever sees the canonical type. Events are identified by their event URL.
package event
