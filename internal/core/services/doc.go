// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The pieces compose as follows: IngestService feeds both the DocumentStore
// (deduplicated semantic index) and the RecordSet; AggregationService reads
// RecordSet snapshots. DocumentStore and AggregationService never call each
// other.
//
// Services are pure Go with no CGO.
package services
