package mcp

import (
	"github.com/custodia-labs/fintweet/internal/core/domain"
	"github.com/custodia-labs/fintweet/internal/core/ports/driving"
)

// RecordReader loads labelled records from a file path.
type RecordReader func(path string) ([]domain.Record, error)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Store answers similarity queries.
	Store driving.DocumentStore

	// Aggregation tabulates ticker sentiment.
	Aggregation driving.AggregationService

	// Ingest merges new records. Optional: the ingest_file tool is only
	// registered when set.
	Ingest driving.IngestService

	// ReadRecords parses files for ingest_file. Required with Ingest.
	ReadRecords RecordReader
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Store == nil {
		return ErrMissingDocumentStore
	}
	if p.Aggregation == nil {
		return ErrMissingAggregation
	}
	if p.Ingest != nil && p.ReadRecords == nil {
		return ErrMissingRecordReader
	}
	return nil
}
