// Package mcp provides an MCP (Model Context Protocol) server adapter for fintweet.
// It lets AI assistants retrieve posts and read ticker sentiment tables.
package mcp

import "errors"

var (
	// ErrMissingDocumentStore is returned when the document store is not provided.
	ErrMissingDocumentStore = errors.New("mcp: document store is required")

	// ErrMissingAggregation is returned when the aggregation service is not provided.
	ErrMissingAggregation = errors.New("mcp: aggregation service is required")

	// ErrMissingRecordReader is returned when ingestion is enabled without a file reader.
	ErrMissingRecordReader = errors.New("mcp: record reader is required when ingest is enabled")
)
