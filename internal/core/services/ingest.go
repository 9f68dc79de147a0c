package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/fintweet/internal/core/domain"
	"github.com/custodia-labs/fintweet/internal/core/ports/driving"
	"github.com/custodia-labs/fintweet/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestService merges labelled records into the document store and the
// record set. The document store keeps one entry per doc_id. The record set
// keeps every record it is given, duplicates included, and aggregation
// counts all of them.
type IngestService struct {
	store   driving.DocumentStore
	records *RecordSet
}

// NewIngestService creates an ingestion coordinator.
func NewIngestService(store driving.DocumentStore, records *RecordSet) *IngestService {
	return &IngestService{
		store:   store,
		records: records,
	}
}

// Ingest indexes records in the document store, then appends all of them to
// the record set in arrival order. Record fields are used as given; nothing
// already present is recomputed. If indexing fails the record set is left
// untouched.
func (s *IngestService) Ingest(ctx context.Context, records []domain.Record) (*domain.IngestReport, error) {
	batchID := uuid.NewString()
	report := &domain.IngestReport{
		BatchID:  batchID,
		Received: len(records),
	}

	if len(records) == 0 {
		report.RecordSetSize = s.records.Len()
		return report, nil
	}

	ids := make([]string, len(records))
	texts := make([]string, len(records))
	var embeddings [][]float32
	for i, r := range records {
		if strings.TrimSpace(r.DocID) == "" {
			return nil, fmt.Errorf("%w: record %d has no doc_id", domain.ErrInvalidInput, i)
		}
		ids[i] = r.DocID
		texts[i] = r.CleanText
		if r.Embedding != nil {
			if embeddings == nil {
				embeddings = make([][]float32, len(records))
			}
			embeddings[i] = r.Embedding
		}
	}

	logger.Debug("Ingest batch %s: %d records", batchID, len(records))

	inserted, err := s.store.Add(ctx, ids, texts, embeddings)
	if err != nil {
		logger.Warn("Ingest batch %s failed: %v", batchID, err)
		return nil, fmt.Errorf("index batch %s: %w", batchID, err)
	}

	report.Inserted = inserted
	report.Skipped = len(records) - inserted
	report.RecordSetSize = s.records.Append(records...)

	logger.Info("Ingest batch %s: %d received, %d indexed, %d skipped, %d records accumulated",
		batchID, report.Received, report.Inserted, report.Skipped, report.RecordSetSize)
	return report, nil
}
