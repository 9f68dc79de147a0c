package driving

import (
	"context"

	"github.com/custodia-labs/fintweet/internal/core/domain"
)

// IngestService merges labelled records into the document store and the
// record set.
type IngestService interface {
	// Ingest indexes records and appends them all to the record set.
	Ingest(ctx context.Context, records []domain.Record) (*domain.IngestReport, error)
}
