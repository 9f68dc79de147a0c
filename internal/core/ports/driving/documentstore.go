package driving

import (
	"context"

	"github.com/custodia-labs/fintweet/internal/core/domain"
)

// DocumentStore is the deduplicating semantic index over post bodies.
type DocumentStore interface {
	// Add indexes (id, text, embedding) triples whose id is not stored yet.
	// embeddings may be nil, or contain nil entries, to embed from texts.
	// Returns the number of newly inserted entries.
	Add(ctx context.Context, ids, texts []string, embeddings [][]float32) (int, error)

	// Query returns the clean_text of the k most similar entries, most
	// similar first.
	Query(ctx context.Context, text string, k int) ([]string, error)

	// QueryVector is Query with a precomputed query embedding.
	QueryVector(ctx context.Context, embedding []float32, k int) ([]string, error)

	// Search is Query returning doc ids and similarity scores alongside the text.
	Search(ctx context.Context, text string, k int) ([]domain.Match, error)

	// Count returns the number of indexed entries.
	Count(ctx context.Context) (int, error)
}
