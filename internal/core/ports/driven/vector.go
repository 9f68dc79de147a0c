package driven

import "context"

// VectorIndex provides semantic similarity search operations.
// Implementations use cosine similarity and must be safe for concurrent
// readers while a single writer adds vectors.
type VectorIndex interface {
	// Add inserts a vector for the given document ID. seq is the store's
	// insertion sequence and orders otherwise equal hits. Adding an ID that
	// is already present is a no-op.
	Add(ctx context.Context, docID string, seq int64, embedding []float32) error

	// Search finds the k nearest neighbours to the query vector, ordered by
	// similarity descending and then by seq ascending.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Len returns the number of indexed vectors.
	Len() int

	// Close releases resources.
	Close() error
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// DocID is the matched document.
	DocID string

	// Seq is the insertion sequence of the match.
	Seq int64

	// Similarity is the cosine similarity score (-1..1).
	Similarity float64
}
