// Package flat implements driven.VectorIndex as an exhaustive cosine scan.
// It is exact, and linear in the number of vectors per query.
package flat

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/fintweet/internal/adapters/driven/vectorindex/vecmath"
	"github.com/custodia-labs/fintweet/internal/core/domain"
	"github.com/custodia-labs/fintweet/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

type item struct {
	id  string
	seq int64
	vec []float32
}

// Index is an exact in-memory vector index.
type Index struct {
	mu        sync.RWMutex
	dimension int
	items     []item
	byID      map[string]struct{}
	closed    bool
}

// New creates an empty flat index for vectors of the given dimension.
func New(dimension int) (*Index, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: flat: dimension must be positive", domain.ErrInvalidInput)
	}
	return &Index{
		dimension: dimension,
		byID:      make(map[string]struct{}),
	}, nil
}

// Add inserts a vector. Adding a known id is a no-op.
func (idx *Index) Add(_ context.Context, docID string, seq int64, embedding []float32) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return fmt.Errorf("%w: flat: index is closed", domain.ErrVectorIndexUnavailable)
	}
	if len(embedding) != idx.dimension {
		return fmt.Errorf("%w: flat: embedding dimension mismatch", domain.ErrInvalidInput)
	}
	if _, ok := idx.byID[docID]; ok {
		return nil
	}

	idx.byID[docID] = struct{}{}
	idx.items = append(idx.items, item{id: docID, seq: seq, vec: vecmath.Normalize(embedding)})
	return nil
}

// Search returns the k most similar vectors.
func (idx *Index) Search(_ context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.closed {
		return nil, fmt.Errorf("%w: flat: index is closed", domain.ErrVectorIndexUnavailable)
	}
	if len(query) != idx.dimension {
		return nil, fmt.Errorf("%w: flat: query dimension mismatch", domain.ErrInvalidInput)
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: flat: k must be positive", domain.ErrInvalidInput)
	}

	q := vecmath.Normalize(query)
	hits := make([]driven.VectorHit, len(idx.items))
	for i, it := range idx.items {
		hits[i] = driven.VectorHit{DocID: it.id, Seq: it.seq, Similarity: vecmath.Dot(q, it.vec)}
	}
	vecmath.SortHits(hits)
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Len returns the number of indexed vectors.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.items)
}

// Close releases resources.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.closed = true
	idx.items = nil
	idx.byID = nil
	return nil
}
