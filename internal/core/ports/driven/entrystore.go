package driven

import (
	"context"

	"github.com/custodia-labs/fintweet/internal/core/domain"
)

// EntryStore persists indexed entries of one collection.
// Entries are insert-only: there is no update or delete.
type EntryStore interface {
	// EnsureCollection declares the collection, or verifies an existing
	// declaration matches. A mismatch returns domain.ErrCollectionMismatch.
	EnsureCollection(ctx context.Context, c domain.Collection) error

	// ExistingIDs returns the subset of ids already stored, in one lookup.
	ExistingIDs(ctx context.Context, ids []string) (map[string]struct{}, error)

	// Insert stores entries whose DocID is not present yet and returns the
	// stored entries with Seq assigned. Conflicting ids are ignored.
	Insert(ctx context.Context, entries []domain.IndexedEntry) ([]domain.IndexedEntry, error)

	// Texts returns clean_text by doc id for the given ids.
	Texts(ctx context.Context, ids []string) (map[string]string, error)

	// Scan calls fn for every entry in insertion order.
	Scan(ctx context.Context, fn func(domain.IndexedEntry) error) error

	// Count returns the number of stored entries.
	Count(ctx context.Context) (int, error)
}
