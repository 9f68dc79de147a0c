package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/fintweet/internal/core/domain"
	"github.com/custodia-labs/fintweet/internal/core/ports/driven"
)

// Ensure EntryStore implements the interface.
var _ driven.EntryStore = (*EntryStore)(nil)

// EntryStore is an in-memory implementation of driven.EntryStore.
// It backs --ephemeral runs and tests; contents vanish with the process.
type EntryStore struct {
	mu         sync.RWMutex
	collection *domain.Collection
	byID       map[string]int
	entries    []domain.IndexedEntry
	nextSeq    int64
}

// NewEntryStore creates a new in-memory entry store.
func NewEntryStore() *EntryStore {
	return &EntryStore{
		byID:    make(map[string]int),
		nextSeq: 1,
	}
}

// EnsureCollection declares the collection or verifies the existing declaration.
func (s *EntryStore) EnsureCollection(_ context.Context, c domain.Collection) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collection == nil {
		s.collection = &c
		return nil
	}
	return c.Compatible(*s.collection)
}

// ExistingIDs returns the subset of ids already stored.
func (s *EntryStore) ExistingIDs(_ context.Context, ids []string) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	found := make(map[string]struct{})
	for _, id := range ids {
		if _, ok := s.byID[id]; ok {
			found[id] = struct{}{}
		}
	}
	return found, nil
}

// Insert stores entries not present yet and assigns their sequence numbers.
func (s *EntryStore) Insert(_ context.Context, entries []domain.IndexedEntry) ([]domain.IndexedEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]domain.IndexedEntry, 0, len(entries))
	for _, e := range entries {
		if _, ok := s.byID[e.DocID]; ok {
			continue
		}
		e.Seq = s.nextSeq
		s.nextSeq++
		e.Embedding = append([]float32(nil), e.Embedding...)
		s.byID[e.DocID] = len(s.entries)
		s.entries = append(s.entries, e)
		stored = append(stored, e)
	}
	return stored, nil
}

// Texts returns clean_text by doc id.
func (s *EntryStore) Texts(_ context.Context, ids []string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(ids))
	for _, id := range ids {
		if i, ok := s.byID[id]; ok {
			out[id] = s.entries[i].CleanText
		}
	}
	return out, nil
}

// Scan calls fn for every entry in insertion order.
func (s *EntryStore) Scan(ctx context.Context, fn func(domain.IndexedEntry) error) error {
	s.mu.RLock()
	snapshot := s.entries[:len(s.entries):len(s.entries)]
	s.mu.RUnlock()
	for _, e := range snapshot {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of stored entries.
func (s *EntryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}
