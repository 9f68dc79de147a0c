package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/custodia-labs/fintweet/internal/core/domain"
	"github.com/custodia-labs/fintweet/internal/core/ports/driven"
	"github.com/custodia-labs/fintweet/internal/core/ports/driving"
	"github.com/custodia-labs/fintweet/internal/logger"
)

// Ensure DocumentStore implements the interface.
var _ driving.DocumentStore = (*DocumentStore)(nil)

// TextEmbedder maps texts to vectors, one per input, in order.
type TextEmbedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// DocumentStore is a deduplicating semantic index. Entries live durably in
// an EntryStore; a VectorIndex answers nearest-neighbour queries over them.
type DocumentStore struct {
	collection domain.Collection
	entries    driven.EntryStore
	index      driven.VectorIndex
	embedder   TextEmbedder

	// writeMu serialises Add so the existence check and the insert of one
	// batch are never interleaved with another batch.
	writeMu sync.Mutex

	// unindexed holds stored entries whose index insert failed. The next Add
	// indexes them before anything else.
	unindexed []domain.IndexedEntry
}

// OpenDocumentStore declares the collection in the entry store and loads
// every persisted entry into the vector index, in insertion order.
func OpenDocumentStore(
	ctx context.Context,
	collection domain.Collection,
	entries driven.EntryStore,
	index driven.VectorIndex,
	embedder TextEmbedder,
) (*DocumentStore, error) {
	if err := collection.Validate(); err != nil {
		return nil, err
	}
	if embedder != nil && embedder.Dimensions() != collection.Dimensions {
		return nil, fmt.Errorf("%w: embedder produces %d dimensions, collection %q has %d",
			domain.ErrCollectionMismatch, embedder.Dimensions(), collection.Name, collection.Dimensions)
	}
	if err := entries.EnsureCollection(ctx, collection); err != nil {
		return nil, fmt.Errorf("ensure collection: %w", err)
	}

	s := &DocumentStore{
		collection: collection,
		entries:    entries,
		index:      index,
		embedder:   embedder,
	}

	if index.Len() == 0 {
		loaded := 0
		err := entries.Scan(ctx, func(e domain.IndexedEntry) error {
			loaded++
			return index.Add(ctx, e.DocID, e.Seq, e.Embedding)
		})
		if err != nil {
			return nil, fmt.Errorf("load vector index: %w", err)
		}
		logger.Debug("Loaded %d entries into vector index for collection %q", loaded, collection.Name)
	}

	return s, nil
}

// Collection returns the collection declaration.
func (s *DocumentStore) Collection() domain.Collection {
	return s.collection
}

// Add indexes the (id, text, embedding) triples whose id is not yet stored.
//
// ids and texts must have equal length, as must embeddings when non-nil.
// Nil entries in embeddings are computed from the matching text. Ids that are
// already stored, or repeated within the batch, are skipped silently; the
// first occurrence wins. Returns the number of newly inserted entries.
func (s *DocumentStore) Add(ctx context.Context, ids, texts []string, embeddings [][]float32) (int, error) {
	if err := s.validateAdd(ids, texts, embeddings); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	vecs, err := s.resolveEmbeddings(ctx, texts, embeddings)
	if err != nil {
		return 0, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.indexPending(ctx); err != nil {
		return 0, err
	}

	existing, err := s.entries.ExistingIDs(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("check existing ids: %w", err)
	}

	fresh := make([]domain.IndexedEntry, 0, len(ids))
	inBatch := make(map[string]struct{}, len(ids))
	for i, id := range ids {
		if _, ok := existing[id]; ok {
			logger.Debug("Skipping duplicate doc_id %q", id)
			continue
		}
		if _, ok := inBatch[id]; ok {
			logger.Debug("Skipping repeated doc_id %q within batch", id)
			continue
		}
		inBatch[id] = struct{}{}
		fresh = append(fresh, domain.IndexedEntry{
			DocID:     id,
			CleanText: texts[i],
			Embedding: vecs[i],
		})
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	stored, err := s.entries.Insert(ctx, fresh)
	if err != nil {
		return 0, fmt.Errorf("insert entries: %w", err)
	}
	s.unindexed = stored
	if err := s.indexPending(ctx); err != nil {
		return 0, err
	}

	logger.Debug("Indexed %d new entries (%d duplicates skipped)", len(stored), len(ids)-len(stored))
	return len(stored), nil
}

// indexPending adds unindexed entries to the vector index. Entries that
// still fail stay pending. Callers hold writeMu.
func (s *DocumentStore) indexPending(ctx context.Context) error {
	for i, e := range s.unindexed {
		if err := s.index.Add(ctx, e.DocID, e.Seq, e.Embedding); err != nil {
			s.unindexed = s.unindexed[i:]
			logger.Warn("%d stored entries are not indexed yet: %v", len(s.unindexed), err)
			return fmt.Errorf("index %q: %w", e.DocID, err)
		}
	}
	s.unindexed = nil
	return nil
}

func (s *DocumentStore) validateAdd(ids, texts []string, embeddings [][]float32) error {
	if len(ids) != len(texts) {
		return fmt.Errorf("%w: %d ids but %d texts", domain.ErrInvalidInput, len(ids), len(texts))
	}
	if embeddings != nil && len(embeddings) != len(ids) {
		return fmt.Errorf("%w: %d ids but %d embeddings", domain.ErrInvalidInput, len(ids), len(embeddings))
	}
	for i, id := range ids {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%w: empty doc_id at position %d", domain.ErrInvalidInput, i)
		}
	}
	for i, v := range embeddings {
		if v != nil && len(v) != s.collection.Dimensions {
			return fmt.Errorf("%w: embedding for %q has %d dimensions, collection has %d",
				domain.ErrInvalidInput, ids[i], len(v), s.collection.Dimensions)
		}
	}
	return nil
}

// resolveEmbeddings fills in embeddings missing from the caller's slice.
func (s *DocumentStore) resolveEmbeddings(
	ctx context.Context, texts []string, embeddings [][]float32,
) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var pending []int
	for i := range texts {
		if embeddings != nil && embeddings[i] != nil {
			out[i] = embeddings[i]
			continue
		}
		pending = append(pending, i)
	}
	if len(pending) == 0 {
		return out, nil
	}
	if s.embedder == nil {
		return nil, fmt.Errorf("%w: no embedder configured", domain.ErrEmbeddingUnavailable)
	}

	batch := make([]string, len(pending))
	for j, i := range pending {
		batch[j] = texts[i]
	}
	vecs, err := s.embedder.Embed(ctx, batch)
	if err != nil {
		return nil, err
	}
	for j, i := range pending {
		out[i] = vecs[j]
	}
	return out, nil
}

// Query returns the clean_text of the k entries most similar to text.
func (s *DocumentStore) Query(ctx context.Context, text string, k int) ([]string, error) {
	matches, err := s.Search(ctx, text, k)
	if err != nil {
		return nil, err
	}
	return matchTexts(matches), nil
}

// QueryVector returns the clean_text of the k entries most similar to embedding.
func (s *DocumentStore) QueryVector(ctx context.Context, embedding []float32, k int) ([]string, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidInput, k)
	}
	if len(embedding) != s.collection.Dimensions {
		return nil, fmt.Errorf("%w: query embedding has %d dimensions, collection has %d",
			domain.ErrInvalidInput, len(embedding), s.collection.Dimensions)
	}
	matches, err := s.searchVector(ctx, embedding, k)
	if err != nil {
		return nil, err
	}
	return matchTexts(matches), nil
}

// Search returns the k entries most similar to text, most similar first.
// Ties keep insertion order. An empty store yields an empty result.
func (s *DocumentStore) Search(ctx context.Context, text string, k int) ([]domain.Match, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidInput, k)
	}
	if s.index.Len() == 0 {
		return []domain.Match{}, nil
	}
	if s.embedder == nil {
		return nil, fmt.Errorf("%w: no embedder configured", domain.ErrEmbeddingUnavailable)
	}

	vecs, err := s.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return s.searchVector(ctx, vecs[0], k)
}

func (s *DocumentStore) searchVector(ctx context.Context, vec []float32, k int) ([]domain.Match, error) {
	hits, err := s.index.Search(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	if len(hits) == 0 {
		return []domain.Match{}, nil
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.DocID
	}
	texts, err := s.entries.Texts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load texts: %w", err)
	}

	matches := make([]domain.Match, 0, len(hits))
	for _, h := range hits {
		text, ok := texts[h.DocID]
		if !ok {
			logger.Warn("Vector hit %q has no stored entry", h.DocID)
			continue
		}
		matches = append(matches, domain.Match{
			DocID:      h.DocID,
			CleanText:  text,
			Similarity: h.Similarity,
		})
	}
	return matches, nil
}

// Count returns the number of indexed entries.
func (s *DocumentStore) Count(ctx context.Context) (int, error) {
	return s.entries.Count(ctx)
}

// Close releases the vector index.
func (s *DocumentStore) Close() error {
	return s.index.Close()
}

func matchTexts(matches []domain.Match) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.CleanText
	}
	return out
}
