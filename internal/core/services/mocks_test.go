package services

import (
	"context"
	"errors"
	"sync"

	"github.com/custodia-labs/fintweet/internal/core/ports/driven"
)

// mockEmbeddingService implements driven.EmbeddingService for testing.
// Texts found in vectors map to that vector; anything else maps to fallback.
type mockEmbeddingService struct {
	mu       sync.Mutex
	vectors  map[string][]float32
	fallback []float32
	dims     int
	embedErr error
	calls    [][]string
	closed   bool
}

func newMockEmbedding(dims int, vectors map[string][]float32) *mockEmbeddingService {
	fallback := make([]float32, dims)
	for i := range fallback {
		fallback[i] = 1
	}
	return &mockEmbeddingService{vectors: vectors, fallback: fallback, dims: dims}
}

func (m *mockEmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, append([]string(nil), texts...))
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := m.vectors[t]; ok {
			out[i] = v
		} else {
			out[i] = m.fallback
		}
	}
	return out, nil
}

func (m *mockEmbeddingService) Dimensions() int   { return m.dims }
func (m *mockEmbeddingService) ModelName() string { return "mock-embed" }

func (m *mockEmbeddingService) Ping(_ context.Context) error {
	return m.embedErr
}

func (m *mockEmbeddingService) Close() error {
	m.closed = true
	return nil
}

func (m *mockEmbeddingService) batches() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

var _ driven.EmbeddingService = (*mockEmbeddingService)(nil)

// mockEmbeddingCache implements driven.EmbeddingCache for testing.
type mockEmbeddingCache struct {
	entries map[string][]float32
	getErr  error
	setErr  error
}

func newMockCache() *mockEmbeddingCache {
	return &mockEmbeddingCache{entries: make(map[string][]float32)}
}

func (c *mockEmbeddingCache) GetMany(_ context.Context, keys []string) (map[string][]float32, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	out := make(map[string][]float32)
	for _, k := range keys {
		if v, ok := c.entries[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (c *mockEmbeddingCache) SetMany(_ context.Context, entries map[string][]float32) error {
	if c.setErr != nil {
		return c.setErr
	}
	for k, v := range entries {
		c.entries[k] = v
	}
	return nil
}

func (c *mockEmbeddingCache) Close() error { return nil }

var _ driven.EmbeddingCache = (*mockEmbeddingCache)(nil)

var errBackendDown = errors.New("backend down")
