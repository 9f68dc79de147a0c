package services

import (
	"context"
	"crypto/sha1" //nolint:gosec // G505: cache key only, not a security boundary.
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/custodia-labs/fintweet/internal/core/domain"
	"github.com/custodia-labs/fintweet/internal/core/ports/driven"
	"github.com/custodia-labs/fintweet/internal/logger"
)

// DefaultEmbedBatchSize is the number of texts sent to the backend per call.
const DefaultEmbedBatchSize = 64

// EmbeddingOpener creates the embedding backend. It is called until it
// succeeds once.
type EmbeddingOpener func(ctx context.Context) (driven.EmbeddingService, error)

// Embedder maps texts to vectors of a fixed dimension, order preserving.
// The backend handle is opened lazily on first use and shared for the
// lifetime of the Embedder. A failed open is not remembered, so the next
// call tries again.
type Embedder struct {
	open       EmbeddingOpener
	dimensions int
	batchSize  int
	cache      driven.EmbeddingCache

	mu  sync.Mutex
	svc driven.EmbeddingService
}

// EmbedderOption configures an Embedder.
type EmbedderOption func(*Embedder)

// WithBatchSize sets the backend batch size. Values below 1 are ignored.
func WithBatchSize(n int) EmbedderOption {
	return func(e *Embedder) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithEmbeddingCache enables memoisation of embeddings across runs.
func WithEmbeddingCache(c driven.EmbeddingCache) EmbedderOption {
	return func(e *Embedder) {
		e.cache = c
	}
}

// NewEmbedder creates an Embedder producing vectors of the given dimension.
func NewEmbedder(open EmbeddingOpener, dimensions int, opts ...EmbedderOption) *Embedder {
	e := &Embedder{
		open:       open,
		dimensions: dimensions,
		batchSize:  DefaultEmbedBatchSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewStaticEmbedder wraps an already opened backend.
func NewStaticEmbedder(svc driven.EmbeddingService, opts ...EmbedderOption) *Embedder {
	return NewEmbedder(func(context.Context) (driven.EmbeddingService, error) {
		return svc, nil
	}, svc.Dimensions(), opts...)
}

// Dimensions returns the vector size D.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

func (e *Embedder) handle(ctx context.Context) (driven.EmbeddingService, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.svc != nil {
		return e.svc, nil
	}
	if e.open == nil {
		return nil, fmt.Errorf("%w: no embedding backend configured", domain.ErrEmbeddingUnavailable)
	}

	svc, err := e.open(ctx)
	if err == nil && svc == nil {
		err = errors.New("embedding backend opener returned nil")
	}
	if err != nil {
		logger.Debug("Embedding backend open failed: %v", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}

	logger.Debug("Embedding backend ready: model=%s dimensions=%d", svc.ModelName(), svc.Dimensions())
	e.svc = svc
	return svc, nil
}

// Embed returns one vector per input text, in input order.
// An empty input returns an empty result without touching the backend.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	if len(texts) == 0 {
		return out, nil
	}

	svc, err := e.handle(ctx)
	if err != nil {
		return nil, err
	}

	missing := make([]int, 0, len(texts))
	var keys []string
	if e.cache != nil {
		keys = make([]string, len(texts))
		for i, t := range texts {
			keys[i] = cacheKey(svc.ModelName(), e.dimensions, t)
		}
		hits, cerr := e.cache.GetMany(ctx, keys)
		if cerr != nil {
			logger.Warn("Embedding cache lookup failed: %v", cerr)
			hits = nil
		}
		for i := range texts {
			if v, ok := hits[keys[i]]; ok && len(v) == e.dimensions {
				out[i] = v
				continue
			}
			missing = append(missing, i)
		}
		logger.Debug("Embedding cache: %d hits, %d misses", len(texts)-len(missing), len(missing))
	} else {
		for i := range texts {
			missing = append(missing, i)
		}
	}

	fresh := make(map[string][]float32)
	for start := 0; start < len(missing); start += e.batchSize {
		end := min(start+e.batchSize, len(missing))
		idx := missing[start:end]

		batch := make([]string, len(idx))
		for j, i := range idx {
			batch[j] = texts[i]
		}

		vecs, err := svc.EmbedBatch(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
		}
		if len(vecs) != len(batch) {
			return nil, fmt.Errorf("%w: backend returned %d vectors for %d texts",
				domain.ErrEmbeddingUnavailable, len(vecs), len(batch))
		}
		for j, i := range idx {
			if len(vecs[j]) != e.dimensions {
				return nil, fmt.Errorf("%w: backend returned dimension %d, expected %d",
					domain.ErrEmbeddingUnavailable, len(vecs[j]), e.dimensions)
			}
			out[i] = vecs[j]
			if keys != nil {
				fresh[keys[i]] = vecs[j]
			}
		}
	}

	if e.cache != nil && len(fresh) > 0 {
		if err := e.cache.SetMany(ctx, fresh); err != nil {
			logger.Warn("Embedding cache write failed: %v", err)
		}
	}

	return out, nil
}

// EmbedOne embeds a single text.
func (e *Embedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// Ping opens the backend if needed and checks it is reachable.
func (e *Embedder) Ping(ctx context.Context) error {
	svc, err := e.handle(ctx)
	if err != nil {
		return err
	}
	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	return nil
}

// Close releases the backend and cache if they were opened.
func (e *Embedder) Close() error {
	e.mu.Lock()
	svc := e.svc
	e.svc = nil
	e.mu.Unlock()

	var errs []error
	if svc != nil {
		errs = append(errs, svc.Close())
	}
	if e.cache != nil {
		errs = append(errs, e.cache.Close())
	}
	return errors.Join(errs...)
}

func cacheKey(model string, dims int, text string) string {
	sum := sha1.Sum([]byte(text)) //nolint:gosec // G401: see import.
	return fmt.Sprintf("%s:%d:%s", model, dims, hex.EncodeToString(sum[:]))
}
