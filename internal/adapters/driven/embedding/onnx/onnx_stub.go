//go:build !cgo

package onnx

import (
	"context"
	"fmt"

	"github.com/custodia-labs/fintweet/internal/core/domain"
	"github.com/custodia-labs/fintweet/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// EmbeddingService is unavailable without cgo.
type EmbeddingService struct{}

// NewEmbeddingService always fails in builds without cgo.
func NewEmbeddingService(_ Config) (*EmbeddingService, error) {
	return nil, fmt.Errorf("%w: onnx embeddings require a cgo build", domain.ErrNotImplemented)
}

// Embed is not available.
func (s *EmbeddingService) Embed(_ context.Context, _ string) ([]float32, error) {
	return nil, domain.ErrNotImplemented
}

// EmbedBatch is not available.
func (s *EmbeddingService) EmbedBatch(_ context.Context, _ []string) ([][]float32, error) {
	return nil, domain.ErrNotImplemented
}

// Dimensions returns zero.
func (s *EmbeddingService) Dimensions() int { return 0 }

// ModelName returns an empty name.
func (s *EmbeddingService) ModelName() string { return "" }

// Ping is not available.
func (s *EmbeddingService) Ping(_ context.Context) error { return domain.ErrNotImplemented }

// Close does nothing.
func (s *EmbeddingService) Close() error { return nil }
