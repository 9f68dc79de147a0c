// Package ollama embeds text with a local Ollama server.
package ollama

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/fintweet/internal/adapters/driven/embedding/httpjson"
	"github.com/custodia-labs/fintweet/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultModel      = "nomic-embed-text"
	DefaultTimeout    = 30 * time.Second
	DefaultDimensions = 768
)

// Config holds connection and model settings.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration

	// Dimensions is the width the model produces. Ollama cannot shorten
	// vectors, so this must match the model.
	Dimensions int

	RequestsPerSecond float64
	MaxTries          uint
	InitialBackoff    time.Duration
}

// EmbeddingService embeds posts through /api/embed.
type EmbeddingService struct {
	client     *httpjson.Client
	model      string
	dimensions int
}

// embedRequest is the /api/embed body. Input takes a list, so a batch is
// one round trip.
type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// NewEmbeddingService applies defaults to cfg.
func NewEmbeddingService(cfg Config) *EmbeddingService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}

	return &EmbeddingService{
		client: httpjson.New(httpjson.Config{
			Provider:          "ollama",
			BaseURL:           strings.TrimRight(cfg.BaseURL, "/"),
			Timeout:           cfg.Timeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
			MaxTries:          cfg.MaxTries,
			InitialBackoff:    cfg.InitialBackoff,
		}),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
}

func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts with a single request.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	var resp embedResponse
	if err := s.client.Post(ctx, "/api/embed", embedRequest{Model: s.model, Input: texts}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama: got %d embeddings for %d inputs", len(resp.Embeddings), len(texts))
	}

	vecs := make([][]float32, len(texts))
	for i, raw := range resp.Embeddings {
		vec := make([]float32, len(raw))
		for j, v := range raw {
			vec[j] = float32(v)
		}
		vecs[i] = vec
	}
	return vecs, nil
}

func (s *EmbeddingService) Dimensions() int { return s.dimensions }

func (s *EmbeddingService) ModelName() string { return s.model }

// Ping lists local models through /api/tags.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.client.Get(ctx, "/api/tags")
}

func (s *EmbeddingService) Close() error { return nil }
