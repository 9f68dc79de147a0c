// Package openai embeds text through the OpenAI /embeddings endpoint or any
// server that speaks the same protocol.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/fintweet/internal/adapters/driven/embedding/httpjson"
	"github.com/custodia-labs/fintweet/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "text-embedding-3-small"
	DefaultTimeout = 60 * time.Second

	// MaxInputs is the most inputs the API accepts in one request.
	MaxInputs = 2048
)

var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// Config holds connection and model settings.
type Config struct {
	APIKey string

	// BaseURL may point at Azure OpenAI or a compatible gateway.
	BaseURL string
	Model   string
	Timeout time.Duration

	// Dimensions shortens text-embedding-3 vectors server side. For other
	// models it only declares the expected width.
	Dimensions int

	RequestsPerSecond float64

	// MaxTries and InitialBackoff tune retries of 429 and 5xx responses.
	MaxTries       uint
	InitialBackoff time.Duration
}

// EmbeddingService embeds posts with an OpenAI model.
type EmbeddingService struct {
	client     *httpjson.Client
	model      string
	dimensions int
	// shortens is set for models that accept the dimensions parameter.
	shortens bool
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// NewEmbeddingService validates cfg and applies defaults.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	dims := cfg.Dimensions
	if dims == 0 {
		dims = modelDimensions[cfg.Model]
	}
	if dims == 0 {
		dims = modelDimensions[DefaultModel]
	}

	return &EmbeddingService{
		client: httpjson.New(httpjson.Config{
			Provider:          "openai",
			BaseURL:           strings.TrimRight(cfg.BaseURL, "/"),
			Timeout:           cfg.Timeout,
			Header:            http.Header{"Authorization": {"Bearer " + cfg.APIKey}},
			RequestsPerSecond: cfg.RequestsPerSecond,
			MaxTries:          cfg.MaxTries,
			InitialBackoff:    cfg.InitialBackoff,
		}),
		model:      cfg.Model,
		dimensions: dims,
		shortens:   strings.HasPrefix(cfg.Model, "text-embedding-3-"),
	}, nil
}

// Embed embeds a single text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in order, splitting them into requests of at
// most MaxInputs.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += MaxInputs {
		end := min(start+MaxInputs, len(texts))
		vecs, err := s.embedChunk(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (s *EmbeddingService) embedChunk(ctx context.Context, texts []string) ([][]float32, error) {
	req := embeddingRequest{Model: s.model, Input: texts}
	if s.shortens {
		req.Dimensions = s.dimensions
	}

	var resp embeddingResponse
	if err := s.client.Post(ctx, "/embeddings", req, &resp); err != nil {
		return nil, err
	}

	// Items may arrive in any order.
	vecs := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, fmt.Errorf("openai: response index %d out of range", item.Index)
		}
		vec := make([]float32, len(item.Embedding))
		for i, v := range item.Embedding {
			vec[i] = float32(v)
		}
		vecs[item.Index] = vec
	}
	for i, v := range vecs {
		if v == nil {
			return nil, fmt.Errorf("openai: no embedding returned for input %d", i)
		}
	}
	return vecs, nil
}

func (s *EmbeddingService) Dimensions() int { return s.dimensions }

func (s *EmbeddingService) ModelName() string { return s.model }

// Ping lists models, which checks the key without running inference.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.client.Get(ctx, "/models")
}

func (s *EmbeddingService) Close() error { return nil }
