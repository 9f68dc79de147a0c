// Package hashing provides a deterministic, offline embedding service based on
// signed feature hashing of word unigrams and bigrams.
//
// It needs no model files or network access, which makes it the default
// provider and the one used in tests. Texts sharing vocabulary land close
// together in cosine space; it carries no semantic knowledge beyond that.
package hashing

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/custodia-labs/fintweet/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultDimensions = 384
	ModelName         = "hashing-v1"

	bigramWeight = 0.5
)

// EmbeddingService embeds text by hashing tokens into a fixed-width vector.
type EmbeddingService struct {
	dimensions int
}

// NewEmbeddingService creates a hashing embedder producing vectors of the given width.
func NewEmbeddingService(dimensions int) *EmbeddingService {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &EmbeddingService{dimensions: dimensions}
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	return s.vector(text), nil
}

// EmbedBatch generates embeddings for multiple texts.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = s.vector(text)
	}
	return out, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return ModelName
}

// Ping always succeeds.
func (s *EmbeddingService) Ping(_ context.Context) error {
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}

func (s *EmbeddingService) vector(text string) []float32 {
	vec := make([]float32, s.dimensions)
	tokens := Tokenize(text)
	for i, tok := range tokens {
		s.accumulate(vec, tok, 1)
		if i > 0 {
			s.accumulate(vec, tokens[i-1]+" "+tok, bigramWeight)
		}
	}

	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range vec {
		vec[i] *= inv
	}
	return vec
}

// accumulate adds a signed weight for feature into its bucket. The low bit of
// the hash picks the sign so that collisions tend to cancel.
func (s *EmbeddingService) accumulate(vec []float32, feature string, weight float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()

	bucket := (sum >> 1) % uint64(s.dimensions)
	if sum&1 == 1 {
		vec[bucket] -= weight
	} else {
		vec[bucket] += weight
	}
}

// Tokenize splits text into lower-case word tokens after NFKC normalisation.
// Cashtags keep their leading '$' so "$NVDA" and "nvda" stay distinct features.
func Tokenize(text string) []string {
	text = strings.ToLower(norm.NFKC.String(text))

	var tokens []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '$' && b.Len() == 0:
			b.WriteRune(r)
		default:
			if b.String() == "$" {
				b.Reset()
			}
			flush()
		}
	}
	if b.String() == "$" {
		b.Reset()
	}
	flush()
	return tokens
}
