package hashing

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

func norm2(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{in: "NVDA to the moon!", want: []string{"nvda", "to", "the", "moon"}},
		{in: "$AAPL beats, $TSLA misses", want: []string{"$aapl", "beats", "$tsla", "misses"}},
		{in: "price $ 100", want: []string{"price", "100"}},
		{in: "ＮＶＤＡ", want: []string{"nvda"}},
		{in: "   ", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.in))
		})
	}
}

func TestEmbed_Deterministic(t *testing.T) {
	a := NewEmbeddingService(64)
	b := NewEmbeddingService(64)

	va, err := a.Embed(context.Background(), "Nvidia earnings beat expectations")
	require.NoError(t, err)
	vb, err := b.Embed(context.Background(), "Nvidia earnings beat expectations")
	require.NoError(t, err)

	assert.Equal(t, va, vb)
	assert.Len(t, va, 64)
	assert.InDelta(t, 1.0, norm2(va), 1e-5)
}

func TestEmbed_SharedVocabularyIsCloser(t *testing.T) {
	svc := NewEmbeddingService(DefaultDimensions)
	ctx := context.Background()

	vecs, err := svc.EmbedBatch(ctx, []string{
		"nvidia chips demand surges",
		"demand for nvidia chips surges again",
		"oil prices fall on weak demand forecast",
	})
	require.NoError(t, err)

	assert.Greater(t, cosine(vecs[0], vecs[1]), cosine(vecs[0], vecs[2]))
}

func TestEmbed_EmptyText(t *testing.T) {
	svc := NewEmbeddingService(8)

	vec, err := svc.Embed(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 8), vec)
}

func TestEmbedBatch_Cancelled(t *testing.T) {
	svc := NewEmbeddingService(8)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.EmbedBatch(ctx, []string{"a"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDefaults(t *testing.T) {
	svc := NewEmbeddingService(0)

	assert.Equal(t, DefaultDimensions, svc.Dimensions())
	assert.Equal(t, ModelName, svc.ModelName())
	assert.NoError(t, svc.Ping(context.Background()))
	assert.NoError(t, svc.Close())
}
