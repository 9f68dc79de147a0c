package hnsw

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/fintweet/internal/adapters/driven/vectorindex/flat"
	"github.com/custodia-labs/fintweet/internal/core/domain"
)

func randomVectors(n, dim int, seed int64) [][]float32 {
	r := rand.New(rand.NewSource(seed))
	out := make([][]float32, n)
	for i := range out {
		v := make([]float32, dim)
		for j := range v {
			v[j] = float32(r.NormFloat64())
		}
		out[i] = v
	}
	return out
}

func build(t *testing.T, vecs [][]float32, cfg Config) *Index {
	t.Helper()
	idx, err := New(cfg)
	require.NoError(t, err)
	for i, v := range vecs {
		require.NoError(t, idx.Add(context.Background(), fmt.Sprintf("doc-%d", i), int64(i+1), v))
	}
	return idx
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = New(Config{Dimensions: 4, M: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	idx, err := New(Config{Dimensions: 4})
	require.NoError(t, err)
	assert.Equal(t, DefaultM, idx.cfg.M)
	assert.Equal(t, DefaultEfConstruction, idx.cfg.EfConstruction)
	assert.Equal(t, DefaultEfSearch, idx.cfg.EfSearch)
}

func TestIndex_EmptySearch(t *testing.T) {
	idx, err := New(Config{Dimensions: 3})
	require.NoError(t, err)

	hits, err := idx.Search(context.Background(), []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)
}

func TestIndex_Cardinality(t *testing.T) {
	vecs := randomVectors(40, 8, 1)
	idx := build(t, vecs, Config{Dimensions: 8, M: 4, Seed: 7})

	for _, k := range []int{1, 10, 40, 100} {
		hits, err := idx.Search(context.Background(), vecs[3], k)
		require.NoError(t, err)
		assert.Len(t, hits, min(k, 40), "k=%d", k)
	}
}

func TestIndex_ResultsOrdered(t *testing.T) {
	vecs := randomVectors(200, 16, 2)
	idx := build(t, vecs, Config{Dimensions: 16, Seed: 42})

	hits, err := idx.Search(context.Background(), vecs[10], 20)
	require.NoError(t, err)
	for i := 1; i < len(hits); i++ {
		prev, cur := hits[i-1], hits[i]
		assert.True(t, prev.Similarity > cur.Similarity ||
			(prev.Similarity == cur.Similarity && prev.Seq < cur.Seq))
	}
}

func TestIndex_RecallAgainstExactScan(t *testing.T) {
	const n, dim, k = 500, 16, 10
	vecs := randomVectors(n, dim, 3)
	queries := randomVectors(50, dim, 4)

	idx := build(t, vecs, Config{Dimensions: dim, Seed: 42})
	exact, err := flat.New(dim)
	require.NoError(t, err)
	for i, v := range vecs {
		require.NoError(t, exact.Add(context.Background(), fmt.Sprintf("doc-%d", i), int64(i+1), v))
	}

	found, total := 0, 0
	for _, q := range queries {
		want, err := exact.Search(context.Background(), q, k)
		require.NoError(t, err)
		got, err := idx.Search(context.Background(), q, k)
		require.NoError(t, err)

		gotIDs := make(map[string]struct{}, len(got))
		for _, h := range got {
			gotIDs[h.DocID] = struct{}{}
		}
		for _, h := range want {
			total++
			if _, ok := gotIDs[h.DocID]; ok {
				found++
			}
		}
	}

	recall := float64(found) / float64(total)
	assert.GreaterOrEqual(t, recall, 0.9)
}

func TestIndex_Deterministic(t *testing.T) {
	vecs := randomVectors(150, 8, 5)
	cfg := Config{Dimensions: 8, M: 6, EfSearch: 200, Seed: 99}
	a := build(t, vecs, cfg)
	b := build(t, vecs, cfg)

	for _, q := range randomVectors(10, 8, 6) {
		ha, err := a.Search(context.Background(), q, 7)
		require.NoError(t, err)
		hb, err := b.Search(context.Background(), q, 7)
		require.NoError(t, err)
		assert.Equal(t, ha, hb)
	}
}

func TestIndex_DuplicateAddIsNoop(t *testing.T) {
	ctx := context.Background()
	idx, err := New(Config{Dimensions: 2})
	require.NoError(t, err)

	require.NoError(t, idx.Add(ctx, "a", 1, []float32{1, 0}))
	require.NoError(t, idx.Add(ctx, "a", 2, []float32{0, 1}))

	assert.Equal(t, 1, idx.Len())
}

func TestIndex_TiesKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	idx, err := New(Config{Dimensions: 2})
	require.NoError(t, err)

	for i := range 5 {
		require.NoError(t, idx.Add(ctx, fmt.Sprintf("same-%d", i), int64(i+1), []float32{1, 1}))
	}

	hits, err := idx.Search(ctx, []float32{2, 2}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 5)
	for i, h := range hits {
		assert.Equal(t, fmt.Sprintf("same-%d", i), h.DocID)
	}
}

func TestIndex_ZeroVectors(t *testing.T) {
	ctx := context.Background()
	idx, err := New(Config{Dimensions: 2})
	require.NoError(t, err)

	require.NoError(t, idx.Add(ctx, "zero", 1, []float32{0, 0}))
	require.NoError(t, idx.Add(ctx, "east", 2, []float32{1, 0}))
	require.NoError(t, idx.Add(ctx, "west", 3, []float32{-1, 0}))

	hits, err := idx.Search(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, []string{"east", "zero", "west"}, []string{hits[0].DocID, hits[1].DocID, hits[2].DocID})
	assert.Zero(t, hits[1].Similarity)

	// A zero query scores 0 everywhere and keeps insertion order.
	hits, err = idx.Search(ctx, []float32{0, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, "zero", hits[0].DocID)
	assert.Equal(t, "east", hits[1].DocID)
}

func TestIndex_Errors(t *testing.T) {
	ctx := context.Background()
	idx, err := New(Config{Dimensions: 2})
	require.NoError(t, err)

	assert.ErrorIs(t, idx.Add(ctx, "a", 1, []float32{1, 2, 3}), domain.ErrInvalidInput)

	_, err = idx.Search(ctx, []float32{1}, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = idx.Search(ctx, []float32{1, 0}, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	require.NoError(t, idx.Close())
	assert.ErrorIs(t, idx.Add(ctx, "b", 2, []float32{1, 0}), domain.ErrVectorIndexUnavailable)
	_, err = idx.Search(ctx, []float32{1, 0}, 1)
	assert.ErrorIs(t, err, domain.ErrVectorIndexUnavailable)
}
