package flat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/fintweet/internal/core/domain"
)

func TestNew_InvalidDimension(t *testing.T) {
	_, err := New(0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIndex_SearchOrdersBySimilarity(t *testing.T) {
	ctx := context.Background()
	idx, err := New(2)
	require.NoError(t, err)

	require.NoError(t, idx.Add(ctx, "east", 1, []float32{1, 0}))
	require.NoError(t, idx.Add(ctx, "north", 2, []float32{0, 1}))
	require.NoError(t, idx.Add(ctx, "northeast", 3, []float32{2, 2}))

	hits, err := idx.Search(ctx, []float32{1, 0.1}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "east", hits[0].DocID)
	assert.Equal(t, "northeast", hits[1].DocID)
	assert.Equal(t, "north", hits[2].DocID)
}

func TestIndex_TiesKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	idx, err := New(2)
	require.NoError(t, err)

	require.NoError(t, idx.Add(ctx, "second", 2, []float32{1, 1}))
	require.NoError(t, idx.Add(ctx, "first", 1, []float32{3, 3}))

	hits, err := idx.Search(ctx, []float32{1, 1}, 2)
	require.NoError(t, err)
	assert.Equal(t, "first", hits[0].DocID)
	assert.Equal(t, "second", hits[1].DocID)
}

func TestIndex_DuplicateAddIsNoop(t *testing.T) {
	ctx := context.Background()
	idx, err := New(2)
	require.NoError(t, err)

	require.NoError(t, idx.Add(ctx, "a", 1, []float32{1, 0}))
	require.NoError(t, idx.Add(ctx, "a", 2, []float32{0, 1}))

	assert.Equal(t, 1, idx.Len())
	hits, err := idx.Search(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(1), hits[0].Seq)
}

func TestIndex_Errors(t *testing.T) {
	ctx := context.Background()
	idx, err := New(2)
	require.NoError(t, err)

	assert.ErrorIs(t, idx.Add(ctx, "a", 1, []float32{1}), domain.ErrInvalidInput)

	_, err = idx.Search(ctx, []float32{1, 0}, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	require.NoError(t, idx.Close())
	_, err = idx.Search(ctx, []float32{1, 0}, 1)
	assert.ErrorIs(t, err, domain.ErrVectorIndexUnavailable)
}

func TestIndex_EmptySearch(t *testing.T) {
	idx, err := New(3)
	require.NoError(t, err)

	hits, err := idx.Search(context.Background(), []float32{1, 2, 3}, 4)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
