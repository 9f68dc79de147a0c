package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/fintweet/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/fintweet/internal/adapters/driven/vectorindex/flat"
	"github.com/custodia-labs/fintweet/internal/core/domain"
)

// Three orthogonal topics plus a blend, in a 3-dimensional space.
var topicVectors = map[string][]float32{
	"nvidia beats earnings":  {1, 0, 0},
	"chip stocks rally":      {0.9, 0.1, 0},
	"fed raises rates":       {0, 1, 0},
	"oil slides on supply":   {0, 0, 1},
	"earnings and the fed":   {0.7, 0.7, 0},
	"question about chips":   {1, 0.05, 0},
	"question about rates":   {0, 1, 0.05},
	"question about nothing": {0, 0, 0},
}

func newTestDocumentStore(t *testing.T) (*DocumentStore, *mockEmbeddingService, *memory.EntryStore) {
	t.Helper()
	svc := newMockEmbedding(3, topicVectors)
	entries := memory.NewEntryStore()
	index, err := flat.New(3)
	require.NoError(t, err)

	store, err := OpenDocumentStore(context.Background(),
		domain.Collection{Name: "tweets", Metric: domain.MetricCosine, Dimensions: 3},
		entries, index, NewStaticEmbedder(svc))
	require.NoError(t, err)
	return store, svc, entries
}

func TestDocumentStore_AddAndQuery(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestDocumentStore(t)

	n, err := store.Add(ctx,
		[]string{"1", "2", "3", "4"},
		[]string{"nvidia beats earnings", "fed raises rates", "chip stocks rally", "oil slides on supply"},
		nil)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	got, err := store.Query(ctx, "question about chips", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"nvidia beats earnings", "chip stocks rally"}, got)

	got, err = store.Query(ctx, "question about rates", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"fed raises rates"}, got)
}

func TestDocumentStore_IdempotentAdd(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestDocumentStore(t)
	ids := []string{"1", "2"}
	texts := []string{"nvidia beats earnings", "fed raises rates"}

	n, err := store.Add(ctx, ids, texts, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = store.Add(ctx, ids, texts, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	got, err := store.Query(ctx, "question about chips", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"nvidia beats earnings", "fed raises rates"}, got)
}

func TestDocumentStore_DedupAgainstExisting(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestDocumentStore(t)

	_, err := store.Add(ctx, []string{"a", "b", "c"},
		[]string{"fed raises rates", "oil slides on supply", "earnings and the fed"}, nil)
	require.NoError(t, err)

	n, err := store.Add(ctx, []string{"b", "c", "d"},
		[]string{"changed b", "changed c", "nvidia beats earnings"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	got, err := store.Query(ctx, "question about chips", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"nvidia beats earnings"}, got)

	texts, err := store.Search(ctx, "oil slides on supply", 1)
	require.NoError(t, err)
	assert.Equal(t, "b", texts[0].DocID)
	assert.Equal(t, "oil slides on supply", texts[0].CleanText, "existing entries are never overwritten")
}

func TestDocumentStore_FirstOccurrenceWinsWithinBatch(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestDocumentStore(t)

	n, err := store.Add(ctx, []string{"x", "x"}, []string{"fed raises rates", "oil slides on supply"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	matches, err := store.Search(ctx, "fed raises rates", 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "fed raises rates", matches[0].CleanText)
}

func TestDocumentStore_SuppliedEmbeddings(t *testing.T) {
	ctx := context.Background()
	store, svc, _ := newTestDocumentStore(t)

	n, err := store.Add(ctx,
		[]string{"p", "q"},
		[]string{"free text one", "fed raises rates"},
		[][]float32{{1, 0, 0}, nil})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	batches := svc.batches()
	require.Len(t, batches, 1)
	assert.Equal(t, []string{"fed raises rates"}, batches[0], "only nil embeddings are computed")

	got, err := store.QueryVector(ctx, []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"free text one"}, got)
}

func TestDocumentStore_AddValidation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		ids        []string
		texts      []string
		embeddings [][]float32
	}{
		{name: "ids and texts differ", ids: []string{"a", "b"}, texts: []string{"t"}},
		{name: "embeddings differ", ids: []string{"a"}, texts: []string{"t"}, embeddings: [][]float32{{1, 0, 0}, {0, 1, 0}}},
		{name: "empty id", ids: []string{"a", " "}, texts: []string{"t", "u"}},
		{name: "wrong dimension", ids: []string{"a"}, texts: []string{"t"}, embeddings: [][]float32{{1, 0}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, svc, _ := newTestDocumentStore(t)

			_, err := store.Add(ctx, tt.ids, tt.texts, tt.embeddings)

			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Empty(t, svc.batches(), "validation happens before embedding")
			count, err := store.Count(ctx)
			require.NoError(t, err)
			assert.Zero(t, count)
		})
	}
}

func TestDocumentStore_EmptyAddIsNoop(t *testing.T) {
	store, svc, _ := newTestDocumentStore(t)

	n, err := store.Add(context.Background(), nil, nil, nil)

	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, svc.batches())
}

func TestDocumentStore_EmbeddingFailureLeavesStoreUnchanged(t *testing.T) {
	ctx := context.Background()
	store, svc, _ := newTestDocumentStore(t)
	svc.embedErr = errBackendDown

	_, err := store.Add(ctx, []string{"a"}, []string{"fed raises rates"}, nil)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDocumentStore_QueryErrors(t *testing.T) {
	ctx := context.Background()
	store, svc, _ := newTestDocumentStore(t)

	_, err := store.Query(ctx, "anything", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = store.Query(ctx, "anything", -3)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = store.QueryVector(ctx, []float32{1, 0}, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = store.Add(ctx, []string{"a"}, []string{"fed raises rates"}, nil)
	require.NoError(t, err)
	svc.embedErr = errBackendDown
	_, err = store.Query(ctx, "anything", 1)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestDocumentStore_EmptyStoreQuery(t *testing.T) {
	store, _, _ := newTestDocumentStore(t)

	got, err := store.Query(context.Background(), "question about chips", 5)

	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestDocumentStore_Cardinality(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestDocumentStore(t)

	ids := make([]string, 7)
	texts := make([]string, 7)
	for i := range ids {
		ids[i] = fmt.Sprintf("doc-%d", i)
		texts[i] = fmt.Sprintf("unseen text %d", i)
	}
	_, err := store.Add(ctx, ids, texts, nil)
	require.NoError(t, err)

	for _, k := range []int{1, 5, 7, 30} {
		got, err := store.Query(ctx, "question about chips", k)
		require.NoError(t, err)
		assert.Len(t, got, min(k, 7))
	}
}

func TestDocumentStore_TiesBrokenByInsertionOrder(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestDocumentStore(t)

	// Unknown texts all embed to the same fallback vector.
	_, err := store.Add(ctx, []string{"c", "a", "b"}, []string{"third", "first", "second"}, nil)
	require.NoError(t, err)

	got, err := store.Query(ctx, "another unknown", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"third", "first", "second"}, got)
}

func TestDocumentStore_ReopenRebuildsIndex(t *testing.T) {
	ctx := context.Background()
	store, svc, entries := newTestDocumentStore(t)
	_, err := store.Add(ctx, []string{"1", "2"}, []string{"fed raises rates", "oil slides on supply"}, nil)
	require.NoError(t, err)

	index, err := flat.New(3)
	require.NoError(t, err)
	reopened, err := OpenDocumentStore(ctx, store.Collection(), entries, index, NewStaticEmbedder(svc))
	require.NoError(t, err)

	assert.Equal(t, 2, index.Len())
	got, err := reopened.Query(ctx, "question about rates", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"fed raises rates"}, got)
}

// flakyIndex fails the first failures Add calls.
type flakyIndex struct {
	*flat.Index
	failures int
}

func (f *flakyIndex) Add(ctx context.Context, docID string, seq int64, embedding []float32) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("index closed")
	}
	return f.Index.Add(ctx, docID, seq, embedding)
}

func TestDocumentStore_RetryIndexesStoredEntries(t *testing.T) {
	ctx := context.Background()
	inner, err := flat.New(3)
	require.NoError(t, err)
	index := &flakyIndex{Index: inner, failures: 1}

	store, err := OpenDocumentStore(ctx,
		domain.Collection{Name: "tweets", Metric: domain.MetricCosine, Dimensions: 3},
		memory.NewEntryStore(), index, NewStaticEmbedder(newMockEmbedding(3, topicVectors)))
	require.NoError(t, err)

	ids := []string{"1", "2"}
	texts := []string{"nvidia beats earnings", "fed raises rates"}
	_, err = store.Add(ctx, ids, texts, nil)
	require.Error(t, err)
	assert.Zero(t, index.Len())

	n, err := store.Add(ctx, ids, texts, nil)
	require.NoError(t, err)
	assert.Zero(t, n, "entries were already stored")
	assert.Equal(t, 2, index.Len())

	got, err := store.Query(ctx, "question about rates", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"fed raises rates"}, got)
}

func TestOpenDocumentStore_DimensionMismatch(t *testing.T) {
	index, err := flat.New(3)
	require.NoError(t, err)

	_, err = OpenDocumentStore(context.Background(),
		domain.Collection{Name: "tweets", Metric: domain.MetricCosine, Dimensions: 3},
		memory.NewEntryStore(), index, NewStaticEmbedder(newMockEmbedding(5, nil)))

	assert.ErrorIs(t, err, domain.ErrCollectionMismatch)
}

func TestDocumentStore_ConcurrentAddsNeverDuplicate(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestDocumentStore(t)

	ids := make([]string, 20)
	texts := make([]string, 20)
	for i := range ids {
		ids[i] = fmt.Sprintf("doc-%d", i)
		texts[i] = fmt.Sprintf("text %d", i)
	}

	var wg sync.WaitGroup
	inserted := make([]int, 8)
	for w := range inserted {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			n, err := store.Add(ctx, ids, texts, nil)
			assert.NoError(t, err)
			inserted[w] = n
		}(w)
	}
	wg.Wait()

	total := 0
	for _, n := range inserted {
		total += n
	}
	assert.Equal(t, 20, total)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, count)
}
