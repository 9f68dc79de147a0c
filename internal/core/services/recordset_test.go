package services

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/fintweet/internal/core/domain"
)

func TestRecordSet_AppendPreservesOrder(t *testing.T) {
	s := NewRecordSet()

	assert.Equal(t, 2, s.Append(domain.Record{DocID: "1"}, domain.Record{DocID: "2"}))
	assert.Equal(t, 3, s.Append(domain.Record{DocID: "1"}))

	snap := s.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "1", snap[0].DocID)
	assert.Equal(t, "2", snap[1].DocID)
	assert.Equal(t, "1", snap[2].DocID, "duplicates are kept")
}

func TestRecordSet_SnapshotUnaffectedByLaterAppends(t *testing.T) {
	s := NewRecordSet()
	s.Append(domain.Record{DocID: "a"})
	snap := s.Snapshot()

	s.Append(domain.Record{DocID: "b"})

	assert.Len(t, snap, 1)
	assert.Equal(t, 2, s.Len())
}

func TestRecordSet_ConcurrentBatchesStayWhole(t *testing.T) {
	s := NewRecordSet()
	const writers, batch = 8, 50

	var wg sync.WaitGroup
	for w := range writers {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			records := make([]domain.Record, batch)
			for i := range records {
				records[i] = domain.Record{DocID: fmt.Sprintf("%d-%d", w, i)}
			}
			s.Append(records...)
		}(w)
	}
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Zero(t, len(s.Snapshot())%batch)
		}()
	}
	wg.Wait()

	snap := s.Snapshot()
	require.Len(t, snap, writers*batch)
	for start := 0; start < len(snap); start += batch {
		var w, i int
		_, err := fmt.Sscanf(snap[start].DocID, "%d-%d", &w, &i)
		require.NoError(t, err)
		for j := range batch {
			assert.Equal(t, fmt.Sprintf("%d-%d", w, j), snap[start+j].DocID)
		}
	}
}
