package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/fintweet/internal/core/domain"
)

type mockIngest struct {
	mu      sync.Mutex
	batches [][]domain.Record
	err     error
}

func (m *mockIngest) Ingest(_ context.Context, recs []domain.Record) (*domain.IngestReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.batches = append(m.batches, recs)
	return &domain.IngestReport{BatchID: "b", Received: len(recs), Inserted: len(recs)}, nil
}

func (m *mockIngest) ids() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, b := range m.batches {
		for _, r := range b {
			out = append(out, r.DocID)
		}
	}
	return out
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestEligible(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"tweets.jsonl", true},
		{"tweets.csv", true},
		{"TWEETS.CSV", true},
		{"batch.json", true},
		{".hidden.jsonl", false},
		{"notes.txt", false},
		{"tweets.jsonl.swp", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, eligible(tt.name))
		})
	}
}

func TestIngestExisting(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.jsonl"), `{"doc_id":"b1","clean_text":"two"}`+"\n")
	writeFile(t, filepath.Join(dir, "a.csv"), "doc_id,clean_text\na1,one\n")
	writeFile(t, filepath.Join(dir, "ignore.txt"), "not records")
	writeFile(t, filepath.Join(dir, "bad.jsonl"), `{"doc_id":"x"}`+"\n")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.jsonl"), 0o755))

	ing := &mockIngest{}
	w := New(dir, ing)

	n, err := w.IngestExisting(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"a1", "b1"}, ing.ids())
}

func TestIngestPath_OnlyNewRecords(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "live.jsonl")
	writeFile(t, path, `{"doc_id":"1","clean_text":"a"}`+"\n")

	ing := &mockIngest{}
	w := New(dir, ing)
	ctx := context.Background()

	require.True(t, w.ingestPath(ctx, path))

	writeFile(t, path, `{"doc_id":"1","clean_text":"a"}`+"\n"+`{"doc_id":"2","clean_text":"b"}`+"\n")
	require.True(t, w.ingestPath(ctx, path))

	// unchanged file is a no-op
	require.True(t, w.ingestPath(ctx, path))

	require.Len(t, ing.batches, 2)
	assert.Equal(t, []string{"1", "2"}, ing.ids())
}

func TestIngestPath_ShrunkFileIsReingested(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "live.jsonl")
	writeFile(t, path, `{"doc_id":"1","clean_text":"a"}`+"\n"+`{"doc_id":"2","clean_text":"b"}`+"\n")

	ing := &mockIngest{}
	w := New(dir, ing)
	require.True(t, w.ingestPath(context.Background(), path))

	writeFile(t, path, `{"doc_id":"3","clean_text":"c"}`+"\n")
	require.True(t, w.ingestPath(context.Background(), path))

	assert.Equal(t, []string{"1", "2", "3"}, ing.ids())
}

func TestIngestPath_FailureKeepsOffset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "live.jsonl")
	writeFile(t, path, `{"doc_id":"1","clean_text":"a"}`+"\n")

	ing := &mockIngest{err: errors.New("backend down")}
	w := New(dir, ing)
	assert.False(t, w.ingestPath(context.Background(), path))

	ing.err = nil
	assert.True(t, w.ingestPath(context.Background(), path))
	assert.Equal(t, []string{"1"}, ing.ids())
}

func TestRelevant(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "t.jsonl")
	writeFile(t, file, "")
	sub := filepath.Join(dir, "d.jsonl")
	require.NoError(t, os.Mkdir(sub, 0o755))

	w := New(dir, &mockIngest{})

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"create", fsnotify.Event{Name: file, Op: fsnotify.Create}, true},
		{"write", fsnotify.Event{Name: file, Op: fsnotify.Write}, true},
		{"write and chmod", fsnotify.Event{Name: file, Op: fsnotify.Write | fsnotify.Chmod}, true},
		{"chmod only", fsnotify.Event{Name: file, Op: fsnotify.Chmod}, false},
		{"remove", fsnotify.Event{Name: file, Op: fsnotify.Remove}, false},
		{"directory", fsnotify.Event{Name: sub, Op: fsnotify.Create}, false},
		{"unsupported", fsnotify.Event{Name: filepath.Join(dir, "x.txt"), Op: fsnotify.Create}, false},
		{"vanished", fsnotify.Event{Name: filepath.Join(dir, "gone.jsonl"), Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := w.relevant(tt.event)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestRun_NotADirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f.jsonl")
	writeFile(t, file, "")

	err := New(file, &mockIngest{}).Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = New(filepath.Join(dir, "missing"), &mockIngest{}).Run(context.Background())
	assert.Error(t, err)
}

func TestRun_IngestsExistingAndNewFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "existing.jsonl"), `{"doc_id":"e1","clean_text":"old"}`+"\n")

	ing := &mockIngest{}
	ingested := make(chan string, 4)
	w := New(dir, ing,
		WithDebounce(20*time.Millisecond),
		OnIngest(func(path string, _ *domain.IngestReport) { ingested <- filepath.Base(path) }),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case name := <-ingested:
		assert.Equal(t, "existing.jsonl", name)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for initial ingest")
	}

	writeFile(t, filepath.Join(dir, "new.jsonl"), `{"doc_id":"n1","clean_text":"fresh"}`+"\n")

	select {
	case name := <-ingested:
		assert.Equal(t, "new.jsonl", name)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for new file ingest")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
	assert.Equal(t, []string{"e1", "n1"}, ing.ids())
}
