package mcp

import (
	"context"
	"testing"

	"github.com/custodia-labs/fintweet/internal/core/domain"
)

// mockDocumentStore is a mock implementation of driving.DocumentStore.
type mockDocumentStore struct {
	matches []domain.Match
	count   int
	err     error

	lastQuery string
	lastK     int
}

func (m *mockDocumentStore) Add(_ context.Context, ids, _ []string, _ [][]float32) (int, error) {
	return len(ids), m.err
}

func (m *mockDocumentStore) Query(ctx context.Context, text string, k int) ([]string, error) {
	matches, err := m.Search(ctx, text, k)
	out := make([]string, len(matches))
	for i := range matches {
		out[i] = matches[i].CleanText
	}
	return out, err
}

func (m *mockDocumentStore) QueryVector(_ context.Context, _ []float32, _ int) ([]string, error) {
	return nil, m.err
}

func (m *mockDocumentStore) Search(_ context.Context, text string, k int) ([]domain.Match, error) {
	m.lastQuery = text
	m.lastK = k
	return m.matches, m.err
}

func (m *mockDocumentStore) Count(_ context.Context) (int, error) {
	return m.count, m.err
}

// mockAggregation is a mock implementation of driving.AggregationService.
type mockAggregation struct {
	rows     []domain.PivotRow
	mentions []domain.TickerMentions
	records  int
	err      error

	lastMin    int
	lastMetric domain.PivotMetric
	lastTop    int
}

func (m *mockAggregation) Pivot(minMentions int) []domain.PivotRow {
	m.lastMin = minMentions
	return m.rows
}

func (m *mockAggregation) Ranked(minMentions int, metric domain.PivotMetric, top int) ([]domain.PivotRow, error) {
	m.lastMin, m.lastMetric, m.lastTop = minMentions, metric, top
	return m.rows, m.err
}

func (m *mockAggregation) Mentions(top int) []domain.TickerMentions {
	m.lastTop = top
	return m.mentions
}

func (m *mockAggregation) TickerContext(tickers []string) []domain.PivotRow {
	var out []domain.PivotRow
	for _, r := range m.rows {
		for _, t := range tickers {
			if r.Ticker == t {
				out = append(out, r)
			}
		}
	}
	return out
}

func (m *mockAggregation) Records() int {
	return m.records
}

// mockIngest is a mock implementation of driving.IngestService.
type mockIngest struct {
	got []domain.Record
	err error
}

func (m *mockIngest) Ingest(_ context.Context, records []domain.Record) (*domain.IngestReport, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.got = records
	return &domain.IngestReport{BatchID: "b1", Received: len(records), Inserted: len(records), RecordSetSize: len(records)}, nil
}

func newTestServer(t testing.TB, ports *Ports) *Server {
	t.Helper()
	s, err := NewServer(ports)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return s
}
