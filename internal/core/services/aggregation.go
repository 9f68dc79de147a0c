package services

import (
	"fmt"
	"sort"

	"github.com/custodia-labs/fintweet/internal/core/domain"
	"github.com/custodia-labs/fintweet/internal/core/ports/driving"
)

// Ensure AggregationService implements the interface.
var _ driving.AggregationService = (*AggregationService)(nil)

// Pivot tabulates sentiment per ticker.
//
// Each record contributes one (ticker, sentiment) pair per non-empty ticker.
// Rows with fewer than minMentions mentions are dropped, as are rows with no
// mentions at all. Unknown sentiment labels are not counted. The result is
// sorted by negative ratio descending, then ticker ascending, and is never nil.
func Pivot(records []domain.Record, minMentions int) []domain.PivotRow {
	counts := tabulate(records, nil)

	rows := make([]domain.PivotRow, 0, len(counts))
	for _, row := range counts {
		if row.Total == 0 || row.Total < minMentions {
			continue
		}
		rows = append(rows, withRatios(*row))
	}

	sortRows(rows, domain.MetricNegRatio)
	return rows
}

// SortPivot orders rows by metric descending, ticker ascending on ties.
// rows is sorted in place and returned.
func SortPivot(rows []domain.PivotRow, metric domain.PivotMetric) []domain.PivotRow {
	sortRows(rows, metric)
	return rows
}

// Top returns at most n leading rows. n <= 0 returns all rows.
func Top(rows []domain.PivotRow, n int) []domain.PivotRow {
	if n <= 0 || n >= len(rows) {
		return rows
	}
	return rows[:n]
}

// Mentions counts how many times each non-empty ticker is mentioned,
// regardless of sentiment. Sorted by count descending, ticker ascending.
// top <= 0 returns every ticker.
func Mentions(records []domain.Record, top int) []domain.TickerMentions {
	counts := make(map[string]int)
	for _, r := range records {
		for _, t := range r.Tickers {
			if t == "" {
				continue
			}
			counts[t]++
		}
	}

	out := make([]domain.TickerMentions, 0, len(counts))
	for t, c := range counts {
		out = append(out, domain.TickerMentions{Ticker: t, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Ticker < out[j].Ticker
	})

	if top > 0 && top < len(out) {
		out = out[:top]
	}
	return out
}

// TickerContext returns pivot rows for the requested tickers with no
// mention threshold, in request order. Tickers never mentioned are omitted.
func TickerContext(records []domain.Record, tickers []string) []domain.PivotRow {
	want := make(map[string]struct{}, len(tickers))
	for _, t := range tickers {
		if t != "" {
			want[t] = struct{}{}
		}
	}
	counts := tabulate(records, want)

	rows := make([]domain.PivotRow, 0, len(want))
	seen := make(map[string]struct{}, len(want))
	for _, t := range tickers {
		row, ok := counts[t]
		if !ok || row.Total == 0 {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		rows = append(rows, withRatios(*row))
	}
	return rows
}

// tabulate counts sentiment per ticker. A nil filter keeps every ticker.
func tabulate(records []domain.Record, filter map[string]struct{}) map[string]*domain.PivotRow {
	counts := make(map[string]*domain.PivotRow)
	for _, r := range records {
		if !r.Sentiment.IsValid() {
			continue
		}
		for _, t := range r.Tickers {
			if t == "" {
				continue
			}
			if filter != nil {
				if _, ok := filter[t]; !ok {
					continue
				}
			}
			row, ok := counts[t]
			if !ok {
				row = &domain.PivotRow{Ticker: t}
				counts[t] = row
			}
			switch r.Sentiment {
			case domain.SentimentPositive:
				row.Positive++
			case domain.SentimentNeutral:
				row.Neutral++
			case domain.SentimentNegative:
				row.Negative++
			}
			row.Total++
		}
	}
	return counts
}

func withRatios(row domain.PivotRow) domain.PivotRow {
	row.PosRatio = float64(row.Positive) / float64(row.Total)
	row.NegRatio = float64(row.Negative) / float64(row.Total)
	return row
}

func sortRows(rows []domain.PivotRow, metric domain.PivotMetric) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := metric.Value(rows[i]), metric.Value(rows[j])
		if a != b {
			return a > b
		}
		return rows[i].Ticker < rows[j].Ticker
	})
}

// AggregationService runs the aggregation engine over a record set snapshot.
type AggregationService struct {
	records *RecordSet
}

// NewAggregationService creates an aggregation service over records.
func NewAggregationService(records *RecordSet) *AggregationService {
	return &AggregationService{records: records}
}

// Pivot returns the pivot of all accumulated records.
func (s *AggregationService) Pivot(minMentions int) []domain.PivotRow {
	return Pivot(s.records.Snapshot(), minMentions)
}

// Ranked returns the pivot ordered by metric and truncated to top rows.
func (s *AggregationService) Ranked(minMentions int, metric domain.PivotMetric, top int) ([]domain.PivotRow, error) {
	if metric == "" {
		metric = domain.MetricNegRatio
	}
	if !metric.IsValid() {
		return nil, fmt.Errorf("%w: unknown metric %q", domain.ErrInvalidInput, metric)
	}
	rows := Pivot(s.records.Snapshot(), minMentions)
	return Top(SortPivot(rows, metric), top), nil
}

// Mentions returns ticker mention counts over all accumulated records.
func (s *AggregationService) Mentions(top int) []domain.TickerMentions {
	return Mentions(s.records.Snapshot(), top)
}

// TickerContext returns sentiment rows for the given tickers.
func (s *AggregationService) TickerContext(tickers []string) []domain.PivotRow {
	return TickerContext(s.records.Snapshot(), tickers)
}

// Records returns the number of accumulated records.
func (s *AggregationService) Records() int {
	return s.records.Len()
}
