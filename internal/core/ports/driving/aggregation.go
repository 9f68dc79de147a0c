package driving

import "github.com/custodia-labs/fintweet/internal/core/domain"

// AggregationService tabulates ticker sentiment over the accumulated records.
type AggregationService interface {
	// Pivot returns rows with at least minMentions mentions, ranked by
	// negative ratio.
	Pivot(minMentions int) []domain.PivotRow

	// Ranked returns Pivot re-ordered by metric and truncated to top rows.
	// top <= 0 means no truncation.
	Ranked(minMentions int, metric domain.PivotMetric, top int) ([]domain.PivotRow, error)

	// Mentions returns per-ticker mention counts, most mentioned first.
	Mentions(top int) []domain.TickerMentions

	// TickerContext returns the pivot rows of the given tickers regardless
	// of mention threshold.
	TickerContext(tickers []string) []domain.PivotRow

	// Records returns the number of accumulated records.
	Records() int
}
