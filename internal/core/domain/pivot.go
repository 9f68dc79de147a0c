package domain

// PivotRow is one ticker's sentiment tabulation. Rows are derived on demand
// and never persisted.
type PivotRow struct {
	Ticker   string  `json:"ticker"`
	Positive int     `json:"positive"`
	Neutral  int     `json:"neutral"`
	Negative int     `json:"negative"`
	Total    int     `json:"total"`
	PosRatio float64 `json:"pos_ratio"`
	NegRatio float64 `json:"neg_ratio"`
}

// PivotMetric selects the column a pivot is ranked by.
type PivotMetric string

// Ranking metrics offered to callers.
const (
	MetricNegRatio PivotMetric = "neg_ratio"
	MetricPosRatio PivotMetric = "pos_ratio"
	MetricTotal    PivotMetric = "total"
)

// IsValid returns true if the metric is recognised.
func (m PivotMetric) IsValid() bool {
	switch m {
	case MetricNegRatio, MetricPosRatio, MetricTotal:
		return true
	default:
		return false
	}
}

// Value returns the row's value for the metric.
func (m PivotMetric) Value(r PivotRow) float64 {
	switch m {
	case MetricPosRatio:
		return r.PosRatio
	case MetricTotal:
		return float64(r.Total)
	default:
		return r.NegRatio
	}
}

// TickerMentions counts how often a ticker appears across records.
type TickerMentions struct {
	Ticker string `json:"ticker"`
	Count  int    `json:"count"`
}
