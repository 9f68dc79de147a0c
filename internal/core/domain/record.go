package domain

import "strings"

// Sentiment is the label attached to a post by the sentiment classifier.
type Sentiment string

// Sentiment labels.
const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// ParseSentiment normalises a raw label. Unknown labels are returned as-is
// (lower-cased) so that they survive ingestion; aggregation ignores them.
func ParseSentiment(s string) Sentiment {
	return Sentiment(strings.ToLower(strings.TrimSpace(s)))
}

// IsValid returns true if the sentiment is one of the three known labels.
func (s Sentiment) IsValid() bool {
	switch s {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (s Sentiment) String() string {
	return string(s)
}

// UnknownTopic is used when no topic label is available.
const UnknownTopic = "Unknown"

// Record is one social-media post after labelling.
type Record struct {
	// DocID is the unique identifier and deduplication key.
	DocID string `json:"doc_id"`

	// Text is the raw original text. It is never indexed.
	Text string `json:"text,omitempty"`

	// CleanText is the normalised text used for embedding and as the indexed body.
	CleanText string `json:"clean_text"`

	// Sentiment is one of positive, neutral or negative.
	Sentiment Sentiment `json:"sentiment,omitempty"`

	// Topic is a label from a fixed set, or UnknownTopic.
	Topic string `json:"topic,omitempty"`

	// Tickers are the ticker symbols mentioned, in order. May be empty.
	Tickers []string `json:"tickers,omitempty"`

	// Embedding is an optional precomputed vector of the collection dimension.
	Embedding []float32 `json:"embedding,omitempty"`
}

// IndexedEntry is the subset of a Record persisted by the document store.
// Entries are created on first insert of a new DocID and never mutated.
type IndexedEntry struct {
	// Seq is the insertion sequence assigned by the store. It orders ties.
	Seq int64

	// DocID is the primary key.
	DocID string

	// CleanText is the indexed document body.
	CleanText string

	// Embedding is the stored vector.
	Embedding []float32
}

// Match is a retrieval hit hydrated with its document body.
type Match struct {
	DocID      string  `json:"doc_id"`
	CleanText  string  `json:"clean_text"`
	Similarity float64 `json:"similarity"`
}

// TopicLabels is the fixed topic label set, indexed by the numeric label
// found in pre-labelled datasets.
var TopicLabels = []string{
	"Analyst Update", "Bank", "Buyback", "Dividend", "ECB", "Federal Reserve",
	"Financials", "Forecast", "General News", "Gold", "IPO", "Market Commentary",
	"Mergers & Acquisitions", "Oil", "Politics", "Quarterly Results",
	"Stock Movement", "Tech", "Trade", "USD",
}

// TopicFromLabel maps a numeric label to its topic, or UnknownTopic when out of range.
func TopicFromLabel(label int) string {
	if label < 0 || label >= len(TopicLabels) {
		return UnknownTopic
	}
	return TopicLabels[label]
}
