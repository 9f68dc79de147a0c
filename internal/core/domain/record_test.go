package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSentiment(t *testing.T) {
	tests := []struct {
		in       string
		expected Sentiment
		valid    bool
	}{
		{"positive", SentimentPositive, true},
		{" Negative ", SentimentNegative, true},
		{"NEUTRAL", SentimentNeutral, true},
		{"bullish", Sentiment("bullish"), false},
		{"", Sentiment(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseSentiment(tt.in)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, tt.valid, got.IsValid())
		})
	}
}

func TestCollection_Validate(t *testing.T) {
	c := Collection{Name: DefaultCollection, Metric: MetricCosine, Dimensions: 384}
	require.NoError(t, c.Validate())

	assert.ErrorIs(t, Collection{Metric: MetricCosine, Dimensions: 3}.Validate(), ErrInvalidInput)
	assert.ErrorIs(t, Collection{Name: "x", Metric: "l2", Dimensions: 3}.Validate(), ErrInvalidInput)
	assert.ErrorIs(t, Collection{Name: "x", Metric: MetricCosine}.Validate(), ErrInvalidInput)
}

func TestCollection_Compatible(t *testing.T) {
	c := Collection{Name: "tweets", Metric: MetricCosine, Dimensions: 384}

	require.NoError(t, c.Compatible(c))

	err := c.Compatible(Collection{Name: "tweets", Metric: MetricCosine, Dimensions: 768})
	require.ErrorIs(t, err, ErrCollectionMismatch)
	assert.Contains(t, err.Error(), "dimensions=768")
}

func TestPivotMetric_Value(t *testing.T) {
	row := PivotRow{Ticker: "NVDA", Total: 20, PosRatio: 0.6, NegRatio: 0.15}

	assert.Equal(t, 0.15, MetricNegRatio.Value(row))
	assert.Equal(t, 0.6, MetricPosRatio.Value(row))
	assert.Equal(t, 20.0, MetricTotal.Value(row))
	assert.True(t, MetricTotal.IsValid())
	assert.False(t, PivotMetric("volume").IsValid())
}

func TestTopicFromLabel(t *testing.T) {
	assert.Equal(t, "Analyst Update", TopicFromLabel(0))
	assert.Equal(t, "USD", TopicFromLabel(19))
	assert.Equal(t, UnknownTopic, TopicFromLabel(20))
	assert.Equal(t, UnknownTopic, TopicFromLabel(-1))
}
