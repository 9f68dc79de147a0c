package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/fintweet/internal/core/domain"
)

func readRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: uri}}
}

func TestServer_handleStatsResource(t *testing.T) {
	server := newTestServer(t, &Ports{
		Store:       &mockDocumentStore{count: 7},
		Aggregation: &mockAggregation{records: 9},
	})

	res, err := server.handleStatsResource(context.Background(), readRequest("fintweet://stats"))
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)

	var got stats
	require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &got))
	assert.Equal(t, stats{Indexed: 7, Records: 9}, got)
}

func TestServer_handleTickerResource(t *testing.T) {
	agg := &mockAggregation{rows: []domain.PivotRow{{Ticker: "AMD", Negative: 2, Total: 2, NegRatio: 1}}}
	server := newTestServer(t, &Ports{Store: &mockDocumentStore{}, Aggregation: agg})

	res, err := server.handleTickerResource(context.Background(), readRequest("fintweet://tickers/AMD"))
	require.NoError(t, err)

	var row domain.PivotRow
	require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &row))
	assert.Equal(t, "AMD", row.Ticker)
	assert.Equal(t, 1.0, row.NegRatio)

	_, err = server.handleTickerResource(context.Background(), readRequest("fintweet://tickers/INTC"))
	assert.Error(t, err)
}

func TestExtractTicker(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{uri: "fintweet://tickers/NVDA", want: "NVDA"},
		{uri: "fintweet://tickers/", want: ""},
		{uri: "fintweet://tickers/A/B", want: ""},
		{uri: "other://tickers/NVDA", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			assert.Equal(t, tt.want, extractTicker(tt.uri))
		})
	}
}
