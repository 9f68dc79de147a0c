package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for fintweet resources.
	uriScheme = "fintweet://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "stats",
		Name:        "stats",
		Description: "Indexed post count and accumulated record count",
		MIMEType:    "application/json",
	}, s.handleStatsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "tickers/{ticker}",
		Name:        "ticker-sentiment",
		Description: "Sentiment counts and ratios for one ticker, without mention threshold",
		MIMEType:    "application/json",
	}, s.handleTickerResource)
}

type stats struct {
	Indexed int `json:"indexed"`
	Records int `json:"records"`
}

func (s *Server) handleStatsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	count, err := s.ports.Store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting entries: %w", err)
	}

	return jsonResource(req.Params.URI, stats{
		Indexed: count,
		Records: s.ports.Aggregation.Records(),
	})
}

func (s *Server) handleTickerResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	ticker := extractTicker(req.Params.URI)
	if ticker == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	rows := s.ports.Aggregation.TickerContext([]string{ticker})
	if len(rows) == 0 {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	return jsonResource(req.Params.URI, rows[0])
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractTicker extracts the ticker from a URI like fintweet://tickers/{ticker}.
func extractTicker(uri string) string {
	const prefix = uriScheme + "tickers/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	ticker := strings.TrimPrefix(uri, prefix)
	if strings.Contains(ticker, "/") {
		return ""
	}
	return ticker
}
