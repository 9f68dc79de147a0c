package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/fintweet/internal/core/domain"
)

// Defaults applied when a tool input leaves a field at zero.
const (
	defaultK           = 30
	defaultMinMentions = 20
	defaultTop         = 30
)

// QueryInput is the input schema for the query tool.
type QueryInput struct {
	Query string `json:"query" jsonschema:"natural-language question or keywords"`
	K     int    `json:"k,omitempty" jsonschema:"number of posts to return (default 30)"`
}

// QueryOutput is the output schema for the query tool.
type QueryOutput struct {
	Matches []domain.Match `json:"matches"`
	Count   int            `json:"count"`
}

// PivotInput is the input schema for the pivot tool.
type PivotInput struct {
	MinMentions *int   `json:"min_mentions,omitempty" jsonschema:"minimum mentions per ticker (default 20)"`
	Metric      string `json:"metric,omitempty" jsonschema:"ranking column: neg_ratio, pos_ratio or total (default neg_ratio)"`
	Top         int    `json:"top,omitempty" jsonschema:"maximum rows to return (default 30)"`
}

// PivotOutput is the output schema for the pivot tool.
type PivotOutput struct {
	Rows    []domain.PivotRow `json:"rows"`
	Records int               `json:"records"`
}

// MentionsInput is the input schema for the mentions tool.
type MentionsInput struct {
	Top int `json:"top,omitempty" jsonschema:"maximum tickers to return (default 30)"`
}

// MentionsOutput is the output schema for the mentions tool.
type MentionsOutput struct {
	Tickers []domain.TickerMentions `json:"tickers"`
}

// IngestFileInput is the input schema for the ingest_file tool.
type IngestFileInput struct {
	Path string `json:"path" jsonschema:"path of a .jsonl, .json, .csv or .tsv file of labelled posts"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "query",
		Description: "Retrieve the posts most similar to a question, most similar first",
	}, s.handleQuery)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "pivot",
		Description: "Per-ticker sentiment counts and ratios over all ingested posts",
	}, s.handlePivot)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "mentions",
		Description: "Most mentioned tickers over all ingested posts",
	}, s.handleMentions)

	if s.ports.Ingest != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ingest_file",
			Description: "Index a file of labelled posts and add them to the sentiment tables",
		}, s.handleIngestFile)
	}
}

func (s *Server) handleQuery(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, QueryOutput, error) {
	k := input.K
	if k <= 0 {
		k = defaultK
	}

	matches, err := s.ports.Store.Search(ctx, input.Query, k)
	if err != nil {
		return nil, QueryOutput{}, err
	}

	return nil, QueryOutput{Matches: matches, Count: len(matches)}, nil
}

func (s *Server) handlePivot(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input PivotInput,
) (*mcp.CallToolResult, PivotOutput, error) {
	minMentions := defaultMinMentions
	if input.MinMentions != nil {
		minMentions = *input.MinMentions
	}
	top := input.Top
	if top <= 0 {
		top = defaultTop
	}

	rows, err := s.ports.Aggregation.Ranked(minMentions, domain.PivotMetric(input.Metric), top)
	if err != nil {
		return nil, PivotOutput{}, err
	}

	return nil, PivotOutput{Rows: rows, Records: s.ports.Aggregation.Records()}, nil
}

func (s *Server) handleMentions(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input MentionsInput,
) (*mcp.CallToolResult, MentionsOutput, error) {
	top := input.Top
	if top <= 0 {
		top = defaultTop
	}
	return nil, MentionsOutput{Tickers: s.ports.Aggregation.Mentions(top)}, nil
}

func (s *Server) handleIngestFile(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestFileInput,
) (*mcp.CallToolResult, domain.IngestReport, error) {
	if input.Path == "" {
		return nil, domain.IngestReport{}, fmt.Errorf("%w: path is required", domain.ErrInvalidInput)
	}

	records, err := s.ports.ReadRecords(input.Path)
	if err != nil {
		return nil, domain.IngestReport{}, err
	}

	report, err := s.ports.Ingest.Ingest(ctx, records)
	if err != nil {
		return nil, domain.IngestReport{}, err
	}
	return nil, *report, nil
}
