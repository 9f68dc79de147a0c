package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/fintweet/internal/adapters/driven/records"
	"github.com/custodia-labs/fintweet/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/fintweet/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

Tools: query, pivot, mentions, ingest_file.
Resources: fintweet://stats, fintweet://tickers/{ticker}.

By default, the server communicates over stdio using JSON-RPC. Use --port
to serve over HTTP instead.

Examples:
  # Stdio mode (default)
  fintweet mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  fintweet mcp serve --port 8080

Desktop client configuration:
  {
    "mcpServers": {
      "fintweet": {
        "command": "/path/to/fintweet",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	Annotations: map[string]string{needsStore: "true"},
	RunE:        runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	server, err := newMCPServer()
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		cmd.Printf("MCP server listening on http://localhost%s\n", addr)
		return httpapi.Run(cmd.Context(), addr, server.Handler())
	}

	return server.Run(cmd.Context())
}

func newMCPServer() (*mcp.Server, error) {
	return mcp.NewServer(&mcp.Ports{
		Store:       documentStore,
		Aggregation: aggregationService,
		Ingest:      ingestService,
		ReadRecords: records.ReadFile,
	})
}
