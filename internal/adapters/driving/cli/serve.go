package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/fintweet/internal/adapters/driving/httpapi"
)

var (
	serveAddr string
	serveMCP  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Starts the HTTP API.

Endpoints:
  POST /api/v1/records    ingest a JSON record or array of records
  GET  /api/v1/query      ?q=TEXT&k=N
  GET  /api/v1/pivot      ?min_mentions=N&metric=neg_ratio&top=N
  GET  /api/v1/mentions   ?top=N
  GET  /api/v1/tickers    ?t=NVDA&t=AMD
  GET  /healthz
  ANY  /mcp               MCP streamable HTTP transport, with --mcp

The record set used by pivot and mentions holds the records ingested since
the server started.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{needsStore: "true"},
	RunE:        runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default http.addr)")
	serveCmd.Flags().BoolVar(&serveMCP, "mcp", false, "also serve MCP at /mcp")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if documentStore == nil || aggregationService == nil || ingestService == nil {
		return errors.New("services not configured")
	}
	settings, err := currentSettings()
	if err != nil {
		return err
	}

	addr := settings.HTTP.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	handler := httpapi.NewHandler(documentStore, aggregationService, ingestService, httpapi.Defaults{
		K:           settings.Query.K,
		MinMentions: settings.Aggregation.MinMentions,
	})
	var opts []httpapi.RouterOption
	if serveMCP {
		server, err := newMCPServer()
		if err != nil {
			return err
		}
		opts = append(opts, httpapi.WithMCP(server.Handler()))
	}

	cmd.Printf("HTTP API listening on %s\n", addr)
	return httpapi.Run(cmd.Context(), addr, httpapi.NewRouter(handler, opts...))
}
