package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/fintweet/internal/core/domain"
	"github.com/custodia-labs/fintweet/internal/core/services"
)

var (
	queryK       int
	queryJSON    bool
	queryRecords []string
)

var queryCmd = &cobra.Command{
	Use:   "query TEXT",
	Short: "Retrieve the posts most similar to a text",
	Long: `Embeds TEXT and returns the k most similar indexed posts, most similar
first.

With --records, the sentiment mix of the tickers mentioned by the retrieved
posts is shown as well, computed from the given record files.`,
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{needsStore: "true"},
	RunE:        runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryK, "k", "k", 0, "number of results (default query.k)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output results as JSON")
	queryCmd.Flags().StringSliceVar(&queryRecords, "records", nil, "record files used for ticker sentiment context")
	rootCmd.AddCommand(queryCmd)
}

type queryOutput struct {
	Matches []domain.Match    `json:"matches"`
	Context []domain.PivotRow `json:"context,omitempty"`
}

func runQuery(cmd *cobra.Command, args []string) error {
	if documentStore == nil {
		return errors.New("document store not configured")
	}

	k := queryK
	if !cmd.Flags().Changed("k") {
		settings, err := currentSettings()
		if err != nil {
			return err
		}
		k = settings.Query.K
	}

	matches, err := documentStore.Search(cmd.Context(), args[0], k)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	out := queryOutput{Matches: matches}
	if len(queryRecords) > 0 {
		recs, err := readRecordFiles(queryRecords)
		if err != nil {
			return err
		}
		out.Context = services.TickerContext(recs, matchedTickers(recs, matches))
	}

	if queryJSON {
		return printJSON(cmd, out)
	}

	if len(matches) == 0 {
		cmd.Println("No results found.")
		return nil
	}
	cmd.Println(matchesTable(matches))
	if len(out.Context) > 0 {
		cmd.Println()
		cmd.Println("Ticker sentiment in retrieved posts:")
		cmd.Println(pivotTable(out.Context))
	}
	return nil
}

// matchedTickers collects, in first-seen order, the tickers of the records
// behind the matches.
func matchedTickers(recs []domain.Record, matches []domain.Match) []string {
	byID := make(map[string][]string, len(recs))
	for _, r := range recs {
		if _, ok := byID[r.DocID]; !ok {
			byID[r.DocID] = r.Tickers
		}
	}

	seen := make(map[string]struct{})
	var tickers []string
	for _, m := range matches {
		for _, t := range byID[m.DocID] {
			if _, ok := seen[t]; ok || t == "" {
				continue
			}
			seen[t] = struct{}{}
			tickers = append(tickers, t)
		}
	}
	return tickers
}
