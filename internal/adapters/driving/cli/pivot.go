package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/fintweet/internal/adapters/driven/records"
	"github.com/custodia-labs/fintweet/internal/core/domain"
	"github.com/custodia-labs/fintweet/internal/core/services"
)

var (
	pivotMinMentions int
	pivotMetric      string
	pivotTop         int
	pivotJSON        bool

	mentionsTop  int
	mentionsJSON bool
)

var pivotCmd = &cobra.Command{
	Use:   "pivot FILE...",
	Short: "Rank tickers by sentiment",
	Long: `Tabulates positive, neutral and negative mentions per ticker across the
records in the given files and ranks the tickers.

Only tickers with at least --min-mentions records are shown. Ties are broken
by ticker name.

Metrics:
  neg_ratio  share of negative mentions (default)
  pos_ratio  share of positive mentions
  total      number of mentions`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPivot,
}

var mentionsCmd = &cobra.Command{
	Use:   "mentions FILE...",
	Short: "Count ticker mentions",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMentions,
}

func init() {
	pivotCmd.Flags().IntVar(&pivotMinMentions, "min-mentions", 0, "minimum mentions per ticker (default aggregation.min_mentions)")
	pivotCmd.Flags().StringVar(&pivotMetric, "metric", string(domain.MetricNegRatio), "ranking metric: neg_ratio, pos_ratio or total")
	pivotCmd.Flags().IntVar(&pivotTop, "top", 30, "maximum number of tickers (0 = all)")
	pivotCmd.Flags().BoolVar(&pivotJSON, "json", false, "output rows as JSON")

	mentionsCmd.Flags().IntVar(&mentionsTop, "top", 30, "maximum number of tickers (0 = all)")
	mentionsCmd.Flags().BoolVar(&mentionsJSON, "json", false, "output rows as JSON")

	rootCmd.AddCommand(pivotCmd)
	rootCmd.AddCommand(mentionsCmd)
}

// readRecordFiles reads and concatenates records from paths, in order.
func readRecordFiles(paths []string) ([]domain.Record, error) {
	var all []domain.Record
	for _, p := range paths {
		recs, err := records.ReadFile(p)
		if err != nil {
			return nil, err
		}
		all = append(all, recs...)
	}
	return all, nil
}

// loadAggregation builds an aggregation over the records in paths.
func loadAggregation(paths []string) (*services.AggregationService, error) {
	recs, err := readRecordFiles(paths)
	if err != nil {
		return nil, err
	}
	set := services.NewRecordSet()
	set.Append(recs...)
	return services.NewAggregationService(set), nil
}

func runPivot(cmd *cobra.Command, args []string) error {
	minMentions := pivotMinMentions
	if !cmd.Flags().Changed("min-mentions") {
		settings, err := currentSettings()
		if err != nil {
			return err
		}
		minMentions = settings.Aggregation.MinMentions
	}

	agg, err := loadAggregation(args)
	if err != nil {
		return err
	}

	rows, err := agg.Ranked(minMentions, domain.PivotMetric(pivotMetric), pivotTop)
	if err != nil {
		return err
	}

	if pivotJSON {
		return printJSON(cmd, rows)
	}
	if len(rows) == 0 {
		cmd.Printf("No ticker has at least %d mentions across %d records.\n", minMentions, agg.Records())
		return nil
	}
	cmd.Println(pivotTable(rows))
	cmd.Printf("%d tickers, %d records, min mentions %d, ranked by %s\n",
		len(rows), agg.Records(), minMentions, metricName(pivotMetric))
	return nil
}

func runMentions(cmd *cobra.Command, args []string) error {
	agg, err := loadAggregation(args)
	if err != nil {
		return err
	}

	rows := agg.Mentions(mentionsTop)
	if mentionsJSON {
		return printJSON(cmd, rows)
	}
	if len(rows) == 0 {
		cmd.Println("No tickers found.")
		return nil
	}
	cmd.Println(mentionsTable(rows))
	return nil
}

func metricName(m string) string {
	if m == "" {
		return string(domain.MetricNegRatio)
	}
	return m
}
