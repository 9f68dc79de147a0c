package cli

import (
	"errors"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/fintweet/internal/adapters/driving/watch"
	"github.com/custodia-labs/fintweet/internal/core/domain"
)

var watchDebounce = watch.DefaultDebounce

var watchCmd = &cobra.Command{
	Use:   "watch DIR",
	Short: "Ingest record files as they appear in a directory",
	Long: `Ingests the record files already in DIR, then keeps watching it and
ingests files as they are created or appended to. Runs until interrupted.`,
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{needsStore: "true"},
	RunE:        runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "quiet period before a changed file is ingested")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	w := watch.New(args[0], ingestService,
		watch.WithDebounce(watchDebounce),
		watch.OnIngest(func(path string, r *domain.IngestReport) {
			cmd.Printf("%s: %d records, %d indexed, %d skipped (total %d)\n",
				filepath.Base(path), r.Received, r.Inserted, r.Skipped, r.RecordSetSize)
		}),
	)
	cmd.Printf("Watching %s (Ctrl+C to stop)\n", args[0])
	return w.Run(cmd.Context())
}
