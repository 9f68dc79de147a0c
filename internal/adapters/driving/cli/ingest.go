package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/fintweet/internal/adapters/driven/records"
	"github.com/custodia-labs/fintweet/internal/core/domain"
)

var ingestJSON bool

var ingestCmd = &cobra.Command{
	Use:   "ingest FILE...",
	Short: "Index labelled records from files",
	Long: `Reads labelled records from JSON Lines (.jsonl, .ndjson), JSON (.json) or
delimited (.csv, .tsv) files and indexes them. Each file is one batch.

Records need clean_text; doc_id defaults to the record's position in its
file. Records whose doc_id is already indexed are skipped.`,
	Args:        cobra.MinimumNArgs(1),
	Annotations: map[string]string{needsStore: "true"},
	RunE:        runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output reports as JSON")
	rootCmd.AddCommand(ingestCmd)
}

type fileReport struct {
	File string `json:"file"`
	*domain.IngestReport
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	reports := make([]fileReport, 0, len(args))
	for _, path := range args {
		recs, err := records.ReadFile(path)
		if err != nil {
			return err
		}
		report, err := ingestService.Ingest(cmd.Context(), recs)
		if err != nil {
			return fmt.Errorf("ingesting %s: %w", path, err)
		}
		reports = append(reports, fileReport{File: path, IngestReport: report})
	}

	if ingestJSON {
		return printJSON(cmd, reports)
	}

	inserted, skipped := 0, 0
	for _, r := range reports {
		cmd.Printf("%s: %d records, %d indexed, %d skipped\n",
			filepath.Base(r.File), r.Received, r.Inserted, r.Skipped)
		inserted += r.Inserted
		skipped += r.Skipped
	}
	if len(reports) > 1 {
		cmd.Printf("Total: %d indexed, %d skipped\n", inserted, skipped)
	}
	return nil
}
