package cli

import (
	"errors"
	"strconv"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:         "stats",
	Short:       "Show document store statistics",
	Annotations: map[string]string{needsStore: "true"},
	RunE:        runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	if documentStore == nil {
		return errors.New("document store not configured")
	}
	settings, err := currentSettings()
	if err != nil {
		return err
	}

	count, err := documentStore.Count(cmd.Context())
	if err != nil {
		return err
	}

	cmd.Printf("Collection: %s\n", settings.Store.Collection)
	cmd.Printf("  Entries:    %d\n", count)
	cmd.Printf("  Dimensions: %d\n", settings.Embedding.Dimensions)
	cmd.Printf("  Index:      %s\n", settings.VectorIndex.Type.Description())
	cmd.Printf("  Embedding:  %s (%s)\n", settings.Embedding.Provider.Description(), settings.Embedding.Model)

	if sqliteStore == nil {
		cmd.Println("  Storage:    in memory")
		return nil
	}
	cmd.Printf("  Storage:    %s\n", sqliteStore.Path())

	collections, err := sqliteStore.Collections(cmd.Context())
	if err != nil {
		return err
	}
	if len(collections) > 1 {
		rows := make([][]string, len(collections))
		for i, c := range collections {
			rows[i] = []string{c.Name, string(c.Metric), strconv.Itoa(c.Dimensions), strconv.Itoa(c.Entries)}
		}
		cmd.Println()
		cmd.Println(renderTable([]string{"Collection", "Metric", "Dimensions", "Entries"}, rows, 2, 3))
	}
	return nil
}
