package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/fintweet/internal/adapters/driven/embedding/hashing"
	"github.com/custodia-labs/fintweet/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/fintweet/internal/adapters/driven/vectorindex/flat"
	"github.com/custodia-labs/fintweet/internal/core/domain"
	"github.com/custodia-labs/fintweet/internal/core/services"
)

const testDims = 64

// setupTestServices installs in-memory services and returns a cleanup func.
func setupTestServices(t *testing.T) func() {
	t.Helper()

	settingsService = services.NewSettingsService(memory.NewConfigStore(), nil)

	index, err := flat.New(testDims)
	require.NoError(t, err)
	store, err := services.OpenDocumentStore(
		context.Background(),
		domain.Collection{Name: domain.DefaultCollection, Metric: domain.MetricCosine, Dimensions: testDims},
		memory.NewEntryStore(),
		index,
		services.NewStaticEmbedder(hashing.NewEmbeddingService(testDims)),
	)
	require.NoError(t, err)

	records := services.NewRecordSet()
	documentStore = store
	aggregationService = services.NewAggregationService(records)
	ingestService = services.NewIngestService(store, records)

	return resetServices
}

func resetServices() {
	settingsService = nil
	documentStore = nil
	aggregationService = nil
	ingestService = nil
	appSettings = nil
	sqliteStore = nil
	closers = nil
	stdin = os.Stdin
}

// resetFlags restores every flag of cmd and its children to its default.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// runCmd executes the root command with args and returns its output.
func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func writeRecords(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const sampleJSONL = `{"doc_id":"1","clean_text":"$NVDA earnings beat expectations","sentiment":"positive","tickers":["NVDA"]}
{"doc_id":"2","clean_text":"$TSLA deliveries miss badly","sentiment":"negative","tickers":["TSLA"]}
{"doc_id":"3","clean_text":"$TSLA recall widens","sentiment":"negative","tickers":["TSLA"]}
{"doc_id":"4","clean_text":"$TSLA flat in premarket","sentiment":"neutral","tickers":["TSLA","NVDA"]}
`
