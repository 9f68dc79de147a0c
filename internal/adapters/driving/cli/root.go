// Package cli implements the fintweet command line.
package cli

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/fintweet/internal/core/domain"
	"github.com/custodia-labs/fintweet/internal/core/ports/driving"
	"github.com/custodia-labs/fintweet/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Persistent flag values.
var (
	verbose   bool
	configDir string
	ephemeral bool
)

// Services shared by commands. They are wired in PersistentPreRunE unless a
// test has already installed them.
var (
	settingsService    driving.SettingsService
	documentStore      driving.DocumentStore
	aggregationService driving.AggregationService
	ingestService      driving.IngestService

	// appSettings is the settings snapshot the services were built from.
	appSettings *domain.AppSettings

	// closers release resources opened during wiring, in reverse order.
	closers []func() error
)

// needsStore marks commands that use the document store.
const needsStore = "needs-store"

var rootCmd = &cobra.Command{
	Use:   "fintweet",
	Short: "Semantic search and ticker sentiment for financial posts",
	Long: `fintweet indexes labelled financial social-media posts for semantic
retrieval and ranks tickers by their sentiment mix.

Records are ingested from JSON Lines, JSON or CSV files, from a watched
directory, from a RabbitMQ queue, or over HTTP. Each doc_id is indexed once;
later duplicates are skipped.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug and info logs")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.fintweet)")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false, "keep the document store in memory for this run")
}

// Execute runs the root command and releases wired resources.
func Execute(ctx context.Context) error {
	rootCmd.SetOut(os.Stdout)
	err := rootCmd.ExecuteContext(ctx)
	return errors.Join(err, shutdown())
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	appSettings = nil

	if settingsService == nil {
		if err := wireSettings(); err != nil {
			return err
		}
	}
	if cmd.Annotations[needsStore] == "" || documentStore != nil {
		return nil
	}
	return wireStore(cmd.Context())
}

// shutdown runs the registered closers and clears them.
func shutdown() error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		errs = append(errs, closers[i]())
	}
	closers = nil
	return errors.Join(errs...)
}

// currentSettings returns the wired settings, loading them if needed.
func currentSettings() (*domain.AppSettings, error) {
	if appSettings != nil {
		return appSettings, nil
	}
	if settingsService == nil {
		return nil, errors.New("settings service not configured")
	}
	s, err := settingsService.Get()
	if err != nil {
		return nil, err
	}
	applyEnv(s)
	appSettings = s
	return s, nil
}
