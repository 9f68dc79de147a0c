package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/fintweet/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure the embedding provider, vector index, storage and
service endpoints. Settings are stored in config.toml in the configuration
directory.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set a configuration value",
	Long: `Set a single configuration value. Run 'fintweet settings keys' for the
list of recognised keys.

Note: embedding.dimensions and index settings apply to new collections.
An existing collection keeps the dimension it was created with.`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List recognised configuration keys",
	Args:  cobra.NoArgs,
	RunE:  runSettingsKeys,
}

var settingsSetKeyCmd = &cobra.Command{
	Use:   "set-key",
	Short: "Store the embedding API key",
	Long:  `Prompts for the embedding provider API key without echoing it.`,
	Args:  cobra.NoArgs,
	RunE:  runSettingsSetKey,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long:  `Interactively select the embedding provider and model.`,
	Args:  cobra.NoArgs,
	RunE:  runSettingsEmbedding,
}

var settingsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate settings and reach the embedding provider",
	Args:  cobra.NoArgs,
	RunE:  runSettingsCheck,
}

// stdin is the source for interactive prompts.
var stdin io.Reader = os.Stdin

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	settingsCmd.AddCommand(settingsSetKeyCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsCheckCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	applyEnv(settings)

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	e := settings.Embedding
	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", e.Provider.Description())
	cmd.Printf("  Model: %s\n", e.Model)
	cmd.Printf("  Dimensions: %d\n", e.Dimensions)
	cmd.Printf("  Batch size: %d\n", e.BatchSize)
	if e.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", e.BaseURL)
	}
	if e.Provider.RequiresAPIKey() {
		if e.APIKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(e.APIKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	if e.Provider == domain.AIProviderONNX {
		cmd.Printf("  Model path: %s\n", valueOrUnset(e.ONNX.ModelPath))
		cmd.Printf("  Tokenizer path: %s\n", valueOrUnset(e.ONNX.TokenizerPath))
	}
	if e.RequestsPerSecond > 0 {
		cmd.Printf("  Rate limit: %g req/s\n", e.RequestsPerSecond)
	}
	cmd.Printf("  Cache: %s\n", e.Cache.Type)
	if e.Cache.Type == domain.CacheRedis {
		cmd.Printf("  Redis: %s (db %d)\n", e.Cache.RedisAddr, e.Cache.RedisDB)
	}
	status := "configured"
	if !e.IsConfigured() {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()

	v := settings.VectorIndex
	cmd.Println("[Vector Index]")
	cmd.Printf("  Type: %s\n", v.Type.Description())
	if v.Type == domain.IndexHNSW {
		cmd.Printf("  M: %d, ef_construction: %d, ef_search: %d, seed: %d\n",
			v.M, v.EfConstruction, v.EfSearch, v.Seed)
	}
	cmd.Println()

	cmd.Println("[Store]")
	cmd.Printf("  Collection: %s\n", settings.Store.Collection)
	cmd.Printf("  Data dir: %s\n", valueOrDefault(settings.Store.DataDir, "<config dir>/data"))
	cmd.Println()

	cmd.Println("[Defaults]")
	cmd.Printf("  query.k: %d\n", settings.Query.K)
	cmd.Printf("  aggregation.min_mentions: %d\n", settings.Aggregation.MinMentions)
	cmd.Println()

	cmd.Println("[Services]")
	cmd.Printf("  HTTP: %s\n", settings.HTTP.Addr)
	cmd.Printf("  AMQP queue: %s\n", settings.AMQP.Queue)
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'fintweet settings embedding' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	if err := settingsService.Set(args[0], args[1]); err != nil {
		return err
	}
	if strings.HasSuffix(args[0], "api_key") || strings.HasSuffix(args[0], "password") {
		cmd.Printf("%s updated\n", args[0])
	} else {
		cmd.Printf("%s = %s\n", args[0], args[1])
	}
	return nil
}

func runSettingsKeys(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	for _, k := range settingsService.Keys() {
		cmd.Println(k)
	}
	return nil
}

func runSettingsSetKey(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	cmd.Print("Enter API key: ")
	key := readPassword(bufio.NewReader(stdin))
	cmd.Println()
	if key == "" {
		return errors.New("API key is required")
	}
	if err := settingsService.Set("embedding.api_key", key); err != nil {
		return err
	}
	cmd.Printf("API key saved: %s\n", maskAPIKey(key))
	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	return configureEmbeddingProvider(cmd, bufio.NewReader(stdin))
}

func runSettingsCheck(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	if err := settingsService.Validate(); err != nil {
		return err
	}
	for _, k := range settingsService.UnknownKeys() {
		cmd.Printf("Warning: unknown setting %q is ignored\n", k)
	}

	cmd.Print("Reaching embedding provider... ")
	if err := settingsService.ValidateEmbeddingConfig(); err != nil {
		cmd.Println("FAILED")
		return err
	}
	cmd.Println("OK")
	return nil
}

func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select Embedding Provider")
	providers := domain.AllEmbeddingProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	input := readLine(reader)
	idx := parseChoice(input, len(providers), 1)
	selectedProvider := providers[idx-1]

	defaultModel := domain.DefaultEmbeddingModels()[selectedProvider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if selectedProvider.RequiresAPIKey() {
		apiKey = os.Getenv(envOpenAIKey)
		if apiKey == "" {
			cmd.Print("Enter API key: ")
			apiKey = readPassword(reader)
			cmd.Println()
		}
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := settingsService.SetEmbeddingProvider(selectedProvider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	if selectedProvider == domain.AIProviderONNX {
		cmd.Println("Set embedding.onnx.model_path and embedding.onnx.tokenizer_path before use.")
	}

	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateEmbeddingConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("embedding configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("Embedding provider configured: %s (%s)\n", selectedProvider.Description(), model)
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads a secret without echo when stdin is a terminal,
// falling back to a plain line read.
func readPassword(reader *bufio.Reader) string {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func valueOrUnset(s string) string {
	return valueOrDefault(s, "(not set)")
}

func valueOrDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
