// Package cli wires the surfacerecon subcommands. Commands orchestrate the
// pipeline stages over one scenario directory; all stage logic lives in the
// stage packages.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/BetterCallFirewall/surfacerecon/internal/config"
	"github.com/BetterCallFirewall/surfacerecon/internal/limits"
	"github.com/BetterCallFirewall/surfacerecon/internal/scenario"
)

// defaultScenarioRoot — корень для свежих сценариев, когда --scenario не задан.
const defaultScenarioRoot = "scenarios"

var (
	cfg         *config.Config
	logger      zerolog.Logger
	scenarioDir string
)

var rootCmd = &cobra.Command{
	Use:   "surfacerecon",
	Short: "Automated web-API reconnaissance and authorization probing",
	Long: `surfacerecon replays captured API traffic with adversarial mutations
(IDOR, auth bypass, method confusion, mass assignment) and reports
authorization flaws found by differential response analysis.

Use it only against applications you are authorized to test.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger = newLogger(cfg.LogLevel)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&scenarioDir, "scenario", "",
		"Scenario directory path (default: new scenarios/<timestamp>)")
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(writer).Level(lvl).With().Timestamp().Logger()
}

func openStore() (*scenario.Store, error) {
	return openStoreWithSeed(limits.DefaultPipelineLimits().Seed)
}

// openStoreWithSeed открывает директорию из --scenario, а без флага создаёт
// свежую scenarios/<timestamp> с манифестом запуска под заданный seed.
func openStoreWithSeed(seed int64) (*scenario.Store, error) {
	if scenarioDir != "" {
		return scenario.Open(scenarioDir)
	}
	store, err := scenario.Create(defaultScenarioRoot, seed)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("dir", store.Dir()).Msg("created scenario directory")
	return store, nil
}

// Execute runs the CLI. It is the only place that exits the process.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
