package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BetterCallFirewall/surfacerecon/internal/generator"
	"github.com/BetterCallFirewall/surfacerecon/internal/limits"
	"github.com/BetterCallFirewall/surfacerecon/internal/scenario"
)

var (
	generateMaxTests         int
	generateAllowDestructive bool
	generateSeed             int64
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate adversarial test cases from endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStoreWithSeed(generateSeed)
		if err != nil {
			return err
		}

		pl := limits.DefaultPipelineLimits()
		pl.MaxTestsPerEndpoint = generateMaxTests
		pl.AllowDestructive = generateAllowDestructive
		pl.Seed = generateSeed
		if err := pl.Validate(); err != nil {
			return err
		}

		n, err := runGenerateStage(store, pl)
		if err != nil {
			return err
		}
		fmt.Printf("Generated %d tests, saved to %s\n", n, store.Path(scenario.TestsFile))
		return nil
	},
}

func init() {
	defaults := limits.DefaultPipelineLimits()
	generateCmd.Flags().IntVar(&generateMaxTests, "max-tests", defaults.MaxTestsPerEndpoint,
		"Maximum tests per endpoint")
	generateCmd.Flags().BoolVar(&generateAllowDestructive, "allow-destructive", false,
		"Allow destructive DELETE tests")
	generateCmd.Flags().Int64Var(&generateSeed, "seed", defaults.Seed,
		"Generator randomness seed")
	rootCmd.AddCommand(generateCmd)
}

func runGenerateStage(store *scenario.Store, pl *limits.PipelineLimits) (int, error) {
	endpoints, err := store.LoadEndpoints()
	if err != nil {
		return 0, err
	}

	tests := generator.New(logger, pl).Generate(endpoints)
	if err := store.SaveTests(tests); err != nil {
		return 0, err
	}

	// Манифест фиксирует seed, с которым реально генерировались тесты
	if !store.Has(scenario.ManifestFile) {
		if err := store.SaveManifest(scenario.NewManifest(pl.Seed)); err != nil {
			return 0, err
		}
	}
	return len(tests), nil
}
