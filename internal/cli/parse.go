package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BetterCallFirewall/surfacerecon/internal/harvest"
	"github.com/BetterCallFirewall/surfacerecon/internal/inference"
	"github.com/BetterCallFirewall/surfacerecon/internal/limits"
	"github.com/BetterCallFirewall/surfacerecon/internal/modeler"
	"github.com/BetterCallFirewall/surfacerecon/internal/scenario"
)

var parseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Extract endpoints and forms from captured requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		endpoints, forms, err := runParseStage(store)
		if err != nil {
			return err
		}
		fmt.Printf("Parsed %d endpoints and %d forms, saved to %s\n",
			endpoints, forms, store.Dir())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)
}

// runParseStage выполняет стадии моделирования, вывода ID-пулов и сбора
// форм над requests.json; переиспользуется командой full.
func runParseStage(store *scenario.Store) (endpoints int, forms int, err error) {
	requests, err := store.LoadRequests()
	if err != nil {
		return 0, 0, err
	}

	eps := modeler.New(logger).Model(requests)
	inference.New(logger, limits.DefaultPipelineLimits().MaxPoolValues).Enrich(eps)
	if err := store.SaveEndpoints(eps); err != nil {
		return 0, 0, err
	}

	fs := harvest.New(logger).Harvest(requests)
	if err := store.SaveForms(fs); err != nil {
		return 0, 0, err
	}
	return len(eps), len(fs), nil
}
