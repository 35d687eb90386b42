package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BetterCallFirewall/surfacerecon/internal/scenario"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Re-render reports from existing findings",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}

		findings, err := store.LoadFindings()
		if err != nil {
			return err
		}
		if err := renderReports(store, findings); err != nil {
			return err
		}
		fmt.Printf("Rendered %s and %s from %d findings\n",
			store.Path(scenario.ReportMarkdown), store.Path(scenario.ReportJSONFile), len(findings))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}
