package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BetterCallFirewall/surfacerecon/internal/analyzer"
	"github.com/BetterCallFirewall/surfacerecon/internal/limits"
	"github.com/BetterCallFirewall/surfacerecon/internal/models"
	"github.com/BetterCallFirewall/surfacerecon/internal/report"
	"github.com/BetterCallFirewall/surfacerecon/internal/scenario"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Compare replay results against baselines and report findings",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}

		findings, err := runAnalyzeStage(store, limits.DefaultPipelineLimits(), nil)
		if err != nil {
			return err
		}
		fmt.Printf("Analysis produced %d findings, report saved to %s\n",
			len(findings), store.Path(scenario.ReportMarkdown))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyzeStage(
	store *scenario.Store,
	pl *limits.PipelineLimits,
	sink analyzer.EventSink,
) ([]*models.Finding, error) {
	requests, err := store.LoadRequests()
	if err != nil {
		return nil, err
	}
	tests, err := store.LoadTests()
	if err != nil {
		return nil, err
	}
	results, err := store.LoadResults()
	if err != nil {
		return nil, err
	}

	findings := analyzer.New(logger, pl, sink).Analyze(requests, tests, results)
	if err := store.SaveFindings(findings); err != nil {
		return nil, err
	}
	if err := renderReports(store, findings); err != nil {
		return nil, err
	}
	return findings, nil
}

func renderReports(store *scenario.Store, findings []*models.Finding) error {
	if err := store.WriteText(scenario.ReportMarkdown, report.Markdown(findings)); err != nil {
		return err
	}
	return store.SaveReportJSON(report.Structured(findings))
}
