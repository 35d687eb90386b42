package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/BetterCallFirewall/surfacerecon/internal/analyzer"
	"github.com/BetterCallFirewall/surfacerecon/internal/limits"
	"github.com/BetterCallFirewall/surfacerecon/internal/scenario"
	"github.com/BetterCallFirewall/surfacerecon/internal/websocket"
)

// hubAnalyzerSink уберегает от типизированного nil в интерфейсе sink.
func hubAnalyzerSink(hub *websocket.Hub) analyzer.EventSink {
	if hub == nil {
		return nil
	}
	return hub
}

var (
	fullCookieFile       string
	fullHeaderFile       string
	fullMaxTests         int
	fullAllowDestructive bool
	fullSeed             int64
	fullConcurrency      int
	fullRate             float64
	fullListenAddr       string
)

var fullCmd = &cobra.Command{
	Use:   "full",
	Short: "Run the whole pipeline: parse, generate, run, analyze",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStoreWithSeed(fullSeed)
		if err != nil {
			return err
		}

		pl := limits.DefaultPipelineLimits()
		pl.MaxTestsPerEndpoint = fullMaxTests
		pl.AllowDestructive = fullAllowDestructive
		pl.Seed = fullSeed
		pl.Concurrency = fullConcurrency
		pl.RequestsPerSecond = fullRate
		applyReplayConfig(cmd, pl)
		if err := pl.Validate(); err != nil {
			return err
		}

		opts, err := loadSessionMaterial(fullCookieFile, fullHeaderFile)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		hub := startHub(ctx, fullListenAddr)
		if hub != nil {
			opts.Sink = hub
		}
		stage := func(name string) {
			if hub != nil {
				hub.StageChanged(name)
			}
		}

		stage("parse")
		endpoints, forms, err := runParseStage(store)
		if err != nil {
			return err
		}
		fmt.Printf("Parsed %d endpoints and %d forms\n", endpoints, forms)

		stage("generate")
		tests, err := runGenerateStage(store, pl)
		if err != nil {
			return err
		}
		fmt.Printf("Generated %d tests\n", tests)

		stage("run")
		total, successful, err := runReplayStage(ctx, store, pl, opts)
		if err != nil {
			return err
		}
		fmt.Printf("Replayed %d tests (%d successful)\n", total, successful)

		// Отменённый реплей всё равно доводим до отчёта: частичные
		// результаты уже сохранены и пригодны для анализа.
		stage("analyze")
		findings, err := runAnalyzeStage(store, pl, hubAnalyzerSink(hub))
		if err != nil {
			return err
		}
		if hub != nil {
			hub.Completed(len(findings))
		}
		fmt.Printf("Pipeline complete: %d findings, report at %s\n",
			len(findings), store.Path(scenario.ReportMarkdown))
		return nil
	},
}

func init() {
	defaults := limits.DefaultPipelineLimits()
	fullCmd.Flags().StringVar(&fullCookieFile, "cookie", "", "Session cookie file (JSON array)")
	fullCmd.Flags().StringVar(&fullHeaderFile, "header", "", "Session header file (JSON object)")
	fullCmd.Flags().IntVar(&fullMaxTests, "max-tests", defaults.MaxTestsPerEndpoint,
		"Maximum tests per endpoint")
	fullCmd.Flags().BoolVar(&fullAllowDestructive, "allow-destructive", false,
		"Allow destructive DELETE tests")
	fullCmd.Flags().Int64Var(&fullSeed, "seed", defaults.Seed, "Generator randomness seed")
	fullCmd.Flags().IntVar(&fullConcurrency, "concurrency", defaults.Concurrency,
		"Maximum in-flight requests")
	fullCmd.Flags().Float64Var(&fullRate, "rate", defaults.RequestsPerSecond,
		"Global requests per second")
	fullCmd.Flags().StringVar(&fullListenAddr, "listen", "", "Address for the live progress hub (GET /ws)")
	rootCmd.AddCommand(fullCmd)
}
