package cli

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/BetterCallFirewall/surfacerecon/internal/limits"
	"github.com/BetterCallFirewall/surfacerecon/internal/runner"
	"github.com/BetterCallFirewall/surfacerecon/internal/scenario"
	"github.com/BetterCallFirewall/surfacerecon/internal/websocket"
)

var (
	runCookieFile  string
	runHeaderFile  string
	runConcurrency int
	runRate        float64
	runListenAddr  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Replay generated tests against the live target",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}

		pl := limits.DefaultPipelineLimits()
		pl.Concurrency = runConcurrency
		pl.RequestsPerSecond = runRate
		applyReplayConfig(cmd, pl)
		if err := pl.Validate(); err != nil {
			return err
		}

		opts, err := loadSessionMaterial(runCookieFile, runHeaderFile)
		if err != nil {
			return err
		}

		// Ctrl-C отменяет реплей; частичные результаты всё равно сохраняются
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		hub := startHub(ctx, runListenAddr)
		if hub != nil {
			opts.Sink = hub
			hub.StageChanged("run")
		}

		n, successful, err := runReplayStage(ctx, store, pl, opts)
		if err != nil {
			return err
		}
		fmt.Printf("Replayed %d tests (%d successful), saved to %s\n",
			n, successful, store.Path(scenario.ResultsFile))
		return nil
	},
}

func init() {
	defaults := limits.DefaultPipelineLimits()
	runCmd.Flags().StringVar(&runCookieFile, "cookie", "", "Session cookie file (JSON array)")
	runCmd.Flags().StringVar(&runHeaderFile, "header", "", "Session header file (JSON object)")
	runCmd.Flags().IntVar(&runConcurrency, "concurrency", defaults.Concurrency,
		"Maximum in-flight requests")
	runCmd.Flags().Float64Var(&runRate, "rate", defaults.RequestsPerSecond,
		"Global requests per second")
	runCmd.Flags().StringVar(&runListenAddr, "listen", "", "Address for the live progress hub (GET /ws)")
	rootCmd.AddCommand(runCmd)
}

// applyReplayConfig подставляет дефолты реплея из окружения
// (RECON_CONCURRENCY, RECON_RATE) там, где флаг не был задан явно.
// Явный флаг всегда побеждает.
func applyReplayConfig(cmd *cobra.Command, pl *limits.PipelineLimits) {
	if !cmd.Flags().Changed("concurrency") {
		pl.Concurrency = cfg.Replay.Concurrency
	}
	if !cmd.Flags().Changed("rate") {
		pl.RequestsPerSecond = cfg.Replay.RequestsPerSecond
	}
}

// loadSessionMaterial валидирует файлы сессии до начала реплея: битый JSON
// должен останавливать запуск, а не всплывать посреди обстрела.
func loadSessionMaterial(cookieFile, headerFile string) (runner.Options, error) {
	opts := runner.Options{UserAgent: cfg.UserAgent}
	if cookieFile != "" {
		cookies, err := runner.LoadSessionCookies(cookieFile)
		if err != nil {
			return opts, err
		}
		opts.Cookies = cookies
	}
	if headerFile != "" {
		headers, err := runner.LoadSessionHeaders(headerFile)
		if err != nil {
			return opts, err
		}
		opts.DefaultHeaders = headers
	}
	return opts, nil
}

// startHub serves the progress hub on addr, or returns nil when live
// progress is disabled. Hub errors never fail the pipeline.
func startHub(ctx context.Context, addr string) *websocket.Hub {
	if addr == "" {
		addr = cfg.ListenAddr
	}
	if addr == "" {
		return nil
	}

	hub := websocket.NewHub(logger)
	go hub.Run(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Info().Str("addr", addr).Msg("progress hub listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn().Err(err).Msg("progress hub stopped")
		}
	}()
	go func() {
		<-ctx.Done()
		server.Close()
	}()
	return hub
}

func runReplayStage(
	ctx context.Context,
	store *scenario.Store,
	pl *limits.PipelineLimits,
	opts runner.Options,
) (total, successful int, err error) {
	tests, err := store.LoadTests()
	if err != nil {
		return 0, 0, err
	}

	results := runner.New(logger, pl, opts).Replay(ctx, tests)
	if err := store.SaveResults(results); err != nil {
		return 0, 0, err
	}

	for _, r := range results {
		if r.Success {
			successful++
		}
	}
	return len(results), successful, nil
}
