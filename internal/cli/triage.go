package cli

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/spf13/cobra"

	"github.com/BetterCallFirewall/surfacerecon/internal/llm"
	"github.com/BetterCallFirewall/surfacerecon/internal/scenario"
)

var triageCmd = &cobra.Command{
	Use:   "triage",
	Short: "Second-read findings with an LLM to flag probable false positives",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Gemini.APIKey == "" {
			return errors.New("triage requires GEMINI_API_KEY to be set")
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		findings, err := store.LoadFindings()
		if err != nil {
			return err
		}
		host, err := targetHost(store)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		g := genkit.Init(
			ctx,
			genkit.WithPlugins(&googlegenai.GoogleAI{APIKey: cfg.Gemini.APIKey}),
			genkit.WithDefaultModel(cfg.Gemini.Model),
		)
		flow := llm.DefineTriageFlow(g, cfg.Gemini.Model, cfg.Gemini.MaxFindings)

		resp, err := flow.Run(ctx, &llm.TriageRequest{Host: host, Findings: findings})
		if err != nil {
			return fmt.Errorf("triage: %w", err)
		}
		if err := store.SaveTriage(resp.Assessments); err != nil {
			return err
		}
		fmt.Printf("Triaged %d findings, saved to %s\n",
			len(resp.Assessments), store.Path(scenario.TriageFile))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(triageCmd)
}

// targetHost берёт хост цели из первого захваченного запроса сценария.
func targetHost(store *scenario.Store) (string, error) {
	requests, err := store.LoadRequests()
	if err != nil {
		return "", err
	}
	for _, req := range requests {
		u, err := url.Parse(req.URL)
		if err == nil && u.Host != "" {
			return u.Host, nil
		}
	}
	return "", errors.New("no captured request with a parseable host")
}
