package llm

import (
	"context"
	"fmt"
	"log"

	"github.com/firebase/genkit/go/ai"
	genkitcore "github.com/firebase/genkit/go/core"
	"github.com/firebase/genkit/go/genkit"

	"github.com/BetterCallFirewall/surfacerecon/internal/models"
)

// TriageRequest - input for the triage flow
type TriageRequest struct {
	Host     string            `json:"host"`
	Findings []*models.Finding `json:"findings"`
}

// TriageResponse - output from the triage flow
type TriageResponse struct {
	Assessments []models.TriageAssessment `json:"assessments"`
}

// DefineTriageFlow creates the findings triage Genkit flow. The flow asks
// the model to second-read analyzer findings and mark probable false
// positives; at most maxFindings findings are submitted per call.
func DefineTriageFlow(
	g *genkit.Genkit,
	modelName string,
	maxFindings int,
) *genkitcore.Flow[*TriageRequest, *TriageResponse, struct{}] {
	return genkit.DefineFlow(
		g,
		"triageFlow",
		func(ctx context.Context, req *TriageRequest) (*TriageResponse, error) {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("context cancelled before triage: %w", err)
			}
			if len(req.Findings) == 0 {
				return &TriageResponse{Assessments: []models.TriageAssessment{}}, nil
			}

			findings := req.Findings
			if len(findings) > maxFindings {
				log.Printf("Triage input capped at %d of %d findings", maxFindings, len(findings))
				findings = findings[:maxFindings]
			}

			log.Printf("🔵 Triage reviewing %d findings for %s", len(findings), req.Host)

			prompt := BuildTriagePrompt(req.Host, findings)

			result, _, err := genkit.GenerateData[TriageResponse](
				ctx,
				g,
				ai.WithModelName(modelName),
				ai.WithPrompt(prompt),
			)
			if err != nil {
				return nil, fmt.Errorf("triage LLM failed: %w", err)
			}

			log.Printf("✅ Triage complete: %d assessments", len(result.Assessments))
			return result, nil
		},
	)
}
