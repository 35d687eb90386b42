package llm

import (
	"fmt"
	"strings"

	"github.com/BetterCallFirewall/surfacerecon/internal/models"
)

// BuildTriagePrompt creates the prompt for the findings triage flow
func BuildTriagePrompt(host string, findings []*models.Finding) string {
	return fmt.Sprintf(
		`You are a triage reviewer for an AUTHORIZED web-API security assessment of %s.
The findings below come from automated differential analysis: captured requests were
replayed with modified IDs, stripped authentication, swapped HTTP methods or injected
privilege fields, and the responses were compared against baselines. Your job is to
second-read each finding and separate real authorization flaws from replay artifacts.

=== FINDINGS ===
%s
=== VERDICT DEFINITIONS ===
confirmed - the status transition or response diff is direct evidence of an
authorization flaw (protected resource served without auth, foreign object
returned for a swapped ID, privilege field accepted on write)
likely_false_positive - the difference is better explained by dynamic content
than by an access-control failure
needs_manual_review - the evidence is suggestive but an exploit cannot be
concluded from the diff alone

=== COMMON FALSE-POSITIVE CAUSES ===
1. Volatile fields: timestamps, request IDs, nonces, cache markers, rotating tokens
2. Pagination or ordering drift between capture time and replay time
3. Rate-limit or maintenance responses that happen to return 200
4. Error pages whose body length differs wildly from the baseline but carries no data
5. Redirects to a login page counted as a status change

=== INSTRUCTIONS ===
1. Judge EVERY finding listed above, in order
2. Echo finding_id exactly as given
3. rationale: one or two sentences grounded in the status transition and diff
4. suggested_next_step: one concrete manual check (a request to send, a field to inspect)
5. When in doubt between confirmed and false positive, choose needs_manual_review

== CRITICAL OUTPUT RULES ==

1. Return ONLY valid JSON - NO text before or after
2. Do NOT include conversational filler like:
   - "Here is the triage:"
   - "Based on the findings:"
3. Start your response DIRECTLY with "{"
4. End DIRECTLY with "}"
5. NO markdown code blocks around JSON

Return JSON:
{
  "assessments": [
    {
      "finding_id": "finding_1",
      "verdict": "confirmed|likely_false_positive|needs_manual_review",
      "rationale": "why this verdict",
      "suggested_next_step": "concrete manual check"
    }
  ]
}`,
		host,
		formatFindingsForTriage(findings),
	)
}

// formatFindingsForTriage — компактный блок находок для промпта.
func formatFindingsForTriage(findings []*models.Finding) string {
	var b strings.Builder
	for i, f := range findings {
		fmt.Fprintf(&b, "%d. [%s] %s %s %s\n", i+1, f.Severity, f.TestType, f.Endpoint, f.FindingID)
		fmt.Fprintf(&b, "   status: %d -> %d\n", f.BaselineStatus, f.TestStatus)
		fmt.Fprintf(&b, "   test: %s\n", f.Description)
		if f.DiffSummary != "" {
			fmt.Fprintf(&b, "   diff: %s\n", f.DiffSummary)
		}
	}
	return b.String()
}
