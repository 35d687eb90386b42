// Package report renders the findings artifact into the report pair:
// a fixed-layout markdown document and a structured JSON summary.
package report

import (
	"fmt"
	"strings"

	"github.com/BetterCallFirewall/surfacerecon/internal/models"
)

const markdownTitle = "# surfacerecon Vulnerability Report"

// Summary — сводные счётчики для report.json.
type Summary struct {
	TotalFindings int `json:"total_findings"`
	High          int `json:"high"`
	Medium        int `json:"medium"`
	Low           int `json:"low"`
}

// Report is the report.json payload. BySeverity always carries all three
// severity keys so consumers can index without existence checks.
type Report struct {
	Summary     Summary                      `json:"summary"`
	BySeverity  map[string][]*models.Finding `json:"by_severity"`
	ByType      map[string][]*models.Finding `json:"by_type"`
	AllFindings []*models.Finding            `json:"all_findings"`
}

// Structured groups findings by severity and by test type.
func Structured(findings []*models.Finding) *Report {
	bySeverity := map[string][]*models.Finding{
		models.SeverityHigh:   {},
		models.SeverityMedium: {},
		models.SeverityLow:    {},
	}
	byType := make(map[string][]*models.Finding)
	for _, f := range findings {
		if _, ok := bySeverity[f.Severity]; ok {
			bySeverity[f.Severity] = append(bySeverity[f.Severity], f)
		}
		byType[f.TestType] = append(byType[f.TestType], f)
	}

	all := findings
	if all == nil {
		all = []*models.Finding{}
	}
	return &Report{
		Summary: Summary{
			TotalFindings: len(findings),
			High:          len(bySeverity[models.SeverityHigh]),
			Medium:        len(bySeverity[models.SeverityMedium]),
			Low:           len(bySeverity[models.SeverityLow]),
		},
		BySeverity:  bySeverity,
		ByType:      byType,
		AllFindings: all,
	}
}

// Markdown renders report.md. Numbering restarts at 1 within each severity
// section; LOW findings collapse into a table.
func Markdown(findings []*models.Finding) string {
	var high, medium, low []*models.Finding
	for _, f := range findings {
		switch f.Severity {
		case models.SeverityHigh:
			high = append(high, f)
		case models.SeverityMedium:
			medium = append(medium, f)
		default:
			low = append(low, f)
		}
	}

	lines := []string{
		markdownTitle,
		"",
		"## Executive Summary",
		"",
		fmt.Sprintf("**Total Findings:** %d", len(findings)),
		fmt.Sprintf("- **HIGH:** %d", len(high)),
		fmt.Sprintf("- **MEDIUM:** %d", len(medium)),
		fmt.Sprintf("- **LOW:** %d", len(low)),
		"",
		"---",
		"",
	}

	if len(high) > 0 {
		lines = append(lines, "## HIGH Severity Findings", "")
		for i, f := range high {
			lines = appendFindingDetail(lines, i+1, f, true)
		}
	}

	if len(medium) > 0 {
		lines = append(lines, "## MEDIUM Severity Findings", "")
		for i, f := range medium {
			lines = appendFindingDetail(lines, i+1, f, false)
		}
	}

	if len(low) > 0 {
		lines = append(lines,
			"## LOW Severity Findings",
			"",
			"| Endpoint | Test Type | Status Change |",
			"|----------|-----------|---------------|",
		)
		for _, f := range low {
			lines = append(lines, fmt.Sprintf("| `%s` | %s | %d → %d |",
				f.Endpoint, f.TestType, f.BaselineStatus, f.TestStatus))
		}
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}

// appendFindingDetail — развёрнутая карточка находки. Дифф печатается
// только для HIGH-секции.
func appendFindingDetail(lines []string, n int, f *models.Finding, withDiff bool) []string {
	lines = append(lines,
		fmt.Sprintf("### Finding %d: %s", n, f.TestType),
		"",
		fmt.Sprintf("**Endpoint:** `%s`", f.Endpoint),
		fmt.Sprintf("**Test Type:** %s", f.TestType),
		fmt.Sprintf("**Description:** %s", f.Description),
		"",
		fmt.Sprintf("**Status Change:** %d → %d", f.BaselineStatus, f.TestStatus),
		"",
	)

	if withDiff && f.DiffSummary != "" {
		lines = append(lines,
			"**Difference Summary:**",
			"```",
			f.DiffSummary,
			"```",
			"",
		)
	}

	if f.CurlCommand != "" {
		lines = append(lines,
			"**Reproduction Command:**",
			"```bash",
			f.CurlCommand,
			"```",
			"",
		)
	}

	return append(lines, "---", "")
}
