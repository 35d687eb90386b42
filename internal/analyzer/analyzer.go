// Package analyzer compares replayed responses against captured baselines
// and classifies the divergences by severity.
package analyzer

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/BetterCallFirewall/surfacerecon/internal/limits"
	"github.com/BetterCallFirewall/surfacerecon/internal/models"
)

const unreadableBody = "(unable to read body)"

// sensitiveFields — словарь чувствительных полей для правила HIGH:
// появление такого токена в пути диффа повышает серьёзность.
var sensitiveFields = []string{
	"ownerId",
	"owner_id",
	"userId",
	"user_id",
	"email",
	"role",
	"roles",
	"isAdmin",
	"is_admin",
	"permissions",
	"accessLevel",
	"access_level",
}

var successStatuses = map[int]bool{200: true, 201: true, 204: true}

// Статусы базовой линии, переход которых в 2xx означает обход контроля
var highBaselineStatuses = map[int]bool{401: true, 403: true, 404: true}
var mediumBaselineStatuses = map[int]bool{400: true, 404: true}

var bodyMethods = map[string]bool{"POST": true, "PUT": true, "PATCH": true}

// EventSink receives finding events as they are classified. Nil drops them.
type EventSink interface {
	FindingDetected(severity, endpoint, testType string)
}

type Analyzer struct {
	log    zerolog.Logger
	limits *limits.PipelineLimits
	sink   EventSink
}

func New(log zerolog.Logger, pl *limits.PipelineLimits, sink EventSink) *Analyzer {
	return &Analyzer{log: log, limits: pl, sink: sink}
}

type baselineKey struct {
	url    string
	method string
}

// Analyze sweeps every successful test result, locates its baseline and
// emits a finding when the replayed response diverges from it.
func (a *Analyzer) Analyze(
	requests []*models.CapturedRequest,
	tests []*models.TestCase,
	results []*models.TestResult,
) []*models.Finding {
	testsByID := make(map[string]*models.TestCase, len(tests))
	for _, tc := range tests {
		testsByID[tc.TestID] = tc
	}

	// Последний запрос на (url, method) побеждает
	baselines := make(map[baselineKey]*models.CapturedRequest, len(requests))
	for _, req := range requests {
		baselines[baselineKey{url: req.URL, method: req.Method}] = req
	}

	var findings []*models.Finding
	for _, result := range results {
		if !result.Success || result.Response == nil {
			continue
		}
		test, ok := testsByID[result.TestID]
		if !ok {
			a.log.Debug().Str("test_id", result.TestID).Msg("result without a known test, skipping")
			continue
		}

		baseline := a.lookupBaseline(baselines, requests, result, test)
		if baseline == nil || baseline.Response == nil {
			a.log.Debug().Str("test_id", result.TestID).Msg("no baseline for result, skipping")
			continue
		}

		baselineStatus := baseline.Response.Status
		testStatus := result.Response.Status
		diff := compareResponses(baseline.Response.Body, result.Response.Body)

		// Нет ни диффа, ни смены статуса: находки нет
		if diff == nil && baselineStatus == testStatus {
			continue
		}

		severity := a.severity(baselineStatus, testStatus, diff, test.TestType,
			baseline.Response.Body, result.Response.Body)

		summary := ""
		if diff != nil {
			summary = truncateRunes(diff.String(), 500)
		}

		finding := &models.Finding{
			FindingID:      fmt.Sprintf("finding_%d", len(findings)+1),
			Severity:       severity,
			TestType:       test.TestType,
			Endpoint:       test.Endpoint,
			TestID:         result.TestID,
			Description:    test.Description,
			BaselineStatus: baselineStatus,
			TestStatus:     testStatus,
			DiffSummary:    summary,
			CurlCommand:    curlCommand(test, result),
		}
		findings = append(findings, finding)
		if a.sink != nil {
			a.sink.FindingDetected(severity, test.Endpoint, test.TestType)
		}
	}

	a.log.Info().Int("results", len(results)).Int("findings", len(findings)).Msg("analysis complete")
	return findings
}

// lookupBaseline: точное совпадение (url, method), иначе первый захваченный
// запрос с тем же методом во входном порядке.
func (a *Analyzer) lookupBaseline(
	baselines map[baselineKey]*models.CapturedRequest,
	requests []*models.CapturedRequest,
	result *models.TestResult,
	test *models.TestCase,
) *models.CapturedRequest {
	if baseline, ok := baselines[baselineKey{url: result.URL, method: test.Method}]; ok {
		return baseline
	}
	for _, req := range requests {
		if req.Method == test.Method {
			return req
		}
	}
	return nil
}

// compareResponses реализует трёхступенчатое сравнение тел: структурный
// дифф для пары JSON-документов, иначе строковое сравнение, иначе ничего.
func compareResponses(baselineBody, testBody string) *Diff {
	baselineJSON, baselineOK := parseBody(baselineBody)
	testJSON, testOK := parseBody(testBody)

	if baselineOK && testOK {
		return Compare(baselineJSON, testJSON)
	}
	if baselineBody != testBody {
		return &Diff{
			Changed: map[string]ValueChange{
				"body": {Old: baselineBody, New: testBody},
			},
		}
	}
	return nil
}

func parseBody(body string) (any, bool) {
	if body == "" || body == unreadableBody {
		return nil, false
	}
	var decoded any
	if err := json.Unmarshal([]byte(body), &decoded); err != nil {
		return nil, false
	}
	return decoded, true
}

// severity applies the classification rules in order; the first match wins.
func (a *Analyzer) severity(
	baselineStatus, testStatus int,
	diff *Diff,
	testType string,
	baselineBody, testBody string,
) string {
	switch {
	case highBaselineStatuses[baselineStatus] && successStatuses[testStatus]:
		return models.SeverityHigh
	case diff != nil && hasSensitivePath(diff):
		return models.SeverityHigh
	case testType == models.TestTypeIDOR && baselineStatus == 200 && testStatus == 200 && diff != nil:
		return models.SeverityHigh
	case mediumBaselineStatuses[baselineStatus] && successStatuses[testStatus]:
		return models.SeverityMedium
	case lengthDelta(baselineBody, testBody) > a.limits.LengthDiffThreshold:
		return models.SeverityMedium
	case baselineStatus == 200 && testStatus == 200 && diff != nil:
		return models.SeverityMedium
	case diff != nil:
		return models.SeverityLow
	default:
		return models.SeverityLow
	}
}

func hasSensitivePath(diff *Diff) bool {
	for _, path := range diff.Paths() {
		lower := strings.ToLower(path)
		for _, field := range sensitiveFields {
			if strings.Contains(lower, strings.ToLower(field)) {
				return true
			}
		}
	}
	return false
}

func lengthDelta(baselineBody, testBody string) float64 {
	if len(baselineBody) == 0 {
		return 0
	}
	return math.Abs(float64(len(testBody))-float64(len(baselineBody))) / float64(len(baselineBody))
}

// curlCommand собирает репродукционную команду: метод, заголовки ответа
// без content-length и host, тело теста и URL.
func curlCommand(test *models.TestCase, result *models.TestResult) string {
	parts := []string{"curl", "-X", test.Method}

	if result.Response != nil {
		names := make([]string, 0, len(result.Response.Headers))
		for name := range result.Response.Headers {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if lower := strings.ToLower(name); lower == "content-length" || lower == "host" {
				continue
			}
			parts = append(parts, "-H", fmt.Sprintf("%q", name+": "+result.Response.Headers[name]))
		}
	}

	if test.Body != nil && bodyMethods[test.Method] {
		if payload, err := json.Marshal(test.Body); err == nil {
			parts = append(parts, "-d", "'"+string(payload)+"'")
		}
	}

	parts = append(parts, fmt.Sprintf("%q", result.URL))
	return strings.Join(parts, " ")
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
