package models

// Test types emitted by the generator.
const (
	TestTypeIDOR            = "IDOR"
	TestTypeAuthBypass      = "AUTH_BYPASS"
	TestTypeMethodConfusion = "METHOD_CONFUSION"
	TestTypeMassAssignment  = "MASS_ASSIGNMENT"
)

// Finding severities.
const (
	SeverityHigh   = "HIGH"
	SeverityMedium = "MEDIUM"
	SeverityLow    = "LOW"
)

// ID pool locations.
const (
	LocationPath  = "path"
	LocationQuery = "query"
	LocationBody  = "body"
)

// CapturedRequest is one observed HTTP transaction from the capture stage
// (requests.json). Requests without a response are ignored downstream.
type CapturedRequest struct {
	Method    string            `json:"method"`
	URL       string            `json:"url"`
	Headers   map[string]string `json:"headers"`
	PostData  string            `json:"post_data"`
	Timestamp string            `json:"timestamp"`
	Response  *CapturedResponse `json:"response,omitempty"`
}

// CapturedResponse is the response half of a transaction. The body may carry
// a truncation suffix appended by the producer; it is treated as opaque text.
type CapturedResponse struct {
	Status     int               `json:"status"`
	StatusText string            `json:"status_text"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
}

// Parameters groups observed parameter values by location. Values are kept
// string-coerced; body values come from top-level scalar JSON keys only.
type Parameters struct {
	Path  map[string][]string `json:"path"`
	Query map[string][]string `json:"query"`
	Body  map[string][]string `json:"body"`
}

// Endpoint abstracts all captured requests sharing one method and path shape.
// SourceURL is the first observed absolute URL of the group and is what IDOR
// variants are concretized against.
type Endpoint struct {
	Method        string             `json:"method"`
	TemplatedPath string             `json:"templated_path"`
	SourceURL     string             `json:"source_url"`
	Parameters    Parameters         `json:"parameters"`
	SampleBodies  []map[string]any   `json:"sample_bodies"`
	ObservedIDs   map[string][]any   `json:"observed_ids"`
	IDPools       map[string]*IDPool `json:"id_pools,omitempty"`
}

// IDPool holds the identifier values observed for one parameter, split into
// three disjoint typed buckets. Type is the first non-empty bucket in the
// order int, uuid, string.
type IDPool struct {
	Name       string   `json:"name"`
	Location   string   `json:"location"`
	Type       string   `json:"type"`
	IntegerIDs []int64  `json:"integer_ids"`
	UUIDIDs    []string `json:"uuid_ids"`
	StringIDs  []string `json:"string_ids"`
	Count      int      `json:"count"`
}

// Values returns every ID in bucket order. The result is what cross-endpoint
// pool unions and IDOR source selection operate on.
func (p *IDPool) Values() []any {
	out := make([]any, 0, len(p.IntegerIDs)+len(p.UUIDIDs)+len(p.StringIDs))
	for _, v := range p.IntegerIDs {
		out = append(out, v)
	}
	for _, v := range p.UUIDIDs {
		out = append(out, v)
	}
	for _, v := range p.StringIDs {
		out = append(out, v)
	}
	return out
}

// TestCase is one planned adversarial request. The json key "cookies" is kept
// for artifact compatibility with the capture-side tooling; it is the
// use-session flag of the replay engine.
type TestCase struct {
	TestID      string            `json:"test_id"`
	TestType    string            `json:"test_type"`
	Endpoint    string            `json:"endpoint"`
	Method      string            `json:"method"`
	URL         string            `json:"url"`
	Headers     map[string]string `json:"headers"`
	Body        map[string]any    `json:"body"`
	UseSession  bool              `json:"cookies"`
	Description string            `json:"description"`
}

// TestResult is the outcome of replaying one TestCase. Exactly one result
// exists per test; Success reports transport-level completion, not any
// security verdict.
type TestResult struct {
	TestID    string            `json:"test_id"`
	TestType  string            `json:"test_type"`
	Endpoint  string            `json:"endpoint"`
	Method    string            `json:"method"`
	URL       string            `json:"url"`
	Timestamp string            `json:"timestamp"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Response  *CapturedResponse `json:"response,omitempty"`
}

// Finding is the analyzer's verdict on one replayed test.
type Finding struct {
	FindingID      string `json:"finding_id"`
	Severity       string `json:"severity"`
	TestType       string `json:"test_type"`
	Endpoint       string `json:"endpoint"`
	TestID         string `json:"test_id"`
	Description    string `json:"description"`
	BaselineStatus int    `json:"baseline_status"`
	TestStatus     int    `json:"test_status"`
	DiffSummary    string `json:"diff_summary"`
	CurlCommand    string `json:"curl_command"`
}

// SessionCookie is one entry of the cookie session-material file.
type SessionCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Triage verdicts.
const (
	VerdictConfirmed           = "confirmed"
	VerdictLikelyFalsePositive = "likely_false_positive"
	VerdictNeedsManualReview   = "needs_manual_review"
)

// TriageAssessment — повторная оценка находки моделью (triage.json).
type TriageAssessment struct {
	FindingID         string `json:"finding_id"`
	Verdict           string `json:"verdict"`
	Rationale         string `json:"rationale"`
	SuggestedNextStep string `json:"suggested_next_step"`
}

// HTMLForm — форма, извлечённая из HTML-ответа (forms.json).
type HTMLForm struct {
	FormID        string      `json:"form_id"`
	PageURL       string      `json:"page_url"`
	Action        string      `json:"action"`
	Method        string      `json:"method"`
	Fields        []FormField `json:"fields"`
	HasCSRFToken  bool        `json:"has_csrf_token"`
	CSRFTokenName string      `json:"csrf_token_name,omitempty"`
}

type FormField struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Value     string `json:"value,omitempty"`
	Sensitive bool   `json:"sensitive"`
}

// Manifest identifies one scenario run (scenario.json).
type Manifest struct {
	RunID     string `json:"run_id"`
	Tool      string `json:"tool"`
	Version   string `json:"version"`
	CreatedAt string `json:"created_at"`
	Seed      int64  `json:"seed"`
}
