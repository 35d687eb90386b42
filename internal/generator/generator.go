// Package generator synthesizes adversarial test cases from enriched
// endpoints: IDOR, auth bypass, method confusion and mass assignment.
package generator

import (
	"fmt"
	"math/rand"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/BetterCallFirewall/surfacerecon/internal/limits"
	"github.com/BetterCallFirewall/surfacerecon/internal/models"
	"github.com/BetterCallFirewall/surfacerecon/internal/utils"
)

// httpMethods — полный набор методов в фиксированном порядке перебора.
var httpMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodDelete,
	http.MethodOptions,
	http.MethodHead,
	http.MethodPatch,
}

// bodyMethods — методы, которые несут JSON-тело.
var bodyMethods = map[string]bool{
	http.MethodPost:  true,
	http.MethodPut:   true,
	http.MethodPatch: true,
}

// suspiciousFields — словарь полей для mass assignment, порядок фиксирован.
var suspiciousFields = []string{
	"isAdmin",
	"is_admin",
	"admin",
	"role",
	"roles",
	"isOwner",
	"is_owner",
	"owner",
	"permissions",
	"permission",
	"accessLevel",
	"access_level",
	"privileges",
	"privilege",
	"superuser",
	"super_user",
	"isSuperuser",
	"is_superuser",
}

// paymentKeywords — стоп-слова платёжных доменов: такие эндпоинты
// не получают ни одного теста.
var paymentKeywords = []string{
	"payment",
	"checkout",
	"pay",
	"billing",
	"credit-card",
	"creditcard",
	"purchase",
	"subscribe",
	"subscription",
	"upgrade",
	"premium",
}

type Generator struct {
	log    zerolog.Logger
	limits *limits.PipelineLimits
}

func New(log zerolog.Logger, pl *limits.PipelineLimits) *Generator {
	return &Generator{log: log, limits: pl}
}

// Generate строит тесты для всех эндпоинтов. При фиксированном seed
// результат бит-в-бит воспроизводим.
func (g *Generator) Generate(endpoints []*models.Endpoint) []*models.TestCase {
	rng := rand.New(rand.NewSource(g.limits.Seed))
	union := buildPoolUnion(endpoints)

	var all []*models.TestCase
	for _, ep := range endpoints {
		if keyword, blocked := paymentKeyword(ep.TemplatedPath); blocked {
			g.log.Warn().
				Str("endpoint", ep.TemplatedPath).
				Str("keyword", keyword).
				Msg("skipping payment-domain endpoint")
			continue
		}

		var tests []*models.TestCase
		tests = append(tests, g.idorTests(ep, union, rng)...)
		tests = append(tests, g.authBypassTests(ep)...)
		tests = append(tests, g.methodConfusionTests(ep)...)
		tests = append(tests, g.massAssignmentTests(ep)...)

		if len(tests) > g.limits.MaxTestsPerEndpoint {
			tests = tests[:g.limits.MaxTestsPerEndpoint]
		}
		all = append(all, tests...)
		g.log.Info().Str("endpoint", ep.TemplatedPath).Int("tests", len(tests)).Msg("generated endpoint tests")
	}

	g.log.Info().Int("endpoints", len(endpoints)).Int("tests", len(all)).Msg("test generation complete")
	return all
}

// poolUnion — объединение пулов по имени через весь набор эндпоинтов.
// Порядок имён: первый встреченный при переборе эндпоинтов по входному
// порядку, имена внутри эндпоинта отсортированы.
type poolUnion struct {
	names  []string
	values map[string][]any
}

func buildPoolUnion(endpoints []*models.Endpoint) *poolUnion {
	union := &poolUnion{values: make(map[string][]any)}
	for _, ep := range endpoints {
		for _, name := range sortedPoolNames(ep.IDPools) {
			if _, seen := union.values[name]; !seen {
				union.names = append(union.names, name)
			}
			for _, v := range ep.IDPools[name].Values() {
				if !containsValue(union.values[name], v) {
					union.values[name] = append(union.values[name], v)
				}
			}
		}
	}
	return union
}

func (g *Generator) idorTests(ep *models.Endpoint, union *poolUnion, rng *rand.Rand) []*models.TestCase {
	if len(ep.IDPools) == 0 {
		return nil
	}

	poolNames := sortedPoolNames(ep.IDPools)
	iterations := g.limits.IDORVariants
	if bound := len(ep.IDPools) * 5; bound < iterations {
		iterations = bound
	}

	var tests []*models.TestCase
	for i := 0; i < iterations; i++ {
		sourceName := poolNames[rng.Intn(len(poolNames))]
		sourceValues := ep.IDPools[sourceName].Values()
		if len(sourceValues) == 0 {
			continue
		}
		originalID := sourceValues[rng.Intn(len(sourceValues))]

		targetName, targetID, found := findTarget(union, sourceName, sourceValues, originalID, rng)
		if !found {
			continue
		}

		testURL := utils.ConcretizeURL(ep.SourceURL, ep.TemplatedPath, renderID(targetID))

		var body map[string]any
		if len(ep.SampleBodies) > 0 {
			body = cloneBody(ep.SampleBodies[0])
			for key := range body {
				if key == sourceName || strings.Contains(strings.ToLower(key), "id") {
					body[key] = targetID
				}
			}
		}

		tests = append(tests, &models.TestCase{
			TestID:      fmt.Sprintf("idor_%s_%d", ep.TemplatedPath, i),
			TestType:    models.TestTypeIDOR,
			Endpoint:    ep.TemplatedPath,
			Method:      ep.Method,
			URL:         testURL,
			Headers:     map[string]string{},
			Body:        body,
			UseSession:  true,
			Description: fmt.Sprintf("IDOR: Replace %s=%v with %s=%v", sourceName, originalID, targetName, targetID),
		})
	}
	return tests
}

// findTarget ищет значение для подстановки: сначала в пулах с другим
// именем, затем среди одноимённых пулов чужих эндпоинтов. Значения
// собственного пула исключаются, иначе тест остался бы на той же записи.
func findTarget(union *poolUnion, sourceName string, sourceValues []any, originalID any, rng *rand.Rand) (string, any, bool) {
	for _, name := range union.names {
		if name == sourceName {
			continue
		}
		var candidates []any
		for _, v := range union.values[name] {
			if v != originalID {
				candidates = append(candidates, v)
			}
		}
		if len(candidates) > 0 {
			return name, candidates[rng.Intn(len(candidates))], true
		}
	}

	var candidates []any
	for _, v := range union.values[sourceName] {
		if v == originalID || containsValue(sourceValues, v) {
			continue
		}
		candidates = append(candidates, v)
	}
	if len(candidates) > 0 {
		return sourceName, candidates[rng.Intn(len(candidates))], true
	}
	return "", nil, false
}

func (g *Generator) authBypassTests(ep *models.Endpoint) []*models.TestCase {
	tests := make([]*models.TestCase, 0, g.limits.AuthBypassVariants)
	for i := 0; i < g.limits.AuthBypassVariants; i++ {
		tests = append(tests, &models.TestCase{
			TestID:      fmt.Sprintf("auth_bypass_%s_%d", ep.TemplatedPath, i),
			TestType:    models.TestTypeAuthBypass,
			Endpoint:    ep.TemplatedPath,
			Method:      ep.Method,
			URL:         ep.SourceURL,
			Headers:     map[string]string{},
			UseSession:  false,
			Description: "Auth bypass: Remove authentication cookies/headers",
		})
	}
	return tests
}

func (g *Generator) methodConfusionTests(ep *models.Endpoint) []*models.TestCase {
	var alternatives []string
	for _, method := range httpMethods {
		if method == ep.Method {
			continue
		}
		if method == http.MethodDelete && !g.limits.AllowDestructive {
			continue
		}
		alternatives = append(alternatives, method)
	}
	if len(alternatives) > g.limits.MethodConfusionVariants {
		alternatives = alternatives[:g.limits.MethodConfusionVariants]
	}

	// Путь остаётся в шаблонной форме: реплей отправит его дословно
	testURL := utils.TemplateURL(ep.SourceURL, ep.TemplatedPath)

	tests := make([]*models.TestCase, 0, len(alternatives))
	for _, method := range alternatives {
		var body map[string]any
		if len(ep.SampleBodies) > 0 && bodyMethods[method] {
			body = cloneBody(ep.SampleBodies[0])
		}
		tests = append(tests, &models.TestCase{
			TestID:      fmt.Sprintf("method_confusion_%s_%s", ep.TemplatedPath, method),
			TestType:    models.TestTypeMethodConfusion,
			Endpoint:    ep.TemplatedPath,
			Method:      method,
			URL:         testURL,
			Headers:     map[string]string{},
			Body:        body,
			UseSession:  true,
			Description: fmt.Sprintf("Method confusion: Try %s instead of %s", method, ep.Method),
		})
	}
	return tests
}

func (g *Generator) massAssignmentTests(ep *models.Endpoint) []*models.TestCase {
	if !bodyMethods[ep.Method] {
		return nil
	}

	base := map[string]any{}
	if len(ep.SampleBodies) > 0 {
		base = ep.SampleBodies[0]
	}

	fields := suspiciousFields
	if len(fields) > g.limits.MassAssignmentVariants {
		fields = fields[:g.limits.MassAssignmentVariants]
	}

	tests := make([]*models.TestCase, 0, len(fields))
	for i, field := range fields {
		body := cloneBody(base)
		body[field] = suspiciousValue(field)
		tests = append(tests, &models.TestCase{
			TestID:      fmt.Sprintf("mass_assignment_%s_%d", ep.TemplatedPath, i),
			TestType:    models.TestTypeMassAssignment,
			Endpoint:    ep.TemplatedPath,
			Method:      ep.Method,
			URL:         ep.SourceURL,
			Headers:     map[string]string{},
			Body:        body,
			UseSession:  true,
			Description: fmt.Sprintf("Mass assignment: Add suspicious field %s=%v", field, body[field]),
		})
	}
	return tests
}

// suspiciousValue подбирает значение по имени поля: булево для admin/is*,
// "admin" для ролей, "full" для прав доступа.
func suspiciousValue(field string) any {
	lower := strings.ToLower(field)
	switch {
	case strings.Contains(lower, "admin") || strings.HasPrefix(lower, "is"):
		return true
	case strings.Contains(lower, "role"):
		return "admin"
	case strings.Contains(lower, "permission") || strings.Contains(lower, "access"):
		return "full"
	default:
		return true
	}
}

func paymentKeyword(templatedPath string) (string, bool) {
	lower := strings.ToLower(templatedPath)
	for _, keyword := range paymentKeywords {
		if strings.Contains(lower, keyword) {
			return keyword, true
		}
	}
	return "", false
}

func renderID(v any) string {
	switch t := v.(type) {
	case int64:
		return strconv.FormatInt(t, 10)
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}

func cloneBody(body map[string]any) map[string]any {
	clone := make(map[string]any, len(body))
	for k, v := range body {
		clone[k] = v
	}
	return clone
}

func containsValue(values []any, v any) bool {
	for _, existing := range values {
		if existing == v {
			return true
		}
	}
	return false
}

func sortedPoolNames(pools map[string]*models.IDPool) []string {
	names := make([]string, 0, len(pools))
	for name := range pools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
