// Package modeler collapses a captured HTTP log into a minimal set of
// endpoints with templated paths and parameter inventories.
package modeler

import (
	"encoding/json"
	"net/url"
	"reflect"
	"sort"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/BetterCallFirewall/surfacerecon/internal/models"
	"github.com/BetterCallFirewall/surfacerecon/internal/utils"
)

const (
	maxParamValues  = 10
	maxSampleBodies = 5
)

type Modeler struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Modeler {
	return &Modeler{log: log}
}

// group накапливает сырые наблюдения по одной форме пути до шаблонизации.
type group struct {
	method    string
	sourceURL string
	paths     [][]string
	queries   []url.Values
	bodies    []map[string]any
}

// Model builds the endpoint set from captured requests. Requests without a
// response are skipped; a body that is not a JSON object still contributes
// its path and query observations.
func (m *Modeler) Model(requests []*models.CapturedRequest) []*models.Endpoint {
	groups := make(map[string]*group)
	var order []string

	for _, req := range requests {
		if req.Response == nil {
			m.log.Debug().Str("url", req.URL).Msg("skipping request without response")
			continue
		}
		u, err := url.Parse(req.URL)
		if err != nil {
			m.log.Debug().Str("url", req.URL).Msg("skipping unparseable URL")
			continue
		}

		segments := utils.SplitPath(u.Path)
		key := req.Method + " " + utils.PathShape(segments)
		g, ok := groups[key]
		if !ok {
			stripped := *u
			stripped.RawQuery = ""
			stripped.Fragment = ""
			g = &group{method: req.Method, sourceURL: stripped.String()}
			groups[key] = g
			order = append(order, key)
		}
		g.paths = append(g.paths, segments)
		g.queries = append(g.queries, u.Query())

		if req.PostData != "" {
			var body map[string]any
			if err := json.Unmarshal([]byte(req.PostData), &body); err != nil {
				m.log.Debug().Str("url", req.URL).Msg("skipping non-JSON request body")
			} else {
				g.bodies = append(g.bodies, body)
			}
		}
	}

	endpoints := make([]*models.Endpoint, 0, len(order))
	for _, key := range order {
		endpoints = append(endpoints, m.buildEndpoint(groups[key]))
	}

	m.log.Info().Int("requests", len(requests)).Int("endpoints", len(endpoints)).Msg("endpoint modeling complete")
	return endpoints
}

func (m *Modeler) buildEndpoint(g *group) *models.Endpoint {
	ep := &models.Endpoint{
		Method:        g.method,
		TemplatedPath: utils.DeriveTemplate(g.paths),
		SourceURL:     g.sourceURL,
		Parameters: models.Parameters{
			Path:  make(map[string][]string),
			Query: make(map[string][]string),
			Body:  make(map[string][]string),
		},
		ObservedIDs: make(map[string][]any),
	}

	// Path-параметры: сегменты, отличающиеся от первого пути группы.
	// Базовое значение тоже попадает в инвентарь. Нумерация идёт без
	// пустого сегмента от ведущего "/": в /api/users/42 сегмент 42 — param_2.
	base := g.paths[0]
	for _, p := range g.paths {
		n := len(p)
		if len(base) < n {
			n = len(base)
		}
		for i := 0; i < n; i++ {
			if p[i] != base[i] {
				idx := i
				if base[0] == "" {
					idx--
				}
				name := "param_" + strconv.Itoa(idx)
				addParamValue(ep.Parameters.Path, name, base[i])
				addParamValue(ep.Parameters.Path, name, p[i])
			}
		}
	}

	for _, q := range g.queries {
		names := make([]string, 0, len(q))
		for name := range q {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			for _, v := range q[name] {
				addParamValue(ep.Parameters.Query, name, v)
			}
		}
	}

	for _, body := range g.bodies {
		keys := make([]string, 0, len(body))
		for k := range body {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if s, ok := coerceScalar(body[k]); ok {
				addParamValue(ep.Parameters.Body, k, s)
			}
		}
		if len(ep.SampleBodies) < maxSampleBodies && !containsBody(ep.SampleBodies, body) {
			ep.SampleBodies = append(ep.SampleBodies, body)
		}
	}

	collectObservedIDs(ep.ObservedIDs, ep.Parameters.Path)
	collectObservedIDs(ep.ObservedIDs, ep.Parameters.Query)
	collectObservedIDs(ep.ObservedIDs, ep.Parameters.Body)
	return ep
}

func addParamValue(m map[string][]string, name, value string) {
	values := m[name]
	for _, v := range values {
		if v == value {
			return
		}
	}
	if len(values) >= maxParamValues {
		return
	}
	m[name] = append(values, value)
}

// coerceScalar приводит скалярное JSON-значение к строке для инвентаря.
// Объекты и массивы остаются только в sample_bodies.
func coerceScalar(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10), true
		}
		return strconv.FormatFloat(t, 'g', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

func containsBody(bodies []map[string]any, body map[string]any) bool {
	for _, b := range bodies {
		if reflect.DeepEqual(b, body) {
			return true
		}
	}
	return false
}

// collectObservedIDs помечает параметры, которые выглядят как идентификаторы,
// тем же правилом отбора, что и инференс пулов.
func collectObservedIDs(out map[string][]any, params map[string][]string) {
	for name, values := range params {
		idLike := utils.MatchesIDName(name)
		if !idLike {
			for _, v := range values {
				if _, ok := utils.IntegerValue(v); ok {
					idLike = true
					break
				}
				if _, ok := utils.UUIDValue(v); ok {
					idLike = true
					break
				}
			}
		}
		if !idLike {
			continue
		}
		observed := make([]any, 0, len(values))
		for _, v := range values {
			observed = append(observed, v)
		}
		out[name] = observed
	}
}
