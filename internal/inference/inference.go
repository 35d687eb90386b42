// Package inference annotates endpoints with ID pools: per-parameter
// groupings of observed identifier values, bucketed by inferred type.
package inference

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/BetterCallFirewall/surfacerecon/internal/models"
	"github.com/BetterCallFirewall/surfacerecon/internal/utils"
)

type Engine struct {
	log       zerolog.Logger
	maxValues int
}

func New(log zerolog.Logger, maxValues int) *Engine {
	return &Engine{log: log, maxValues: maxValues}
}

// Enrich fills id_pools on every endpoint in place. Повторный вызов
// перестраивает пулы с нуля, поэтому операция идемпотентна.
func (e *Engine) Enrich(endpoints []*models.Endpoint) {
	total := 0
	for _, ep := range endpoints {
		ep.IDPools = e.buildPools(ep)
		total += len(ep.IDPools)
	}
	e.log.Info().Int("endpoints", len(endpoints)).Int("pools", total).Msg("id inference complete")
}

func (e *Engine) buildPools(ep *models.Endpoint) map[string]*models.IDPool {
	pools := make(map[string]*models.IDPool)

	locations := []struct {
		location string
		params   map[string][]string
	}{
		{models.LocationPath, ep.Parameters.Path},
		{models.LocationQuery, ep.Parameters.Query},
		{models.LocationBody, ep.Parameters.Body},
	}
	for _, loc := range locations {
		names := sortedKeys(loc.params)
		for _, name := range names {
			values := loc.params[name]
			if !poolWorthy(name, values) {
				continue
			}
			pool := ensurePool(pools, name, loc.location)
			for _, v := range values {
				e.addValue(pool, v)
			}
		}
	}

	// Пулы из тел запросов: только ключи из словаря имён с int/uuid значением.
	for _, body := range ep.SampleBodies {
		keys := sortedBodyKeys(body)
		for _, key := range keys {
			if !utils.MatchesIDName(key) {
				continue
			}
			v := body[key]
			_, isInt := utils.IntegerValue(v)
			_, isUUID := utils.UUIDValue(v)
			if !isInt && !isUUID {
				continue
			}
			pool := ensurePool(pools, "body."+key, models.LocationBody)
			e.addValue(pool, v)
		}
	}

	for _, name := range sortedPoolNames(pools) {
		finalize(pools[name])
	}
	if len(pools) == 0 {
		return nil
	}
	return pools
}

// poolWorthy реализует правило отбора: имя из словаря идентификаторов
// либо хотя бы одно значение классифицируется как int или uuid.
func poolWorthy(name string, values []string) bool {
	if utils.MatchesIDName(name) {
		return true
	}
	for _, v := range values {
		if _, ok := utils.IntegerValue(v); ok {
			return true
		}
		if utils.IsUUIDString(v) {
			return true
		}
	}
	return false
}

func ensurePool(pools map[string]*models.IDPool, name, location string) *models.IDPool {
	if pool, ok := pools[name]; ok {
		return pool
	}
	pool := &models.IDPool{Name: name, Location: location}
	pools[name] = pool
	return pool
}

// addValue кладёт значение ровно в одну корзину: int, затем uuid, затем string.
func (e *Engine) addValue(pool *models.IDPool, v any) {
	if n, ok := utils.IntegerValue(v); ok {
		pool.IntegerIDs = appendInt64(pool.IntegerIDs, n, e.maxValues)
		return
	}
	if s, ok := utils.UUIDValue(v); ok {
		pool.UUIDIDs = appendString(pool.UUIDIDs, s, e.maxValues)
		return
	}
	if s, ok := v.(string); ok {
		pool.StringIDs = appendString(pool.StringIDs, s, e.maxValues)
	}
}

func finalize(pool *models.IDPool) {
	switch {
	case len(pool.IntegerIDs) > 0:
		pool.Type = "int"
	case len(pool.UUIDIDs) > 0:
		pool.Type = "uuid"
	default:
		pool.Type = "string"
	}
	pool.Count = len(pool.IntegerIDs) + len(pool.UUIDIDs) + len(pool.StringIDs)
}

func appendInt64(values []int64, v int64, limit int) []int64 {
	for _, existing := range values {
		if existing == v {
			return values
		}
	}
	if len(values) >= limit {
		return values
	}
	return append(values, v)
}

func appendString(values []string, v string, limit int) []string {
	for _, existing := range values {
		if existing == v {
			return values
		}
	}
	if len(values) >= limit {
		return values
	}
	return append(values, v)
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedBodyKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedPoolNames(pools map[string]*models.IDPool) []string {
	names := make([]string, 0, len(pools))
	for name := range pools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
