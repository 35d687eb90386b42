package inference

import (
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BetterCallFirewall/surfacerecon/internal/models"
)

func endpointWith(params models.Parameters, bodies []map[string]any) *models.Endpoint {
	return &models.Endpoint{
		Method:        "GET",
		TemplatedPath: "/api/users/{id:int}",
		SourceURL:     "https://app.example.com/api/users/42",
		Parameters:    params,
		SampleBodies:  bodies,
	}
}

func TestEnrich_IntegerPathPool(t *testing.T) {
	e := New(zerolog.Nop(), 20)
	ep := endpointWith(models.Parameters{
		Path: map[string][]string{"param_2": {"42", "43"}},
	}, nil)

	e.Enrich([]*models.Endpoint{ep})

	require.Contains(t, ep.IDPools, "param_2")
	pool := ep.IDPools["param_2"]
	assert.Equal(t, models.LocationPath, pool.Location)
	assert.Equal(t, "int", pool.Type)
	assert.Equal(t, []int64{42, 43}, pool.IntegerIDs)
	assert.Empty(t, pool.UUIDIDs)
	assert.Empty(t, pool.StringIDs)
	assert.Equal(t, 2, pool.Count)
}

func TestEnrich_SelectionRule(t *testing.T) {
	e := New(zerolog.Nop(), 20)

	t.Run("name match alone is enough", func(t *testing.T) {
		ep := endpointWith(models.Parameters{
			Query: map[string][]string{"user_id": {"alice", "bob"}},
		}, nil)
		e.Enrich([]*models.Endpoint{ep})

		require.Contains(t, ep.IDPools, "user_id")
		assert.Equal(t, "string", ep.IDPools["user_id"].Type)
		assert.Equal(t, []string{"alice", "bob"}, ep.IDPools["user_id"].StringIDs)
	})

	t.Run("value match alone is enough", func(t *testing.T) {
		ep := endpointWith(models.Parameters{
			Query: map[string][]string{"page": {"3"}},
		}, nil)
		e.Enrich([]*models.Endpoint{ep})

		require.Contains(t, ep.IDPools, "page")
		assert.Equal(t, []int64{3}, ep.IDPools["page"].IntegerIDs)
	})

	t.Run("neither name nor value matches", func(t *testing.T) {
		ep := endpointWith(models.Parameters{
			Query: map[string][]string{"q": {"alpha", "beta"}},
		}, nil)
		e.Enrich([]*models.Endpoint{ep})

		assert.NotContains(t, ep.IDPools, "q")
	})
}

func TestEnrich_BucketDisjointness(t *testing.T) {
	e := New(zerolog.Nop(), 20)
	ep := endpointWith(models.Parameters{
		Path: map[string][]string{
			"param_2": {"42", "550e8400-e29b-41d4-a716-446655440000", "slug-a"},
		},
	}, nil)

	e.Enrich([]*models.Endpoint{ep})

	pool := ep.IDPools["param_2"]
	require.NotNil(t, pool)
	assert.Equal(t, []int64{42}, pool.IntegerIDs)
	assert.Equal(t, []string{"550e8400-e29b-41d4-a716-446655440000"}, pool.UUIDIDs)
	assert.Equal(t, []string{"slug-a"}, pool.StringIDs)
	assert.Equal(t, "int", pool.Type, "первая непустая корзина определяет тип")
	assert.Equal(t, 3, pool.Count)

	// Ни одно значение не попало в две корзины
	for _, n := range pool.IntegerIDs {
		assert.NotContains(t, pool.StringIDs, fmt.Sprintf("%d", n))
	}
	for _, u := range pool.UUIDIDs {
		assert.NotContains(t, pool.StringIDs, u)
	}
}

func TestEnrich_TypePrecedence(t *testing.T) {
	e := New(zerolog.Nop(), 20)

	t.Run("uuid only", func(t *testing.T) {
		ep := endpointWith(models.Parameters{
			Path: map[string][]string{"param_2": {"550e8400-e29b-41d4-a716-446655440000"}},
		}, nil)
		e.Enrich([]*models.Endpoint{ep})
		assert.Equal(t, "uuid", ep.IDPools["param_2"].Type)
	})

	t.Run("uuid and string", func(t *testing.T) {
		ep := endpointWith(models.Parameters{
			Path: map[string][]string{"param_2": {"slug", "550e8400-e29b-41d4-a716-446655440000"}},
		}, nil)
		e.Enrich([]*models.Endpoint{ep})
		assert.Equal(t, "uuid", ep.IDPools["param_2"].Type, "uuid beats string regardless of observation order")
	})
}

func TestEnrich_BodyKeyPools(t *testing.T) {
	e := New(zerolog.Nop(), 20)
	ep := endpointWith(models.Parameters{}, []map[string]any{
		{"ownerId": float64(7), "name": "alpha"},
		{"ownerId": float64(8), "token": "550e8400-e29b-41d4-a716-446655440000"},
	})

	e.Enrich([]*models.Endpoint{ep})

	require.Contains(t, ep.IDPools, "body.ownerId")
	pool := ep.IDPools["body.ownerId"]
	assert.Equal(t, models.LocationBody, pool.Location)
	assert.Equal(t, []int64{7, 8}, pool.IntegerIDs)

	// name не из словаря, token не из словаря: пулов для них нет
	assert.NotContains(t, ep.IDPools, "body.name")
	assert.NotContains(t, ep.IDPools, "body.token")
}

func TestEnrich_SetSemanticsAndCap(t *testing.T) {
	e := New(zerolog.Nop(), 5)

	values := []string{"1", "1", "2", "2", "3", "4", "5", "6", "7"}
	ep := endpointWith(models.Parameters{
		Path: map[string][]string{"param_2": values},
	}, nil)

	e.Enrich([]*models.Endpoint{ep})

	pool := ep.IDPools["param_2"]
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, pool.IntegerIDs, "duplicates merge, bucket capped")
}

func TestEnrich_Idempotent(t *testing.T) {
	e := New(zerolog.Nop(), 20)
	ep := endpointWith(models.Parameters{
		Path:  map[string][]string{"param_2": {"42", "43"}},
		Query: map[string][]string{"user_id": {"9"}},
	}, []map[string]any{{"accountId": float64(5)}})

	e.Enrich([]*models.Endpoint{ep})
	first := ep.IDPools

	e.Enrich([]*models.Endpoint{ep})
	assert.Equal(t, first, ep.IDPools, "re-enrichment is a fixed point")
}

func TestEnrich_NoPoolsLeavesNil(t *testing.T) {
	e := New(zerolog.Nop(), 20)
	ep := endpointWith(models.Parameters{
		Query: map[string][]string{"q": {"alpha"}},
	}, nil)

	e.Enrich([]*models.Endpoint{ep})
	assert.Nil(t, ep.IDPools, "endpoints without ID-like parameters carry no id_pools key")
}
