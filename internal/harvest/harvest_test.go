package harvest

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BetterCallFirewall/surfacerecon/internal/models"
)

const loginPage = `<!DOCTYPE html>
<html><body>
<form action="/login" method="post">
  <input type="hidden" name="csrf_token" value="abc123">
  <input type="text" name="username">
  <input type="password" name="password">
  <input type="submit" value="Sign in">
  <select name="remember"><option>yes</option></select>
</form>
</body></html>`

func htmlRequest(url, body string) *models.CapturedRequest {
	return &models.CapturedRequest{
		Method: "GET",
		URL:    url,
		Response: &models.CapturedResponse{
			Status:  200,
			Headers: map[string]string{"content-type": "text/html; charset=utf-8"},
			Body:    body,
		},
	}
}

func TestHarvest_LoginForm(t *testing.T) {
	h := New(zerolog.Nop())

	forms := h.Harvest([]*models.CapturedRequest{
		htmlRequest("https://app.example.com/signin", loginPage),
	})

	require.Len(t, forms, 1)
	form := forms[0]
	assert.Len(t, form.FormID, 16)
	assert.Equal(t, "https://app.example.com/signin", form.PageURL)
	assert.Equal(t, "https://app.example.com/login", form.Action, "relative action is resolved against the page URL")
	assert.Equal(t, "POST", form.Method)
	assert.True(t, form.HasCSRFToken)
	assert.Equal(t, "csrf_token", form.CSRFTokenName)

	require.Len(t, form.Fields, 4, "unnamed submit input is dropped")
	byName := make(map[string]models.FormField, len(form.Fields))
	for _, f := range form.Fields {
		byName[f.Name] = f
	}
	assert.Equal(t, "hidden", byName["csrf_token"].Type)
	assert.Equal(t, "abc123", byName["csrf_token"].Value)
	assert.True(t, byName["csrf_token"].Sensitive, "token names count as sensitive")
	assert.False(t, byName["username"].Sensitive)
	assert.True(t, byName["password"].Sensitive)
	assert.Equal(t, "text", byName["remember"].Type, "select falls back to the default type")
}

func TestHarvest_ContentDetection(t *testing.T) {
	h := New(zerolog.Nop())
	page := `<html><body><form action="/x" method="get"><input name="q"></form></body></html>`

	t.Run("document marker without content-type", func(t *testing.T) {
		req := htmlRequest("https://app.example.com/", page)
		req.Response.Headers = map[string]string{}

		forms := h.Harvest([]*models.CapturedRequest{req})
		assert.Len(t, forms, 1)
	})

	t.Run("JSON responses are skipped", func(t *testing.T) {
		req := htmlRequest("https://app.example.com/api/users", `{"id":1}`)
		req.Response.Headers = map[string]string{"content-type": "application/json"}

		forms := h.Harvest([]*models.CapturedRequest{req})
		assert.Empty(t, forms)
	})

	t.Run("requests without responses are skipped", func(t *testing.T) {
		forms := h.Harvest([]*models.CapturedRequest{{Method: "GET", URL: "https://app.example.com/"}})
		assert.Empty(t, forms)
	})
}

func TestHarvest_ActionResolution(t *testing.T) {
	h := New(zerolog.Nop())

	t.Run("absolute action is kept", func(t *testing.T) {
		page := `<html><body><form action="https://other.example.com/submit" method="post"><input name="a"></form></body></html>`
		forms := h.Harvest([]*models.CapturedRequest{htmlRequest("https://app.example.com/p", page)})

		require.Len(t, forms, 1)
		assert.Equal(t, "https://other.example.com/submit", forms[0].Action)
	})

	t.Run("empty action resolves to the page itself", func(t *testing.T) {
		page := `<html><body><form method="post"><input name="a"></form></body></html>`
		forms := h.Harvest([]*models.CapturedRequest{htmlRequest("https://app.example.com/profile", page)})

		require.Len(t, forms, 1)
		assert.Equal(t, "https://app.example.com/profile", forms[0].Action)
	})
}

func TestHarvest_MethodDefaultsToGET(t *testing.T) {
	h := New(zerolog.Nop())
	page := `<html><body><form action="/search"><input name="q"></form></body></html>`

	forms := h.Harvest([]*models.CapturedRequest{htmlRequest("https://app.example.com/", page)})

	require.Len(t, forms, 1)
	assert.Equal(t, "GET", forms[0].Method)
}

func TestHarvest_DuplicatesCollapsed(t *testing.T) {
	h := New(zerolog.Nop())
	req := htmlRequest("https://app.example.com/signin", loginPage)

	t.Run("same page captured twice yields one entry", func(t *testing.T) {
		forms := h.Harvest([]*models.CapturedRequest{req, req})
		assert.Len(t, forms, 1)
	})

	t.Run("same form on two pages yields two entries", func(t *testing.T) {
		other := htmlRequest("https://app.example.com/welcome", loginPage)
		forms := h.Harvest([]*models.CapturedRequest{req, other})
		assert.Len(t, forms, 2)
	})
}

func TestFormID_TracksFieldNames(t *testing.T) {
	h := New(zerolog.Nop())
	pageA := `<html><body><form action="/x" method="post"><input name="a"></form></body></html>`
	pageB := `<html><body><form action="/x" method="post"><input name="b"></form></body></html>`

	formsA := h.Harvest([]*models.CapturedRequest{htmlRequest("https://app.example.com/1", pageA)})
	formsB := h.Harvest([]*models.CapturedRequest{htmlRequest("https://app.example.com/1", pageB)})

	require.Len(t, formsA, 1)
	require.Len(t, formsB, 1)
	assert.NotEqual(t, formsA[0].FormID, formsB[0].FormID)
}
