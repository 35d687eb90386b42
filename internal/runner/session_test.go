package runner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSessionCookies(t *testing.T) {
	t.Run("valid file", func(t *testing.T) {
		path := writeFile(t, "cookies.json",
			`[{"name":"sid","value":"secret","domain":"app.example.com","path":"/"}]`)

		cookies, err := LoadSessionCookies(path)
		require.NoError(t, err)
		require.Len(t, cookies, 1)
		assert.Equal(t, "sid", cookies[0].Name)
		assert.Equal(t, "secret", cookies[0].Value)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadSessionCookies(filepath.Join(t.TempDir(), "nope.json"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nope.json")
	})

	t.Run("cookie without name", func(t *testing.T) {
		path := writeFile(t, "cookies.json", `[{"value":"secret"}]`)
		_, err := LoadSessionCookies(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "has no name")
	})

	t.Run("malformed json", func(t *testing.T) {
		path := writeFile(t, "cookies.json", `{"name":"sid"}`)
		_, err := LoadSessionCookies(path)
		assert.Error(t, err, "an object instead of an array must fail")
	})
}

func TestLoadSessionHeaders(t *testing.T) {
	t.Run("valid file", func(t *testing.T) {
		path := writeFile(t, "headers.json", `{"Authorization":"Bearer xyz","X-Org":"acme"}`)

		headers, err := LoadSessionHeaders(path)
		require.NoError(t, err)
		assert.Equal(t, "Bearer xyz", headers["Authorization"])
		assert.Equal(t, "acme", headers["X-Org"])
	})

	t.Run("malformed json", func(t *testing.T) {
		path := writeFile(t, "headers.json", `["not","an","object"]`)
		_, err := LoadSessionHeaders(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "headers.json")
	})
}
