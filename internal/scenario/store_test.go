package scenario

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BetterCallFirewall/surfacerecon/internal/models"
)

func TestCreate(t *testing.T) {
	root := t.TempDir()

	store, err := Create(root, 42)
	require.NoError(t, err)
	require.NotNil(t, store)

	// Директория имеет формат timestamp
	base := filepath.Base(store.Dir())
	assert.Len(t, base, len("20060102_150405"))
	assert.Contains(t, base, "_")

	manifest, err := store.LoadManifest()
	require.NoError(t, err)
	assert.NotEmpty(t, manifest.RunID, "Manifest should carry a run ID")
	assert.Equal(t, ToolName, manifest.Tool)
	assert.Equal(t, ToolVersion, manifest.Version)
	assert.Equal(t, int64(42), manifest.Seed)
	assert.NotEmpty(t, manifest.CreatedAt)
}

func TestOpen(t *testing.T) {
	t.Run("existing directory", func(t *testing.T) {
		dir := t.TempDir()
		store, err := Open(dir)
		require.NoError(t, err)
		assert.Equal(t, dir, store.Dir())
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := Open(filepath.Join(t.TempDir(), "nope"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nope")
	})

	t.Run("path is a file", func(t *testing.T) {
		dir := t.TempDir()
		file := filepath.Join(dir, "plain")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

		_, err := Open(file)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a directory")
	})
}

func TestStore_SaveLoadRoundtrip(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	endpoints := []*models.Endpoint{
		{
			Method:        "GET",
			TemplatedPath: "/api/users/{id:int}",
			SourceURL:     "https://app.example.com/api/users/123",
			Parameters: models.Parameters{
				Path:  map[string][]string{"param_2": {"123", "456"}},
				Query: map[string][]string{},
				Body:  map[string][]string{},
			},
			ObservedIDs: map[string][]any{"param_2": {"123", "456"}},
		},
	}
	require.NoError(t, store.SaveEndpoints(endpoints))

	loaded, err := store.LoadEndpoints()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "/api/users/{id:int}", loaded[0].TemplatedPath)
	assert.Equal(t, []string{"123", "456"}, loaded[0].Parameters.Path["param_2"])
}

func TestStore_JSONFormat(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	tests := []*models.TestCase{
		{
			TestID:   "idor_api_users_id_int_0",
			TestType: models.TestTypeIDOR,
			Method:   "GET",
			URL:      "https://app.example.com/api/users/456?next=/home&x=<y>",
			Headers:  map[string]string{},
		},
	}
	require.NoError(t, store.SaveTests(tests))

	raw, err := os.ReadFile(store.Path(TestsFile))
	require.NoError(t, err)
	content := string(raw)

	assert.True(t, strings.HasPrefix(content, "[\n  {"), "Artifact should be two-space indented")
	assert.Contains(t, content, "<y>", "HTML escaping must be off")
	assert.NotContains(t, content, `\u003c`, "HTML escaping must be off")
}

func TestStore_LoadMissingArtifact(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	_, err = store.LoadTests()
	require.Error(t, err)
	assert.Contains(t, err.Error(), TestsFile, "Error should name the missing file")
}

func TestStore_LoadMalformedArtifact(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, FindingsFile), []byte("{not json"), 0o644))

	_, err = store.LoadFindings()
	require.Error(t, err)
	assert.Contains(t, err.Error(), FindingsFile)
}

func TestStore_WriteText(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.WriteText(ReportMarkdown, "# surfacerecon Vulnerability Report\n"))

	raw, err := os.ReadFile(store.Path(ReportMarkdown))
	require.NoError(t, err)
	assert.Equal(t, "# surfacerecon Vulnerability Report\n", string(raw))

	// Перезапись атомарна и не оставляет temp-файлов
	require.NoError(t, store.WriteText(ReportMarkdown, "updated\n"))
	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-", "No temp files should remain")
	}
}

func TestStore_Has(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	assert.False(t, store.Has(ResultsFile))
	require.NoError(t, store.SaveResults([]*models.TestResult{}))
	assert.True(t, store.Has(ResultsFile))
}
