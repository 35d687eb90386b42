package cli

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BetterCallFirewall/surfacerecon/internal/config"
	"github.com/BetterCallFirewall/surfacerecon/internal/limits"
	"github.com/BetterCallFirewall/surfacerecon/internal/scenario"
)

func replayFlagsCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "run"}
	defaults := limits.DefaultPipelineLimits()
	cmd.Flags().Int("concurrency", defaults.Concurrency, "")
	cmd.Flags().Float64("rate", defaults.RequestsPerSecond, "")
	require.NoError(t, cmd.Flags().Parse(args))
	return cmd
}

func TestApplyReplayConfig(t *testing.T) {
	cfg = &config.Config{Replay: config.ReplayConfig{Concurrency: 9, RequestsPerSecond: 7.5}}
	t.Cleanup(func() { cfg = nil })

	t.Run("environment defaults apply without flags", func(t *testing.T) {
		cmd := replayFlagsCmd(t)
		pl := limits.DefaultPipelineLimits()
		applyReplayConfig(cmd, pl)
		assert.Equal(t, 9, pl.Concurrency)
		assert.Equal(t, 7.5, pl.RequestsPerSecond)
	})

	t.Run("explicit flags win over environment", func(t *testing.T) {
		cmd := replayFlagsCmd(t, "--concurrency", "3", "--rate", "1.5")
		pl := limits.DefaultPipelineLimits()
		pl.Concurrency = 3
		pl.RequestsPerSecond = 1.5
		applyReplayConfig(cmd, pl)
		assert.Equal(t, 3, pl.Concurrency)
		assert.Equal(t, 1.5, pl.RequestsPerSecond)
	})

	t.Run("partial flags mix both sources", func(t *testing.T) {
		cmd := replayFlagsCmd(t, "--concurrency", "3")
		pl := limits.DefaultPipelineLimits()
		pl.Concurrency = 3
		applyReplayConfig(cmd, pl)
		assert.Equal(t, 3, pl.Concurrency)
		assert.Equal(t, 7.5, pl.RequestsPerSecond)
	})
}

func TestOpenStoreWithSeed_DefaultDirectory(t *testing.T) {
	t.Chdir(t.TempDir())
	logger = zerolog.Nop()
	scenarioDir = ""

	store, err := openStoreWithSeed(42)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(store.Dir(), defaultScenarioRoot),
		"fresh scenario lands under %s, got %s", defaultScenarioRoot, store.Dir())

	manifest, err := store.LoadManifest()
	require.NoError(t, err)
	assert.Equal(t, int64(42), manifest.Seed)
	assert.NotEmpty(t, manifest.RunID)
}

func TestOpenStoreWithSeed_ExplicitDirectory(t *testing.T) {
	dir := t.TempDir()
	scenarioDir = dir
	t.Cleanup(func() { scenarioDir = "" })

	store, err := openStoreWithSeed(1)
	require.NoError(t, err)
	assert.Equal(t, dir, store.Dir())
	assert.False(t, store.Has(scenario.ManifestFile),
		"attaching to an existing directory must not rewrite its manifest")
}
