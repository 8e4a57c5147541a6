package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanledger/scanledger/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, config.ClosedPresets, cfg.Bundle.Presets)
	assert.Equal(t, int64(config.DefaultMaxBundleBytes), cfg.Bundle.MaxBundleBytes)
	assert.Equal(t, "full", cfg.Graph.Scope)
	assert.False(t, cfg.Privacy.AllowNetwork)
	assert.Equal(t, config.DefaultRetentionCount, cfg.Retention.KeepCount)
}

func TestLoad_UnknownPreset(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeConfig(t, dir, "bundle:\n  presets: [\"bogus\"]\n")

	_, err := config.Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrUnknownPreset)
}

func TestLoad_UnknownGraphScope(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeConfig(t, dir, "graph:\n  scope: \"everything\"\n")

	_, err := config.Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrUnknownGraphScope)
}

func TestLoad_InvalidBudget(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeConfig(t, dir, "bundle:\n  max_bundle_bytes: 0\n")

	_, err := config.Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrInvalidBudget)
}

func writeConfig(t *testing.T, dir, contents string) string {
	t.Helper()

	path := dir + "/scanledger.yaml"

	err := os.WriteFile(path, []byte(contents), 0o600)
	require.NoError(t, err)

	return path
}
