package orchestrator_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanledger/scanledger/internal/config"
	"github.com/scanledger/scanledger/internal/orchestrator"
	"github.com/scanledger/scanledger/pkg/scanledgerapi"
)

func fixedNow() time.Time {
	return time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
}

func testConfig(t *testing.T, root string) *config.Config {
	t.Helper()

	return &config.Config{
		Source: config.SourceConfig{Input: root},
		Bundle: config.BundleConfig{
			Presets:        config.ClosedPresets,
			MaxBundleBytes: config.DefaultMaxBundleBytes,
			MaxBundleLines: config.DefaultMaxBundleLines,
		},
		Graph: config.GraphConfig{Enabled: true, Scope: "full", Diff: true},
		Diagram: config.DiagramConfig{
			Enabled: true,
			Presets: config.ClosedDiagramPresets,
			Formats: []string{"mermaid"},
			Theme:   "auto",
		},
		Cache:     config.CacheConfig{Directory: filepath.Join(t.TempDir(), "cache")},
		Retention: config.RetentionConfig{KeepCount: config.DefaultRetentionCount},
		Logging:   config.LoggingConfig{Level: "info", Format: "json"},
	}
}

func runOpts(runsRoot string) orchestrator.Options {
	return orchestrator.Options{Now: fixedNow, RunsRoot: runsRoot}
}

func TestRun_EmptyTree(t *testing.T) {
	root := t.TempDir()
	runsRoot := t.TempDir()

	cfg := testConfig(t, root)

	outcome, err := orchestrator.Run(context.Background(), cfg, runOpts(runsRoot))
	require.NoError(t, err)
	require.NotNil(t, outcome)

	assert.Equal(t, orchestrator.ExitSuccess, outcome.ExitCode)
	assert.Empty(t, outcome.Manifest.FileRecords)
	assert.DirExists(t, filepath.Join(outcome.RunDir, "graphs"))

	graphBytes, err := os.ReadFile(filepath.Join(outcome.RunDir, "graphs", "knowledge_graph.json"))
	require.NoError(t, err)
	assert.Contains(t, string(graphBytes), "run")
}

func TestRun_SingleFileDeterministic(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main\n\nfunc main() {}\n"), 0o644))

	runsRootA := t.TempDir()
	cfgA := testConfig(t, root)
	outcomeA, err := orchestrator.Run(context.Background(), cfgA, runOpts(runsRootA))
	require.NoError(t, err)

	runsRootB := t.TempDir()
	cfgB := testConfig(t, root)
	outcomeB, err := orchestrator.Run(context.Background(), cfgB, runOpts(runsRootB))
	require.NoError(t, err)

	manifestA, err := os.ReadFile(filepath.Join(outcomeA.RunDir, "manifests", "manifest.json"))
	require.NoError(t, err)

	manifestB, err := os.ReadFile(filepath.Join(outcomeB.RunDir, "manifests", "manifest.json"))
	require.NoError(t, err)

	var docA, docB map[string]any
	require.NoError(t, json.Unmarshal(manifestA, &docA))
	require.NoError(t, json.Unmarshal(manifestB, &docB))

	assert.Equal(t, docA["file_records"], docB["file_records"])
	assert.Equal(t, docA["resolved_config_digest"], docB["resolved_config_digest"])

	bundleA, err := os.ReadFile(filepath.Join(outcomeA.RunDir, "bundles", "all-1.txt"))
	require.NoError(t, err)

	bundleB, err := os.ReadFile(filepath.Join(outcomeB.RunDir, "bundles", "all-1.txt"))
	require.NoError(t, err)

	assert.Equal(t, bundleA, bundleB)
}

func TestRun_GateFailureSetsExitCode(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main\n"), 0o644))

	runsRoot := t.TempDir()
	cfg := testConfig(t, root)

	minCoverage := 95.0
	cfg.Gate = config.GateConfig{MinCoverage: &minCoverage}

	opts := runOpts(runsRoot)
	opts.Metrics = scanledgerapi.NormalizedMetrics{
		Coverage: &scanledgerapi.CoverageMetrics{LinePercent: 10, Files: []scanledgerapi.CoverageFile{}},
	}

	outcome, err := orchestrator.Run(context.Background(), cfg, opts)
	require.NoError(t, err)

	assert.Equal(t, orchestrator.ExitGateFailure, outcome.ExitCode)
	assert.Equal(t, "fail", string(outcome.GateReport.Verdict))
}

func TestRun_MalformedMetricsSourceSkipped(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main\n"), 0o644))

	runsRoot := t.TempDir()
	cfg := testConfig(t, root)

	maxFailed := 0
	cfg.Gate = config.GateConfig{MaxFailedTests: &maxFailed}

	opts := runOpts(runsRoot)
	opts.Metrics = scanledgerapi.NormalizedMetrics{
		Coverage: &scanledgerapi.CoverageMetrics{LinePercent: -5, Files: []scanledgerapi.CoverageFile{}},
		Tests:    &scanledgerapi.TestsMetrics{Total: 10, Passed: 10, Failed: 0, Skipped: 0},
	}

	outcome, err := orchestrator.Run(context.Background(), cfg, opts)
	require.NoError(t, err)

	foundDiagnostic := false

	for _, d := range outcome.Manifest.Diagnostics {
		if d.Code == "metrics.format_error" {
			foundDiagnostic = true
		}
	}

	assert.True(t, foundDiagnostic, "malformed coverage section should be recorded as a diagnostic")

	for _, c := range outcome.GateReport.Checks {
		assert.NotContains(t, c.Reason, "coverage", "coverage gate should not be evaluated once its source is skipped")
	}
}

func TestRun_InputErrorOnMissingRoot(t *testing.T) {
	cfg := testConfig(t, filepath.Join(t.TempDir(), "does-not-exist"))

	outcome, err := orchestrator.Run(context.Background(), cfg, runOpts(t.TempDir()))
	require.Error(t, err)
	assert.Nil(t, outcome)

	var inputErr *orchestrator.InputError
	assert.ErrorAs(t, err, &inputErr)
}

func TestRun_NilConfigIsConfigError(t *testing.T) {
	outcome, err := orchestrator.Run(context.Background(), nil, runOpts(t.TempDir()))
	require.Error(t, err)
	assert.Nil(t, outcome)

	var cfgErr *orchestrator.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestRun_RetentionPruning(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main\n"), 0o644))

	runsRoot := t.TempDir()
	cfg := testConfig(t, root)
	cfg.Retention.KeepCount = 1

	clock := fixedNow()

	for i := 0; i < 3; i++ {
		current := clock
		opts := orchestrator.Options{RunsRoot: runsRoot, Now: func() time.Time { return current }}

		_, err := orchestrator.Run(context.Background(), cfg, opts)
		require.NoError(t, err)

		clock = clock.Add(time.Minute)
	}

	entries, err := os.ReadDir(runsRoot)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
