package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanledger/scanledger/internal/config"
	"github.com/scanledger/scanledger/pkg/scanledgerapi"
)

func TestConfigFingerprint_StableAndSensitiveToGateThresholds(t *testing.T) {
	base := &config.Config{Source: config.SourceConfig{Input: "."}}

	digestA := configFingerprint(base)
	digestB := configFingerprint(base)
	assert.Equal(t, digestA, digestB)

	minCoverage := 80.0
	changed := &config.Config{Source: config.SourceConfig{Input: "."}, Gate: config.GateConfig{MinCoverage: &minCoverage}}

	assert.NotEqual(t, digestA, configFingerprint(changed))
}

func TestEncodeStableJSON_NoTrailingBlankLineAndSortedKeys(t *testing.T) {
	encoded, err := encodeStableJSON(map[string]int{"b": 2, "a": 1})
	require.NoError(t, err)

	assert.Equal(t, "{\n  \"a\": 1,\n  \"b\": 2\n}\n", string(encoded))
}

func TestValidatedMetrics_IsolatesFailingSection(t *testing.T) {
	m := scanledgerapi.NormalizedMetrics{
		Tests:    &scanledgerapi.TestsMetrics{Total: 5, Passed: 5, Failed: 0, Skipped: 0},
		Coverage: &scanledgerapi.CoverageMetrics{LinePercent: -1, Files: []scanledgerapi.CoverageFile{}},
	}

	clean, diagnostics := validatedMetrics(m)

	require.NotNil(t, clean.Tests)
	assert.Nil(t, clean.Coverage)
	require.Len(t, diagnostics, 1)
	assert.Equal(t, "metrics.format_error", diagnostics[0].Code)
}

func TestThresholds_ProjectsGateConfig(t *testing.T) {
	minCoverage := 70.0
	maxFailed := 3

	got := thresholds(config.GateConfig{MinCoverage: &minCoverage, MaxFailedTests: &maxFailed})

	require.NotNil(t, got.MinCoverage)
	assert.Equal(t, 70.0, *got.MinCoverage)
	require.NotNil(t, got.MaxFailedTests)
	assert.Equal(t, 3, *got.MaxFailedTests)
	assert.Nil(t, got.MaxLintWarnings)
	assert.Nil(t, got.MaxCriticalVulnerabilities)
}

func TestWorkerCount_FallsBackToCoreCount(t *testing.T) {
	assert.Equal(t, 4, workerCount(4))
	assert.Greater(t, workerCount(0), 0)
}
