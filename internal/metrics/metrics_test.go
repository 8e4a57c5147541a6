package metrics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanledger/scanledger/internal/metrics"
	"github.com/scanledger/scanledger/pkg/scanledgerapi"
)

func sampleMetrics() scanledgerapi.NormalizedMetrics {
	return scanledgerapi.NormalizedMetrics{
		Tests:    &scanledgerapi.TestsMetrics{Total: 10, Passed: 9, Failed: 1, Skipped: 0, DurationMS: 1200},
		Coverage: &scanledgerapi.CoverageMetrics{LinePercent: 82.5, Files: []scanledgerapi.CoverageFile{{Path: "a.go", CoveredLines: 8, TotalLines: 10}}},
		Lint:     &scanledgerapi.LintMetrics{Issues: []scanledgerapi.LintIssue{{Rule: "unused", Severity: "warning", Path: "a.go", Line: 3}}},
		Security: &scanledgerapi.SecurityMetrics{Issues: []scanledgerapi.SecurityIssue{{ID: "CVE-1", Severity: "critical", Package: "foo"}}},
	}
}

func TestValidate_AcceptsWellFormedMetrics(t *testing.T) {
	t.Parallel()

	assert.NoError(t, metrics.Validate(sampleMetrics()))
}

func TestValidate_EmptyMetricsAreValid(t *testing.T) {
	t.Parallel()

	assert.NoError(t, metrics.Validate(scanledgerapi.NormalizedMetrics{}))
}

func TestValidate_RejectsOutOfRangeCoverage(t *testing.T) {
	t.Parallel()

	m := scanledgerapi.NormalizedMetrics{Coverage: &scanledgerapi.CoverageMetrics{LinePercent: 150}}

	err := metrics.Validate(m)
	require.Error(t, err)

	var schemaErr *metrics.SchemaValidationError
	assert.ErrorAs(t, err, &schemaErr)
}

func TestNewBundle_ValidatesInput(t *testing.T) {
	t.Parallel()

	_, err := metrics.NewBundle(scanledgerapi.NormalizedMetrics{Coverage: &scanledgerapi.CoverageMetrics{LinePercent: -1}})
	assert.Error(t, err)
}

func TestBundle_Encode_IsByteStable(t *testing.T) {
	t.Parallel()

	b, err := metrics.NewBundle(sampleMetrics())
	require.NoError(t, err)

	out1, err := b.Encode()
	require.NoError(t, err)

	out2, err := b.Encode()
	require.NoError(t, err)

	assert.Equal(t, out1, out2)
}

func TestEvaluateGates_OverallPassWhenAllPass(t *testing.T) {
	t.Parallel()

	b, err := metrics.NewBundle(sampleMetrics())
	require.NoError(t, err)

	minCov := 80.0
	maxFailed := 5

	report := metrics.EvaluateGates(b, metrics.Thresholds{MinCoverage: &minCov, MaxFailedTests: &maxFailed})

	assert.Equal(t, metrics.VerdictPass, report.Verdict)
	assert.Len(t, report.Checks, 2)
}

func TestEvaluateGates_OverallFailWhenOneFails(t *testing.T) {
	t.Parallel()

	b, err := metrics.NewBundle(sampleMetrics())
	require.NoError(t, err)

	maxCritical := 0

	report := metrics.EvaluateGates(b, metrics.Thresholds{MaxCriticalVulnerabilities: &maxCritical})

	assert.Equal(t, metrics.VerdictFail, report.Verdict)
}

func TestEvaluateGates_AbsentThresholdsDoNotAffectVerdict(t *testing.T) {
	t.Parallel()

	b, err := metrics.NewBundle(sampleMetrics())
	require.NoError(t, err)

	report := metrics.EvaluateGates(b, metrics.Thresholds{})

	assert.Equal(t, metrics.VerdictPass, report.Verdict)
	assert.Empty(t, report.Checks)
}

func TestEvaluateGates_MaxLintWarningsCountsOnlyWarningSeverity(t *testing.T) {
	t.Parallel()

	m := scanledgerapi.NormalizedMetrics{
		Lint: &scanledgerapi.LintMetrics{Issues: []scanledgerapi.LintIssue{
			{Rule: "errcheck", Severity: "error", Path: "a.go", Line: 1},
			{Rule: "unused", Severity: "warning", Path: "a.go", Line: 2},
			{Rule: "unused", Severity: "warning", Path: "b.go", Line: 3},
			{Rule: "gofmt", Severity: "info", Path: "c.go", Line: 4},
		}},
	}

	b, err := metrics.NewBundle(m)
	require.NoError(t, err)

	maxWarnings := 1

	report := metrics.EvaluateGates(b, metrics.Thresholds{MaxLintWarnings: &maxWarnings})

	require.Len(t, report.Checks, 1)
	assert.Equal(t, "2", report.Checks[0].Actual)
	assert.Equal(t, metrics.VerdictFail, report.Checks[0].Verdict)
}

func TestRenderGateReport_ContainsThresholdNames(t *testing.T) {
	t.Parallel()

	b, err := metrics.NewBundle(sampleMetrics())
	require.NoError(t, err)

	maxFailed := 0
	report := metrics.EvaluateGates(b, metrics.Thresholds{MaxFailedTests: &maxFailed})

	out := metrics.RenderGateReport(report)
	assert.Contains(t, out, "max_failed_tests")
}
