package orchestrator

import (
	"github.com/scanledger/scanledger/internal/config"
	"github.com/scanledger/scanledger/internal/metrics"
	"github.com/scanledger/scanledger/pkg/scanledgerapi"
)

// validatedMetrics independently validates each section of m, so a single
// malformed section degrades gracefully instead of aborting every other
// section along with it. metrics.Validate returns on the first failing
// section rather than aggregating (internal/metrics/schema.go); this
// wrapper is what turns that into spec.md §7's MetricsFormatError policy:
// "that metric source is skipped ... run continues ... affected gates
// count as not evaluated".
func validatedMetrics(m scanledgerapi.NormalizedMetrics) (scanledgerapi.NormalizedMetrics, []scanledgerapi.Diagnostic) {
	var (
		clean       scanledgerapi.NormalizedMetrics
		diagnostics []scanledgerapi.Diagnostic
	)

	if m.Tests != nil {
		if err := metrics.Validate(scanledgerapi.NormalizedMetrics{Tests: m.Tests}); err == nil {
			clean.Tests = m.Tests
		} else {
			diagnostics = append(diagnostics, diagnosticFor("tests", err))
		}
	}

	if m.Coverage != nil {
		if err := metrics.Validate(scanledgerapi.NormalizedMetrics{Coverage: m.Coverage}); err == nil {
			clean.Coverage = m.Coverage
		} else {
			diagnostics = append(diagnostics, diagnosticFor("coverage", err))
		}
	}

	if m.Lint != nil {
		if err := metrics.Validate(scanledgerapi.NormalizedMetrics{Lint: m.Lint}); err == nil {
			clean.Lint = m.Lint
		} else {
			diagnostics = append(diagnostics, diagnosticFor("lint", err))
		}
	}

	if m.Security != nil {
		if err := metrics.Validate(scanledgerapi.NormalizedMetrics{Security: m.Security}); err == nil {
			clean.Security = m.Security
		} else {
			diagnostics = append(diagnostics, diagnosticFor("security", err))
		}
	}

	return clean, diagnostics
}

func diagnosticFor(source string, err error) scanledgerapi.Diagnostic {
	return scanledgerapi.Diagnostic{
		Code:    "metrics.format_error",
		Message: (&MetricsFormatError{Source: source, Err: err}).Error(),
	}
}

// thresholds projects the configured gate into metrics.Thresholds.
func thresholds(cfg config.GateConfig) metrics.Thresholds {
	return metrics.Thresholds{
		MinCoverage:                cfg.MinCoverage,
		MaxFailedTests:             cfg.MaxFailedTests,
		MaxLintWarnings:            cfg.MaxLintWarnings,
		MaxCriticalVulnerabilities: cfg.MaxCriticalVulns,
	}
}
