package metrics

import "fmt"

// Thresholds is the set of configurable gate thresholds spec.md §4.11
// names. A nil field means that threshold is not evaluated and therefore
// cannot affect the overall verdict.
type Thresholds struct {
	MinCoverage                *float64
	MaxFailedTests             *int
	MaxLintWarnings            *int
	MaxCriticalVulnerabilities *int
}

// Verdict is a gate check's pass/fail outcome.
type Verdict string

const (
	VerdictPass Verdict = "pass"
	VerdictFail Verdict = "fail"
)

// Check is one threshold's evaluated outcome.
type Check struct {
	Name    string
	Actual  string
	Verdict Verdict
	Reason  string
}

// Report is the full gate evaluation result. Overall verdict is pass iff
// every evaluated threshold passes; absent thresholds do not affect it.
type Report struct {
	Checks  []Check
	Verdict Verdict
}

// EvaluateGates runs every configured threshold in t against b.
func EvaluateGates(b Bundle, t Thresholds) Report {
	var checks []Check

	if t.MinCoverage != nil {
		checks = append(checks, evaluateMinCoverage(b, *t.MinCoverage))
	}

	if t.MaxFailedTests != nil {
		checks = append(checks, evaluateMaxFailedTests(b, *t.MaxFailedTests))
	}

	if t.MaxLintWarnings != nil {
		checks = append(checks, evaluateMaxLintWarnings(b, *t.MaxLintWarnings))
	}

	if t.MaxCriticalVulnerabilities != nil {
		checks = append(checks, evaluateMaxCriticalVulnerabilities(b, *t.MaxCriticalVulnerabilities))
	}

	overall := VerdictPass

	for _, c := range checks {
		if c.Verdict == VerdictFail {
			overall = VerdictFail

			break
		}
	}

	return Report{Checks: checks, Verdict: overall}
}

func evaluateMinCoverage(b Bundle, min float64) Check {
	actual := 0.0
	if b.Coverage != nil {
		actual = b.Coverage.LinePercent
	}

	check := Check{Name: "min_coverage", Actual: fmt.Sprintf("%.2f%%", actual)}

	if actual >= min {
		check.Verdict = VerdictPass
		check.Reason = fmt.Sprintf("line coverage %.2f%% meets minimum %.2f%%", actual, min)
	} else {
		check.Verdict = VerdictFail
		check.Reason = fmt.Sprintf("line coverage %.2f%% below minimum %.2f%%", actual, min)
	}

	return check
}

func evaluateMaxFailedTests(b Bundle, max int) Check {
	actual := 0
	if b.Tests != nil {
		actual = b.Tests.Failed
	}

	check := Check{Name: "max_failed_tests", Actual: fmt.Sprintf("%d", actual)}

	if actual <= max {
		check.Verdict = VerdictPass
		check.Reason = fmt.Sprintf("%d failed test(s) within limit %d", actual, max)
	} else {
		check.Verdict = VerdictFail
		check.Reason = fmt.Sprintf("%d failed test(s) exceeds limit %d", actual, max)
	}

	return check
}

func evaluateMaxLintWarnings(b Bundle, max int) Check {
	actual := 0

	if b.Lint != nil {
		for _, issue := range b.Lint.Issues {
			if issue.Severity == "warning" {
				actual++
			}
		}
	}

	check := Check{Name: "max_lint_warnings", Actual: fmt.Sprintf("%d", actual)}

	if actual <= max {
		check.Verdict = VerdictPass
		check.Reason = fmt.Sprintf("%d warning-severity lint issue(s) within limit %d", actual, max)
	} else {
		check.Verdict = VerdictFail
		check.Reason = fmt.Sprintf("%d warning-severity lint issue(s) exceeds limit %d", actual, max)
	}

	return check
}

func evaluateMaxCriticalVulnerabilities(b Bundle, max int) Check {
	actual := 0

	if b.Security != nil {
		for _, issue := range b.Security.Issues {
			if issue.Severity == "critical" {
				actual++
			}
		}
	}

	check := Check{Name: "max_critical_vulnerabilities", Actual: fmt.Sprintf("%d", actual)}

	if actual <= max {
		check.Verdict = VerdictPass
		check.Reason = fmt.Sprintf("%d critical vulnerabilit(y/ies) within limit %d", actual, max)
	} else {
		check.Verdict = VerdictFail
		check.Reason = fmt.Sprintf("%d critical vulnerabilit(y/ies) exceeds limit %d", actual, max)
	}

	return check
}
