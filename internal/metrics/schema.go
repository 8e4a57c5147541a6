// Package metrics implements scanledger's metrics aggregator facade
// (spec.md §4.11): schema validation of externally supplied metric
// records, a stable-keyed MetricsBundle, and gate threshold evaluation.
package metrics

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/scanledger/scanledger/pkg/scanledgerapi"
)

// testsSchema, coverageSchema, lintSchema, and securitySchema are the
// closed shapes spec.md §4.11 requires external adapters to produce.
// scanledger never parses foreign formats (JUnit XML, LCOV, Cobertura,
// SARIF) itself — these schemas only gate the normalized shape the
// orchestrator hands to this package.
const testsSchema = `{
  "type": "object",
  "required": ["total", "passed", "failed", "skipped", "duration_ms"],
  "properties": {
    "total": {"type": "integer", "minimum": 0},
    "passed": {"type": "integer", "minimum": 0},
    "failed": {"type": "integer", "minimum": 0},
    "skipped": {"type": "integer", "minimum": 0},
    "duration_ms": {"type": "integer", "minimum": 0}
  }
}`

const coverageSchema = `{
  "type": "object",
  "required": ["line_percent", "files"],
  "properties": {
    "line_percent": {"type": "number", "minimum": 0, "maximum": 100},
    "branch_percent": {"type": "number", "minimum": 0, "maximum": 100},
    "files": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["path", "covered_lines", "total_lines"],
        "properties": {
          "path": {"type": "string"},
          "covered_lines": {"type": "integer", "minimum": 0},
          "total_lines": {"type": "integer", "minimum": 0}
        }
      }
    }
  }
}`

const lintSchema = `{
  "type": "object",
  "required": ["issues"],
  "properties": {
    "issues": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["rule", "severity", "path", "line"],
        "properties": {
          "rule": {"type": "string"},
          "severity": {"type": "string"},
          "path": {"type": "string"},
          "line": {"type": "integer", "minimum": 0}
        }
      }
    }
  }
}`

const securitySchema = `{
  "type": "object",
  "required": ["issues"],
  "properties": {
    "issues": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "severity"],
        "properties": {
          "id": {"type": "string"},
          "severity": {"type": "string"},
          "package": {"type": "string"},
          "path": {"type": "string"}
        }
      }
    }
  }
}`

// SchemaValidationError wraps gojsonschema's validation result errors for
// one metric source.
type SchemaValidationError struct {
	Source string
	Errors []string
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("metrics: %s failed schema validation: %v", e.Source, e.Errors)
}

func validateAgainstSchema(source, schema string, value any) error {
	if value == nil {
		return nil
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s metrics: %w", source, err)
	}

	schemaLoader := gojsonschema.NewStringLoader(schema)
	docLoader := gojsonschema.NewBytesLoader(encoded)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return fmt.Errorf("validate %s metrics: %w", source, err)
	}

	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}

	return &SchemaValidationError{Source: source, Errors: msgs}
}

// Validate checks each populated section of m against its closed schema.
// Sections are optional (spec.md §4.11 consumes "already-parsed metric
// records" — not every run supplies every kind), so a nil section is
// skipped rather than validated as an empty object.
func Validate(m scanledgerapi.NormalizedMetrics) error {
	if m.Tests != nil {
		if err := validateAgainstSchema("tests", testsSchema, m.Tests); err != nil {
			return err
		}
	}

	if m.Coverage != nil {
		if err := validateAgainstSchema("coverage", coverageSchema, m.Coverage); err != nil {
			return err
		}
	}

	if m.Lint != nil {
		if err := validateAgainstSchema("lint", lintSchema, m.Lint); err != nil {
			return err
		}
	}

	if m.Security != nil {
		if err := validateAgainstSchema("security", securitySchema, m.Security); err != nil {
			return err
		}
	}

	return nil
}
