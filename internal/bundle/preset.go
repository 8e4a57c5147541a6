// Package bundle implements scanledger's deterministic bundle builder
// (spec.md §4.4): size/line-bounded context packages with stable
// ordering, rich per-unit headers, and a sidecar index.
package bundle

import (
	"path/filepath"
	"strings"

	"github.com/scanledger/scanledger/pkg/scanledgerapi"
)

// Preset is the closed set of bundle presets.
type Preset string

const (
	PresetAll          Preset = "all"
	PresetAPI          Preset = "api"
	PresetTests        Preset = "tests"
	PresetDependencies Preset = "dependencies"
)

// ClosedPresets enumerates every valid Preset, used by config validation.
var ClosedPresets = []Preset{PresetAll, PresetAPI, PresetTests, PresetDependencies}

// dependencyManifestNames is the allow-listed set of manifest basenames
// the "dependencies" preset recognizes. The orchestrator hands a file to
// the dependency parser only if its basename is in this set, and the
// parser itself handles only some of these names.
// Kept in this package (rather than only in internal/depparse) so a
// bundle can be built without requiring the dependency parser to have
// run first.
var dependencyManifestNames = map[string]bool{
	"go.mod":           true,
	"go.sum":           true,
	"package.json":     true,
	"package-lock.json": true,
	"requirements.txt": true,
	"Pipfile":          true,
	"pyproject.toml":   true,
	"poetry.lock":      true,
	"Cargo.toml":       true,
	"Cargo.lock":       true,
	"pom.xml":          true,
	"build.gradle":     true,
	"build.gradle.kts": true,
	"Gemfile":          true,
	"Gemfile.lock":     true,
	"composer.json":    true,
}

// IsDependencyManifest reports whether canonicalPath's basename is a
// recognized dependency manifest file.
func IsDependencyManifest(canonicalPath string) bool {
	return dependencyManifestNames[filepath.Base(canonicalPath)]
}

// IsTestPath reports whether canonicalPath looks like a test file, using
// common per-language test-file naming conventions only (no content
// inspection — consistent with the walker's no-content-sniffing rule).
func IsTestPath(canonicalPath string) bool {
	base := filepath.Base(canonicalPath)
	lower := strings.ToLower(base)
	lowerFull := strings.ToLower(canonicalPath)

	switch {
	case strings.HasSuffix(lower, "_test.go"):
		return true
	case strings.HasPrefix(lower, "test_") && strings.HasSuffix(lower, ".py"):
		return true
	case strings.HasSuffix(lower, "_test.py"):
		return true
	case strings.HasSuffix(lower, ".test.js"), strings.HasSuffix(lower, ".test.ts"),
		strings.HasSuffix(lower, ".test.jsx"), strings.HasSuffix(lower, ".test.tsx"):
		return true
	case strings.HasSuffix(lower, ".spec.js"), strings.HasSuffix(lower, ".spec.ts"):
		return true
	default:
		return strings.Contains(lowerFull, "/test/") || strings.HasPrefix(lowerFull, "test/")
	}
}

// Predicate reports whether a FileRecord belongs in a given preset's
// bundle.
func Predicate(preset Preset, rec scanledgerapi.FileRecord) bool {
	switch preset {
	case PresetAll:
		return true
	case PresetAPI:
		return rec.Language != "unknown" && !IsTestPath(rec.CanonicalPath) &&
			!IsDependencyManifest(rec.CanonicalPath)
	case PresetTests:
		return IsTestPath(rec.CanonicalPath)
	case PresetDependencies:
		return IsDependencyManifest(rec.CanonicalPath)
	default:
		return false
	}
}
