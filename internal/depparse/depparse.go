// Package depparse implements scanledger's dependency parser (spec.md
// §4.6): a small set of allow-listed manifest parsers producing
// DependencyEvent values, associated with their nearest containing
// module directory.
package depparse

import (
	"bufio"
	"bytes"
	"fmt"
	"path"
	"regexp"
	"strings"
)

// Scope is the closed set of dependency scopes.
type Scope string

const (
	ScopeRuntime  Scope = "runtime"
	ScopeDev      Scope = "dev"
	ScopeOptional Scope = "optional"
)

// Event is one observed dependency declaration.
type Event struct {
	Package       string `json:"package"`
	VersionSpec   string `json:"version_spec,omitempty"`
	Scope         Scope  `json:"scope"`
	OwningModule  string `json:"owning_module"`
	SourcePath    string `json:"source_path"`
}

// canonicalizeRun collapses runs of '-', '_', '.' into a single '-',
// matching PEP 503's package-name normalization rule referenced by
// spec.md §4.6 ("PEP 503-like").
var canonicalizeRun = regexp.MustCompile(`[-_.]+`)

// CanonicalizeName lowercases name and collapses separator runs.
func CanonicalizeName(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))

	return canonicalizeRun.ReplaceAllString(lower, "-")
}

// OwningModule returns the nearest containing directory of canonicalPath,
// used as the module a dependency declaration is associated with.
func OwningModule(canonicalPath string) string {
	dir := path.Dir(canonicalPath)
	if dir == "." {
		return ""
	}

	return dir
}

// Parse dispatches to the parser registered for filepath's basename. It
// returns (nil, false, nil) for files outside the allow-list.
func Parse(canonicalPath string, content []byte) ([]Event, bool, error) {
	base := path.Base(canonicalPath)

	parser, ok := parsersByName[base]
	if !ok {
		return nil, false, nil
	}

	events, err := parser(canonicalPath, content)
	if err != nil {
		return nil, true, fmt.Errorf("parse %s: %w", canonicalPath, err)
	}

	return events, true, nil
}

type parseFunc func(canonicalPath string, content []byte) ([]Event, error)

var parsersByName = map[string]parseFunc{
	"requirements.txt": parseRequirementsTxt,
	"requirements-dev.txt": func(p string, c []byte) ([]Event, error) {
		return parseRequirementsScoped(p, c, ScopeDev)
	},
	"pyproject.toml": parsePyprojectToml,
	"package.json":   parsePackageJSON,
	"go.mod":         parseGoMod,
}

var requirementLine = regexp.MustCompile(`^([A-Za-z0-9_.\-]+)\s*(==|>=|<=|~=|!=|>|<)?\s*([A-Za-z0-9.\-*]*)`)

func parseRequirementsTxt(p string, content []byte) ([]Event, error) {
	return parseRequirementsScoped(p, content, ScopeRuntime)
}

func parseRequirementsScoped(canonicalPath string, content []byte, scope Scope) ([]Event, error) {
	module := OwningModule(canonicalPath)

	var events []Event

	scanner := bufio.NewScanner(bytes.NewReader(content))

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}

		m := requirementLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		events = append(events, Event{
			Package:      CanonicalizeName(m[1]),
			VersionSpec:  strings.TrimSpace(m[2] + m[3]),
			Scope:        scope,
			OwningModule: module,
			SourcePath:   canonicalPath,
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan requirements file: %w", err)
	}

	return events, nil
}
