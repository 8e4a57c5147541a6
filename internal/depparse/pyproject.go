package depparse

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

type pyprojectDoc struct {
	Project struct {
		Dependencies         []string            `toml:"dependencies"`
		OptionalDependencies map[string][]string `toml:"optional-dependencies"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Dependencies    map[string]any `toml:"dependencies"`
			DevDependencies map[string]any `toml:"dev-dependencies"`
			Group           map[string]struct {
				Dependencies map[string]any `toml:"dependencies"`
			} `toml:"group"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

var pep508Spec = regexp.MustCompile(`^([A-Za-z0-9_.\-]+)\s*(\[[^\]]*\])?\s*(.*)$`)

func parsePyprojectToml(canonicalPath string, content []byte) ([]Event, error) {
	var doc pyprojectDoc

	if err := toml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal pyproject.toml: %w", err)
	}

	module := OwningModule(canonicalPath)

	var events []Event

	for _, dep := range doc.Project.Dependencies {
		events = append(events, pep508Event(dep, ScopeRuntime, module, canonicalPath))
	}

	for group, deps := range doc.Project.OptionalDependencies {
		scope := ScopeOptional
		if strings.EqualFold(group, "dev") || strings.EqualFold(group, "test") {
			scope = ScopeDev
		}

		for _, dep := range deps {
			events = append(events, pep508Event(dep, scope, module, canonicalPath))
		}
	}

	for name, spec := range doc.Tool.Poetry.Dependencies {
		if strings.EqualFold(name, "python") {
			continue
		}

		events = append(events, poetryEvent(name, spec, ScopeRuntime, module, canonicalPath))
	}

	for name, spec := range doc.Tool.Poetry.DevDependencies {
		events = append(events, poetryEvent(name, spec, ScopeDev, module, canonicalPath))
	}

	for _, group := range doc.Tool.Poetry.Group {
		for name, spec := range group.Dependencies {
			events = append(events, poetryEvent(name, spec, ScopeDev, module, canonicalPath))
		}
	}

	return events, nil
}

// pep508Event parses a PEP 508 dependency specifier string such as
// "requests>=2.0" or "requests[security]>=2.0".
func pep508Event(spec string, scope Scope, module, sourcePath string) Event {
	m := pep508Spec.FindStringSubmatch(strings.TrimSpace(spec))

	name := strings.TrimSpace(spec)
	versionSpec := ""

	if m != nil {
		name = m[1]
		versionSpec = strings.TrimSpace(m[3])
	}

	return Event{
		Package:      CanonicalizeName(name),
		VersionSpec:  versionSpec,
		Scope:        scope,
		OwningModule: module,
		SourcePath:   sourcePath,
	}
}

// poetryEvent handles Poetry's dependency value shape, which is either a
// bare version string or a table with a "version" key.
func poetryEvent(name string, spec any, scope Scope, module, sourcePath string) Event {
	versionSpec := ""

	switch v := spec.(type) {
	case string:
		versionSpec = v
	case map[string]any:
		if ver, ok := v["version"].(string); ok {
			versionSpec = ver
		}
	}

	return Event{
		Package:      CanonicalizeName(name),
		VersionSpec:  versionSpec,
		Scope:        scope,
		OwningModule: module,
		SourcePath:   sourcePath,
	}
}
