package depparse

import (
	"bufio"
	"bytes"
	"strings"
)

// parseGoMod hand-parses the `require` directives of a go.mod file. It
// deliberately avoids a general-purpose TOML/INI-style library: go.mod's
// grammar is a small, line-oriented, whitespace-delimited format with no
// nesting beyond a single `require ( ... )` block, and no library in the
// example corpus addresses it specifically (golang.org/x/mod/modfile is
// not a dependency any pack repo carries).
func parseGoMod(canonicalPath string, content []byte) ([]Event, error) {
	module := OwningModule(canonicalPath)

	var events []Event

	scanner := bufio.NewScanner(bytes.NewReader(content))

	inRequireBlock := false

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}

		switch {
		case strings.HasPrefix(line, "require ("):
			inRequireBlock = true

			continue
		case inRequireBlock && line == ")":
			inRequireBlock = false

			continue
		case strings.HasPrefix(line, "require ") && !strings.HasSuffix(strings.TrimSpace(line), "("):
			line = strings.TrimSpace(strings.TrimPrefix(line, "require"))
		case !inRequireBlock:
			continue
		}

		if ev, ok := parseGoModRequireLine(line, module, canonicalPath); ok {
			events = append(events, ev)
		}
	}

	return events, nil
}

func parseGoModRequireLine(line, module, canonicalPath string) (Event, bool) {
	line = strings.TrimSuffix(line, "// indirect")
	line = strings.TrimSpace(line)

	fields := strings.Fields(line)
	if len(fields) < 2 {
		return Event{}, false
	}

	return Event{
		Package:      CanonicalizeName(fields[0]),
		VersionSpec:  fields[1],
		Scope:        ScopeRuntime,
		OwningModule: module,
		SourcePath:   canonicalPath,
	}, true
}
