package depparse

import (
	"encoding/json"
	"fmt"
)

type packageJSONDoc struct {
	Dependencies         map[string]string `json:"dependencies"`
	DevDependencies      map[string]string `json:"devDependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
	PeerDependencies     map[string]string `json:"peerDependencies"`
}

func parsePackageJSON(canonicalPath string, content []byte) ([]Event, error) {
	var doc packageJSONDoc

	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal package.json: %w", err)
	}

	module := OwningModule(canonicalPath)

	var events []Event

	emit := func(deps map[string]string, scope Scope) {
		for name, version := range deps {
			events = append(events, Event{
				Package:      CanonicalizeName(name),
				VersionSpec:  version,
				Scope:        scope,
				OwningModule: module,
				SourcePath:   canonicalPath,
			})
		}
	}

	emit(doc.Dependencies, ScopeRuntime)
	emit(doc.DevDependencies, ScopeDev)
	emit(doc.OptionalDependencies, ScopeOptional)
	emit(doc.PeerDependencies, ScopeRuntime)

	return events, nil
}
