package diagram

import (
	"sort"

	"github.com/scanledger/scanledger/internal/digestid"
	"github.com/scanledger/scanledger/internal/graph"
	"github.com/scanledger/scanledger/pkg/scanledgerapi"
)

// Subgraph is the sorted node/edge projection a preset selects from the
// full knowledge graph, held as plain node and relationship slices rather
// than as a graph.Graph.
type Subgraph struct {
	Nodes         []scanledgerapi.Node
	Relationships []scanledgerapi.Relationship
}

// Project selects the nodes and relationships preset cares about, per
// spec.md §4.10:
//   - architecture: modules + files, contains edges between them
//   - dependencies: modules + dependencies, depends_on edges
//   - tests: tests + modules, tests edges
func Project(g *graph.Graph, preset Preset) (Subgraph, error) {
	if err := ValidatePreset(preset); err != nil {
		return Subgraph{}, err
	}

	var kinds map[scanledgerapi.NodeKind]bool

	var relKinds map[scanledgerapi.RelKind]bool

	switch preset {
	case PresetArchitecture:
		kinds = map[scanledgerapi.NodeKind]bool{scanledgerapi.NodeFile: true, scanledgerapi.NodeModule: true}
		relKinds = map[scanledgerapi.RelKind]bool{scanledgerapi.RelContains: true}
	case PresetDependencies:
		kinds = map[scanledgerapi.NodeKind]bool{scanledgerapi.NodeModule: true, scanledgerapi.NodeDependency: true}
		relKinds = map[scanledgerapi.RelKind]bool{scanledgerapi.RelDependsOn: true}
	case PresetTests:
		kinds = map[scanledgerapi.NodeKind]bool{scanledgerapi.NodeTest: true, scanledgerapi.NodeModule: true}
		relKinds = map[scanledgerapi.RelKind]bool{scanledgerapi.RelTests: true}
	}

	var sub Subgraph

	for _, n := range g.SortedNodes() {
		if kinds[n.Kind] {
			sub.Nodes = append(sub.Nodes, n)
		}
	}

	included := make(map[string]bool, len(sub.Nodes))
	for _, n := range sub.Nodes {
		included[n.ID] = true
	}

	for _, r := range g.SortedRelationships() {
		if relKinds[r.Kind] && included[r.SourceID] && included[r.TargetID] {
			sub.Relationships = append(sub.Relationships, r)
		}
	}

	return sub, nil
}

// Digest returns the deterministic digest of the subgraph's sorted
// projection, used as the subgraph_digest component of a diagram's cache
// key (spec.md §4.10).
func (s Subgraph) Digest() string {
	var ids []string

	for _, n := range s.Nodes {
		ids = append(ids, "n:"+n.ID)
	}

	for _, r := range s.Relationships {
		ids = append(ids, "e:"+r.ID)
	}

	sort.Strings(ids)

	h := ""
	for _, id := range ids {
		h += id + "\x1f"
	}

	return digestid.DigestBytes([]byte(h))
}
