// Package graph implements scanledger's knowledge graph builder,
// validator, serializer, and differ (spec.md §4.7–4.9).
package graph

import (
	"sort"

	"github.com/scanledger/scanledger/pkg/scanledgerapi"
)

// Graph is an in-memory knowledge graph for one run.
type Graph struct {
	Nodes         map[string]scanledgerapi.Node
	Relationships []scanledgerapi.Relationship
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{Nodes: make(map[string]scanledgerapi.Node)}
}

// AddNode inserts or replaces a node by ID.
func (g *Graph) AddNode(n scanledgerapi.Node) {
	g.Nodes[n.ID] = n
}

// AddRelationship appends a relationship. Duplicate (source, kind,
// target) triples are not deduplicated here — the builder is responsible
// for not emitting them twice.
func (g *Graph) AddRelationship(r scanledgerapi.Relationship) {
	g.Relationships = append(g.Relationships, r)
}

// SortedNodes returns nodes sorted by ID, per spec.md §4.8's serialization
// ordering rule.
func (g *Graph) SortedNodes() []scanledgerapi.Node {
	nodes := make([]scanledgerapi.Node, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		nodes = append(nodes, n)
	}

	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	return nodes
}

// SortedRelationships returns relationships sorted by
// (source_id, kind, target_id).
func (g *Graph) SortedRelationships() []scanledgerapi.Relationship {
	rels := make([]scanledgerapi.Relationship, len(g.Relationships))
	copy(rels, g.Relationships)

	sort.Slice(rels, func(i, j int) bool {
		a, b := rels[i], rels[j]
		if a.SourceID != b.SourceID {
			return a.SourceID < b.SourceID
		}

		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}

		return a.TargetID < b.TargetID
	})

	return rels
}
