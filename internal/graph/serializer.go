package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/scanledger/scanledger/pkg/scanledgerapi"
)

// jsonLDContext is the fixed @context scanledger emits for every run; it
// names the vocabulary scanledger's own node/edge kinds belong to, not an
// externally hosted schema.
const jsonLDContext = "https://scanledger.dev/ns/graph/v1"

// jsonLDDocument is the exact shape spec.md §4.8 requires: nodes sorted by
// id, relationships sorted by (source_id, kind, target_id), all maps
// key-sorted (guaranteed here by encoding/json's alphabetical map-key
// ordering).
type jsonLDDocument struct {
	Context       string                `json:"@context"`
	Nodes         []jsonLDNode          `json:"nodes"`
	Relationships []jsonLDRelationship  `json:"relationships"`
}

type jsonLDNode struct {
	ID         string         `json:"id"`
	Kind       string         `json:"kind"`
	Label      string         `json:"label"`
	Attributes map[string]any `json:"attributes"`
	Provenance []string       `json:"provenance"`
}

type jsonLDRelationship struct {
	ID       string `json:"id"`
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
	Kind     string `json:"kind"`
}

// EncodeJSONLD renders g as a byte-stable JSON-LD document (UTF-8, LF,
// sorted keys, no trailing whitespace).
func EncodeJSONLD(g *Graph) ([]byte, error) {
	doc := jsonLDDocument{Context: jsonLDContext}

	for _, n := range g.SortedNodes() {
		provenance := make([]string, len(n.Provenance))
		copy(provenance, n.Provenance)
		sort.Strings(provenance)

		doc.Nodes = append(doc.Nodes, jsonLDNode{
			ID:         n.ID,
			Kind:       string(n.Kind),
			Label:      n.Label,
			Attributes: n.Attributes,
			Provenance: provenance,
		})
	}

	for _, r := range g.SortedRelationships() {
		doc.Relationships = append(doc.Relationships, jsonLDRelationship{
			ID:       r.ID,
			SourceID: r.SourceID,
			TargetID: r.TargetID,
			Kind:     string(r.Kind),
		})
	}

	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode json-ld: %w", err)
	}

	out := bytes.TrimRight(buf.Bytes(), "\n")
	out = append(out, '\n')

	return out, nil
}

// DecodeGraph reconstructs a *Graph from a previously encoded JSON-LD
// document, so the render command can re-run diagram/explain-card
// projection against a finalized run's knowledge graph without a
// rescan.
func DecodeGraph(data []byte) (*Graph, error) {
	doc, err := DecodeJSONLD(data)
	if err != nil {
		return nil, err
	}

	g := New()

	for _, n := range doc.Nodes {
		g.AddNode(scanledgerapi.Node{
			ID:         n.ID,
			Kind:       scanledgerapi.NodeKind(n.Kind),
			Label:      n.Label,
			Attributes: n.Attributes,
			Provenance: n.Provenance,
		})
	}

	for _, r := range doc.Relationships {
		g.AddRelationship(scanledgerapi.Relationship{
			ID:       r.ID,
			SourceID: r.SourceID,
			TargetID: r.TargetID,
			Kind:     scanledgerapi.RelKind(r.Kind),
		})
	}

	return g, nil
}
