package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/scanledger/scanledger/pkg/scanledgerapi"
)

// ChangedNode pairs a node ID with its previous and current attribute/
// provenance snapshots, for nodes present in both graphs but differing.
type ChangedNode struct {
	ID       string         `json:"id"`
	Previous jsonLDNode     `json:"previous"`
	Current  jsonLDNode     `json:"current"`
}

// Diff is the result of comparing a prior graph snapshot against the
// current graph (spec.md §4.9).
type Diff struct {
	AddedNodes   []string      `json:"added_nodes"`
	RemovedNodes []string      `json:"removed_nodes"`
	ChangedNodes []ChangedNode `json:"changed_nodes"`
	AddedEdges   []string      `json:"added_edges"`
	RemovedEdges []string      `json:"removed_edges"`
}

// Compare diffs the previous run's decoded JSON-LD document against the
// current in-memory graph. changed_nodes triggers when a node ID exists in
// both but its attributes or provenance differ.
func Compare(previous *jsonLDDocument, current *Graph) Diff {
	prevNodes := make(map[string]jsonLDNode, len(previous.Nodes))
	for _, n := range previous.Nodes {
		prevNodes[n.ID] = n
	}

	prevEdges := make(map[string]jsonLDRelationship, len(previous.Relationships))
	for _, r := range previous.Relationships {
		prevEdges[r.ID] = r
	}

	var diff Diff

	currNodeIDs := make(map[string]bool)

	for _, n := range current.SortedNodes() {
		currNodeIDs[n.ID] = true

		prev, existed := prevNodes[n.ID]
		if !existed {
			diff.AddedNodes = append(diff.AddedNodes, n.ID)

			continue
		}

		curr := toJSONLDNode(n)
		if !nodesEqual(prev, curr) {
			diff.ChangedNodes = append(diff.ChangedNodes, ChangedNode{ID: n.ID, Previous: prev, Current: curr})
		}
	}

	for id := range prevNodes {
		if !currNodeIDs[id] {
			diff.RemovedNodes = append(diff.RemovedNodes, id)
		}
	}

	currEdgeIDs := make(map[string]bool)

	for _, r := range current.SortedRelationships() {
		currEdgeIDs[r.ID] = true

		if _, existed := prevEdges[r.ID]; !existed {
			diff.AddedEdges = append(diff.AddedEdges, r.ID)
		}
	}

	for id := range prevEdges {
		if !currEdgeIDs[id] {
			diff.RemovedEdges = append(diff.RemovedEdges, id)
		}
	}

	sort.Strings(diff.AddedNodes)
	sort.Strings(diff.RemovedNodes)
	sort.Strings(diff.AddedEdges)
	sort.Strings(diff.RemovedEdges)
	sort.Slice(diff.ChangedNodes, func(i, j int) bool { return diff.ChangedNodes[i].ID < diff.ChangedNodes[j].ID })

	return diff
}

// DecodeJSONLD parses a previously serialized JSON-LD document, for use as
// Compare's "previous" snapshot.
func DecodeJSONLD(data []byte) (*jsonLDDocument, error) {
	var doc jsonLDDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode json-ld: %w", err)
	}

	return &doc, nil
}

func toJSONLDNode(n scanledgerapi.Node) jsonLDNode {
	provenance := make([]string, len(n.Provenance))
	copy(provenance, n.Provenance)
	sort.Strings(provenance)

	return jsonLDNode{
		ID:         n.ID,
		Kind:       string(n.Kind),
		Label:      n.Label,
		Attributes: n.Attributes,
		Provenance: provenance,
	}
}

func nodesEqual(a, b jsonLDNode) bool {
	aJSON, _ := json.Marshal(a)
	bJSON, _ := json.Marshal(b)

	return bytes.Equal(aJSON, bJSON)
}

// EncodeDiffJSON renders d as stable-keyed JSON.
func EncodeDiffJSON(d Diff) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	if err := enc.Encode(d); err != nil {
		return nil, fmt.Errorf("encode diff json: %w", err)
	}

	out := bytes.TrimRight(buf.Bytes(), "\n")
	out = append(out, '\n')

	return out, nil
}

// EncodeDiffMarkdown renders d as a human-readable summary grouped by
// kind. Empty sections render the literal placeholder "_none_" rather than
// being omitted, so the document's section structure is stable across
// diffs (spec.md §4.9).
func EncodeDiffMarkdown(d Diff) []byte {
	var buf bytes.Buffer

	buf.WriteString("# Graph diff\n\n")

	writeIDSection(&buf, "Added nodes", d.AddedNodes)
	writeIDSection(&buf, "Removed nodes", d.RemovedNodes)

	buf.WriteString("## Changed nodes\n\n")

	if len(d.ChangedNodes) == 0 {
		buf.WriteString("_none_\n\n")
	} else {
		dmp := diffmatchpatch.New()

		for _, cn := range d.ChangedNodes {
			prevJSON, _ := json.MarshalIndent(cn.Previous, "", "  ")
			currJSON, _ := json.MarshalIndent(cn.Current, "", "  ")

			diffs := dmp.DiffMain(string(prevJSON), string(currJSON), false)

			fmt.Fprintf(&buf, "### %s\n\n%s\n\n", cn.ID, dmp.DiffPrettyText(diffs))
		}
	}

	writeIDSection(&buf, "Added edges", d.AddedEdges)
	writeIDSection(&buf, "Removed edges", d.RemovedEdges)

	return buf.Bytes()
}

func writeIDSection(buf *bytes.Buffer, title string, ids []string) {
	fmt.Fprintf(buf, "## %s\n\n", title)

	if len(ids) == 0 {
		buf.WriteString("_none_\n\n")

		return
	}

	for _, id := range ids {
		fmt.Fprintf(buf, "- %s\n", id)
	}

	buf.WriteString("\n")
}
