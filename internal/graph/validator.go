package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/scanledger/scanledger/pkg/scanledgerapi"
)

// InvariantError reports one or more knowledge-graph invariant violations,
// naming the offending node/edge IDs (spec.md §4.7).
type InvariantError struct {
	Violations []string
}

func (e *InvariantError) Error() string {
	return "graph invariant violation: " + strings.Join(e.Violations, "; ")
}

// Validate checks the invariants spec.md §4.7 requires before
// serialization:
//   - every node has non-empty provenance,
//   - every edge endpoint exists,
//   - the contains sub-graph is a tree (single contains-parent per node,
//     and no contains-only cycle),
//   - no node is unreachable from "run" by any edge kind — dependency and
//     artifact nodes hang off depends_on/produces rather than contains, so
//     reachability is evaluated over the full edge set, not contains alone,
//   - no two nodes share an ID (guaranteed by the map representation, so
//     no separate check runs here).
func Validate(g *Graph) error {
	var violations []string

	for id, n := range g.Nodes {
		if len(n.Provenance) == 0 {
			violations = append(violations, fmt.Sprintf("node %s has empty provenance", id))
		}
	}

	// allChildren tracks every edge regardless of kind, used for the
	// run-reachability check: dependency and artifact nodes are only
	// attached via depends_on/produces, not contains, so a literal
	// contains-only walk would flag them as orphans even though they are
	// legitimately reachable. containsChildren/parentOf track the
	// contains-only subgraph separately, to verify it is itself a tree.
	allChildren := make(map[string][]string)
	containsChildren := make(map[string][]string)
	parentOf := make(map[string]string)

	for _, r := range g.Relationships {
		if _, ok := g.Nodes[r.SourceID]; !ok {
			violations = append(violations, fmt.Sprintf("edge %s references missing source %s", r.ID, r.SourceID))
		}

		if _, ok := g.Nodes[r.TargetID]; !ok {
			violations = append(violations, fmt.Sprintf("edge %s references missing target %s", r.ID, r.TargetID))
		}

		allChildren[r.SourceID] = append(allChildren[r.SourceID], r.TargetID)

		if r.Kind != scanledgerapi.RelContains {
			continue
		}

		if existing, ok := parentOf[r.TargetID]; ok && existing != r.SourceID {
			violations = append(violations, fmt.Sprintf(
				"node %s has multiple contains-parents: %s and %s", r.TargetID, existing, r.SourceID))

			continue
		}

		parentOf[r.TargetID] = r.SourceID
		containsChildren[r.SourceID] = append(containsChildren[r.SourceID], r.TargetID)
	}

	if cyc := findContainsCycle(containsChildren); len(cyc) > 0 {
		violations = append(violations, fmt.Sprintf("contains cycle: %s", strings.Join(cyc, "->")))
	}

	var root string

	for id, n := range g.Nodes {
		if n.Kind == scanledgerapi.NodeRun {
			root = id

			break
		}
	}

	if root == "" {
		violations = append(violations, "graph has no run root node")
	} else {
		reachable := map[string]bool{root: true}
		queue := []string{root}

		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]

			for _, child := range allChildren[cur] {
				if reachable[child] {
					continue
				}

				reachable[child] = true
				queue = append(queue, child)
			}
		}

		unreachable := make([]string, 0)

		for id := range g.Nodes {
			if !reachable[id] {
				unreachable = append(unreachable, id)
			}
		}

		if len(unreachable) > 0 {
			sort.Strings(unreachable)
			violations = append(violations, fmt.Sprintf(
				"%d node(s) unreachable from run: %s", len(unreachable), strings.Join(unreachable, ",")))
		}
	}

	if len(violations) == 0 {
		return nil
	}

	sort.Strings(violations)

	return &InvariantError{Violations: violations}
}

// findContainsCycle walks the contains-only subgraph depth-first and
// returns the first cycle it finds as an ordered chain of node IDs
// (the repeated node appears at both ends), or nil if none exists.
//
// The single-parent check in Validate rejects any node with two distinct
// contains-parents, but a cycle where every node has exactly one parent —
// e.g. A contains B, B contains C, C contains A — passes that check and
// still isn't a tree. Reachability-from-run doesn't catch it either when
// the cycle is itself reachable via some other edge kind. This walk is
// the explicit acyclicity check spec.md §4.7's "contains sub-graph is a
// tree" requires.
func findContainsCycle(children map[string][]string) []string {
	roots := make([]string, 0, len(children))
	for id := range children {
		roots = append(roots, id)
	}

	sort.Strings(roots)

	const (
		visiting = 1
		done     = 2
	)

	state := make(map[string]int)

	var path []string

	var walk func(id string) []string

	walk = func(id string) []string {
		state[id] = visiting
		path = append(path, id)

		kids := append([]string(nil), children[id]...)
		sort.Strings(kids)

		for _, child := range kids {
			switch state[child] {
			case visiting:
				cycle := append([]string(nil), path...)

				return append(cycle, child)
			case done:
				continue
			default:
				if cyc := walk(child); cyc != nil {
					return cyc
				}
			}
		}

		path = path[:len(path)-1]
		state[id] = done

		return nil
	}

	for _, id := range roots {
		if state[id] != 0 {
			continue
		}

		if cyc := walk(id); cyc != nil {
			return cyc
		}
	}

	return nil
}
