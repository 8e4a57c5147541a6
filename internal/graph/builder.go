package graph

import (
	"path"
	"sort"
	"strconv"

	"github.com/scanledger/scanledger/internal/depparse"
	"github.com/scanledger/scanledger/internal/digestid"
	"github.com/scanledger/scanledger/internal/entity"
	"github.com/scanledger/scanledger/pkg/scanledgerapi"
)

// FileInput is one file's record together with the entity events extracted
// from its content, the inputs the graph builder consumes for file/module/
// function/class/test synthesis (spec.md §4.7, steps 2–4).
type FileInput struct {
	Record scanledgerapi.FileRecord
	Events []entity.Event
}

// ArtifactInput is one registered run artifact, together with the canonical
// paths it derives from (non-empty only for bundles — spec.md §4.7 step 6).
type ArtifactInput struct {
	Record      scanledgerapi.ArtifactRecord
	DerivesFrom []string
}

// BuildInput collects every synthesis input for one run.
type BuildInput struct {
	RunID        string
	Files        []FileInput
	Dependencies []depparse.Event
	Artifacts    []ArtifactInput
}

// entityNodeKinds maps entity.EventKind values that produce a graph node to
// their NodeKind. FixtureDeclared is modeled as a function node tagged
// fixture=true: the closed NodeKind set has no dedicated "fixture" kind, and
// a pytest-style fixture is, structurally, a declared callable.
var entityNodeKinds = map[entity.EventKind]scanledgerapi.NodeKind{
	entity.FunctionDeclared: scanledgerapi.NodeFunction,
	entity.ClassDeclared:    scanledgerapi.NodeClass,
	entity.TestDeclared:     scanledgerapi.NodeTest,
	entity.FixtureDeclared:  scanledgerapi.NodeFunction,
}

// Build synthesizes a Graph from one run's FileRecords, entity events,
// dependency events, and registered artifacts, per spec.md §4.7.
func Build(in BuildInput) *Graph {
	g := New()

	runNodeID := digestid.NodeID(string(scanledgerapi.NodeRun), in.RunID)
	g.AddNode(scanledgerapi.Node{
		ID:         runNodeID,
		Kind:       scanledgerapi.NodeRun,
		Label:      "run:" + in.RunID,
		Attributes: map[string]any{"run_id": in.RunID},
		Provenance: []string{in.RunID},
	})

	moduleByQualifiedName := make(map[string]string)

	for _, f := range in.Files {
		filePath := f.Record.CanonicalPath

		fileNodeID := digestid.NodeID(string(scanledgerapi.NodeFile), filePath)
		g.AddNode(scanledgerapi.Node{
			ID:    fileNodeID,
			Kind:  scanledgerapi.NodeFile,
			Label: filePath,
			Attributes: map[string]any{
				"path":       filePath,
				"digest":     f.Record.Digest,
				"language":   f.Record.Language,
				"size_bytes": f.Record.SizeBytes,
			},
			Provenance: []string{filePath},
		})
		g.AddRelationship(relate(runNodeID, scanledgerapi.RelContains, fileNodeID))

		moduleNodeID := digestid.NodeID(string(scanledgerapi.NodeModule), filePath)
		moduleQualifiedName := moduleLabel(filePath, f.Events)
		g.AddNode(scanledgerapi.Node{
			ID:    moduleNodeID,
			Kind:  scanledgerapi.NodeModule,
			Label: moduleQualifiedName,
			Attributes: map[string]any{
				"path":           filePath,
				"qualified_name": moduleQualifiedName,
			},
			Provenance: []string{filePath},
		})
		g.AddRelationship(relate(fileNodeID, scanledgerapi.RelContains, moduleNodeID))
		moduleByQualifiedName[moduleQualifiedName] = moduleNodeID

		buildEntityNodes(g, filePath, moduleNodeID, f.Events)
	}

	// Second pass: import resolution needs every module registered first.
	for _, f := range in.Files {
		for _, ev := range f.Events {
			if ev.Kind != entity.ImportObserved {
				continue
			}

			sourceModuleID := digestid.NodeID(string(scanledgerapi.NodeModule), f.Record.CanonicalPath)

			if targetModuleID, ok := moduleByQualifiedName[ev.Target]; ok {
				g.AddRelationship(relate(sourceModuleID, scanledgerapi.RelImports, targetModuleID))

				continue
			}

			depNodeID := ensureDependencyNode(g, ev.Target, f.Record.CanonicalPath)
			g.AddRelationship(relate(sourceModuleID, scanledgerapi.RelDependsOn, depNodeID))
		}
	}

	for _, dep := range in.Dependencies {
		depNodeID := ensureDependencyNode(g, dep.Package, dep.SourcePath)

		moduleNodeID, ok := moduleFromOwningPath(moduleByQualifiedName, dep.OwningModule)
		if !ok {
			moduleNodeID = digestid.NodeID(string(scanledgerapi.NodeModule), dep.OwningModule)
			g.AddNode(scanledgerapi.Node{
				ID:   moduleNodeID,
				Kind: scanledgerapi.NodeModule,
				Label: dep.OwningModule,
				Attributes: map[string]any{
					"path":           dep.OwningModule,
					"qualified_name": dep.OwningModule,
				},
				Provenance: []string{dep.SourcePath},
			})
			g.AddRelationship(relate(runNodeID, scanledgerapi.RelContains, moduleNodeID))
		}

		g.AddRelationship(relate(moduleNodeID, scanledgerapi.RelDependsOn, depNodeID))
	}

	for _, a := range in.Artifacts {
		kind := artifactNodeKind(a.Record.Kind)

		artifactNodeID := digestid.NodeID(string(kind), a.Record.RelativePath)
		g.AddNode(scanledgerapi.Node{
			ID:   artifactNodeID,
			Kind: kind,
			Label: string(kind) + ":" + a.Record.RelativePath,
			Attributes: map[string]any{
				"kind":          a.Record.Kind,
				"relative_path": a.Record.RelativePath,
				"digest":        a.Record.Digest,
			},
			Provenance: []string{in.RunID},
		})
		g.AddRelationship(relate(runNodeID, scanledgerapi.RelProduces, artifactNodeID))

		for _, derivedPath := range a.DerivesFrom {
			fileNodeID := digestid.NodeID(string(scanledgerapi.NodeFile), derivedPath)
			g.AddRelationship(relate(artifactNodeID, scanledgerapi.RelDerives, fileNodeID))
		}
	}

	seen := make(map[string]bool, len(g.Relationships))
	unique := g.Relationships[:0]

	for _, r := range g.Relationships {
		if seen[r.ID] {
			continue
		}

		seen[r.ID] = true
		unique = append(unique, r)
	}

	g.Relationships = unique

	return g
}

// artifactNodeKind classifies a registered artifact's recorded kind string
// into the closed NodeKind set. "bundle" and any unrecognized kind map to
// the generic artifact node; "diagram" gets its own asset node so diagrams
// and context bundles remain distinguishable in the graph; "explain_card"
// gets the dedicated asset_card node so explain cards, which describe other
// nodes, are visually and structurally distinct.
func artifactNodeKind(kind string) scanledgerapi.NodeKind {
	switch kind {
	case "diagram":
		return scanledgerapi.NodeAsset
	case "explain_card":
		return scanledgerapi.NodeAssetCard
	default:
		return scanledgerapi.NodeArtifact
	}
}

func buildEntityNodes(g *Graph, filePath, moduleNodeID string, events []entity.Event) {
	for i, ev := range events {
		nodeKind, ok := entityNodeKinds[ev.Kind]
		if !ok {
			continue
		}

		name := ev.QualifiedName
		if name == "" {
			name = "anon#" + strconv.Itoa(i)
		}

		scopePath := filePath + "#" + name
		nodeID := digestid.NodeID(string(nodeKind), scopePath)

		attrs := map[string]any{
			"path": filePath,
			"name": name,
			"line": ev.Line,
		}
		if ev.Kind == entity.FixtureDeclared {
			attrs["fixture"] = true
		}

		g.AddNode(scanledgerapi.Node{
			ID:         nodeID,
			Kind:       nodeKind,
			Label:      name,
			Attributes: attrs,
			Provenance: []string{filePath},
		})
		g.AddRelationship(relate(moduleNodeID, scanledgerapi.RelContains, nodeID))

		if nodeKind == scanledgerapi.NodeTest {
			g.AddRelationship(relate(nodeID, scanledgerapi.RelTests, moduleNodeID))
		}
	}
}

// ensureDependencyNode returns the node ID for packageName, creating the
// node on first observation and otherwise merging sourcePath into its
// provenance (a dependency may be declared or imported from many files).
func ensureDependencyNode(g *Graph, packageName, sourcePath string) string {
	canonical := depparse.CanonicalizeName(packageName)
	nodeID := digestid.NodeID(string(scanledgerapi.NodeDependency), canonical)

	existing, ok := g.Nodes[nodeID]
	if !ok {
		g.AddNode(scanledgerapi.Node{
			ID:         nodeID,
			Kind:       scanledgerapi.NodeDependency,
			Label:      canonical,
			Attributes: map[string]any{"package": canonical},
			Provenance: []string{sourcePath},
		})

		return nodeID
	}

	if !containsString(existing.Provenance, sourcePath) {
		existing.Provenance = append(existing.Provenance, sourcePath)
		sort.Strings(existing.Provenance)
		g.AddNode(existing)
	}

	return nodeID
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}

	return false
}

// moduleLabel picks the module's display name: the first ModuleDeclared
// event's qualified name if present, otherwise the file path with its
// extension stripped.
func moduleLabel(filePath string, events []entity.Event) string {
	for _, ev := range events {
		if ev.Kind == entity.ModuleDeclared && ev.QualifiedName != "" {
			return ev.QualifiedName
		}
	}

	ext := path.Ext(filePath)

	return filePath[:len(filePath)-len(ext)]
}

func moduleFromOwningPath(byQualifiedName map[string]string, owningModule string) (string, bool) {
	id, ok := byQualifiedName[owningModule]

	return id, ok
}

func relate(sourceID string, kind scanledgerapi.RelKind, targetID string) scanledgerapi.Relationship {
	return scanledgerapi.Relationship{
		ID:       digestid.EdgeID(sourceID, string(kind), targetID),
		SourceID: sourceID,
		TargetID: targetID,
		Kind:     kind,
	}
}
