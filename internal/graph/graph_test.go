package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanledger/scanledger/internal/depparse"
	"github.com/scanledger/scanledger/internal/digestid"
	"github.com/scanledger/scanledger/internal/entity"
	"github.com/scanledger/scanledger/internal/graph"
	"github.com/scanledger/scanledger/pkg/scanledgerapi"
)

func sampleInput() graph.BuildInput {
	return graph.BuildInput{
		RunID: "run-0001",
		Files: []graph.FileInput{
			{
				Record: scanledgerapi.FileRecord{CanonicalPath: "pkg/a.go", Digest: "d1", Language: "go"},
				Events: []entity.Event{
					{Kind: entity.ModuleDeclared, QualifiedName: "pkg/a"},
					{Kind: entity.FunctionDeclared, QualifiedName: "DoThing", Line: 10},
					{Kind: entity.ImportObserved, Target: "pkg/b"},
					{Kind: entity.ImportObserved, Target: "github.com/stretchr/testify"},
				},
			},
			{
				Record: scanledgerapi.FileRecord{CanonicalPath: "pkg/b.go", Digest: "d2", Language: "go"},
				Events: []entity.Event{
					{Kind: entity.ModuleDeclared, QualifiedName: "pkg/b"},
					{Kind: entity.TestDeclared, QualifiedName: "TestSomething", Line: 3},
				},
			},
		},
		Dependencies: []depparse.Event{
			{Package: "Testify", VersionSpec: "v1.0.0", Scope: depparse.ScopeRuntime, OwningModule: "pkg/a", SourcePath: "go.mod"},
		},
		Artifacts: []graph.ArtifactInput{
			{
				Record:      scanledgerapi.ArtifactRecord{Kind: "bundle", RelativePath: "bundles/all-0001.txt", Digest: "bd1"},
				DerivesFrom: []string{"pkg/a.go", "pkg/b.go"},
			},
		},
	}
}

func TestBuild_SynthesizesRunFileModuleContainment(t *testing.T) {
	t.Parallel()

	g := graph.Build(sampleInput())

	var fileNodes, moduleNodes, runNodes int

	for _, n := range g.Nodes {
		switch n.Kind {
		case scanledgerapi.NodeRun:
			runNodes++
		case scanledgerapi.NodeFile:
			fileNodes++
		case scanledgerapi.NodeModule:
			moduleNodes++
		}
	}

	assert.Equal(t, 1, runNodes)
	assert.Equal(t, 2, fileNodes)
	assert.Equal(t, 2, moduleNodes)

	require.NoError(t, graph.Validate(g))
}

func TestBuild_ResolvesIntraRunImportsAndExternalDependencies(t *testing.T) {
	t.Parallel()

	g := graph.Build(sampleInput())

	var imports, dependsOn int

	for _, r := range g.Relationships {
		switch r.Kind {
		case scanledgerapi.RelImports:
			imports++
		case scanledgerapi.RelDependsOn:
			dependsOn++
		}
	}

	assert.Equal(t, 1, imports)
	assert.GreaterOrEqual(t, dependsOn, 1)

	depNode, ok := g.Nodes[digestid.NodeID(string(scanledgerapi.NodeDependency), "testify")]

	require.True(t, ok)
	assert.Equal(t, "testify", depNode.Attributes["package"])
}

func TestBuild_ArtifactProducesAndDerives(t *testing.T) {
	t.Parallel()

	g := graph.Build(sampleInput())

	var producesCount, derivesCount int

	for _, r := range g.Relationships {
		switch r.Kind {
		case scanledgerapi.RelProduces:
			producesCount++
		case scanledgerapi.RelDerives:
			derivesCount++
		}
	}

	assert.Equal(t, 1, producesCount)
	assert.Equal(t, 2, derivesCount)
}

func TestValidate_DetectsMissingEdgeEndpoint(t *testing.T) {
	t.Parallel()

	g := graph.New()
	g.AddNode(scanledgerapi.Node{ID: "n1", Kind: scanledgerapi.NodeRun, Provenance: []string{"r"}})
	g.AddRelationship(scanledgerapi.Relationship{ID: "e1", SourceID: "n1", TargetID: "missing", Kind: scanledgerapi.RelContains})

	err := graph.Validate(g)
	require.Error(t, err)

	var invErr *graph.InvariantError
	require.ErrorAs(t, err, &invErr)
	assert.Contains(t, invErr.Error(), "missing")
}

func TestValidate_DetectsUnreachableNode(t *testing.T) {
	t.Parallel()

	g := graph.New()
	g.AddNode(scanledgerapi.Node{ID: "run1", Kind: scanledgerapi.NodeRun, Provenance: []string{"r"}})
	g.AddNode(scanledgerapi.Node{ID: "orphan", Kind: scanledgerapi.NodeFile, Provenance: []string{"x"}})

	err := graph.Validate(g)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unreachable")
}

func TestValidate_DetectsEmptyProvenance(t *testing.T) {
	t.Parallel()

	g := graph.New()
	g.AddNode(scanledgerapi.Node{ID: "run1", Kind: scanledgerapi.NodeRun, Provenance: []string{"r"}})
	g.AddNode(scanledgerapi.Node{ID: "f1", Kind: scanledgerapi.NodeFile})
	g.AddRelationship(scanledgerapi.Relationship{ID: "e1", SourceID: "run1", TargetID: "f1", Kind: scanledgerapi.RelContains})

	err := graph.Validate(g)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty provenance")
}

func TestValidate_DetectsContainsCycle(t *testing.T) {
	t.Parallel()

	g := graph.New()
	g.AddNode(scanledgerapi.Node{ID: "run1", Kind: scanledgerapi.NodeRun, Provenance: []string{"r"}})
	g.AddNode(scanledgerapi.Node{ID: "a", Kind: scanledgerapi.NodeModule, Provenance: []string{"r"}})
	g.AddNode(scanledgerapi.Node{ID: "b", Kind: scanledgerapi.NodeModule, Provenance: []string{"r"}})
	g.AddNode(scanledgerapi.Node{ID: "c", Kind: scanledgerapi.NodeModule, Provenance: []string{"r"}})

	// run1 -> a via depends_on (not contains) keeps every node reachable
	// from run without giving "a" a second contains-parent, so the
	// a<->b<->c<->a contains cycle below (each node has exactly one
	// contains-parent) can only be caught by an explicit contains-only
	// cycle check, not by the single-parent or reachability checks alone.
	g.AddRelationship(scanledgerapi.Relationship{ID: "e0", SourceID: "run1", TargetID: "a", Kind: scanledgerapi.RelDependsOn})
	g.AddRelationship(scanledgerapi.Relationship{ID: "e1", SourceID: "a", TargetID: "b", Kind: scanledgerapi.RelContains})
	g.AddRelationship(scanledgerapi.Relationship{ID: "e2", SourceID: "b", TargetID: "c", Kind: scanledgerapi.RelContains})
	g.AddRelationship(scanledgerapi.Relationship{ID: "e3", SourceID: "c", TargetID: "a", Kind: scanledgerapi.RelContains})

	err := graph.Validate(g)
	require.Error(t, err)

	var invErr *graph.InvariantError
	require.ErrorAs(t, err, &invErr)
	assert.Contains(t, invErr.Error(), "contains cycle")
}

func TestEncodeJSONLD_DeterministicOrdering(t *testing.T) {
	t.Parallel()

	g := graph.Build(sampleInput())

	out1, err := graph.EncodeJSONLD(g)
	require.NoError(t, err)

	out2, err := graph.EncodeJSONLD(g)
	require.NoError(t, err)

	assert.Equal(t, out1, out2)
	assert.NotContains(t, string(out1), "\r")
}

func TestEncodeGraphML_DeclaresKeysBeforeData(t *testing.T) {
	t.Parallel()

	g := graph.Build(sampleInput())

	out, err := graph.EncodeGraphML(g)
	require.NoError(t, err)

	s := string(out)
	keyIdx := indexOf(s, "<key ")
	nodeIdx := indexOf(s, "<node ")

	require.NotEqual(t, -1, keyIdx)
	require.NotEqual(t, -1, nodeIdx)
	assert.Less(t, keyIdx, nodeIdx)
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}

	return -1
}

func TestCompare_AddedChangedRemoved(t *testing.T) {
	t.Parallel()

	prior := graph.Build(sampleInput())

	priorJSON, err := graph.EncodeJSONLD(prior)
	require.NoError(t, err)

	priorDoc, err := graph.DecodeJSONLD(priorJSON)
	require.NoError(t, err)

	current := sampleInput()
	current.Files = append(current.Files, graph.FileInput{
		Record: scanledgerapi.FileRecord{CanonicalPath: "pkg/c.go", Digest: "d3", Language: "go"},
	})
	current.Files[0].Events = append(current.Files[0].Events, entity.Event{Kind: entity.ClassDeclared, QualifiedName: "Widget"})
	current.Files[1].Record.Digest = "d2-changed"

	currentGraph := graph.Build(current)

	diff := graph.Compare(priorDoc, currentGraph)

	assert.NotEmpty(t, diff.AddedNodes)
	assert.NotEmpty(t, diff.ChangedNodes)
	assert.Empty(t, diff.RemovedNodes)

	md := graph.EncodeDiffMarkdown(diff)
	assert.Contains(t, string(md), "Removed nodes")
	assert.Contains(t, string(md), "_none_")

	js, err := graph.EncodeDiffJSON(diff)
	require.NoError(t, err)
	assert.Contains(t, string(js), "added_nodes")
}

func TestCompare_NoPriorChangesEmptyDiff(t *testing.T) {
	t.Parallel()

	g := graph.Build(sampleInput())

	out, err := graph.EncodeJSONLD(g)
	require.NoError(t, err)

	doc, err := graph.DecodeJSONLD(out)
	require.NoError(t, err)

	diff := graph.Compare(doc, g)

	assert.Empty(t, diff.AddedNodes)
	assert.Empty(t, diff.RemovedNodes)
	assert.Empty(t, diff.ChangedNodes)
	assert.Empty(t, diff.AddedEdges)
	assert.Empty(t, diff.RemovedEdges)
}
