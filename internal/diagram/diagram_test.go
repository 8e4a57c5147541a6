package diagram_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanledger/scanledger/internal/depparse"
	"github.com/scanledger/scanledger/internal/diagram"
	"github.com/scanledger/scanledger/internal/entity"
	"github.com/scanledger/scanledger/internal/graph"
	"github.com/scanledger/scanledger/pkg/scanledgerapi"
)

func sampleGraph() *graph.Graph {
	return graph.Build(graph.BuildInput{
		RunID: "run-1",
		Files: []graph.FileInput{
			{
				Record: scanledgerapi.FileRecord{CanonicalPath: "pkg/a.go", Digest: "d1", Language: "go"},
				Events: []entity.Event{
					{Kind: entity.ModuleDeclared, QualifiedName: "pkg/a"},
					{Kind: entity.FunctionDeclared, QualifiedName: "Run"},
					{Kind: entity.TestDeclared, QualifiedName: "TestRun"},
					{Kind: entity.ImportObserved, Target: "fmt"},
				},
			},
		},
		Dependencies: []depparse.Event{
			{Package: "fmt", Scope: depparse.ScopeRuntime, OwningModule: "pkg/a", SourcePath: "go.mod"},
		},
	})
}

func TestValidatePreset_RejectsUnknown(t *testing.T) {
	t.Parallel()

	assert.NoError(t, diagram.ValidatePreset(diagram.PresetArchitecture))

	err := diagram.ValidatePreset("bogus")
	require.Error(t, err)

	var cfgErr *diagram.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestValidateThemeSpec_RejectsLowContrast(t *testing.T) {
	t.Parallel()

	low := diagram.ThemeSpec{ID: diagram.ThemeLight, Foreground: "#888888", Background: "#999999", FontSizePt: 11}
	err := diagram.ValidateThemeSpec(low)
	require.Error(t, err)

	var violation *diagram.ThemeViolationError
	assert.ErrorAs(t, err, &violation)
}

func TestValidateThemeSpec_RejectsSmallFont(t *testing.T) {
	t.Parallel()

	theme := diagram.ThemeSpec{ID: diagram.ThemeLight, Foreground: "#000000", Background: "#ffffff", FontSizePt: 8}
	err := diagram.ValidateThemeSpec(theme)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "font_size_pt")
}

func TestValidateThemeSpec_EmbeddedThemesPass(t *testing.T) {
	t.Parallel()

	for _, th := range []diagram.Theme{diagram.ThemeLight, diagram.ThemeDark} {
		spec, err := diagram.ResolveTheme(th)
		require.NoError(t, err)
		assert.NoError(t, diagram.ValidateThemeSpec(spec))
	}
}

func TestProject_ArchitectureIncludesFilesAndModulesOnly(t *testing.T) {
	t.Parallel()

	g := sampleGraph()

	sub, err := diagram.Project(g, diagram.PresetArchitecture)
	require.NoError(t, err)

	for _, n := range sub.Nodes {
		assert.Contains(t, []scanledgerapi.NodeKind{scanledgerapi.NodeFile, scanledgerapi.NodeModule}, n.Kind)
	}
}

func TestProject_DependenciesIncludesModulesAndDependencies(t *testing.T) {
	t.Parallel()

	g := sampleGraph()

	sub, err := diagram.Project(g, diagram.PresetDependencies)
	require.NoError(t, err)
	assert.NotEmpty(t, sub.Relationships)

	for _, r := range sub.Relationships {
		assert.Equal(t, scanledgerapi.RelDependsOn, r.Kind)
	}
}

func TestSubgraphDigest_DeterministicAndOrderIndependent(t *testing.T) {
	t.Parallel()

	g := sampleGraph()

	sub1, err := diagram.Project(g, diagram.PresetArchitecture)
	require.NoError(t, err)

	sub2, err := diagram.Project(g, diagram.PresetArchitecture)
	require.NoError(t, err)

	assert.Equal(t, sub1.Digest(), sub2.Digest())
}

func TestCacheKey_VariesByInput(t *testing.T) {
	t.Parallel()

	k1 := diagram.CacheKey(diagram.PresetArchitecture, diagram.FormatMermaid, diagram.ThemeLight, "abc")
	k2 := diagram.CacheKey(diagram.PresetArchitecture, diagram.FormatMermaid, diagram.ThemeDark, "abc")
	assert.NotEqual(t, k1, k2)
}

func TestRenderText_AllFormatsProduceNonEmptyOutput(t *testing.T) {
	t.Parallel()

	g := sampleGraph()

	sub, err := diagram.Project(g, diagram.PresetArchitecture)
	require.NoError(t, err)

	theme, err := diagram.ResolveTheme(diagram.ThemeLight)
	require.NoError(t, err)

	for _, format := range diagram.ClosedFormats {
		out, err := diagram.RenderText(sub, diagram.PresetArchitecture, format, theme)
		require.NoError(t, err)
		assert.NotEmpty(t, out)
	}
}

func TestRenderFallbackSVG_Deterministic(t *testing.T) {
	t.Parallel()

	g := sampleGraph()

	sub, err := diagram.Project(g, diagram.PresetArchitecture)
	require.NoError(t, err)

	theme, err := diagram.ResolveTheme(diagram.ThemeLight)
	require.NoError(t, err)

	out1 := diagram.RenderFallbackSVG(sub, theme)
	out2 := diagram.RenderFallbackSVG(sub, theme)

	assert.Equal(t, out1, out2)
	assert.Contains(t, string(out1), "<svg")
}

func TestGenerate_ProducesResultsInRequestOrder(t *testing.T) {
	t.Parallel()

	g := sampleGraph()

	requests := []diagram.Request{
		{Preset: diagram.PresetArchitecture, Format: diagram.FormatMermaid, Theme: diagram.ThemeLight},
		{Preset: diagram.PresetDependencies, Format: diagram.FormatGraphviz, Theme: diagram.ThemeDark},
		{Preset: diagram.PresetTests, Format: diagram.FormatPlantUML, Theme: diagram.ThemeLight},
	}

	results, err := diagram.Generate(context.Background(), g, requests, nil, diagram.Options{})
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i, r := range results {
		assert.Equal(t, requests[i], r.Request)
		assert.NotEmpty(t, r.CacheKey)
	}
}

func TestGenerate_CacheHitReusesPriorBytes(t *testing.T) {
	t.Parallel()

	g := sampleGraph()

	requests := []diagram.Request{{Preset: diagram.PresetArchitecture, Format: diagram.FormatMermaid, Theme: diagram.ThemeLight}}

	priorBytes := []byte("prior-cached-bytes")
	lookup := func(string) ([]byte, bool) { return priorBytes, true }

	results, err := diagram.Generate(context.Background(), g, requests, lookup, diagram.Options{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, priorBytes, results[0].Text)
}
