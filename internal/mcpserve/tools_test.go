package mcpserve

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRun(t *testing.T, root, name string) string {
	t.Helper()

	runDir := filepath.Join(root, name)
	for _, sub := range []string{"manifests", "bundles", "graphs", "gates", "cards"} {
		require.NoError(t, os.MkdirAll(filepath.Join(runDir, sub), 0o750))
	}

	require.NoError(t, os.WriteFile(filepath.Join(runDir, "manifests", "manifest.json"),
		[]byte(`{"run_id":"`+name+`"}`), 0o640))
	require.NoError(t, os.WriteFile(filepath.Join(runDir, "bundles", "all-1.txt"),
		[]byte("bundle body"), 0o640))
	require.NoError(t, os.WriteFile(filepath.Join(runDir, "graphs", "knowledge_graph.json"),
		[]byte(`{"@context":"scanledger"}`), 0o640))
	require.NoError(t, os.WriteFile(filepath.Join(runDir, "gates", "gate.json"),
		[]byte(`{"verdict":"pass"}`), 0o640))
	require.NoError(t, os.WriteFile(filepath.Join(runDir, "cards", "index.json"),
		[]byte(`[{"id":"architecture-abc123","scope":"architecture"}]`), 0o640))
	require.NoError(t, os.WriteFile(filepath.Join(runDir, "cards", "architecture-abc123.md"),
		[]byte("# Architecture\n"), 0o640))

	return runDir
}

func TestHandleListRuns(t *testing.T) {
	root := t.TempDir()
	writeRun(t, root, "20260101T000000Z-aaaaaaaa")

	handler := handleListRuns(root)
	result, _, err := handler(context.Background(), nil, RunInput{})
	require.NoError(t, err)
	assert.False(t, result.IsError)
}

func TestHandleManifest_Found(t *testing.T) {
	root := t.TempDir()
	writeRun(t, root, "20260101T000000Z-aaaaaaaa")

	handler := handleManifest(root)
	result, output, err := handler(context.Background(), nil, RunInput{Run: "20260101T000000Z-aaaaaaaa"})
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.NotNil(t, output.Data)
}

func TestHandleManifest_UnknownRunIsErrorResult(t *testing.T) {
	root := t.TempDir()

	handler := handleManifest(root)
	result, _, err := handler(context.Background(), nil, RunInput{Run: "missing"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleBundle_ReadsBody(t *testing.T) {
	root := t.TempDir()
	writeRun(t, root, "20260101T000000Z-aaaaaaaa")

	handler := handleBundle(root)
	result, output, err := handler(context.Background(), nil, BundleInput{
		Run: "20260101T000000Z-aaaaaaaa", Preset: "all", Sequence: 1,
	})
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Equal(t, "bundle body", output.Data)
}

func TestHandleBundle_RequiresPresetAndSequence(t *testing.T) {
	handler := handleBundle(t.TempDir())

	result, _, err := handler(context.Background(), nil, BundleInput{Sequence: 1})
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, _, err = handler(context.Background(), nil, BundleInput{Preset: "all"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleGraph_ReadsKnowledgeGraph(t *testing.T) {
	root := t.TempDir()
	writeRun(t, root, "20260101T000000Z-aaaaaaaa")

	handler := handleGraph(root)
	result, output, err := handler(context.Background(), nil, RunInput{Run: "20260101T000000Z-aaaaaaaa"})
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Contains(t, output.Data, "scanledger")
}

func TestHandleGate_ReadsGateReport(t *testing.T) {
	root := t.TempDir()
	writeRun(t, root, "20260101T000000Z-aaaaaaaa")

	handler := handleGate(root)
	result, output, err := handler(context.Background(), nil, RunInput{Run: "20260101T000000Z-aaaaaaaa"})
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Contains(t, output.Data, "pass")
}

func TestHandleCard_FindsByScope(t *testing.T) {
	root := t.TempDir()
	writeRun(t, root, "20260101T000000Z-aaaaaaaa")

	handler := handleCard(root)
	result, output, err := handler(context.Background(), nil, CardInput{
		Run: "20260101T000000Z-aaaaaaaa", Scope: "architecture",
	})
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Contains(t, output.Data, "Architecture")
}

func TestHandleCard_UnknownScopeIsErrorResult(t *testing.T) {
	root := t.TempDir()
	writeRun(t, root, "20260101T000000Z-aaaaaaaa")

	handler := handleCard(root)
	result, _, err := handler(context.Background(), nil, CardInput{
		Run: "20260101T000000Z-aaaaaaaa", Scope: "quality",
	})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleCard_RequiresScope(t *testing.T) {
	handler := handleCard(t.TempDir())

	result, _, err := handler(context.Background(), nil, CardInput{Run: "x"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}
