package mcpserve

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRunDir_EmptyRunsRoot(t *testing.T) {
	_, err := resolveRunDir("", "latest")
	assert.ErrorIs(t, err, ErrEmptyRunsRoot)
}

func TestResolveRunDir_LatestPicksLexicographicallyGreatest(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "20260101T000000Z-aaaaaaaa"), 0o750))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "20260201T000000Z-bbbbbbbb"), 0o750))

	dir, err := resolveRunDir(root, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "20260201T000000Z-bbbbbbbb"), dir)

	dir, err = resolveRunDir(root, "latest")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "20260201T000000Z-bbbbbbbb"), dir)
}

func TestResolveRunDir_RejectsPathTraversal(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "20260101T000000Z-aaaaaaaa"), 0o750))

	_, err := resolveRunDir(root, "../escaped")
	assert.ErrorIs(t, err, ErrInvalidRunName)

	_, err = resolveRunDir(root, "nested/../../escaped")
	assert.ErrorIs(t, err, ErrInvalidRunName)
}

func TestResolveRunDir_MissingRunIsNotFound(t *testing.T) {
	root := t.TempDir()

	_, err := resolveRunDir(root, "20260101T000000Z-missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestListRunDirs_NewestFirst(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "20260101T000000Z-aaaaaaaa"), 0o750))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "20260201T000000Z-bbbbbbbb"), 0o750))

	names, err := listRunDirs(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"20260201T000000Z-bbbbbbbb", "20260101T000000Z-aaaaaaaa"}, names)
}

func TestListRunDirs_MissingRootReturnsEmpty(t *testing.T) {
	names, err := listRunDirs(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestReadManifest_DecodesJSON(t *testing.T) {
	runDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(runDir, "manifests"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(runDir, "manifests", "manifest.json"),
		[]byte(`{"run_id":"abc123"}`), 0o640))

	m, err := readManifest(runDir)
	require.NoError(t, err)
	assert.Equal(t, "abc123", m.RunID)
}

func TestReadManifest_MissingFile(t *testing.T) {
	_, err := readManifest(t.TempDir())
	require.Error(t, err)
	assert.False(t, errors.Is(err, nil))
}
