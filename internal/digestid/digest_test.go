package digestid_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanledger/scanledger/internal/digestid"
)

func TestDigest_StableAcrossCalls(t *testing.T) {
	t.Parallel()

	d1, err := digestid.Digest(strings.NewReader("hello world"))
	require.NoError(t, err)

	d2, err := digestid.Digest(strings.NewReader("hello world"))
	require.NoError(t, err)

	assert.Equal(t, d1, d2)
	assert.Len(t, d1, 64)
}

func TestDigest_DifferentContentDifferentDigest(t *testing.T) {
	t.Parallel()

	d1, err := digestid.Digest(strings.NewReader("a"))
	require.NoError(t, err)

	d2, err := digestid.Digest(strings.NewReader("b"))
	require.NoError(t, err)

	assert.NotEqual(t, d1, d2)
}

func TestCanonicalize_ForwardSlash(t *testing.T) {
	t.Parallel()

	got, err := digestid.Canonicalize("/repo", "/repo/src/pkg/file.go")
	require.NoError(t, err)
	assert.Equal(t, "src/pkg/file.go", got)
	assert.True(t, digestid.IsForwardSlashed(got))
}

func TestCanonicalize_DriveLetterCaseDoesNotAffectResult(t *testing.T) {
	t.Parallel()

	got, err := digestid.Canonicalize("C:/repo", "c:/repo/src/Pkg/File.go")
	require.NoError(t, err)
	assert.Equal(t, "src/Pkg/File.go", got)

	gotSwapped, err := digestid.Canonicalize("c:/repo", "C:/repo/src/Pkg/File.go")
	require.NoError(t, err)
	assert.Equal(t, got, gotSwapped)
}

func TestNodeID_DeterministicAndDistinct(t *testing.T) {
	t.Parallel()

	a := digestid.NodeID("file", "src/a.go")
	b := digestid.NodeID("file", "src/a.go")
	c := digestid.NodeID("file", "src/b.go")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 16)
}

func TestEdgeID_OrderSensitive(t *testing.T) {
	t.Parallel()

	forward := digestid.EdgeID("n1", "contains", "n2")
	backward := digestid.EdgeID("n2", "contains", "n1")

	assert.NotEqual(t, forward, backward)
	assert.Len(t, forward, 16)
}
