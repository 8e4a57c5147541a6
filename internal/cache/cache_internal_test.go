package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_SchemaMismatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c := New(dir, JSONCodec{})

	stale := Entry{SchemaVersion: 999, Digest: "abc123"}

	path := c.shard(stale.Digest)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), dirPerm))

	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, JSONCodec{}.Encode(f, stale))
	require.NoError(t, f.Close())

	_, getErr := c.Get("abc123")
	assert.ErrorIs(t, getErr, ErrSchemaMismatch)
}

func TestCache_ShardsByDigestPrefix(t *testing.T) {
	t.Parallel()

	c := New(t.TempDir(), JSONCodec{})

	path := c.shard("abcdef0123456789")
	assert.Contains(t, path, filepath.Join("ab", "cd"))
}
