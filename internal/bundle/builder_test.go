package bundle_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanledger/scanledger/internal/bundle"
	"github.com/scanledger/scanledger/pkg/scanledgerapi"
)

func record(path string) scanledgerapi.FileRecord {
	return scanledgerapi.FileRecord{
		CanonicalPath: path,
		AbsolutePath:  "/abs/" + path,
		Digest:        "d-" + path,
		SizeBytes:     10,
		LineCount:     1,
		Language:      "go",
	}
}

func readerFor(content map[string]string) bundle.ContentReader {
	return func(absPath string) ([]byte, error) {
		for path, c := range content {
			if absPath == "/abs/"+path {
				return []byte(c), nil
			}
		}

		return []byte("stub"), nil
	}
}

func TestBuild_LexicographicOrdering(t *testing.T) {
	t.Parallel()

	records := []scanledgerapi.FileRecord{record("b.go"), record("a.go")}

	bundles, err := bundle.Build(bundle.PresetAll, records, bundle.Options{
		ReadContent: readerFor(map[string]string{"a.go": "package a\n", "b.go": "package b\n"}),
	})
	require.NoError(t, err)
	require.Len(t, bundles, 1)
	require.Len(t, bundles[0].Index, 2)
	assert.Equal(t, "a.go", bundles[0].Index[0].UnitPath)
	assert.Equal(t, "b.go", bundles[0].Index[1].UnitPath)
}

func TestBuild_SplitsOnByteBudget(t *testing.T) {
	t.Parallel()

	records := []scanledgerapi.FileRecord{record("a.go"), record("b.go")}
	content := readerFor(map[string]string{"a.go": strings.Repeat("x", 200), "b.go": strings.Repeat("y", 200)})

	bundles, err := bundle.Build(bundle.PresetAll, records, bundle.Options{
		MaxBundleBytes: 250,
		ReadContent:    content,
	})
	require.NoError(t, err)
	require.Len(t, bundles, 2)
	assert.Equal(t, 0, bundles[0].Sequence)
	assert.Equal(t, 1, bundles[1].Sequence)
}

func TestBuild_OversizedUnitAloneAndFlagged(t *testing.T) {
	t.Parallel()

	records := []scanledgerapi.FileRecord{record("a.go"), record("huge.go"), record("b.go")}
	content := readerFor(map[string]string{
		"a.go":    "small\n",
		"huge.go": strings.Repeat("z", 500),
		"b.go":    "small\n",
	})

	bundles, err := bundle.Build(bundle.PresetAll, records, bundle.Options{
		MaxBundleBytes: 100,
		ReadContent:    content,
	})
	require.NoError(t, err)
	require.Len(t, bundles, 3)

	require.Len(t, bundles[1].Index, 1)
	assert.Equal(t, "huge.go", bundles[1].Index[0].UnitPath)
	assert.True(t, bundles[1].Index[0].Oversized)
}

func TestBuild_EmptySelectionStillEmitsOneBundle(t *testing.T) {
	t.Parallel()

	bundles, err := bundle.Build(bundle.PresetTests, []scanledgerapi.FileRecord{record("a.go")}, bundle.Options{})
	require.NoError(t, err)
	require.Len(t, bundles, 1)
	assert.Empty(t, bundles[0].Index)
}

func TestPredicate_Presets(t *testing.T) {
	t.Parallel()

	test := scanledgerapi.FileRecord{CanonicalPath: "pkg/foo_test.go", Language: "go"}
	src := scanledgerapi.FileRecord{CanonicalPath: "pkg/foo.go", Language: "go"}
	dep := scanledgerapi.FileRecord{CanonicalPath: "go.mod", Language: "unknown"}

	assert.True(t, bundle.Predicate(bundle.PresetTests, test))
	assert.False(t, bundle.Predicate(bundle.PresetAPI, test))
	assert.True(t, bundle.Predicate(bundle.PresetAPI, src))
	assert.True(t, bundle.Predicate(bundle.PresetDependencies, dep))
	assert.False(t, bundle.Predicate(bundle.PresetAPI, dep))
}
