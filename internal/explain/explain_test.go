package explain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanledger/scanledger/internal/explain"
)

func TestValidateScope_RejectsUnknown(t *testing.T) {
	t.Parallel()

	assert.NoError(t, explain.ValidateScope(explain.ScopeArchitecture))

	err := explain.ValidateScope("bogus")
	require.Error(t, err)

	var cfgErr *explain.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestGenerate_RejectsUnknownScope(t *testing.T) {
	t.Parallel()

	_, err := explain.Generate(explain.Input{Scope: "bogus"})
	assert.Error(t, err)
}

func TestCardID_DeterministicByScopeAndDigest(t *testing.T) {
	t.Parallel()

	id1 := explain.CardID(explain.ScopeArchitecture, "digest-a")
	id2 := explain.CardID(explain.ScopeArchitecture, "digest-a")
	id3 := explain.CardID(explain.ScopeArchitecture, "digest-b")
	id4 := explain.CardID(explain.ScopeQuality, "digest-a")

	assert.Equal(t, id1, id2)
	assert.NotEqual(t, id1, id3)
	assert.NotEqual(t, id1, id4)
	assert.Len(t, id1, 16)
}

func TestGenerate_SeedsReviewPending(t *testing.T) {
	t.Parallel()

	card, err := explain.Generate(explain.Input{Scope: explain.ScopeTests, SubgraphDigest: "d1"})
	require.NoError(t, err)

	require.Len(t, card.ReviewHistory, 1)
	assert.Equal(t, "review_pending", card.ReviewHistory[0].Status)
	assert.Equal(t, explain.StatusTemplateFallback, card.Status)
}

func TestGenerate_MarkdownContainsAllSections(t *testing.T) {
	t.Parallel()

	card, err := explain.Generate(explain.Input{
		Scope:          explain.ScopeArchitecture,
		SubgraphDigest: "d1",
		Summary:        "3 modules, 12 functions.",
		Rationale:      "Architecture scope covers module containment only.",
		EdgeCases:      []string{"no tests declared"},
		Traceability: explain.Traceability{
			NodeIDs:         []string{"abc123"},
			BundleSequences: []int{0, 1},
			MetricsKeys:     []string{"coverage.line_percent"},
		},
	})
	require.NoError(t, err)

	for _, section := range []string{"## Summary", "## Rationale", "## Edge Cases", "## Traceability"} {
		assert.Contains(t, card.Markdown, section)
	}

	assert.Contains(t, card.Markdown, "abc123")
	assert.Contains(t, card.Markdown, "0, 1")
}

func TestGenerate_EmptySectionsRenderNone(t *testing.T) {
	t.Parallel()

	card, err := explain.Generate(explain.Input{Scope: explain.ScopeQuality, SubgraphDigest: "d2"})
	require.NoError(t, err)

	assert.Contains(t, card.Markdown, "_none_")
}

func TestGenerate_DeterministicOutput(t *testing.T) {
	t.Parallel()

	in := explain.Input{Scope: explain.ScopeTests, SubgraphDigest: "d3", Summary: "x"}

	c1, err := explain.Generate(in)
	require.NoError(t, err)

	c2, err := explain.Generate(in)
	require.NoError(t, err)

	assert.Equal(t, c1, c2)
}
