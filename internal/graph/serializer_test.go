package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanledger/scanledger/internal/graph"
)

func TestEncodeJSONLD_DecodeGraph_RoundTrips(t *testing.T) {
	original := graph.Build(sampleInput())

	encoded, err := graph.EncodeJSONLD(original)
	require.NoError(t, err)

	decoded, err := graph.DecodeGraph(encoded)
	require.NoError(t, err)

	reencoded, err := graph.EncodeJSONLD(decoded)
	require.NoError(t, err)

	assert.Equal(t, string(encoded), string(reencoded))
}
