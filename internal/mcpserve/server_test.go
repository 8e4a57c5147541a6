package mcpserve

import (
	"context"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestNewServer_RegistersEveryTool(t *testing.T) {
	srv, err := NewServer(ServerDeps{RunsRoot: t.TempDir()})
	require.NoError(t, err)

	assert.Equal(t, []string{
		ToolNameBundle, ToolNameCard, ToolNameGate,
		ToolNameGraph, ToolNameListRuns, ToolNameManifest,
	}, srv.ListToolNames())
}

func TestNewServer_BuildsMetricInstrumentsWhenMeterProvided(t *testing.T) {
	srv, err := NewServer(ServerDeps{RunsRoot: t.TempDir(), Meter: noop.NewMeterProvider().Meter("test")})
	require.NoError(t, err)
	assert.NotNil(t, srv.calls)
	assert.NotNil(t, srv.duration)
}

func TestInstrument_RecordsStatusOnErrorResult(t *testing.T) {
	srv, err := NewServer(ServerDeps{RunsRoot: t.TempDir(), Meter: noop.NewMeterProvider().Meter("test")})
	require.NoError(t, err)

	wrapped := instrument(srv, "fake_tool", func(context.Context, *mcpsdk.CallToolRequest, RunInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
		return &mcpsdk.CallToolResult{IsError: true}, ToolOutput{}, nil
	})

	result, _, callErr := wrapped(context.Background(), nil, RunInput{})
	require.NoError(t, callErr)
	assert.True(t, result.IsError)
}
