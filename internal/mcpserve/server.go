// Package mcpserve implements scanledger's Model Context Protocol server
// (spec.md §1: "context bundles suitable for LLM ingestion"), exposing a
// finalized run directory's manifest, bundles, knowledge graph, gate
// report, and explain cards as MCP tools over stdio transport.
package mcpserve

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	serverName    = "scanledger"
	serverVersion = "1.0.0"

	toolCount = 6
)

// ServerDeps holds injectable dependencies for the MCP server. Zero-value
// fields use production defaults (nil Logger uses slog.Default, nil
// Tracer/Meter disable tracing/metrics).
type ServerDeps struct {
	RunsRoot string

	Logger *slog.Logger
	Tracer trace.Tracer
	Meter  metric.Meter
}

// Server wraps the MCP SDK server with scanledger's run-artifact tools.
type Server struct {
	inner *mcpsdk.Server

	mu    sync.RWMutex
	tools []string

	runsRoot string
	tracer   trace.Tracer
	calls    metric.Int64Counter
	duration metric.Float64Histogram
}

// NewServer creates an MCP server with every run-artifact tool registered.
func NewServer(deps ServerDeps) (*Server, error) {
	opts := &mcpsdk.ServerOptions{}
	if deps.Logger != nil {
		opts.Logger = deps.Logger
	}

	inner := mcpsdk.NewServer(&mcpsdk.Implementation{Name: serverName, Version: serverVersion}, opts)

	srv := &Server{
		inner:    inner,
		tools:    make([]string, 0, toolCount),
		runsRoot: deps.RunsRoot,
		tracer:   deps.Tracer,
	}

	if deps.Meter != nil {
		calls, err := deps.Meter.Int64Counter("scanledger.mcp.calls")
		if err != nil {
			return nil, fmt.Errorf("build mcp call counter: %w", err)
		}

		duration, err := deps.Meter.Float64Histogram("scanledger.mcp.call_duration_seconds")
		if err != nil {
			return nil, fmt.Errorf("build mcp call duration histogram: %w", err)
		}

		srv.calls = calls
		srv.duration = duration
	}

	srv.registerTools()

	return srv, nil
}

// ListToolNames returns the sorted names of every registered tool.
func (s *Server) ListToolNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.tools))
	copy(names, s.tools)
	sort.Strings(names)

	return names
}

// Run starts the server on stdio transport, blocking until ctx is
// canceled or the connection closes.
func (s *Server) Run(ctx context.Context) error {
	if err := s.inner.Run(ctx, &mcpsdk.StdioTransport{}); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

func (s *Server) trackTool(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools = append(s.tools, name)
}

const mcpSpanPrefix = "scanledger.mcp."

// instrument wraps a tool handler with a per-call span (when a tracer is
// configured) and RED-style counters (when a meter is configured),
// mirroring the teacher's withTracing/withMetrics wrapper pair.
func instrument[Input any](
	s *Server,
	toolName string,
	handler func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error),
) func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		start := time.Now()

		if s.tracer != nil {
			var span trace.Span
			ctx, span = s.tracer.Start(ctx, mcpSpanPrefix+toolName,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(attribute.String("mcp.tool", toolName)))
			defer span.End()
		}

		result, output, err := handler(ctx, req, input)

		status := "ok"
		if err != nil || (result != nil && result.IsError) {
			status = "error"
		}

		if s.calls != nil {
			s.calls.Add(ctx, 1, metric.WithAttributes(
				attribute.String("tool", toolName), attribute.String("status", status)))
		}

		if s.duration != nil {
			s.duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attribute.String("tool", toolName)))
		}

		return result, output, err
	}
}
