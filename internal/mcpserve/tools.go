package mcpserve

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Tool name constants.
const (
	ToolNameListRuns = "scanledger_list_runs"
	ToolNameManifest = "scanledger_manifest"
	ToolNameBundle   = "scanledger_bundle"
	ToolNameGraph    = "scanledger_graph"
	ToolNameGate     = "scanledger_gate"
	ToolNameCard     = "scanledger_card"
)

// Tool description constants.
const (
	listRunsDescription = "List finalized scanledger run directories, newest first."
	manifestDescription = "Return a run's manifest.json: file records, registered " +
		"artifacts, diagnostics, and stage skips."
	bundleDescription = "Return one context bundle's text body for a run, preset, " +
		"and sequence number."
	graphDescription = "Return a run's knowledge graph as JSON-LD."
	gateDescription   = "Return a run's evaluated quality gate report."
	cardDescription = "Return one explain card's Markdown for a run and scope " +
		"(architecture, quality, or tests)."
)

// ToolOutput is a generic wrapper for structured tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

// RunInput identifies a run directory ("latest" or empty selects the
// most recently created run).
type RunInput struct {
	Run string `json:"run,omitempty" jsonschema:"run directory name, or omitted/'latest' for the most recent run"`
}

// BundleInput identifies one bundle sequence within a run.
type BundleInput struct {
	Run      string `json:"run,omitempty" jsonschema:"run directory name, or omitted/'latest' for the most recent run"`
	Preset   string `json:"preset"        jsonschema:"bundle preset name (all, api, tests, dependencies)"`
	Sequence int    `json:"sequence"      jsonschema:"1-based bundle sequence number within the preset"`
}

// CardInput identifies one explain card within a run.
type CardInput struct {
	Run   string `json:"run,omitempty" jsonschema:"run directory name, or omitted/'latest' for the most recent run"`
	Scope string `json:"scope"         jsonschema:"explain card scope: architecture, quality, or tests"`
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{Name: ToolNameListRuns, Description: listRunsDescription},
		instrument(s, ToolNameListRuns, handleListRuns(s.runsRoot)))
	s.trackTool(ToolNameListRuns)

	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{Name: ToolNameManifest, Description: manifestDescription},
		instrument(s, ToolNameManifest, handleManifest(s.runsRoot)))
	s.trackTool(ToolNameManifest)

	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{Name: ToolNameBundle, Description: bundleDescription},
		instrument(s, ToolNameBundle, handleBundle(s.runsRoot)))
	s.trackTool(ToolNameBundle)

	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{Name: ToolNameGraph, Description: graphDescription},
		instrument(s, ToolNameGraph, handleGraph(s.runsRoot)))
	s.trackTool(ToolNameGraph)

	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{Name: ToolNameGate, Description: gateDescription},
		instrument(s, ToolNameGate, handleGate(s.runsRoot)))
	s.trackTool(ToolNameGate)

	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{Name: ToolNameCard, Description: cardDescription},
		instrument(s, ToolNameCard, handleCard(s.runsRoot)))
	s.trackTool(ToolNameCard)
}

func handleListRuns(runsRoot string) func(context.Context, *mcpsdk.CallToolRequest, RunInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return func(_ context.Context, _ *mcpsdk.CallToolRequest, _ RunInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
		names, err := listRunDirs(runsRoot)
		if err != nil {
			return errorResult(err)
		}

		return jsonResult(names)
	}
}

func handleManifest(runsRoot string) func(context.Context, *mcpsdk.CallToolRequest, RunInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return func(_ context.Context, _ *mcpsdk.CallToolRequest, input RunInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
		runDir, err := resolveRunDir(runsRoot, input.Run)
		if err != nil {
			return errorResult(err)
		}

		manifest, err := readManifest(runDir)
		if err != nil {
			return errorResult(err)
		}

		return jsonResult(manifest)
	}
}

func handleBundle(runsRoot string) func(context.Context, *mcpsdk.CallToolRequest, BundleInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return func(_ context.Context, _ *mcpsdk.CallToolRequest, input BundleInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
		if input.Preset == "" {
			return errorResult(fmt.Errorf("preset parameter is required"))
		}

		if input.Sequence < 1 {
			return errorResult(fmt.Errorf("sequence must be 1 or greater"))
		}

		runDir, err := resolveRunDir(runsRoot, input.Run)
		if err != nil {
			return errorResult(err)
		}

		relName := fmt.Sprintf("%s-%d.txt", filepath.Base(input.Preset), input.Sequence)

		content, readErr := os.ReadFile(filepath.Join(runDir, "bundles", relName))
		if readErr != nil {
			return errorResult(fmt.Errorf("read bundle %s: %w", relName, readErr))
		}

		return textResult(string(content))
	}
}

func handleGraph(runsRoot string) func(context.Context, *mcpsdk.CallToolRequest, RunInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return func(_ context.Context, _ *mcpsdk.CallToolRequest, input RunInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
		runDir, err := resolveRunDir(runsRoot, input.Run)
		if err != nil {
			return errorResult(err)
		}

		content, readErr := os.ReadFile(filepath.Join(runDir, "graphs", "knowledge_graph.json"))
		if readErr != nil {
			return errorResult(fmt.Errorf("read knowledge graph: %w", readErr))
		}

		return textResult(string(content))
	}
}

func handleGate(runsRoot string) func(context.Context, *mcpsdk.CallToolRequest, RunInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return func(_ context.Context, _ *mcpsdk.CallToolRequest, input RunInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
		runDir, err := resolveRunDir(runsRoot, input.Run)
		if err != nil {
			return errorResult(err)
		}

		content, readErr := os.ReadFile(filepath.Join(runDir, "gates", "gate.json"))
		if readErr != nil {
			return errorResult(fmt.Errorf("read gate report: %w", readErr))
		}

		return textResult(string(content))
	}
}

func handleCard(runsRoot string) func(context.Context, *mcpsdk.CallToolRequest, CardInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return func(_ context.Context, _ *mcpsdk.CallToolRequest, input CardInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
		if input.Scope == "" {
			return errorResult(fmt.Errorf("scope parameter is required"))
		}

		runDir, err := resolveRunDir(runsRoot, input.Run)
		if err != nil {
			return errorResult(err)
		}

		indexData, readErr := os.ReadFile(filepath.Join(runDir, "cards", "index.json"))
		if readErr != nil {
			return errorResult(fmt.Errorf("read card index: %w", readErr))
		}

		var index []struct {
			ID    string `json:"id"`
			Scope string `json:"scope"`
		}
		if decErr := json.Unmarshal(indexData, &index); decErr != nil {
			return errorResult(fmt.Errorf("decode card index: %w", decErr))
		}

		for _, entry := range index {
			if entry.Scope != input.Scope {
				continue
			}

			content, mdErr := os.ReadFile(filepath.Join(runDir, "cards", entry.ID+".md"))
			if mdErr != nil {
				return errorResult(fmt.Errorf("read card %s: %w", entry.ID, mdErr))
			}

			return textResult(string(content))
		}

		return errorResult(fmt.Errorf("no card found for scope %q", input.Scope))
	}
}

func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}},
		IsError: true,
	}, ToolOutput{}, nil
}

func textResult(text string) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: text}},
	}, ToolOutput{Data: text}, nil
}

func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(data)}},
	}, ToolOutput{Data: value}, nil
}
