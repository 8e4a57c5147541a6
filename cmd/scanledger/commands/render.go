package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/scanledger/scanledger/internal/diagram"
	"github.com/scanledger/scanledger/internal/graph"
	"github.com/scanledger/scanledger/internal/orchestrator"
)

// renderFlags holds the flags bound by NewRenderCommand.
type renderFlags struct {
	run                string
	diagramPresets     []string
	diagramFormats     []string
	diagramTheme       string
	diagramConcurrency int
}

// NewRenderCommand creates the `scanledger render` command, which
// re-projects diagrams from an already-finalized run's persisted
// knowledge graph, without rescanning the source tree.
func NewRenderCommand() *cobra.Command {
	var f renderFlags

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Re-render diagrams from a finalized run's knowledge graph",
		Long: `Render reads graphs/knowledge_graph.json from an existing run
directory and re-renders diagrams against it, letting --diagram-preset,
--diagram-format, and --diagram-theme differ from the original run
without a rescan.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRender(cmd, &f)
		},
	}

	cmd.Flags().StringVar(&f.run, "run", "", "Run directory to render from (required)")
	cmd.Flags().StringSliceVar(&f.diagramPresets, "diagram-preset", []string{"architecture", "dependencies", "tests"}, "Diagram preset to render (repeatable)")
	cmd.Flags().StringSliceVar(&f.diagramFormats, "diagram-format", []string{"mermaid"}, "Diagram format to render (repeatable)")
	cmd.Flags().StringVar(&f.diagramTheme, "diagram-theme", "auto", "Diagram theme: light, dark, auto")
	cmd.Flags().IntVar(&f.diagramConcurrency, "diagram-concurrency", 0, "Diagram renderer worker count (0 = auto)")

	return cmd
}

func runRender(cmd *cobra.Command, f *renderFlags) error {
	if f.run == "" {
		return &orchestrator.ConfigError{Err: fmt.Errorf("--run is required")}
	}

	graphPath := filepath.Join(f.run, "graphs", "knowledge_graph.json")

	data, err := os.ReadFile(graphPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", graphPath, err)
	}

	g, err := graph.DecodeGraph(data)
	if err != nil {
		return fmt.Errorf("decode %s: %w", graphPath, err)
	}

	requests, err := buildDiagramRequests(f)
	if err != nil {
		return err
	}

	results, err := diagram.Generate(cmd.Context(), g, requests, nil, diagram.Options{Workers: f.diagramConcurrency})
	if err != nil {
		var themeErr *diagram.ThemeViolationError
		if errors.As(err, &themeErr) {
			return err
		}

		return fmt.Errorf("render diagrams: %w", err)
	}

	diagramsDir := filepath.Join(f.run, "diagrams")
	if err := os.MkdirAll(diagramsDir, 0o750); err != nil {
		return fmt.Errorf("create %s: %w", diagramsDir, err)
	}

	for _, r := range results {
		srcPath := filepath.Join(diagramsDir, fmt.Sprintf("%s.%s.src", r.Request.Preset, r.Request.Format))
		if err := os.WriteFile(srcPath, r.Text, 0o640); err != nil {
			return fmt.Errorf("write %s: %w", srcPath, err)
		}

		if len(r.FallbackSVG) > 0 {
			svgPath := filepath.Join(diagramsDir, fmt.Sprintf("%s.%s.svg", r.Request.Preset, r.Request.Format))
			if err := os.WriteFile(svgPath, r.FallbackSVG, 0o640); err != nil {
				return fmt.Errorf("write %s: %w", svgPath, err)
			}
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "rendered %d diagram(s) into %s\n", len(results), diagramsDir)

	return nil
}

func buildDiagramRequests(f *renderFlags) ([]diagram.Request, error) {
	presets := append([]string(nil), f.diagramPresets...)
	sort.Strings(presets)

	formats := append([]string(nil), f.diagramFormats...)
	sort.Strings(formats)

	var requests []diagram.Request

	for _, p := range presets {
		if err := diagram.ValidatePreset(diagram.Preset(p)); err != nil {
			return nil, err
		}

		for _, fmtName := range formats {
			if err := diagram.ValidateFormat(diagram.Format(fmtName)); err != nil {
				return nil, err
			}

			requests = append(requests, diagram.Request{
				Preset: diagram.Preset(p),
				Format: diagram.Format(fmtName),
				Theme:  diagram.Theme(f.diagramTheme),
			})
		}
	}

	return requests, nil
}
