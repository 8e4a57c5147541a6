// Package commands implements scanledger's CLI command handlers.
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/scanledger/scanledger/internal/config"
	"github.com/scanledger/scanledger/internal/metrics"
	"github.com/scanledger/scanledger/internal/observability"
	"github.com/scanledger/scanledger/internal/orchestrator"
	"github.com/scanledger/scanledger/pkg/scanledgerapi"
)

// runFlags holds every --input/--config/... flag value bound by
// NewRunCommand, mirroring the abstract CLI surface of spec.md §6.
type runFlags struct {
	input  string
	config string

	presets []string
	include []string
	ignore  []string

	forceRebuild  bool
	noIncremental bool

	minCoverage      float64
	maxFailedTests   int
	maxLintWarnings  int
	maxCriticalVulns int

	noGraph      bool
	graphScope   string
	graphDiff    bool
	graphNoDiff  bool
	graphNoTests bool

	noDiagrams         bool
	diagramPresets     []string
	diagramFormats     []string
	diagramTheme       string
	diagramConcurrency int

	allowNetwork bool

	metricsFile string

	runsRoot string
	noColor  bool
	debug    bool
}

// NewRunCommand creates the `scanledger run` command.
func NewRunCommand() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Scan a source tree and produce a context bundle run",
		Long: `Run walks a source tree, extracts per-file entities and dependencies,
builds a knowledge graph, renders diagrams and explain cards, builds LLM
context bundles, and evaluates the configured quality gate.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRun(cmd, &f)
		},
	}

	bindRunFlags(cmd, &f)

	return cmd
}

func bindRunFlags(cmd *cobra.Command, f *runFlags) {
	cmd.Flags().StringVar(&f.input, "input", "", "Root directory to scan (required)")
	cmd.Flags().StringVar(&f.config, "config", "", "Configuration file path")
	cmd.Flags().StringSliceVar(&f.presets, "preset", nil, "Bundle preset to build (repeatable)")
	cmd.Flags().StringSliceVar(&f.include, "include", nil, "Glob to include (repeatable)")
	cmd.Flags().StringSliceVar(&f.ignore, "ignore", nil, "Glob to ignore (repeatable)")
	cmd.Flags().BoolVar(&f.forceRebuild, "force-rebuild", false, "Ignore the cache and rebuild everything")
	cmd.Flags().BoolVar(&f.noIncremental, "no-incremental", false, "Disable incremental cache reuse")

	cmd.Flags().Float64Var(&f.minCoverage, "min-coverage", 0, "Minimum line coverage percent to pass the gate")
	cmd.Flags().IntVar(&f.maxFailedTests, "max-failed-tests", 0, "Maximum failed test count to pass the gate")
	cmd.Flags().IntVar(&f.maxLintWarnings, "max-lint-warnings", 0, "Maximum lint warning count to pass the gate")
	cmd.Flags().IntVar(&f.maxCriticalVulns, "max-critical-vulns", 0, "Maximum critical vulnerability count to pass the gate")

	cmd.Flags().BoolVar(&f.noGraph, "no-graph", false, "Skip writing graph artifacts (still built internally)")
	cmd.Flags().StringVar(&f.graphScope, "graph-scope", "full", "Graph scope: full, code, dependencies, tests")
	cmd.Flags().BoolVar(&f.graphDiff, "graph-diff", true, "Diff against the previous run's graph")
	cmd.Flags().BoolVar(&f.graphNoDiff, "no-graph-diff", false, "Disable graph diffing")
	cmd.Flags().BoolVar(&f.graphNoTests, "graph-no-tests", false, "Exclude test nodes from diagram projections")

	cmd.Flags().BoolVar(&f.noDiagrams, "no-diagrams", false, "Skip diagram rendering")
	cmd.Flags().StringSliceVar(&f.diagramPresets, "diagram-preset", nil, "Diagram preset to render (repeatable)")
	cmd.Flags().StringSliceVar(&f.diagramFormats, "diagram-format", nil, "Diagram format to render (repeatable)")
	cmd.Flags().StringVar(&f.diagramTheme, "diagram-theme", "auto", "Diagram theme: light, dark, auto")
	cmd.Flags().IntVar(&f.diagramConcurrency, "diagram-concurrency", 0, "Diagram renderer worker count (0 = auto)")

	cmd.Flags().BoolVar(&f.allowNetwork, "allow-network", false, "Set privacy.allow_network in the resolved config (renderer probing is a local PATH lookup and always runs)")

	cmd.Flags().StringVar(&f.metricsFile, "metrics-file", "", "Path to a pre-normalized metrics JSON file (tests/coverage/lint/security)")

	cmd.Flags().StringVar(&f.runsRoot, "runs-root", "", "Directory under which run directories are created")
	cmd.Flags().BoolVar(&f.noColor, "no-color", false, "Disable colored progress output")
	cmd.Flags().BoolVar(&f.debug, "debug", false, "Enable 100% trace sampling and debug logging")
}

func runRun(cmd *cobra.Command, f *runFlags) error {
	cfg, err := buildConfig(cmd, f)
	if err != nil {
		return err
	}

	suppliedMetrics, err := loadMetricsFile(f.metricsFile)
	if err != nil {
		return err
	}

	providers, err := initObservability(f.debug)
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	defer func() {
		if shutdownErr := providers.Shutdown(ctx); shutdownErr != nil {
			providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
		}
	}()

	progress := progressPrinter(cmd.ErrOrStderr(), f.noColor)
	progress("scanning %s", f.input)

	outcome, runErr := orchestrator.Run(ctx, cfg, orchestrator.Options{
		RunsRoot: f.runsRoot,
		Logger:   providers.Logger,
		Tracer:   providers.Tracer,
		Meter:    providers.Meter,
		Metrics:  suppliedMetrics,
	})
	if runErr != nil {
		return mapRunError(runErr)
	}

	progress("run complete: %s (exit=%d)", outcome.RunDir, outcome.ExitCode)

	printGateTable(cmd.OutOrStdout(), outcome.GateReport)

	if outcome.ExitCode != orchestrator.ExitSuccess {
		return &ExitError{Code: outcome.ExitCode}
	}

	return nil
}

func buildConfig(cmd *cobra.Command, f *runFlags) (*config.Config, error) {
	if f.input == "" {
		return nil, &ExitError{Code: orchestrator.ExitConfigOrInvariant, Err: fmt.Errorf("--input is required")}
	}

	cfg, err := config.Load(f.config)
	if err != nil {
		return nil, &ExitError{Code: orchestrator.ExitConfigOrInvariant, Err: err}
	}

	cfg.Source.Input = f.input

	if cmd.Flags().Changed("include") {
		cfg.Source.Include = f.include
	}

	if cmd.Flags().Changed("ignore") {
		cfg.Source.Ignore = f.ignore
	}

	if cmd.Flags().Changed("preset") {
		cfg.Bundle.Presets = f.presets
	}

	cfg.Cache.ForceRebuild = f.forceRebuild
	cfg.Cache.NoIncremental = f.noIncremental

	if cmd.Flags().Changed("min-coverage") {
		v := f.minCoverage
		cfg.Gate.MinCoverage = &v
	}

	if cmd.Flags().Changed("max-failed-tests") {
		v := f.maxFailedTests
		cfg.Gate.MaxFailedTests = &v
	}

	if cmd.Flags().Changed("max-lint-warnings") {
		v := f.maxLintWarnings
		cfg.Gate.MaxLintWarnings = &v
	}

	if cmd.Flags().Changed("max-critical-vulns") {
		v := f.maxCriticalVulns
		cfg.Gate.MaxCriticalVulns = &v
	}

	cfg.Graph.Enabled = !f.noGraph
	if cmd.Flags().Changed("graph-scope") {
		cfg.Graph.Scope = f.graphScope
	}

	cfg.Graph.Diff = f.graphDiff && !f.graphNoDiff
	cfg.Graph.NoTests = f.graphNoTests

	cfg.Diagram.Enabled = !f.noDiagrams

	if cmd.Flags().Changed("diagram-preset") {
		cfg.Diagram.Presets = f.diagramPresets
	}

	if cmd.Flags().Changed("diagram-format") {
		cfg.Diagram.Formats = f.diagramFormats
	}

	if cmd.Flags().Changed("diagram-theme") {
		cfg.Diagram.Theme = f.diagramTheme
	}

	if cmd.Flags().Changed("diagram-concurrency") {
		cfg.Diagram.Concurrency = f.diagramConcurrency
	}

	cfg.Privacy.AllowNetwork = f.allowNetwork

	return cfg, nil
}

func loadMetricsFile(path string) (scanledgerapi.NormalizedMetrics, error) {
	if path == "" {
		return scanledgerapi.NormalizedMetrics{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return scanledgerapi.NormalizedMetrics{}, &ExitError{Code: orchestrator.ExitConfigOrInvariant, Err: fmt.Errorf("read metrics file: %w", err)}
	}

	var metrics scanledgerapi.NormalizedMetrics
	if err := json.Unmarshal(data, &metrics); err != nil {
		return scanledgerapi.NormalizedMetrics{}, &ExitError{Code: orchestrator.ExitConfigOrInvariant, Err: fmt.Errorf("decode metrics file: %w", err)}
	}

	return metrics, nil
}

func mapRunError(err error) error {
	switch err.(type) {
	case *orchestrator.ConfigError, *orchestrator.InputError, *orchestrator.InvariantError:
		return &ExitError{Code: orchestrator.ExitConfigOrInvariant, Err: err}
	}

	return &ExitError{Code: orchestrator.ExitFatalInternal, Err: err}
}

func initObservability(debug bool) (observability.Providers, error) {
	cfg := observability.Config{
		Format: "json",
	}

	if debug {
		cfg.DebugTrace = true
	}

	return observability.Init(cfg)
}

func progressPrinter(w io.Writer, noColor bool) func(format string, args ...any) {
	if noColor {
		color.NoColor = true //nolint:reassign // intentional override of library global
	}

	c := color.New(color.FgCyan)

	return func(format string, args ...any) {
		c.Fprintf(w, "scanledger: "+format+"\n", args...)
	}
}

func printGateTable(w io.Writer, report metrics.Report) {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Check", "Actual", "Verdict", "Reason"})

	for _, c := range report.Checks {
		tbl.AppendRow(table.Row{c.Name, c.Actual, c.Verdict, c.Reason})
	}

	tbl.AppendFooter(table.Row{"", "", "Overall", report.Verdict})
	tbl.Render()
}
