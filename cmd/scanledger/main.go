// Package main provides the entry point for the scanledger CLI tool.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scanledger/scanledger/cmd/scanledger/commands"
	"github.com/scanledger/scanledger/pkg/version"
)

var (
	verbose bool
	quiet   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "scanledger",
		Short: "Scanledger - source-tree scanner and LLM context bundler",
		Long: `Scanledger walks a source tree, builds a knowledge graph of its files
and dependencies, renders diagrams and explain cards, bundles context for
LLM ingestion, and evaluates a configurable quality gate.

Commands:
  run       Scan a source tree and produce a context bundle run
  render    Re-render diagrams from a finalized run's knowledge graph
  mcp       Serve run artifacts over the Model Context Protocol`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress output")

	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewRenderCommand())
	rootCmd.AddCommand(commands.NewMCPCommand())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		var exitErr *commands.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}

		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "scanledger %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
