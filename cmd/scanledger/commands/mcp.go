package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scanledger/scanledger/internal/mcpserve"
)

// NewMCPCommand creates the `scanledger mcp` command, which serves a
// runs-root's finalized artifacts over MCP stdio transport.
func NewMCPCommand() *cobra.Command {
	var (
		runsRoot string
		debug    bool
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve run artifacts over the Model Context Protocol",
		Long: `Mcp starts an MCP server on stdio exposing the manifests, bundles,
knowledge graphs, gate reports, and explain cards of every finalized run
under --runs-root as tools an LLM client can call.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMCP(cmd, runsRoot, debug)
		},
	}

	cmd.Flags().StringVar(&runsRoot, "runs-root", "runs", "Directory containing finalized run directories")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable 100% trace sampling and debug logging")

	return cmd
}

func runMCP(cmd *cobra.Command, runsRoot string, debug bool) error {
	providers, err := initObservability(debug)
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	ctx := cmd.Context()

	defer func() {
		if shutdownErr := providers.Shutdown(ctx); shutdownErr != nil {
			providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
		}
	}()

	srv, err := mcpserve.NewServer(mcpserve.ServerDeps{
		RunsRoot: runsRoot,
		Logger:   providers.Logger,
		Tracer:   providers.Tracer,
		Meter:    providers.Meter,
	})
	if err != nil {
		return fmt.Errorf("build mcp server: %w", err)
	}

	if err := srv.Run(ctx); err != nil {
		return &ExitError{Code: 1, Err: err}
	}

	return nil
}
