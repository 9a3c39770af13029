package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/aretw0/lattice/internal/cli"
	"github.com/aretw0/lattice/pkg/adapters/mcp"
)

func newMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the Model Context Protocol (MCP) server",
		Long: `Exposes validation, conversion, Mermaid rendering and the process catalog as MCP tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			transport, _ := cmd.Flags().GetString("transport")
			port, _ := cmd.Flags().GetInt("port")

			// Notifications would corrupt JSON-RPC on stdout; logs already go to stderr.
			env, err := openEnv(cmd, cli.EnvOptions{Quiet: true})
			if err != nil {
				return err
			}
			defer env.Close()

			srv := mcp.NewServer(env.Workspace)
			logger := env.Logger

			switch transport {
			case "stdio":
				logger.Info("Starting Lattice MCP server (stdio)")
				return srv.ServeStdio()
			case "sse":
				logger.Info("Starting Lattice MCP server (SSE)", "port", port)
				sigCtx := cli.NewSignalContext(cmd.Context())
				defer sigCtx.Cancel()

				if err := srv.ServeSSE(sigCtx, port); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				logger.Info("MCP server stopped gracefully")
				return nil
			default:
				return fmt.Errorf("unknown transport %q; supported: stdio, sse", transport)
			}
		},
	}
	cmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	cmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
	return cmd
}
