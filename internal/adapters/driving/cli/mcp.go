package cli

import (
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docwatch/internal/adapters/driving/mcp"
)

var mcpPort int

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can watch
documents and read their change history.

By default the server communicates over stdio. Use --port to serve
streamable HTTP instead. This command does not poll; run "docwatch serve"
for that, which also mounts the MCP endpoint at /mcp.

Examples:
  # Stdio mode (for desktop assistants)
  docwatch mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  docwatch mcp serve --port 8080

Assistant configuration:
  {
    "mcpServers": {
      "docwatch": {
        "command": "/path/to/docwatch",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntVarP(&mcpPort, "port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	if err := requireTracker(); err != nil {
		return err
	}
	tenant, err := currentTenant()
	if err != nil {
		return err
	}

	server, err := mcp.NewServer(&mcp.Ports{
		Tracker:    trackerService,
		Tenant:     tenant,
		ResolveRef: mcp.RefResolver(resolveRef),
	})
	if err != nil {
		return err
	}

	if mcpPort <= 0 {
		return server.Run(cmd.Context())
	}

	addr := fmt.Sprintf("127.0.0.1:%d", mcpPort)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://%s\n", addr)

	httpServer := &http.Server{Handler: server.Handler()} //nolint:gosec // local tool server
	go func() {
		<-cmd.Context().Done()
		_ = httpServer.Close()
	}()
	if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
