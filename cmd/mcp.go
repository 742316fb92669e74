package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/leefowlercu/veriview-gateway/internal/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the gateway as MCP tools over stdio",
	Long: "Serve the gateway as Model Context Protocol tools over stdio.\n\n" +
		"Tools:\n" +
		"  veriview_navigate  inspect a URL and return the sanitized verdict\n" +
		"  veriview_logs      read the audit log",
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, err := newGateway(ctx)
	if err != nil {
		return err
	}
	defer g.Close()

	g.watchKeywords(ctx)

	return mcp.New(version, g.processor, g.auditLog, g.logger.With("component", "mcp")).Run(ctx)
}
