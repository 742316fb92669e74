package mcp

import (
	"context"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/leefowlercu/veriview-gateway/pkg/types"
)

// Navigator runs the consensus pipeline
type Navigator interface {
	Navigate(ctx context.Context, url string) types.Verdict
}

// AuditReader exposes the shared audit log
type AuditReader interface {
	Tail(n int) []types.AuditEntry
}

// Server wraps the MCP SDK server with the gateway's inspection tools.
type Server struct {
	mcpServer *mcpsdk.Server
	navigator Navigator
	audit     AuditReader
	logger    *slog.Logger
}

// New creates an MCP server exposing the gateway tools.
func New(version string, navigator Navigator, audit AuditReader, logger *slog.Logger) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{
		mcpServer: mcpsdk.NewServer(&mcpsdk.Implementation{
			Name:    "veriview-gateway",
			Version: version,
		}, nil),
		navigator: navigator,
		audit:     audit,
		logger:    logger,
	}

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport. Blocks until ctx is cancelled
// or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("mcp server starting on stdio")
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// Tool names exposed by the server
const (
	ToolNavigate = "veriview_navigate"
	ToolLogs     = "veriview_logs"
)

// ToolNames lists the tools registered on every server
func ToolNames() []string {
	return []string{ToolNavigate, ToolLogs}
}

// registerTools adds all gateway tools to the MCP server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        ToolNavigate,
		Description: "Inspect a URL through the VeriView consensus pipeline. Returns only the text that is both present in the page structure and visible to a human, plus actionable elements. Blocked pages return an error result with the reason.",
	}, s.handleNavigate)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        ToolLogs,
		Description: "List recent entries from the gateway audit log, oldest first.",
	}, s.handleLogs)
}
