package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"

	"github.com/leefowlercu/veriview-gateway/internal/mcp"
	"github.com/spf13/cobra"
)

// Build metadata, injected by main
var (
	version   string
	buildTime string
	commit    string
)

// SetVersionInfo records the build metadata passed in from main
func SetVersionInfo(v, bt, c string) {
	version = v
	buildTime = bt
	commit = c
	rootCmd.Version = v
}

// buildInfo describes this gateway build and the surfaces it exposes
type buildInfo struct {
	Version   string   `json:"version"`
	BuildTime string   `json:"build_time"`
	Commit    string   `json:"commit"`
	GoVersion string   `json:"go_version"`
	Endpoints []string `json:"endpoints"`
	MCPTools  []string `json:"mcp_tools"`
}

func currentBuild() buildInfo {
	return buildInfo{
		Version:   version,
		BuildTime: buildTime,
		Commit:    commit,
		GoVersion: runtime.Version(),
		Endpoints: []string{
			"GET /api/v1/health",
			"POST /api/v1/navigate",
			"POST /api/v1/alert",
			"GET /api/v1/logs",
		},
		MCPTools: mcp.ToolNames(),
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display gateway build information",
	Long:  "Display the gateway version, build metadata, and the HTTP endpoints and MCP tools this build serves",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		return writeBuildInfo(cmd.OutOrStdout(), currentBuild(), asJSON)
	},
}

func init() {
	versionCmd.Flags().Bool("json", false, "Print build information as JSON")
}

func writeBuildInfo(w io.Writer, info buildInfo, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(info); err != nil {
			return fmt.Errorf("failed to write build information; %w", err)
		}
		return nil
	}

	fmt.Fprintf(w, "veriview-gateway %s (visual-structural consensus gateway)\n", info.Version)
	fmt.Fprintf(w, "  Build Time: %s\n", info.BuildTime)
	fmt.Fprintf(w, "  Commit:     %s\n", info.Commit)
	fmt.Fprintf(w, "  Go Version: %s\n", info.GoVersion)
	fmt.Fprintf(w, "  HTTP API:   %d endpoints under /api/v1\n", len(info.Endpoints))
	fmt.Fprintf(w, "  MCP Tools:  %v\n", info.MCPTools)
	return nil
}
