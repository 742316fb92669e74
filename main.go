package main

import (
	"os"

	"github.com/leefowlercu/veriview-gateway/cmd"
)

// Build metadata, overridden with
// -ldflags "-X main.Version=... -X main.BuildTime=... -X main.Commit=..."
var (
	Version   = "dev"
	BuildTime = "unknown"
	Commit    = "unknown"
)

func main() {
	cmd.SetVersionInfo(Version, BuildTime, Commit)

	// Exit status 2 means the inspected page was blocked
	os.Exit(cmd.ExitCode(cmd.Execute()))
}
