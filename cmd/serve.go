package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/leefowlercu/veriview-gateway/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gateway HTTP API",
	Long: "Run the gateway HTTP API.\n\n" +
		"Endpoints:\n" +
		"  GET  /api/v1/health    liveness probe\n" +
		"  POST /api/v1/navigate  inspect a URL and return the sanitized verdict\n" +
		"  POST /api/v1/alert     record an out-of-band watchdog alert\n" +
		"  GET  /api/v1/logs      read the audit log (?limit=N)",
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("address", "", "Listen address (default from server.address)")
	viper.BindPFlag("server.address", serveCmd.Flags().Lookup("address"))
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, err := newGateway(ctx)
	if err != nil {
		return err
	}
	defer g.Close()

	g.watchKeywords(ctx)

	srv := server.New(g.cfg.Server, g.processor, g.auditLog, g.logger.With("component", "server"))
	return srv.Run(ctx)
}
