package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/leefowlercu/veriview-gateway/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "veriview-gateway",
	Short: "Visual-structural consensus gateway for AI agent browsing",
	Long: "\nveriview-gateway inspects web pages on behalf of AI agents before they read them.\n\n" +
		"Each page is rendered twice over: once as a structural tree and once as a screenshot " +
		"judged by a vision model. Only text present in both is returned to the agent; text " +
		"that exists in the page structure but is invisible to a human (ghost text) raises " +
		"the risk score and can block the page outright.\n\n" +
		"Logging is sent to stderr to keep stdout clean for agent communication.",
	PersistentPreRunE: runInit,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to configuration file (default: ~/.veriview/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", config.DefaultConfig.Logging.Level, "Logging level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", config.DefaultConfig.Logging.Format, "Logging format (json, text, auto)")

	// Bind flags to viper
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(hookCmd)
	rootCmd.AddCommand(versionCmd)

	// Enable --version flag on root command
	rootCmd.Version = version
	rootCmd.SetVersionTemplate("veriview-gateway version {{.Version}}\n")
}

func runInit(cmd *cobra.Command, args []string) error {
	// Get custom config path if provided
	configPath, _ := cmd.Flags().GetString("config")

	err := config.InitConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to initialize configuration; %w", err)
	}

	return nil
}

// exitCodeError carries a non-zero exit status that is not a failure to report
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// ExitCode maps an Execute error to a process exit status
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exitCodeError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	return 1
}

func Execute() error {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	err := rootCmd.Execute()

	var exitErr *exitCodeError
	if err != nil && !errors.As(err, &exitErr) {
		cmd, _, _ := rootCmd.Find(os.Args[1:])
		if cmd == nil {
			cmd = rootCmd
		}

		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if !cmd.SilenceUsage {
			fmt.Fprintf(os.Stderr, "\n")
			cmd.SetOut(os.Stderr)
			cmd.Usage()
		}
	}

	return err
}
