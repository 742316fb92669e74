package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Answer an agent hook invocation",
	Long: "Answer an agent hook invocation.\n\n" +
		"Reads the hook payload from stdin as JSON. Tool calls that carry a url are " +
		"inspected through the consensus pipeline and denied when the page is blocked. " +
		"The decision is written to stdout as JSON.",
	RunE: runHook,
}

func init() {
	hookCmd.Flags().String("framework", "", "Hook framework to use (e.g., 'claude')")

	// Mark framework flag as required
	hookCmd.MarkFlagRequired("framework")
}

func runHook(cmd *cobra.Command, args []string) error {
	framework, _ := cmd.Flags().GetString("framework")

	ctx := context.Background()
	g, err := newGateway(ctx)
	if err != nil {
		return err
	}
	defer g.Close()

	code, err := g.processor.ProcessHook(ctx, os.Stdin, os.Stdout, framework)
	if err != nil {
		return err
	}
	if code != 0 {
		return &exitCodeError{code: code}
	}
	return nil
}
