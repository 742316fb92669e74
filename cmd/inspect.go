package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/leefowlercu/veriview-gateway/pkg/client"
	"github.com/leefowlercu/veriview-gateway/pkg/types"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// blockedExitCode is returned by inspect when the page is blocked
const blockedExitCode = 2

var inspectCmd = &cobra.Command{
	Use:   "inspect <url>",
	Short: "Inspect a single URL and print the verdict",
	Long: "Inspect a single URL and print the verdict.\n\n" +
		"By default the pipeline runs in-process using the configured collaborators. " +
		"With --gateway the request is sent to a running gateway instead.\n\n" +
		"Output is human-readable on a terminal and JSON otherwise. " +
		"The command exits with status 2 when the page is blocked.",
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().String("gateway", "", "Base URL of a running gateway (e.g., http://localhost:8082)")
	inspectCmd.Flags().Bool("json", false, "Force JSON output")
	inspectCmd.Flags().Bool("fail-open", false, "With --gateway, allow the page when the gateway is unreachable")
	inspectCmd.Flags().Duration("timeout", client.DefaultTimeout, "With --gateway, request timeout")
}

// inspection is the command's output shape for both in-process and remote runs
type inspection struct {
	URL          string                     `json:"url"`
	Blocked      bool                       `json:"blocked"`
	RiskScore    int                        `json:"risk_score"`
	Reason       string                     `json:"reason,omitempty"`
	SafeSnapshot []string                   `json:"safe_snapshot"`
	Elements     []types.InteractiveElement `json:"interactive_elements"`
	HiddenItems  []string                   `json:"hidden_items,omitempty"`
	Logs         []string                   `json:"logs"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	target := args[0]
	gatewayURL, _ := cmd.Flags().GetString("gateway")
	forceJSON, _ := cmd.Flags().GetBool("json")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var result inspection
	if gatewayURL != "" {
		failOpen, _ := cmd.Flags().GetBool("fail-open")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		result = inspectRemote(ctx, gatewayURL, target, !failOpen, timeout)
	} else {
		g, err := newGateway(ctx)
		if err != nil {
			return err
		}
		defer g.Close()

		result = fromVerdict(target, g.processor.Navigate(ctx, target))
	}

	out := cmd.OutOrStdout()
	if forceJSON || !term.IsTerminal(int(os.Stdout.Fd())) {
		if err := writeJSON(out, result); err != nil {
			return err
		}
	} else {
		writePretty(out, result)
	}

	if result.Blocked {
		return &exitCodeError{code: blockedExitCode}
	}
	return nil
}

func inspectRemote(ctx context.Context, gatewayURL, target string, failSecure bool, timeout time.Duration) inspection {
	c := client.New(client.Config{
		GatewayURL: gatewayURL,
		Timeout:    timeout,
		FailSecure: client.Bool(failSecure),
	})

	report := c.Inspect(ctx, target)
	return inspection{
		URL:          target,
		Blocked:      report.Blocked,
		RiskScore:    report.RiskScore,
		Reason:       report.RiskReason,
		SafeSnapshot: report.SafeSnapshot,
		Elements:     report.SafeElements,
		HiddenItems:  report.HiddenItems,
		Logs:         report.Logs,
	}
}

func fromVerdict(target string, v types.Verdict) inspection {
	return inspection{
		URL:          target,
		Blocked:      v.Blocked,
		RiskScore:    v.RiskScore,
		Reason:       v.Reason,
		SafeSnapshot: v.SafeSnapshot,
		Elements:     v.InteractiveElements,
		HiddenItems:  v.HiddenItems,
		Logs:         v.AuditTrail,
	}
}

func writeJSON(w io.Writer, result inspection) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to write result; %w", err)
	}
	return nil
}

func writePretty(w io.Writer, result inspection) {
	status := "ALLOWED"
	if result.Blocked {
		status = "BLOCKED"
	}

	fmt.Fprintf(w, "%s  %s  (risk %d/100)\n", status, result.URL, result.RiskScore)
	if result.Reason != "" {
		fmt.Fprintf(w, "\n%s\n", strings.TrimSpace(result.Reason))
	}

	if len(result.HiddenItems) > 0 {
		fmt.Fprintf(w, "\nHidden text (%d):\n", len(result.HiddenItems))
		for _, item := range result.HiddenItems {
			fmt.Fprintf(w, "  - %s\n", item)
		}
	}

	fmt.Fprintf(w, "\nVerified snapshot (%d):\n", len(result.SafeSnapshot))
	for _, item := range result.SafeSnapshot {
		fmt.Fprintf(w, "  %s\n", item)
	}

	if len(result.Elements) > 0 {
		fmt.Fprintf(w, "\nInteractive elements (%d):\n", len(result.Elements))
		for _, el := range result.Elements {
			fmt.Fprintf(w, "  [%s] %s: %s\n", el.ElementID, el.Tag, el.Text)
		}
	}

	fmt.Fprintf(w, "\nAudit trail:\n")
	for _, line := range result.Logs {
		fmt.Fprintf(w, "  %s\n", line)
	}
}
