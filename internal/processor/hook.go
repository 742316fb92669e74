package processor

import (
	"context"
	"fmt"
	"io"

	"github.com/leefowlercu/veriview-gateway/internal/framework"
	"github.com/leefowlercu/veriview-gateway/internal/framework/claude"
	"github.com/leefowlercu/veriview-gateway/pkg/types"
)

func init() {
	framework.RegisterFramework("claude", claude.NewFramework())
}

// ProcessHook answers one agent hook invocation: it reads the hook payload
// from stdin, inspects the target URL, and writes the framework's decision
// to stdout. It returns the exit code the framework expects.
func (p *Processor) ProcessHook(ctx context.Context, stdin io.Reader, stdout io.Writer, frameworkName string) (int, error) {
	p.logger.Info("processing hook request", "framework", frameworkName)

	fw, err := framework.GetFramework(frameworkName)
	if err != nil {
		return 1, fmt.Errorf("failed to get framework; %w", err)
	}

	hookInput, err := fw.ParseInput(stdin)
	if err != nil {
		p.logger.Error("failed to parse input", "error", err)
		return 1, fmt.Errorf("failed to parse input; %w", err)
	}

	p.logger.Info("parsed hook input",
		"framework", hookInput.Framework,
		"hook_type", hookInput.HookType)

	// Hooks that carry no URL pass through untouched
	hookDecision := types.HookDecision{}

	handler, err := fw.GetHandler(hookInput)
	if err != nil {
		p.logger.Debug("no handler for hook input; allowing", "hook_type", hookInput.HookType, "reason", err)
	} else {
		target, err := handler.ExtractTarget(ctx, hookInput)
		if err != nil {
			p.logger.Error("failed to extract target", "error", err)
			return 1, fmt.Errorf("failed to extract target; %w", err)
		}

		verdict := p.Navigate(ctx, target)
		hookDecision = handler.MakeDecision(ctx, verdict, hookInput)

		p.logger.Info("hook decision made",
			"handler", handler.GetType(),
			"url", target,
			"block", hookDecision.Block)
	}

	output, err := fw.FormatOutput(hookDecision, hookInput)
	if err != nil {
		p.logger.Error("failed to format output", "error", err)
		return 1, fmt.Errorf("failed to format output; %w", err)
	}

	if _, err := stdout.Write(append(output, '\n')); err != nil {
		p.logger.Error("failed to write output", "error", err)
		return 1, fmt.Errorf("failed to write output; %w", err)
	}

	return fw.GetExitCode(hookDecision), nil
}
