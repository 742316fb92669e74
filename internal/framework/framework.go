package framework

import (
	"context"
	"io"

	"github.com/leefowlercu/veriview-gateway/pkg/types"
)

// HookFramework defines the interface for agent hook framework implementations
type HookFramework interface {
	// ParseInput reads and parses hook data from stdin
	ParseInput(reader io.Reader) (types.HookInput, error)

	// FormatOutput formats a decision as JSON for the framework
	FormatOutput(decision types.HookDecision, input types.HookInput) ([]byte, error)

	// GetExitCode returns the appropriate exit code for the framework based on the decision
	GetExitCode(decision types.HookDecision) int

	// GetName returns the framework name
	GetName() string

	// GetHandler returns the handler for the given input, or an error when none applies
	GetHandler(input types.HookInput) (HookHandler, error)
}

// HookHandler defines the interface for specific hook type handlers
type HookHandler interface {
	// ExtractTarget returns the URL the agent is about to visit
	ExtractTarget(ctx context.Context, input types.HookInput) (string, error)

	// MakeDecision converts a gateway verdict into a hook decision
	MakeDecision(ctx context.Context, verdict types.Verdict, input types.HookInput) types.HookDecision

	// GetType returns the hook type name
	GetType() string

	// CanHandle returns true if this handler can process the given hook input
	CanHandle(input types.HookInput) bool
}
