package claude

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/leefowlercu/veriview-gateway/internal/framework"
	"github.com/leefowlercu/veriview-gateway/pkg/types"
)

const preToolUseType = "PreToolUse"

// PreToolUseHandler inspects URLs before a tool such as WebFetch visits them
type PreToolUseHandler struct{}

// Force compile-time check for interface implementation
var _ framework.HookHandler = (*PreToolUseHandler)(nil)

// NewPreToolUseHandler creates a new PreToolUse handler
func NewPreToolUseHandler() *PreToolUseHandler {
	return &PreToolUseHandler{}
}

// ExtractTarget returns the url argument of the pending tool call
func (h *PreToolUseHandler) ExtractTarget(ctx context.Context, input types.HookInput) (string, error) {
	var toolInput PreToolUseInput

	// Marshal and unmarshal to convert map to struct
	data, err := json.Marshal(input.RawData)
	if err != nil {
		return "", fmt.Errorf("failed to marshal input data; %w", err)
	}

	if err := json.Unmarshal(data, &toolInput); err != nil {
		return "", fmt.Errorf("failed to unmarshal PreToolUse input; %w", err)
	}

	target, _ := toolInput.ToolInput["url"].(string)
	if strings.TrimSpace(target) == "" {
		return "", fmt.Errorf("tool %q has no url argument", toolInput.ToolName)
	}

	return target, nil
}

// MakeDecision denies the tool call when the gateway blocked the page
func (h *PreToolUseHandler) MakeDecision(ctx context.Context, verdict types.Verdict, input types.HookInput) types.HookDecision {
	decision := types.HookDecision{
		Block: verdict.Blocked,
		Metadata: map[string]any{
			"risk_score": verdict.RiskScore,
		},
	}

	if len(verdict.HiddenItems) > 0 {
		decision.Metadata["hidden_items"] = len(verdict.HiddenItems)
	}

	if verdict.Blocked {
		reason := fmt.Sprintf("VeriView blocked this page (risk score %d)", verdict.RiskScore)
		if verdict.Reason != "" {
			reason += ":\n\n" + verdict.Reason
		}
		decision.Reason = reason
	}

	return decision
}

// GetType returns the hook type name
func (h *PreToolUseHandler) GetType() string {
	return preToolUseType
}

// CanHandle returns true for PreToolUse calls whose tool input carries a url
func (h *PreToolUseHandler) CanHandle(input types.HookInput) bool {
	if input.Framework != frameworkName || input.HookType != preToolUseType {
		return false
	}
	toolInput, ok := input.RawData["tool_input"].(map[string]any)
	if !ok {
		return false
	}
	target, ok := toolInput["url"].(string)
	return ok && target != ""
}
