package mcp

import (
	"context"
	"fmt"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/leefowlercu/veriview-gateway/pkg/types"
)

// --- Input/Output types ---

// NavigateInput defines parameters for the veriview_navigate tool.
type NavigateInput struct {
	URL string `json:"url" jsonschema:"absolute http or https URL to inspect"`
}

// InteractiveElement is an actionable element the agent may refer to by handle.
type InteractiveElement struct {
	ElementID string `json:"vv_id"`
	Tag       string `json:"tag"`
	Text      string `json:"text"`
}

// NavigateOutput is the sanitized verdict for one page.
type NavigateOutput struct {
	SafeSnapshot        []string             `json:"safe_snapshot"`
	InteractiveElements []InteractiveElement `json:"interactive_elements"`
	RiskScore           int                  `json:"risk_score"`
	Blocked             bool                 `json:"blocked"`
	Reason              string               `json:"reason,omitempty"`
	HiddenItems         []string             `json:"hidden_items,omitempty"`
	Logs                []string             `json:"logs"`
}

// LogsInput defines parameters for the veriview_logs tool.
type LogsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of most recent entries, omit for all"`
}

// LogEntry is one audit event rendered for MCP clients.
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	URL       string `json:"url"`
	Phase     string `json:"phase"`
	Message   string `json:"message"`
	RiskScore int    `json:"risk_score"`
}

// LogsOutput lists audit entries oldest first.
type LogsOutput struct {
	Entries []LogEntry `json:"entries"`
}

// --- Handlers ---

func (s *Server) handleNavigate(ctx context.Context, req *mcpsdk.CallToolRequest, input NavigateInput) (*mcpsdk.CallToolResult, NavigateOutput, error) {
	if err := types.ValidateTargetURL(input.URL); err != nil {
		return nil, NavigateOutput{}, err
	}

	verdict := s.navigator.Navigate(ctx, input.URL)

	out := NavigateOutput{
		SafeSnapshot:        verdict.SafeSnapshot,
		InteractiveElements: make([]InteractiveElement, 0, len(verdict.InteractiveElements)),
		RiskScore:           verdict.RiskScore,
		Blocked:             verdict.Blocked,
		Reason:              verdict.Reason,
		HiddenItems:         verdict.HiddenItems,
		Logs:                verdict.AuditTrail,
	}
	if out.SafeSnapshot == nil {
		out.SafeSnapshot = []string{}
	}
	if out.Logs == nil {
		out.Logs = []string{}
	}
	for _, el := range verdict.InteractiveElements {
		out.InteractiveElements = append(out.InteractiveElements, InteractiveElement(el))
	}

	s.logger.Debug("mcp navigate handled", "url", input.URL, "risk_score", out.RiskScore, "blocked", out.Blocked)

	if out.Blocked {
		return &mcpsdk.CallToolResult{IsError: true}, out, nil
	}
	return nil, out, nil
}

func (s *Server) handleLogs(ctx context.Context, req *mcpsdk.CallToolRequest, input LogsInput) (*mcpsdk.CallToolResult, LogsOutput, error) {
	if input.Limit < 0 {
		return nil, LogsOutput{}, fmt.Errorf("limit must be non-negative, got %d", input.Limit)
	}

	entries := s.audit.Tail(input.Limit)
	out := LogsOutput{Entries: make([]LogEntry, 0, len(entries))}
	for _, e := range entries {
		out.Entries = append(out.Entries, LogEntry{
			Timestamp: e.Timestamp.UTC().Format(time.RFC3339Nano),
			URL:       e.URL,
			Phase:     e.Phase.String(),
			Message:   e.Message,
			RiskScore: e.RiskScore,
		})
	}

	return nil, out, nil
}
