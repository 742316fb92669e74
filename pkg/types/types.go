package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// StructuralNode is one element extracted from the rendered page's structural tree
type StructuralNode struct {
	Text          string  `json:"text"`
	Tag           string  `json:"tag"`
	IsInteractive bool    `json:"interactive"`
	ElementID     *string `json:"vv_id,omitempty"` // Stable handle for later interaction
	IsOccluded    *bool   `json:"occluded,omitempty"`
}

// SuspiciousNode is a structural node the rendering collaborator itself flagged as hidden
type SuspiciousNode struct {
	Text        string `json:"text"`
	Tag         string `json:"tag"`
	ReasonCodes string `json:"reasons"` // Freeform, collaborator-defined
}

// StructuralSnapshot is the rendering collaborator's output for one URL
type StructuralSnapshot struct {
	Nodes            []StructuralNode
	SuspiciousNodes  []SuspiciousNode // nil when the collaborator reported none
	ScreenshotBase64 string
}

// VisionFinding is the result of the visual analysis of one screenshot.
// The zero value is the degraded default used when the vision collaborator is unavailable.
type VisionFinding struct {
	VisibleText      []string
	InjectionAttempt bool
	RiskScore        *int // nil when the collaborator did not score the page
	Narrative        string
	OCRText          []string
}

// VisionRequest is what the orchestrator hands to the vision collaborator
type VisionRequest struct {
	ScreenshotBase64  string
	StructuralPreview []string
}

// InteractiveElement is an actionable element passed through to the agent
type InteractiveElement struct {
	ElementID string `json:"vv_id"`
	Tag       string `json:"tag"`
	Text      string `json:"text"`
}

// Verdict is the gateway's decision for one navigate request
type Verdict struct {
	SafeSnapshot        []string             `json:"safe_snapshot"`
	InteractiveElements []InteractiveElement `json:"interactive_elements"`
	RiskScore           int                  `json:"risk_score"`
	Blocked             bool                 `json:"blocked"`
	Reason              string               `json:"reason,omitempty"`
	HiddenItems         []string             `json:"hidden_items,omitempty"`
	AuditTrail          []string             `json:"logs"`
}

// NavigateRequest is the inbound request to inspect a URL
type NavigateRequest struct {
	URL string `json:"url"`
}

// Alert is an out-of-band report, typically from an in-page watchdog
type Alert struct {
	URL       string `json:"url"`
	AlertType string `json:"alert_type"`
	Details   string `json:"details"`
}

// AlertResponse acknowledges an Alert
type AlertResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Phase identifies the pipeline stage that produced an audit entry
type Phase int

const (
	PhaseHandshake Phase = iota
	PhaseStructural
	PhaseVisual
	PhaseDecision
	PhaseWatchdog
)

var phaseNames = [...]string{
	PhaseHandshake:  "Handshake",
	PhaseStructural: "Structural",
	PhaseVisual:     "Visual",
	PhaseDecision:   "Decision",
	PhaseWatchdog:   "Watchdog",
}

// String returns the display name of the phase
func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return phaseNames[p]
}

// ParsePhase converts a display name back into a Phase
func ParsePhase(s string) (Phase, error) {
	for i, name := range phaseNames {
		if strings.EqualFold(name, s) {
			return Phase(i), nil
		}
	}
	return 0, fmt.Errorf("unknown phase %q", s)
}

// MarshalText encodes the phase as its display name
func (p Phase) MarshalText() ([]byte, error) {
	if p < 0 || int(p) >= len(phaseNames) {
		return nil, fmt.Errorf("invalid phase %d", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase from its display name
func (p *Phase) UnmarshalText(text []byte) error {
	parsed, err := ParsePhase(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// AuditEntry is one structured event in the shared audit log
type AuditEntry struct {
	Timestamp time.Time `json:"timestamp"`
	URL       string    `json:"url"`
	Phase     Phase     `json:"phase"`
	Message   string    `json:"message"`
	RiskScore int       `json:"risk_score"`
}

// String renders the entry the way it appears in console output
func (e AuditEntry) String() string {
	return fmt.Sprintf("[%s] %s | %s | risk=%d", e.Phase, e.URL, e.Message, e.RiskScore)
}

// RemediationInput contains all context needed for remediation strategies
type RemediationInput struct {
	URL       string    // URL that was inspected
	Verdict   Verdict   // Verdict produced by the decision phase
	Timestamp time.Time // When the remediation is being executed
}

// MarshalJSON renders the incident payload shared by the log and webhook strategies
func (in RemediationInput) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"timestamp":    in.Timestamp.UTC().Format(time.RFC3339),
		"url":          in.URL,
		"risk_score":   in.Verdict.RiskScore,
		"blocked":      in.Verdict.Blocked,
		"reason":       in.Verdict.Reason,
		"hidden_items": in.Verdict.HiddenItems,
	})
}

// RemediationResult represents the result of executing a single remediation strategy
type RemediationResult struct {
	StrategyType string         // Type of strategy that executed (e.g., "log", "webhook")
	Success      bool           // Whether the strategy executed successfully
	Message      string         // User-facing summary message
	Duration     time.Duration  // How long the strategy took to execute
	Metadata     map[string]any // Additional metadata from the strategy
	Error        error          // Error if the strategy failed
}

// RemediationResults represents the aggregate results from executing a remediation protocol
type RemediationResults struct {
	Executed      bool                // Whether remediation was executed
	Results       []RemediationResult // Individual strategy results
	TotalDuration time.Duration       // Total time for all strategies
	ProtocolName  string              // Name of the protocol that was executed
}

// HookInput represents parsed input from an agent hook framework
type HookInput struct {
	Framework string         // Framework name (e.g., "claude")
	HookType  string         // Hook type (e.g., "PreToolUse")
	RawData   map[string]any // Raw JSON data from stdin
}

// HookDecision is the answer returned to an agent hook framework
type HookDecision struct {
	Block    bool           // Whether to block the tool call
	Reason   string         // Human-readable explanation
	Metadata map[string]any // Additional metadata for the hook framework
}
