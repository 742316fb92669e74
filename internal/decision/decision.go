package decision

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/leefowlercu/veriview-gateway/internal/keywords"
	"github.com/leefowlercu/veriview-gateway/pkg/types"
)

// MaxRiskScore is the score forced by any strong signal of hidden intent
const MaxRiskScore = 100

// threatTextLimit bounds how much of a suspicious node's text is echoed into reasons
const threatTextLimit = 120

// Signals are the inputs to one risk assessment
type Signals struct {
	VisionRiskScore  *int                   // Vision collaborator's own score, if any
	HiddenItems      []string               // Structural text with no visual counterpart
	SuspiciousNodes  []types.SuspiciousNode // Nodes the renderer flagged as hidden
	InjectionAttempt bool                   // Vision collaborator saw a prompt injection
	VisionNarrative  string                 // Vision collaborator's explanation
}

// Assessment is the engine's verdict on a set of signals
type Assessment struct {
	RiskScore int
	Blocked   bool
	GhostText []string // Dangerous hidden content, formatted for humans
	Reason    string
}

// BlockThreshold is the score a page must exceed to be blocked
const BlockThreshold = 50

// Engine aggregates risk signals into a bounded score and a block decision
type Engine struct {
	classifier *keywords.Classifier
}

// NewEngine creates a new decision engine
func NewEngine(classifier *keywords.Classifier) *Engine {
	return &Engine{
		classifier: classifier,
	}
}

// Evaluate applies the aggregation rules and produces an assessment.
//
// Rules, in order, never lowering the score:
//  1. start from the vision score, or 0 when absent
//  2. dangerous ghost text (hidden items or renderer-flagged nodes) forces 100
//  3. an injection attempt forces 100
//  4. clamp to [0,100]
func (e *Engine) Evaluate(s Signals) Assessment {
	ghost := e.GhostText(s.HiddenItems, s.SuspiciousNodes)

	score := 0
	if s.VisionRiskScore != nil {
		score = *s.VisionRiskScore
	}
	if len(ghost) > 0 {
		score = MaxRiskScore
	}
	if s.InjectionAttempt {
		score = MaxRiskScore
	}
	score = Clamp(score)

	assessment := Assessment{
		RiskScore: score,
		Blocked:   e.IsBlocked(score),
		GhostText: ghost,
	}
	assessment.Reason = e.buildReasonMessage(assessment, s)

	return assessment
}

// Aggregate computes the bounded risk score from reconciliation output alone
func (e *Engine) Aggregate(visionRiskScore *int, hiddenItems []string, injectionAttempt bool) int {
	return e.Evaluate(Signals{
		VisionRiskScore:  visionRiskScore,
		HiddenItems:      hiddenItems,
		InjectionAttempt: injectionAttempt,
	}).RiskScore
}

// IsBlocked reports whether score exceeds BlockThreshold
func (e *Engine) IsBlocked(score int) bool {
	return score > BlockThreshold
}

// GhostText lists the hidden content that the keyword classifier marks as
// dangerous, from both reconciliation and the renderer's own suspicious nodes
func (e *Engine) GhostText(hiddenItems []string, suspicious []types.SuspiciousNode) []string {
	threats := []string{}

	for _, item := range hiddenItems {
		if keyword, ok := e.classifier.Match(item); ok {
			threats = append(threats, fmt.Sprintf("%q (keyword %q, not visible on screen)", item, keyword))
		}
	}

	for _, node := range suspicious {
		if e.classifier.Classify(node.Text) {
			threats = append(threats, fmt.Sprintf("[%s] (%s) %q", node.Tag, node.ReasonCodes, truncate(node.Text, threatTextLimit)))
		}
	}

	return threats
}

// Clamp bounds a score to [0,100]
func Clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > MaxRiskScore {
		return MaxRiskScore
	}
	return score
}

// buildReasonMessage creates a human-readable explanation of the outcome
func (e *Engine) buildReasonMessage(a Assessment, s Signals) string {
	var sb strings.Builder

	if len(a.GhostText) > 0 {
		sb.WriteString("Ghost text detected: ")
		if len(a.GhostText) == 1 {
			sb.WriteString("1 hidden element")
		} else {
			sb.WriteString(strconv.Itoa(len(a.GhostText)))
			sb.WriteString(" hidden elements")
		}
		sb.WriteString(" with dangerous keywords:\n")
		for i, threat := range a.GhostText {
			sb.WriteString(strconv.Itoa(i + 1))
			sb.WriteString(". ")
			sb.WriteString(threat)
			sb.WriteString("\n")
		}
	}

	if s.InjectionAttempt {
		sb.WriteString("Visual prompt injection reported by vision analysis.\n")
	}

	if sb.Len() == 0 {
		if a.Blocked {
			sb.WriteString("Vision analysis rated the page high risk (score ")
			sb.WriteString(strconv.Itoa(a.RiskScore))
			sb.WriteString(").")
		} else {
			sb.WriteString("Page passed visual-structural consensus verification.")
		}
		if s.VisionNarrative != "" {
			sb.WriteString(" Vision: ")
			sb.WriteString(s.VisionNarrative)
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}

// EnrichWithRemediation appends remediation results to the verdict reason
func EnrichWithRemediation(verdict *types.Verdict, results types.RemediationResults) {
	if !results.Executed || len(results.Results) == 0 {
		return
	}

	summary := buildRemediationSummary(results)
	if verdict.Reason != "" {
		verdict.Reason += "\n\n" + summary
	} else {
		verdict.Reason = summary
	}
}

// buildRemediationSummary creates a formatted summary of remediation results
func buildRemediationSummary(results types.RemediationResults) string {
	var sb strings.Builder

	sb.WriteString("Remediation actions taken (")
	sb.WriteString(strconv.Itoa(len(results.Results)))
	if len(results.Results) == 1 {
		sb.WriteString(" strategy, ")
	} else {
		sb.WriteString(" strategies, ")
	}
	sb.WriteString(formatDuration(results.TotalDuration))
	sb.WriteString(" total):")

	for _, result := range results.Results {
		sb.WriteString("\n  ")

		if result.Success {
			sb.WriteString("✓ ") // U+2713 check mark
		} else {
			sb.WriteString("✗ ") // U+2717 ballot x
		}

		sb.WriteString(result.Message)

		sb.WriteString(" (")
		sb.WriteString(formatDuration(result.Duration))
		sb.WriteString(")")
	}

	return sb.String()
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	ms := d.Milliseconds()

	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}

	seconds := float64(ms) / 1000.0
	return fmt.Sprintf("%.1fs", seconds)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
