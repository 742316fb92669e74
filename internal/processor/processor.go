package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leefowlercu/veriview-gateway/internal/audit"
	"github.com/leefowlercu/veriview-gateway/internal/config"
	"github.com/leefowlercu/veriview-gateway/internal/decision"
	"github.com/leefowlercu/veriview-gateway/internal/keywords"
	"github.com/leefowlercu/veriview-gateway/internal/reconcile"
	"github.com/leefowlercu/veriview-gateway/internal/remediation"
	"github.com/leefowlercu/veriview-gateway/internal/renderer"
	"github.com/leefowlercu/veriview-gateway/internal/vision"
	"github.com/leefowlercu/veriview-gateway/pkg/types"
)

// Risk scores attached to audit entries that are not produced by the decision engine
const (
	warningRiskScore = 50
	alertRiskScore   = 50
)

// Options tune the decision phase
type Options struct {
	BlockedSentinel string // Sole snapshot item returned for blocked pages
	PreviewLimit    int    // Maximum structural items sent to the vision collaborator
}

// Processor drives the consensus pipeline for each navigate request
type Processor struct {
	logger            *slog.Logger
	renderer          renderer.Renderer
	analyzer          vision.Analyzer
	decisionEngine    *decision.Engine
	remediationEngine remediation.Executor
	audit             audit.Recorder
	opts              Options
	now               func() time.Time
}

// NewProcessor creates a new processor from its collaborators
func NewProcessor(
	r renderer.Renderer,
	a vision.Analyzer,
	engine *decision.Engine,
	rem remediation.Executor,
	recorder audit.Recorder,
	opts Options,
	logger *slog.Logger,
) *Processor {
	if opts.BlockedSentinel == "" {
		opts.BlockedSentinel = config.DefaultConfig.Decision.BlockedSentinel
	}
	if opts.PreviewLimit <= 0 {
		opts.PreviewLimit = config.DefaultConfig.Decision.PreviewLimit
	}

	return &Processor{
		logger:            logger,
		renderer:          r,
		analyzer:          a,
		decisionEngine:    engine,
		remediationEngine: rem,
		audit:             recorder,
		opts:              opts,
		now:               time.Now,
	}
}

// NewFromConfig wires a processor with the backends selected in cfg
func NewFromConfig(ctx context.Context, cfg *config.Config, classifier *keywords.Classifier, recorder audit.Recorder, logger *slog.Logger) (*Processor, error) {
	r, err := renderer.New(cfg.Renderer, logger.With("component", "renderer"))
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer; %w", err)
	}

	a, err := vision.New(ctx, cfg.Vision, logger.With("component", "vision"))
	if err != nil {
		return nil, fmt.Errorf("failed to create vision analyzer; %w", err)
	}

	remediationEngine := remediation.NewEngine(cfg.Remediation, remediation.NewDefaultRegistry(), logger.With("component", "remediation"))

	logger.Debug("processor configured",
		"renderer", r.GetName(),
		"vision", a.GetName(),
		"remediation_enabled", cfg.Remediation.Enabled)

	return NewProcessor(
		r,
		a,
		decision.NewEngine(classifier),
		remediationEngine,
		recorder,
		Options{
			BlockedSentinel: cfg.Decision.BlockedSentinel,
			PreviewLimit:    cfg.Decision.PreviewLimit,
		},
		logger,
	), nil
}

// Navigate inspects url and returns the verdict. It never fails: collaborator
// failures are expressed in the verdict itself.
func (p *Processor) Navigate(ctx context.Context, url string) types.Verdict {
	startTime := time.Now()
	run := &navigation{p: p, url: url}

	run.record(types.PhaseHandshake, 0, "Handshake: inspecting %s", url)

	// Structural fetch is fatal on failure
	snapshot, err := p.renderer.Render(ctx, url)
	if err != nil {
		return p.failClosed(ctx, run, err)
	}

	run.record(types.PhaseStructural, 0, "Structural scan complete: %d nodes, %d flagged by renderer",
		len(snapshot.Nodes), len(snapshot.SuspiciousNodes))
	if len(snapshot.SuspiciousNodes) > 0 {
		run.record(types.PhaseStructural, warningRiskScore, "Renderer flagged %d hidden elements", len(snapshot.SuspiciousNodes))
	}

	preview := reconcile.Preview(snapshot.Nodes, p.opts.PreviewLimit)

	// Visual analysis is non-fatal on failure
	finding, err := p.analyzer.Analyze(ctx, types.VisionRequest{
		ScreenshotBase64:  snapshot.ScreenshotBase64,
		StructuralPreview: preview,
	})
	if err != nil {
		run.record(types.PhaseVisual, 0, "Vision analysis degraded (%s); continuing with structural signals only", describeFailure(err))
		finding = types.VisionFinding{}
	} else {
		visionScore := 0
		if finding.RiskScore != nil {
			visionScore = *finding.RiskScore
		}
		narrative := finding.Narrative
		if narrative == "" {
			narrative = "no narrative"
		}
		run.record(types.PhaseVisual, visionScore, "Vision analysis: %d visible items, injection=%t: %s",
			len(finding.VisibleText), finding.InjectionAttempt, narrative)
	}

	// Reconciliation and scoring
	visual := make([]string, 0, len(finding.VisibleText)+len(finding.OCRText))
	visual = append(visual, finding.VisibleText...)
	visual = append(visual, finding.OCRText...)
	hidden := reconcile.Hidden(preview, visual)

	assessment := p.decisionEngine.Evaluate(decision.Signals{
		VisionRiskScore:  finding.RiskScore,
		HiddenItems:      hidden,
		SuspiciousNodes:  snapshot.SuspiciousNodes,
		InjectionAttempt: finding.InjectionAttempt,
		VisionNarrative:  finding.Narrative,
	})

	run.record(types.PhaseVisual, assessment.RiskScore, "Reconciliation: %d hidden items, %d ghost text threats",
		len(hidden), len(assessment.GhostText))

	// Decision
	var safe []string
	switch {
	case assessment.Blocked:
		safe = []string{p.opts.BlockedSentinel}
	case len(finding.VisibleText) > 0:
		safe = finding.VisibleText
	default:
		safe = preview
	}

	outcome := "ALLOWED"
	if assessment.Blocked {
		outcome = "BLOCKED"
	}
	run.record(types.PhaseDecision, assessment.RiskScore, "Decision: %s (risk %d)", outcome, assessment.RiskScore)

	verdict := types.Verdict{
		SafeSnapshot:        safe,
		InteractiveElements: reconcile.InteractiveElements(snapshot.Nodes),
		RiskScore:           assessment.RiskScore,
		Blocked:             assessment.Blocked,
		Reason:              assessment.Reason,
		HiddenItems:         hidden,
		AuditTrail:          run.trail,
	}

	p.remediate(ctx, &verdict, url)

	p.logger.Info("navigation inspected",
		"url", url,
		"risk_score", verdict.RiskScore,
		"blocked", verdict.Blocked,
		"hidden_items", len(hidden),
		"ghost_text", len(assessment.GhostText),
		"duration", time.Since(startTime))

	return verdict
}

// Alert records an out-of-band report, typically from the in-page watchdog
func (p *Processor) Alert(ctx context.Context, alert types.Alert) types.AlertResponse {
	p.logger.Warn("watchdog alert received",
		"url", alert.URL,
		"alert_type", alert.AlertType,
		"details", alert.Details)

	p.record(types.AuditEntry{
		URL:       alert.URL,
		Phase:     types.PhaseWatchdog,
		Message:   fmt.Sprintf("%s: %s", alert.AlertType, alert.Details),
		RiskScore: alertRiskScore,
	})

	return types.AlertResponse{Status: "received", Message: "Alert logged"}
}

// failClosed builds the maximum-risk verdict returned when the page could not be fetched
func (p *Processor) failClosed(ctx context.Context, run *navigation, err error) types.Verdict {
	reason := fmt.Sprintf("Structural fetch failed (%s); content withheld", describeFailure(err))
	run.record(types.PhaseStructural, decision.MaxRiskScore, "%s", reason)

	p.logger.Error("structural fetch failed", "url", run.url, "error", err)

	verdict := types.Verdict{
		SafeSnapshot:        []string{p.opts.BlockedSentinel},
		InteractiveElements: []types.InteractiveElement{},
		RiskScore:           decision.MaxRiskScore,
		Blocked:             true,
		Reason:              reason,
		AuditTrail:          run.trail,
	}

	p.remediate(ctx, &verdict, run.url)

	return verdict
}

// remediate runs post-decision actions and folds their summary into the reason
func (p *Processor) remediate(ctx context.Context, verdict *types.Verdict, url string) {
	if p.remediationEngine == nil {
		return
	}

	results := p.remediationEngine.Execute(ctx, types.RemediationInput{
		URL:       url,
		Verdict:   *verdict,
		Timestamp: p.now(),
	})

	if results.Executed {
		p.logger.Info("remediation executed",
			"protocol", results.ProtocolName,
			"strategies", len(results.Results),
			"duration", results.TotalDuration)

		decision.EnrichWithRemediation(verdict, results)
	}
}

// record appends to the shared audit log. A failing recorder never fails the request.
func (p *Processor) record(entry types.AuditEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = p.now()
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn("audit append failed", "phase", entry.Phase, "panic", r)
		}
	}()

	p.audit.Record(entry)
}

// navigation accumulates the per-request audit trail
type navigation struct {
	p     *Processor
	url   string
	trail []string
}

func (n *navigation) record(phase types.Phase, riskScore int, format string, args ...any) {
	message := fmt.Sprintf(format, args...)
	n.trail = append(n.trail, fmt.Sprintf("[%s] %s", phase, message))

	n.p.logger.Debug("pipeline phase", "url", n.url, "phase", phase.String(), "message", message, "risk_score", riskScore)

	n.p.record(types.AuditEntry{
		URL:       n.url,
		Phase:     phase,
		Message:   message,
		RiskScore: riskScore,
	})
}

// describeFailure renders a collaborator error for audit messages
func describeFailure(err error) string {
	var collabErr *types.CollaboratorError
	if !errors.As(err, &collabErr) {
		return err.Error()
	}

	kind := "failed"
	switch {
	case errors.Is(err, types.ErrUnreachable):
		kind = "unreachable"
	case errors.Is(err, types.ErrMalformed):
		kind = "returned a malformed response"
	}

	if collabErr.Err == nil {
		return fmt.Sprintf("%s %s", collabErr.Collaborator, kind)
	}
	return fmt.Sprintf("%s %s: %v", collabErr.Collaborator, kind, collabErr.Err)
}
