package vision

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leefowlercu/veriview-gateway/internal/config"
	"github.com/leefowlercu/veriview-gateway/internal/decision"
	"github.com/leefowlercu/veriview-gateway/pkg/types"
)

// Analyzer defines the interface for the vision collaborator
type Analyzer interface {
	// Analyze judges what a human would actually see in the screenshot.
	// Failures are *types.CollaboratorError values.
	Analyze(ctx context.Context, req types.VisionRequest) (types.VisionFinding, error)

	// GetName returns the backend name
	GetName() string
}

// New builds the analyzer selected by cfg.Backend
func New(ctx context.Context, cfg config.VisionConfig, logger *slog.Logger) (Analyzer, error) {
	switch cfg.Backend {
	case config.BackendHTTP, "":
		return NewHTTPAnalyzer(cfg, logger), nil
	case config.BackendBedrock:
		return NewBedrockAnalyzer(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown vision backend %q", cfg.Backend)
	}
}

// wireFinding mirrors the vision response. Required fields are pointers so
// that an absent field can be told apart from a zero one.
type wireFinding struct {
	VisibleText      *[]string `json:"visible_text"`
	InjectionAttempt *bool     `json:"injection_attempt"`
	RiskScore        *int      `json:"risk_score"`
	Reason           string    `json:"reason"`
	OCRText          []string  `json:"ocr_text"`
}

// toFinding validates a decoded response and converts it to the domain shape
func (w wireFinding) toFinding() (types.VisionFinding, error) {
	if w.VisibleText == nil {
		return types.VisionFinding{}, fmt.Errorf("missing visible_text")
	}
	if w.InjectionAttempt == nil {
		return types.VisionFinding{}, fmt.Errorf("missing injection_attempt")
	}

	finding := types.VisionFinding{
		VisibleText:      *w.VisibleText,
		InjectionAttempt: *w.InjectionAttempt,
		Narrative:        w.Reason,
		OCRText:          w.OCRText,
	}
	if w.RiskScore != nil {
		score := decision.Clamp(*w.RiskScore)
		finding.RiskScore = &score
	}

	return finding, nil
}
