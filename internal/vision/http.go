package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/leefowlercu/veriview-gateway/internal/config"
	"github.com/leefowlercu/veriview-gateway/pkg/types"
)

const httpBackendName = "http"

const maxResponseBytes = 8 << 20

// analyzeRequest is the body sent to the vision service
type analyzeRequest struct {
	Image      string   `json:"image"`
	DOMPreview []string `json:"dom_preview"`
}

// HTTPAnalyzer calls an external vision service over HTTP
type HTTPAnalyzer struct {
	url     string
	timeout time.Duration
	client  *http.Client
	logger  *slog.Logger
}

// Force compile-time check for interface implementation
var _ Analyzer = (*HTTPAnalyzer)(nil)

// NewHTTPAnalyzer creates an analyzer that POSTs the screenshot to cfg.URL
func NewHTTPAnalyzer(cfg config.VisionConfig, logger *slog.Logger) *HTTPAnalyzer {
	return &HTTPAnalyzer{
		url:     cfg.URL,
		timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		client:  &http.Client{},
		logger:  logger,
	}
}

// GetName returns the backend name
func (a *HTTPAnalyzer) GetName() string {
	return httpBackendName
}

// Analyze sends the screenshot and structural preview to the vision service
func (a *HTTPAnalyzer) Analyze(ctx context.Context, vr types.VisionRequest) (types.VisionFinding, error) {
	startTime := time.Now()

	preview := vr.StructuralPreview
	if preview == nil {
		preview = []string{}
	}
	body, err := json.Marshal(analyzeRequest{Image: vr.ScreenshotBase64, DOMPreview: preview})
	if err != nil {
		return types.VisionFinding{}, types.Malformed(types.CollaboratorVision, fmt.Errorf("failed to encode request; %w", err))
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return types.VisionFinding{}, types.Unreachable(types.CollaboratorVision, fmt.Errorf("failed to build request; %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	a.logger.Debug("requesting visual analysis", "vision_url", a.url, "preview_items", len(preview))

	resp, err := a.client.Do(req)
	if err != nil {
		return types.VisionFinding{}, types.Unreachable(types.CollaboratorVision, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return types.VisionFinding{}, types.Unreachable(types.CollaboratorVision, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var wire wireFinding
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&wire); err != nil {
		return types.VisionFinding{}, types.Malformed(types.CollaboratorVision, fmt.Errorf("failed to decode response; %w", err))
	}

	finding, err := wire.toFinding()
	if err != nil {
		return types.VisionFinding{}, types.Malformed(types.CollaboratorVision, err)
	}

	a.logger.Debug("visual analysis received",
		"visible_text", len(finding.VisibleText),
		"ocr_text", len(finding.OCRText),
		"injection_attempt", finding.InjectionAttempt,
		"duration", time.Since(startTime))

	return finding, nil
}
