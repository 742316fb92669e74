// Package client is a Go client for the VeriView gateway.
//
// Inspect never returns an error. When the gateway cannot be reached the
// client returns a synthetic report: blocked at maximum risk when fail-secure
// (the default), or allowed with an error snapshot when fail-open.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/leefowlercu/veriview-gateway/pkg/types"
)

const (
	DefaultTimeout     = 60 * time.Second
	healthCheckTimeout = 5 * time.Second
	maxRiskScore       = 100
	maxResponseBytes   = 16 << 20
)

// Config holds client settings
type Config struct {
	GatewayURL string        // Base URL of the gateway, e.g. http://localhost:8082
	Timeout    time.Duration // Per-request timeout; zero means DefaultTimeout
	FailSecure *bool         // Block on gateway errors; nil means true
	Logger     *slog.Logger  // Optional; discards when nil
}

// Bool returns a pointer to b, for Config.FailSecure
func Bool(b bool) *bool { return &b }

// SecurityReport is the client-side view of a gateway verdict
type SecurityReport struct {
	Blocked      bool                       `json:"blocked"`
	RiskScore    int                        `json:"risk_score"`
	RiskReason   string                     `json:"risk_reason"`
	SafeSnapshot []string                   `json:"safe_snapshot"`
	SafeElements []types.InteractiveElement `json:"safe_elements"`
	HiddenItems  []string                   `json:"hidden_items,omitempty"`
	Logs         []string                   `json:"logs"`
}

// Client talks to a VeriView gateway over HTTP
type Client struct {
	baseURL    string
	timeout    time.Duration
	failSecure bool
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a client for the gateway at cfg.GatewayURL
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	failSecure := true
	if cfg.FailSecure != nil {
		failSecure = *cfg.FailSecure
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.GatewayURL, "/"),
		timeout:    timeout,
		failSecure: failSecure,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// GatewayURL returns the configured gateway base URL
func (c *Client) GatewayURL() string {
	return c.baseURL
}

// Inspect asks the gateway to inspect url
func (c *Client) Inspect(ctx context.Context, url string) SecurityReport {
	var verdict types.Verdict
	if err := c.do(ctx, http.MethodPost, "/api/v1/navigate", types.NavigateRequest{URL: url}, &verdict); err != nil {
		c.logger.Warn("gateway request failed", "url", url, "fail_secure", c.failSecure, "error", err)
		return c.failureReport(err)
	}

	return toReport(verdict)
}

// HealthCheck reports whether the gateway answers its health endpoint
func (c *Client) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/health", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("health check failed", "error", err)
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode == http.StatusOK
}

// Logs returns the gateway's audit log, oldest first. limit <= 0 returns all entries.
func (c *Client) Logs(ctx context.Context, limit int) ([]types.AuditEntry, error) {
	path := "/api/v1/logs"
	if limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, limit)
	}

	var entries []types.AuditEntry
	if err := c.do(ctx, http.MethodGet, path, nil, &entries); err != nil {
		return nil, fmt.Errorf("failed to fetch audit log; %w", err)
	}
	return entries, nil
}

// Alert forwards an out-of-band report to the gateway
func (c *Client) Alert(ctx context.Context, alert types.Alert) (types.AlertResponse, error) {
	var resp types.AlertResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/alert", alert, &resp); err != nil {
		return types.AlertResponse{}, fmt.Errorf("failed to send alert; %w", err)
	}
	return resp, nil
}

// statusError is a non-2xx gateway response
type statusError struct {
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("gateway returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("gateway returned status %d: %s", e.StatusCode, e.Body)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request; %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request; %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read response; %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &statusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response; %w", err)
	}
	return nil
}

// failureReport builds the synthetic report returned when the gateway is unavailable
func (c *Client) failureReport(err error) SecurityReport {
	reason := c.describe(err)

	if c.failSecure {
		return SecurityReport{
			Blocked:      true,
			RiskScore:    maxRiskScore,
			RiskReason:   "FAIL-SECURE: " + reason,
			SafeSnapshot: []string{},
			SafeElements: []types.InteractiveElement{},
			Logs: []string{
				"Gateway connection failed",
				"Error: " + reason,
				"FAIL-SECURE: Blocking page due to security service unavailability",
			},
		}
	}

	return SecurityReport{
		Blocked:      false,
		RiskScore:    0,
		RiskReason:   "FAIL-OPEN: " + reason + " (proceeding without verification)",
		SafeSnapshot: []string{"[ERROR] " + reason},
		SafeElements: []types.InteractiveElement{},
		Logs: []string{
			"Gateway connection failed",
			"Error: " + reason,
			"FAIL-OPEN: Allowing page despite security service unavailability",
		},
	}
}

func (c *Client) describe(err error) string {
	var statusErr *statusError
	var netErr net.Error

	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Sprintf("VeriView Gateway offline (%s)", c.baseURL)
	case errors.As(err, &statusErr) && statusErr.StatusCode >= 500:
		return "VeriView Gateway internal error"
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Sprintf("Request timeout (>%s)", c.timeout)
	default:
		return fmt.Sprintf("Gateway error: %v", err)
	}
}

func toReport(v types.Verdict) SecurityReport {
	report := SecurityReport{
		Blocked:      v.Blocked,
		RiskScore:    v.RiskScore,
		RiskReason:   riskReason(v),
		SafeSnapshot: v.SafeSnapshot,
		SafeElements: v.InteractiveElements,
		HiddenItems:  v.HiddenItems,
		Logs:         v.AuditTrail,
	}
	if report.SafeSnapshot == nil {
		report.SafeSnapshot = []string{}
	}
	if report.SafeElements == nil {
		report.SafeElements = []types.InteractiveElement{}
	}
	return report
}

// riskReason prefers the gateway's own explanation and falls back to the audit trail
func riskReason(v types.Verdict) string {
	if v.Reason != "" {
		return v.Reason
	}
	if !v.Blocked {
		return "Page passed visual-structural consensus verification"
	}

	for _, line := range v.AuditTrail {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "ghost text detected") {
			return "Hidden prompt injection detected in page structure (ghost text with dangerous keywords)"
		}
	}
	for _, line := range v.AuditTrail {
		if strings.Contains(strings.ToLower(line), "flagged") {
			return "Suspicious hidden elements found (opacity, size, or position anomalies)"
		}
	}
	return fmt.Sprintf("Security threat detected (Risk score: %d)", v.RiskScore)
}
