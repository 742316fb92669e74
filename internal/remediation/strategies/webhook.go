package strategies

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/leefowlercu/veriview-gateway/internal/config"
	"github.com/leefowlercu/veriview-gateway/pkg/types"
)

// WebhookStrategyType identifies the webhook strategy in configuration
const WebhookStrategyType = "webhook"

const (
	webhookMaxRetries     = 3
	webhookRequestTimeout = 5 * time.Second
)

// WebhookStrategy posts incidents to an HTTP endpoint, retrying server errors
type WebhookStrategy struct {
	url     string
	headers map[string]string
	client  *http.Client
	backoff time.Duration // Base delay between attempts, multiplied by attempt number
}

// NewWebhookStrategy creates a new webhook strategy from configuration
func NewWebhookStrategy(cfg config.StrategyConfig) (*WebhookStrategy, error) {
	target, ok := cfg.Config["url"].(string)
	if !ok || target == "" {
		return nil, fmt.Errorf("url is required")
	}

	headers := map[string]string{}
	if raw, ok := cfg.Config["headers"].(map[string]any); ok {
		for k, v := range raw {
			headers[k] = fmt.Sprint(v)
		}
	}

	strategy := &WebhookStrategy{
		url:     target,
		headers: headers,
		client:  &http.Client{Timeout: webhookRequestTimeout},
		backoff: time.Second,
	}

	if err := strategy.Validate(); err != nil {
		return nil, err
	}

	return strategy, nil
}

// Execute posts the incident payload to the webhook
func (s *WebhookStrategy) Execute(ctx context.Context, input types.RemediationInput) types.RemediationResult {
	body, err := json.Marshal(input)
	if err != nil {
		return s.failure(fmt.Sprintf("Failed to encode incident: %v", err), err, 0)
	}

	attempts, err := s.send(ctx, body)
	if err != nil {
		return s.failure(fmt.Sprintf("Webhook failed: %v", err), err, attempts)
	}

	return types.RemediationResult{
		StrategyType: s.GetType(),
		Success:      true,
		Message:      fmt.Sprintf("Notified webhook %s", s.host()),
		Metadata: map[string]any{
			"url":      s.url,
			"attempts": attempts,
		},
	}
}

// send delivers body, retrying transport errors and 5xx responses.
// 4xx responses are permanent failures.
func (s *WebhookStrategy) send(ctx context.Context, body []byte) (int, error) {
	var lastErr error
	for attempt := 0; attempt < webhookMaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return attempt, ctx.Err()
			case <-time.After(time.Duration(attempt) * s.backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
		if err != nil {
			return attempt + 1, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range s.headers {
			req.Header.Set(k, v)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return attempt + 1, nil
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return attempt + 1, fmt.Errorf("webhook rejected: HTTP %d", resp.StatusCode)
		}
		lastErr = fmt.Errorf("webhook server error: HTTP %d", resp.StatusCode)
	}

	return webhookMaxRetries, fmt.Errorf("webhook failed after %d attempts: %w", webhookMaxRetries, lastErr)
}

// GetType returns the strategy type identifier
func (s *WebhookStrategy) GetType() string {
	return WebhookStrategyType
}

// Validate checks if the strategy configuration is valid
func (s *WebhookStrategy) Validate() error {
	u, err := url.Parse(s.url)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url must be http or https, got: %s", s.url)
	}
	return nil
}

func (s *WebhookStrategy) host() string {
	if u, err := url.Parse(s.url); err == nil && u.Host != "" {
		return u.Host
	}
	return s.url
}

func (s *WebhookStrategy) failure(message string, err error, attempts int) types.RemediationResult {
	return types.RemediationResult{
		StrategyType: s.GetType(),
		Success:      false,
		Message:      message,
		Error:        err,
		Metadata: map[string]any{
			"url":      s.url,
			"attempts": attempts,
		},
	}
}
