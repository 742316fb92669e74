package renderer

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

// maxResponseBytes bounds how much of a renderer response is read
const maxResponseBytes = 64 << 20

// HTTPRenderer calls an external rendering service over HTTP
type HTTPRenderer struct {
	url     string
	timeout time.Duration
	client  *http.Client
	logger  *slog.Logger
}

// Force compile-time check for interface implementation
var _ Renderer = (*HTTPRenderer)(nil)

// NewHTTPRenderer creates a renderer that POSTs {"url"} to cfg.URL
func NewHTTPRenderer(cfg config.RendererConfig, logger *slog.Logger) *HTTPRenderer {
	return &HTTPRenderer{
		url:     cfg.URL,
		timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		client:  &http.Client{},
		logger:  logger,
	}
}

// GetName returns the backend name
func (r *HTTPRenderer) GetName() string {
	return httpBackendName
}

// Render requests a snapshot of url from the rendering service
func (r *HTTPRenderer) Render(ctx context.Context, url string) (types.StructuralSnapshot, error) {
	startTime := time.Now()

	body, err := json.Marshal(types.NavigateRequest{URL: url})
	if err != nil {
		return types.StructuralSnapshot{}, types.Malformed(types.CollaboratorRenderer, fmt.Errorf("failed to encode request; %w", err))
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return types.StructuralSnapshot{}, types.Unreachable(types.CollaboratorRenderer, fmt.Errorf("failed to build request; %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	r.logger.Debug("requesting snapshot", "renderer_url", r.url, "url", url)

	resp, err := r.client.Do(req)
	if err != nil {
		return types.StructuralSnapshot{}, types.Unreachable(types.CollaboratorRenderer, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return types.StructuralSnapshot{}, types.Unreachable(types.CollaboratorRenderer, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var wire wireSnapshot
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&wire); err != nil {
		return types.StructuralSnapshot{}, types.Malformed(types.CollaboratorRenderer, fmt.Errorf("failed to decode response; %w", err))
	}

	snapshot, err := wire.toSnapshot()
	if err != nil {
		return types.StructuralSnapshot{}, types.Malformed(types.CollaboratorRenderer, err)
	}

	r.logger.Debug("snapshot received",
		"url", url,
		"nodes", len(snapshot.Nodes),
		"suspicious_nodes", len(snapshot.SuspiciousNodes),
		"duration", time.Since(startTime))

	return snapshot, nil
}
