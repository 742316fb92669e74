package renderer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/leefowlercu/veriview-gateway/internal/config"
	"github.com/leefowlercu/veriview-gateway/pkg/types"
)

const chromeBackendName = "chrome"

// ChromeRenderer renders pages in an in-process headless Chrome
type ChromeRenderer struct {
	cfg     config.ChromeConfig
	timeout time.Duration
	logger  *slog.Logger
}

// Force compile-time check for interface implementation
var _ Renderer = (*ChromeRenderer)(nil)

// NewChromeRenderer creates a chromedp-backed renderer. A browser is started
// per Render call so that pages never share state.
func NewChromeRenderer(cfg config.RendererConfig, logger *slog.Logger) *ChromeRenderer {
	return &ChromeRenderer{
		cfg:     cfg.Chrome,
		timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		logger:  logger,
	}
}

// GetName returns the backend name
func (r *ChromeRenderer) GetName() string {
	return chromeBackendName
}

// Render navigates to url, sanitizes the DOM and captures a JPEG screenshot
func (r *ChromeRenderer) Render(ctx context.Context, url string) (types.StructuralSnapshot, error) {
	startTime := time.Now()

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, r.allocatorOptions()...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			r.logger.Debug(fmt.Sprintf(format, args...), "component", "chromedp")
		}))
	defer cancelBrowser()

	tasks, raw, screenshot, err := r.buildTasks(url)
	if err != nil {
		return types.StructuralSnapshot{}, types.Unreachable(types.CollaboratorRenderer, err)
	}

	r.logger.Debug("rendering page in chrome", "url", url, "watchdog", r.cfg.WatchdogURL != "")

	if err := chromedp.Run(browserCtx, tasks); err != nil {
		return types.StructuralSnapshot{}, types.Unreachable(types.CollaboratorRenderer, fmt.Errorf("chrome render failed; %w", err))
	}

	snapshot, err := parseEvaluation(*raw, *screenshot)
	if err != nil {
		return types.StructuralSnapshot{}, types.Malformed(types.CollaboratorRenderer, err)
	}

	r.logger.Debug("chrome render completed",
		"url", url,
		"nodes", len(snapshot.Nodes),
		"suspicious_nodes", len(snapshot.SuspiciousNodes),
		"duration", time.Since(startTime))

	return snapshot, nil
}

// allocatorOptions builds the Chrome launch flags from configuration
func (r *ChromeRenderer) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", r.cfg.Headless),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("mute-audio", true),
		chromedp.WindowSize(r.cfg.ViewportWidth, r.cfg.ViewportHeight),
	)
	if r.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(r.cfg.ExecPath))
	}
	if r.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(r.cfg.UserAgent))
	}
	return opts
}

// buildTasks assembles the action list. The returned pointers are filled in
// once the tasks have run.
func (r *ChromeRenderer) buildTasks(url string) (chromedp.Tasks, *string, *[]byte, error) {
	var raw string
	var screenshot []byte

	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(r.cfg.ViewportWidth), int64(r.cfg.ViewportHeight)),
	}

	if r.cfg.WatchdogURL != "" {
		script, err := watchdogScript(r.cfg.WatchdogURL)
		if err != nil {
			return nil, nil, nil, err
		}
		tasks = append(tasks, chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(script).Do(ctx)
			return err
		}))
	}

	tasks = append(tasks,
		chromedp.Navigate(url),
		chromedp.Sleep(time.Duration(r.cfg.SettleMillis)*time.Millisecond),
		chromedp.Evaluate(sanitizeScript, &raw),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			screenshot, err = page.CaptureScreenshot().
				WithFormat(page.CaptureScreenshotFormatJpeg).
				WithQuality(int64(r.cfg.JPEGQuality)).
				Do(ctx)
			return err
		}),
	)

	return tasks, &raw, &screenshot, nil
}

// parseEvaluation converts the sanitizer output and screenshot into a snapshot
func parseEvaluation(raw string, screenshot []byte) (types.StructuralSnapshot, error) {
	var wire wireSnapshot
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return types.StructuralSnapshot{}, fmt.Errorf("failed to decode sanitizer output; %w", err)
	}
	if len(screenshot) == 0 {
		return types.StructuralSnapshot{}, fmt.Errorf("empty screenshot")
	}

	encoded := base64.StdEncoding.EncodeToString(screenshot)
	wire.Screenshot = &encoded

	return wire.toSnapshot()
}
