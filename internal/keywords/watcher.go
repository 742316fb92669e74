package keywords

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 500 * time.Millisecond

// Watcher reloads a Classifier whenever its taxonomy file changes
type Watcher struct {
	path       string
	classifier *Classifier
	logger     *slog.Logger
	debounce   time.Duration
}

// NewWatcher creates a watcher for the taxonomy file at path
func NewWatcher(path string, classifier *Classifier, logger *slog.Logger) *Watcher {
	return &Watcher{
		path:       path,
		classifier: classifier,
		logger:     logger,
		debounce:   reloadDebounce,
	}
}

// Run watches the taxonomy file and reloads it. Blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher; %w", err)
	}
	defer watcher.Close()

	// Watch the directory so editors that replace the file via rename are seen
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %q; %w", w.path, err)
	}

	target := filepath.Clean(w.path)
	var debounce *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(w.debounce, w.reload)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("keyword watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	keywords, err := ReadFile(w.path)
	if err != nil {
		// Keep the previous set
		w.logger.Error("keyword reload failed", "file", w.path, "error", err)
		return
	}

	w.classifier.Replace(keywords)
	w.logger.Info("keyword taxonomy reloaded",
		"file", w.path,
		"keyword_count", len(w.classifier.Keywords()))
}
