package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/leefowlercu/veriview-gateway/internal/audit"
	"github.com/leefowlercu/veriview-gateway/internal/config"
	"github.com/leefowlercu/veriview-gateway/internal/keywords"
	"github.com/leefowlercu/veriview-gateway/internal/logging"
	"github.com/leefowlercu/veriview-gateway/internal/processor"
)

// gateway holds the long-lived components shared by every command
type gateway struct {
	cfg        *config.Config
	logger     *slog.Logger
	closeLog   func() error
	classifier *keywords.Classifier
	auditLog   *audit.Log
	processor  *processor.Processor
}

// newGateway loads configuration and wires the consensus pipeline
func newGateway(ctx context.Context) (*gateway, error) {
	cfg, err := config.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration; %w", err)
	}

	logger, closeLog := logging.NewLogger(cfg.Logging)

	classifier, err := keywords.Load(cfg.Keywords.File)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("failed to load keyword taxonomy; %w", err)
	}

	auditLog := audit.NewLog(cfg.Audit.MaxEntries, cfg.Audit.EvictBatch)

	proc, err := processor.NewFromConfig(ctx, cfg, classifier, auditLog, logger)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("failed to create processor; %w", err)
	}

	return &gateway{
		cfg:        cfg,
		logger:     logger,
		closeLog:   closeLog,
		classifier: classifier,
		auditLog:   auditLog,
		processor:  proc,
	}, nil
}

// watchKeywords hot-reloads the taxonomy file until ctx is cancelled
func (g *gateway) watchKeywords(ctx context.Context) {
	if !g.cfg.Keywords.Watch || g.cfg.Keywords.File == "" {
		return
	}

	watcher := keywords.NewWatcher(g.cfg.Keywords.File, g.classifier, g.logger.With("component", "keywords"))
	go func() {
		if err := watcher.Run(ctx); err != nil {
			g.logger.Warn("keyword watcher stopped", "error", err)
		}
	}()
}

func (g *gateway) Close() {
	if err := g.closeLog(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
	}
}
