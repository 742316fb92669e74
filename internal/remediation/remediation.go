package remediation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/leefowlercu/veriview-gateway/internal/config"
	"github.com/leefowlercu/veriview-gateway/pkg/types"
)

// RemediationStrategy defines the interface that all remediation strategies must implement
type RemediationStrategy interface {
	// Execute performs the remediation action and returns the result
	Execute(ctx context.Context, input types.RemediationInput) types.RemediationResult

	// GetType returns the type identifier for this strategy (e.g., "log", "webhook")
	GetType() string

	// Validate checks if the strategy configuration is valid
	Validate() error
}

// Executor runs remediation for a finished verdict
type Executor interface {
	Execute(ctx context.Context, input types.RemediationInput) types.RemediationResults
}

// Engine orchestrates the execution of remediation protocols
type Engine struct {
	cfg       config.RemediationConfig
	logger    *slog.Logger
	protocols []*Protocol
}

// Force compile-time check for interface implementation
var _ Executor = (*Engine)(nil)

// NewEngine creates a new remediation engine, instantiating every configured
// strategy through registry. Strategies that fail to build are reported as
// failed results whenever their protocol runs.
func NewEngine(cfg config.RemediationConfig, registry *Registry, logger *slog.Logger) *Engine {
	e := &Engine{
		cfg:    cfg,
		logger: logger,
	}

	for _, protocolCfg := range cfg.Protocols {
		p := NewProtocol(protocolCfg)
		for _, strategyCfg := range protocolCfg.Strategies {
			strategy, err := registry.Build(strategyCfg)
			if err != nil {
				logger.Warn("failed to create remediation strategy",
					"protocol", p.Name,
					"type", strategyCfg.Type,
					"error", err)
				p.failed = append(p.failed, failedStrategy{strategyType: strategyCfg.Type, err: err})
				continue
			}
			p.strategies = append(p.strategies, strategy)
		}
		e.protocols = append(e.protocols, p)
	}

	return e
}

// Execute runs the first protocol whose triggers match the verdict
func (e *Engine) Execute(ctx context.Context, input types.RemediationInput) types.RemediationResults {
	// Check if remediation is enabled
	if !e.cfg.Enabled {
		e.logger.Debug("remediation disabled, skipping")
		return types.RemediationResults{Executed: false}
	}

	// Find the first protocol whose triggers match
	var protocol *Protocol
	for _, p := range e.protocols {
		if p.ShouldExecute(input) {
			protocol = p
			e.logger.Info("matched remediation protocol", "protocol", p.Name, "url", input.URL)
			break
		}
	}

	if protocol == nil {
		e.logger.Debug("no remediation protocol matched triggers", "url", input.URL)
		return types.RemediationResults{Executed: false}
	}

	return e.executeProtocol(ctx, protocol, input)
}

// executeProtocol executes a single protocol with concurrent strategy execution
func (e *Engine) executeProtocol(ctx context.Context, protocol *Protocol, input types.RemediationInput) types.RemediationResults {
	startTime := time.Now()

	// Apply timeout if configured
	timeout := time.Duration(e.cfg.TimeoutSeconds) * time.Second
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if len(protocol.strategies) == 0 && len(protocol.failed) == 0 {
		e.logger.Warn("protocol has no strategies", "protocol", protocol.Name)
		return types.RemediationResults{
			Executed:     true,
			Results:      []types.RemediationResult{},
			ProtocolName: protocol.Name,
		}
	}

	// Channel to collect results
	resultChan := make(chan types.RemediationResult, len(protocol.strategies)+len(protocol.failed))
	var wg sync.WaitGroup

	for _, f := range protocol.failed {
		resultChan <- types.RemediationResult{
			StrategyType: f.strategyType,
			Success:      false,
			Message:      fmt.Sprintf("Strategy %s is misconfigured: %v", f.strategyType, f.err),
			Error:        f.err,
		}
	}

	// Launch all strategies concurrently
	for _, strategy := range protocol.strategies {
		wg.Add(1)
		go e.executeStrategy(ctx, &wg, strategy, input, resultChan)
	}

	// Wait for all strategies to complete
	go func() {
		wg.Wait()
		close(resultChan)
	}()

	// Collect results
	results := e.collectResults(resultChan)
	totalDuration := time.Since(startTime)

	e.logger.Info("remediation protocol completed",
		"protocol", protocol.Name,
		"strategies", len(results),
		"duration", totalDuration)

	return types.RemediationResults{
		Executed:      true,
		Results:       results,
		TotalDuration: totalDuration,
		ProtocolName:  protocol.Name,
	}
}

// executeStrategy runs a single strategy in a goroutine with panic recovery
func (e *Engine) executeStrategy(ctx context.Context, wg *sync.WaitGroup, strategy RemediationStrategy, input types.RemediationInput, resultChan chan<- types.RemediationResult) {
	defer wg.Done()

	// Recover from panics to prevent bringing down the entire remediation
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("strategy panicked", "type", strategy.GetType(), "panic", r)
			resultChan <- types.RemediationResult{
				StrategyType: strategy.GetType(),
				Success:      false,
				Message:      "Strategy panicked during execution",
				Error:        fmt.Errorf("panic: %v", r),
			}
		}
	}()

	strategyType := strategy.GetType()
	e.logger.Debug("executing strategy", "type", strategyType)

	startTime := time.Now()
	result := strategy.Execute(ctx, input)
	result.Duration = time.Since(startTime)
	result.StrategyType = strategyType

	e.logger.Debug("strategy completed",
		"type", strategyType,
		"success", result.Success,
		"duration", result.Duration)

	// The channel is buffered for every strategy, so this never blocks
	resultChan <- result
}

// collectResults gathers all results from the channel
func (e *Engine) collectResults(resultChan <-chan types.RemediationResult) []types.RemediationResult {
	results := make([]types.RemediationResult, 0)
	for result := range resultChan {
		results = append(results, result)
	}
	return results
}
