package remediation

import (
	"fmt"
	"sort"
	"sync"

	"github.com/leefowlercu/veriview-gateway/internal/config"
	"github.com/leefowlercu/veriview-gateway/internal/remediation/strategies"
)

// Factory builds a strategy from its configuration
type Factory func(cfg config.StrategyConfig) (RemediationStrategy, error)

// Registry manages available remediation strategy types
type Registry struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

// NewRegistry creates a new, empty strategy registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// NewDefaultRegistry creates a registry with the built-in log and webhook strategies
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.RegisterStrategy(strategies.LogStrategyType, func(cfg config.StrategyConfig) (RemediationStrategy, error) {
		return strategies.NewLogStrategy(cfg)
	})
	_ = r.RegisterStrategy(strategies.WebhookStrategyType, func(cfg config.StrategyConfig) (RemediationStrategy, error) {
		return strategies.NewWebhookStrategy(cfg)
	})
	return r
}

// RegisterStrategy adds a strategy type to the registry
func (r *Registry) RegisterStrategy(strategyType string, factory Factory) error {
	if factory == nil {
		return fmt.Errorf("strategy factory cannot be nil")
	}
	if strategyType == "" {
		return fmt.Errorf("strategy type cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[strategyType]; exists {
		return fmt.Errorf("strategy type %q is already registered", strategyType)
	}

	r.factories[strategyType] = factory
	return nil
}

// Build instantiates and validates a strategy from configuration
func (r *Registry) Build(cfg config.StrategyConfig) (RemediationStrategy, error) {
	r.mu.RLock()
	factory, exists := r.factories[cfg.Type]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("strategy type %q not found", cfg.Type)
	}

	strategy, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s strategy; %w", cfg.Type, err)
	}

	if err := strategy.Validate(); err != nil {
		return nil, fmt.Errorf("strategy validation failed; %w", err)
	}

	return strategy, nil
}

// ListStrategies returns all registered strategy types, sorted
func (r *Registry) ListStrategies() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.factories))
	for strategyType := range r.factories {
		types = append(types, strategyType)
	}
	sort.Strings(types)

	return types
}

// HasStrategy checks if a strategy type is registered
func (r *Registry) HasStrategy(strategyType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.factories[strategyType]
	return exists
}

// UnregisterStrategy removes a strategy type from the registry
func (r *Registry) UnregisterStrategy(strategyType string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[strategyType]; !exists {
		return fmt.Errorf("strategy type %q not found", strategyType)
	}

	delete(r.factories, strategyType)
	return nil
}
