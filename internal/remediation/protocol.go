package remediation

import (
	"github.com/leefowlercu/veriview-gateway/internal/config"
	"github.com/leefowlercu/veriview-gateway/pkg/types"
)

// Protocol represents a remediation protocol with triggers and strategies
type Protocol struct {
	Name     string
	Triggers config.TriggerConfig

	strategies []RemediationStrategy
	failed     []failedStrategy
}

// failedStrategy records a configured strategy that could not be built
type failedStrategy struct {
	strategyType string
	err          error
}

// NewProtocol creates a new protocol from configuration
func NewProtocol(cfg config.ProtocolConfig) *Protocol {
	return &Protocol{
		Name:     cfg.Name,
		Triggers: cfg.Triggers,
	}
}

// ShouldExecute determines if this protocol's triggers match the verdict.
// All configured triggers must hold; a protocol with no triggers never runs.
func (p *Protocol) ShouldExecute(input types.RemediationInput) bool {
	if !p.Triggers.OnBlock && p.Triggers.MinRiskScore <= 0 {
		return false
	}

	// Check on_block trigger
	if p.Triggers.OnBlock && !input.Verdict.Blocked {
		return false
	}

	// Check risk score threshold
	if p.Triggers.MinRiskScore > 0 && input.Verdict.RiskScore < p.Triggers.MinRiskScore {
		return false
	}

	return true
}
