package strategies

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/leefowlercu/veriview-gateway/internal/config"
	"github.com/leefowlercu/veriview-gateway/pkg/types"
)

// LogStrategyType identifies the log strategy in configuration
const LogStrategyType = "log"

// LogStrategy implements a remediation strategy that appends incidents to a file
type LogStrategy struct {
	logFile string // Path to log file (supports ~ expansion)
	format  string // "json" or "text"

	// Concurrent verdicts share the same file
	mu sync.Mutex
}

// NewLogStrategy creates a new log strategy from configuration
func NewLogStrategy(cfg config.StrategyConfig) (*LogStrategy, error) {
	logFile, ok := cfg.Config["log_file"].(string)
	if !ok || logFile == "" {
		return nil, fmt.Errorf("log_file is required")
	}

	format, ok := cfg.Config["format"].(string)
	if !ok || format == "" {
		format = "json" // Default to JSON
	}

	strategy := &LogStrategy{
		logFile: logFile,
		format:  format,
	}

	if err := strategy.Validate(); err != nil {
		return nil, err
	}

	return strategy, nil
}

// Execute writes the incident to the configured log file
func (s *LogStrategy) Execute(ctx context.Context, input types.RemediationInput) types.RemediationResult {
	// Check for context cancellation before starting
	select {
	case <-ctx.Done():
		return s.failure("Log operation cancelled", ctx.Err())
	default:
	}

	// Expand file path
	logPath, err := expandPath(s.logFile)
	if err != nil {
		return s.failure(fmt.Sprintf("Failed to expand log path: %v", err), err)
	}

	// Format content
	var content string
	switch s.format {
	case "json":
		content, err = s.formatJSON(input)
	case "text":
		content = s.formatText(input)
	default:
		err = fmt.Errorf("unsupported format: %s", s.format)
	}
	if err != nil {
		return s.failure(fmt.Sprintf("Failed to format log content: %v", err), err)
	}

	// Create parent directory if needed
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return s.failure(fmt.Sprintf("Failed to create log directory: %v", err), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Open file in append mode
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return s.failure(fmt.Sprintf("Failed to open log file: %v", err), err)
	}
	defer file.Close()

	// Check context again before writing
	select {
	case <-ctx.Done():
		return s.failure("Log operation cancelled before write", ctx.Err())
	default:
	}

	if _, err := file.WriteString(content + "\n"); err != nil {
		return s.failure(fmt.Sprintf("Failed to write to log file: %v", err), err)
	}

	return types.RemediationResult{
		StrategyType: s.GetType(),
		Success:      true,
		Message:      fmt.Sprintf("Logged incident for %s to %s", input.URL, filepath.Base(logPath)),
		Metadata: map[string]any{
			"log_file":     logPath,
			"format":       s.format,
			"hidden_items": len(input.Verdict.HiddenItems),
		},
	}
}

// GetType returns the strategy type identifier
func (s *LogStrategy) GetType() string {
	return LogStrategyType
}

// Validate checks if the strategy configuration is valid
func (s *LogStrategy) Validate() error {
	if s.logFile == "" {
		return fmt.Errorf("log_file cannot be empty")
	}

	if s.format != "json" && s.format != "text" {
		return fmt.Errorf("format must be 'json' or 'text', got: %s", s.format)
	}

	return nil
}

func (s *LogStrategy) failure(message string, err error) types.RemediationResult {
	return types.RemediationResult{
		StrategyType: s.GetType(),
		Success:      false,
		Message:      message,
		Error:        err,
	}
}

// formatJSON formats the incident as a single JSON line
func (s *LogStrategy) formatJSON(input types.RemediationInput) (string, error) {
	data, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

// formatText formats the incident as human-readable text
func (s *LogStrategy) formatText(input types.RemediationInput) string {
	var sb strings.Builder

	timestamp := input.Timestamp.Format("2006-01-02 15:04:05")
	fmt.Fprintf(&sb, "[%s] URL: %s | Risk: %d | Blocked: %t | Hidden: %d",
		timestamp, input.URL, input.Verdict.RiskScore, input.Verdict.Blocked, len(input.Verdict.HiddenItems))

	for _, item := range input.Verdict.HiddenItems {
		sb.WriteString("\n  - ")
		sb.WriteString(item)
	}

	return sb.String()
}

// expandPath expands ~ to the user's home directory
func expandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}
