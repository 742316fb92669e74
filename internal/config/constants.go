package config

import (
	"os"
	"path/filepath"
)

// Supported collaborator backends
const (
	BackendHTTP    = "http"
	BackendChrome  = "chrome"
	BackendBedrock = "bedrock"
)

// DefaultConfig provides default configuration values
var DefaultConfig = Config{
	Server: ServerConfig{
		Address:                ":8082",
		CORSOrigins:            []string{"*"},
		ReadTimeoutSeconds:     15,
		WriteTimeoutSeconds:    120,
		ShutdownTimeoutSeconds: 5,
	},
	Renderer: RendererConfig{
		Backend:        BackendHTTP,
		URL:            "http://localhost:3002/snap",
		TimeoutSeconds: 45,
		Chrome: ChromeConfig{
			Headless:       true,
			ViewportWidth:  1920,
			ViewportHeight: 1080,
			SettleMillis:   1000,
			JPEGQuality:    80,
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		},
	},
	Vision: VisionConfig{
		Backend:        BackendHTTP,
		URL:            "http://localhost:5000/analyze",
		TimeoutSeconds: 60,
		Bedrock: BedrockConfig{
			Region:    "us-east-1",
			ModelID:   "anthropic.claude-3-5-sonnet-20240620-v1:0",
			MaxTokens: 1024,
		},
	},
	Keywords: KeywordsConfig{
		File:  "",
		Watch: false,
	},
	Decision: DecisionConfig{
		PreviewLimit:    50,
		BlockedSentinel: "BLOCKED BY VERIVIEW",
	},
	Audit: AuditConfig{
		MaxEntries: 500,
		EvictBatch: 100,
	},
	Logging: LoggingConfig{
		Level:   "info",
		Format:  "auto",
		LogFile: "", // Empty = stderr, set path to enable file logging
	},
	Remediation: RemediationConfig{
		Enabled:        false,
		TimeoutSeconds: 5,
		Protocols:      []ProtocolConfig{},
	},
}

// GetDefaultConfigDir returns the default configuration directory
func GetDefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".veriview"
	}
	return filepath.Join(home, ".veriview")
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() string {
	return filepath.Join(GetDefaultConfigDir(), "config.yaml")
}
