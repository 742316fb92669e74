package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestGetConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := writeConfig(t, "")
	if err := InitConfig(path); err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}

	cfg, err := GetConfig()
	if err != nil {
		t.Fatalf("GetConfig failed: %v", err)
	}

	if cfg.Decision.PreviewLimit != 50 {
		t.Errorf("expected preview limit 50, got %d", cfg.Decision.PreviewLimit)
	}
	if cfg.Audit.MaxEntries != 500 || cfg.Audit.EvictBatch != 100 {
		t.Errorf("unexpected audit retention %+v", cfg.Audit)
	}
	if cfg.Renderer.Backend != BackendHTTP || cfg.Vision.Backend != BackendHTTP {
		t.Errorf("expected http backends, got %q/%q", cfg.Renderer.Backend, cfg.Vision.Backend)
	}
	if cfg.Decision.BlockedSentinel != "BLOCKED BY VERIVIEW" {
		t.Errorf("unexpected sentinel %q", cfg.Decision.BlockedSentinel)
	}
}

func TestGetConfig_FileAndEnvOverrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := writeConfig(t, `
renderer:
  url: http://renderer.internal/snap
  timeout_seconds: 10
decision:
  preview_limit: 30
remediation:
  enabled: true
  protocols:
    - name: incidents
      triggers:
        on_block: true
      strategies:
        - type: log
          config:
            log_file: /tmp/incidents.log
`)
	t.Setenv("VERIVIEW_VISION_URL", "http://vision.internal/analyze")

	if err := InitConfig(path); err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}

	cfg, err := GetConfig()
	if err != nil {
		t.Fatalf("GetConfig failed: %v", err)
	}

	if cfg.Renderer.URL != "http://renderer.internal/snap" {
		t.Errorf("expected renderer url from file, got %q", cfg.Renderer.URL)
	}
	if cfg.Renderer.TimeoutSeconds != 10 {
		t.Errorf("expected renderer timeout 10, got %d", cfg.Renderer.TimeoutSeconds)
	}
	if cfg.Vision.URL != "http://vision.internal/analyze" {
		t.Errorf("expected vision url from env, got %q", cfg.Vision.URL)
	}
	if cfg.Decision.PreviewLimit != 30 {
		t.Errorf("expected preview limit 30, got %d", cfg.Decision.PreviewLimit)
	}
	if len(cfg.Remediation.Protocols) != 1 {
		t.Fatalf("expected 1 protocol, got %d", len(cfg.Remediation.Protocols))
	}
	protocol := cfg.Remediation.Protocols[0]
	if !protocol.Triggers.OnBlock || protocol.Strategies[0].Type != "log" {
		t.Errorf("unexpected protocol %+v", protocol)
	}
	if protocol.Strategies[0].Config["log_file"] != "/tmp/incidents.log" {
		t.Errorf("unexpected strategy config %v", protocol.Strategies[0].Config)
	}
}

func TestInitConfig_InvalidFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := writeConfig(t, "renderer: [unterminated")
	if err := InitConfig(path); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantError string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:      "unknown renderer backend",
			mutate:    func(c *Config) { c.Renderer.Backend = "playwright" },
			wantError: "renderer.backend",
		},
		{
			name:      "unknown vision backend",
			mutate:    func(c *Config) { c.Vision.Backend = "gemini" },
			wantError: "vision.backend",
		},
		{
			name:      "bedrock without model",
			mutate:    func(c *Config) { c.Vision.Backend = BackendBedrock; c.Vision.Bedrock.ModelID = "" },
			wantError: "model_id",
		},
		{
			name:      "zero renderer timeout",
			mutate:    func(c *Config) { c.Renderer.TimeoutSeconds = 0 },
			wantError: "renderer.timeout_seconds",
		},
		{
			name:      "evict batch larger than capacity",
			mutate:    func(c *Config) { c.Audit.EvictBatch = 600 },
			wantError: "evict_batch",
		},
		{
			name:      "chrome backend needs no url",
			mutate:    func(c *Config) { c.Renderer.Backend = BackendChrome; c.Renderer.URL = "" },
			wantError: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantError == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantError) {
				t.Fatalf("expected error containing %q, got %v", tt.wantError, err)
			}
		})
	}
}
