package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// InitConfig initializes the configuration using Viper.
// An empty configPath searches the default locations.
func InitConfig(configPath string) error {
	// Load .env file if it exists (fail silently if not found)
	loadEnvFiles()

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(GetDefaultConfigDir())
		viper.AddConfigPath(".")
	}

	setDefaults()

	// Enable environment variable overrides
	viper.SetEnvPrefix("VERIVIEW")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file (it's okay if it doesn't exist)
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config; %w", err)
		}
	}

	return nil
}

func setDefaults() {
	d := DefaultConfig

	viper.SetDefault("server.address", d.Server.Address)
	viper.SetDefault("server.cors_origins", d.Server.CORSOrigins)
	viper.SetDefault("server.read_timeout_seconds", d.Server.ReadTimeoutSeconds)
	viper.SetDefault("server.write_timeout_seconds", d.Server.WriteTimeoutSeconds)
	viper.SetDefault("server.shutdown_timeout_seconds", d.Server.ShutdownTimeoutSeconds)

	viper.SetDefault("renderer.backend", d.Renderer.Backend)
	viper.SetDefault("renderer.url", d.Renderer.URL)
	viper.SetDefault("renderer.timeout_seconds", d.Renderer.TimeoutSeconds)
	viper.SetDefault("renderer.chrome.exec_path", d.Renderer.Chrome.ExecPath)
	viper.SetDefault("renderer.chrome.headless", d.Renderer.Chrome.Headless)
	viper.SetDefault("renderer.chrome.viewport_width", d.Renderer.Chrome.ViewportWidth)
	viper.SetDefault("renderer.chrome.viewport_height", d.Renderer.Chrome.ViewportHeight)
	viper.SetDefault("renderer.chrome.settle_millis", d.Renderer.Chrome.SettleMillis)
	viper.SetDefault("renderer.chrome.jpeg_quality", d.Renderer.Chrome.JPEGQuality)
	viper.SetDefault("renderer.chrome.user_agent", d.Renderer.Chrome.UserAgent)
	viper.SetDefault("renderer.chrome.watchdog_url", d.Renderer.Chrome.WatchdogURL)

	viper.SetDefault("vision.backend", d.Vision.Backend)
	viper.SetDefault("vision.url", d.Vision.URL)
	viper.SetDefault("vision.timeout_seconds", d.Vision.TimeoutSeconds)
	viper.SetDefault("vision.bedrock.region", d.Vision.Bedrock.Region)
	viper.SetDefault("vision.bedrock.model_id", d.Vision.Bedrock.ModelID)
	viper.SetDefault("vision.bedrock.max_tokens", d.Vision.Bedrock.MaxTokens)
	viper.SetDefault("vision.bedrock.access_key_id", d.Vision.Bedrock.AccessKeyID)
	viper.SetDefault("vision.bedrock.secret_access_key", d.Vision.Bedrock.SecretAccessKey)
	viper.SetDefault("vision.bedrock.session_token", d.Vision.Bedrock.SessionToken)

	viper.SetDefault("keywords.file", d.Keywords.File)
	viper.SetDefault("keywords.watch", d.Keywords.Watch)

	viper.SetDefault("decision.preview_limit", d.Decision.PreviewLimit)
	viper.SetDefault("decision.blocked_sentinel", d.Decision.BlockedSentinel)

	viper.SetDefault("audit.max_entries", d.Audit.MaxEntries)
	viper.SetDefault("audit.evict_batch", d.Audit.EvictBatch)

	viper.SetDefault("logging.level", d.Logging.Level)
	viper.SetDefault("logging.format", d.Logging.Format)
	viper.SetDefault("logging.log_file", d.Logging.LogFile)

	viper.SetDefault("remediation.enabled", d.Remediation.Enabled)
	viper.SetDefault("remediation.timeout_seconds", d.Remediation.TimeoutSeconds)
	viper.SetDefault("remediation.protocols", d.Remediation.Protocols)
}

// GetConfig returns the current configuration
func GetConfig() (*Config, error) {
	var cfg Config

	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config; %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration; %w", err)
	}

	return &cfg, nil
}

// Validate rejects configurations the gateway cannot run with
func (c *Config) Validate() error {
	var errs []error

	switch c.Renderer.Backend {
	case BackendHTTP:
		if c.Renderer.URL == "" {
			errs = append(errs, fmt.Errorf("renderer.url is required for the %q backend", BackendHTTP))
		}
	case BackendChrome:
	default:
		errs = append(errs, fmt.Errorf("renderer.backend must be %q or %q, got %q", BackendHTTP, BackendChrome, c.Renderer.Backend))
	}
	if c.Renderer.TimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("renderer.timeout_seconds must be positive, got %d", c.Renderer.TimeoutSeconds))
	}

	switch c.Vision.Backend {
	case BackendHTTP:
		if c.Vision.URL == "" {
			errs = append(errs, fmt.Errorf("vision.url is required for the %q backend", BackendHTTP))
		}
	case BackendBedrock:
		if c.Vision.Bedrock.ModelID == "" {
			errs = append(errs, fmt.Errorf("vision.bedrock.model_id is required for the %q backend", BackendBedrock))
		}
	default:
		errs = append(errs, fmt.Errorf("vision.backend must be %q or %q, got %q", BackendHTTP, BackendBedrock, c.Vision.Backend))
	}
	if c.Vision.TimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("vision.timeout_seconds must be positive, got %d", c.Vision.TimeoutSeconds))
	}

	if c.Decision.PreviewLimit <= 0 {
		errs = append(errs, fmt.Errorf("decision.preview_limit must be positive, got %d", c.Decision.PreviewLimit))
	}

	if c.Audit.MaxEntries <= 0 {
		errs = append(errs, fmt.Errorf("audit.max_entries must be positive, got %d", c.Audit.MaxEntries))
	}
	if c.Audit.EvictBatch <= 0 || c.Audit.EvictBatch > c.Audit.MaxEntries {
		errs = append(errs, fmt.Errorf("audit.evict_batch must be within (0, max_entries], got %d", c.Audit.EvictBatch))
	}

	return errors.Join(errs...)
}

// loadEnvFiles loads environment variables from .env files
// It tries multiple locations and fails silently if files don't exist
func loadEnvFiles() {
	locations := []string{
		".env",
		filepath.Join(GetDefaultConfigDir(), ".env"),
	}

	// .env.local for local overrides
	localLocations := []string{
		".env.local",
		filepath.Join(GetDefaultConfigDir(), ".env.local"),
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			_ = godotenv.Load(location) // Fail silently
		}
	}

	// godotenv.Load never overrides, so .env.local must use Overload
	for _, location := range localLocations {
		if _, err := os.Stat(location); err == nil {
			_ = godotenv.Overload(location) // Fail silently
		}
	}
}
