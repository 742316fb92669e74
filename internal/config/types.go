package config

// Config represents the application configuration
type Config struct {
	Server      ServerConfig      `mapstructure:"server" yaml:"server"`
	Renderer    RendererConfig    `mapstructure:"renderer" yaml:"renderer"`
	Vision      VisionConfig      `mapstructure:"vision" yaml:"vision"`
	Keywords    KeywordsConfig    `mapstructure:"keywords" yaml:"keywords"`
	Decision    DecisionConfig    `mapstructure:"decision" yaml:"decision"`
	Audit       AuditConfig       `mapstructure:"audit" yaml:"audit"`
	Logging     LoggingConfig     `mapstructure:"logging" yaml:"logging"`
	Remediation RemediationConfig `mapstructure:"remediation" yaml:"remediation"`
}

// ServerConfig contains configuration for the HTTP transport
type ServerConfig struct {
	Address                string   `mapstructure:"address" yaml:"address"`
	CORSOrigins            []string `mapstructure:"cors_origins" yaml:"cors_origins"`
	ReadTimeoutSeconds     int      `mapstructure:"read_timeout_seconds" yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds    int      `mapstructure:"write_timeout_seconds" yaml:"write_timeout_seconds"`
	ShutdownTimeoutSeconds int      `mapstructure:"shutdown_timeout_seconds" yaml:"shutdown_timeout_seconds"`
}

// RendererConfig contains configuration for the rendering collaborator
type RendererConfig struct {
	Backend        string       `mapstructure:"backend" yaml:"backend"` // "http" or "chrome"
	URL            string       `mapstructure:"url" yaml:"url"`
	TimeoutSeconds int          `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	Chrome         ChromeConfig `mapstructure:"chrome" yaml:"chrome"`
}

// ChromeConfig contains configuration for the in-process headless Chrome renderer
type ChromeConfig struct {
	ExecPath       string `mapstructure:"exec_path" yaml:"exec_path"`
	Headless       bool   `mapstructure:"headless" yaml:"headless"`
	ViewportWidth  int    `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight int    `mapstructure:"viewport_height" yaml:"viewport_height"`
	SettleMillis   int    `mapstructure:"settle_millis" yaml:"settle_millis"`
	JPEGQuality    int    `mapstructure:"jpeg_quality" yaml:"jpeg_quality"`
	UserAgent      string `mapstructure:"user_agent" yaml:"user_agent"`
	WatchdogURL    string `mapstructure:"watchdog_url" yaml:"watchdog_url"` // Empty disables the mutation watchdog
}

// VisionConfig contains configuration for the vision collaborator
type VisionConfig struct {
	Backend        string        `mapstructure:"backend" yaml:"backend"` // "http" or "bedrock"
	URL            string        `mapstructure:"url" yaml:"url"`
	TimeoutSeconds int           `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	Bedrock        BedrockConfig `mapstructure:"bedrock" yaml:"bedrock"`
}

// BedrockConfig contains configuration for the AWS Bedrock vision backend
type BedrockConfig struct {
	Region          string `mapstructure:"region" yaml:"region"`
	ModelID         string `mapstructure:"model_id" yaml:"model_id"`
	MaxTokens       int    `mapstructure:"max_tokens" yaml:"max_tokens"`
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key"`
	SessionToken    string `mapstructure:"session_token" yaml:"session_token"`
}

// KeywordsConfig contains configuration for the danger-keyword taxonomy
type KeywordsConfig struct {
	File  string `mapstructure:"file" yaml:"file"` // Empty = built-in defaults
	Watch bool   `mapstructure:"watch" yaml:"watch"`
}

// DecisionConfig contains configuration for decision-making logic
type DecisionConfig struct {
	PreviewLimit    int    `mapstructure:"preview_limit" yaml:"preview_limit"`
	BlockedSentinel string `mapstructure:"blocked_sentinel" yaml:"blocked_sentinel"`
}

// AuditConfig contains retention settings for the in-memory audit log
type AuditConfig struct {
	MaxEntries int `mapstructure:"max_entries" yaml:"max_entries"`
	EvictBatch int `mapstructure:"evict_batch" yaml:"evict_batch"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level   string `mapstructure:"level" yaml:"level"`
	Format  string `mapstructure:"format" yaml:"format"`     // "json", "text" or "auto"
	LogFile string `mapstructure:"log_file" yaml:"log_file"` // Empty = stderr
}

// RemediationConfig contains configuration for post-decision remediation
type RemediationConfig struct {
	Enabled        bool             `mapstructure:"enabled" yaml:"enabled"`
	TimeoutSeconds int              `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	Protocols      []ProtocolConfig `mapstructure:"protocols" yaml:"protocols"`
}

// ProtocolConfig describes one remediation protocol
type ProtocolConfig struct {
	Name       string           `mapstructure:"name" yaml:"name"`
	Triggers   TriggerConfig    `mapstructure:"triggers" yaml:"triggers"`
	Strategies []StrategyConfig `mapstructure:"strategies" yaml:"strategies"`
}

// TriggerConfig decides when a protocol runs
type TriggerConfig struct {
	OnBlock      bool `mapstructure:"on_block" yaml:"on_block"`
	MinRiskScore int  `mapstructure:"min_risk_score" yaml:"min_risk_score"`
}

// StrategyConfig selects a strategy type and carries its free-form settings
type StrategyConfig struct {
	Type   string         `mapstructure:"type" yaml:"type"`
	Config map[string]any `mapstructure:"config" yaml:"config"`
}
