// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	// Server configuration
	Host string `envconfig:"SNAP_HOST" yaml:"host"`
	Port int    `envconfig:"SNAP_PORT" yaml:"port"`

	// Redis configuration
	Redis RedisConfig `yaml:"redis"`

	// Bus configuration
	Bus BusConfig `yaml:"bus"`

	// Search configuration
	Search SearchConfig `yaml:"search"`

	// Analysis configuration
	Analysis AnalysisConfig `yaml:"analysis"`

	// Logging configuration
	Log LogConfig `yaml:"log"`

	// Security configuration
	Security SecurityConfig `yaml:"security"`

	// Observability configuration
	Observability ObservabilityConfig `yaml:"observability"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	URL       string `envconfig:"SNAP_REDIS_URL" yaml:"url"`
	KeyPrefix string `envconfig:"SNAP_REDIS_KEY_PREFIX" yaml:"key_prefix"`
}

// BusConfig holds event bus settings.
type BusConfig struct {
	Type         string `envconfig:"SNAP_BUS_TYPE" yaml:"type"`
	KafkaBrokers string `envconfig:"SNAP_KAFKA_BROKERS" yaml:"kafka_brokers"`
	KafkaGroup   string `envconfig:"SNAP_KAFKA_GROUP" yaml:"kafka_group"`
	EventLog     string `envconfig:"SNAP_BUS_EVENT_LOG" yaml:"event_log"` // path to JSON-lines event log, empty = disabled
}

// SearchConfig holds search settings.
type SearchConfig struct {
	DefaultLimit int `envconfig:"SNAP_DEFAULT_LIMIT" yaml:"default_limit"`
	MaxLimit     int `envconfig:"SNAP_MAX_LIMIT" yaml:"max_limit"`

	// CandidateFactor caps ranked candidates at limit*factor per request.
	CandidateFactor int `envconfig:"SNAP_CANDIDATE_FACTOR" yaml:"candidate_factor"`
}

// AnalysisConfig holds photo analysis settings.
type AnalysisConfig struct {
	Provider     string `envconfig:"SNAP_ANALYSIS_PROVIDER" yaml:"provider"`
	OpenAIKey    string `envconfig:"SNAP_OPENAI_API_KEY" yaml:"openai_key"`
	OpenAIURL    string `envconfig:"SNAP_OPENAI_BASE_URL" yaml:"openai_url"`
	Model        string `envconfig:"SNAP_ANALYSIS_MODEL" yaml:"model"`
	Workers      int    `envconfig:"SNAP_ANALYSIS_WORKERS" yaml:"workers"`
	MaxAttempts  int    `envconfig:"SNAP_ANALYSIS_MAX_ATTEMPTS" yaml:"max_attempts"`
	PollInterval int    `envconfig:"SNAP_ANALYSIS_POLL_INTERVAL" yaml:"poll_interval"` // seconds
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `envconfig:"SNAP_LOG_LEVEL" yaml:"level"`
	Format string `envconfig:"SNAP_LOG_FORMAT" yaml:"format"`
	File   string `envconfig:"SNAP_LOG_FILE" yaml:"file"`
}

// SecurityConfig holds security settings.
type SecurityConfig struct {
	APIKey      string `envconfig:"SNAP_API_KEY" yaml:"api_key"`
	RateLimit   int    `envconfig:"SNAP_RATE_LIMIT" yaml:"rate_limit"` // 0 = disabled
	CORSOrigins string `envconfig:"SNAP_CORS_ORIGINS" yaml:"cors_origins"`
}

// ObservabilityConfig holds observability settings.
type ObservabilityConfig struct {
	MetricsEnabled bool   `envconfig:"SNAP_METRICS_ENABLED" yaml:"metrics_enabled"`
	MetricsPath    string `envconfig:"SNAP_METRICS_PATH" yaml:"metrics_path"`
}

// Load builds the configuration in three layers: defaults, then the
// optional YAML file, then environment variables on top.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	setDefaults(cfg)

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("processing env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func setDefaults(cfg *Config) {
	cfg.Host = "0.0.0.0"
	cfg.Port = 8080

	cfg.Redis = RedisConfig{
		URL:       "redis://localhost:6379",
		KeyPrefix: "snap:",
	}

	cfg.Bus = BusConfig{
		Type:       "memory",
		KafkaGroup: "snap-search",
	}

	cfg.Search = SearchConfig{
		DefaultLimit:    20,
		MaxLimit:        200,
		CandidateFactor: 5,
	}

	cfg.Analysis = AnalysisConfig{
		Provider:     "static",
		Model:        "gpt-4o-mini",
		Workers:      2,
		MaxAttempts:  3,
		PollInterval: 2,
	}

	cfg.Log = LogConfig{
		Level:  "info",
		Format: "text",
	}

	cfg.Security = SecurityConfig{
		RateLimit:   0,
		CORSOrigins: "*",
	}

	cfg.Observability = ObservabilityConfig{
		MetricsEnabled: true,
		MetricsPath:    "/metrics",
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	// Server validation
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, "port must be between 1 and 65535")
	}

	// Bus validation
	validBusTypes := map[string]bool{"memory": true, "kafka": true}
	if !validBusTypes[c.Bus.Type] {
		errs = append(errs, fmt.Sprintf("invalid bus type: %s (must be memory or kafka)", c.Bus.Type))
	}

	if c.Bus.Type == "kafka" && c.Bus.KafkaBrokers == "" {
		errs = append(errs, "kafka_brokers required when bus type is kafka")
	}

	// Search validation
	if c.Search.DefaultLimit < 1 {
		errs = append(errs, "default_limit must be positive")
	}

	if c.Search.MaxLimit < c.Search.DefaultLimit {
		errs = append(errs, "max_limit must be at least default_limit")
	}

	if c.Search.CandidateFactor < 1 {
		errs = append(errs, "candidate_factor must be positive")
	}

	// Analysis validation
	validProviders := map[string]bool{"static": true, "openai": true}
	if !validProviders[c.Analysis.Provider] {
		errs = append(errs, fmt.Sprintf("invalid analysis provider: %s (must be static or openai)", c.Analysis.Provider))
	}

	if c.Analysis.Provider == "openai" && c.Analysis.OpenAIKey == "" {
		errs = append(errs, "openai_key required when analysis provider is openai")
	}

	if c.Analysis.Workers < 1 {
		errs = append(errs, "analysis workers must be positive")
	}

	if c.Analysis.MaxAttempts < 1 {
		errs = append(errs, "analysis max_attempts must be positive")
	}

	// Log validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be text or json)", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// Address returns the server listen address.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
