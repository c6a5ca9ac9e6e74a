package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SNAP_PORT", "9090")
	t.Setenv("SNAP_LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %s, want debug", cfg.Log.Level)
	}

	// Untouched fields keep their defaults
	if cfg.Bus.Type != "memory" {
		t.Errorf("Bus.Type = %s, want memory", cfg.Bus.Type)
	}
}

func TestLoadFromFile(t *testing.T) {
	// Create temp config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
host: "127.0.0.1"
port: 8888
log:
  level: warn
  format: json
redis:
  url: "redis://custom:6379"
search:
  default_limit: 10
  max_limit: 100
analysis:
  provider: static
  workers: 4
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Host != "127.0.0.1" {
		t.Errorf("Host = %s, want 127.0.0.1", cfg.Host)
	}

	if cfg.Port != 8888 {
		t.Errorf("Port = %d, want 8888", cfg.Port)
	}

	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %s, want warn", cfg.Log.Level)
	}

	if cfg.Redis.URL != "redis://custom:6379" {
		t.Errorf("Redis.URL = %s, want redis://custom:6379", cfg.Redis.URL)
	}

	if cfg.Search.DefaultLimit != 10 {
		t.Errorf("Search.DefaultLimit = %d, want 10", cfg.Search.DefaultLimit)
	}

	if cfg.Analysis.Workers != 4 {
		t.Errorf("Analysis.Workers = %d, want 4", cfg.Analysis.Workers)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid defaults",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "invalid port",
			modify: func(c *Config) {
				c.Port = 0
			},
			wantErr: true,
		},
		{
			name: "invalid log level",
			modify: func(c *Config) {
				c.Log.Level = "invalid"
			},
			wantErr: true,
		},
		{
			name: "invalid bus type",
			modify: func(c *Config) {
				c.Bus.Type = "invalid"
			},
			wantErr: true,
		},
		{
			name: "kafka without brokers",
			modify: func(c *Config) {
				c.Bus.Type = "kafka"
				c.Bus.KafkaBrokers = ""
			},
			wantErr: true,
		},
		{
			name: "kafka with brokers",
			modify: func(c *Config) {
				c.Bus.Type = "kafka"
				c.Bus.KafkaBrokers = "localhost:9092"
			},
			wantErr: false,
		},
		{
			name: "max limit below default limit",
			modify: func(c *Config) {
				c.Search.DefaultLimit = 50
				c.Search.MaxLimit = 10
			},
			wantErr: true,
		},
		{
			name: "invalid analysis provider",
			modify: func(c *Config) {
				c.Analysis.Provider = "invalid"
			},
			wantErr: true,
		},
		{
			name: "openai provider without key",
			modify: func(c *Config) {
				c.Analysis.Provider = "openai"
				c.Analysis.OpenAIKey = ""
			},
			wantErr: true,
		},
		{
			name: "openai provider with key",
			modify: func(c *Config) {
				c.Analysis.Provider = "openai"
				c.Analysis.OpenAIKey = "sk-test"
			},
			wantErr: false,
		},
		{
			name: "zero analysis workers",
			modify: func(c *Config) {
				c.Analysis.Workers = 0
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			setDefaults(cfg)
			tt.modify(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAddress(t *testing.T) {
	cfg := &Config{
		Host: "localhost",
		Port: 8080,
	}

	if addr := cfg.Address(); addr != "localhost:8080" {
		t.Errorf("Address() = %s, want localhost:8080", addr)
	}
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("port: 8888\n"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	t.Setenv("SNAP_PORT", "7070")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 7070 {
		t.Errorf("Port = %d, want env value 7070 over file value 8888", cfg.Port)
	}
}
