package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/platinummonkey/warden/pkg/observability"
)

// TestGetEnv tests the getEnv helper function
func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{
			name:         "returns env value when set",
			key:          "TEST_VAR",
			defaultValue: "default",
			envValue:     "custom",
			want:         "custom",
		},
		{
			name:         "returns default when env not set",
			key:          "TEST_VAR_NOT_SET",
			defaultValue: "default",
			envValue:     "",
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			}

			got := getEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestGetEnvDuration tests the getEnvDuration helper function
func TestGetEnvDuration(t *testing.T) {
	os.Setenv("TEST_DURATION", "45s")
	defer os.Unsetenv("TEST_DURATION")

	if got := getEnvDuration("TEST_DURATION", time.Second); got != 45*time.Second {
		t.Errorf("getEnvDuration() = %v, want 45s", got)
	}
	if got := getEnvDuration("TEST_DURATION_NOT_SET", time.Second); got != time.Second {
		t.Errorf("getEnvDuration() = %v, want 1s default", got)
	}

	os.Setenv("TEST_DURATION_BAD", "not-a-duration")
	defer os.Unsetenv("TEST_DURATION_BAD")
	if got := getEnvDuration("TEST_DURATION_BAD", time.Second); got != time.Second {
		t.Errorf("getEnvDuration() = %v, want default on parse error", got)
	}
}

// TestParseLogLevel tests log level parsing
func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  observability.LogLevel
	}{
		{"debug", observability.DebugLevel},
		{"info", observability.InfoLevel},
		{"warn", observability.WarnLevel},
		{"warning", observability.WarnLevel},
		{"error", observability.ErrorLevel},
		{"ERROR", observability.ErrorLevel},
		{"bogus", observability.InfoLevel},
	}

	for _, tt := range tests {
		if got := parseLogLevel(tt.input); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

// TestLoadConfigDefaults verifies defaults with only the required values set
func TestLoadConfigDefaults(t *testing.T) {
	os.Setenv("WARDEN_POSTGRES_URL", "postgres://localhost/warden_test")
	defer os.Unsetenv("WARDEN_POSTGRES_URL")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Cache.Size != 4096 || cfg.Cache.TTL != 5*time.Minute {
		t.Errorf("unexpected cache defaults: %+v", cfg.Cache)
	}
	if cfg.Sessions.SweepSchedule != "*/15 * * * *" {
		t.Errorf("unexpected sweep schedule default: %s", cfg.Sessions.SweepSchedule)
	}
	if cfg.Observability.LogLevel != observability.InfoLevel {
		t.Errorf("expected info log level default, got %v", cfg.Observability.LogLevel)
	}
}

// TestLoadConfigMissingDatabase verifies validation fails without a database URL
func TestLoadConfigMissingDatabase(t *testing.T) {
	os.Unsetenv("WARDEN_POSTGRES_URL")

	if _, err := LoadConfig(); err == nil {
		t.Error("expected validation failure without postgres URL")
	}
}

// TestLoadConfigFileLayering verifies env vars win over the YAML file
func TestLoadConfigFileLayering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warden.yaml")
	file := `
server:
  port: "7000"
database:
  url: "postgres://file-host/warden"
cache:
  ttl: 2m
observability:
  log_level: debug
`
	if err := os.WriteFile(path, []byte(file), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	os.Setenv("WARDEN_CONFIG_FILE", path)
	os.Setenv("WARDEN_PORT", "7100")
	defer os.Unsetenv("WARDEN_CONFIG_FILE")
	defer os.Unsetenv("WARDEN_PORT")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Port != "7100" {
		t.Errorf("expected env to override file, got port %s", cfg.Server.Port)
	}
	if cfg.Database.URL != "postgres://file-host/warden" {
		t.Errorf("expected file value for database URL, got %s", cfg.Database.URL)
	}
	if cfg.Cache.TTL != 2*time.Minute {
		t.Errorf("expected file value for cache TTL, got %v", cfg.Cache.TTL)
	}
	if cfg.Observability.LogLevel != observability.DebugLevel {
		t.Errorf("expected debug level from file, got %v", cfg.Observability.LogLevel)
	}
}

// TestValidate covers the invalid-value paths
func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := defaultConfig()
		cfg.Database.URL = "postgres://localhost/warden"
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"same ports", func(c *Config) { c.Server.HealthPort = c.Server.Port }},
		{"zero cache size", func(c *Config) { c.Cache.Size = 0 }},
		{"zero cache ttl", func(c *Config) { c.Cache.TTL = 0 }},
		{"empty sweep schedule", func(c *Config) { c.Sessions.SweepSchedule = "" }},
		{"zero webhook timeout", func(c *Config) { c.Outbound.WebhookTimeout = 0 }},
	}

	if err := base().Validate(); err != nil {
		t.Fatalf("expected valid base config, got %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
