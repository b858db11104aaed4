package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/warden/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `yaml:"server"`

	// Database configuration
	Database DatabaseConfig `yaml:"database"`

	// Redis configuration (event stream)
	Redis RedisConfig `yaml:"redis"`

	// Permission cache configuration
	Cache CacheConfig `yaml:"cache"`

	// Session registry configuration
	Sessions SessionsConfig `yaml:"sessions"`

	// Outbound delivery configuration
	Outbound OutboundConfig `yaml:"outbound"`

	// Observability configuration
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Health/metrics server (separate port for k8s probes)
	HealthPort string `yaml:"health_port"`
}

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	URL             string        `yaml:"url"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// RedisConfig holds the event stream connection settings. When Addr is
// empty events are logged instead of published.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// CacheConfig holds permission cache settings
type CacheConfig struct {
	Size int           `yaml:"size"`
	TTL  time.Duration `yaml:"ttl"`
}

// SessionsConfig holds the session registry settings
type SessionsConfig struct {
	// SweepSchedule is a cron expression for the expired-session sweep
	SweepSchedule string `yaml:"sweep_schedule"`
}

// OutboundConfig holds timeouts for webhook deliveries and integration
// connector calls
type OutboundConfig struct {
	WebhookTimeout   time.Duration `yaml:"webhook_timeout"`
	ConnectorTimeout time.Duration `yaml:"connector_timeout"`
}

// ObservabilityConfig holds observability settings. LogLevelName is the
// textual form used in YAML and the environment; LogLevel is resolved
// from it during load.
type ObservabilityConfig struct {
	LogLevelName   string                 `yaml:"log_level"`
	LogLevel       observability.LogLevel `yaml:"-"`
	MetricsEnabled bool                   `yaml:"metrics_enabled"`
}

// LoadConfig loads configuration from environment variables, layered on
// top of an optional YAML file named by WARDEN_CONFIG_FILE. Environment
// variables win over the file, the file wins over defaults.
func LoadConfig() (*Config, error) {
	cfg := defaultConfig()

	if path := getEnv("WARDEN_CONFIG_FILE", ""); path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			HealthPort:      "9090",
		},
		Database: DatabaseConfig{
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Cache: CacheConfig{
			Size: 4096,
			TTL:  5 * time.Minute,
		},
		Sessions: SessionsConfig{
			SweepSchedule: "*/15 * * * *",
		},
		Outbound: OutboundConfig{
			WebhookTimeout:   10 * time.Second,
			ConnectorTimeout: 10 * time.Second,
		},
		Observability: ObservabilityConfig{
			LogLevelName:   "info",
			LogLevel:       observability.InfoLevel,
			MetricsEnabled: true,
		},
	}
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Host = getEnv("WARDEN_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnv("WARDEN_PORT", cfg.Server.Port)
	cfg.Server.HealthPort = getEnv("WARDEN_HEALTH_PORT", cfg.Server.HealthPort)
	cfg.Server.ReadTimeout = getEnvDuration("WARDEN_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getEnvDuration("WARDEN_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.IdleTimeout = getEnvDuration("WARDEN_IDLE_TIMEOUT", cfg.Server.IdleTimeout)
	cfg.Server.ShutdownTimeout = getEnvDuration("WARDEN_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)

	cfg.Database.URL = getEnv("WARDEN_POSTGRES_URL", cfg.Database.URL)
	cfg.Database.MaxOpenConns = getEnvInt("WARDEN_POSTGRES_MAX_CONNS", cfg.Database.MaxOpenConns)
	cfg.Database.MaxIdleConns = getEnvInt("WARDEN_POSTGRES_IDLE_CONNS", cfg.Database.MaxIdleConns)
	cfg.Database.ConnMaxLifetime = getEnvDuration("WARDEN_POSTGRES_CONN_LIFETIME", cfg.Database.ConnMaxLifetime)

	cfg.Redis.Addr = getEnv("WARDEN_REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("WARDEN_REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvInt("WARDEN_REDIS_DB", cfg.Redis.DB)

	cfg.Cache.Size = getEnvInt("WARDEN_CACHE_SIZE", cfg.Cache.Size)
	cfg.Cache.TTL = getEnvDuration("WARDEN_CACHE_TTL", cfg.Cache.TTL)

	cfg.Sessions.SweepSchedule = getEnv("WARDEN_SESSION_SWEEP_SCHEDULE", cfg.Sessions.SweepSchedule)

	cfg.Outbound.WebhookTimeout = getEnvDuration("WARDEN_WEBHOOK_TIMEOUT", cfg.Outbound.WebhookTimeout)
	cfg.Outbound.ConnectorTimeout = getEnvDuration("WARDEN_CONNECTOR_TIMEOUT", cfg.Outbound.ConnectorTimeout)

	cfg.Observability.LogLevelName = getEnv("WARDEN_LOG_LEVEL", cfg.Observability.LogLevelName)
	cfg.Observability.LogLevel = parseLogLevel(cfg.Observability.LogLevelName)
	cfg.Observability.MetricsEnabled = getEnvBool("WARDEN_METRICS_ENABLED", cfg.Observability.MetricsEnabled)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("max open connections must be positive")
	}

	if c.Cache.Size <= 0 {
		return fmt.Errorf("permission cache size must be positive")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("permission cache TTL must be positive")
	}

	if c.Sessions.SweepSchedule == "" {
		return fmt.Errorf("session sweep schedule is required")
	}

	if c.Outbound.WebhookTimeout <= 0 || c.Outbound.ConnectorTimeout <= 0 {
		return fmt.Errorf("outbound timeouts must be positive")
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
