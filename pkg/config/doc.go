// Package config provides application configuration management.
//
// # Overview
//
// Configuration is layered: built-in defaults, then an optional YAML
// file named by WARDEN_CONFIG_FILE, then environment variables. The
// environment always wins.
//
// # Configuration Structure
//
// Server settings:
//
//	WARDEN_HOST="0.0.0.0"
//	WARDEN_PORT="8080"
//	WARDEN_HEALTH_PORT="9090"
//	WARDEN_READ_TIMEOUT="15s"
//	WARDEN_WRITE_TIMEOUT="15s"
//
// Database settings:
//
//	WARDEN_POSTGRES_URL="postgres://localhost/warden"
//	WARDEN_POSTGRES_MAX_CONNS="20"
//	WARDEN_POSTGRES_IDLE_CONNS="5"
//
// Event stream settings (events are logged when no Redis address is set):
//
//	WARDEN_REDIS_ADDR="localhost:6379"
//	WARDEN_REDIS_DB="0"
//
// Permission cache settings:
//
//	WARDEN_CACHE_SIZE="4096"
//	WARDEN_CACHE_TTL="5m"
//
// Session registry settings:
//
//	WARDEN_SESSION_SWEEP_SCHEDULE="*/15 * * * *"
//
// Outbound delivery settings:
//
//	WARDEN_WEBHOOK_TIMEOUT="10s"
//	WARDEN_CONNECTOR_TIMEOUT="10s"
//
// Observability settings:
//
//	WARDEN_LOG_LEVEL="info"  # debug, info, warn, error
//	WARDEN_METRICS_ENABLED="true"
//
// # Usage Example
//
// Load configuration:
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("Server: %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//	fmt.Printf("Database: %s\n", cfg.Database.URL)
//
// # Related Packages
//
//   - pkg/observability: Uses observability configuration
//   - cmd/warden: Wires the loaded configuration into the services
package config
