// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// sensible defaults for all settings.
//
// # Configuration Structure
//
// Server settings:
//
//	TALLY_HOST="0.0.0.0"
//	TALLY_PORT="8080"
//	TALLY_HEALTH_PORT="9090"
//	TALLY_READ_TIMEOUT="15s"
//	TALLY_WRITE_TIMEOUT="15s"
//
// Database settings:
//
//	TALLY_POSTGRES_URL="postgres://localhost/tally"
//	TALLY_POSTGRES_MAX_CONNS="25"
//	TALLY_POSTGRES_TIMEOUT="30s"
//
// Redis and session settings:
//
//	TALLY_REDIS_URL="localhost:6379"
//	TALLY_REDIS_POOL_SIZE="10"
//	TALLY_SESSION_TTL="24h"
//
// Rate limiting:
//
//	TALLY_RATELIMIT_ENABLED="true"
//	TALLY_RATELIMIT_REQUESTS="100"
//	TALLY_RATELIMIT_WINDOW="1m"
//
// Activity trail:
//
//	TALLY_ACTIVITY_RETENTION_DAYS="180"  # 0 disables retention cleanup
//
// Observability settings:
//
//	TALLY_LOG_LEVEL="info"  # debug, info, warn, error
//	TALLY_METRICS_ENABLED="true"
//	TALLY_OTEL_ENABLED="true"
//	TALLY_OTEL_ENDPOINT="otel-collector:4317"
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
//	fmt.Printf("Log level: %v\n", cfg.Observability.LogLevel)
//
// # Related Packages
//
//   - pkg/storage/postgres: Uses database and Redis configuration
//   - pkg/observability: Uses observability configuration
package config
