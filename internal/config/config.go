// Package config provides application configuration through environment variables.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/allisson/go-env"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// ServerHost is the host address the server will bind to.
	ServerHost string
	// ServerPort is the port number the server will listen on.
	ServerPort int

	// DBDriver is the database driver to use ("postgres", "mysql" or "sqlite").
	DBDriver string
	// DBConnectionString is the connection string for the database.
	DBConnectionString string
	// DBMaxOpenConnections is the maximum number of open connections to the database.
	DBMaxOpenConnections int
	// DBMaxIdleConnections is the maximum number of idle connections in the database pool.
	DBMaxIdleConnections int
	// DBConnMaxLifetime is the maximum amount of time a connection may be reused.
	DBConnMaxLifetime time.Duration

	// LogLevel is the logging level (e.g., "debug", "info", "warn", "error").
	LogLevel string

	// SessionTTL is the duration a derived key stays usable in the session cache.
	SessionTTL time.Duration
	// SessionSweepInterval is how often expired session cache entries are purged.
	SessionSweepInterval time.Duration

	// KDFTime is the argon2id time parameter (number of passes).
	KDFTime uint32
	// KDFMemoryKiB is the argon2id memory parameter in KiB.
	KDFMemoryKiB uint32
	// KDFThreads is the argon2id parallelism parameter.
	KDFThreads uint8

	// AEADAlgorithm selects the cipher for stored secrets
	// ("aes-gcm" or "chacha20-poly1305").
	AEADAlgorithm string

	// VaultServices is a comma-separated list of recognized service identifiers.
	VaultServices string

	// RateLimitEnabled indicates whether per-IP rate limiting of vault endpoints is enabled.
	RateLimitEnabled bool
	// RateLimitRequestsPerSec is the number of requests allowed per second per IP.
	RateLimitRequestsPerSec float64
	// RateLimitBurst is the burst size for per-IP rate limiting.
	RateLimitBurst int

	// CORSEnabled indicates whether CORS is enabled.
	CORSEnabled bool
	// CORSAllowOrigins is a comma-separated list of allowed origins for CORS.
	CORSAllowOrigins string

	// MetricsEnabled indicates whether metrics collection is enabled.
	MetricsEnabled bool
	// MetricsNamespace is the namespace for the application metrics.
	MetricsNamespace string
	// MetricsPort is the port number for the metrics server.
	MetricsPort int
}

// Load loads configuration from environment variables and .env file.
func Load() *Config {
	// Try to load .env file recursively
	loadDotEnv()

	return &Config{
		// Server configuration
		ServerHost: env.GetString("SERVER_HOST", "0.0.0.0"),
		ServerPort: env.GetInt("SERVER_PORT", 8080),

		// Database configuration
		DBDriver: env.GetString("DB_DRIVER", "sqlite"),
		DBConnectionString: env.GetString(
			"DB_CONNECTION_STRING",
			"file:data/credvault.db?_pragma=busy_timeout(5000)",
		),
		DBMaxOpenConnections: env.GetInt("DB_MAX_OPEN_CONNECTIONS", 25),
		DBMaxIdleConnections: env.GetInt("DB_MAX_IDLE_CONNECTIONS", 5),
		DBConnMaxLifetime:    env.GetDuration("DB_CONN_MAX_LIFETIME", 5, time.Minute),

		// Logging
		LogLevel: env.GetString("LOG_LEVEL", "info"),

		// Session cache
		SessionTTL:           env.GetDuration("SESSION_TTL_SECONDS", 900, time.Second),
		SessionSweepInterval: env.GetDuration("SESSION_SWEEP_INTERVAL_SECONDS", 60, time.Second),

		// Key derivation (argon2id)
		KDFTime:      uint32(env.GetInt("KDF_TIME", 1)),
		KDFMemoryKiB: uint32(env.GetInt("KDF_MEMORY_KIB", 64*1024)),
		KDFThreads:   uint8(env.GetInt("KDF_THREADS", 4)),

		// Authenticated encryption
		AEADAlgorithm: env.GetString("AEAD_ALGORITHM", "aes-gcm"),

		// Recognized services
		VaultServices: env.GetString("VAULT_SERVICES", "flavortown,hackatime"),

		// Rate Limiting (per client IP)
		RateLimitEnabled:        env.GetBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequestsPerSec: env.GetFloat64("RATE_LIMIT_REQUESTS_PER_SEC", 5.0),
		RateLimitBurst:          env.GetInt("RATE_LIMIT_BURST", 10),

		// CORS
		CORSEnabled:      env.GetBool("CORS_ENABLED", false),
		CORSAllowOrigins: env.GetString("CORS_ALLOW_ORIGINS", ""),

		// Metrics
		MetricsEnabled:   env.GetBool("METRICS_ENABLED", true),
		MetricsNamespace: env.GetString("METRICS_NAMESPACE", "credvault"),
		MetricsPort:      env.GetInt("METRICS_PORT", 8081),
	}
}

// GetGinMode returns the Gin mode based on the configured log level.
func (c *Config) GetGinMode() string {
	if c.LogLevel == "debug" {
		return "debug"
	}
	return "release"
}

// loadDotEnv attempts to load a .env file by walking up from the current
// working directory. Missing .env files are not an error.
func loadDotEnv() {
	dir, err := os.Getwd()
	if err != nil {
		return
	}

	for {
		envFile := filepath.Join(dir, ".env")
		if _, err := os.Stat(envFile); err == nil {
			_ = godotenv.Load(envFile)
			return
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}
