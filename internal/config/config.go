// Package config loads tabdiff settings from environment variables, applies
// defaults and validates everything up front so misconfiguration fails at
// startup rather than mid-comparison.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Upload    UploadConfig
	Rate      RateLimitConfig
	Security  SecurityConfig
	Logging   LoggingConfig
	Catalog   CatalogConfig
	Scheduler SchedulerConfig
	Storage   StorageConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"2m"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown, including draining comparisons.
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"90s"`
}

// DatabaseConfig holds database connection settings.
// An empty URL selects the in-memory store.
type DatabaseConfig struct {
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"20"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// Migrate applies pending migrations on startup.
	Migrate bool `env:"DB_MIGRATE" default:"true"`
}

// Enabled reports whether a database is configured.
func (c *DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// UploadConfig holds file upload and comparison settings.
type UploadConfig struct {
	// MaxFileSize is the per-file limit; accepts 100MB, 512KiB or bytes
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"100MB" unit:"bytes"`

	// MaxConcurrent is the number of comparisons allowed to run at once
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" envAlt:"COMPARE_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long a comparison waits for a free slot
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`

	// TempDir receives uploaded files while they are compared (default: OS temp dir)
	TempDir string `env:"UPLOAD_TEMP_DIR"`

	// Timeout bounds a single comparison
	Timeout time.Duration `env:"UPLOAD_TIMEOUT" default:"5m"`
}

// RateLimitConfig holds per-IP rate limiting settings.
type RateLimitConfig struct {
	Enabled           bool `env:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerMinute int  `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// UploadLimit is requests per minute for endpoints that accept files
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of proxy CIDRs whose
	// forwarding headers are believed
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is text or json
	Format string `env:"LOG_FORMAT" default:"text"`
}

// CatalogConfig controls the field mapping catalog.
type CatalogConfig struct {
	// SeedPath is a YAML catalog to seed from; empty uses the built-in catalog
	SeedPath string `env:"CATALOG_SEED_PATH"`

	// SeedOnStart seeds missing field types and variations at startup
	SeedOnStart bool `env:"CATALOG_SEED_ON_START" default:"true"`
}

// SchedulerConfig controls scheduled comparison tasks.
type SchedulerConfig struct {
	Enabled bool `env:"SCHEDULER_ENABLED" default:"true"`

	// Interval is how often due tasks are checked
	Interval time.Duration `env:"SCHEDULER_INTERVAL" default:"1m"`

	// MaxConcurrent is the number of tasks run in parallel per check
	MaxConcurrent int `env:"SCHEDULER_MAX_CONCURRENT" default:"2"`
}

// StorageConfig configures remote sources (s3://bucket/key).
type StorageConfig struct {
	S3Region  string `env:"S3_REGION" envAlt:"AWS_REGION"`
	S3Profile string `env:"S3_PROFILE" envAlt:"AWS_PROFILE"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
