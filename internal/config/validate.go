package config

import (
	"fmt"
	"net/netip"
	"os"
	"strings"
)

// Validate checks every section and reports all failures at once.
func (c *Config) Validate() error {
	var errs []string
	errs = append(errs, c.Server.validate()...)
	errs = append(errs, c.Database.validate()...)
	errs = append(errs, c.Upload.validate()...)
	errs = append(errs, c.Rate.validate()...)
	errs = append(errs, c.Security.validate()...)
	errs = append(errs, c.Logging.validate()...)
	errs = append(errs, c.Catalog.validate()...)
	errs = append(errs, c.Scheduler.validate()...)

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func (c *ServerConfig) validate() []string {
	var errs []string
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Port))
	}
	if c.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}
	return errs
}

// Pool sizes only matter when a database is configured.
func (c *DatabaseConfig) validate() []string {
	if !c.Enabled() {
		return nil
	}
	var errs []string
	if c.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}
	if c.MinConns < 0 {
		errs = append(errs, "DB_MIN_CONNS must be non-negative")
	}
	if c.MaxConns < c.MinConns {
		errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)", c.MaxConns, c.MinConns))
	}
	return errs
}

func (c *UploadConfig) validate() []string {
	var errs []string
	if c.MaxFileSize <= 0 {
		errs = append(errs, "UPLOAD_MAX_FILE_SIZE must be positive")
	}
	if c.MaxConcurrent <= 0 {
		errs = append(errs, "UPLOAD_MAX_CONCURRENT must be positive")
	}
	if c.MaxWaitTime <= 0 {
		errs = append(errs, "UPLOAD_MAX_WAIT_TIME must be positive")
	}
	if c.Timeout <= 0 {
		errs = append(errs, "UPLOAD_TIMEOUT must be positive")
	}
	if c.TempDir != "" {
		if fi, err := os.Stat(c.TempDir); err != nil || !fi.IsDir() {
			errs = append(errs, fmt.Sprintf("UPLOAD_TEMP_DIR (%q) must be an existing directory", c.TempDir))
		}
	}
	return errs
}

func (c *RateLimitConfig) validate() []string {
	if !c.Enabled {
		return nil
	}
	var errs []string
	if c.RequestsPerMinute <= 0 {
		errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}
	if c.UploadLimit <= 0 {
		errs = append(errs, "RATE_LIMIT_UPLOAD must be positive when rate limiting is enabled")
	}
	return errs
}

// Each trusted proxy must be a CIDR or a single address.
func (c *SecurityConfig) validate() []string {
	var errs []string
	for _, p := range c.TrustedProxies {
		if _, err := netip.ParsePrefix(p); err == nil {
			continue
		}
		if _, err := netip.ParseAddr(p); err == nil {
			continue
		}
		errs = append(errs, fmt.Sprintf("TRUSTED_PROXIES entry %q is not a CIDR or IP address", p))
	}
	return errs
}

func (c *LoggingConfig) validate() []string {
	var errs []string
	switch strings.ToLower(c.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Level))
	}
	switch strings.ToLower(c.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Format))
	}
	return errs
}

func (c *CatalogConfig) validate() []string {
	if c.SeedPath == "" {
		return nil
	}
	if _, err := os.Stat(c.SeedPath); err != nil {
		return []string{fmt.Sprintf("CATALOG_SEED_PATH (%q) is not readable: %v", c.SeedPath, err)}
	}
	return nil
}

func (c *SchedulerConfig) validate() []string {
	if !c.Enabled {
		return nil
	}
	var errs []string
	if c.Interval <= 0 {
		errs = append(errs, "SCHEDULER_INTERVAL must be positive")
	}
	if c.MaxConcurrent <= 0 {
		errs = append(errs, "SCHEDULER_MAX_CONCURRENT must be positive")
	}
	return errs
}

// String returns the config for logging with the database URL masked.
func (c *Config) String() string {
	db := "[NONE]"
	if c.Database.Enabled() {
		db = "[MASKED]"
	}
	seed := c.Catalog.SeedPath
	if seed == "" {
		seed = "[BUILTIN]"
	}

	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Server: {Addr: %q, RequestTimeout: %s}, ", c.Server.Addr(), c.Server.RequestTimeout)
	fmt.Fprintf(&b, "Database: {URL: %s, MaxConns: %d, MinConns: %d, Migrate: %v}, ",
		db, c.Database.MaxConns, c.Database.MinConns, c.Database.Migrate)
	fmt.Fprintf(&b, "Upload: {MaxFileSize: %d, MaxConcurrent: %d, Timeout: %s}, ",
		c.Upload.MaxFileSize, c.Upload.MaxConcurrent, c.Upload.Timeout)
	fmt.Fprintf(&b, "Rate: {Enabled: %v, RequestsPerMinute: %d, UploadLimit: %d}, ",
		c.Rate.Enabled, c.Rate.RequestsPerMinute, c.Rate.UploadLimit)
	fmt.Fprintf(&b, "Catalog: {Seed: %s, SeedOnStart: %v}, ", seed, c.Catalog.SeedOnStart)
	fmt.Fprintf(&b, "Scheduler: {Enabled: %v, Interval: %s, MaxConcurrent: %d}, ",
		c.Scheduler.Enabled, c.Scheduler.Interval, c.Scheduler.MaxConcurrent)
	fmt.Fprintf(&b, "Storage: {S3Region: %q, S3Profile: %q}, ", c.Storage.S3Region, c.Storage.S3Profile)
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}
