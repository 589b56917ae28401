package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"ledger/internal/core"
)

type Config struct {
	// Database
	DBPath string

	// Ledger
	Categories []string

	// Logging
	LogLevel  string
	LogFormat string

	// Query cache
	CacheSize int
	CacheTTL  time.Duration

	// Metrics textfile written on shutdown; empty disables it.
	MetricsFile string
}

func Load() *Config {
	return &Config{
		DBPath:     getEnv("LEDGER_DB_PATH", "./data/expenditure.db"),
		Categories: getEnvList("LEDGER_CATEGORIES", core.DefaultCategories),

		LogLevel:  getEnv("LEDGER_LOG_LEVEL", "info"),
		LogFormat: getEnv("LEDGER_LOG_FORMAT", "text"),

		CacheSize: getEnvInt("LEDGER_CACHE_SIZE", 64),
		CacheTTL:  getEnvDuration("LEDGER_CACHE_TTL", 5*time.Minute),

		MetricsFile: getEnv("LEDGER_METRICS_FILE", ""),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if c.DBPath == "" {
		errors = append(errors, "database path cannot be empty")
	} else if dir := filepath.Dir(c.DBPath); dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				errors = append(errors, fmt.Sprintf("cannot create database directory '%s': %v", dir, err))
			}
		}
	}

	if core.NewCategories(c.Categories).Len() == 0 {
		errors = append(errors, "at least one category is required")
	}
	for _, cat := range c.Categories {
		if strings.TrimSpace(cat) == core.AllCategories {
			errors = append(errors, fmt.Sprintf("category name '%s' is reserved", core.AllCategories))
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of [debug info warn error]", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if c.CacheSize < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must not be negative", c.CacheSize))
	} else if c.CacheSize > 10000 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at most 10000", c.CacheSize))
	}
	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	}

	if c.MetricsFile != "" && filepath.Ext(c.MetricsFile) != ".prom" {
		errors = append(errors, fmt.Sprintf("invalid metrics file '%s': must end in .prom", c.MetricsFile))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated variable, keeping order.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return append([]string(nil), defaultValue...)
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
