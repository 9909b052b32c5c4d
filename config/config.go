/*
Package config loads server configuration.

SOURCES (later wins):
  1. Defaults
  2. Optional config file (yaml, json, toml; picked by extension)
  3. Environment variables prefixed PAYROLL_
  4. Command-line flags, applied by cmd/server after Load

KEYS:
  port             PAYROLL_PORT             HTTP port (8080)
  db               PAYROLL_DB               SQLite path (payroll.db)
  log_level        PAYROLL_LOG_LEVEL        debug, info, warn, error (info)
  cors_origins     PAYROLL_CORS_ORIGINS     comma-separated allowed origins
  tax_profile      PAYROLL_TAX_PROFILE      optional path to a tax profile JSON file
  rate_cache_size  PAYROLL_RATE_CACHE_SIZE  rate tables kept in the API cache (64)
  rate_refresh     PAYROLL_RATE_REFRESH     cache reload interval, 0 disables (5m)
*/
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "PAYROLL"

type Config struct {
	Port          int
	DBPath        string
	LogLevel      string
	CORSOrigins   []string
	TaxProfile    string
	RateCacheSize int
	RateRefresh   time.Duration
}

// Load reads configuration from defaults, the optional file at path, and
// the environment. An empty path skips the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", 8080)
	v.SetDefault("db", "payroll.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("cors_origins", []string{"http://localhost:5173", "http://localhost:8080"})
	v.SetDefault("tax_profile", "")
	v.SetDefault("rate_cache_size", 64)
	v.SetDefault("rate_refresh", "5m")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		Port:          v.GetInt("port"),
		DBPath:        v.GetString("db"),
		LogLevel:      v.GetString("log_level"),
		CORSOrigins:   stringList(v, "cors_origins"),
		TaxProfile:    v.GetString("tax_profile"),
		RateCacheSize: v.GetInt("rate_cache_size"),
		RateRefresh:   v.GetDuration("rate_refresh"),
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("database path is required")
	}
	if c.RateCacheSize <= 0 {
		return fmt.Errorf("rate cache size must be positive, got %d", c.RateCacheSize)
	}
	if c.RateRefresh < 0 {
		return fmt.Errorf("rate refresh interval must not be negative, got %s", c.RateRefresh)
	}
	return nil
}

// stringList accepts either a list or a comma-separated string.
func stringList(v *viper.Viper, key string) []string {
	var out []string
	for _, item := range v.GetStringSlice(key) {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
