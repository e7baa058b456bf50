// Package config handles application configuration loading from environment
// variables. It provides a centralized Config struct used across the application.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration values loaded from the environment.
type Config struct {
	// Server settings
	Host     string
	Port     string
	Env      string // "development", "production", "testing"
	LogLevel string

	// PostgreSQL connection
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Valkey (Redis-compatible cache and pub/sub)
	ValkeyHost     string
	ValkeyPort     string
	ValkeyPassword string
	ValkeyDB       int

	// S3-compatible object storage for version assets
	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3PublicURL string
	S3UseSSL    bool

	// HTTP edge
	CORSOrigins  []string
	RateLimitRPM int

	// Background work
	OutboxWorkers     int
	OutboxMaxAttempts int
	ReconcileInterval time.Duration
}

// defaults lists every key Load reads with its development default.
var defaults = map[string]any{
	"APP_HOST":      "0.0.0.0",
	"APP_PORT":      "8080",
	"APP_ENV":       "development",
	"APP_LOG_LEVEL": "info",

	"POSTGRES_HOST":     "localhost",
	"POSTGRES_PORT":     "5432",
	"POSTGRES_USER":     "postdeck",
	"POSTGRES_PASSWORD": "changeme",
	"POSTGRES_DB":       "postdeck",

	"VALKEY_HOST":     "localhost",
	"VALKEY_PORT":     "6379",
	"VALKEY_PASSWORD": "",
	"VALKEY_DB":       0,

	"S3_ENDPOINT":   "localhost:9000",
	"S3_REGION":     "us-east-1",
	"S3_ACCESS_KEY": "",
	"S3_SECRET_KEY": "",
	"S3_BUCKET":     "postdeck-assets",
	"S3_PUBLIC_URL": "",
	"S3_USE_SSL":    false,

	"CORS_ALLOWED_ORIGINS": "http://localhost:3000,http://localhost:5173",
	"RATE_LIMIT_RPM":       600,

	"OUTBOX_WORKERS":      4,
	"OUTBOX_MAX_ATTEMPTS": 5,
	"RECONCILE_INTERVAL":  "1m",
}

// Load reads configuration from environment variables, applying defaults
// for development where appropriate. Returns an error if critical values
// are missing in production mode.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	cfg := &Config{
		Host:     v.GetString("APP_HOST"),
		Port:     v.GetString("APP_PORT"),
		Env:      v.GetString("APP_ENV"),
		LogLevel: v.GetString("APP_LOG_LEVEL"),

		DBHost:     v.GetString("POSTGRES_HOST"),
		DBPort:     v.GetString("POSTGRES_PORT"),
		DBUser:     v.GetString("POSTGRES_USER"),
		DBPassword: v.GetString("POSTGRES_PASSWORD"),
		DBName:     v.GetString("POSTGRES_DB"),

		ValkeyHost:     v.GetString("VALKEY_HOST"),
		ValkeyPort:     v.GetString("VALKEY_PORT"),
		ValkeyPassword: v.GetString("VALKEY_PASSWORD"),
		ValkeyDB:       v.GetInt("VALKEY_DB"),

		S3Endpoint:  v.GetString("S3_ENDPOINT"),
		S3Region:    v.GetString("S3_REGION"),
		S3AccessKey: v.GetString("S3_ACCESS_KEY"),
		S3SecretKey: v.GetString("S3_SECRET_KEY"),
		S3Bucket:    v.GetString("S3_BUCKET"),
		S3PublicURL: v.GetString("S3_PUBLIC_URL"),
		S3UseSSL:    v.GetBool("S3_USE_SSL"),

		CORSOrigins:  splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		RateLimitRPM: v.GetInt("RATE_LIMIT_RPM"),

		OutboxWorkers:     v.GetInt("OUTBOX_WORKERS"),
		OutboxMaxAttempts: v.GetInt("OUTBOX_MAX_ATTEMPTS"),
		ReconcileInterval: v.GetDuration("RECONCILE_INTERVAL"),
	}

	if cfg.Env == "production" {
		if cfg.DBPassword == "changeme" {
			return nil, fmt.Errorf("POSTGRES_PASSWORD must be set in production")
		}
	}
	if cfg.ReconcileInterval <= 0 {
		return nil, fmt.Errorf("RECONCILE_INTERVAL must be a positive duration, got %q", v.GetString("RECONCILE_INTERVAL"))
	}

	return cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// ValkeyAddr returns the Valkey address (host:port).
func (c *Config) ValkeyAddr() string {
	return fmt.Sprintf("%s:%s", c.ValkeyHost, c.ValkeyPort)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// splitList parses a comma-separated value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
