/*
Copyright (C) 2026 FreshNest

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment   string
	HTTPBind      string
	HTTPPort      int
	BaseURL       string // Public base URL (e.g., https://app.example.com)
	DBBackend     DatabaseBackend
	DBDSN         string
	JWTSigningKey string
	MetricsBind   string

	// Materializer: how far ahead recurring jobs are expanded into rows.
	MaterializeLookahead time.Duration
	MaterializeInterval  time.Duration

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	// Redis cache (optional; empty address disables caching)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// NATS event bridge (optional; empty URL keeps events in-process)
	NATSURL string

	Business Business
}

// Business holds workspace scheduling settings, overridable from an
// optional YAML file pointed at by FRESHNEST_CONFIG_FILE.
type Business struct {
	WorkingHoursStart string   `yaml:"working_hours_start"` // "HH:MM"
	WorkingHoursEnd   string   `yaml:"working_hours_end"`
	DefaultDuration   int      `yaml:"default_duration_minutes"`
	QuickDuration     int      `yaml:"quick_duration_minutes"`
	CommonTimes       []string `yaml:"common_times"`
	SlotMaxResults    int      `yaml:"slot_max_results"`
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:   getEnv("FRESHNEST_ENV", "development"),
		HTTPBind:      getEnv("FRESHNEST_HTTP_BIND", "0.0.0.0"),
		HTTPPort:      getEnvInt("FRESHNEST_HTTP_PORT", 8080),
		BaseURL:       getEnv("FRESHNEST_BASE_URL", ""),
		DBBackend:     DatabaseBackend(getEnv("FRESHNEST_DB_BACKEND", string(DatabaseSQLite))),
		DBDSN:         getEnv("FRESHNEST_DB_DSN", ""),
		JWTSigningKey: getEnv("FRESHNEST_JWT_SIGNING_KEY", ""),
		MetricsBind:   getEnv("FRESHNEST_METRICS_BIND", "127.0.0.1:9000"),

		MaterializeLookahead: time.Duration(getEnvInt("FRESHNEST_MATERIALIZE_LOOKAHEAD_DAYS", 90)) * 24 * time.Hour,
		MaterializeInterval:  time.Duration(getEnvInt("FRESHNEST_MATERIALIZE_INTERVAL_MINUTES", 30)) * time.Minute,

		TracingEnabled:    getEnvBool("FRESHNEST_TRACING_ENABLED", false),
		OTLPEndpoint:      getEnv("FRESHNEST_OTLP_ENDPOINT", "localhost:4317"),
		TracingSampleRate: getEnvFloat("FRESHNEST_TRACING_SAMPLE_RATE", 1.0),

		RedisAddr:     getEnv("FRESHNEST_REDIS_ADDR", ""),
		RedisPassword: getEnv("FRESHNEST_REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("FRESHNEST_REDIS_DB", 0),

		NATSURL: getEnv("FRESHNEST_NATS_URL", ""),

		Business: Business{
			WorkingHoursStart: getEnv("FRESHNEST_WORKING_HOURS_START", "08:00"),
			WorkingHoursEnd:   getEnv("FRESHNEST_WORKING_HOURS_END", "18:00"),
			DefaultDuration:   getEnvInt("FRESHNEST_DEFAULT_DURATION_MINUTES", 60),
			QuickDuration:     getEnvInt("FRESHNEST_QUICK_DURATION_MINUTES", 120),
			SlotMaxResults:    getEnvInt("FRESHNEST_SLOT_MAX_RESULTS", 4),
		},
	}

	if path := os.Getenv("FRESHNEST_CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("FRESHNEST_DB_DSN must be provided")
	}

	if cfg.JWTSigningKey == "" {
		return nil, fmt.Errorf("FRESHNEST_JWT_SIGNING_KEY must be provided")
	}

	if strings.EqualFold(cfg.Environment, "production") && len(cfg.JWTSigningKey) < 32 {
		return nil, fmt.Errorf("FRESHNEST_JWT_SIGNING_KEY must be at least 32 bytes in production")
	}

	if cfg.Business.DefaultDuration <= 0 || cfg.Business.QuickDuration <= 0 {
		return nil, fmt.Errorf("durations must be positive")
	}

	return cfg, nil
}

// applyFile overlays the YAML business settings onto the env-derived
// defaults. Only fields present in the file override.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var overlay Business
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	if overlay.WorkingHoursStart != "" {
		c.Business.WorkingHoursStart = overlay.WorkingHoursStart
	}
	if overlay.WorkingHoursEnd != "" {
		c.Business.WorkingHoursEnd = overlay.WorkingHoursEnd
	}
	if overlay.DefaultDuration > 0 {
		c.Business.DefaultDuration = overlay.DefaultDuration
	}
	if overlay.QuickDuration > 0 {
		c.Business.QuickDuration = overlay.QuickDuration
	}
	if len(overlay.CommonTimes) > 0 {
		c.Business.CommonTimes = overlay.CommonTimes
	}
	if overlay.SlotMaxResults > 0 {
		c.Business.SlotMaxResults = overlay.SlotMaxResults
	}
	return nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "true" || v == "1" || v == "yes" {
			return true
		}
		if v == "false" || v == "0" || v == "no" {
			return false
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return def
}
