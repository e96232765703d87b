package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Rate limiting configuration
	RateLimit RateLimitConfig

	// WebSocket configuration
	WebSocket WebSocketConfig

	// Logging configuration
	Logging LoggingConfig

	// Application metadata
	App AppConfig

	// Signal engine configuration
	Signals SignalsConfig

	// Alert broker configuration
	Kafka KafkaConfig

	// Alert notification configuration
	Notify NotifyConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string // browser origins allowed to call the REST API
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	AutoMigrate     bool
	MigrationsPath  string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	BurstSize         int
	EvaluateRPS       float64 // Stricter limit for request-body evaluation and import
	EvaluateBurst     int
}

// WebSocketConfig holds WebSocket configuration
type WebSocketConfig struct {
	AllowedOrigins  []string
	ReadBufferSize  int
	WriteBufferSize int
	PingInterval    time.Duration
	PongWait        time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string
	Version     string
	Environment string
}

// SignalsConfig holds signal engine configuration
type SignalsConfig struct {
	RefreshInterval time.Duration
	SnapshotLimit   int
	LookbackWindow  time.Duration
	MaxRequestBytes int64
}

// KafkaConfig holds alert broker configuration
type KafkaConfig struct {
	Enabled      bool
	Brokers      []string
	AlertsTopic  string
	WriteTimeout time.Duration
}

// NotifyConfig holds alert notification configuration
type NotifyConfig struct {
	AlertRecipients []string
	FromAddress     string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// A .env file is optional, but one that exists must parse.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            env("SERVER_PORT", ":8080", asString),
			ReadTimeout:     env("SERVER_READ_TIMEOUT", 15*time.Second, time.ParseDuration),
			WriteTimeout:    env("SERVER_WRITE_TIMEOUT", 15*time.Second, time.ParseDuration),
			IdleTimeout:     env("SERVER_IDLE_TIMEOUT", 60*time.Second, time.ParseDuration),
			ShutdownTimeout: env("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second, time.ParseDuration),
			CORSOrigins:     env("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}, asList),
		},
		Database: DatabaseConfig{
			URL:             env("DATABASE_URL", "", asString),
			MaxOpenConns:    env("DB_MAX_OPEN_CONNS", 25, strconv.Atoi),
			MaxIdleConns:    env("DB_MAX_IDLE_CONNS", 5, strconv.Atoi),
			ConnMaxLifetime: env("DB_CONN_MAX_LIFETIME", 5*time.Minute, time.ParseDuration),
			ConnMaxIdleTime: env("DB_CONN_MAX_IDLE_TIME", 5*time.Minute, time.ParseDuration),
			AutoMigrate:     env("DB_AUTO_MIGRATE", false, strconv.ParseBool),
			MigrationsPath:  env("DB_MIGRATIONS_PATH", "migrations", asString),
		},
		RateLimit: RateLimitConfig{
			Enabled:           env("RATE_LIMIT_ENABLED", true, strconv.ParseBool),
			RequestsPerSecond: env[float64]("RATE_LIMIT_RPS", 10, asFloat),
			BurstSize:         env("RATE_LIMIT_BURST", 20, strconv.Atoi),
			EvaluateRPS:       env[float64]("RATE_LIMIT_EVALUATE_RPS", 2, asFloat),
			EvaluateBurst:     env("RATE_LIMIT_EVALUATE_BURST", 5, strconv.Atoi),
		},
		WebSocket: WebSocketConfig{
			AllowedOrigins:  env("WS_ALLOWED_ORIGINS", []string{}, asList),
			ReadBufferSize:  env("WS_READ_BUFFER_SIZE", 1024, strconv.Atoi),
			WriteBufferSize: env("WS_WRITE_BUFFER_SIZE", 1024, strconv.Atoi),
			PingInterval:    env("WS_PING_INTERVAL", 54*time.Second, time.ParseDuration),
			PongWait:        env("WS_PONG_WAIT", 60*time.Second, time.ParseDuration),
		},
		Logging: LoggingConfig{
			Level:  env("LOG_LEVEL", "info", asString),
			Format: env("LOG_FORMAT", "json", asString),
		},
		App: AppConfig{
			Name:        env("APP_NAME", "support-signals", asString),
			Version:     env("APP_VERSION", "dev", asString),
			Environment: env("APP_ENV", "development", asString),
		},
		Signals: SignalsConfig{
			RefreshInterval: env("SIGNALS_REFRESH_INTERVAL", 30*time.Second, time.ParseDuration),
			SnapshotLimit:   env("SIGNALS_SNAPSHOT_LIMIT", 10000, strconv.Atoi),
			LookbackWindow:  env("SIGNALS_LOOKBACK_WINDOW", 90*24*time.Hour, time.ParseDuration),
			MaxRequestBytes: env[int64]("SIGNALS_MAX_REQUEST_BYTES", 10<<20, asInt64),
		},
		Kafka: KafkaConfig{
			Enabled:      env("KAFKA_ENABLED", false, strconv.ParseBool),
			Brokers:      env("KAFKA_BROKERS", []string{"localhost:9092"}, asList),
			AlertsTopic:  env("KAFKA_ALERTS_TOPIC", "support-signals.alerts", asString),
			WriteTimeout: env("KAFKA_WRITE_TIMEOUT", 10*time.Second, time.ParseDuration),
		},
		Notify: NotifyConfig{
			AlertRecipients: env("ALERT_RECIPIENTS", []string{}, asList),
			FromAddress:     env("ALERT_FROM_ADDRESS", "support-signals@localhost", asString),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []string

	// Required fields
	if c.Database.URL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}

	// Security validations
	if c.App.Environment == "production" {
		if len(c.WebSocket.AllowedOrigins) == 0 {
			errs = append(errs, "WS_ALLOWED_ORIGINS must be set in production")
		}
	}

	// Logical validations
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		errs = append(errs, "DB_MAX_IDLE_CONNS cannot be greater than DB_MAX_OPEN_CONNS")
	}

	if c.Signals.RefreshInterval <= 0 {
		errs = append(errs, "SIGNALS_REFRESH_INTERVAL must be positive")
	}

	if c.Signals.SnapshotLimit <= 0 {
		errs = append(errs, "SIGNALS_SNAPSHOT_LIMIT must be positive")
	}

	if c.Signals.LookbackWindow < 0 {
		errs = append(errs, "SIGNALS_LOOKBACK_WINDOW cannot be negative")
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			errs = append(errs, "KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if c.Kafka.AlertsTopic == "" {
			errs = append(errs, "KAFKA_ALERTS_TOPIC is required when KAFKA_ENABLED is true")
		}
	}

	if len(errs) > 0 {
		return errors.New("configuration errors:\n  - " + strings.Join(errs, "\n  - "))
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// env reads key and parses it, falling back to def when the variable is
// unset or does not parse.
func env[T any](key string, def T, parse func(string) (T, error)) T {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return def
	}
	v, err := parse(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return v
}

func asString(s string) (string, error) { return s, nil }

func asFloat(s string) (float64, error) { return strconv.ParseFloat(s, 64) }

func asInt64(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) }

// asList splits a comma-separated value, dropping empty items. An all-empty
// list is treated as unset.
func asList(s string) ([]string, error) {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("empty list")
	}
	return out, nil
}

// String summarises the config for startup logs with credentials removed.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Server: %s, DB: %s, RateLimit: %v, Kafka: %v, Refresh: %s, Environment: %s}",
		c.Server.Port,
		redactURL(c.Database.URL),
		c.RateLimit.Enabled,
		c.Kafka.Enabled,
		c.Signals.RefreshInterval,
		c.App.Environment,
	)
}

// redactURL drops the userinfo and query of a connection URL. Anything that
// does not parse as a URL is hidden entirely.
func redactURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "[REDACTED]"
	}
	prefix := u.Scheme + "://"
	if u.User != nil {
		prefix += "[REDACTED]@"
	}
	return prefix + u.Host + u.Path
}
