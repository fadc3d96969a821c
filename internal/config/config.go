// Package config loads upwatch's YAML configuration and applies
// environment variable overrides on top of it.
package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for all three upwatch binaries. Each
// binary only reads the sections it needs.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	CORS      CORSConfig      `yaml:"cors"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Incident  IncidentConfig  `yaml:"incident"`
	Dispatch  DispatchConfig  `yaml:"dispatch"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	ReadTimeoutMS  int    `yaml:"read_timeout_ms"`
	WriteTimeoutMS int    `yaml:"write_timeout_ms"`
}

type CORSConfig struct {
	Enabled        bool     `yaml:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
	MaxAgeSeconds  int      `yaml:"max_age_seconds"`
}

// PoolConfig defines pgxpool connection pool settings.
type PoolConfig struct {
	MaxConns               int `yaml:"max_conns"`
	MinConns               int `yaml:"min_conns"`
	MaxConnLifetimeMinutes int `yaml:"max_conn_lifetime_minutes"`
	MaxConnIdleTimeMinutes int `yaml:"max_conn_idle_time_minutes"`
}

type DatabaseConfig struct {
	Host    string     `yaml:"host"`
	Port    int        `yaml:"port"`
	User    string     `yaml:"user"`
	Password string    `yaml:"password"`
	DBName  string     `yaml:"dbname"`
	SSLMode string     `yaml:"ssl_mode"`
	Pool    PoolConfig `yaml:"pool"`
	// DSN, when set, replaces the connection fields above (host, port,
	// user, password, dbname, ssl_mode); Pool settings still apply.
	DSN string `yaml:"dsn"`
}

// RedisConfig configures the streak cache and alert queue backend. When
// Addr is empty, upwatch falls back to in-process implementations of
// both (see internal/streak and internal/alertqueue).
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AuthConfig struct {
	AdminUsername  string `yaml:"admin_username"`
	AdminPassword  string `yaml:"admin_password"`
	JWTSecret      string `yaml:"jwt_secret"`
	JWTExpiryHours int    `yaml:"jwt_expiry_hours"`
}

// SchedulerConfig tunes the Prober Core's pulse and concurrency.
type SchedulerConfig struct {
	PulseIntervalMS    int `yaml:"pulse_interval_ms"`
	ProbeWorkers       int `yaml:"probe_workers"`
	DefaultIntervalSec int `yaml:"default_interval_sec"`
	DefaultTimeoutMS   int `yaml:"default_timeout_ms"`
	// MetricsPort is where cmd/prober serves /metrics. Deliberately
	// separate from server.port so the prober and the Admin API can
	// share one config file without binding the same port.
	MetricsPort int `yaml:"metrics_port"`
}

// IncidentConfig carries the incident state machine's thresholds.
type IncidentConfig struct {
	FailThreshold    int `yaml:"fail_threshold"`
	RecoverThreshold int `yaml:"recover_threshold"`
}

// DispatchConfig configures the alert dispatcher's outbound channel.
type DispatchConfig struct {
	WebhookURL       string `yaml:"webhook_url"`
	RequestTimeoutMS int    `yaml:"request_timeout_ms"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads configuration from file, applies environment overrides, and
// validates the result.
func Load(configPath string) (*Config, error) {
	cfg := defaults()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			ReadTimeoutMS:  15000,
			WriteTimeoutMS: 15000,
		},
		CORS: CORSConfig{
			Enabled:        false,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAgeSeconds:  3600,
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			DBName:  "upwatch",
			SSLMode: "disable",
			Pool: PoolConfig{
				MaxConns:               20,
				MinConns:               2,
				MaxConnLifetimeMinutes: 60,
				MaxConnIdleTimeMinutes: 10,
			},
		},
		Auth: AuthConfig{
			JWTExpiryHours: 8,
		},
		Scheduler: SchedulerConfig{
			PulseIntervalMS:    1000,
			ProbeWorkers:       20,
			DefaultIntervalSec: 60,
			DefaultTimeoutMS:   5000,
			MetricsPort:        9090,
		},
		Incident: IncidentConfig{
			FailThreshold:    3,
			RecoverThreshold: 2,
		},
		Dispatch: DispatchConfig{
			RequestTimeoutMS: 5000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate ensures all required configuration values are set and sane.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("jwt_secret must be at least 32 characters")
	}
	if c.Database.DSN == "" && (c.Database.Host == "" || c.Database.DBName == "") {
		return fmt.Errorf("database host and dbname (or dsn) are required")
	}
	if c.Incident.FailThreshold < 1 {
		return fmt.Errorf("incident.fail_threshold must be >= 1")
	}
	if c.Incident.RecoverThreshold < 1 {
		return fmt.Errorf("incident.recover_threshold must be >= 1")
	}
	if c.Scheduler.PulseIntervalMS < 1 {
		return fmt.Errorf("scheduler.pulse_interval_ms must be >= 1")
	}
	if c.Scheduler.ProbeWorkers < 1 {
		return fmt.Errorf("scheduler.probe_workers must be >= 1")
	}
	return nil
}

// applyEnvOverrides checks for environment variables, preferring the
// UPWATCH_-prefixed structured names but also honoring the spec's flat
// names (DATABASE_URL, REDIS_URL, FAIL_THRESHOLD, ...) for operators
// migrating straight off the original system's env file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("UPWATCH_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("UPWATCH_DATABASE_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("UPWATCH_DATABASE_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("UPWATCH_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}

	if v := os.Getenv("FAIL_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Incident.FailThreshold = n
		}
	}
	if v := os.Getenv("RECOVER_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Incident.RecoverThreshold = n
		}
	}
	if v := os.Getenv("DEFAULT_INTERVAL_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Scheduler.DefaultIntervalSec = n
		}
	}
	if v := os.Getenv("CHECK_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Scheduler.DefaultTimeoutMS = n
		}
	}

	if v := os.Getenv("UPWATCH_AUTH_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("UPWATCH_AUTH_ADMIN_PASSWORD"); v != "" {
		cfg.Auth.AdminPassword = v
	}

	if v := os.Getenv("UPWATCH_DISPATCH_WEBHOOK_URL"); v != "" {
		cfg.Dispatch.WebhookURL = v
	}
}

// GetDSN returns the PostgreSQL connection string, honoring an explicit
// DSN override before falling back to the structured fields.
func (d *DatabaseConfig) GetDSN() string {
	if d.DSN != "" {
		return d.DSN
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}

	query := url.Values{}
	if d.SSLMode != "" {
		query.Set("sslmode", d.SSLMode)
	}
	u.RawQuery = query.Encode()

	return u.String()
}

func (p *PoolConfig) GetMaxConnLifetime() time.Duration {
	return time.Duration(p.MaxConnLifetimeMinutes) * time.Minute
}

func (p *PoolConfig) GetMaxConnIdleTime() time.Duration {
	return time.Duration(p.MaxConnIdleTimeMinutes) * time.Minute
}

func (a *AuthConfig) GetJWTExpiry() time.Duration {
	return time.Duration(a.JWTExpiryHours) * time.Hour
}

func (l *LoggingConfig) IsLogLevelValid() bool {
	validLevels := []string{"debug", "info", "warn", "error"}
	return slices.Contains(validLevels, strings.ToLower(l.Level))
}

func (s *SchedulerConfig) GetPulseInterval() time.Duration {
	return time.Duration(s.PulseIntervalMS) * time.Millisecond
}

func (s *SchedulerConfig) GetDefaultInterval() time.Duration {
	return time.Duration(s.DefaultIntervalSec) * time.Second
}

func (s *SchedulerConfig) GetDefaultTimeout() time.Duration {
	return time.Duration(s.DefaultTimeoutMS) * time.Millisecond
}

func (d *DispatchConfig) GetRequestTimeout() time.Duration {
	return time.Duration(d.RequestTimeoutMS) * time.Millisecond
}
