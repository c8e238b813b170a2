package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileEnvVar names an optional YAML file loaded beneath the environment.
const FileEnvVar = "LEDGER_CONFIG"

// Backend names.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendBolt     = "bolt"
)

var validBackends = []string{BackendMemory, BackendSQLite, BackendPostgres, BackendBolt}

type Config struct {
	// HTTP Server
	Port string `yaml:"port"`

	// Storage
	DataBackend  string `yaml:"data_backend"`
	SQLiteDBPath string `yaml:"sqlite_db_path"`
	PostgresDSN  string `yaml:"postgres_dsn"`
	BoltDBPath   string `yaml:"bolt_db_path"`

	// AMQP, optional for the server
	AMQPURL      string `yaml:"amqp_url"`
	AMQPExchange string `yaml:"amqp_exchange"`
	AMQPQueue    string `yaml:"amqp_queue"`

	// Ledger
	Timezone        string        `yaml:"timezone"`
	ChartWindowDays int           `yaml:"chart_window_days"`
	SeedDemo        bool          `yaml:"seed_demo"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:            "8081",
		DataBackend:     BackendSQLite,
		SQLiteDBPath:    "./data/ledger.db",
		BoltDBPath:      "./data/ledger.bolt",
		AMQPExchange:    "ledger",
		AMQPQueue:       "expense_created",
		ChartWindowDays: 7,
		CacheTTL:        time.Minute,
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// Load builds the configuration from defaults, the optional YAML file named
// by LEDGER_CONFIG, then the environment. Later sources win.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(FileEnvVar); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)

	c.DataBackend = getEnv("DATA_BACKEND", c.DataBackend)
	c.SQLiteDBPath = getEnv("SQLITE_DB_PATH", c.SQLiteDBPath)
	c.PostgresDSN = getEnv("POSTGRES_DSN", c.PostgresDSN)
	c.BoltDBPath = getEnv("BOLT_DB_PATH", c.BoltDBPath)

	c.AMQPURL = getEnv("AMQP_URL", c.AMQPURL)
	c.AMQPExchange = getEnv("AMQP_EXCHANGE", c.AMQPExchange)
	c.AMQPQueue = getEnv("AMQP_QUEUE", c.AMQPQueue)

	c.Timezone = getEnv("TIMEZONE", c.Timezone)
	c.ChartWindowDays = getEnvInt("CHART_WINDOW_DAYS", c.ChartWindowDays)
	c.SeedDemo = getEnvBool("SEED_DEMO", c.SeedDemo)
	c.CacheTTL = getEnvDuration("CACHE_TTL", c.CacheTTL)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
}

// Location resolves Timezone. Empty means the host's local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errs = append(errs, "SQLite database path cannot be empty when using sqlite backend")
		} else if msg := ensureDir(c.SQLiteDBPath); msg != "" {
			errs = append(errs, msg)
		}
	case BackendBolt:
		if c.BoltDBPath == "" {
			errs = append(errs, "bolt database path cannot be empty when using bolt backend")
		} else if msg := ensureDir(c.BoltDBPath); msg != "" {
			errs = append(errs, msg)
		}
	case BackendPostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, "Postgres DSN cannot be empty when using postgres backend")
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Sprintf("invalid timezone '%s'", c.Timezone))
	}

	if c.ChartWindowDays < 1 {
		errs = append(errs, fmt.Sprintf("invalid chart window %d: must be at least 1 day", c.ChartWindowDays))
	} else if c.ChartWindowDays > 366 {
		errs = append(errs, fmt.Sprintf("invalid chart window %d: must be at most 366 days", c.ChartWindowDays))
	}

	if c.CacheTTL < 0 {
		errs = append(errs, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}

	return nil
}

// ValidateWorker adds the requirements of the event worker.
func (c *Config) ValidateWorker() error {
	err := c.Validate()
	if c.AMQPURL == "" {
		err = errors.Join(err, errors.New("AMQP URL is required for the worker"))
	}
	switch c.DataBackend {
	case BackendMemory:
		err = errors.Join(err, errors.New("the worker cannot share a memory backend with the server"))
	case BackendBolt:
		// bbolt holds an exclusive file lock for as long as the server runs
		err = errors.Join(err, errors.New("the worker cannot share a bolt file with the server; use sqlite or postgres"))
	}
	return err
}

// ensureDir creates the parent directory of path when missing.
func ensureDir(path string) string {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return ""
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Sprintf("cannot create database directory '%s': %v", dir, err)
		}
	}
	return ""
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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
