package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hyperengineering/cadence/internal/docstore"
)

// Config is the root configuration structure.
// It is read-only after Load() returns and thread-safe for concurrent reads.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Store  StoreConfig  `yaml:"store"`
	Auth   AuthConfig   `yaml:"auth"`
	Worker WorkerConfig `yaml:"worker"`
	Log    LogConfig    `yaml:"log"`
	Engine EngineConfig `yaml:"engine"`
	Backup BackupConfig `yaml:"backup"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// StoreConfig selects and configures the document store backend.
type StoreConfig struct {
	Backend string `yaml:"backend"`
	// Path is the SQLite database file.
	Path string `yaml:"path"`
	// Dir holds one JSON file per document for the file backend.
	Dir string `yaml:"dir"`
	// Watch reloads the tracker when files in Dir change on disk.
	Watch bool        `yaml:"watch"`
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig contains Redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"-"` // env-only, never in YAML
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// AuthConfig contains authentication settings.
type AuthConfig struct {
	APIKey string `yaml:"-"` // env-only, never in YAML
}

// WorkerConfig contains background worker settings. A zero interval
// disables the worker.
type WorkerConfig struct {
	RolloverInterval Duration `yaml:"rollover_interval"`
	BackupInterval   Duration `yaml:"backup_interval"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// EngineConfig contains goal engine settings.
type EngineConfig struct {
	// Timezone is an IANA name. Calendar periods (daily boundaries, month
	// ends) are evaluated in it. "Local" uses the host zone.
	Timezone string `yaml:"timezone"`
}

// BackupConfig configures S3-compatible export backups. An empty bucket
// keeps the service in local-only mode.
type BackupConfig struct {
	Bucket    string   `yaml:"bucket"`
	Endpoint  string   `yaml:"endpoint"`
	Region    string   `yaml:"region"`
	Prefix    string   `yaml:"prefix"`
	UseSSL    *bool    `yaml:"use_ssl"`
	AccessKey string   `yaml:"-"` // env-only, never in YAML
	SecretKey string   `yaml:"-"` // env-only, never in YAML
	URLExpiry Duration `yaml:"url_expiry"`
}

// Enabled reports whether a bucket is configured.
func (b BackupConfig) Enabled() bool {
	return b.Bucket != ""
}

// Location resolves Engine.Timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Engine.Timezone == "" || c.Engine.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Engine.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Engine.Timezone, err)
	}
	return loc, nil
}

// Duration is a wrapper around time.Duration that supports YAML string parsing.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Load loads configuration with precedence: defaults → YAML file → env vars.
// Returns an immutable Config suitable for concurrent read access.
func Load() (*Config, error) {
	cfg := newDefaults()

	configPath := getEnv("CADENCE_CONFIG_PATH", "config/cadence.yaml")

	// Missing file is not an error
	if err := loadYAMLFile(cfg, configPath); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadLocal loads configuration for offline commands that open the store
// directly and never serve HTTP. The API key is not required.
func LoadLocal() (*Config, error) {
	cfg := newDefaults()

	if err := loadYAMLFile(cfg, getEnv("CADENCE_CONFIG_PATH", "config/cadence.yaml")); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.validateLocal(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a specific path.
// Used for testing and callers that pass an explicit config path.
func LoadFromFile(path string) (*Config, error) {
	cfg := newDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// newDefaults returns a Config with all default values.
func newDefaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			ShutdownTimeout: Duration(15 * time.Second),
		},
		Store: StoreConfig{
			Backend: docstore.BackendSQLite,
			Path:    "data/cadence.db",
			Dir:     "data/cadence",
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "cadence:",
			},
		},
		Worker: WorkerConfig{
			RolloverInterval: Duration(1 * time.Minute),
			BackupInterval:   Duration(24 * time.Hour),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Engine: EngineConfig{
			Timezone: "Local",
		},
		Backup: BackupConfig{
			Endpoint:  "s3.amazonaws.com",
			Region:    "us-east-1",
			Prefix:    "cadence",
			UseSSL:    boolPtr(true),
			URLExpiry: Duration(15 * time.Minute),
		},
	}
}

func boolPtr(b bool) *bool { return &b }

// loadYAMLFile loads configuration from a YAML file if it exists.
func loadYAMLFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Only non-empty env vars override config values.
func applyEnvOverrides(cfg *Config) {
	// Server
	if v := os.Getenv("CADENCE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	envDuration("CADENCE_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("CADENCE_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("CADENCE_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	// Store
	if v := os.Getenv("CADENCE_STORE_BACKEND"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("CADENCE_DB_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("CADENCE_STORE_DIR"); v != "" {
		cfg.Store.Dir = v
	}
	if v := os.Getenv("CADENCE_STORE_WATCH"); v != "" {
		cfg.Store.Watch = v == "true" || v == "1"
	}
	if v := os.Getenv("CADENCE_REDIS_ADDR"); v != "" {
		cfg.Store.Redis.Addr = v
	}
	if v := os.Getenv("CADENCE_REDIS_PASSWORD"); v != "" {
		cfg.Store.Redis.Password = v
	}
	if v := os.Getenv("CADENCE_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Store.Redis.DB = n
		}
	}
	if v := os.Getenv("CADENCE_REDIS_PREFIX"); v != "" {
		cfg.Store.Redis.Prefix = v
	}

	// Auth
	if v := os.Getenv("CADENCE_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}

	// Worker
	envDuration("CADENCE_ROLLOVER_INTERVAL", &cfg.Worker.RolloverInterval)
	envDuration("CADENCE_BACKUP_INTERVAL", &cfg.Worker.BackupInterval)

	// Log
	if v := os.Getenv("CADENCE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("CADENCE_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}

	// Engine
	if v := os.Getenv("CADENCE_TIMEZONE"); v != "" {
		cfg.Engine.Timezone = v
	}

	// Backup
	if v := os.Getenv("CADENCE_BACKUP_BUCKET"); v != "" {
		cfg.Backup.Bucket = v
	}
	if v := os.Getenv("CADENCE_BACKUP_PREFIX"); v != "" {
		cfg.Backup.Prefix = v
	}
	if v := os.Getenv("CADENCE_S3_ENDPOINT"); v != "" {
		cfg.Backup.Endpoint = v
	}
	if v := os.Getenv("CADENCE_S3_REGION"); v != "" {
		cfg.Backup.Region = v
	}
	if v := os.Getenv("CADENCE_S3_ACCESS_KEY"); v != "" {
		cfg.Backup.AccessKey = v
	}
	if v := os.Getenv("CADENCE_S3_SECRET_KEY"); v != "" {
		cfg.Backup.SecretKey = v
	}
	if v := os.Getenv("CADENCE_S3_USE_SSL"); v != "" {
		useSSL := v == "true" || v == "1"
		cfg.Backup.UseSSL = &useSSL
	}
	envDuration("CADENCE_S3_URL_EXPIRY", &cfg.Backup.URLExpiry)
}

func envDuration(key string, dst *Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = Duration(d)
		}
	}
}

// validate checks that required configuration values are set.
// In dev mode (CADENCE_DEV_MODE=true), API key validation is skipped.
func (c *Config) validate() error {
	if err := c.validateLocal(); err != nil {
		return err
	}

	if DevMode() {
		return nil
	}
	if c.Auth.APIKey == "" {
		return errors.New("CADENCE_API_KEY is required")
	}
	return nil
}

// validateLocal checks everything except server auth.
func (c *Config) validateLocal() error {
	if !slices.Contains(docstore.Backends, c.Store.Backend) {
		return fmt.Errorf("unknown store backend %q (want one of %v)", c.Store.Backend, docstore.Backends)
	}
	if c.Store.Backend == docstore.BackendFile && c.Store.Dir == "" {
		return errors.New("store.dir is required for the file backend")
	}
	if c.Worker.RolloverInterval < 0 || c.Worker.BackupInterval < 0 {
		return errors.New("worker intervals must not be negative")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// DevMode reports whether CADENCE_DEV_MODE is set.
func DevMode() bool {
	return os.Getenv("CADENCE_DEV_MODE") == "true"
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
