// Package config loads the explorer configuration from defaults, an optional
// YAML file, an optional .env file and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileEnv names the variable pointing at an optional YAML config file.
const FileEnv = "EXPLORER_CONFIG_FILE"

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config is the explorer configuration.
type Config struct {
	Store     string          `yaml:"store" env:"EXPLORER_STORE"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Logging   LoggingConfig   `yaml:"logging"`
	Cache     CacheConfig     `yaml:"cache"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors"`
	Directory DirectoryConfig `yaml:"directory"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" env:"EXPLORER_HOST"`
	Port            int           `yaml:"port" env:"EXPLORER_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"EXPLORER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"EXPLORER_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"EXPLORER_SHUTDOWN_TIMEOUT"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Driver          string `yaml:"driver" env:"DATABASE_DRIVER"`
	DSN             string `yaml:"dsn" env:"DATABASE_URL"`
	MaxOpenConns    int    `yaml:"max_open_conns" env:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int    `yaml:"max_idle_conns" env:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime" env:"DATABASE_CONN_MAX_LIFETIME"`
	MigrateOnStart  bool   `yaml:"migrate_on_start" env:"DATABASE_MIGRATE_ON_START"`
}

type LoggingConfig struct {
	Level      string `yaml:"level" env:"LOG_LEVEL"`
	Format     string `yaml:"format" env:"LOG_FORMAT"`
	Output     string `yaml:"output" env:"LOG_OUTPUT"`
	FilePrefix string `yaml:"file_prefix" env:"LOG_FILE_PREFIX"`
}

type CacheConfig struct {
	Enabled  bool          `yaml:"enabled" env:"CACHE_ENABLED"`
	Addr     string        `yaml:"addr" env:"REDIS_ADDR"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db" env:"REDIS_DB"`
	TTL      time.Duration `yaml:"ttl" env:"CACHE_TTL"`
}

type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled" env:"RATE_LIMIT_ENABLED"`
	RequestsPerSecond float64 `yaml:"requests_per_second" env:"RATE_LIMIT_RPS"`
	Burst             int     `yaml:"burst" env:"RATE_LIMIT_BURST"`
	// TrustProxy keys clients on X-Forwarded-For/X-Real-IP. Leave it off
	// when the server is reachable directly.
	TrustProxy bool `yaml:"trust_proxy" env:"RATE_LIMIT_TRUST_PROXY"`
}

// CORSConfig lists allowed origins. The environment form separates origins
// with semicolons.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS"`
}

type DirectoryConfig struct {
	RefreshSpec string `yaml:"refresh_spec" env:"DIRECTORY_REFRESH_SPEC"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Store: StorePostgres,
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8090,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          "postgres",
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 300,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		Cache: CacheConfig{
			Addr: "localhost:6379",
			TTL:  30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 20,
			Burst:             40,
		},
		CORS:      CORSConfig{AllowedOrigins: []string{"*"}},
		Directory: DirectoryConfig{RefreshSpec: "@every 5m"},
	}
}

// Load builds the configuration. A missing .env file is not an error; a
// missing file named by EXPLORER_CONFIG_FILE is.
func Load() (*Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(os.Getenv(FileEnv)); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// Validate checks the fields the server cannot start without.
func (c *Config) Validate() error {
	c.Store = strings.ToLower(strings.TrimSpace(c.Store))
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if strings.TrimSpace(c.Database.DSN) == "" {
			return errors.New("database dsn is required for the postgres store (set DATABASE_URL)")
		}
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Cache.Enabled && strings.TrimSpace(c.Cache.Addr) == "" {
		return errors.New("cache addr is required when the cache is enabled")
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond <= 0 {
		return errors.New("rate limit requests_per_second must be positive")
	}
	return nil
}
