// Package config loads healthd configuration from a YAML file with
// environment-variable overrides. A missing file is not an error: defaults
// match the original single-machine deployment (local SQLite file, Redis on
// localhost, cache disabled until explicitly enabled).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all healthd configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DatabaseConfig configures the relational store.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// RedisConfig configures the cache backend. Enabled=false pins the cache
// layer in degraded (pass-through) mode without touching the network.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	DB       int    `yaml:"db"`
	Password string `yaml:"password"`
}

// Addr returns the host:port dial target for the cache backend.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`  // empty = stderr
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "data/health_assistant.db",
		},
		Redis: RedisConfig{
			Enabled: false,
			Host:    "localhost",
			Port:    6379,
			DB:      0,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. A nonexistent path yields the
// defaults; environment overrides are applied either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variables on top of file values.
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("HEALTHD_DB"); path != "" {
		c.Database.Path = path
	}

	if host := os.Getenv("HEALTHD_REDIS_HOST"); host != "" {
		c.Redis.Host = host
	}
	if port := os.Getenv("HEALTHD_REDIS_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil {
			c.Redis.Port = n
		}
	}
	if db := os.Getenv("HEALTHD_REDIS_DB"); db != "" {
		if n, err := strconv.Atoi(db); err == nil {
			c.Redis.DB = n
		}
	}
	if pw := os.Getenv("HEALTHD_REDIS_PASSWORD"); pw != "" {
		c.Redis.Password = pw
	}
	if enabled := os.Getenv("HEALTHD_CACHE_ENABLED"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			c.Redis.Enabled = b
		}
	}

	if level := os.Getenv("HEALTHD_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}
