// Package config loads the dashboard server configuration.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/matthewbaird/dashboard/internal/options"
)

// Config holds all server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Seed     SeedConfig     `yaml:"seed"`
	Render   RenderConfig   `yaml:"render"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// DatabaseConfig selects the record store.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // memory, sqlite, postgres, mysql
	DSN    string `yaml:"dsn"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// SeedConfig points at the CUE seed file. Empty loads the embedded demo.
type SeedConfig struct {
	Path string `yaml:"path"`
}

// RenderConfig holds render defaults.
type RenderConfig struct {
	ListLimit   int            `yaml:"list_limit"`
	ColumnOrder string         `yaml:"column_order"` // first_seen, alphabetical, by_total
	Context     map[string]any `yaml:"context"`      // ambient options, lowest precedence
}

// Driver names.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Port: 8080},
		Database: DatabaseConfig{Driver: DriverMemory},
		Logging:  LoggingConfig{Level: "info", Format: "json"},
		Render: RenderConfig{
			ListLimit:   50,
			ColumnOrder: options.ColumnOrderFirstSeen,
		},
	}
}

// Load reads path over the defaults and applies environment overrides.
// An empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("reading config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("DATABASE_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.DSN = v
		if c.Database.Driver == DriverMemory {
			c.Database.Driver = DriverSQLite
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("DASHBOARD_SEED"); v != "" {
		c.Seed.Path = v
	}
	return nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	switch c.Database.Driver {
	case DriverMemory:
	case DriverSQLite, DriverPostgres, DriverMySQL:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for driver %q", c.Database.Driver)
		}
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}
	switch c.Render.ColumnOrder {
	case "", options.ColumnOrderFirstSeen, options.ColumnOrderAlphabetical, options.ColumnOrderByTotal:
	default:
		return fmt.Errorf("unsupported render.column_order %q", c.Render.ColumnOrder)
	}
	if c.Render.ListLimit < 0 {
		return fmt.Errorf("render.list_limit must not be negative")
	}
	return nil
}

// SQLDriver returns the database/sql driver name registered for the
// configured backend.
func (c *Config) SQLDriver() string {
	if c.Database.Driver == DriverPostgres {
		return "pgx"
	}
	return c.Database.Driver
}
