package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"
)

// Config holds all configuration for the library MCP server.
// Precedence: environment variables > config file > defaults.
type Config struct {
	Server        ServerConfig        `toml:"server"`
	Database      DatabaseConfig      `toml:"database"`
	Loan          LoanConfig          `toml:"loan"`
	LateFee       LateFeeConfig       `toml:"late_fee"`
	Sampling      SamplingConfig      `toml:"sampling"`
	Pagination    PaginationConfig    `toml:"pagination"`
	Observability ObservabilityConfig `toml:"observability"`
	Log           LogConfig           `toml:"log"`
}

// ServerConfig holds MCP server metadata.
type ServerConfig struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// DatabaseConfig points at the single-node relational store.
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// LoanConfig governs checkout duration bounds.
type LoanConfig struct {
	DefaultDays int `toml:"default_days"`
	MaxDays     int `toml:"max_days"`
}

// LateFeeConfig governs overdue-fine accrual.
type LateFeeConfig struct {
	PerDay string `toml:"per_day"` // decimal string, e.g. "0.25"
}

// PerDayAmount parses PerDay as a decimal. Validate has already
// guaranteed this succeeds by the time a caller reaches here.
func (l LateFeeConfig) PerDayAmount() decimal.Decimal {
	d, _ := decimal.NewFromString(l.PerDay)
	return d
}

// SamplingConfig governs the sampling client's outbound wait.
type SamplingConfig struct {
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// PaginationConfig bounds resource list page sizes.
type PaginationConfig struct {
	DefaultPageSize int `toml:"default_page_size"`
	MaxPageSize     int `toml:"max_page_size"`
}

// ObservabilityConfig governs the recorder middleware and the
// background maintenance sweep.
type ObservabilityConfig struct {
	Enabled              bool    `toml:"enabled"`
	SampleRate           float64 `toml:"sample_rate"`
	SweepIntervalSeconds int     `toml:"sweep_interval_seconds"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
}

// Load creates a Config by reading from a TOML config file and environment
// variables. Precedence: environment variables > config file > defaults.
//
// Config file search order (first found wins):
//  1. Path passed via configPath parameter (from --config flag)
//  2. LIBRARYMCP_CONFIG environment variable
//  3. ./librarymcp.toml (current directory)
//  4. ~/.config/librarymcp/librarymcp.toml (XDG-style)
//
// All fields are optional in the config file. Environment variables always
// override file values.
func Load(configPath string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Name:    "librarymcp",
			Version: "0.1.0",
		},
		Database: DatabaseConfig{
			Path: "library.db",
		},
		Loan: LoanConfig{
			DefaultDays: 14,
			MaxDays:     56,
		},
		LateFee: LateFeeConfig{
			PerDay: "0.25",
		},
		Sampling: SamplingConfig{
			TimeoutSeconds: 20,
		},
		Pagination: PaginationConfig{
			DefaultPageSize: 20,
			MaxPageSize:     100,
		},
		Observability: ObservabilityConfig{
			Enabled:              false,
			SampleRate:           1.0,
			SweepIntervalSeconds: 300,
		},
		Log: LogConfig{
			Level: "info",
		},
	}

	if err := cfg.loadFile(configPath); err != nil {
		return nil, err
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile finds and parses the TOML config file. If no file is found,
// this is a no-op (config file is optional).
func (c *Config) loadFile(configPath string) error {
	path := resolveConfigPath(configPath)
	if path == "" {
		return nil
	}

	if _, err := toml.DecodeFile(path, c); err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}

	return nil
}

// resolveConfigPath determines which config file to use. Returns empty string
// if no config file is found (config file is optional).
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}

	if p := os.Getenv("LIBRARYMCP_CONFIG"); p != "" {
		return p
	}

	if _, err := os.Stat("librarymcp.toml"); err == nil {
		return "librarymcp.toml"
	}

	if home, err := os.UserHomeDir(); err == nil {
		p := home + "/.config/librarymcp/librarymcp.toml"
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

// applyEnv overlays environment variables on top of existing config values.
// An env var only takes effect if it is non-empty.
func (c *Config) applyEnv() {
	envOverride("LIBRARYMCP_DATABASE_PATH", &c.Database.Path)
	envOverride("LIBRARYMCP_LATE_FEE_PER_DAY", &c.LateFee.PerDay)
	envOverride("LIBRARYMCP_LOG_LEVEL", &c.Log.Level)

	if v := os.Getenv("LIBRARYMCP_LOAN_DEFAULT_DAYS"); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil && n > 0 {
			c.Loan.DefaultDays = n
		}
	}
	if v := os.Getenv("LIBRARYMCP_LOAN_MAX_DAYS"); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil && n > 0 {
			c.Loan.MaxDays = n
		}
	}
	if v := os.Getenv("LIBRARYMCP_SAMPLING_TIMEOUT_SECONDS"); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil && n > 0 {
			c.Sampling.TimeoutSeconds = n
		}
	}
	if v := os.Getenv("LIBRARYMCP_PAGINATION_DEFAULT_PAGE_SIZE"); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil && n > 0 {
			c.Pagination.DefaultPageSize = n
		}
	}
	if v := os.Getenv("LIBRARYMCP_PAGINATION_MAX_PAGE_SIZE"); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil && n > 0 {
			c.Pagination.MaxPageSize = n
		}
	}
	if v := os.Getenv("LIBRARYMCP_OBSERVABILITY_ENABLED"); v != "" {
		c.Observability.Enabled = v == "true" || v == "1"
	}
}

// Validate checks that required fields are present and internally consistent.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Loan.DefaultDays <= 0 {
		return fmt.Errorf("loan.default_days must be positive")
	}
	if c.Loan.MaxDays < c.Loan.DefaultDays {
		return fmt.Errorf("loan.max_days (%d) must be >= loan.default_days (%d)", c.Loan.MaxDays, c.Loan.DefaultDays)
	}
	if _, err := decimal.NewFromString(c.LateFee.PerDay); err != nil {
		return fmt.Errorf("late_fee.per_day must be a decimal string: %w", err)
	}
	if c.Sampling.TimeoutSeconds <= 0 {
		return fmt.Errorf("sampling.timeout_seconds must be positive")
	}
	if c.Pagination.DefaultPageSize <= 0 {
		return fmt.Errorf("pagination.default_page_size must be positive")
	}
	if c.Pagination.MaxPageSize < c.Pagination.DefaultPageSize {
		return fmt.Errorf("pagination.max_page_size (%d) must be >= pagination.default_page_size (%d)", c.Pagination.MaxPageSize, c.Pagination.DefaultPageSize)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Log.Level)
	}
	return nil
}

// envOverride sets *dst to the value of the named env var, if it is non-empty.
func envOverride(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
