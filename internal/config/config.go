// Package config handles configuration loading with validation.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Execution database backends.
const (
	ExecDBInMemory   = "in-memory"
	ExecDBExternalKV = "external-kv"
)

// Config is the complete configuration structure.
type Config struct {
	Trader   TraderConfig   `yaml:"trader"`
	Data     DataConfig     `yaml:"data"`
	Exec     ExecConfig     `yaml:"execution"`
	Venue    VenueConfig    `yaml:"venue"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// TraderConfig identifies the trader and account.
type TraderConfig struct {
	TraderID  string `yaml:"trader_id"`
	TraderTag string `yaml:"trader_tag"`
	AccountID string `yaml:"account_id"`
}

// DataConfig bounds the in-process data caches.
type DataConfig struct {
	TickCapacity int `yaml:"tick_capacity"`
	BarCapacity  int `yaml:"bar_capacity"`
}

// ExecConfig selects the execution database backend.
type ExecConfig struct {
	DBType    string `yaml:"exec_db_type"`
	StorePath string `yaml:"store_path"`
}

// VenueConfig parameterizes the simulated venue.
type VenueConfig struct {
	Name                   string  `yaml:"name"`
	StartingCapital        float64 `yaml:"starting_capital"`
	AccountCurrency        string  `yaml:"account_currency"`
	CommissionRateBp       float64 `yaml:"commission_rate_bp"`
	RolloverInterestRateBp float64 `yaml:"rollover_interest_rate_bp"`
	FrozenAccount          bool    `yaml:"frozen_account"`
	FillProbAtLimit        float64 `yaml:"fill_prob_at_limit"`
	FillProbSlippage       float64 `yaml:"fill_prob_slippage"`
	FillModelSeed          int64   `yaml:"fill_model_seed"`
}

// LoggingConfig carries the log-level knobs.
type LoggingConfig struct {
	Bypass        bool   `yaml:"bypass_logging"`
	LevelConsole  string `yaml:"level_console"`
	LevelFile     string `yaml:"level_file"`
	LevelStore    string `yaml:"level_store"`
	LevelEngine   string `yaml:"level_engine"`
	LevelStrategy string `yaml:"level_strategy"`
	LogToFile     bool   `yaml:"log_to_file"`
	LogFilePath   string `yaml:"log_file_path"`
}

// MetricsConfig controls the Prometheus registry.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads and validates a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Data.TickCapacity == 0 {
		c.Data.TickCapacity = 1000
	}
	if c.Data.BarCapacity == 0 {
		c.Data.BarCapacity = 1000
	}
	if c.Exec.DBType == "" {
		c.Exec.DBType = ExecDBInMemory
	}
	if c.Venue.Name == "" {
		c.Venue.Name = "SIM"
	}
	if c.Venue.AccountCurrency == "" {
		c.Venue.AccountCurrency = "USD"
	}
	if c.Venue.FillProbAtLimit == 0 {
		c.Venue.FillProbAtLimit = 1
	}
	if c.Logging.LevelConsole == "" {
		c.Logging.LevelConsole = "INFO"
	}
}

// Validate checks every configured value against its constraints.
func (c *Config) Validate() error {
	if c.Trader.TraderID == "" {
		return fmt.Errorf("trader_id is required")
	}
	if c.Trader.AccountID == "" {
		return fmt.Errorf("account_id is required")
	}
	if c.Data.TickCapacity <= 0 {
		return fmt.Errorf("tick_capacity must be > 0 (was %d)", c.Data.TickCapacity)
	}
	if c.Data.BarCapacity <= 0 {
		return fmt.Errorf("bar_capacity must be > 0 (was %d)", c.Data.BarCapacity)
	}
	if c.Exec.DBType != ExecDBInMemory && c.Exec.DBType != ExecDBExternalKV {
		return fmt.Errorf("exec_db_type must be %q or %q (was %q)", ExecDBInMemory, ExecDBExternalKV, c.Exec.DBType)
	}
	if c.Exec.DBType == ExecDBExternalKV && c.Exec.StorePath == "" {
		return fmt.Errorf("store_path is required for the %s backend", ExecDBExternalKV)
	}
	if c.Venue.StartingCapital <= 0 {
		return fmt.Errorf("starting_capital must be > 0 (was %f)", c.Venue.StartingCapital)
	}
	if c.Venue.CommissionRateBp < 0 {
		return fmt.Errorf("commission_rate_bp must be >= 0 (was %f)", c.Venue.CommissionRateBp)
	}
	if c.Venue.FillProbAtLimit < 0 || c.Venue.FillProbAtLimit > 1 {
		return fmt.Errorf("fill_prob_at_limit must be in [0, 1] (was %f)", c.Venue.FillProbAtLimit)
	}
	if c.Venue.FillProbSlippage < 0 || c.Venue.FillProbSlippage > 1 {
		return fmt.Errorf("fill_prob_slippage must be in [0, 1] (was %f)", c.Venue.FillProbSlippage)
	}
	if c.Logging.LogToFile && c.Logging.LogFilePath == "" {
		return fmt.Errorf("log_file_path is required when log_to_file is set")
	}
	return nil
}
