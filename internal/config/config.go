//-------------------------------------------------------------------------
//
// pgEdge Pharma Analytics
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package config handles configuration management for pgedge-pharma.
// Configuration is loaded from config files and CLI flags (no environment variables).
// CLI flags take precedence over config file values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/spf13/viper"
)

// DateLayout is the layout of every date value in the configuration.
const DateLayout = "2006-01-02"

var schemaNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// Config holds all configuration for pgedge-pharma.
type Config struct {
	// Connection is the PostgreSQL connection string.
	Connection string `mapstructure:"connection"`

	// Schema is the PostgreSQL schema holding the star schema tables.
	Schema string `mapstructure:"schema"`

	// LogLevel controls logging verbosity (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level"`

	// Init holds configuration for the init and generate subcommands.
	Init InitConfig `mapstructure:"init"`

	// Report holds configuration for the report and insights subcommands.
	Report ReportConfig `mapstructure:"report"`

	// ETL holds configuration for CSV loading and export.
	ETL ETLConfig `mapstructure:"etl"`

	// Serve holds configuration for the HTTP API.
	Serve ServeConfig `mapstructure:"serve"`
}

// InitConfig holds configuration for synthetic data generation.
type InitConfig struct {
	// DropExisting drops the existing schema before initialization.
	DropExisting bool `mapstructure:"drop_existing"`

	// Seed makes generation reproducible. Zero picks a random seed.
	Seed int64 `mapstructure:"seed"`

	Reps        int `mapstructure:"reps"`
	Doctors     int `mapstructure:"doctors"`
	Products    int `mapstructure:"products"`
	Territories int `mapstructure:"territories"`
	Sales       int `mapstructure:"sales"`

	// StartDate and EndDate bound the date dimension (inclusive).
	StartDate string `mapstructure:"start_date"`
	EndDate   string `mapstructure:"end_date"`
}

// ReportConfig holds configuration for report output.
type ReportConfig struct {
	// AsOf is the reference date for recency measures (YYYY-MM-DD).
	// Empty means today.
	AsOf string `mapstructure:"as_of"`

	// Format is the output format: text, csv or json.
	Format string `mapstructure:"format"`

	// OutputDir, when set, writes one file per report instead of stdout.
	OutputDir string `mapstructure:"output_dir"`
}

// ETLConfig holds configuration for CSV loading.
type ETLConfig struct {
	// DataDir holds the six table CSV files.
	DataDir string `mapstructure:"data_dir"`

	// BatchSize is the number of rows sent per COPY or batch.
	BatchSize int `mapstructure:"batch_size"`
}

// ServeConfig holds configuration for the HTTP API.
type ServeConfig struct {
	// Listen is the address the API listens on.
	Listen string `mapstructure:"listen"`

	// RefreshInterval is how often reports are recomputed (in seconds).
	RefreshInterval int `mapstructure:"refresh_interval"`

	// RefreshTimeout bounds one snapshot load and computation (in seconds).
	RefreshTimeout int `mapstructure:"refresh_timeout"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Schema:   "pharma",
		LogLevel: "info",
		Init: InitConfig{
			Reps:        50,
			Doctors:     500,
			Products:    20,
			Territories: 25,
			Sales:       50000,
			StartDate:   "2023-01-01",
			EndDate:     "2024-12-31",
		},
		Report: ReportConfig{
			Format: "text",
		},
		ETL: ETLConfig{
			DataDir:   "data",
			BatchSize: 5000,
		},
		Serve: ServeConfig{
			Listen:          ":8080",
			RefreshInterval: 300, // 5 minutes
			RefreshTimeout:  60,
		},
	}
}

// Load reads configuration from config files.
// Config file locations (in order of precedence):
// 1. Path specified by configFile parameter
// 2. ./pgedge-pharma.yaml
// 3. ~/.config/pgedge-pharma/pgedge-pharma.yaml
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("pgedge-pharma")
	v.SetConfigType("yaml")

	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "pgedge-pharma"))
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Connection == "" {
		return fmt.Errorf("connection string is required")
	}
	if !schemaNamePattern.MatchString(c.Schema) {
		return fmt.Errorf("invalid schema name %q", c.Schema)
	}
	return nil
}

// ValidateGenerate checks the data generation settings.
func (c *Config) ValidateGenerate() error {
	counts := []struct {
		name  string
		value int
	}{
		{"reps", c.Init.Reps},
		{"doctors", c.Init.Doctors},
		{"products", c.Init.Products},
		{"territories", c.Init.Territories},
	}
	for _, n := range counts {
		if n.value < 1 {
			return fmt.Errorf("%s must be at least 1", n.name)
		}
	}
	if c.Init.Sales < 0 {
		return fmt.Errorf("sales must be non-negative")
	}
	if _, _, err := c.Init.DateRange(); err != nil {
		return err
	}
	return nil
}

// ValidateInit checks configuration required for init command.
func (c *Config) ValidateInit() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := c.ValidateGenerate(); err != nil {
		return err
	}
	if c.ETL.BatchSize < 1 {
		return fmt.Errorf("batch_size must be at least 1")
	}
	return nil
}

// ValidateReport checks the report output settings. A connection is
// only required when reports are computed from the database, which the
// caller decides.
func (c *Config) ValidateReport() error {
	switch c.Report.Format {
	case "text", "csv", "json":
	default:
		return fmt.Errorf("format must be 'text', 'csv' or 'json'")
	}
	if _, err := c.Report.AsOfDate(); err != nil {
		return err
	}
	return nil
}

// ValidateETL checks configuration required for the load command.
func (c *Config) ValidateETL() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.ETL.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.ETL.BatchSize < 1 {
		return fmt.Errorf("batch_size must be at least 1")
	}
	return nil
}

// ValidateServe checks configuration required for the serve command.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Serve.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.Serve.RefreshInterval < 1 {
		return fmt.Errorf("refresh_interval must be at least 1 second")
	}
	if c.Serve.RefreshTimeout < 1 {
		return fmt.Errorf("refresh_timeout must be at least 1 second")
	}
	if _, err := c.Report.AsOfDate(); err != nil {
		return err
	}
	return nil
}

// DateRange parses the generation date bounds.
func (i InitConfig) DateRange() (time.Time, time.Time, error) {
	start, err := time.Parse(DateLayout, i.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start_date %q: %w", i.StartDate, err)
	}
	end, err := time.Parse(DateLayout, i.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end_date %q: %w", i.EndDate, err)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end_date must not be before start_date")
	}
	return start, end, nil
}

// AsOfDate parses the reference date. The zero time means today.
func (r ReportConfig) AsOfDate() (time.Time, error) {
	if r.AsOf == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(DateLayout, r.AsOf)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid as_of %q: %w", r.AsOf, err)
	}
	return t, nil
}
