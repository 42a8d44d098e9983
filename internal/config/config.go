//-------------------------------------------------------------------------
//
// pgEdge Economic Indicators
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package config handles configuration management for pgedge-econ.
// Configuration is loaded from config files, a fixed set of environment
// variables (DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME, DB_SSLMODE,
// ECON_DATA_DIR) and CLI flags. CLI flags take precedence over the
// environment, which takes precedence over config file values.
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/viper"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Reload modes for fact tables.
const (
	ReloadUpsert  = "upsert"
	ReloadReplace = "replace"
)

// Category name drift policies.
const (
	CategoryResync    = "resync"
	CategoryFirstSeen = "first-seen"
)

// envBindings maps config keys to the environment variables that may set them.
var envBindings = map[string]string{
	"database.host":     "DB_HOST",
	"database.port":     "DB_PORT",
	"database.user":     "DB_USER",
	"database.password": "DB_PASSWORD",
	"database.name":     "DB_NAME",
	"database.sslmode":  "DB_SSLMODE",
	"etl.data_dir":      "ECON_DATA_DIR",
}

// Config holds all configuration for pgedge-econ.
type Config struct {
	// LogLevel controls logging verbosity (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level"`

	// Database holds the connection settings.
	Database DatabaseConfig `mapstructure:"database"`

	// ETL holds configuration for the load subcommand.
	ETL ETLConfig `mapstructure:"etl"`

	// Serve holds configuration for the dashboard server.
	Serve ServeConfig `mapstructure:"serve"`
}

// DatabaseConfig describes how to reach the database.
type DatabaseConfig struct {
	// Driver is either "postgres" or "sqlite".
	Driver string `mapstructure:"driver"`

	// URL is a complete PostgreSQL connection string. When set it wins
	// over the individual host/user/password/name settings.
	URL string `mapstructure:"url"`

	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`

	// MaxConns caps the pgx pool size.
	MaxConns int32 `mapstructure:"max_conns"`

	// SQLitePath is the database file used with the sqlite driver.
	SQLitePath string `mapstructure:"sqlite_path"`
}

// ETLConfig holds configuration for loading source files.
type ETLConfig struct {
	// DataDir is the directory holding the source CSV files.
	DataDir string `mapstructure:"data_dir"`

	// ReloadMode is "upsert" (replace by key) or "replace" (clear the
	// fact table before loading it).
	ReloadMode string `mapstructure:"reload_mode"`

	// CategoryPolicy decides what happens when an item code shows up
	// with a different name: "resync" or "first-seen".
	CategoryPolicy string `mapstructure:"category_policy"`

	// Files names the source file of every family, relative to DataDir.
	Files FilesConfig `mapstructure:"files"`
}

// FilesConfig names the source files of each family.
type FilesConfig struct {
	FoodItems          string `mapstructure:"food_items"`
	FoodSeries         string `mapstructure:"food_series"`
	FoodMetadata       string `mapstructure:"food_metadata"`
	FoodAreas          string `mapstructure:"food_areas"`
	CPIBasket          string `mapstructure:"cpi_basket"`
	CPISeries          string `mapstructure:"cpi_series"`
	CPIMetadata        string `mapstructure:"cpi_metadata"`
	CPIAreas           string `mapstructure:"cpi_areas"`
	StateSales         string `mapstructure:"state_sales"`
	RegionalIncome     string `mapstructure:"regional_income"`
	StateIncomeCurrent string `mapstructure:"state_income_current"`
	StateIncome2023    string `mapstructure:"state_income_2023"`
}

// ServeConfig holds configuration for the dashboard server.
type ServeConfig struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `mapstructure:"addr"`

	// ReadTimeout and WriteTimeout are in seconds.
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

// DefaultFiles returns the file names used by the published data sets.
func DefaultFiles() FilesConfig {
	return FilesConfig{
		FoodItems:          "food_prices_items.csv",
		FoodSeries:         "food_prices_series.csv",
		FoodMetadata:       "food_prices_metadata.csv",
		FoodAreas:          "food_prices_area.csv",
		CPIBasket:          "cpi_basket.csv",
		CPISeries:          "cpi_series.csv",
		CPIMetadata:        "cpi_metadata.csv",
		CPIAreas:           "cpi_area.csv",
		StateSales:         "state_sales_no_taxes_tips.csv",
		RegionalIncome:     "income_by_region.csv",
		StateIncomeCurrent: "income_by_state_current_dollars.csv",
		StateIncome2023:    "income_by_state_2023_dollars.csv",
	}
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Database: DatabaseConfig{
			Driver:     DriverPostgres,
			Host:       "localhost",
			Port:       5432,
			User:       "econ_user",
			Name:       "economic_data",
			SSLMode:    "prefer",
			MaxConns:   10,
			SQLitePath: "economic_data.db",
		},
		ETL: ETLConfig{
			DataDir:        "data",
			ReloadMode:     ReloadUpsert,
			CategoryPolicy: CategoryResync,
			Files:          DefaultFiles(),
		},
		Serve: ServeConfig{
			Addr:         ":8080",
			ReadTimeout:  15,
			WriteTimeout: 60,
		},
	}
}

// Load reads configuration from config files and the environment.
// Config file locations (in order of precedence):
// 1. Path specified by configFile parameter
// 2. ./pgedge-econ.yaml
// 3. ~/.config/pgedge-econ/config.yaml
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("pgedge-econ")
	v.SetConfigType("yaml")

	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "pgedge-econ"))
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

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("error binding %s: %w", env, err)
		}
	}

	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// ConnString returns the PostgreSQL connection string for the settings.
func (d DatabaseConfig) ConnString() string {
	if d.URL != "" {
		return d.URL
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   d.Host,
		Path:   "/" + d.Name,
	}
	if d.Port != 0 {
		u.Host = net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
	}
	if d.User != "" {
		if d.Password != "" {
			u.User = url.UserPassword(d.User, d.Password)
		} else {
			u.User = url.User(d.User)
		}
	}
	if d.SSLMode != "" {
		q := url.Values{}
		q.Set("sslmode", d.SSLMode)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// Validate checks that the database settings are usable.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.URL == "" {
			if c.Database.Host == "" {
				return fmt.Errorf("database host is required")
			}
			if c.Database.Name == "" {
				return fmt.Errorf("database name is required")
			}
		}
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("sqlite_path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown database driver %q (want postgres or sqlite)", c.Database.Driver)
	}
	return nil
}

// ValidateLoad checks configuration required for the load command.
func (c *Config) ValidateLoad() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.ETL.DataDir == "" {
		return fmt.Errorf("data_dir is required for load")
	}
	if c.ETL.ReloadMode != ReloadUpsert && c.ETL.ReloadMode != ReloadReplace {
		return fmt.Errorf("reload_mode must be 'upsert' or 'replace'")
	}
	if c.ETL.CategoryPolicy != CategoryResync && c.ETL.CategoryPolicy != CategoryFirstSeen {
		return fmt.Errorf("category_policy must be 'resync' or 'first-seen'")
	}
	return nil
}

// ValidateServe checks configuration required for the serve command.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Serve.Addr == "" {
		return fmt.Errorf("listen address is required for serve")
	}
	if c.Serve.ReadTimeout < 0 || c.Serve.WriteTimeout < 0 {
		return fmt.Errorf("timeouts must be non-negative")
	}
	return nil
}
