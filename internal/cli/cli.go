//-------------------------------------------------------------------------
//
// pgEdge Economic Indicators
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package cli implements the command-line interface for pgedge-econ.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-econ/internal/config"
	"github.com/pgEdge/pgedge-econ/internal/db"
	"github.com/pgEdge/pgedge-econ/internal/logging"
	"github.com/pgEdge/pgedge-econ/pkg/version"
)

var (
	// Global flags
	cfgFile    string
	connection string
	driver     string
	logLevel   string

	// Global config
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "pgedge-econ",
		Short: "Economic indicators loader and dashboard",
		Long: `pgedge-econ loads published economic data sets (food prices, consumer
price indexes, state food sales and household income) from CSV files into a
relational schema in PostgreSQL or SQLite, and serves a dashboard of
analysis views over the loaded data.

Typical use:
  pgedge-econ init
  pgedge-econ load --data-dir ./data
  pgedge-econ serve --addr :8080`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ./pgedge-econ.yaml)")
	rootCmd.PersistentFlags().StringVar(&connection, "connection", "",
		"PostgreSQL connection string, or the database file with --driver sqlite")
	rootCmd.PersistentFlags().StringVar(&driver, "driver", "",
		"database driver (postgres, sqlite)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level (debug, info, warn, error)")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(viewsCmd)
	rootCmd.AddCommand(sampleCmd)
}

func initConfig() error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}

	// Override with CLI flags
	if driver != "" {
		cfg.Database.Driver = driver
	}
	if connection != "" {
		if cfg.Database.Driver == config.DriverSQLite {
			cfg.Database.SQLitePath = connection
		} else {
			cfg.Database.URL = connection
		}
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	// Reinitialize logger with config
	logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})

	return nil
}

// connect opens the configured database.
func connect(ctx context.Context) (db.DB, error) {
	database, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return database, nil
}

// requireInitialized fails unless init has created the schema.
func requireInitialized(ctx context.Context, database db.DB) error {
	ok, err := db.MetadataExists(ctx, database)
	if err != nil {
		return fmt.Errorf("failed to read metadata: %w", err)
	}
	if !ok {
		return fmt.Errorf("database has not been initialized; run 'pgedge-econ init' first")
	}
	return nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logging.Info().
				Str("signal", sig.String()).
				Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(version.Info())
	},
}
