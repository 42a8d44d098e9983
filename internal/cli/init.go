package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-econ/internal/db"
	"github.com/pgEdge/pgedge-econ/internal/logging"
	"github.com/pgEdge/pgedge-econ/internal/schema"
	"github.com/pgEdge/pgedge-econ/pkg/version"
)

var initDropExisting bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the database schema",
	Long: `Create the dimension and fact tables used by the loader and the
dashboard. Existing tables are kept unless --drop-existing is given, in
which case all tables and loaded data are removed first.

Example:
  pgedge-econ init --connection "postgres://econ_user@localhost/economic_data"
  pgedge-econ init --driver sqlite --connection economic_data.db --drop-existing`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initDropExisting, "drop-existing", false,
		"drop existing tables before initialization")
}

func runInit(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := context.Background()
	database, err := connect(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	logging.Info().
		Str("driver", string(database.Dialect())).
		Msg("Initializing database")

	// Refuse to mix schema versions
	existing, err := db.GetMetadataValue(ctx, database, db.MetaSchemaVersion)
	if err == nil && existing != version.SchemaVersion && !initDropExisting {
		return fmt.Errorf(
			"database has schema version %s but this build uses %s; "+
				"use --drop-existing to reinitialize",
			existing, version.SchemaVersion)
	}

	if initDropExisting {
		logging.Info().Msg("Dropping existing schema")
		if err := schema.Drop(ctx, database); err != nil {
			return fmt.Errorf("failed to drop schema: %w", err)
		}
		if err := db.DropMetadata(ctx, database); err != nil {
			logging.Debug().Err(err).Msg("No metadata table to drop")
		}
	}

	logging.Info().Msg("Creating schema")
	if err := schema.Create(ctx, database); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	if err := db.SaveInitMetadata(ctx, database, version.SchemaVersion); err != nil {
		return fmt.Errorf("failed to save metadata: %w", err)
	}

	logging.Info().
		Str("schema_version", version.SchemaVersion).
		Msg("Database initialization complete")

	return nil
}
