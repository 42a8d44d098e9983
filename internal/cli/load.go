package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-econ/internal/etl"
)

var (
	loadDataDir        string
	loadReloadMode     string
	loadCategoryPolicy string
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load source CSV files into an initialized database",
	Long: `Load every data family (food and CPI categories, food prices, CPI
values, state food sales, regional and state income) from the data
directory. Each family is loaded in its own transaction; a family that
fails is rolled back without affecting the others. Malformed rows are
skipped and counted.

Reload modes:
  upsert  - replace rows by key, rows absent from the files remain (default)
  replace - clear each fact table before loading it

Example:
  pgedge-econ load --data-dir ./data
  pgedge-econ load --data-dir ./data --reload-mode replace`,
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().StringVar(&loadDataDir, "data-dir", "",
		"directory holding the source CSV files")
	loadCmd.Flags().StringVar(&loadReloadMode, "reload-mode", "",
		"reload mode: upsert or replace")
	loadCmd.Flags().StringVar(&loadCategoryPolicy, "category-policy", "",
		"category name drift policy: resync or first-seen")
}

func runLoad(cmd *cobra.Command, args []string) error {
	// Override config with CLI flags
	if loadDataDir != "" {
		cfg.ETL.DataDir = loadDataDir
	}
	if loadReloadMode != "" {
		cfg.ETL.ReloadMode = loadReloadMode
	}
	if loadCategoryPolicy != "" {
		cfg.ETL.CategoryPolicy = loadCategoryPolicy
	}

	if err := cfg.ValidateLoad(); err != nil {
		return err
	}

	ctx, cancel := signalContext(context.Background())
	defer cancel()

	database, err := connect(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := requireInitialized(ctx, database); err != nil {
		return err
	}

	report, err := etl.NewLoader(database, cfg.ETL).Run(ctx)
	if report != nil {
		report.Log()
	}
	if err != nil {
		return fmt.Errorf("load interrupted: %w", err)
	}

	if failed := report.Failed(); len(failed) > 0 {
		names := make([]string, 0, len(failed))
		for _, f := range failed {
			names = append(names, f.Name)
		}
		return fmt.Errorf("%d of %d families failed: %s",
			len(failed), len(report.Families), strings.Join(names, ", "))
	}
	return nil
}
