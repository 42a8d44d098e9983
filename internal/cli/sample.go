package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-econ/internal/datagen"
)

var (
	sampleOut       string
	sampleSeed      uint64
	sampleStartYear int
	sampleEndYear   int
	sampleMetros    int
	sampleStates    int
	sampleClean     bool
)

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Generate a synthetic set of source files",
	Long: `Generate every source CSV file the loader reads, filled with
synthetic but internally consistent data. Unless --clean is given, a few
malformed rows are included to exercise the loader's skip handling.

Example:
  pgedge-econ sample --out ./data --seed 42
  pgedge-econ load --data-dir ./data`,
	RunE: runSample,
}

func init() {
	defaults := datagen.DefaultConfig()
	sampleCmd.Flags().StringVar(&sampleOut, "out", defaults.Dir,
		"output directory")
	sampleCmd.Flags().Uint64Var(&sampleSeed, "seed", 0,
		"random seed for reproducible output (0 picks one)")
	sampleCmd.Flags().IntVar(&sampleStartYear, "start-year", defaults.StartYear,
		"first year of data")
	sampleCmd.Flags().IntVar(&sampleEndYear, "end-year", defaults.EndYear,
		"last year of data")
	sampleCmd.Flags().IntVar(&sampleMetros, "metros", defaults.Metros,
		"number of metropolitan areas")
	sampleCmd.Flags().IntVar(&sampleStates, "states", defaults.States,
		"number of states")
	sampleCmd.Flags().BoolVar(&sampleClean, "clean", false,
		"omit malformed rows")
}

func runSample(cmd *cobra.Command, args []string) error {
	gcfg := datagen.DefaultConfig()
	gcfg.Dir = sampleOut
	gcfg.Seed = sampleSeed
	gcfg.StartYear = sampleStartYear
	gcfg.EndYear = sampleEndYear
	gcfg.Metros = sampleMetros
	gcfg.States = sampleStates
	gcfg.Malformed = !sampleClean
	gcfg.Files = cfg.ETL.Files

	ctx, cancel := signalContext(context.Background())
	defer cancel()

	stats, err := datagen.NewGenerator(gcfg).Generate(ctx)
	if err != nil {
		return fmt.Errorf("failed to generate sample data: %w", err)
	}

	out := cmd.OutOrStdout()
	var total int64
	for _, s := range stats {
		fmt.Fprintf(out, "  %-36s %8d rows  %10s\n", s.Name, s.Rows, datagen.FormatSize(s.Bytes))
		total += s.Bytes
	}
	fmt.Fprintf(out, "Wrote %d files (%s) to %s\n", len(stats), datagen.FormatSize(total), gcfg.Dir)
	return nil
}
