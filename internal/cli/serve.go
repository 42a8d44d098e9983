package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-econ/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard",
	Long: `Serve the dashboard and its JSON API over the loaded data until
interrupted with Ctrl+C.

Endpoints:
  /                          dashboard page
  /api/views                 available views and their parameters
  /api/views/{name}          view result as JSON
  /api/views/{name}/figure   plotly figure of a view
  /api/lookups/{name}        states, food items and CPI categories
  /healthz                   database health

Example:
  pgedge-econ serve --addr :8080`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "",
		"listen address (default :8080)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveAddr != "" {
		cfg.Serve.Addr = serveAddr
	}
	if err := cfg.ValidateServe(); err != nil {
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

	return server.New(database, cfg.Serve).ListenAndServe(ctx)
}
