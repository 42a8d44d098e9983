package cli

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-econ/internal/views"
)

var viewsFormat string

var viewsCmd = &cobra.Command{
	Use:   "views",
	Short: "List and run analysis views",
}

var viewsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available views",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Available views:")
		fmt.Fprintln(out)
		for _, v := range views.All() {
			fmt.Fprintf(out, "  %-26s %s\n", v.Name, v.Title)
			for _, p := range v.Params {
				req := ""
				if p.Required {
					req = " (required)"
				}
				fmt.Fprintf(out, "      --%-8s %s%s\n", p.Name, p.Description, req)
			}
		}
	},
}

var viewsRunCmd = &cobra.Command{
	Use:   "run <view>",
	Short: "Run a view and print its result",
	Long: `Run a view against the loaded data and print the result table
followed by any summary statistics.

Example:
  pgedge-econ views run state_sales_ranking --year 2022
  pgedge-econ views run food_price_trend --item flour --format csv`,
	Args: cobra.ExactArgs(1),
	RunE: runView,
}

func init() {
	for _, name := range []string{
		views.ParamRegion, views.ParamRegion2,
		views.ParamItem, views.ParamItem2,
		views.ParamYear, views.ParamMonth,
	} {
		viewsRunCmd.Flags().String(name, "", name+" filter")
	}
	viewsRunCmd.Flags().StringVar(&viewsFormat, "format", "table",
		"output format: table, json or csv")

	viewsCmd.AddCommand(viewsListCmd)
	viewsCmd.AddCommand(viewsRunCmd)
}

func runView(cmd *cobra.Command, args []string) error {
	v, err := views.Get(args[0])
	if err != nil {
		return err
	}

	filter, err := views.ParseFilter(func(name string) string {
		s, _ := cmd.Flags().GetString(name)
		return s
	})
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := context.Background()
	database, err := connect(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	table, err := v.Execute(ctx, database, filter)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch viewsFormat {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(table)
	case "csv":
		return writeCSV(out, table)
	case "table", "":
		return writeTable(out, v, table)
	default:
		return fmt.Errorf("unknown output format %q", viewsFormat)
	}
}

func writeTable(out io.Writer, v *views.View, t *views.Table) error {
	fmt.Fprintln(out, v.Title)
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(t.Columns, "\t"))
	for _, row := range t.Rows {
		fmt.Fprintln(w, strings.Join(formatRow(row), "\t"))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n(%d rows)\n", t.Len())

	if len(t.Stats) > 0 {
		names := make([]string, 0, len(t.Stats))
		for name := range t.Stats {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Fprintln(out)
		for _, name := range names {
			fmt.Fprintf(out, "  %-20s %s\n", name, formatValue(t.Stats[name]))
		}
	}
	return nil
}

func writeCSV(out io.Writer, t *views.Table) error {
	w := csv.NewWriter(out)
	if err := w.Write(t.Columns); err != nil {
		return err
	}
	for _, row := range t.Rows {
		if err := w.Write(formatRow(row)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatRow(row []any) []string {
	cells := make([]string, len(row))
	for i, v := range row {
		cells[i] = formatValue(v)
	}
	return cells
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
