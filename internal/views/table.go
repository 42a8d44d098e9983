package views

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/pgEdge/pgedge-econ/internal/db"
)

// Table is a view result.
type Table struct {
	Columns []string           `json:"columns"`
	Rows    [][]any            `json:"rows"`
	Stats   map[string]float64 `json:"stats,omitempty"`
}

// Query runs sql and collects every row into a Table.
func Query(ctx context.Context, q db.Querier, sql string, args ...any) (*Table, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	t := &Table{Columns: rows.Columns(), Rows: [][]any{}}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		t.Rows = append(t.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Col returns the index of a column, or -1.
func (t *Table) Col(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Value returns the cell at row i in the named column.
func (t *Table) Value(i int, name string) any {
	c := t.Col(name)
	if c < 0 || i < 0 || i >= len(t.Rows) {
		return nil
	}
	return t.Rows[i][c]
}

// AddColumn appends a column computed from each row.
func (t *Table) AddColumn(name string, fn func(row []any) any) {
	t.Columns = append(t.Columns, name)
	for i, row := range t.Rows {
		t.Rows[i] = append(row, fn(row))
	}
}

// Float reads a numeric cell from row.
func (t *Table) Float(row []any, name string) (float64, bool) {
	c := t.Col(name)
	if c < 0 {
		return 0, false
	}
	return ToFloat(row[c])
}

// Pairs returns the aligned values of two numeric columns, dropping rows
// where either is null.
func (t *Table) Pairs(x, y string) ([]float64, []float64) {
	var xs, ys []float64
	for _, row := range t.Rows {
		a, okA := t.Float(row, x)
		b, okB := t.Float(row, y)
		if okA && okB {
			xs = append(xs, a)
			ys = append(ys, b)
		}
	}
	return xs, ys
}

// Floats returns the non-null values of a numeric column.
func (t *Table) Floats(name string) []float64 {
	var out []float64
	for _, row := range t.Rows {
		if v, ok := t.Float(row, name); ok {
			out = append(out, v)
		}
	}
	return out
}

// SetStat records a summary statistic. Non-finite values are dropped.
func (t *Table) SetStat(name string, v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	if t.Stats == nil {
		t.Stats = make(map[string]float64)
	}
	t.Stats[name] = v
}

// SortBy orders rows by the named numeric column. Nulls sort last.
func (t *Table) SortBy(name string, desc bool) {
	sort.SliceStable(t.Rows, func(i, j int) bool {
		a, okA := t.Float(t.Rows[i], name)
		b, okB := t.Float(t.Rows[j], name)
		switch {
		case !okA:
			return false
		case !okB:
			return true
		case desc:
			return a > b
		default:
			return a < b
		}
	})
}

// Limit truncates the table to at most n rows.
func (t *Table) Limit(n int) {
	if n >= 0 && len(t.Rows) > n {
		t.Rows = t.Rows[:n]
	}
}

// ToFloat converts a numeric cell. SQLite may hand back a NUMERIC column as
// either an integer or a real.
func ToFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// ToInt converts an integer cell.
func ToInt(v any) (int, bool) {
	switch x := v.(type) {
	case int64:
		return int(x), true
	case int:
		return x, true
	case float64:
		return int(x), true
	default:
		return 0, false
	}
}

// Correlation returns the Pearson coefficient of xs and ys, or NaN when
// fewer than two pairs are available.
func Correlation(xs, ys []float64) float64 {
	if len(xs) < 2 || len(xs) != len(ys) {
		return math.NaN()
	}
	return stat.Correlation(xs, ys, nil)
}

// Describe records count, mean, standard deviation and median of values
// under prefix.
func (t *Table) Describe(prefix string, values []float64) {
	t.SetStat(prefix+"_count", float64(len(values)))
	if len(values) == 0 {
		return
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	t.SetStat(prefix+"_mean", stat.Mean(sorted, nil))
	t.SetStat(prefix+"_median", stat.Quantile(0.5, stat.Empirical, sorted, nil))
	t.SetStat(prefix+"_min", sorted[0])
	t.SetStat(prefix+"_max", sorted[len(sorted)-1])
	if len(sorted) > 1 {
		t.SetStat(prefix+"_stddev", stat.StdDev(sorted, nil))
	}
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// FormatPeriod renders a year and optional month as YYYY or YYYY-MM.
func FormatPeriod(year, month any) string {
	y, ok := ToInt(year)
	if !ok {
		return ""
	}
	if m, ok := ToInt(month); ok && m > 0 {
		return fmt.Sprintf("%04d-%02d", y, m)
	}
	return fmt.Sprintf("%04d", y)
}
