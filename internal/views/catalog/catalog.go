//-------------------------------------------------------------------------
//
// pgEdge Economic Indicators
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package catalog registers the dashboard's analysis views. Import it for
// its side effects:
//
//	import _ "github.com/pgEdge/pgedge-econ/internal/views/catalog"
//
// Every query is written in the SQL subset shared by PostgreSQL and
// SQLite. Ratios and dispersion are computed in Go so that integer
// affinity in SQLite cannot truncate them.
package catalog

import (
	"context"
	"strconv"
	"strings"

	"github.com/pgEdge/pgedge-econ/internal/db"
	"github.com/pgEdge/pgedge-econ/internal/views"
)

// Parameter descriptions shared across views.
var (
	regionParam   = views.Param{Name: views.ParamRegion, Description: "region name, case insensitive"}
	region2Param  = views.Param{Name: views.ParamRegion2, Description: "second region to compare"}
	itemParam     = views.Param{Name: views.ParamItem, Description: "food item name fragment or item code"}
	cpiItemParam  = views.Param{Name: views.ParamItem, Description: "CPI category code, e.g. SA0"}
	cpiItem2Param = views.Param{Name: views.ParamItem2, Description: "CPI category code, defaults to SA0"}
	yearParam     = views.Param{Name: views.ParamYear, Description: "year, defaults to the latest available"}
	monthParam    = views.Param{Name: views.ParamMonth, Description: "month 1-12"}
)

func required(p views.Param) views.Param {
	p.Required = true
	return p
}

// defaultCPIItem is the "All items" basket.
const defaultCPIItem = "SA0"

// query accumulates SQL text and positional arguments.
type query struct {
	b    strings.Builder
	args []any
}

func newQuery(sql string, args ...any) *query {
	q := &query{args: args}
	q.b.WriteString(sql)
	return q
}

// arg appends v to the argument list and returns its placeholder.
func (q *query) arg(v any) string {
	q.args = append(q.args, v)
	return "$" + strconv.Itoa(len(q.args))
}

func (q *query) add(sql string) *query {
	q.b.WriteString("\n")
	q.b.WriteString(sql)
	return q
}

// where appends "AND <expr> <placeholder>" binding v.
func (q *query) where(expr string, v any) *query {
	return q.add("AND " + expr + " " + q.arg(v))
}

// regionIs filters on a case insensitive region name when name is set.
func (q *query) regionIs(col, name string) *query {
	if name == "" {
		return q
	}
	return q.where("LOWER("+col+") =", strings.ToLower(name))
}

// itemMatches filters food categories on a name fragment or exact code.
func (q *query) itemMatches(item string) *query {
	if item == "" {
		return q
	}
	pattern := q.arg("%" + strings.ToLower(item) + "%")
	code := q.arg(item)
	return q.add("AND (LOWER(fc.item_name) LIKE " + pattern + " OR fc.item_code = " + code + ")")
}

func (q *query) run(ctx context.Context, d db.Querier) (*views.Table, error) {
	return views.Query(ctx, d, q.b.String(), q.args...)
}

// latestYear returns the most recent yearly period present in the given
// FROM clause, or 0 when there is none.
func latestYear(ctx context.Context, q db.Querier, from string) (int, error) {
	var year int64
	err := q.QueryRow(ctx, `
        SELECT COALESCE(MAX(tp.year), 0) `+from).Scan(&year)
	if err != nil {
		return 0, err
	}
	return int(year), nil
}

// yearOr returns f.Year, falling back to the latest year of from.
func yearOr(ctx context.Context, q db.Querier, f views.Filter, from string) (int, error) {
	if f.Year != 0 {
		return f.Year, nil
	}
	return latestYear(ctx, q, from)
}

// percentChange returns the percentage change from a to b.
func percentChange(a, b float64) (float64, bool) {
	if a == 0 {
		return 0, false
	}
	return views.Round((b-a)/a*100, 2), true
}
