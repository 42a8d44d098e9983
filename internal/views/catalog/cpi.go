package catalog

import (
	"context"

	"github.com/pgEdge/pgedge-econ/internal/db"
	"github.com/pgEdge/pgedge-econ/internal/views"
)

func init() {
	views.Register(&views.View{
		Name:        "cpi_by_region",
		Title:       "CPI by Region",
		Description: "CPI value of every category in a region for one period; month 0 selects the yearly average",
		Params:      []views.Param{required(regionParam), yearParam, monthParam},
		Chart: views.Chart{
			Kind: views.ChartBar, X: "category", Y: "cpi_value",
			YLabel: "Index",
		},
		Run: cpiByRegion,
	})
	views.Register(&views.View{
		Name:        "yoy_cpi_change",
		Title:       "Year over Year CPI Change",
		Description: "Yearly CPI of one category in a region and its change from the previous year",
		Params:      []views.Param{required(regionParam), required(cpiItemParam)},
		Chart: views.Chart{
			Kind: views.ChartBar, X: "year", Y: "yoy_change",
			XLabel: "Year", YLabel: "Change (%)",
		},
		Run: yoyCPIChange,
	})
}

const cpiFrom = `
        FROM cpi_values cv
        JOIN time_periods tp ON tp.period_id = cv.period_id
        WHERE tp.month IS NULL`

func cpiByRegion(ctx context.Context, d db.Querier, f views.Filter) (*views.Table, error) {
	year, err := yearOr(ctx, d, f, cpiFrom)
	if err != nil {
		return nil, err
	}
	return newQuery(`
        SELECT cc.item_name AS category, cv.item_code, tp.year, tp.month,
               cv.value AS cpi_value, cv.base_period, cv.base_value
        FROM cpi_values cv
        JOIN cpi_categories cc ON cc.item_code = cv.item_code
        JOIN regions r ON r.region_id = cv.region_id
        JOIN time_periods tp ON tp.period_id = cv.period_id
        WHERE 1 = 1`).
		regionIs("r.region_name", f.Region).
		where("tp.year =", year).
		where("COALESCE(tp.month, 0) =", f.Month).
		add("ORDER BY cv.value DESC, cc.item_name").
		run(ctx, d)
}

// yoyCPIChange compares each yearly value with the one of the preceding
// calendar year. Gaps in the series leave the change empty.
func yoyCPIChange(ctx context.Context, d db.Querier, f views.Filter) (*views.Table, error) {
	t, err := newQuery(`
        SELECT tp.year, cv.value AS cpi_value
        FROM cpi_values cv
        JOIN regions r ON r.region_id = cv.region_id
        JOIN time_periods tp ON tp.period_id = cv.period_id
        WHERE tp.month IS NULL`).
		regionIs("r.region_name", f.Region).
		where("cv.item_code =", f.Item).
		add("ORDER BY tp.year").
		run(ctx, d)
	if err != nil {
		return nil, err
	}

	t.Columns = append(t.Columns, "prev_year_cpi", "yoy_change")
	for i, row := range t.Rows {
		var prev, change any
		if i > 0 {
			prev, change = yearOverYear(t.Rows[i-1], row)
		}
		t.Rows[i] = append(row, prev, change)
	}
	return t, nil
}

// yearOverYear returns the previous value and percentage change between
// two (year, value) rows, or nils when they are not consecutive years.
func yearOverYear(before, after []any) (any, any) {
	y0, _ := views.ToInt(before[0])
	y1, _ := views.ToInt(after[0])
	if y1 != y0+1 {
		return nil, nil
	}
	a, ok1 := views.ToFloat(before[1])
	b, ok2 := views.ToFloat(after[1])
	if !ok1 || !ok2 {
		return nil, nil
	}
	if pct, ok := percentChange(a, b); ok {
		return a, pct
	}
	return a, nil
}
