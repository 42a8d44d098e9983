package catalog

import (
	"context"
	"sort"
	"strings"

	"github.com/pgEdge/pgedge-econ/internal/db"
	"github.com/pgEdge/pgedge-econ/internal/views"
)

func init() {
	views.Register(&views.View{
		Name:        "income_by_region",
		Title:       "Income by Region",
		Description: "Median and mean household income in 2023 dollars per census region, with the mean-median gap",
		Params:      []views.Param{regionParam, yearParam},
		Chart: views.Chart{
			Kind: views.ChartLine, X: "year", Y: "median_income_2023", Series: "region_name",
			XLabel: "Year", YLabel: "Median income (2023 $)",
		},
		Run: incomeByRegion,
	})
	views.Register(&views.View{
		Name:        "income_distribution",
		Title:       "Regional Income Distribution",
		Description: "Households and income per region for one year",
		Params:      []views.Param{yearParam},
		Chart: views.Chart{
			Kind: views.ChartBar, X: "region_name", Y: "median_income_2023",
			YLabel: "Median income (2023 $)",
		},
		Run: incomeDistribution,
	})
	views.Register(&views.View{
		Name:        "income_growth",
		Title:       "Income Growth",
		Description: "Growth of median income (2023 dollars) between the first and last year of each region",
		Chart: views.Chart{
			Kind: views.ChartBar, X: "region_name", Y: "growth_rate",
			YLabel: "Growth (%)",
		},
		Run: incomeGrowth,
	})
	views.Register(&views.View{
		Name:        "state_income_comparison",
		Title:       "State Income Comparison",
		Description: "Median income of two states over time",
		Params:      []views.Param{required(regionParam), required(region2Param)},
		Chart: views.Chart{
			Kind: views.ChartLine, X: "year", Y: "median_income_2023", Series: "state",
			XLabel: "Year", YLabel: "Median income (2023 $)",
		},
		Run: stateIncomeComparison,
	})
	views.Register(&views.View{
		Name:        "state_income_percentile",
		Title:       "State Income Percentile",
		Description: "Where a state's median income ranks among all states for one year",
		Params:      []views.Param{required(regionParam), yearParam},
		Run:         stateIncomePercentile,
	})
	views.Register(&views.View{
		Name:        "state_income_distribution",
		Title:       "State Income Distribution",
		Description: "Spread of state median incomes for one year",
		Params:      []views.Param{yearParam},
		Chart: views.Chart{
			Kind: views.ChartBox, Y: "median_income_2023",
			YLabel: "Median income (2023 $)",
		},
		Run: stateIncomeDistribution,
	})
}

const regionalIncomeFrom = `
        FROM regional_income ri
        JOIN time_periods tp ON tp.period_id = ri.period_id
        WHERE tp.month IS NULL`

const stateIncomeFrom = `
        FROM state_income si
        JOIN time_periods tp ON tp.period_id = si.period_id
        WHERE tp.month IS NULL`

func incomeByRegion(ctx context.Context, d db.Querier, f views.Filter) (*views.Table, error) {
	q := newQuery(`
        SELECT r.region_name, tp.year,
               ri.median_income_2023, ri.mean_income_2023
        FROM regional_income ri
        JOIN regions r ON r.region_id = ri.region_id
        JOIN time_periods tp ON tp.period_id = ri.period_id
        WHERE r.region_type IN ('region', 'division')
          AND tp.month IS NULL`).
		regionIs("r.region_name", f.Region)
	if f.Year != 0 {
		q.where("tp.year =", f.Year)
	}
	q.add("ORDER BY tp.year, r.region_name")

	t, err := q.run(ctx, d)
	if err != nil {
		return nil, err
	}
	t.AddColumn("income_gap", func(row []any) any {
		median, ok1 := t.Float(row, "median_income_2023")
		mean, ok2 := t.Float(row, "mean_income_2023")
		if !ok1 || !ok2 {
			return nil
		}
		return views.Round(mean-median, 2)
	})
	return t, nil
}

func incomeDistribution(ctx context.Context, d db.Querier, f views.Filter) (*views.Table, error) {
	year, err := yearOr(ctx, d, f, regionalIncomeFrom)
	if err != nil {
		return nil, err
	}
	q := newQuery(`
        SELECT r.region_name, tp.year, ri.households_thousands,
               ri.median_income_2023, ri.mean_income_2023
        FROM regional_income ri
        JOIN regions r ON r.region_id = ri.region_id
        JOIN time_periods tp ON tp.period_id = ri.period_id
        WHERE r.region_type IN ('region', 'division')
          AND tp.month IS NULL`).
		where("tp.year =", year).
		add("ORDER BY ri.median_income_2023 DESC, r.region_name")
	return q.run(ctx, d)
}

func incomeGrowth(ctx context.Context, d db.Querier, _ views.Filter) (*views.Table, error) {
	src, err := views.Query(ctx, d, `
        SELECT r.region_name, tp.year, ri.median_income_2023
        FROM regional_income ri
        JOIN regions r ON r.region_id = ri.region_id
        JOIN time_periods tp ON tp.period_id = ri.period_id
        WHERE r.region_type IN ('region', 'division')
          AND tp.month IS NULL
          AND ri.median_income_2023 IS NOT NULL
        ORDER BY r.region_name, tp.year`)
	if err != nil {
		return nil, err
	}

	type span struct {
		startYear, endYear int
		start, end         float64
	}
	spans := make(map[string]*span)
	var order []string
	for _, row := range src.Rows {
		name, _ := row[0].(string)
		year, _ := views.ToInt(row[1])
		income, ok := views.ToFloat(row[2])
		if !ok {
			continue
		}
		s, seen := spans[name]
		if !seen {
			spans[name] = &span{startYear: year, endYear: year, start: income, end: income}
			order = append(order, name)
			continue
		}
		s.endYear, s.end = year, income
	}

	t := &views.Table{
		Columns: []string{"region_name", "start_year", "end_year", "start_income", "end_income", "growth_rate"},
		Rows:    [][]any{},
	}
	for _, name := range order {
		s := spans[name]
		if s.endYear == s.startYear {
			continue
		}
		growth, ok := percentChange(s.start, s.end)
		if !ok {
			continue
		}
		t.Rows = append(t.Rows, []any{name, int64(s.startYear), int64(s.endYear), s.start, s.end, growth})
	}
	t.SortBy("growth_rate", true)
	return t, nil
}

func stateIncomeComparison(ctx context.Context, d db.Querier, f views.Filter) (*views.Table, error) {
	q := newQuery(`
        SELECT r.region_name AS state, tp.year,
               si.median_income_2023, si.standard_error_2023
        FROM state_income si
        JOIN regions r ON r.region_id = si.region_id
        JOIN time_periods tp ON tp.period_id = si.period_id
        WHERE tp.month IS NULL`)
	a := q.arg(strings.ToLower(f.Region))
	b := q.arg(strings.ToLower(f.Region2))
	q.add("AND LOWER(r.region_name) IN (" + a + ", " + b + ")")
	q.add("ORDER BY tp.year, r.region_name")
	return q.run(ctx, d)
}

// stateIncomePercentile ranks like PERCENT_RANK: the share of other
// states with a strictly lower income.
func stateIncomePercentile(ctx context.Context, d db.Querier, f views.Filter) (*views.Table, error) {
	year, err := yearOr(ctx, d, f, stateIncomeFrom)
	if err != nil {
		return nil, err
	}
	all, err := newQuery(`
        SELECT r.region_name AS state, si.median_income_2023
        FROM state_income si
        JOIN regions r ON r.region_id = si.region_id
        JOIN time_periods tp ON tp.period_id = si.period_id
        WHERE r.region_type = 'state'
          AND tp.month IS NULL
          AND si.median_income_2023 IS NOT NULL`).
		where("tp.year =", year).
		run(ctx, d)
	if err != nil {
		return nil, err
	}

	incomes := all.Floats("median_income_2023")
	sort.Float64s(incomes)

	t := &views.Table{
		Columns: []string{"state", "year", "median_income_2023", "percentile"},
		Rows:    [][]any{},
	}
	for _, row := range all.Rows {
		name, _ := row[0].(string)
		if !strings.EqualFold(name, f.Region) {
			continue
		}
		income, _ := views.ToFloat(row[1])
		below := sort.SearchFloat64s(incomes, income)
		pct := 0.0
		if len(incomes) > 1 {
			pct = views.Round(float64(below)/float64(len(incomes)-1)*100, 1)
		}
		t.Rows = append(t.Rows, []any{name, int64(year), income, pct})
	}
	t.SetStat("states", float64(len(incomes)))
	return t, nil
}

func stateIncomeDistribution(ctx context.Context, d db.Querier, f views.Filter) (*views.Table, error) {
	year, err := yearOr(ctx, d, f, stateIncomeFrom)
	if err != nil {
		return nil, err
	}
	t, err := newQuery(`
        SELECT r.region_name AS state, tp.year, si.median_income_2023
        FROM state_income si
        JOIN regions r ON r.region_id = si.region_id
        JOIN time_periods tp ON tp.period_id = si.period_id
        WHERE r.region_type = 'state'
          AND tp.month IS NULL
          AND si.median_income_2023 IS NOT NULL`).
		where("tp.year =", year).
		add("ORDER BY si.median_income_2023 DESC, r.region_name").
		run(ctx, d)
	if err != nil {
		return nil, err
	}
	t.Describe("income", t.Floats("median_income_2023"))
	return t, nil
}
