package catalog

import (
	"context"

	"github.com/pgEdge/pgedge-econ/internal/db"
	"github.com/pgEdge/pgedge-econ/internal/views"
)

func init() {
	views.Register(&views.View{
		Name:        "state_sales_ranking",
		Title:       "State Food Sales Ranking",
		Description: "States ranked by total food sales for one year",
		Params:      []views.Param{yearParam},
		Chart: views.Chart{
			Kind: views.ChartBar, X: "state", Y: "total_sales_million",
			YLabel: "Sales ($ million)",
		},
		Run: stateSalesRanking,
	})
	views.Register(&views.View{
		Name:        "state_sales_trend",
		Title:       "State Food Sales Over Time",
		Description: "Yearly food sales per state",
		Params:      []views.Param{regionParam},
		Chart: views.Chart{
			Kind: views.ChartLine, X: "year", Y: "total_sales_million", Series: "state",
			XLabel: "Year", YLabel: "Sales ($ million)",
		},
		Run: stateSalesTrend,
	})
	views.Register(&views.View{
		Name:        "sales_vs_income",
		Title:       "Food Sales vs Income",
		Description: "State food sales against state median income, with their correlation; defaults to the latest year having both",
		Params:      []views.Param{yearParam},
		Chart: views.Chart{
			Kind: views.ChartScatter, X: "median_income_2023", Y: "total_sales_million",
			XLabel: "Median income (2023 $)", YLabel: "Sales ($ million)",
		},
		Run: salesVsIncome,
	})
	views.Register(&views.View{
		Name:        "summary",
		Title:       "Quick Stats",
		Description: "Number of states, average median income and total food sales for the latest year having both",
		Params:      []views.Param{yearParam},
		Run:         summary,
	})
}

const stateSalesFrom = `
        FROM state_food_sales sfs
        JOIN regions r ON r.region_id = sfs.region_id
        JOIN time_periods tp ON tp.period_id = sfs.period_id
        WHERE r.region_type = 'state'
          AND tp.month IS NULL
          AND sfs.total_sales_million IS NOT NULL`

const salesIncomeFrom = `
        FROM state_food_sales sfs
        JOIN state_income si ON si.region_id = sfs.region_id
                            AND si.period_id = sfs.period_id
        JOIN regions r ON r.region_id = sfs.region_id
        JOIN time_periods tp ON tp.period_id = sfs.period_id
        WHERE r.region_type = 'state'
          AND tp.month IS NULL
          AND sfs.total_sales_million IS NOT NULL
          AND si.median_income_2023 IS NOT NULL`

func stateSalesRanking(ctx context.Context, d db.Querier, f views.Filter) (*views.Table, error) {
	year, err := yearOr(ctx, d, f, stateSalesFrom)
	if err != nil {
		return nil, err
	}
	t, err := newQuery(`
        SELECT r.region_name AS state, tp.year, sfs.total_sales_million
        FROM state_food_sales sfs
        JOIN regions r ON r.region_id = sfs.region_id
        JOIN time_periods tp ON tp.period_id = sfs.period_id
        WHERE r.region_type = 'state'
          AND tp.month IS NULL
          AND sfs.total_sales_million IS NOT NULL`).
		where("tp.year =", year).
		add("ORDER BY sfs.total_sales_million DESC, r.region_name").
		run(ctx, d)
	if err != nil {
		return nil, err
	}
	rank := int64(0)
	t.AddColumn("rank", func([]any) any { rank++; return rank })
	return t, nil
}

func stateSalesTrend(ctx context.Context, d db.Querier, f views.Filter) (*views.Table, error) {
	return newQuery(`
        SELECT r.region_name AS state, tp.year, sfs.total_sales_million
        FROM state_food_sales sfs
        JOIN regions r ON r.region_id = sfs.region_id
        JOIN time_periods tp ON tp.period_id = sfs.period_id
        WHERE r.region_type = 'state'
          AND tp.month IS NULL
          AND sfs.total_sales_million IS NOT NULL`).
		regionIs("r.region_name", f.Region).
		add("ORDER BY tp.year, r.region_name").
		run(ctx, d)
}

func salesVsIncome(ctx context.Context, d db.Querier, f views.Filter) (*views.Table, error) {
	year, err := yearOr(ctx, d, f, salesIncomeFrom)
	if err != nil {
		return nil, err
	}
	t, err := newQuery(`
        SELECT r.region_name AS state, tp.year,
               si.median_income_2023, sfs.total_sales_million
        FROM state_food_sales sfs
        JOIN state_income si ON si.region_id = sfs.region_id
                            AND si.period_id = sfs.period_id
        JOIN regions r ON r.region_id = sfs.region_id
        JOIN time_periods tp ON tp.period_id = sfs.period_id
        WHERE r.region_type = 'state'
          AND tp.month IS NULL
          AND sfs.total_sales_million IS NOT NULL
          AND si.median_income_2023 IS NOT NULL`).
		where("tp.year =", year).
		add("ORDER BY si.median_income_2023 DESC, r.region_name").
		run(ctx, d)
	if err != nil {
		return nil, err
	}

	xs, ys := t.Pairs("median_income_2023", "total_sales_million")
	t.SetStat("year", float64(year))
	t.SetStat("n", float64(len(xs)))
	t.SetStat("correlation", views.Correlation(xs, ys))
	return t, nil
}

func summary(ctx context.Context, d db.Querier, f views.Filter) (*views.Table, error) {
	year, err := yearOr(ctx, d, f, salesIncomeFrom)
	if err != nil {
		return nil, err
	}
	t, err := newQuery(`
        SELECT COUNT(DISTINCT r.region_id) AS states,
               AVG(si.median_income_2023) AS avg_median_income,
               SUM(sfs.total_sales_million) AS total_sales_million
        FROM state_food_sales sfs
        JOIN state_income si ON si.region_id = sfs.region_id
                            AND si.period_id = sfs.period_id
        JOIN regions r ON r.region_id = sfs.region_id
        JOIN time_periods tp ON tp.period_id = sfs.period_id
        WHERE r.region_type = 'state'
          AND tp.month IS NULL
          AND sfs.total_sales_million IS NOT NULL
          AND si.median_income_2023 IS NOT NULL`).
		where("tp.year =", year).
		run(ctx, d)
	if err != nil {
		return nil, err
	}

	t.AddColumn("year", func([]any) any { return int64(year) })
	if t.Len() == 1 {
		for _, col := range []string{"states", "avg_median_income", "total_sales_million"} {
			if v, ok := t.Float(t.Rows[0], col); ok {
				t.SetStat(col, views.Round(v, 2))
			}
		}
	}
	return t, nil
}
