package catalog

import (
	"context"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/pgEdge/pgedge-econ/internal/db"
	"github.com/pgEdge/pgedge-econ/internal/views"
)

func init() {
	views.Register(&views.View{
		Name:        "food_price_trend",
		Title:       "Food Price Trend",
		Description: "Monthly average price of a food item per region",
		Params:      []views.Param{required(itemParam), regionParam},
		Chart: views.Chart{
			Kind: views.ChartLine, X: "date", Y: "price", Series: "region_name",
			XLabel: "Month", YLabel: "Price ($)",
		},
		Run: foodPriceTrend,
	})
	views.Register(&views.View{
		Name:        "monthly_prices",
		Title:       "Monthly Prices",
		Description: "Every food price recorded for one month",
		Params:      []views.Param{required(yearParam), required(monthParam)},
		Run:         monthlyPrices,
	})
	views.Register(&views.View{
		Name:        "price_vs_cpi",
		Title:       "Food Price vs CPI",
		Description: "Food prices paired with a CPI category on the same region and month, with their correlation",
		Params:      []views.Param{required(itemParam), cpiItem2Param, regionParam},
		Chart: views.Chart{
			Kind: views.ChartScatter, X: "cpi_value", Y: "price", Series: "region_name",
			XLabel: "CPI", YLabel: "Price ($)",
		},
		Run: priceVsCPI,
	})
	views.Register(&views.View{
		Name:        "price_ranges",
		Title:       "Price Ranges",
		Description: "Minimum, maximum and average monthly price per food item for one year",
		Params:      []views.Param{yearParam},
		Chart: views.Chart{
			Kind: views.ChartBar, X: "item_name", Y: "price_range",
			YLabel: "Max - min price ($)",
		},
		Run: priceRanges,
	})
	views.Register(&views.View{
		Name:        "price_volatility",
		Title:       "Price Volatility",
		Description: "Items whose prices differ most between regions, averaged over the months of a year",
		Params:      []views.Param{yearParam},
		Chart: views.Chart{
			Kind: views.ChartBar, X: "item_name", Y: "avg_volatility",
			YLabel: "Std dev across regions ($)",
		},
		Run: priceVolatility,
	})
	views.Register(&views.View{
		Name:        "seasonal_patterns",
		Title:       "Seasonal Price Patterns",
		Description: "Average price per calendar month across all years and regions",
		Params:      []views.Param{itemParam},
		Chart: views.Chart{
			Kind: views.ChartLine, X: "month", Y: "avg_price", Series: "item_name",
			XLabel: "Month", YLabel: "Average price ($)",
		},
		Run: seasonalPatterns,
	})
}

// maxVolatileItems caps the price_volatility result.
const maxVolatileItems = 10

const monthlyPricesFrom = `
        FROM food_prices fp
        JOIN time_periods tp ON tp.period_id = fp.period_id
        WHERE tp.month IS NOT NULL`

func foodPriceTrend(ctx context.Context, d db.Querier, f views.Filter) (*views.Table, error) {
	q := newQuery(`
        SELECT r.region_name, fc.item_name, tp.year, tp.month, fp.price
        FROM food_prices fp
        JOIN food_categories fc ON fc.item_code = fp.item_code
        JOIN regions r ON r.region_id = fp.region_id
        JOIN time_periods tp ON tp.period_id = fp.period_id
        WHERE tp.period_type = 'monthly'`).
		itemMatches(f.Item).
		regionIs("r.region_name", f.Region).
		add("ORDER BY tp.year, tp.month, r.region_name, fc.item_name")

	t, err := q.run(ctx, d)
	if err != nil {
		return nil, err
	}
	t.AddColumn("date", func(row []any) any {
		return views.FormatPeriod(row[2], row[3])
	})
	return t, nil
}

func monthlyPrices(ctx context.Context, d db.Querier, f views.Filter) (*views.Table, error) {
	return newQuery(`
        SELECT fc.item_name, r.region_name, fp.price
        FROM food_prices fp
        JOIN food_categories fc ON fc.item_code = fp.item_code
        JOIN regions r ON r.region_id = fp.region_id
        JOIN time_periods tp ON tp.period_id = fp.period_id
        WHERE tp.month IS NOT NULL`).
		where("tp.year =", f.Year).
		where("tp.month =", f.Month).
		add("ORDER BY r.region_name, fp.price DESC, fc.item_name").
		run(ctx, d)
}

func priceVsCPI(ctx context.Context, d db.Querier, f views.Filter) (*views.Table, error) {
	cpiItem := f.Item2
	if cpiItem == "" {
		cpiItem = defaultCPIItem
	}

	q := newQuery(`
        SELECT r.region_name, tp.year, tp.month, fc.item_name,
               fp.price, cv.value AS cpi_value
        FROM food_prices fp
        JOIN food_categories fc ON fc.item_code = fp.item_code
        JOIN cpi_values cv ON cv.region_id = fp.region_id
                          AND cv.period_id = fp.period_id
        JOIN regions r ON r.region_id = fp.region_id
        JOIN time_periods tp ON tp.period_id = fp.period_id
        WHERE tp.period_type = 'monthly'`).
		where("cv.item_code =", cpiItem).
		itemMatches(f.Item).
		regionIs("r.region_name", f.Region).
		add("ORDER BY tp.year, tp.month, r.region_name")

	t, err := q.run(ctx, d)
	if err != nil {
		return nil, err
	}

	xs, ys := t.Pairs("price", "cpi_value")
	t.SetStat("n", float64(len(xs)))
	t.SetStat("correlation", views.Correlation(xs, ys))
	return t, nil
}

func priceRanges(ctx context.Context, d db.Querier, f views.Filter) (*views.Table, error) {
	year, err := yearOr(ctx, d, f, monthlyPricesFrom)
	if err != nil {
		return nil, err
	}
	t, err := newQuery(`
        SELECT fc.item_name,
               MIN(fp.price) AS min_price,
               MAX(fp.price) AS max_price,
               AVG(fp.price) AS avg_price,
               MAX(fp.price) - MIN(fp.price) AS price_range,
               COUNT(*) AS observations
        FROM food_prices fp
        JOIN food_categories fc ON fc.item_code = fp.item_code
        JOIN time_periods tp ON tp.period_id = fp.period_id
        WHERE tp.month IS NOT NULL`).
		where("tp.year =", year).
		add("GROUP BY fc.item_name").
		add("ORDER BY price_range DESC, fc.item_name").
		run(ctx, d)
	if err != nil {
		return nil, err
	}
	for _, row := range t.Rows {
		for _, col := range []string{"avg_price", "price_range"} {
			if v, ok := t.Float(row, col); ok {
				row[t.Col(col)] = views.Round(v, 3)
			}
		}
	}
	return t, nil
}

// priceVolatility measures, for every item and month, the standard
// deviation of prices across regions, then averages those per item.
func priceVolatility(ctx context.Context, d db.Querier, f views.Filter) (*views.Table, error) {
	year, err := yearOr(ctx, d, f, monthlyPricesFrom)
	if err != nil {
		return nil, err
	}
	src, err := newQuery(`
        SELECT fc.item_name, tp.month, fp.price
        FROM food_prices fp
        JOIN food_categories fc ON fc.item_code = fp.item_code
        JOIN time_periods tp ON tp.period_id = fp.period_id
        WHERE tp.month IS NOT NULL`).
		where("tp.year =", year).
		run(ctx, d)
	if err != nil {
		return nil, err
	}

	type itemMonth struct {
		item  string
		month int
	}
	prices := make(map[itemMonth][]float64)
	for _, row := range src.Rows {
		item, _ := row[0].(string)
		month, _ := views.ToInt(row[1])
		if price, ok := views.ToFloat(row[2]); ok {
			k := itemMonth{item, month}
			prices[k] = append(prices[k], price)
		}
	}

	monthly := make(map[string][]float64)
	for k, ps := range prices {
		if len(ps) < 2 {
			continue
		}
		monthly[k.item] = append(monthly[k.item], stat.StdDev(ps, nil))
	}

	items := make([]string, 0, len(monthly))
	for item := range monthly {
		items = append(items, item)
	}
	sort.Strings(items)

	t := &views.Table{
		Columns: []string{"item_name", "year", "avg_volatility", "months"},
		Rows:    [][]any{},
	}
	for _, item := range items {
		sds := monthly[item]
		t.Rows = append(t.Rows, []any{item, int64(year), views.Round(stat.Mean(sds, nil), 4), int64(len(sds))})
	}
	t.SortBy("avg_volatility", true)
	t.Limit(maxVolatileItems)
	return t, nil
}

func seasonalPatterns(ctx context.Context, d db.Querier, f views.Filter) (*views.Table, error) {
	t, err := newQuery(`
        SELECT fc.item_name, tp.month, AVG(fp.price) AS avg_price,
               COUNT(*) AS observations
        FROM food_prices fp
        JOIN food_categories fc ON fc.item_code = fp.item_code
        JOIN time_periods tp ON tp.period_id = fp.period_id
        WHERE tp.month IS NOT NULL`).
		itemMatches(f.Item).
		add("GROUP BY fc.item_name, tp.month").
		add("ORDER BY fc.item_name, tp.month").
		run(ctx, d)
	if err != nil {
		return nil, err
	}
	for _, row := range t.Rows {
		if v, ok := t.Float(row, "avg_price"); ok {
			row[t.Col("avg_price")] = views.Round(v, 3)
		}
	}
	return t, nil
}
