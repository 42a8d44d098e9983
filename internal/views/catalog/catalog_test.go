package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgEdge/pgedge-econ/internal/config"
	"github.com/pgEdge/pgedge-econ/internal/db"
	"github.com/pgEdge/pgedge-econ/internal/etl"
	"github.com/pgEdge/pgedge-econ/internal/schema"
	"github.com/pgEdge/pgedge-econ/internal/testutil"
	"github.com/pgEdge/pgedge-econ/internal/views"
)

// loadedDB returns a SQLite database holding the fixture data set.
func loadedDB(t *testing.T) db.DB {
	t.Helper()
	ctx := context.Background()

	d := testutil.SQLiteDB(t)
	require.NoError(t, schema.Create(ctx, d))

	report, err := etl.NewLoader(d, config.ETLConfig{
		DataDir:        testutil.CopyFixtures(t),
		ReloadMode:     config.ReloadUpsert,
		CategoryPolicy: config.CategoryResync,
		Files:          config.DefaultFiles(),
	}).Run(ctx)
	require.NoError(t, err)
	require.Empty(t, report.Failed())
	return d
}

func run(t *testing.T, d db.DB, name string, f views.Filter) *views.Table {
	t.Helper()
	v, err := views.Get(name)
	require.NoError(t, err)
	tbl, err := v.Execute(context.Background(), d, f)
	require.NoError(t, err)
	return tbl
}

// column returns every value of a column.
func column(tbl *views.Table, name string) []any {
	c := tbl.Col(name)
	out := make([]any, 0, len(tbl.Rows))
	for _, row := range tbl.Rows {
		out = append(out, row[c])
	}
	return out
}

func float(t *testing.T, tbl *views.Table, i int, name string) float64 {
	t.Helper()
	v, ok := views.ToFloat(tbl.Value(i, name))
	require.True(t, ok, "%s[%d] = %v", name, i, tbl.Value(i, name))
	return v
}

func TestCatalogRegistered(t *testing.T) {
	for _, name := range []string{
		"income_by_region", "income_distribution", "income_growth",
		"state_income_comparison", "state_income_percentile", "state_income_distribution",
		"food_price_trend", "monthly_prices", "price_vs_cpi", "price_ranges",
		"price_volatility", "seasonal_patterns",
		"cpi_by_region", "yoy_cpi_change",
		"state_sales_ranking", "state_sales_trend", "sales_vs_income", "summary",
	} {
		v, err := views.Get(name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, v.Description, name)
		assert.NotNil(t, v.Run, name)
	}
}

func TestStateSalesRanking(t *testing.T) {
	d := loadedDB(t)

	tbl := run(t, d, "state_sales_ranking", views.Filter{Year: 2022})
	assert.Equal(t, []any{"California", "Texas"}, column(tbl, "state"))
	assert.InDelta(t, 121000, float(t, tbl, 0, "total_sales_million"), 1e-9)
	assert.InDelta(t, 98000, float(t, tbl, 1, "total_sales_million"), 1e-9)
	assert.Equal(t, []any{int64(1), int64(2)}, column(tbl, "rank"))

	latest := run(t, d, "state_sales_ranking", views.Filter{})
	assert.Equal(t, []any{"Florida"}, column(latest, "state"))
}

func TestStateSalesExcludesNonStates(t *testing.T) {
	ctx := context.Background()
	d := loadedDB(t)

	r := etl.NewResolver(d)
	national, err := r.RegionID(ctx, "United States", schema.RegionState)
	require.NoError(t, err)
	for _, year := range []int{2022, 2024} {
		pid, err := r.PeriodID(ctx, etl.Yearly(year))
		require.NoError(t, err)
		_, err = d.Exec(ctx, `
            INSERT INTO state_food_sales (region_id, period_id, total_sales_million)
            VALUES ($1, $2, 900000)
        `, national, pid)
		require.NoError(t, err)
	}

	tbl := run(t, d, "state_sales_ranking", views.Filter{Year: 2022})
	assert.Equal(t, []any{"California", "Texas"}, column(tbl, "state"))

	latest := run(t, d, "state_sales_ranking", views.Filter{})
	assert.Equal(t, []any{"Florida"}, column(latest, "state"))

	trend := run(t, d, "state_sales_trend", views.Filter{})
	assert.NotContains(t, column(trend, "state"), "United States")
}

func TestStateSalesTrend(t *testing.T) {
	d := loadedDB(t)

	tbl := run(t, d, "state_sales_trend", views.Filter{})
	assert.Equal(t, []any{"California", "Texas", "Florida"}, column(tbl, "state"))

	ca := run(t, d, "state_sales_trend", views.Filter{Region: "CALIFORNIA"})
	assert.Equal(t, 1, ca.Len())
}

func TestSalesVsIncome(t *testing.T) {
	d := loadedDB(t)

	tbl := run(t, d, "sales_vs_income", views.Filter{})
	assert.Equal(t, []any{"California", "Texas"}, column(tbl, "state"))
	assert.Equal(t, 2022.0, tbl.Stats["year"])
	assert.Equal(t, 2.0, tbl.Stats["n"])
	assert.InDelta(t, 1.0, tbl.Stats["correlation"], 1e-9)

	none := run(t, d, "sales_vs_income", views.Filter{Year: 2023})
	assert.Equal(t, 0, none.Len())
	assert.NotContains(t, none.Stats, "correlation")
}

func TestSummary(t *testing.T) {
	d := loadedDB(t)

	tbl := run(t, d, "summary", views.Filter{})
	require.Equal(t, 1, tbl.Len())
	assert.Equal(t, 2.0, tbl.Stats["states"])
	assert.InDelta(t, 80250, tbl.Stats["avg_median_income"], 1e-6)
	assert.InDelta(t, 219000, tbl.Stats["total_sales_million"], 1e-6)
	assert.Equal(t, int64(2022), tbl.Value(0, "year"))
}

func TestIncomeByRegion(t *testing.T) {
	d := loadedDB(t)

	tbl := run(t, d, "income_by_region", views.Filter{})
	require.Equal(t, 4, tbl.Len())
	assert.Equal(t, []any{"Midwest", "Northeast", "Midwest", "Northeast"}, column(tbl, "region_name"))
	assert.InDelta(t, 34000, float(t, tbl, 3, "income_gap"), 1e-9)

	ne := run(t, d, "income_by_region", views.Filter{Region: "northeast", Year: 2013})
	require.Equal(t, 1, ne.Len())
	assert.InDelta(t, 72000, float(t, ne, 0, "median_income_2023"), 1e-9)
}

func TestIncomeDistribution(t *testing.T) {
	d := loadedDB(t)

	tbl := run(t, d, "income_distribution", views.Filter{})
	assert.Equal(t, []any{"Northeast", "Midwest"}, column(tbl, "region_name"))
	assert.InDelta(t, 23000, float(t, tbl, 0, "households_thousands"), 1e-9)
}

func TestIncomeGrowth(t *testing.T) {
	d := loadedDB(t)

	tbl := run(t, d, "income_growth", views.Filter{})
	assert.Equal(t, []any{"Northeast", "Midwest"}, column(tbl, "region_name"))
	assert.InDelta(t, 19.44, float(t, tbl, 0, "growth_rate"), 1e-9)
	assert.InDelta(t, 13.43, float(t, tbl, 1, "growth_rate"), 1e-9)
	assert.Equal(t, int64(2013), tbl.Value(0, "start_year"))
	assert.Equal(t, int64(2023), tbl.Value(0, "end_year"))
}

func TestStateIncomeComparison(t *testing.T) {
	d := loadedDB(t)

	_, err := mustView(t, "state_income_comparison").Execute(context.Background(), d, views.Filter{Region: "Texas"})
	require.ErrorIs(t, err, views.ErrInvalidFilter)

	tbl := run(t, d, "state_income_comparison", views.Filter{Region: "texas", Region2: "California"})
	assert.Equal(t, []any{"California", "Texas", "California"}, column(tbl, "state"))
	assert.Equal(t, []any{int64(2022), int64(2022), int64(2023)}, column(tbl, "year"))
}

func TestStateIncomePercentile(t *testing.T) {
	d := loadedDB(t)

	tbl := run(t, d, "state_income_percentile", views.Filter{Region: "California", Year: 2022})
	require.Equal(t, 1, tbl.Len())
	assert.Equal(t, 100.0, float(t, tbl, 0, "percentile"))

	tx := run(t, d, "state_income_percentile", views.Filter{Region: "Texas", Year: 2022})
	require.Equal(t, 1, tx.Len())
	assert.Equal(t, 0.0, float(t, tx, 0, "percentile"))
	assert.Equal(t, 2.0, tx.Stats["states"])
}

func TestStateIncomeDistribution(t *testing.T) {
	d := loadedDB(t)

	tbl := run(t, d, "state_income_distribution", views.Filter{Year: 2022})
	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, 2.0, tbl.Stats["income_count"])
	assert.InDelta(t, 80250, tbl.Stats["income_mean"], 1e-9)
	assert.Equal(t, 72500.0, tbl.Stats["income_min"])
	assert.Equal(t, 88000.0, tbl.Stats["income_max"])
}

func TestFoodPriceTrend(t *testing.T) {
	d := loadedDB(t)

	tbl := run(t, d, "food_price_trend", views.Filter{Item: "flour"})
	require.Equal(t, 3, tbl.Len())
	assert.Equal(t, []any{"2023-01", "2023-01", "2023-02"}, column(tbl, "date"))
	assert.Equal(t, []any{"Georgia", "U.S. city average", "U.S. city average"}, column(tbl, "region_name"))

	byCode := run(t, d, "food_price_trend", views.Filter{Item: "701111", Region: "georgia"})
	require.Equal(t, 1, byCode.Len())
	assert.InDelta(t, 0.6, float(t, byCode, 0, "price"), 1e-9)

	_, err := mustView(t, "food_price_trend").Execute(context.Background(), d, views.Filter{})
	assert.ErrorIs(t, err, views.ErrInvalidFilter)
}

func TestMonthlyPrices(t *testing.T) {
	d := loadedDB(t)

	tbl := run(t, d, "monthly_prices", views.Filter{Year: 2023, Month: 2})
	require.Equal(t, 1, tbl.Len())
	assert.InDelta(t, 0.52, float(t, tbl, 0, "price"), 1e-9)
}

func TestPriceVsCPI(t *testing.T) {
	d := loadedDB(t)

	tbl := run(t, d, "price_vs_cpi", views.Filter{Item: "flour"})
	require.Equal(t, 1, tbl.Len())
	assert.Equal(t, "U.S. city average", tbl.Value(0, "region_name"))
	assert.InDelta(t, 0.5, float(t, tbl, 0, "price"), 1e-9)
	assert.InDelta(t, 299.17, float(t, tbl, 0, "cpi_value"), 1e-9)
	assert.Equal(t, 1.0, tbl.Stats["n"])
	assert.NotContains(t, tbl.Stats, "correlation")

	food := run(t, d, "price_vs_cpi", views.Filter{Item: "flour", Item2: "SAF1"})
	assert.Equal(t, 0, food.Len())
}

func TestPriceRanges(t *testing.T) {
	d := loadedDB(t)

	tbl := run(t, d, "price_ranges", views.Filter{})
	require.Equal(t, 2, tbl.Len())
	assert.Contains(t, tbl.Value(0, "item_name"), "Flour")
	assert.InDelta(t, 0.1, float(t, tbl, 0, "price_range"), 1e-9)
	assert.InDelta(t, 0.54, float(t, tbl, 0, "avg_price"), 1e-9)
	assert.InDelta(t, 3, float(t, tbl, 0, "observations"), 0)
	assert.InDelta(t, 0, float(t, tbl, 1, "price_range"), 1e-9)
}

func TestPriceVolatility(t *testing.T) {
	d := loadedDB(t)

	tbl := run(t, d, "price_volatility", views.Filter{Year: 2023})
	require.Equal(t, 2, tbl.Len())
	assert.Contains(t, tbl.Value(0, "item_name"), "Flour")
	assert.InDelta(t, 0.0707, float(t, tbl, 0, "avg_volatility"), 1e-4)
	assert.Equal(t, int64(1), tbl.Value(0, "months"))
	assert.InDelta(t, 0, float(t, tbl, 1, "avg_volatility"), 1e-9)
}

func TestSeasonalPatterns(t *testing.T) {
	d := loadedDB(t)

	tbl := run(t, d, "seasonal_patterns", views.Filter{Item: "bread"})
	require.Equal(t, 1, tbl.Len())
	assert.Equal(t, int64(1), tbl.Value(0, "month"))
	assert.InDelta(t, 1.9, float(t, tbl, 0, "avg_price"), 1e-9)

	all := run(t, d, "seasonal_patterns", views.Filter{})
	assert.Equal(t, 3, all.Len())
}

func TestCPIByRegion(t *testing.T) {
	d := loadedDB(t)

	tbl := run(t, d, "cpi_by_region", views.Filter{Region: "u.s. city average"})
	assert.Equal(t, []any{"SAF1", "SA0"}, column(tbl, "item_code"))
	assert.InDelta(t, 299.17, float(t, tbl, 1, "cpi_value"), 1e-9)
	assert.Equal(t, "1982-84", tbl.Value(1, "base_period"))

	june := run(t, d, "cpi_by_region", views.Filter{Region: "U.S. city average", Year: 2023, Month: 6})
	assert.Equal(t, []any{"SAF1"}, column(june, "item_code"))
}

func TestYoYCPIChange(t *testing.T) {
	d := loadedDB(t)

	tbl := run(t, d, "yoy_cpi_change", views.Filter{Region: "U.S. city average", Item: "SA0"})
	require.Equal(t, 2, tbl.Len())
	assert.Nil(t, tbl.Value(0, "yoy_change"))
	assert.InDelta(t, 296.797, float(t, tbl, 1, "prev_year_cpi"), 1e-9)
	assert.InDelta(t, 0.8, float(t, tbl, 1, "yoy_change"), 1e-9)
}

func TestLookups(t *testing.T) {
	d := loadedDB(t)
	ctx := context.Background()

	states, err := views.Lookup(ctx, d, "states")
	require.NoError(t, err)
	assert.Equal(t, []any{"California", "Florida", "Georgia", "New Jersey", "New York", "Pennsylvania", "Texas"},
		column(states, "region_name"))

	items, err := views.Lookup(ctx, d, "cpi-categories")
	require.NoError(t, err)
	assert.Equal(t, []any{"SA0", "SAF1"}, column(items, "item_code"))

	_, err = views.Lookup(ctx, d, "nope")
	assert.ErrorIs(t, err, views.ErrUnknownView)
}

func TestViewsOnEmptyDatabase(t *testing.T) {
	d := testutil.SQLiteDB(t)
	require.NoError(t, schema.Create(context.Background(), d))

	f := views.Filter{Region: "Texas", Region2: "Ohio", Item: "SA0", Year: 2023, Month: 1}
	for _, v := range views.All() {
		tbl, err := v.Execute(context.Background(), d, f)
		require.NoError(t, err, v.Name)
		assert.NotNil(t, tbl.Rows, v.Name)
	}
}

func mustView(t *testing.T, name string) *views.View {
	t.Helper()
	v, err := views.Get(name)
	require.NoError(t, err)
	return v
}
