package etl

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgEdge/pgedge-econ/internal/config"
	"github.com/pgEdge/pgedge-econ/internal/db"
	"github.com/pgEdge/pgedge-econ/internal/testutil"
)

func runLoad(t *testing.T, d db.DB, cfg config.ETLConfig) *Report {
	t.Helper()
	report, err := NewLoader(d, cfg).Run(context.Background())
	require.NoError(t, err)
	return report
}

func TestLoaderFixture(t *testing.T) {
	d := newTestDB(t)
	dir := testutil.CopyFixtures(t)

	report := runLoad(t, d, testETLConfig(dir))
	require.Empty(t, report.Failed())
	require.Len(t, report.Families, len(FamilyNames()))

	assert.Equal(t, map[string]int64{
		"regions":          11,
		"time_periods":     7,
		"food_categories":  2,
		"cpi_categories":   2,
		"food_prices":      11,
		"cpi_values":       8,
		"state_food_sales": 4,
		"regional_income":  4,
		"state_income":     3,
	}, tableCounts(t, d))

	food := report.Family("food_prices")
	require.NotNil(t, food)
	assert.Equal(t, 6, food.Rows)
	assert.Equal(t, 11, food.Loaded)
	assert.Equal(t, 2, food.Skipped)

	assert.Equal(t, 1, report.Family("cpi_values").Skipped)
	assert.Equal(t, 1, report.Family("state_food_sales").Skipped)
	assert.Equal(t, 1, report.Family("regional_income").Skipped)
	assert.Equal(t, 1, report.Family("state_income").Skipped)
	assert.Equal(t, 3, report.Family("state_income").Loaded)

	rows, loaded, skipped := report.Totals()
	assert.Positive(t, rows)
	assert.Positive(t, loaded)
	assert.Equal(t, 6, skipped)
}

func TestLoaderYearlyAverageAndBase(t *testing.T) {
	ctx := context.Background()
	d := newTestDB(t)
	runLoad(t, d, testETLConfig(testutil.CopyFixtures(t)))

	var price float64
	require.NoError(t, d.QueryRow(ctx, `
        SELECT fp.price FROM food_prices fp
        JOIN regions r ON r.region_id = fp.region_id
        JOIN time_periods tp ON tp.period_id = fp.period_id
        WHERE r.region_name = 'U.S. city average' AND fp.item_code = '701111'
          AND tp.year = 2023 AND tp.month IS NULL
    `).Scan(&price))
	assert.InDelta(t, 0.51, price, 1e-9)

	var basePeriod string
	var baseValue float64
	require.NoError(t, d.QueryRow(ctx, `
        SELECT cv.base_period, cv.base_value FROM cpi_values cv
        JOIN regions r ON r.region_id = cv.region_id
        JOIN time_periods tp ON tp.period_id = cv.period_id
        WHERE r.region_name = 'U.S. city average' AND cv.item_code = 'SA0'
          AND tp.year = 2022 AND tp.month = 12
    `).Scan(&basePeriod, &baseValue))
	assert.Equal(t, "1982-84", basePeriod)
	assert.InDelta(t, 100.0, baseValue, 1e-9)

	// semiannual S01 lands in June
	assert.Equal(t, int64(1), count(t, d, `
        SELECT COUNT(*) FROM cpi_values cv
        JOIN time_periods tp ON tp.period_id = cv.period_id
        WHERE cv.item_code = 'SAF1' AND tp.year = 2023 AND tp.month = 6
    `))

	// metro areas resolve to their states
	assert.Equal(t, int64(3), count(t, d, `
        SELECT COUNT(*) FROM food_prices fp
        JOIN regions r ON r.region_id = fp.region_id
        JOIN time_periods tp ON tp.period_id = fp.period_id
        WHERE fp.item_code = '702111' AND r.region_type = 'state' AND tp.month = 1
    `))
}

func TestLoaderIdempotent(t *testing.T) {
	d := newTestDB(t)
	cfg := testETLConfig(testutil.CopyFixtures(t))

	runLoad(t, d, cfg)
	first := tableCounts(t, d)

	runLoad(t, d, cfg)
	assert.Equal(t, first, tableCounts(t, d))
}

func TestLoaderLastWriteWins(t *testing.T) {
	ctx := context.Background()
	d := newTestDB(t)
	dir := testutil.CopyFixtures(t)
	cfg := testETLConfig(dir)

	runLoad(t, d, cfg)
	before := tableCounts(t, d)

	salesOf := func(state string) float64 {
		var v float64
		require.NoError(t, d.QueryRow(ctx, `
            SELECT s.total_sales_million FROM state_food_sales s
            JOIN regions r ON r.region_id = s.region_id
            JOIN time_periods tp ON tp.period_id = s.period_id
            WHERE r.region_name = $1 AND tp.year = 2022 AND tp.month IS NULL
        `, state).Scan(&v))
		return v
	}
	// the later duplicate row in the same file won
	assert.InDelta(t, 121000.0, salesOf("California"), 1e-9)
	assert.InDelta(t, 98000.0, salesOf("Texas"), 1e-9)

	testutil.WriteFile(t, dir, cfg.Files.StateSales,
		"State,Year,Total_sales_million\nTexas,2022,\"99,999.5\"\n")
	runLoad(t, d, cfg)

	assert.InDelta(t, 99999.5, salesOf("Texas"), 1e-9)
	assert.InDelta(t, 121000.0, salesOf("California"), 1e-9)
	assert.Equal(t, before, tableCounts(t, d))
}

func TestLoaderSkipsNonNumericPrice(t *testing.T) {
	d := newTestDB(t)
	runLoad(t, d, testETLConfig(testutil.CopyFixtures(t)))

	georgia := func(month int) int64 {
		return count(t, d, `
            SELECT COUNT(*) FROM food_prices fp
            JOIN regions r ON r.region_id = fp.region_id
            JOIN time_periods tp ON tp.period_id = fp.period_id
            WHERE r.region_name = 'Georgia' AND tp.year = 2023 AND tp.month = $1
        `, month)
	}
	assert.Equal(t, int64(1), georgia(1))
	assert.Equal(t, int64(0), georgia(2))
}

func TestLoaderDuplicateCalifornia(t *testing.T) {
	d := newTestDB(t)
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "state_sales_no_taxes_tips.csv",
		"State,Year,Total_sales_million\nCalifornia,2023,100\nCalifornia,2023,100\n")

	report := runLoad(t, d, testETLConfig(dir))
	assert.Equal(t, 2, report.Family("state_food_sales").Loaded)
	assert.True(t, report.Family("food_prices").Missing)

	assert.Equal(t, int64(1), count(t, d, `SELECT COUNT(*) FROM regions WHERE region_name = 'California'`))
	assert.Equal(t, int64(1), count(t, d,
		`SELECT COUNT(*) FROM time_periods WHERE year = 2023 AND month IS NULL AND period_type = 'yearly'`))
	assert.Equal(t, int64(1), count(t, d, `SELECT COUNT(*) FROM state_food_sales`))
}

func TestLoaderSkipsOversizedValues(t *testing.T) {
	d := newTestDB(t)
	dir := t.TempDir()
	longState := strings.Repeat("x", 101)
	testutil.WriteFile(t, dir, "state_sales_no_taxes_tips.csv",
		"State,Year,Total_sales_million\n"+
			"Texas,2023,1e400\n"+
			"Ohio,2023,5\n"+
			longState+",2023,7\n")
	testutil.WriteFile(t, dir, "food_prices_items.csv",
		"item_code,item_name\n"+
			"701111,Flour\n"+
			strings.Repeat("9", 21)+",Too long\n"+
			"702111,"+strings.Repeat("b", 201)+"\n")

	report := runLoad(t, d, testETLConfig(dir))
	require.Empty(t, report.Failed())

	sales := report.Family("state_food_sales")
	assert.Equal(t, 3, sales.Rows)
	assert.Equal(t, 1, sales.Loaded)
	assert.Equal(t, 2, sales.Skipped)
	assert.Equal(t, int64(1), count(t, d, `SELECT COUNT(*) FROM state_food_sales`))
	assert.Equal(t, int64(0), count(t, d, `SELECT COUNT(*) FROM regions WHERE region_name = 'Texas'`))

	items := report.Family("food_categories")
	assert.Equal(t, 1, items.Loaded)
	assert.Equal(t, 2, items.Skipped)
	assert.Equal(t, int64(1), count(t, d, `SELECT COUNT(*) FROM food_categories`))
}

func TestLoaderMissingFamily(t *testing.T) {
	d := newTestDB(t)
	dir := testutil.CopyFixtures(t)
	cfg := testETLConfig(dir)
	require.NoError(t, os.Remove(filepath.Join(dir, cfg.Files.CPIMetadata)))

	report := runLoad(t, d, cfg)
	cpi := report.Family("cpi_values")
	assert.True(t, cpi.Missing)
	assert.Equal(t, "missing", cpi.Status())
	assert.Empty(t, report.Failed())

	counts := tableCounts(t, d)
	assert.Zero(t, counts["cpi_values"])
	assert.Equal(t, int64(11), counts["food_prices"])
	assert.Equal(t, int64(3), counts["state_income"])
}

func TestLoaderFailedFamilyRollsBack(t *testing.T) {
	d := newTestDB(t)
	dir := testutil.CopyFixtures(t)
	cfg := testETLConfig(dir)
	testutil.WriteFile(t, dir, cfg.Files.StateSales, "State,Year,Sales\nCalifornia,2022,1\n")

	report := runLoad(t, d, cfg)
	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "state_food_sales", failed[0].Name)
	assert.Contains(t, failed[0].Err.Error(), "Total_sales_million")
	assert.Equal(t, "failed", failed[0].Status())

	counts := tableCounts(t, d)
	assert.Zero(t, counts["state_food_sales"])
	assert.Equal(t, int64(4), counts["regional_income"])
	assert.Equal(t, int64(3), counts["state_income"])
}

func TestLoaderReplaceMode(t *testing.T) {
	d := newTestDB(t)
	dir := testutil.CopyFixtures(t)
	cfg := testETLConfig(dir)
	runLoad(t, d, cfg)

	testutil.WriteFile(t, dir, cfg.Files.StateSales,
		"State,Year,Total_sales_million\nFlorida,2023,\"75,000\"\n")

	runLoad(t, d, cfg)
	assert.Equal(t, int64(4), count(t, d, `SELECT COUNT(*) FROM state_food_sales`))

	cfg.ReloadMode = config.ReloadReplace
	report := runLoad(t, d, cfg)
	assert.Equal(t, config.ReloadReplace, report.ReloadMode)
	assert.Equal(t, int64(1), count(t, d, `SELECT COUNT(*) FROM state_food_sales`))

	// dimensions are never deleted
	assert.Equal(t, int64(11), count(t, d, `SELECT COUNT(*) FROM regions`))
}

func TestLoaderCategoryPolicy(t *testing.T) {
	d := newTestDB(t)
	dir := testutil.CopyFixtures(t)
	cfg := testETLConfig(dir)
	runLoad(t, d, cfg)

	testutil.WriteFile(t, dir, cfg.Files.CPIBasket, "item_code,item_name\nSA0,All items (renamed)\n")

	name := func() string {
		var n string
		require.NoError(t, d.QueryRow(context.Background(),
			`SELECT item_name FROM cpi_categories WHERE item_code = 'SA0'`).Scan(&n))
		return n
	}

	cfg.CategoryPolicy = config.CategoryFirstSeen
	runLoad(t, d, cfg)
	assert.Equal(t, "All items", name())

	cfg.CategoryPolicy = config.CategoryResync
	runLoad(t, d, cfg)
	assert.Equal(t, "All items (renamed)", name())
}

func TestLoaderRecordsMetadata(t *testing.T) {
	ctx := context.Background()
	d := newTestDB(t)
	runLoad(t, d, testETLConfig(testutil.CopyFixtures(t)))

	meta, err := db.GetAllMetadata(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, "ok", meta["load.food_prices.status"])
	assert.Equal(t, "11", meta["load.food_prices.loaded"])
	assert.Equal(t, config.ReloadUpsert, meta["reload_mode"])
	assert.NotEmpty(t, meta[db.MetaLoadedAt])
}

func TestLoaderCancelled(t *testing.T) {
	d := newTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := NewLoader(d, testETLConfig(testutil.CopyFixtures(t))).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, report.Families)
}
