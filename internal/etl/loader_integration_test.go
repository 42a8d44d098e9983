//go:build integration

package etl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgEdge/pgedge-econ/internal/schema"
	"github.com/pgEdge/pgedge-econ/internal/testutil"
)

func TestLoaderPostgres(t *testing.T) {
	ctx := context.Background()
	d := testutil.PostgresDB(t, "etl")
	require.NoError(t, schema.Create(ctx, d))

	dir := testutil.CopyFixtures(t)
	cfg := testETLConfig(dir)

	report := runLoad(t, d, cfg)
	require.Empty(t, report.Failed())
	first := tableCounts(t, d)
	assert.Equal(t, int64(11), first["food_prices"])
	assert.Equal(t, int64(8), first["cpi_values"])
	assert.Equal(t, int64(4), first["state_food_sales"])

	// idempotent
	runLoad(t, d, cfg)
	assert.Equal(t, first, tableCounts(t, d))

	// last write wins
	testutil.WriteFile(t, dir, cfg.Files.StateSales,
		"State,Year,Total_sales_million\nTexas,2022,\"99,999.5\"\n")
	runLoad(t, d, cfg)

	var sales float64
	require.NoError(t, d.QueryRow(ctx, `
        SELECT s.total_sales_million::float8 FROM state_food_sales s
        JOIN regions r ON r.region_id = s.region_id
        WHERE r.region_name = $1
    `, "Texas").Scan(&sales))
	assert.InDelta(t, 99999.5, sales, 1e-9)
	assert.Equal(t, first, tableCounts(t, d))
}
