package etl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pgEdge/pgedge-econ/internal/config"
	"github.com/pgEdge/pgedge-econ/internal/db"
	"github.com/pgEdge/pgedge-econ/internal/schema"
	"github.com/pgEdge/pgedge-econ/internal/testutil"
)

func newTestDB(t *testing.T) db.DB {
	t.Helper()
	d := testutil.SQLiteDB(t)
	require.NoError(t, schema.Create(context.Background(), d))
	return d
}

func testETLConfig(dir string) config.ETLConfig {
	return config.ETLConfig{
		DataDir:        dir,
		ReloadMode:     config.ReloadUpsert,
		CategoryPolicy: config.CategoryResync,
		Files:          config.DefaultFiles(),
	}
}

func count(t *testing.T, q db.Querier, query string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, q.QueryRow(context.Background(), query, args...).Scan(&n))
	return n
}

func tableCounts(t *testing.T, q db.Querier) map[string]int64 {
	t.Helper()
	counts, err := schema.Counts(context.Background(), q)
	require.NoError(t, err)
	return counts
}
