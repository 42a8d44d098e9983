package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/pgEdge/pgedge-econ/internal/logging"
)

// DefaultPoolConfig returns default connection pool configuration.
// The loader is a single sequential pass and the dashboard issues one query
// per request, so the pool stays small.
func DefaultPoolConfig() *pgxpool.Config {
	config, _ := pgxpool.ParseConfig("")

	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute
	config.HealthCheckPeriod = 30 * time.Second

	return config
}

// Connect establishes a connection pool to the PostgreSQL database.
// A maxConns of zero keeps the default pool size.
func Connect(ctx context.Context, connString string, maxConns int32) (*PgDB, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	defaults := DefaultPoolConfig()
	config.MaxConns = defaults.MaxConns
	if maxConns > 0 {
		config.MaxConns = maxConns
	}
	config.MinConns = min(defaults.MinConns, config.MaxConns)
	config.MaxConnLifetime = defaults.MaxConnLifetime
	config.MaxConnIdleTime = defaults.MaxConnIdleTime
	config.HealthCheckPeriod = defaults.HealthCheckPeriod

	logging.Debug().
		Str("host", config.ConnConfig.Host).
		Uint16("port", config.ConnConfig.Port).
		Str("database", config.ConnConfig.Database).
		Int32("max_conns", config.MaxConns).
		Msg("Connecting to database")

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logging.Info().
		Str("host", config.ConnConfig.Host).
		Str("database", config.ConnConfig.Database).
		Msg("Connected to database")

	return &PgDB{pool: pool}, nil
}

// PgDB is the PostgreSQL implementation of DB.
type PgDB struct {
	pool *pgxpool.Pool
}

// NewPgDB wraps an existing pool.
func NewPgDB(pool *pgxpool.Pool) *PgDB {
	return &PgDB{pool: pool}
}

// Pool exposes the underlying pool.
func (d *PgDB) Pool() *pgxpool.Pool {
	return d.pool
}

// Dialect returns Postgres.
func (d *PgDB) Dialect() Dialect {
	return Postgres
}

// Ping verifies the connection.
func (d *PgDB) Ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

// Close closes the pool.
func (d *PgDB) Close() {
	d.pool.Close()
}

// Exec runs a statement and returns the number of affected rows.
func (d *PgDB) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := d.pool.Exec(ctx, sql, normalizeArgs(args)...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Query runs a query returning rows.
func (d *PgDB) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	rows, err := d.pool.Query(ctx, sql, normalizeArgs(args)...)
	if err != nil {
		return nil, err
	}
	return pgRows{rows}, nil
}

// QueryRow runs a query expected to return at most one row.
func (d *PgDB) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return pgRow{d.pool.QueryRow(ctx, sql, normalizeArgs(args)...)}
}

// Begin starts a transaction.
func (d *PgDB) Begin(ctx context.Context) (Tx, error) {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return pgTx{tx}, nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t pgTx) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := t.tx.Exec(ctx, sql, normalizeArgs(args)...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (t pgTx) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	rows, err := t.tx.Query(ctx, sql, normalizeArgs(args)...)
	if err != nil {
		return nil, err
	}
	return pgRows{rows}, nil
}

func (t pgTx) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return pgRow{t.tx.QueryRow(ctx, sql, normalizeArgs(args)...)}
}

func (t pgTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t pgTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

type pgRow struct {
	row pgx.Row
}

func (r pgRow) Scan(dest ...any) error {
	err := r.row.Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNoRows
	}
	return err
}

type pgRows struct {
	pgx.Rows
}

func (r pgRows) Columns() []string {
	fields := r.FieldDescriptions()
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.Name
	}
	return cols
}

func (r pgRows) Values() ([]any, error) {
	values, err := r.Rows.Values()
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		values[i] = normalizeValue(v)
	}
	return values, nil
}

// normalizeValue maps pgx result types onto plain Go values.
func normalizeValue(v any) any {
	switch x := v.(type) {
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case float32:
		return float64(x)
	case pgtype.Numeric:
		if !x.Valid {
			return nil
		}
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case []byte:
		return string(x)
	default:
		return v
	}
}

// normalizeArgs passes decimals as strings; both backends parse them into
// NUMERIC columns without going through float64.
func normalizeArgs(args []any) []any {
	for i, a := range args {
		switch x := a.(type) {
		case decimal.Decimal:
			args[i] = x.String()
		case decimal.NullDecimal:
			if x.Valid {
				args[i] = x.Decimal.String()
			} else {
				args[i] = nil
			}
		}
	}
	return args
}
