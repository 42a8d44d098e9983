package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/pgEdge/pgedge-econ/internal/logging"
)

// SQLiteDB is the embedded SQLite implementation of DB.
type SQLiteDB struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) a SQLite database file. The special
// path ":memory:" opens a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteDB, error) {
	dsn := sqliteDSN(path)

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	// One connection keeps ":memory:" databases alive and serializes writers.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logging.Info().
		Str("path", path).
		Msg("Opened SQLite database")

	return &SQLiteDB{db: sqlDB}, nil
}

func sqliteDSN(path string) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "busy_timeout(5000)")
	if path == ":memory:" {
		return ":memory:?" + q.Encode()
	}
	return "file:" + path + "?" + q.Encode()
}

// Dialect returns SQLite.
func (d *SQLiteDB) Dialect() Dialect {
	return SQLite
}

// Ping verifies the database is usable.
func (d *SQLiteDB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Close closes the database.
func (d *SQLiteDB) Close() {
	_ = d.db.Close() // safe to ignore
}

// Exec runs a statement and returns the number of affected rows.
func (d *SQLiteDB) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	return sqlExec(ctx, d.db, query, args)
}

// Query runs a query returning rows.
func (d *SQLiteDB) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	return sqlQuery(ctx, d.db, query, args)
}

// QueryRow runs a query expected to return at most one row.
func (d *SQLiteDB) QueryRow(ctx context.Context, query string, args ...any) Row {
	q, a := rebind(query, normalizeArgs(args))
	return sqlRow{d.db.QueryRowContext(ctx, q, a...)}
}

// Begin starts a transaction.
func (d *SQLiteDB) Begin(ctx context.Context) (Tx, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return sqlTx{tx}, nil
}

// execer is the subset of *sql.DB and *sql.Tx used here.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func sqlExec(ctx context.Context, e execer, query string, args []any) (int64, error) {
	q, a := rebind(query, normalizeArgs(args))
	res, err := e.ExecContext(ctx, q, a...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

func sqlQuery(ctx context.Context, e execer, query string, args []any) (Rows, error) {
	q, a := rebind(query, normalizeArgs(args))
	rows, err := e.QueryContext(ctx, q, a...)
	if err != nil {
		return nil, err
	}
	return &sqlRows{rows: rows}, nil
}

type sqlTx struct {
	tx *sql.Tx
}

func (t sqlTx) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	return sqlExec(ctx, t.tx, query, args)
}

func (t sqlTx) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	return sqlQuery(ctx, t.tx, query, args)
}

func (t sqlTx) QueryRow(ctx context.Context, query string, args ...any) Row {
	q, a := rebind(query, normalizeArgs(args))
	return sqlRow{t.tx.QueryRowContext(ctx, q, a...)}
}

func (t sqlTx) Commit(context.Context) error {
	return t.tx.Commit()
}

func (t sqlTx) Rollback(context.Context) error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

type sqlRow struct {
	row *sql.Row
}

func (r sqlRow) Scan(dest ...any) error {
	err := r.row.Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNoRows
	}
	return err
}

type sqlRows struct {
	rows *sql.Rows
	cols []string
}

func (r *sqlRows) Next() bool {
	return r.rows.Next()
}

func (r *sqlRows) Scan(dest ...any) error {
	return r.rows.Scan(dest...)
}

func (r *sqlRows) Columns() []string {
	if r.cols == nil {
		cols, err := r.rows.Columns()
		if err != nil {
			return nil
		}
		r.cols = cols
	}
	return r.cols
}

func (r *sqlRows) Values() ([]any, error) {
	n := len(r.Columns())
	values := make([]any, n)
	ptrs := make([]any, n)
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := r.rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	for i, v := range values {
		values[i] = normalizeValue(v)
	}
	return values, nil
}

func (r *sqlRows) Err() error {
	return r.rows.Err()
}

func (r *sqlRows) Close() {
	_ = r.rows.Close() // safe to ignore
}

// rebind rewrites $N placeholders into positional ? markers, repeating
// and reordering args to match. Quoted literals and identifiers are left
// untouched.
func rebind(query string, args []any) (string, []any) {
	if !strings.Contains(query, "$") {
		return query, args
	}

	var b strings.Builder
	b.Grow(len(query))
	out := make([]any, 0, len(args))

	var quote byte
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
			b.WriteByte(c)
		case c == '\'' || c == '"':
			quote = c
			b.WriteByte(c)
		case c == '$':
			j := i + 1
			for j < len(query) && query[j] >= '0' && query[j] <= '9' {
				j++
			}
			if j == i+1 {
				b.WriteByte(c)
				continue
			}
			n, _ := strconv.Atoi(query[i+1 : j])
			if n >= 1 && n <= len(args) {
				out = append(out, args[n-1])
			} else {
				out = append(out, nil)
			}
			b.WriteByte('?')
			i = j - 1
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), out
}
