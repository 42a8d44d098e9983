//-------------------------------------------------------------------------
//
// pgEdge Economic Indicators
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package db provides database access for pgedge-econ.
//
// Two backends are supported behind the DB interface: PostgreSQL through a
// pgx connection pool, and an embedded SQLite file through modernc.org/sqlite.
// SQL is always written with PostgreSQL style $N placeholders; the SQLite
// backend rewrites them before execution.
package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/pgEdge/pgedge-econ/internal/config"
)

// ErrNoRows is returned by Row.Scan when the query selected nothing,
// whichever backend ran it.
var ErrNoRows = errors.New("no rows in result set")

// Dialect identifies the SQL dialect spoken by a DB.
type Dialect string

// Supported dialects.
const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// Row is the result of QueryRow.
type Row interface {
	Scan(dest ...any) error
}

// Rows is an open result set.
type Rows interface {
	Next() bool
	Scan(dest ...any) error

	// Values returns the current row with driver specific numeric types
	// already converted to int64, float64 or string.
	Values() ([]any, error)

	Columns() []string
	Err() error
	Close()
}

// Querier runs statements. Both DB and Tx satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

// Tx is an open transaction.
type Tx interface {
	Querier
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// DB is a database handle shared by the loader and the dashboard.
type DB interface {
	Querier
	Begin(ctx context.Context) (Tx, error)
	Dialect() Dialect
	Ping(ctx context.Context) error
	Close()
}

// Open connects to the database described by cfg.
func Open(ctx context.Context, cfg config.DatabaseConfig) (DB, error) {
	switch cfg.Driver {
	case config.DriverPostgres, "":
		return Connect(ctx, cfg.ConnString(), cfg.MaxConns)
	case config.DriverSQLite:
		return OpenSQLite(ctx, cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// InTx runs fn inside a transaction, committing on success and rolling
// back when fn returns an error.
func InTx(ctx context.Context, database DB, fn func(tx Tx) error) error {
	tx, err := database.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback failed: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
