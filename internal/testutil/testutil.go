//-------------------------------------------------------------------------
//
// pgEdge Economic Indicators
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package testutil provides utilities for unit and integration testing.
package testutil

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pgEdge/pgedge-econ/internal/db"
)

const (
	// DefaultTestConnString is the default connection string for tests.
	// Override with ECON_TEST_CONN environment variable.
	DefaultTestConnString = "postgres://postgres@localhost:5432/postgres"

	// TestDBPrefix is the prefix for test databases.
	TestDBPrefix = "econ_test_"
)

// PostgresAvailable checks if PostgreSQL is available for testing.
// Returns the connection string if available, empty string otherwise.
func PostgresAvailable() string {
	connStr := os.Getenv("ECON_TEST_CONN")
	if connStr == "" {
		connStr = DefaultTestConnString
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return ""
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return ""
	}

	return connStr
}

// SkipIfNoPostgres skips the test if PostgreSQL is not available.
func SkipIfNoPostgres(t *testing.T) string {
	connStr := PostgresAvailable()
	if connStr == "" {
		t.Skip("PostgreSQL not available, skipping integration test")
	}
	return connStr
}

// CreateTestDB creates a scratch database and returns its connection string.
func CreateTestDB(t *testing.T, baseConnStr, name string) string {
	t.Helper()

	randomBytes := make([]byte, 8)
	if _, err := rand.Read(randomBytes); err != nil {
		t.Fatalf("Failed to generate random database name: %v", err)
	}
	dbName := TestDBPrefix + name + "_" + hex.EncodeToString(randomBytes)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, baseConnStr)
	if err != nil {
		t.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, fmt.Sprintf("CREATE DATABASE %s", dbName)); err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	config, err := pgxpool.ParseConfig(baseConnStr)
	if err != nil {
		t.Fatalf("Failed to parse connection string: %v", err)
	}

	// ConnString() doesn't reflect changes made to ConnConfig.Database
	cc := config.ConnConfig
	if cc.Password != "" {
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s", cc.User, cc.Password, cc.Host, cc.Port, dbName)
	}
	return fmt.Sprintf("postgres://%s@%s:%d/%s", cc.User, cc.Host, cc.Port, dbName)
}

// DropTestDB drops the test database.
func DropTestDB(t *testing.T, baseConnStr, dbName string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, baseConnStr)
	if err != nil {
		t.Logf("Warning: Failed to connect to drop test database: %v", err)
		return
	}
	defer pool.Close()

	_, _ = pool.Exec(ctx, `
        SELECT pg_terminate_backend(pid)
        FROM pg_stat_activity
        WHERE datname = $1 AND pid <> pg_backend_pid()
    `, dbName)

	if _, err := pool.Exec(ctx, fmt.Sprintf("DROP DATABASE IF EXISTS %s", dbName)); err != nil {
		t.Logf("Warning: Failed to drop test database: %v", err)
	}
}

// GetDBNameFromConnStr extracts the database name from a connection string.
func GetDBNameFromConnStr(connStr string) string {
	config, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return ""
	}
	return config.ConnConfig.Database
}

// PostgresDB creates a throwaway Postgres database for the test and returns
// an open handle. The database is dropped when the test passes and kept for
// diagnostics when it fails.
func PostgresDB(t *testing.T, name string) db.DB {
	t.Helper()

	base := SkipIfNoPostgres(t)
	connStr := CreateTestDB(t, base, name)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	database, err := db.Connect(ctx, connStr, 4)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	dbName := GetDBNameFromConnStr(connStr)
	t.Cleanup(func() {
		database.Close()
		if t.Failed() {
			t.Logf("Test failed - keeping database %s for diagnostics", dbName)
			return
		}
		DropTestDB(t, base, dbName)
	})
	return database
}

// SQLiteDB opens a fresh SQLite database file in a temp directory.
func SQLiteDB(t *testing.T) db.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "econ.db")
	database, err := db.OpenSQLite(context.Background(), path)
	if err != nil {
		t.Fatalf("Failed to open sqlite database: %v", err)
	}
	t.Cleanup(database.Close)
	return database
}
