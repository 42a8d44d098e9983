//-------------------------------------------------------------------------
//
// pgEdge Economic Indicators
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package schema holds the DDL for the economic indicators database.
//
// The schema is a small star: three dimension tables (regions,
// time_periods and the two category tables) referenced by five fact
// tables. Both dialects declare the same columns, keys and checks.
package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/pgEdge/pgedge-econ/internal/db"
	"github.com/pgEdge/pgedge-econ/internal/logging"
)

// Tables lists every table in creation order.
var Tables = []string{
	"regions",
	"time_periods",
	"food_categories",
	"cpi_categories",
	"food_prices",
	"cpi_values",
	"state_food_sales",
	"regional_income",
	"state_income",
}

// Region types accepted by the regions.region_type check.
const (
	RegionState    = "state"
	RegionDivision = "division"
	RegionRegion   = "region"
)

// Period types accepted by the time_periods.period_type check.
const (
	PeriodMonthly = "monthly"
	PeriodYearly  = "yearly"
)

// Postgres DDL.
const createPostgresSQL = `
-- Geographic dimension
CREATE TABLE IF NOT EXISTS regions (
    region_id   SERIAL PRIMARY KEY,
    region_name VARCHAR(100) NOT NULL UNIQUE,
    region_type VARCHAR(20) NOT NULL
        CHECK (region_type IN ('state', 'division', 'region'))
);

-- Time dimension; month is NULL for yearly periods
CREATE TABLE IF NOT EXISTS time_periods (
    period_id   SERIAL PRIMARY KEY,
    year        INTEGER NOT NULL CHECK (year BETWEEN 1800 AND 2200),
    month       INTEGER CHECK (month BETWEEN 1 AND 12),
    period_type VARCHAR(10) NOT NULL,
    CHECK ((month IS NULL AND period_type = 'yearly')
        OR (month IS NOT NULL AND period_type = 'monthly'))
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_time_periods_year_month
    ON time_periods (year, COALESCE(month, 0));

-- Category dimensions
CREATE TABLE IF NOT EXISTS food_categories (
    item_code VARCHAR(20) PRIMARY KEY,
    item_name VARCHAR(200) NOT NULL
);

CREATE TABLE IF NOT EXISTS cpi_categories (
    item_code VARCHAR(20) PRIMARY KEY,
    item_name VARCHAR(200) NOT NULL
);

-- Facts
CREATE TABLE IF NOT EXISTS food_prices (
    region_id INTEGER NOT NULL REFERENCES regions (region_id),
    item_code VARCHAR(20) NOT NULL REFERENCES food_categories (item_code),
    period_id INTEGER NOT NULL REFERENCES time_periods (period_id),
    price     NUMERIC(12,3) NOT NULL CHECK (price >= 0),
    PRIMARY KEY (region_id, item_code, period_id)
);

CREATE TABLE IF NOT EXISTS cpi_values (
    region_id   INTEGER NOT NULL REFERENCES regions (region_id),
    item_code   VARCHAR(20) NOT NULL REFERENCES cpi_categories (item_code),
    period_id   INTEGER NOT NULL REFERENCES time_periods (period_id),
    value       NUMERIC(12,3) NOT NULL CHECK (value >= 0),
    base_period VARCHAR(50),
    base_value  NUMERIC(12,3),
    PRIMARY KEY (region_id, item_code, period_id)
);

CREATE TABLE IF NOT EXISTS state_food_sales (
    region_id           INTEGER NOT NULL REFERENCES regions (region_id),
    period_id           INTEGER NOT NULL REFERENCES time_periods (period_id),
    total_sales_million NUMERIC(14,2) CHECK (total_sales_million >= 0),
    PRIMARY KEY (region_id, period_id)
);

CREATE TABLE IF NOT EXISTS regional_income (
    region_id             INTEGER NOT NULL REFERENCES regions (region_id),
    period_id             INTEGER NOT NULL REFERENCES time_periods (period_id),
    households_thousands  NUMERIC(12,1),
    median_income_current NUMERIC(12,2),
    median_income_2023    NUMERIC(12,2),
    mean_income_current   NUMERIC(12,2),
    mean_income_2023      NUMERIC(12,2),
    PRIMARY KEY (region_id, period_id)
);

CREATE TABLE IF NOT EXISTS state_income (
    region_id              INTEGER NOT NULL REFERENCES regions (region_id),
    period_id              INTEGER NOT NULL REFERENCES time_periods (period_id),
    median_income_current  NUMERIC(12,2),
    median_income_2023     NUMERIC(12,2),
    standard_error_current NUMERIC(12,2),
    standard_error_2023    NUMERIC(12,2),
    PRIMARY KEY (region_id, period_id)
);

CREATE INDEX IF NOT EXISTS idx_food_prices_period ON food_prices (period_id);
CREATE INDEX IF NOT EXISTS idx_cpi_values_period ON cpi_values (period_id);
CREATE INDEX IF NOT EXISTS idx_regions_lower_name ON regions (LOWER(region_name));
`

// SQLite DDL. INTEGER PRIMARY KEY columns are rowid aliases and
// auto-assign like SERIAL.
const createSQLiteSQL = `
CREATE TABLE IF NOT EXISTS regions (
    region_id   INTEGER PRIMARY KEY,
    region_name TEXT NOT NULL UNIQUE,
    region_type TEXT NOT NULL
        CHECK (region_type IN ('state', 'division', 'region'))
);

CREATE TABLE IF NOT EXISTS time_periods (
    period_id   INTEGER PRIMARY KEY,
    year        INTEGER NOT NULL CHECK (year BETWEEN 1800 AND 2200),
    month       INTEGER CHECK (month BETWEEN 1 AND 12),
    period_type TEXT NOT NULL,
    CHECK ((month IS NULL AND period_type = 'yearly')
        OR (month IS NOT NULL AND period_type = 'monthly'))
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_time_periods_year_month
    ON time_periods (year, COALESCE(month, 0));

CREATE TABLE IF NOT EXISTS food_categories (
    item_code TEXT PRIMARY KEY,
    item_name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS cpi_categories (
    item_code TEXT PRIMARY KEY,
    item_name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS food_prices (
    region_id INTEGER NOT NULL REFERENCES regions (region_id),
    item_code TEXT NOT NULL REFERENCES food_categories (item_code),
    period_id INTEGER NOT NULL REFERENCES time_periods (period_id),
    price     NUMERIC NOT NULL CHECK (price >= 0),
    PRIMARY KEY (region_id, item_code, period_id)
);

CREATE TABLE IF NOT EXISTS cpi_values (
    region_id   INTEGER NOT NULL REFERENCES regions (region_id),
    item_code   TEXT NOT NULL REFERENCES cpi_categories (item_code),
    period_id   INTEGER NOT NULL REFERENCES time_periods (period_id),
    value       NUMERIC NOT NULL CHECK (value >= 0),
    base_period TEXT,
    base_value  NUMERIC,
    PRIMARY KEY (region_id, item_code, period_id)
);

CREATE TABLE IF NOT EXISTS state_food_sales (
    region_id           INTEGER NOT NULL REFERENCES regions (region_id),
    period_id           INTEGER NOT NULL REFERENCES time_periods (period_id),
    total_sales_million NUMERIC CHECK (total_sales_million >= 0),
    PRIMARY KEY (region_id, period_id)
);

CREATE TABLE IF NOT EXISTS regional_income (
    region_id             INTEGER NOT NULL REFERENCES regions (region_id),
    period_id             INTEGER NOT NULL REFERENCES time_periods (period_id),
    households_thousands  NUMERIC,
    median_income_current NUMERIC,
    median_income_2023    NUMERIC,
    mean_income_current   NUMERIC,
    mean_income_2023      NUMERIC,
    PRIMARY KEY (region_id, period_id)
);

CREATE TABLE IF NOT EXISTS state_income (
    region_id              INTEGER NOT NULL REFERENCES regions (region_id),
    period_id              INTEGER NOT NULL REFERENCES time_periods (period_id),
    median_income_current  NUMERIC,
    median_income_2023     NUMERIC,
    standard_error_current NUMERIC,
    standard_error_2023    NUMERIC,
    PRIMARY KEY (region_id, period_id)
);

CREATE INDEX IF NOT EXISTS idx_food_prices_period ON food_prices (period_id);
CREATE INDEX IF NOT EXISTS idx_cpi_values_period ON cpi_values (period_id);
CREATE INDEX IF NOT EXISTS idx_regions_lower_name ON regions (LOWER(region_name));
`

// CreateStatements returns the DDL statements for the given dialect.
func CreateStatements(d db.Dialect) []string {
	if d == db.SQLite {
		return splitStatements(createSQLiteSQL)
	}
	return splitStatements(createPostgresSQL)
}

// DropStatements returns DROP statements in reverse dependency order.
func DropStatements(d db.Dialect) []string {
	stmts := make([]string, 0, len(Tables))
	for i := len(Tables) - 1; i >= 0; i-- {
		stmt := "DROP TABLE IF EXISTS " + Tables[i]
		if d == db.Postgres {
			stmt += " CASCADE"
		}
		stmts = append(stmts, stmt)
	}
	return stmts
}

// Create creates all tables and indexes. It is safe to run repeatedly.
func Create(ctx context.Context, database db.DB) error {
	for _, stmt := range CreateStatements(database.Dialect()) {
		if _, err := database.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute %q: %w", firstLine(stmt), err)
		}
	}
	logging.Debug().
		Str("dialect", string(database.Dialect())).
		Int("tables", len(Tables)).
		Msg("Schema created")
	return nil
}

// Drop removes all tables, data included.
func Drop(ctx context.Context, database db.DB) error {
	for _, stmt := range DropStatements(database.Dialect()) {
		if _, err := database.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute %q: %w", stmt, err)
		}
	}
	return nil
}

// Counts returns the row count of every table.
func Counts(ctx context.Context, q db.Querier) (map[string]int64, error) {
	counts := make(map[string]int64, len(Tables))
	for _, table := range Tables {
		var n int64
		if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}

// splitStatements splits a script on semicolons and drops comment-only
// fragments. The DDL above has no semicolons inside literals.
func splitStatements(script string) []string {
	var stmts []string
	for _, part := range strings.Split(script, ";") {
		var lines []string
		for _, line := range strings.Split(part, "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || strings.HasPrefix(trimmed, "--") {
				continue
			}
			lines = append(lines, line)
		}
		if len(lines) > 0 {
			stmts = append(stmts, strings.Join(lines, "\n"))
		}
	}
	return stmts
}

func firstLine(stmt string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(stmt), "\n")
	return line
}
