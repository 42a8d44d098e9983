//-------------------------------------------------------------------------
//
// pgEdge Economic Indicators
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package etl loads the economic indicator source files into the
// normalized schema.
//
// A load is one sequential pass over the source families in a fixed
// order: the two category lists first, then food prices, CPI values,
// state food sales, regional income and state income. Every family runs
// in its own transaction so that a broken file is rolled back without
// touching the others. Rows that cannot be parsed or resolved are
// skipped, logged and counted.
package etl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/pgEdge/pgedge-econ/internal/config"
	"github.com/pgEdge/pgedge-econ/internal/db"
	"github.com/pgEdge/pgedge-econ/internal/logging"
)

// maxRowWarnings caps warn level messages for skipped rows per family;
// the rest are logged at debug level.
const maxRowWarnings = 10

// Loader runs the ETL pass.
type Loader struct {
	db         db.DB
	cfg        config.ETLConfig
	resolver   *Resolver
	categories *Categories
	log        zerolog.Logger
}

// family is one unit of loading: a set of source files feeding a table.
type family struct {
	name  string
	table string
	files []string
	load  func(ctx context.Context, tx db.Tx, st *FamilyStats) error
}

// NewLoader returns a Loader writing to database.
func NewLoader(database db.DB, cfg config.ETLConfig) *Loader {
	if cfg.ReloadMode == "" {
		cfg.ReloadMode = config.ReloadUpsert
	}
	return &Loader{
		db:         database,
		cfg:        cfg,
		resolver:   NewResolver(database),
		categories: NewCategories(database, cfg.CategoryPolicy),
		log:        logging.Component("etl"),
	}
}

// Resolver returns the loader's reference resolver.
func (l *Loader) Resolver() *Resolver {
	return l.resolver
}

// Categories returns the loader's category registry.
func (l *Loader) Categories() *Categories {
	return l.categories
}

func (l *Loader) path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(l.cfg.DataDir, name)
}

func (l *Loader) families() []family {
	f := l.cfg.Files
	return []family{
		{
			name:  "food_categories",
			files: []string{f.FoodItems},
			load: func(ctx context.Context, _ db.Tx, st *FamilyStats) error {
				return l.loadCategories(ctx, FoodCategory, f.FoodItems, st)
			},
		},
		{
			name:  "cpi_categories",
			files: []string{f.CPIBasket},
			load: func(ctx context.Context, _ db.Tx, st *FamilyStats) error {
				return l.loadCategories(ctx, CPICategory, f.CPIBasket, st)
			},
		},
		{
			name:  "food_prices",
			table: "food_prices",
			files: []string{f.FoodSeries, f.FoodMetadata, f.FoodAreas},
			load: func(ctx context.Context, tx db.Tx, st *FamilyStats) error {
				return l.loadSeries(ctx, tx, foodSeries(f), st)
			},
		},
		{
			name:  "cpi_values",
			table: "cpi_values",
			files: []string{f.CPISeries, f.CPIMetadata, f.CPIAreas},
			load: func(ctx context.Context, tx db.Tx, st *FamilyStats) error {
				return l.loadSeries(ctx, tx, cpiSeries(f), st)
			},
		},
		{
			name:  "state_food_sales",
			table: "state_food_sales",
			files: []string{f.StateSales},
			load:  l.loadStateSales,
		},
		{
			name:  "regional_income",
			table: "regional_income",
			files: []string{f.RegionalIncome},
			load:  l.loadRegionalIncome,
		},
		{
			name:  "state_income",
			table: "state_income",
			files: []string{f.StateIncomeCurrent, f.StateIncome2023},
			load:  l.loadStateIncome,
		},
	}
}

// FamilyNames lists the families in load order.
func FamilyNames() []string {
	l := &Loader{}
	fams := l.families()
	names := make([]string, len(fams))
	for i, f := range fams {
		names[i] = f.name
	}
	return names
}

// Run loads every family. Failures of single families are recorded in
// the report; Run itself only fails when ctx is cancelled.
func (l *Loader) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		Started:    time.Now(),
		ReloadMode: l.cfg.ReloadMode,
	}

	l.log.Info().
		Str("data_dir", l.cfg.DataDir).
		Str("reload_mode", l.cfg.ReloadMode).
		Str("category_policy", l.categories.policy).
		Msg("Starting load")

	for _, f := range l.families() {
		if err := ctx.Err(); err != nil {
			report.Duration = time.Since(report.Started)
			return report, err
		}
		report.Families = append(report.Families, l.runFamily(ctx, f))
	}

	// Leave the loader usable for direct Resolver/Categories calls.
	l.resolver.Bind(l.db)
	l.categories.Bind(l.db)

	report.Duration = time.Since(report.Started)

	if err := db.SaveMetadata(ctx, l.db, report.Metadata()); err != nil {
		l.log.Warn().Err(err).Msg("Failed to record load metadata")
	}

	return report, nil
}

func (l *Loader) runFamily(ctx context.Context, f family) *FamilyStats {
	st := &FamilyStats{Name: f.name, Table: f.table}
	for _, name := range f.files {
		st.Files = append(st.Files, l.path(name))
	}

	for _, path := range st.Files {
		if _, err := os.Stat(path); err != nil {
			st.Missing = true
			l.log.Warn().
				Str("family", f.name).
				Str("file", path).
				Msg("Source file not found; skipping family")
			return st
		}
	}

	start := time.Now()
	err := db.InTx(ctx, l.db, func(tx db.Tx) error {
		l.resolver.Bind(tx)
		l.categories.Bind(tx)

		if f.table != "" && l.cfg.ReloadMode == config.ReloadReplace {
			n, err := tx.Exec(ctx, "DELETE FROM "+f.table)
			if err != nil {
				return fmt.Errorf("failed to clear %s: %w", f.table, err)
			}
			l.log.Debug().
				Str("table", f.table).
				Int64("rows", n).
				Msg("Cleared fact table")
		}
		return f.load(ctx, tx, st)
	})
	st.Duration = time.Since(start)

	if err != nil {
		// Keys created inside the rolled back transaction are gone.
		l.resolver.Reset()
		l.categories.Reset()
		st.Err = err
		st.Loaded = 0
		l.log.Error().
			Err(err).
			Str("family", f.name).
			Msg("Family failed; changes rolled back")
		return st
	}

	l.log.Info().
		Str("family", f.name).
		Int("rows", st.Rows).
		Int("loaded", st.Loaded).
		Int("skipped", st.Skipped).
		Dur("duration", st.Duration).
		Msg("Loaded family")
	return st
}

// skip records a rejected row.
func (l *Loader) skip(st *FamilyStats, err error) {
	st.Skipped++
	event := l.log.Debug()
	if st.Skipped <= maxRowWarnings {
		event = l.log.Warn()
	}
	event.Str("family", st.Name).Err(err).Msg("Skipping row")
	if st.Skipped == maxRowWarnings {
		l.log.Warn().Str("family", st.Name).Msg("Further skipped rows are logged at debug level")
	}
}

// handleRow classifies a row error: row errors are skipped, anything
// else aborts the family.
func (l *Loader) handleRow(st *FamilyStats, t *csvTable, row csvRow, err error) error {
	if err == nil {
		return nil
	}
	if IsRowError(err) {
		l.skip(st, withPosition(err, t.name, row.line))
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%s:%d: %w", t.name, row.line, err)
}

func (l *Loader) loadCategories(ctx context.Context, kind Kind, file string, st *FamilyStats) error {
	t, err := readCSV(l.path(file))
	if err != nil {
		return err
	}
	if err := t.require("item_code", "item_name"); err != nil {
		return err
	}

	for _, row := range t.rows {
		st.Rows++
		err := l.categories.Upsert(ctx, kind, t.get(row, "item_code"), t.get(row, "item_name"))
		if err == nil {
			st.Loaded++
		}
		if err := l.handleRow(st, t, row, err); err != nil {
			return err
		}
	}
	return nil
}
