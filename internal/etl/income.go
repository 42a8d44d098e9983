//-------------------------------------------------------------------------
//
// pgEdge Economic Indicators
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package etl

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/pgEdge/pgedge-econ/internal/db"
	"github.com/pgEdge/pgedge-econ/internal/schema"
)

// Regional income columns.
var regionalIncomeColumns = []string{
	"Number_thousands",
	"Median_income_Current_dollars",
	"Median_income_2023_dollars",
	"Mean_income_Current_dollars",
	"Mean_income_2023_dollars",
}

// loadRegionalIncome loads one row per (Region, Year).
func (l *Loader) loadRegionalIncome(ctx context.Context, tx db.Tx, st *FamilyStats) error {
	t, err := readCSV(l.path(l.cfg.Files.RegionalIncome))
	if err != nil {
		return err
	}
	if err := t.require(append([]string{"Region", "Year"}, regionalIncomeColumns...)...); err != nil {
		return err
	}

	for _, row := range t.rows {
		st.Rows++
		err := l.regionalIncomeRow(ctx, tx, t, row)
		if err == nil {
			st.Loaded++
		}
		if err := l.handleRow(st, t, row, err); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) regionalIncomeRow(ctx context.Context, tx db.Tx, t *csvTable, row csvRow) error {
	year, err := ParseYear(t.get(row, "Year"))
	if err != nil {
		return err
	}

	measures := make([]any, len(regionalIncomeColumns))
	for i, col := range regionalIncomeColumns {
		d, err := ParseOptionalMeasure(col, t.get(row, col))
		if err != nil {
			return err
		}
		measures[i] = d
	}

	regionID, err := l.resolver.RegionID(ctx, t.get(row, "Region"), schema.RegionRegion)
	if err != nil {
		return err
	}
	periodID, err := l.resolver.PeriodID(ctx, Yearly(year))
	if err != nil {
		return err
	}

	args := append([]any{regionID, periodID}, measures...)
	_, err = tx.Exec(ctx, `
        INSERT INTO regional_income (region_id, period_id, households_thousands,
            median_income_current, median_income_2023, mean_income_current, mean_income_2023)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (region_id, period_id) DO UPDATE SET
            households_thousands = EXCLUDED.households_thousands,
            median_income_current = EXCLUDED.median_income_current,
            median_income_2023 = EXCLUDED.median_income_2023,
            mean_income_current = EXCLUDED.mean_income_current,
            mean_income_2023 = EXCLUDED.mean_income_2023
    `, args...)
	return err
}

// Wide state income headers: "1984_Median_income" in the current dollar
// file, "1984 Median income" in the 2023 dollar file.
var (
	medianColumn = regexp.MustCompile(`(?i)^(\d{4})[_ ]median[_ ]income$`)
	errorColumn  = regexp.MustCompile(`(?i)^(\d{4})[_ ]standard[_ ]error$`)
)

// yearColumns maps year to column name for headers matching re.
func yearColumns(t *csvTable, re *regexp.Regexp) map[int]string {
	cols := make(map[int]string)
	for _, h := range t.header {
		m := re.FindStringSubmatch(h)
		if m == nil {
			continue
		}
		year, _ := strconv.Atoi(m[1])
		cols[year] = h
	}
	return cols
}

type incomeCell struct {
	median decimal.NullDecimal
	stderr decimal.NullDecimal
}

// loadStateIncome joins the current dollar and 2023 dollar wide files by
// state and writes one row per (state, year) present in both.
func (l *Loader) loadStateIncome(ctx context.Context, tx db.Tx, st *FamilyStats) error {
	current, err := readCSV(l.path(l.cfg.Files.StateIncomeCurrent))
	if err != nil {
		return err
	}
	adjusted, err := readCSV(l.path(l.cfg.Files.StateIncome2023))
	if err != nil {
		return err
	}
	if err := current.require("State"); err != nil {
		return err
	}
	if err := adjusted.require("State"); err != nil {
		return err
	}

	curMedian, curError := yearColumns(current, medianColumn), yearColumns(current, errorColumn)
	adjMedian, adjError := yearColumns(adjusted, medianColumn), yearColumns(adjusted, errorColumn)

	var years []int
	for y := range curMedian {
		if _, ok := adjMedian[y]; ok {
			years = append(years, y)
		}
	}
	sort.Ints(years)
	if len(years) == 0 {
		l.log.Warn().Msg("No common year columns between state income files")
		return nil
	}

	adjRows := make(map[string]csvRow, len(adjusted.rows))
	for _, row := range adjusted.rows {
		adjRows[strings.ToLower(CleanLabel(adjusted.get(row, "State")))] = row
	}

	for _, row := range current.rows {
		state := current.get(row, "State")
		adjRow, ok := adjRows[strings.ToLower(CleanLabel(state))]
		if !ok {
			st.Rows++
			err := &RowError{Field: "State", Value: state, Reason: "state missing from 2023 dollar file"}
			if err := l.handleRow(st, current, row, err); err != nil {
				return err
			}
			continue
		}

		for _, year := range years {
			cur, err := readIncomeCell(current, row, curMedian[year], curError[year])
			if err == nil && !cur.median.Valid {
				continue
			}
			var adj incomeCell
			if err == nil {
				adj, err = readIncomeCell(adjusted, adjRow, adjMedian[year], adjError[year])
				if err == nil && !adj.median.Valid {
					continue
				}
			}

			st.Rows++
			if err == nil {
				err = l.stateIncomeRow(ctx, tx, state, year, cur, adj)
			}
			if err == nil {
				st.Loaded++
			}
			if err := l.handleRow(st, current, row, err); err != nil {
				return err
			}
		}
	}
	return nil
}

// readIncomeCell parses a median and standard error pair. A blank median
// gives an invalid median and no error.
func readIncomeCell(t *csvTable, row csvRow, medianCol, errorCol string) (incomeCell, error) {
	var cell incomeCell
	var err error
	cell.median, err = ParseOptionalMeasure(medianCol, t.get(row, medianCol))
	if err != nil || !cell.median.Valid {
		return cell, err
	}
	if errorCol != "" {
		cell.stderr, err = ParseOptionalMeasure(errorCol, t.get(row, errorCol))
	}
	return cell, err
}

func (l *Loader) stateIncomeRow(ctx context.Context, tx db.Tx, state string, year int, cur, adj incomeCell) error {
	regionID, err := l.resolver.RegionID(ctx, state, schema.RegionState)
	if err != nil {
		return err
	}
	periodID, err := l.resolver.PeriodID(ctx, Yearly(year))
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
        INSERT INTO state_income (region_id, period_id, median_income_current,
            median_income_2023, standard_error_current, standard_error_2023)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (region_id, period_id) DO UPDATE SET
            median_income_current = EXCLUDED.median_income_current,
            median_income_2023 = EXCLUDED.median_income_2023,
            standard_error_current = EXCLUDED.standard_error_current,
            standard_error_2023 = EXCLUDED.standard_error_2023
    `, regionID, periodID, cur.median, adj.median, cur.stderr, adj.stderr)
	return err
}
