package etl

import (
	"context"

	"github.com/pgEdge/pgedge-econ/internal/db"
	"github.com/pgEdge/pgedge-econ/internal/schema"
)

// loadStateSales loads yearly state food sales (State, Year,
// Total_sales_million).
func (l *Loader) loadStateSales(ctx context.Context, tx db.Tx, st *FamilyStats) error {
	t, err := readCSV(l.path(l.cfg.Files.StateSales))
	if err != nil {
		return err
	}
	if err := t.require("State", "Year", "Total_sales_million"); err != nil {
		return err
	}

	for _, row := range t.rows {
		st.Rows++
		err := l.stateSalesRow(ctx, tx, t, row)
		if err == nil {
			st.Loaded++
		}
		if err := l.handleRow(st, t, row, err); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) stateSalesRow(ctx context.Context, tx db.Tx, t *csvTable, row csvRow) error {
	year, err := ParseYear(t.get(row, "Year"))
	if err != nil {
		return err
	}
	sales, err := ParseOptionalMeasure("Total_sales_million", t.get(row, "Total_sales_million"))
	if err != nil {
		return err
	}
	regionID, err := l.resolver.RegionID(ctx, t.get(row, "State"), schema.RegionState)
	if err != nil {
		return err
	}
	periodID, err := l.resolver.PeriodID(ctx, Yearly(year))
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
        INSERT INTO state_food_sales (region_id, period_id, total_sales_million)
        VALUES ($1, $2, $3)
        ON CONFLICT (region_id, period_id)
        DO UPDATE SET total_sales_million = EXCLUDED.total_sales_million
    `, regionID, periodID, sales)
	return err
}
