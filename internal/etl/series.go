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
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/pgEdge/pgedge-econ/internal/config"
	"github.com/pgEdge/pgedge-econ/internal/db"
	"github.com/pgEdge/pgedge-econ/internal/schema"
)

// seriesSource describes a BLS style data set: observations keyed by
// series id, a metadata file mapping series to area and item, and an
// area file naming the areas.
type seriesSource struct {
	kind     Kind
	series   string
	metadata string
	areas    string

	// withBase reads base_period ("1982-84=100") from the metadata.
	withBase bool
}

func foodSeries(f config.FilesConfig) seriesSource {
	return seriesSource{
		kind:     FoodCategory,
		series:   f.FoodSeries,
		metadata: f.FoodMetadata,
		areas:    f.FoodAreas,
	}
}

func cpiSeries(f config.FilesConfig) seriesSource {
	return seriesSource{
		kind:     CPICategory,
		series:   f.CPISeries,
		metadata: f.CPIMetadata,
		areas:    f.CPIAreas,
		withBase: true,
	}
}

type seriesMeta struct {
	area string
	item string
	base basePair
}

// basePair is a CPI index base such as ("1982-84", 100).
type basePair struct {
	period string
	value  string
}

// parseBase splits "1982-84=100". Values without "=" keep the whole
// string as the period and no value.
func parseBase(raw string) basePair {
	raw = strings.TrimSpace(raw)
	period, value, ok := strings.Cut(raw, "=")
	if !ok {
		return basePair{period: raw}
	}
	bp := basePair{period: strings.TrimSpace(period)}
	if d, err := decimal.NewFromString(strings.TrimSpace(value)); err == nil {
		bp.value = d.String()
	}
	return bp
}

// validate rejects a base that does not fit cpi_values.
func (b basePair) validate() error {
	if err := checkLength("base_period", b.period, maxBasePeriod); err != nil {
		return err
	}
	if b.value == "" {
		return nil
	}
	_, err := ParseMeasure("base_value", b.value)
	return err
}

type seriesKey struct {
	region int64
	item   string
	period int64
}

// seriesAgg averages every observation falling on one key and counts
// base pairs so that the most frequent one can be kept.
type seriesAgg struct {
	avg   average
	bases map[basePair]int
	order []basePair
}

func (a *seriesAgg) add(v decimal.Decimal, base basePair) {
	a.avg.add(v)
	if a.bases == nil {
		a.bases = make(map[basePair]int)
	}
	if _, seen := a.bases[base]; !seen {
		a.order = append(a.order, base)
	}
	a.bases[base]++
}

// base returns the most frequent base pair, earliest seen on ties.
func (a *seriesAgg) base() basePair {
	var best basePair
	n := 0
	for _, b := range a.order {
		if a.bases[b] > n {
			best, n = b, a.bases[b]
		}
	}
	return best
}

func (l *Loader) loadSeries(ctx context.Context, tx db.Tx, src seriesSource, st *FamilyStats) error {
	areas, err := l.readAreas(src.areas)
	if err != nil {
		return err
	}
	meta, err := l.readSeriesMeta(src)
	if err != nil {
		return err
	}

	t, err := readCSV(l.path(src.series))
	if err != nil {
		return err
	}
	if err := t.require("series_id", "year", "period", "value"); err != nil {
		return err
	}

	aggs := make(map[seriesKey]*seriesAgg)
	for _, row := range t.rows {
		st.Rows++
		err := l.seriesRow(ctx, t, row, src, areas, meta, aggs)
		if err := l.handleRow(st, t, row, err); err != nil {
			return err
		}
	}

	keys := make([]seriesKey, 0, len(aggs))
	for k := range aggs {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b seriesKey) int {
		return cmp.Or(
			cmp.Compare(a.region, b.region),
			cmp.Compare(a.item, b.item),
			cmp.Compare(a.period, b.period),
		)
	})

	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		agg := aggs[k]
		if src.kind == FoodCategory {
			_, err = tx.Exec(ctx, `
                INSERT INTO food_prices (region_id, item_code, period_id, price)
                VALUES ($1, $2, $3, $4)
                ON CONFLICT (region_id, item_code, period_id)
                DO UPDATE SET price = EXCLUDED.price
            `, k.region, k.item, k.period, agg.avg.value())
		} else {
			base := agg.base()
			_, err = tx.Exec(ctx, `
                INSERT INTO cpi_values (region_id, item_code, period_id, value, base_period, base_value)
                VALUES ($1, $2, $3, $4, $5, $6)
                ON CONFLICT (region_id, item_code, period_id)
                DO UPDATE SET value = EXCLUDED.value,
                              base_period = EXCLUDED.base_period,
                              base_value = EXCLUDED.base_value
            `, k.region, k.item, k.period, agg.avg.value(), nullString(base.period), nullString(base.value))
		}
		if err != nil {
			return err
		}
		st.Loaded++
	}
	return nil
}

func (l *Loader) seriesRow(ctx context.Context, t *csvTable, row csvRow, src seriesSource,
	areas map[string]string, meta map[string]seriesMeta, aggs map[seriesKey]*seriesAgg) error {
	seriesID := t.get(row, "series_id")
	m, ok := meta[seriesID]
	if !ok {
		return &RowError{Field: "series_id", Value: seriesID, Reason: "series not in metadata"}
	}
	areaName, ok := areas[m.area]
	if !ok {
		return &RowError{Field: "area_code", Value: m.area, Reason: "area not in area list"}
	}
	if err := m.base.validate(); err != nil {
		return err
	}

	value, err := ParseMeasure("value", t.get(row, "value"))
	if err != nil {
		return err
	}
	period, err := ParsePeriod(t.get(row, "year"), t.get(row, "period"))
	if err != nil {
		return err
	}

	regionIDs, err := l.resolver.RegionIDs(ctx, areaName, schema.RegionRegion)
	if err != nil {
		return err
	}
	if err := l.categories.Ensure(ctx, src.kind, m.item); err != nil {
		return err
	}

	periodIDs := make([]int64, 0, 2)
	id, err := l.resolver.PeriodID(ctx, period)
	if err != nil {
		return err
	}
	periodIDs = append(periodIDs, id)
	if !period.IsYearly() {
		// monthly observations also feed the yearly average
		id, err := l.resolver.PeriodID(ctx, period.YearPeriod())
		if err != nil {
			return err
		}
		periodIDs = append(periodIDs, id)
	}

	for _, region := range regionIDs {
		for _, pid := range periodIDs {
			k := seriesKey{region: region, item: m.item, period: pid}
			agg, ok := aggs[k]
			if !ok {
				agg = &seriesAgg{}
				aggs[k] = agg
			}
			agg.add(value, m.base)
		}
	}
	return nil
}

func (l *Loader) readAreas(file string) (map[string]string, error) {
	t, err := readCSV(l.path(file))
	if err != nil {
		return nil, err
	}
	if err := t.require("area_code", "area_name"); err != nil {
		return nil, err
	}
	areas := make(map[string]string, len(t.rows))
	for _, row := range t.rows {
		areas[t.get(row, "area_code")] = t.get(row, "area_name")
	}
	return areas, nil
}

func (l *Loader) readSeriesMeta(src seriesSource) (map[string]seriesMeta, error) {
	t, err := readCSV(l.path(src.metadata))
	if err != nil {
		return nil, err
	}
	cols := []string{"series_id", "area_code", "item_code"}
	if src.withBase {
		cols = append(cols, "base_period")
	}
	if err := t.require(cols...); err != nil {
		return nil, err
	}

	meta := make(map[string]seriesMeta, len(t.rows))
	for _, row := range t.rows {
		m := seriesMeta{
			area: t.get(row, "area_code"),
			item: t.get(row, "item_code"),
		}
		if src.withBase {
			m.base = parseBase(t.get(row, "base_period"))
		}
		meta[t.get(row, "series_id")] = m
	}
	return meta, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
