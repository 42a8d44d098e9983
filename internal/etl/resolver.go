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
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pgEdge/pgedge-econ/internal/db"
	"github.com/pgEdge/pgedge-econ/internal/logging"
)

// Resolver maps raw geographic labels and periods to surrogate keys,
// creating dimension rows on first sight. Keys are cached for the
// lifetime of the Resolver; call Reset after a rollback.
type Resolver struct {
	q       db.Querier
	log     zerolog.Logger
	regions map[string]int64
	periods map[Period]int64
}

// NewResolver returns a Resolver issuing statements through q.
func NewResolver(q db.Querier) *Resolver {
	return &Resolver{
		q:       q,
		log:     logging.Component("resolver"),
		regions: make(map[string]int64),
		periods: make(map[Period]int64),
	}
}

// Bind switches the Querier, typically to a new transaction.
func (r *Resolver) Bind(q db.Querier) {
	r.q = q
}

// Reset drops all cached keys.
func (r *Resolver) Reset() {
	clear(r.regions)
	clear(r.periods)
}

// RegionIDs resolves a label to one or more regions. BLS area names
// spanning several states resolve to each of those states; any other
// label resolves to exactly one region of its classified type, falling
// back to defaultType.
func (r *Resolver) RegionIDs(ctx context.Context, label, defaultType string) ([]int64, error) {
	clean := CleanLabel(label)
	if clean == "" {
		return nil, &RowError{Field: "region", Value: label, Reason: "empty region label"}
	}

	if states := ExpandArea(clean); len(states) > 0 {
		ids := make([]int64, 0, len(states))
		for _, state := range states {
			name, typ := Classify(state, defaultType)
			id, err := r.region(ctx, name, typ)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		return ids, nil
	}

	name, typ := Classify(clean, defaultType)
	id, err := r.region(ctx, name, typ)
	if err != nil {
		return nil, err
	}
	return []int64{id}, nil
}

// RegionID resolves a label expected to name a single region.
func (r *Resolver) RegionID(ctx context.Context, label, defaultType string) (int64, error) {
	ids, err := r.RegionIDs(ctx, label, defaultType)
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

func (r *Resolver) region(ctx context.Context, name, regionType string) (int64, error) {
	key := strings.ToLower(name)
	if id, ok := r.regions[key]; ok {
		return id, nil
	}
	if err := checkLength("region", name, maxRegionName); err != nil {
		return 0, err
	}

	var id int64
	err := r.q.QueryRow(ctx, `
        SELECT region_id FROM regions WHERE LOWER(region_name) = LOWER($1)
    `, name).Scan(&id)
	switch {
	case err == nil:
	case errors.Is(err, db.ErrNoRows):
		err = r.q.QueryRow(ctx, `
            INSERT INTO regions (region_name, region_type) VALUES ($1, $2)
            ON CONFLICT (region_name) DO UPDATE SET region_name = EXCLUDED.region_name
            RETURNING region_id
        `, name, regionType).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("failed to create region %q: %w", name, err)
		}
		r.log.Debug().
			Str("region", name).
			Str("type", regionType).
			Int64("region_id", id).
			Msg("Created region")
	default:
		return 0, fmt.Errorf("failed to look up region %q: %w", name, err)
	}

	r.regions[key] = id
	return id, nil
}

// PeriodID resolves a period, creating the time_periods row if needed.
func (r *Resolver) PeriodID(ctx context.Context, p Period) (int64, error) {
	if id, ok := r.periods[p]; ok {
		return id, nil
	}
	if p.Year < MinYear || p.Year > MaxYear || p.Month < 0 || p.Month > 12 {
		return 0, &RowError{Field: "period", Value: p.String(), Reason: "period out of range"}
	}

	var id int64
	err := r.q.QueryRow(ctx, `
        SELECT period_id FROM time_periods
        WHERE year = $1 AND COALESCE(month, 0) = $2
    `, p.Year, p.Month).Scan(&id)
	switch {
	case err == nil:
	case errors.Is(err, db.ErrNoRows):
		err = r.q.QueryRow(ctx, `
            INSERT INTO time_periods (year, month, period_type) VALUES ($1, $2, $3)
            RETURNING period_id
        `, p.Year, p.monthArg(), p.Type()).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("failed to create period %s: %w", p, err)
		}
		r.log.Debug().
			Str("period", p.String()).
			Str("type", p.Type()).
			Int64("period_id", id).
			Msg("Created period")
	default:
		return 0, fmt.Errorf("failed to look up period %s: %w", p, err)
	}

	r.periods[p] = id
	return id, nil
}
