package views

import (
	"context"
	"fmt"
	"sort"

	"github.com/pgEdge/pgedge-econ/internal/db"
)

var lookups = map[string]string{
	"states": `
        SELECT region_name FROM regions
        WHERE region_type = 'state'
        ORDER BY region_name`,
	"regions": `
        SELECT region_name, region_type FROM regions
        ORDER BY region_type, region_name`,
	"food-items": `
        SELECT item_code, item_name FROM food_categories
        ORDER BY item_name`,
	"cpi-categories": `
        SELECT item_code, item_name FROM cpi_categories
        ORDER BY item_name`,
	"years": `
        SELECT DISTINCT year FROM time_periods
        ORDER BY year`,
}

// Lookups returns the names of the available lookup lists.
func Lookups() []string {
	names := make([]string, 0, len(lookups))
	for name := range lookups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns a dimension list used to populate filter controls.
func Lookup(ctx context.Context, q db.Querier, name string) (*Table, error) {
	sql, ok := lookups[name]
	if !ok {
		return nil, fmt.Errorf("%w: lookup %s", ErrUnknownView, name)
	}
	return Query(ctx, q, sql)
}
