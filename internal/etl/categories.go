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

	"github.com/pgEdge/pgedge-econ/internal/config"
	"github.com/pgEdge/pgedge-econ/internal/db"
	"github.com/pgEdge/pgedge-econ/internal/logging"
)

// Kind selects a category namespace.
type Kind string

// Category namespaces.
const (
	FoodCategory Kind = "food"
	CPICategory  Kind = "cpi"
)

func (k Kind) table() string {
	if k == CPICategory {
		return "cpi_categories"
	}
	return "food_categories"
}

// Categories registers food and CPI categories keyed by item code.
//
// When a code reappears with a different name the policy decides: with
// config.CategoryResync the new name replaces the stored one, with
// config.CategoryFirstSeen the stored name is kept. Either way the drift
// is logged. A provisional name (the code itself, written by Ensure) is
// always replaced.
type Categories struct {
	q      db.Querier
	policy string
	log    zerolog.Logger
	names  map[Kind]map[string]string
}

// NewCategories returns a registry using the given drift policy.
func NewCategories(q db.Querier, policy string) *Categories {
	if policy == "" {
		policy = config.CategoryResync
	}
	c := &Categories{
		q:      q,
		policy: policy,
		log:    logging.Component("categories"),
	}
	c.Reset()
	return c
}

// Bind switches the Querier, typically to a new transaction.
func (c *Categories) Bind(q db.Querier) {
	c.q = q
}

// Reset drops all cached names.
func (c *Categories) Reset() {
	c.names = map[Kind]map[string]string{
		FoodCategory: {},
		CPICategory:  {},
	}
}

// Upsert creates or updates the category (code, name).
func (c *Categories) Upsert(ctx context.Context, kind Kind, code, name string) error {
	code = strings.TrimSpace(code)
	name = collapseSpace(name)
	if code == "" {
		return &RowError{Field: "item_code", Value: code, Reason: "empty item code"}
	}
	if name == "" {
		return &RowError{Field: "item_name", Value: name, Reason: "empty item name"}
	}
	if err := checkLength("item_code", code, maxItemCode); err != nil {
		return err
	}
	if err := checkLength("item_name", name, maxItemName); err != nil {
		return err
	}

	current, found, err := c.lookup(ctx, kind, code)
	if err != nil {
		return err
	}

	switch {
	case !found:
		_, err = c.q.Exec(ctx, fmt.Sprintf(`
            INSERT INTO %s (item_code, item_name) VALUES ($1, $2)
            ON CONFLICT (item_code) DO UPDATE SET item_name = EXCLUDED.item_name
        `, kind.table()), code, name)
	case current == name:
		return nil
	case current == code:
		err = c.rename(ctx, kind, code, name)
	default:
		event := c.log.Warn().
			Str("kind", string(kind)).
			Str("item_code", code).
			Str("stored_name", current).
			Str("new_name", name).
			Str("policy", c.policy)
		if c.policy == config.CategoryFirstSeen {
			event.Msg("Category name drift; keeping stored name")
			return nil
		}
		event.Msg("Category name drift; using new name")
		err = c.rename(ctx, kind, code, name)
	}
	if err != nil {
		return fmt.Errorf("failed to upsert %s category %s: %w", kind, code, err)
	}

	c.names[kind][code] = name
	return nil
}

// Ensure makes sure code exists, creating it with the code as a
// provisional name when it does not.
func (c *Categories) Ensure(ctx context.Context, kind Kind, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return &RowError{Field: "item_code", Value: code, Reason: "empty item code"}
	}
	if err := checkLength("item_code", code, maxItemCode); err != nil {
		return err
	}

	_, found, err := c.lookup(ctx, kind, code)
	if err != nil || found {
		return err
	}

	_, err = c.q.Exec(ctx, fmt.Sprintf(`
        INSERT INTO %s (item_code, item_name) VALUES ($1, $1)
        ON CONFLICT (item_code) DO NOTHING
    `, kind.table()), code)
	if err != nil {
		return fmt.Errorf("failed to create %s category %s: %w", kind, code, err)
	}

	c.log.Warn().
		Str("kind", string(kind)).
		Str("item_code", code).
		Msg("Unknown category code; created with provisional name")

	c.names[kind][code] = code
	return nil
}

// Name returns the stored name of a category.
func (c *Categories) Name(ctx context.Context, kind Kind, code string) (string, bool, error) {
	return c.lookup(ctx, kind, strings.TrimSpace(code))
}

func (c *Categories) lookup(ctx context.Context, kind Kind, code string) (string, bool, error) {
	if name, ok := c.names[kind][code]; ok {
		return name, true, nil
	}

	var name string
	err := c.q.QueryRow(ctx, fmt.Sprintf(`
        SELECT item_name FROM %s WHERE item_code = $1
    `, kind.table()), code).Scan(&name)
	if errors.Is(err, db.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to look up %s category %s: %w", kind, code, err)
	}

	c.names[kind][code] = name
	return name, true, nil
}

func (c *Categories) rename(ctx context.Context, kind Kind, code, name string) error {
	_, err := c.q.Exec(ctx, fmt.Sprintf(`
        UPDATE %s SET item_name = $2 WHERE item_code = $1
    `, kind.table()), code, name)
	return err
}
