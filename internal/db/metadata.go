//-------------------------------------------------------------------------
//
// pgEdge Economic Indicators
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package db

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/pgEdge/pgedge-econ/internal/logging"
	"github.com/pgEdge/pgedge-econ/pkg/version"
)

const metadataTable = "econ_metadata"

// Well known metadata keys.
const (
	MetaSchemaVersion = "schema_version"
	MetaToolVersion   = "version"
	MetaInitializedAt = "initialized_at"
	MetaLoadedAt      = "loaded_at"
)

// createMetadataTableSQL is valid in both dialects.
const createMetadataTableSQL = `
CREATE TABLE IF NOT EXISTS econ_metadata (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
)`

// EnsureMetadata creates the metadata table if it doesn't exist.
func EnsureMetadata(ctx context.Context, q Querier) error {
	if _, err := q.Exec(ctx, createMetadataTableSQL); err != nil {
		return fmt.Errorf("failed to create metadata table: %w", err)
	}
	return nil
}

// SaveMetadata upserts the given entries.
func SaveMetadata(ctx context.Context, q Querier, entries map[string]string) error {
	if err := EnsureMetadata(ctx, q); err != nil {
		return err
	}

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		_, err := q.Exec(ctx, `
            INSERT INTO econ_metadata (key, value) VALUES ($1, $2)
            ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
        `, key, entries[key])
		if err != nil {
			return fmt.Errorf("failed to save metadata %s: %w", key, err)
		}
	}

	logging.Debug().
		Int("entries", len(entries)).
		Msg("Saved metadata")

	return nil
}

// SaveInitMetadata records that the schema was created.
func SaveInitMetadata(ctx context.Context, q Querier, schemaVersion string) error {
	return SaveMetadata(ctx, q, map[string]string{
		MetaSchemaVersion: schemaVersion,
		MetaToolVersion:   version.Short(),
		MetaInitializedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

// GetMetadataValue retrieves a single metadata value by key. It returns
// ErrNoRows when the key is not present.
func GetMetadataValue(ctx context.Context, q Querier, key string) (string, error) {
	var value string
	err := q.QueryRow(ctx, `
        SELECT value FROM econ_metadata WHERE key = $1
    `, key).Scan(&value)
	if err != nil {
		return "", err
	}
	return value, nil
}

// GetAllMetadata retrieves all metadata as a map.
func GetAllMetadata(ctx context.Context, q Querier) (map[string]string, error) {
	rows, err := q.Query(ctx, `SELECT key, value FROM econ_metadata`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	metadata := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		metadata[key] = value
	}

	return metadata, rows.Err()
}

// DropMetadata drops the metadata table.
func DropMetadata(ctx context.Context, q Querier) error {
	_, err := q.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", metadataTable))
	return err
}

// MetadataExists reports whether the metadata table has been created.
func MetadataExists(ctx context.Context, database DB) (bool, error) {
	var query string
	switch database.Dialect() {
	case SQLite:
		query = `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = $1`
	default:
		query = `SELECT COUNT(*) FROM information_schema.tables WHERE table_name = $1`
	}

	var n int64
	if err := database.QueryRow(ctx, query, metadataTable).Scan(&n); err != nil {
		if errors.Is(err, ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return n > 0, nil
}
