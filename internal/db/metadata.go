//-------------------------------------------------------------------------
//
// pgEdge Pharma Analytics
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package db

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pgEdge/pgedge-pharma/internal/logging"
	"github.com/pgEdge/pgedge-pharma/pkg/version"
)

const metadataTable = "pharma_metadata"

// Metadata keys written by the init and load commands.
const (
	MetaVersion       = "version"
	MetaInitializedAt = "initialized_at"
	MetaLastLoadAt    = "last_load_at"
	MetaSource        = "source"
	MetaSeed          = "seed"
)

// createMetadataTableSQL creates the metadata table if it doesn't exist.
// The table lands in the first schema of the search path.
const createMetadataTableSQL = `
CREATE TABLE IF NOT EXISTS pharma_metadata (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
)`

const upsertMetadataSQL = `
INSERT INTO pharma_metadata (key, value) VALUES ($1, $2)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`

// SaveMetadata stores the given values plus the current version in one
// round trip.
func SaveMetadata(ctx context.Context, pool *pgxpool.Pool, values map[string]string) error {
	if _, err := pool.Exec(ctx, createMetadataTableSQL); err != nil {
		return fmt.Errorf("failed to create metadata table: %w", err)
	}

	metadata := map[string]string{MetaVersion: version.Short()}
	maps.Copy(metadata, values)

	batch := &pgx.Batch{}
	keys := slices.Sorted(maps.Keys(metadata))
	for _, key := range keys {
		batch.Queue(upsertMetadataSQL, key, metadata[key])
	}

	results := pool.SendBatch(ctx, batch)
	for _, key := range keys {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("failed to save metadata %s: %w", key, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to save metadata: %w", err)
	}

	logging.Debug().
		Strs("keys", keys).
		Msg("Saved metadata")

	return nil
}

// Timestamp formats t for a metadata value.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// GetMetadataValue retrieves a single metadata value by key.
func GetMetadataValue(ctx context.Context, pool *pgxpool.Pool, key string) (string, error) {
	var value string
	err := pool.QueryRow(ctx, `
        SELECT value FROM pharma_metadata WHERE key = $1
    `, key).Scan(&value)
	if err != nil {
		return "", err
	}
	return value, nil
}

// GetAllMetadata retrieves all metadata as a map.
func GetAllMetadata(ctx context.Context, pool *pgxpool.Pool) (map[string]string, error) {
	rows, err := pool.Query(ctx, `SELECT key, value FROM pharma_metadata`)
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

// MetadataExists checks if the metadata table exists in the current schema.
func MetadataExists(ctx context.Context, pool *pgxpool.Pool) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT FROM information_schema.tables
            WHERE table_schema = current_schema() AND table_name = $1
        )
    `, metadataTable).Scan(&exists)
	return exists, err
}
