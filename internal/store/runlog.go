//-------------------------------------------------------------------------
//
// pgEdge Pharma Analytics
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pgEdge/pgedge-pharma/internal/schema"
)

// Run statuses recorded in the ETL run log.
const (
	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// Run is one entry of the ETL run log.
type Run struct {
	ID         uuid.UUID        `json:"run_id"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
	Status     string           `json:"status"`
	Source     string           `json:"source"`
	RowsLoaded map[string]int64 `json:"rows_loaded"`
	Error      string           `json:"error,omitempty"`
}

// StartRun records the start of a load from source and returns its id.
func (s *Store) StartRun(ctx context.Context, source string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.pool.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (run_id, started_at, status, source)
VALUES ($1, $2, $3, $4)`, s.table(schema.TableRunLog)),
		id, time.Now().UTC(), RunRunning, source)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to record run start: %w", err)
	}
	return id, nil
}

// FinishRun marks the run as succeeded, or failed when runErr is not nil.
func (s *Store) FinishRun(ctx context.Context, id uuid.UUID, rows map[string]int64, runErr error) error {
	status := RunSucceeded
	var msg pgtype.Text
	if runErr != nil {
		status = RunFailed
		msg = pgtype.Text{String: runErr.Error(), Valid: true}
	}
	if rows == nil {
		rows = map[string]int64{}
	}

	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE %s
SET finished_at = $2, status = $3, rows_loaded = $4, error_message = $5
WHERE run_id = $1`, s.table(schema.TableRunLog)),
		id, time.Now().UTC(), status, rows, msg)
	if err != nil {
		return fmt.Errorf("failed to record run finish: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("run %s not found", id)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT run_id, started_at, finished_at, status, source, rows_loaded,
       COALESCE(error_message, '')
FROM %s
ORDER BY started_at DESC
LIMIT $1`, s.table(schema.TableRunLog)),
		limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query run log: %w", err)
	}

	runs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Run, error) {
		var r Run
		err := row.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Status, &r.Source,
			&r.RowsLoaded, &r.Error)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read run log: %w", err)
	}
	return runs, nil
}
