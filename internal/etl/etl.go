//-------------------------------------------------------------------------
//
// pgEdge Pharma Analytics
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package etl moves the star schema between CSV files and PostgreSQL.
package etl

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pgEdge/pgedge-pharma/internal/logging"
	"github.com/pgEdge/pgedge-pharma/internal/model"
)

// Loader is the part of the store an ETL run needs.
type Loader interface {
	StartRun(ctx context.Context, source string) (uuid.UUID, error)
	FinishRun(ctx context.Context, id uuid.UUID, rows map[string]int64, runErr error) error
	LoadIncremental(ctx context.Context, ds *model.Dataset) (map[string]int64, error)
}

// Result describes a completed ETL run.
type Result struct {
	RunID   uuid.UUID
	Rows    map[string]int64
	Elapsed time.Duration
}

// Runner loads the CSV files of one directory.
type Runner struct {
	loader  Loader
	dataDir string
}

// NewRunner creates a runner reading from dataDir.
func NewRunner(loader Loader, dataDir string) *Runner {
	return &Runner{loader: loader, dataDir: dataDir}
}

// Run extracts the CSV files, validates them and loads them incrementally.
// The outcome is recorded in the run log whether or not the load succeeds.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	id, err := r.loader.StartRun(ctx, r.dataDir)
	if err != nil {
		return nil, err
	}
	log := logging.Component("etl").With().Str("run_id", id.String()).Logger()
	log.Info().Str("source", r.dataDir).Msg("Starting ETL run")

	rows, runErr := r.load(ctx)

	// Record the outcome even if ctx was cancelled mid-load.
	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := r.loader.FinishRun(finishCtx, id, rows, runErr); err != nil {
		log.Warn().Err(err).Msg("Failed to record run outcome")
	}

	if runErr != nil {
		log.Error().Err(runErr).Msg("ETL run failed")
		return nil, fmt.Errorf("etl run %s failed: %w", id, runErr)
	}

	result := &Result{RunID: id, Rows: rows, Elapsed: time.Since(start)}
	log.Info().
		Interface("rows", rows).
		Dur("elapsed", result.Elapsed).
		Msg("ETL run completed")

	return result, nil
}

func (r *Runner) load(ctx context.Context) (map[string]int64, error) {
	ds, err := ReadDataset(r.dataDir)
	if err != nil {
		return nil, err
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return r.loader.LoadIncremental(ctx, ds)
}
