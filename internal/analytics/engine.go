//-------------------------------------------------------------------------
//
// pgEdge Pharma Analytics
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package analytics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pgEdge/pgedge-pharma/internal/logging"
	"github.com/pgEdge/pgedge-pharma/internal/model"
)

// Results holds a set of reports computed from the same snapshot.
type Results struct {
	Tables     map[string]Table `json:"tables"`
	Insights   []Insight        `json:"insights"`
	Dropped    int              `json:"dropped_sales"`
	ComputedAt time.Time        `json:"computed_at"`
	Elapsed    time.Duration    `json:"elapsed"`
}

// Table returns the named table from the results.
func (r *Results) Table(name string) (Table, error) {
	t, ok := r.Tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownReport, name)
	}
	return t, nil
}

// Compute builds a single named report.
func Compute(snap *model.Snapshot, name string, opts Options) (Table, error) {
	r, err := Get(name)
	if err != nil {
		return nil, err
	}
	return r.Build(snap, opts), nil
}

// ComputeAll builds the named reports, or every registered report when
// names is empty, concurrently over one snapshot. The snapshot is only
// read, so reports never observe each other.
func ComputeAll(ctx context.Context, snap *model.Snapshot, names []string, opts Options) (*Results, error) {
	if len(names) == 0 {
		names = List()
	}

	reports := make([]Report, 0, len(names))
	for _, name := range names {
		r, err := Get(name)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}

	start := time.Now()
	results := &Results{
		Tables:     make(map[string]Table, len(reports)),
		Dropped:    snap.Dropped,
		ComputedAt: start.UTC(),
	}

	var resultsMu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, r := range reports {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			reportStart := time.Now()
			table := r.Build(snap, opts)

			resultsMu.Lock()
			results.Tables[r.Name()] = table
			resultsMu.Unlock()

			logging.Debug().
				Str("report", r.Name()).
				Int("rows", table.Len()).
				Dur("elapsed", time.Since(reportStart)).
				Msg("Report computed")
			return nil
		})
	}
	g.Go(func() error {
		insights := GenerateInsights(snap)
		resultsMu.Lock()
		results.Insights = insights
		resultsMu.Unlock()
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to compute reports: %w", err)
	}

	results.Elapsed = time.Since(start)
	logging.Info().
		Int("reports", len(results.Tables)).
		Int("insights", len(results.Insights)).
		Dur("elapsed", results.Elapsed).
		Msg("Reports computed")
	return results, nil
}
