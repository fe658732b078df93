//-------------------------------------------------------------------------
//
// pgEdge Pharma Analytics
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package scheduler recomputes the reports on a fixed interval.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/pgEdge/pgedge-pharma/internal/analytics"
	"github.com/pgEdge/pgedge-pharma/internal/logging"
	"github.com/pgEdge/pgedge-pharma/internal/model"
)

// ErrNotReady is returned by Latest before the first refresh succeeds.
var ErrNotReady = errors.New("reports not computed yet")

// Source supplies the snapshot each refresh computes from.
type Source interface {
	LoadSnapshot(ctx context.Context) (*model.Snapshot, error)
}

// Config holds configuration for the refresher.
type Config struct {
	Source   Source
	Reports  []string // empty means every registered report
	Options  analytics.Options
	Interval time.Duration
	Timeout  time.Duration // per refresh, 0 for none
}

// Refresher keeps the most recent report results and recomputes them on
// a schedule.
type Refresher struct {
	source   Source
	reports  []string
	opts     analytics.Options
	interval time.Duration
	timeout  time.Duration

	mu     sync.RWMutex
	latest *analytics.Results

	// Metrics
	totalRefreshes  atomic.Int64
	failedRefreshes atomic.Int64
	totalDurationNs atomic.Int64
	lastError       atomic.Value // string
	startTime       time.Time

	// Per-report row counts from the latest refresh
	reportRows sync.Map // map[string]int
}

// New creates a refresher.
func New(cfg Config) (*Refresher, error) {
	if cfg.Source == nil {
		return nil, errors.New("refresher needs a snapshot source")
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("refresh interval must be positive, got %s", cfg.Interval)
	}
	for _, name := range cfg.Reports {
		if _, err := analytics.Get(name); err != nil {
			return nil, err
		}
	}

	return &Refresher{
		source:    cfg.Source,
		reports:   cfg.Reports,
		opts:      cfg.Options,
		interval:  cfg.Interval,
		timeout:   cfg.Timeout,
		startTime: time.Now(),
	}, nil
}

// Latest returns the results of the most recent successful refresh.
func (r *Refresher) Latest() (*analytics.Results, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.latest == nil {
		return nil, ErrNotReady
	}
	return r.latest, nil
}

// Refresh loads a fresh snapshot and recomputes every report from it. On
// failure the previous results are kept.
func (r *Refresher) Refresh(ctx context.Context) (*analytics.Results, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	r.totalRefreshes.Add(1)

	results, err := r.compute(ctx)
	r.totalDurationNs.Add(int64(time.Since(start)))
	if err != nil {
		r.failedRefreshes.Add(1)
		r.lastError.Store(err.Error())
		return nil, err
	}

	r.mu.Lock()
	r.latest = results
	r.mu.Unlock()

	for name, table := range results.Tables {
		r.reportRows.Store(name, table.Len())
	}
	return results, nil
}

func (r *Refresher) compute(ctx context.Context) (*analytics.Results, error) {
	snap, err := r.source.LoadSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return analytics.ComputeAll(ctx, snap, r.reports, r.opts)
}

// Run refreshes immediately and then on every interval until ctx is
// cancelled. Refreshes never overlap.
func (r *Refresher) Run(ctx context.Context) error {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	logging.Info().
		Dur("interval", r.interval).
		Dur("timeout", r.timeout).
		Msg("Starting report refresh schedule")

	_, err := s.Every(r.interval).Do(func() {
		if _, err := r.Refresh(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			logging.Error().Err(err).Msg("Report refresh failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule refresh: %w", err)
	}

	s.StartAsync()
	<-ctx.Done()
	s.Stop()

	logging.Info().Msg("Report refresh schedule stopped")
	return nil
}

// Stats is a point-in-time view of the refresher metrics.
type Stats struct {
	Refreshes      int64          `json:"refreshes"`
	Failed         int64          `json:"failed"`
	AvgDurationMs  float64        `json:"avg_duration_ms"`
	LastError      string         `json:"last_error,omitempty"`
	LastComputedAt *time.Time     `json:"last_computed_at,omitempty"`
	ReportRows     map[string]int `json:"report_rows"`
	Uptime         time.Duration  `json:"uptime"`
}

// Stats returns the current refresher metrics.
func (r *Refresher) Stats() Stats {
	total := r.totalRefreshes.Load()
	st := Stats{
		Refreshes:  total,
		Failed:     r.failedRefreshes.Load(),
		ReportRows: make(map[string]int),
		Uptime:     time.Since(r.startTime),
	}
	if total > 0 {
		st.AvgDurationMs = float64(r.totalDurationNs.Load()) / float64(total) / 1e6
	}
	if msg, ok := r.lastError.Load().(string); ok {
		st.LastError = msg
	}
	if latest, err := r.Latest(); err == nil {
		at := latest.ComputedAt
		st.LastComputedAt = &at
	}
	r.reportRows.Range(func(key, value any) bool {
		st.ReportRows[key.(string)] = value.(int)
		return true
	})
	return st
}

// PrintSummary logs a final summary of the refresh activity.
func (r *Refresher) PrintSummary() {
	st := r.Stats()

	logging.Info().
		Dur("duration", st.Uptime).
		Int64("refreshes", st.Refreshes).
		Int64("failed", st.Failed).
		Float64("avg_refresh_ms", st.AvgDurationMs).
		Msg("Final summary")

	for name, rows := range st.ReportRows {
		logging.Info().
			Str("report", name).
			Int("rows", rows).
			Msg("")
	}
}
