//-------------------------------------------------------------------------
//
// pgEdge Pharma Analytics
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pgEdge/pgedge-pharma/internal/analytics"
	"github.com/pgEdge/pgedge-pharma/internal/datagen"
	"github.com/pgEdge/pgedge-pharma/internal/model"
)

type fakeSource struct {
	snap  *model.Snapshot
	err   error
	loads atomic.Int64
}

func (f *fakeSource) LoadSnapshot(ctx context.Context) (*model.Snapshot, error) {
	f.loads.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.snap, nil
}

func snapshot(t *testing.T) *model.Snapshot {
	t.Helper()
	cfg := datagen.Config{
		Seed:        8,
		Reps:        4,
		Doctors:     15,
		Products:    5,
		Territories: 3,
		Sales:       200,
		Start:       time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:         time.Date(2023, time.December, 31, 0, 0, 0, 0, time.UTC),
	}
	ds, err := datagen.NewGenerator(cfg).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	return model.NewSnapshot(ds)
}

func TestNewValidation(t *testing.T) {
	src := &fakeSource{}
	tests := []struct {
		name string
		cfg  Config
	}{
		{"no source", Config{Interval: time.Minute}},
		{"zero interval", Config{Source: src}},
		{"unknown report", Config{Source: src, Interval: time.Minute, Reports: []string{"nope"}}},
	}
	for _, tt := range tests {
		if _, err := New(tt.cfg); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestRefresh(t *testing.T) {
	src := &fakeSource{snap: snapshot(t)}
	r, err := New(Config{Source: src, Interval: time.Minute})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, err := r.Latest(); !errors.Is(err, ErrNotReady) {
		t.Errorf("Latest before refresh = %v, want ErrNotReady", err)
	}

	results, err := r.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if len(results.Tables) != len(analytics.List()) {
		t.Errorf("computed %d tables, want %d", len(results.Tables), len(analytics.List()))
	}

	latest, err := r.Latest()
	if err != nil || latest != results {
		t.Errorf("Latest = %v, %v", latest, err)
	}

	st := r.Stats()
	if st.Refreshes != 1 || st.Failed != 0 || st.LastComputedAt == nil {
		t.Errorf("unexpected stats: %+v", st)
	}
	if len(st.ReportRows) != len(results.Tables) {
		t.Errorf("ReportRows has %d entries", len(st.ReportRows))
	}
}

func TestRefreshFailureKeepsPrevious(t *testing.T) {
	src := &fakeSource{snap: snapshot(t)}
	r, err := New(Config{Source: src, Interval: time.Minute, Reports: []string{"rep_performance"}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	first, err := r.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	src.err = errors.New("connection refused")
	if _, err := r.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}

	latest, err := r.Latest()
	if err != nil || latest != first {
		t.Error("failed refresh should keep the previous results")
	}
	st := r.Stats()
	if st.Failed != 1 || st.LastError == "" {
		t.Errorf("unexpected stats: %+v", st)
	}
}

func TestRunRefreshesUntilCancelled(t *testing.T) {
	src := &fakeSource{snap: snapshot(t)}
	r, err := New(Config{Source: src, Interval: time.Hour, Timeout: time.Minute})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := r.Latest(); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("first refresh did not run")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
