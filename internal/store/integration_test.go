//-------------------------------------------------------------------------
//
// pgEdge Pharma Analytics
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

//go:build integration
// +build integration

// Integration tests for the store.
// Run with: go test -tags=integration ./internal/store/...
// Requires PostgreSQL to be available.
// Set PGEDGE_TEST_CONN environment variable to override connection string.

package store_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/pgEdge/pgedge-pharma/internal/datagen"
	"github.com/pgEdge/pgedge-pharma/internal/model"
	"github.com/pgEdge/pgedge-pharma/internal/schema"
	"github.com/pgEdge/pgedge-pharma/internal/store"
	"github.com/pgEdge/pgedge-pharma/internal/testutil"
)

func generate(t *testing.T, sales int) *model.Dataset {
	t.Helper()
	cfg := datagen.Config{
		Seed:        11,
		Reps:        5,
		Doctors:     30,
		Products:    6,
		Territories: 4,
		Sales:       sales,
		Start:       time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:         time.Date(2023, time.June, 30, 0, 0, 0, 0, time.UTC),
	}
	ds, err := datagen.NewGenerator(cfg).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	return ds
}

func TestStoreRoundTrip(t *testing.T) {
	pool := testutil.NewTestDatabase(t, "store")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := schema.CreateSchema(ctx, pool, "pharma"); err != nil {
		t.Fatalf("CreateSchema failed: %v", err)
	}
	s := store.New(pool, "pharma", 100)

	want := generate(t, 400)
	loaded, err := s.WriteDataset(ctx, want)
	if err != nil {
		t.Fatalf("WriteDataset failed: %v", err)
	}
	if loaded[schema.TableSales] != 400 {
		t.Errorf("loaded %d sales, want 400", loaded[schema.TableSales])
	}

	got, err := s.LoadDataset(ctx)
	if err != nil {
		t.Fatalf("LoadDataset failed: %v", err)
	}
	if !reflect.DeepEqual(got.Counts(), want.Counts()) {
		t.Errorf("Counts() = %v, want %v", got.Counts(), want.Counts())
	}
	for i := range want.Sales {
		if !got.Sales[i].Revenue.Equal(want.Sales[i].Revenue) {
			t.Fatalf("sale %d revenue %s, want %s",
				want.Sales[i].ID, got.Sales[i].Revenue, want.Sales[i].Revenue)
		}
	}
	if err := got.Validate(); err != nil {
		t.Errorf("Loaded dataset is invalid: %v", err)
	}
}

func TestStoreIncremental(t *testing.T) {
	pool := testutil.NewTestDatabase(t, "incremental")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := schema.CreateSchema(ctx, pool, "pharma"); err != nil {
		t.Fatalf("CreateSchema failed: %v", err)
	}
	s := store.New(pool, "pharma", 50)

	full := generate(t, 300)
	first := *full
	first.Sales = full.Sales[:200]

	if _, err := s.LoadIncremental(ctx, &first); err != nil {
		t.Fatalf("first LoadIncremental failed: %v", err)
	}
	loaded, err := s.LoadIncremental(ctx, full)
	if err != nil {
		t.Fatalf("second LoadIncremental failed: %v", err)
	}
	if loaded[schema.TableSales] != 100 {
		t.Errorf("second load copied %d sales, want 100", loaded[schema.TableSales])
	}
	if loaded[schema.TableProduct] != 0 {
		t.Errorf("second load inserted %d products, want 0", loaded[schema.TableProduct])
	}

	maxID, err := s.MaxSaleID(ctx)
	if err != nil {
		t.Fatalf("MaxSaleID failed: %v", err)
	}
	if maxID != full.Sales[len(full.Sales)-1].ID {
		t.Errorf("MaxSaleID = %d", maxID)
	}

	counts, err := s.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts failed: %v", err)
	}
	if counts[schema.TableSales] != 300 {
		t.Errorf("fact_sales has %d rows, want 300", counts[schema.TableSales])
	}

	if err := s.Truncate(ctx); err != nil {
		t.Fatalf("Truncate failed: %v", err)
	}
	if maxID, _ = s.MaxSaleID(ctx); maxID != 0 {
		t.Errorf("MaxSaleID after truncate = %d", maxID)
	}
}

func TestRunLog(t *testing.T) {
	pool := testutil.NewTestDatabase(t, "runlog")
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := schema.CreateSchema(ctx, pool, "pharma"); err != nil {
		t.Fatalf("CreateSchema failed: %v", err)
	}
	s := store.New(pool, "pharma", 0)

	ok, err := s.StartRun(ctx, "data")
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if err := s.FinishRun(ctx, ok, map[string]int64{"fact_sales": 10}, nil); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	failed, err := s.StartRun(ctx, "data")
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if err := s.FinishRun(ctx, failed, nil, errors.New("boom")); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	runs, err := s.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	byID := map[string]store.Run{}
	for _, r := range runs {
		byID[r.ID.String()] = r
	}
	if r := byID[ok.String()]; r.Status != store.RunSucceeded || r.RowsLoaded["fact_sales"] != 10 {
		t.Errorf("unexpected successful run: %+v", r)
	}
	if r := byID[failed.String()]; r.Status != store.RunFailed || r.Error != "boom" || r.FinishedAt == nil {
		t.Errorf("unexpected failed run: %+v", r)
	}
}
