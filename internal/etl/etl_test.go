//-------------------------------------------------------------------------
//
// pgEdge Pharma Analytics
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package etl

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pgEdge/pgedge-pharma/internal/datagen"
	"github.com/pgEdge/pgedge-pharma/internal/model"
	"github.com/pgEdge/pgedge-pharma/internal/schema"
)

func generated(t *testing.T) *model.Dataset {
	t.Helper()
	cfg := datagen.Config{
		Seed:        3,
		Reps:        4,
		Doctors:     12,
		Products:    5,
		Territories: 3,
		Sales:       150,
		Start:       time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:         time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC),
	}
	ds, err := datagen.NewGenerator(cfg).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	return ds
}

func TestCSVRoundTrip(t *testing.T) {
	dir := t.TempDir()
	want := generated(t)

	if err := WriteDataset(dir, want); err != nil {
		t.Fatalf("WriteDataset failed: %v", err)
	}
	for _, table := range schema.Tables {
		if _, err := os.Stat(filepath.Join(dir, FileName(table))); err != nil {
			t.Errorf("missing file for %s: %v", table, err)
		}
	}

	got, err := ReadDataset(dir)
	if err != nil {
		t.Fatalf("ReadDataset failed: %v", err)
	}
	if err := got.Validate(); err != nil {
		t.Errorf("round-tripped dataset is invalid: %v", err)
	}

	if len(got.Dates) != len(want.Dates) || got.Dates[10].Key != want.Dates[10].Key ||
		!got.Dates[10].Date.Equal(want.Dates[10].Date) {
		t.Errorf("dates differ: %+v vs %+v", got.Dates[10], want.Dates[10])
	}
	gr, wr := got.Reps[0], want.Reps[0]
	if gr.Key != wr.Key || gr.Name != wr.Name || !gr.HireDate.Equal(wr.HireDate) ||
		gr.ExperienceYears != wr.ExperienceYears || gr.PerformanceTier != wr.PerformanceTier {
		t.Errorf("rep differs: %+v vs %+v", got.Reps[0], want.Reps[0])
	}
	if got.Doctors[5] != want.Doctors[5] {
		t.Errorf("doctor differs: %+v vs %+v", got.Doctors[5], want.Doctors[5])
	}
	if !got.Products[2].UnitPrice.Equal(want.Products[2].UnitPrice) ||
		!got.Products[2].LaunchDate.Equal(want.Products[2].LaunchDate) {
		t.Errorf("product differs: %+v vs %+v", got.Products[2], want.Products[2])
	}
	if got.Territories[1] != want.Territories[1] {
		t.Errorf("territory differs: %+v vs %+v", got.Territories[1], want.Territories[1])
	}
	for i := range want.Sales {
		g, w := got.Sales[i], want.Sales[i]
		if g.ID != w.ID || g.QuantitySold != w.QuantitySold || !g.Revenue.Equal(w.Revenue) ||
			!g.DiscountPercent.Equal(w.DiscountPercent) || !g.MarketingSpend.Equal(w.MarketingSpend) {
			t.Fatalf("sale %d differs: %+v vs %+v", w.ID, g, w)
		}
	}
}

func TestDecodeByHeaderName(t *testing.T) {
	// Column order of the files produced by the original generator.
	in := strings.NewReader(`sale_id,date_key,rep_key,doctor_key,product_key,territory_key,quantity_sold,discount_percent,marketing_spend,revenue
1,1,2,3,4,5,10,5.0,250.75,950.00
2,1,2,3,4,5,3,0,100,300
`)
	sales, err := decodeTable(in, saleCodec)
	if err != nil {
		t.Fatalf("decodeTable failed: %v", err)
	}
	if len(sales) != 2 {
		t.Fatalf("got %d sales, want 2", len(sales))
	}
	s := sales[0]
	if s.TerritoryKey != 5 || s.QuantitySold != 10 {
		t.Errorf("unexpected keys: %+v", s)
	}
	if s.Revenue.String() != "950" || s.MarketingSpend.String() != "250.75" || s.DiscountPercent.String() != "5" {
		t.Errorf("measures bound to the wrong columns: %+v", s)
	}
}

func TestDecodeDates(t *testing.T) {
	in := strings.NewReader(`date_key,date,day,month,quarter,year,day_of_week,month_name,is_weekend
1,2024-03-09,9,3,1,2024,5,March,True
2,2024-03-11 00:00:00,11,3,1,2024,0,March,False
`)
	dates, err := decodeTable(in, dateCodec)
	if err != nil {
		t.Fatalf("decodeTable failed: %v", err)
	}
	if !dates[0].IsWeekend || dates[1].IsWeekend {
		t.Error("is_weekend not parsed")
	}
	for _, d := range dates {
		if err := d.Validate(); err != nil {
			t.Errorf("date %d invalid: %v", d.Key, err)
		}
	}
}

func TestDecodeOptionalColumns(t *testing.T) {
	in := strings.NewReader(`rep_key,rep_name,region,team
7,Ann Lee,East,Oncology
`)
	reps, err := decodeTable(in, repCodec)
	if err != nil {
		t.Fatalf("decodeTable failed: %v", err)
	}
	if reps[0].Key != 7 || !reps[0].HireDate.IsZero() || reps[0].PerformanceTier != "" {
		t.Errorf("unexpected rep: %+v", reps[0])
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		csv  string
		want string
	}{
		{
			name: "missing required column",
			csv:  "territory_key,territory_name,region,population\n1,A,East,10\n",
			want: "missing column market_potential",
		},
		{
			name: "bad integer",
			csv:  "territory_key,territory_name,region,population,market_potential\n1,A,East,lots,High\n",
			want: "line 2: column population",
		},
		{
			name: "empty required value",
			csv:  "territory_key,territory_name,region,population,market_potential\n1,A,East,,High\n",
			want: "value is required",
		},
		{
			name: "empty file",
			csv:  "",
			want: "failed to read header",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeTable(strings.NewReader(tt.csv), territoryCodec)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestReadDatasetMissingFile(t *testing.T) {
	if _, err := ReadDataset(t.TempDir()); err == nil {
		t.Error("expected error for empty directory")
	}
}

type fakeLoader struct {
	started  int
	finished []error
	rows     map[string]int64
	loadErr  error
	loaded   *model.Dataset
}

func (f *fakeLoader) StartRun(_ context.Context, _ string) (uuid.UUID, error) {
	f.started++
	return uuid.New(), nil
}

func (f *fakeLoader) FinishRun(_ context.Context, _ uuid.UUID, rows map[string]int64, runErr error) error {
	f.rows = rows
	f.finished = append(f.finished, runErr)
	return nil
}

func (f *fakeLoader) LoadIncremental(_ context.Context, ds *model.Dataset) (map[string]int64, error) {
	f.loaded = ds
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return map[string]int64{schema.TableSales: int64(len(ds.Sales))}, nil
}

func TestRunnerSuccess(t *testing.T) {
	dir := t.TempDir()
	if err := WriteDataset(dir, generated(t)); err != nil {
		t.Fatalf("WriteDataset failed: %v", err)
	}

	loader := &fakeLoader{}
	result, err := NewRunner(loader, dir).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.RunID == uuid.Nil {
		t.Error("run id not set")
	}
	if result.Rows[schema.TableSales] != 150 {
		t.Errorf("loaded %d sales, want 150", result.Rows[schema.TableSales])
	}
	if loader.started != 1 || len(loader.finished) != 1 || loader.finished[0] != nil {
		t.Errorf("run log not recorded as success: %+v", loader)
	}
}

func TestRunnerRecordsFailure(t *testing.T) {
	dir := t.TempDir()
	if err := WriteDataset(dir, generated(t)); err != nil {
		t.Fatalf("WriteDataset failed: %v", err)
	}

	boom := errors.New("connection reset")
	loader := &fakeLoader{loadErr: boom}
	if _, err := NewRunner(loader, dir).Run(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Run error = %v, want %v", err, boom)
	}
	if len(loader.finished) != 1 || !errors.Is(loader.finished[0], boom) {
		t.Errorf("failure not recorded: %v", loader.finished)
	}
}

func TestRunnerRejectsInvalidData(t *testing.T) {
	dir := t.TempDir()
	ds := generated(t)
	ds.Sales[0].ProductKey = 999
	if err := WriteDataset(dir, ds); err != nil {
		t.Fatalf("WriteDataset failed: %v", err)
	}

	loader := &fakeLoader{}
	_, err := NewRunner(loader, dir).Run(context.Background())
	if !errors.Is(err, model.ErrIntegrity) {
		t.Fatalf("Run error = %v, want ErrIntegrity", err)
	}
	if loader.loaded != nil {
		t.Error("invalid data should not reach the loader")
	}
}
