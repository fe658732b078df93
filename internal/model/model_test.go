//-------------------------------------------------------------------------
//
// pgEdge Pharma Analytics
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package model

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestNewDateDim(t *testing.T) {
	tests := []struct {
		date      time.Time
		quarter   int
		dayOfWeek int
		monthName string
		weekend   bool
	}{
		{time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), 1, 6, "January", true},
		{time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC), 1, 0, "January", false},
		{time.Date(2023, 6, 30, 0, 0, 0, 0, time.UTC), 2, 4, "June", false},
		{time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), 3, 0, "July", false},
		{time.Date(2024, 12, 28, 0, 0, 0, 0, time.UTC), 4, 5, "December", true},
	}

	for _, tt := range tests {
		t.Run(tt.date.Format(time.DateOnly), func(t *testing.T) {
			d := NewDateDim(1, tt.date)
			if d.Quarter != tt.quarter {
				t.Errorf("Quarter: expected %d, got %d", tt.quarter, d.Quarter)
			}
			if d.DayOfWeek != tt.dayOfWeek {
				t.Errorf("DayOfWeek: expected %d, got %d", tt.dayOfWeek, d.DayOfWeek)
			}
			if d.MonthName != tt.monthName {
				t.Errorf("MonthName: expected %s, got %s", tt.monthName, d.MonthName)
			}
			if d.IsWeekend != tt.weekend {
				t.Errorf("IsWeekend: expected %v, got %v", tt.weekend, d.IsWeekend)
			}
			if err := d.Validate(); err != nil {
				t.Errorf("Validate failed on derived row: %v", err)
			}
		})
	}
}

func TestDateDimValidateInconsistent(t *testing.T) {
	d := NewDateDim(1, time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC))
	d.Quarter = 2
	if err := d.Validate(); !errors.Is(err, ErrIntegrity) {
		t.Errorf("Expected ErrIntegrity, got %v", err)
	}
}

func TestQuarterKeyBefore(t *testing.T) {
	a := QuarterKey{Year: 2023, Quarter: 4}
	b := QuarterKey{Year: 2024, Quarter: 1}
	if !a.Before(b) {
		t.Error("2023-Q4 should be before 2024-Q1")
	}
	if b.Before(a) {
		t.Error("2024-Q1 should not be before 2023-Q4")
	}
	if a.String() != "2023-Q4" {
		t.Errorf("Unexpected String(): %s", a.String())
	}
}

func testDataset() *Dataset {
	return &Dataset{
		Dates: []DateDim{NewDateDim(1, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))},
		Reps:  []SalesRep{{Key: 1, Name: "Rep_1", Region: "North"}},
		Doctors: []Doctor{
			{Key: 1, Name: "Dr_1"},
			{Key: 2, Name: "Dr_2"},
		},
		Products: []Product{
			{Key: 1, Name: "Drug_A", Category: "Diabetes", UnitPrice: decimal.NewFromInt(100)},
		},
		Territories: []Territory{
			{Key: 1, Name: "Territory_1", Region: "North", State: "CA",
				Population: 1000, MarketPotential: PotentialHigh},
		},
		Sales: []Sale{
			{ID: 1, DateKey: 1, RepKey: 1, DoctorKey: 1, ProductKey: 1, TerritoryKey: 1,
				QuantitySold: 2, Revenue: decimal.NewFromInt(200)},
		},
	}
}

func TestDatasetValidate(t *testing.T) {
	ds := testDataset()
	if err := ds.Validate(); err != nil {
		t.Fatalf("Expected valid dataset, got: %v", err)
	}

	ds.Sales = append(ds.Sales, Sale{ID: 2, DateKey: 1, RepKey: 9, DoctorKey: 1,
		ProductKey: 1, TerritoryKey: 1})
	if err := ds.Validate(); !errors.Is(err, ErrIntegrity) {
		t.Errorf("Expected ErrIntegrity for dangling rep_key, got %v", err)
	}
}

func TestSaleValidate(t *testing.T) {
	tests := []struct {
		name      string
		sale      Sale
		wantError bool
	}{
		{"valid", Sale{QuantitySold: 1, DiscountPercent: decimal.NewFromInt(10)}, false},
		{"negative quantity", Sale{QuantitySold: -1}, true},
		{"negative revenue", Sale{Revenue: decimal.NewFromInt(-1)}, true},
		{"discount above 100", Sale{DiscountPercent: decimal.NewFromInt(101)}, true},
		{"negative marketing", Sale{MarketingSpend: decimal.NewFromInt(-5)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sale.Validate()
			if tt.wantError && err == nil {
				t.Error("Expected error, got nil")
			}
			if !tt.wantError && err != nil {
				t.Errorf("Expected no error, got: %v", err)
			}
		})
	}
}

func TestNewSnapshotExcludesDanglingSales(t *testing.T) {
	ds := testDataset()
	ds.Sales = append(ds.Sales,
		Sale{ID: 2, DateKey: 1, RepKey: 1, DoctorKey: 42, ProductKey: 1, TerritoryKey: 1},
		Sale{ID: 3, DateKey: 7, RepKey: 1, DoctorKey: 1, ProductKey: 1, TerritoryKey: 1},
	)

	snap := NewSnapshot(ds)
	if len(snap.Rows) != 1 {
		t.Fatalf("Expected 1 joined row, got %d", len(snap.Rows))
	}
	if snap.Dropped != 2 {
		t.Errorf("Expected 2 dropped rows, got %d", snap.Dropped)
	}
	row := snap.Rows[0]
	if row.Doctor.Name != "Dr_1" || row.Product.Category != "Diabetes" {
		t.Errorf("Row joined to wrong dimensions: %+v", row)
	}
}

func TestNewSnapshotNil(t *testing.T) {
	snap := NewSnapshot(nil)
	if snap.Dataset == nil {
		t.Fatal("Snapshot of nil dataset should carry an empty dataset")
	}
	if len(snap.Rows) != 0 || snap.Dropped != 0 {
		t.Errorf("Expected empty snapshot, got %d rows / %d dropped", len(snap.Rows), snap.Dropped)
	}
}
