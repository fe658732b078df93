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
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pgEdge/pgedge-pharma/internal/model"
)

// fixture builds small datasets for report tests.
type fixture struct {
	ds     model.Dataset
	nextID int64
}

func newFixture() *fixture {
	return &fixture{nextID: 1}
}

func nd(s string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.RequireFromString(s), Valid: true}
}

func (f *fixture) date(key int, y int, m time.Month, d int) *fixture {
	f.ds.Dates = append(f.ds.Dates, model.NewDateDim(key, time.Date(y, m, d, 0, 0, 0, 0, time.UTC)))
	return f
}

func (f *fixture) rep(key int, name, region string) *fixture {
	f.ds.Reps = append(f.ds.Reps, model.SalesRep{
		Key: key, Name: name, Region: region, Team: "Team A", PerformanceTier: "Tier 2",
	})
	return f
}

func (f *fixture) doctor(key int, name string) *fixture {
	f.ds.Doctors = append(f.ds.Doctors, model.Doctor{
		Key: key, Name: name, Specialty: "Cardiology", Hospital: "General", City: "Springfield",
		PrescriptionVolume: "Medium",
	})
	return f
}

func (f *fixture) product(key int, name, category string) *fixture {
	f.ds.Products = append(f.ds.Products, model.Product{
		Key: key, Name: name, Category: category, UnitPrice: decimal.NewFromInt(10),
		PatentStatus: "Patented",
	})
	return f
}

func (f *fixture) territory(key int, name, region, potential string) *fixture {
	f.ds.Territories = append(f.ds.Territories, model.Territory{
		Key: key, Name: name, Region: region, State: "CA", Population: 100000,
		MarketPotential: potential,
	})
	return f
}

// sale adds a fact row. Revenue and marketing are decimal strings.
func (f *fixture) sale(dateKey, repKey, doctorKey, productKey, territoryKey int,
	revenue, marketing string) *fixture {
	f.ds.Sales = append(f.ds.Sales, model.Sale{
		ID:              f.nextID,
		DateKey:         dateKey,
		RepKey:          repKey,
		DoctorKey:       doctorKey,
		ProductKey:      productKey,
		TerritoryKey:    territoryKey,
		QuantitySold:    1,
		Revenue:         decimal.RequireFromString(revenue),
		DiscountPercent: decimal.NewFromInt(5),
		MarketingSpend:  decimal.RequireFromString(marketing),
	})
	f.nextID++
	return f
}

func (f *fixture) snapshot() *model.Snapshot {
	ds := f.ds
	return model.NewSnapshot(&ds)
}

func assertNull(t *testing.T, name string, got decimal.NullDecimal) {
	t.Helper()
	if got.Valid {
		t.Errorf("%s: expected no value, got %s", name, got.Decimal)
	}
}

func assertDec(t *testing.T, name string, got decimal.NullDecimal, want string) {
	t.Helper()
	if !got.Valid {
		t.Errorf("%s: expected %s, got no value", name, want)
		return
	}
	if !got.Decimal.Equal(decimal.RequireFromString(want)) {
		t.Errorf("%s: expected %s, got %s", name, want, got.Decimal)
	}
}
