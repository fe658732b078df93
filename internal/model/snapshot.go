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
	"fmt"

	"github.com/pgEdge/pgedge-pharma/internal/logging"
)

// Dataset holds the six entity collections of the star schema.
type Dataset struct {
	Dates       []DateDim
	Reps        []SalesRep
	Doctors     []Doctor
	Products    []Product
	Territories []Territory
	Sales       []Sale
}

// Counts returns the row count of every table, keyed by table name.
func (ds *Dataset) Counts() map[string]int {
	return map[string]int{
		"dim_date":      len(ds.Dates),
		"dim_sales_rep": len(ds.Reps),
		"dim_doctor":    len(ds.Doctors),
		"dim_product":   len(ds.Products),
		"dim_territory": len(ds.Territories),
		"fact_sales":    len(ds.Sales),
	}
}

// Validate performs strict validation of the dataset: unique keys, row
// invariants and resolvable foreign keys. All violations are returned
// joined together.
func (ds *Dataset) Validate() error {
	var errs []error

	dates := make(map[int]struct{}, len(ds.Dates))
	days := make(map[string]int, len(ds.Dates))
	for _, d := range ds.Dates {
		if _, dup := dates[d.Key]; dup {
			errs = append(errs, fmt.Errorf("%w: duplicate date_key %d", ErrIntegrity, d.Key))
		}
		dates[d.Key] = struct{}{}
		day := d.Date.Format("2006-01-02")
		if other, dup := days[day]; dup {
			errs = append(errs, fmt.Errorf("%w: date %s used by keys %d and %d",
				ErrIntegrity, day, other, d.Key))
		}
		days[day] = d.Key
		if err := d.Validate(); err != nil {
			errs = append(errs, err)
		}
	}

	reps := make(map[int]struct{}, len(ds.Reps))
	for _, r := range ds.Reps {
		if _, dup := reps[r.Key]; dup {
			errs = append(errs, fmt.Errorf("%w: duplicate rep_key %d", ErrIntegrity, r.Key))
		}
		reps[r.Key] = struct{}{}
	}

	doctors := make(map[int]struct{}, len(ds.Doctors))
	for _, d := range ds.Doctors {
		if _, dup := doctors[d.Key]; dup {
			errs = append(errs, fmt.Errorf("%w: duplicate doctor_key %d", ErrIntegrity, d.Key))
		}
		doctors[d.Key] = struct{}{}
	}

	products := make(map[int]struct{}, len(ds.Products))
	for _, p := range ds.Products {
		if _, dup := products[p.Key]; dup {
			errs = append(errs, fmt.Errorf("%w: duplicate product_key %d", ErrIntegrity, p.Key))
		}
		products[p.Key] = struct{}{}
		if err := p.Validate(); err != nil {
			errs = append(errs, err)
		}
	}

	territories := make(map[int]struct{}, len(ds.Territories))
	for _, t := range ds.Territories {
		if _, dup := territories[t.Key]; dup {
			errs = append(errs, fmt.Errorf("%w: duplicate territory_key %d", ErrIntegrity, t.Key))
		}
		territories[t.Key] = struct{}{}
		if err := t.Validate(); err != nil {
			errs = append(errs, err)
		}
	}

	sales := make(map[int64]struct{}, len(ds.Sales))
	for _, s := range ds.Sales {
		if _, dup := sales[s.ID]; dup {
			errs = append(errs, fmt.Errorf("%w: duplicate sale_id %d", ErrIntegrity, s.ID))
		}
		sales[s.ID] = struct{}{}
		if err := s.Validate(); err != nil {
			errs = append(errs, err)
		}
		if _, ok := dates[s.DateKey]; !ok {
			errs = append(errs, danglingKey(s.ID, "date_key", s.DateKey))
		}
		if _, ok := reps[s.RepKey]; !ok {
			errs = append(errs, danglingKey(s.ID, "rep_key", s.RepKey))
		}
		if _, ok := doctors[s.DoctorKey]; !ok {
			errs = append(errs, danglingKey(s.ID, "doctor_key", s.DoctorKey))
		}
		if _, ok := products[s.ProductKey]; !ok {
			errs = append(errs, danglingKey(s.ID, "product_key", s.ProductKey))
		}
		if _, ok := territories[s.TerritoryKey]; !ok {
			errs = append(errs, danglingKey(s.ID, "territory_key", s.TerritoryKey))
		}
	}

	return errors.Join(errs...)
}

func danglingKey(saleID int64, column string, key int) error {
	return fmt.Errorf("%w: sale %d references missing %s %d", ErrIntegrity, saleID, column, key)
}

// Row is a sale joined with the five dimension rows it references.
type Row struct {
	Sale      Sale
	Date      *DateDim
	Rep       *SalesRep
	Doctor    *Doctor
	Product   *Product
	Territory *Territory
}

// Snapshot is a read-only view of a dataset with every resolvable sale
// joined to its dimensions. Reports only ever read from a Snapshot.
type Snapshot struct {
	Dataset *Dataset
	Rows    []Row

	// Dropped counts sales excluded because a foreign key did not resolve.
	Dropped int
}

// NewSnapshot joins the sales of ds with their dimensions. Sales that
// reference a missing dimension key are excluded and counted rather than
// failing the join. The dataset must not be modified afterwards.
func NewSnapshot(ds *Dataset) *Snapshot {
	if ds == nil {
		ds = &Dataset{}
	}

	dates := indexBy(ds.Dates, func(d DateDim) int { return d.Key })
	reps := indexBy(ds.Reps, func(r SalesRep) int { return r.Key })
	doctors := indexBy(ds.Doctors, func(d Doctor) int { return d.Key })
	products := indexBy(ds.Products, func(p Product) int { return p.Key })
	territories := indexBy(ds.Territories, func(t Territory) int { return t.Key })

	snap := &Snapshot{
		Dataset: ds,
		Rows:    make([]Row, 0, len(ds.Sales)),
	}

	for _, s := range ds.Sales {
		row := Row{
			Sale:      s,
			Date:      dates[s.DateKey],
			Rep:       reps[s.RepKey],
			Doctor:    doctors[s.DoctorKey],
			Product:   products[s.ProductKey],
			Territory: territories[s.TerritoryKey],
		}
		if row.Date == nil || row.Rep == nil || row.Doctor == nil ||
			row.Product == nil || row.Territory == nil {
			snap.Dropped++
			logging.Debug().
				Int64("sale_id", s.ID).
				Msg("Excluding sale with unresolved dimension key")
			continue
		}
		snap.Rows = append(snap.Rows, row)
	}

	if snap.Dropped > 0 {
		logging.Warn().
			Int("dropped", snap.Dropped).
			Int("joined", len(snap.Rows)).
			Msg("Sales referencing missing dimension rows were excluded")
	}

	return snap
}

// indexBy maps each key to a pointer into items. The first row wins when
// keys repeat.
func indexBy[T any](items []T, key func(T) int) map[int]*T {
	m := make(map[int]*T, len(items))
	for i := range items {
		k := key(items[i])
		if _, ok := m[k]; !ok {
			m[k] = &items[i]
		}
	}
	return m
}
