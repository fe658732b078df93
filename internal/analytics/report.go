//-------------------------------------------------------------------------
//
// pgEdge Pharma Analytics
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package analytics computes the pharmaceutical sales reports from a
// joined snapshot of the star schema: aggregation, percentile and rank
// statistics, and lag-based trend windows.
package analytics

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pgEdge/pgedge-pharma/internal/model"
)

// ErrUnknownReport is returned when a report name is not registered.
var ErrUnknownReport = errors.New("unknown report")

// Options parameterise report computation.
type Options struct {
	// AsOf is the "current date" used for recency measures. Zero means
	// today in UTC.
	AsOf time.Time
}

func (o Options) asOf() time.Time {
	t := o.AsOf
	if t.IsZero() {
		t = time.Now().UTC()
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Table is a computed result set ready for rendering.
type Table interface {
	// Columns returns the column names in output order.
	Columns() []string

	// Records returns every row formatted as strings. Undefined values
	// are empty strings.
	Records() [][]string

	// Len returns the number of rows.
	Len() int
}

// Report defines the interface that all reports must implement.
type Report interface {
	// Name returns the report name.
	Name() string

	// Description returns a human-readable description.
	Description() string

	// Build computes the report over the snapshot. It must not modify
	// the snapshot.
	Build(snap *model.Snapshot, opts Options) Table
}

var (
	registry = make(map[string]Report)
	mu       sync.RWMutex
)

// Register adds a report to the registry.
func Register(r Report) {
	mu.Lock()
	defer mu.Unlock()
	registry[r.Name()] = r
}

// Get retrieves a report by name.
func Get(name string) (Report, error) {
	mu.RLock()
	defer mu.RUnlock()

	r, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownReport, name)
	}
	return r, nil
}

// List returns all registered report names in sorted order.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns all registered reports ordered by name.
func All() []Report {
	names := List()

	mu.RLock()
	defer mu.RUnlock()
	reports := make([]Report, 0, len(names))
	for _, name := range names {
		reports = append(reports, registry[name])
	}
	return reports
}

// cell formatting helpers shared by the table implementations

func fmtNull(v decimal.NullDecimal) string {
	if !v.Valid {
		return ""
	}
	return v.Decimal.String()
}

func fmtDec(v decimal.Decimal) string {
	return v.String()
}

func fmtInt[T ~int | ~int64](v T) string {
	return strconv.FormatInt(int64(v), 10)
}

func fmtDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.DateOnly)
}

func fmtIntPtr(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
