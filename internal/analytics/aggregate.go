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
	"time"

	"github.com/shopspring/decimal"

	"github.com/pgEdge/pgedge-pharma/internal/model"
)

// Summary accumulates the measures of the sales that fall into one group.
type Summary struct {
	Sales    int
	Quantity int64

	revenue   decimal.Decimal
	marketing decimal.Decimal
	discount  decimal.Decimal

	doctors  map[int]struct{}
	reps     map[int]struct{}
	products map[int]struct{}
	quarters map[model.QuarterKey]struct{}

	lastSale time.Time
}

func newSummary() *Summary {
	return &Summary{
		doctors:  make(map[int]struct{}),
		reps:     make(map[int]struct{}),
		products: make(map[int]struct{}),
		quarters: make(map[model.QuarterKey]struct{}),
	}
}

// Add folds one joined sale into the summary.
func (s *Summary) Add(r model.Row) {
	s.Sales++
	s.Quantity += r.Sale.QuantitySold
	s.revenue = s.revenue.Add(r.Sale.Revenue)
	s.marketing = s.marketing.Add(r.Sale.MarketingSpend)
	s.discount = s.discount.Add(r.Sale.DiscountPercent)

	s.doctors[r.Sale.DoctorKey] = struct{}{}
	s.reps[r.Sale.RepKey] = struct{}{}
	s.products[r.Sale.ProductKey] = struct{}{}
	if r.Date != nil {
		s.quarters[r.Date.QuarterKey()] = struct{}{}
		if r.Date.Date.After(s.lastSale) {
			s.lastSale = r.Date.Date
		}
	}
}

// sum reports an additive measure, undefined for a group without sales.
func (s *Summary) sum(v decimal.Decimal) decimal.NullDecimal {
	if s.Sales == 0 {
		return none()
	}
	return some(v)
}

// Revenue is the total revenue of the group.
func (s *Summary) Revenue() decimal.NullDecimal { return s.sum(s.revenue) }

// MarketingSpend is the total marketing spend of the group.
func (s *Summary) MarketingSpend() decimal.NullDecimal { return s.sum(s.marketing) }

// AvgRevenue is the mean revenue per sale.
func (s *Summary) AvgRevenue() decimal.NullDecimal {
	return round(SafeDiv(s.Revenue(), s.count()), ratioPlaces)
}

// AvgDiscount is the mean discount percent per sale.
func (s *Summary) AvgDiscount() decimal.NullDecimal {
	return round(SafeDiv(s.sum(s.discount), s.count()), ratioPlaces)
}

// MarketingROI is revenue per unit of marketing spend.
func (s *Summary) MarketingROI() decimal.NullDecimal {
	return round(SafeDiv(s.Revenue(), s.MarketingSpend()), ratioPlaces)
}

func (s *Summary) count() decimal.NullDecimal {
	return some(decimal.NewFromInt(int64(s.Sales)))
}

// DistinctDoctors is the number of different prescribers in the group.
func (s *Summary) DistinctDoctors() int { return len(s.doctors) }

// DistinctReps is the number of different sales reps in the group.
func (s *Summary) DistinctReps() int { return len(s.reps) }

// DistinctProducts is the number of different products in the group.
func (s *Summary) DistinctProducts() int { return len(s.products) }

// DistinctQuarters is the number of different (year, quarter) pairs.
func (s *Summary) DistinctQuarters() int { return len(s.quarters) }

// LastSaleDate is the latest sale date, nil when the group has no sales.
func (s *Summary) LastSaleDate() *time.Time {
	if s.Sales == 0 || s.lastSale.IsZero() {
		return nil
	}
	t := s.lastSale
	return &t
}

// Group is one distinct grouping key with its summary.
type Group[K comparable] struct {
	Key     K
	Summary *Summary
}

// Grouper maps grouping keys to accumulators, remembering first-seen order.
type Grouper[K comparable] struct {
	index  map[K]int
	groups []Group[K]
}

// NewGrouper creates an empty grouper.
func NewGrouper[K comparable]() *Grouper[K] {
	return &Grouper[K]{index: make(map[K]int)}
}

// Seed makes sure a group exists for k even if no sale is ever added to
// it, giving outer-join semantics.
func (g *Grouper[K]) Seed(k K) *Summary {
	if i, ok := g.index[k]; ok {
		return g.groups[i].Summary
	}
	s := newSummary()
	g.index[k] = len(g.groups)
	g.groups = append(g.groups, Group[K]{Key: k, Summary: s})
	return s
}

// Add folds r into the group for k.
func (g *Grouper[K]) Add(k K, r model.Row) {
	g.Seed(k).Add(r)
}

// Groups returns the groups in first-seen order.
func (g *Grouper[K]) Groups() []Group[K] {
	return g.groups
}

// GroupBy groups rows by the key function (inner-join semantics: only
// keys that occur in rows produce groups).
func GroupBy[K comparable](rows []model.Row, key func(model.Row) K) []Group[K] {
	g := NewGrouper[K]()
	for _, r := range rows {
		g.Add(key(r), r)
	}
	return g.Groups()
}
