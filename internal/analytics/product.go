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
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/pgEdge/pgedge-pharma/internal/model"
)

// ProductPerformance is one row of the product performance report.
type ProductPerformance struct {
	ProductKey           int                 `json:"product_key"`
	ProductName          string              `json:"product_name"`
	Category             string              `json:"category"`
	UnitPrice            decimal.Decimal     `json:"unit_price"`
	PatentStatus         string              `json:"patent_status"`
	TotalSales           int                 `json:"total_sales"`
	TotalQuantity        int64               `json:"total_quantity"`
	TotalRevenue         decimal.NullDecimal `json:"total_revenue"`
	AvgDiscountPercent   decimal.NullDecimal `json:"avg_discount_percent"`
	UniquePrescribers    int                 `json:"unique_prescribers"`
	CategoryRevenueShare decimal.NullDecimal `json:"category_revenue_share"`
	RankInCategory       int                 `json:"rank_in_category"`
}

// ProductPerformanceTable is the product performance result set.
type ProductPerformanceTable []ProductPerformance

// BuildProductPerformance groups sales by product and computes each
// product's revenue share and rank within its category.
func BuildProductPerformance(snap *model.Snapshot) ProductPerformanceTable {
	groups := GroupBy(snap.Rows, func(r model.Row) *model.Product { return r.Product })

	out := make(ProductPerformanceTable, 0, len(groups))
	categoryTotals := make(map[string]decimal.Decimal)
	categories := make([]string, 0, len(groups))
	revenues := make([]decimal.NullDecimal, 0, len(groups))

	for _, g := range groups {
		p, s := g.Key, g.Summary
		row := ProductPerformance{
			ProductKey:         p.Key,
			ProductName:        p.Name,
			Category:           p.Category,
			UnitPrice:          p.UnitPrice,
			PatentStatus:       p.PatentStatus,
			TotalSales:         s.Sales,
			TotalQuantity:      s.Quantity,
			TotalRevenue:       s.Revenue(),
			AvgDiscountPercent: s.AvgDiscount(),
			UniquePrescribers:  s.DistinctDoctors(),
		}
		if row.TotalRevenue.Valid {
			categoryTotals[p.Category] = categoryTotals[p.Category].Add(row.TotalRevenue.Decimal)
		}
		out = append(out, row)
		categories = append(categories, p.Category)
		revenues = append(revenues, row.TotalRevenue)
	}

	ranks := RankWithin(categories, revenues)
	for i := range out {
		total, ok := categoryTotals[out[i].Category]
		if ok {
			out[i].CategoryRevenueShare = round(SafeDiv(out[i].TotalRevenue, some(total)), sharePlaces)
		}
		out[i].RankInCategory = ranks[i]
	}

	slices.SortStableFunc(out, func(a, b ProductPerformance) int {
		if c := strings.Compare(a.Category, b.Category); c != 0 {
			return c
		}
		if a.RankInCategory != b.RankInCategory {
			return a.RankInCategory - b.RankInCategory
		}
		return a.ProductKey - b.ProductKey
	})
	return out
}

// Columns returns the column names in output order.
func (t ProductPerformanceTable) Columns() []string {
	return []string{
		"product_key", "product_name", "category", "unit_price", "patent_status",
		"total_sales", "total_quantity", "total_revenue", "avg_discount_percent",
		"unique_prescribers", "category_revenue_share", "rank_in_category",
	}
}

// Records returns every row formatted as strings.
func (t ProductPerformanceTable) Records() [][]string {
	records := make([][]string, 0, len(t))
	for _, r := range t {
		records = append(records, []string{
			fmtInt(r.ProductKey), r.ProductName, r.Category, fmtDec(r.UnitPrice), r.PatentStatus,
			fmtInt(r.TotalSales), fmtInt(r.TotalQuantity), fmtNull(r.TotalRevenue),
			fmtNull(r.AvgDiscountPercent), fmtInt(r.UniquePrescribers),
			fmtNull(r.CategoryRevenueShare), fmtInt(r.RankInCategory),
		})
	}
	return records
}

// Len returns the number of rows.
func (t ProductPerformanceTable) Len() int { return len(t) }

type productReport struct{}

func (productReport) Name() string { return "product_performance" }

func (productReport) Description() string {
	return "Product revenue, prescriber reach, category revenue share and rank in category"
}

func (productReport) Build(snap *model.Snapshot, _ Options) Table {
	return BuildProductPerformance(snap)
}

func init() {
	Register(productReport{})
}
