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

	"github.com/shopspring/decimal"

	"github.com/pgEdge/pgedge-pharma/internal/model"
)

// RepPerformance is one row of the rep performance report.
type RepPerformance struct {
	RepKey               int                 `json:"rep_key"`
	RepName              string              `json:"rep_name"`
	Region               string              `json:"region"`
	Team                 string              `json:"team"`
	PerformanceTier      string              `json:"performance_tier"`
	TotalSales           int                 `json:"total_sales"`
	UniqueDoctorsCovered int                 `json:"unique_doctors_covered"`
	UniqueProductsSold   int                 `json:"unique_products_sold"`
	ActiveQuarters       int                 `json:"active_quarters"`
	TotalQuantity        int64               `json:"total_quantity"`
	TotalRevenue         decimal.NullDecimal `json:"total_revenue"`
	AvgRevenuePerSale    decimal.NullDecimal `json:"avg_revenue_per_sale"`
	TotalMarketingSpend  decimal.NullDecimal `json:"total_marketing_spend"`
	AvgDiscountPercent   decimal.NullDecimal `json:"avg_discount_percent"`
	MarketingROI         decimal.NullDecimal `json:"marketing_roi"`
	RevenueRank          int                 `json:"revenue_rank"`
	ROIRank              int                 `json:"roi_rank"`
	PerformanceCategory  string              `json:"performance_category"`
}

// RepPerformanceTable is the rep performance result set.
type RepPerformanceTable []RepPerformance

// BuildRepPerformance groups sales by rep, ranks reps by revenue and
// marketing ROI, and buckets them against the revenue quartiles.
func BuildRepPerformance(snap *model.Snapshot) RepPerformanceTable {
	groups := GroupBy(snap.Rows, func(r model.Row) *model.SalesRep { return r.Rep })

	out := make(RepPerformanceTable, 0, len(groups))
	revenues := make([]decimal.NullDecimal, 0, len(groups))
	rois := make([]decimal.NullDecimal, 0, len(groups))

	for _, g := range groups {
		rep, s := g.Key, g.Summary
		row := RepPerformance{
			RepKey:               rep.Key,
			RepName:              rep.Name,
			Region:               rep.Region,
			Team:                 rep.Team,
			PerformanceTier:      rep.PerformanceTier,
			TotalSales:           s.Sales,
			UniqueDoctorsCovered: s.DistinctDoctors(),
			UniqueProductsSold:   s.DistinctProducts(),
			ActiveQuarters:       s.DistinctQuarters(),
			TotalQuantity:        s.Quantity,
			TotalRevenue:         s.Revenue(),
			AvgRevenuePerSale:    s.AvgRevenue(),
			TotalMarketingSpend:  s.MarketingSpend(),
			AvgDiscountPercent:   s.AvgDiscount(),
			MarketingROI:         s.MarketingROI(),
		}
		out = append(out, row)
		revenues = append(revenues, row.TotalRevenue)
		rois = append(rois, row.MarketingROI)
	}

	// Second pass: statistics need the complete grouped result.
	p25 := PercentileCont(revenues, 0.25)
	p75 := PercentileCont(revenues, 0.75)
	revenueRanks := Rank(revenues)
	roiRanks := Rank(rois)

	for i := range out {
		out[i].RevenueRank = revenueRanks[i]
		out[i].ROIRank = roiRanks[i]
		out[i].PerformanceCategory = Classify(out[i].TotalRevenue, p25, p75)
	}

	slices.SortStableFunc(out, func(a, b RepPerformance) int {
		if a.RevenueRank != b.RevenueRank {
			return a.RevenueRank - b.RevenueRank
		}
		return a.RepKey - b.RepKey
	})
	return out
}

// Columns returns the column names in output order.
func (t RepPerformanceTable) Columns() []string {
	return []string{
		"rep_key", "rep_name", "region", "team", "performance_tier",
		"total_sales", "unique_doctors_covered", "unique_products_sold",
		"active_quarters", "total_quantity", "total_revenue",
		"avg_revenue_per_sale", "total_marketing_spend", "avg_discount_percent",
		"marketing_roi", "revenue_rank", "roi_rank", "performance_category",
	}
}

// Records returns every row formatted as strings.
func (t RepPerformanceTable) Records() [][]string {
	records := make([][]string, 0, len(t))
	for _, r := range t {
		records = append(records, []string{
			fmtInt(r.RepKey), r.RepName, r.Region, r.Team, r.PerformanceTier,
			fmtInt(r.TotalSales), fmtInt(r.UniqueDoctorsCovered), fmtInt(r.UniqueProductsSold),
			fmtInt(r.ActiveQuarters), fmtInt(r.TotalQuantity), fmtNull(r.TotalRevenue),
			fmtNull(r.AvgRevenuePerSale), fmtNull(r.TotalMarketingSpend), fmtNull(r.AvgDiscountPercent),
			fmtNull(r.MarketingROI), fmtInt(r.RevenueRank), fmtInt(r.ROIRank), r.PerformanceCategory,
		})
	}
	return records
}

// Len returns the number of rows.
func (t RepPerformanceTable) Len() int { return len(t) }

type repPerformanceReport struct{}

func (repPerformanceReport) Name() string { return "rep_performance" }

func (repPerformanceReport) Description() string {
	return "Sales rep revenue, doctor coverage, marketing ROI, ranks and quartile category"
}

func (repPerformanceReport) Build(snap *model.Snapshot, _ Options) Table {
	return BuildRepPerformance(snap)
}

func init() {
	Register(repPerformanceReport{})
}
