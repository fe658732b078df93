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

// regionQuarter is the grouping key of the quarterly reports. Region is
// the territory region.
type regionQuarter struct {
	model.QuarterKey
	Region string
}

func compareRegionQuarter(a, b regionQuarter) int {
	if c := strings.Compare(a.Region, b.Region); c != 0 {
		return c
	}
	if a.Year != b.Year {
		return a.Year - b.Year
	}
	return a.Quarter - b.Quarter
}

// groupByRegionQuarter groups rows by (year, quarter, territory region)
// and returns the groups in window order: region, then year and quarter
// ascending.
func groupByRegionQuarter(snap *model.Snapshot) []Group[regionQuarter] {
	groups := GroupBy(snap.Rows, func(r model.Row) regionQuarter {
		return regionQuarter{QuarterKey: r.Date.QuarterKey(), Region: r.Territory.Region}
	})
	slices.SortStableFunc(groups, func(a, b Group[regionQuarter]) int {
		return compareRegionQuarter(a.Key, b.Key)
	})
	return groups
}

func regionOf(g Group[regionQuarter]) string { return g.Key.Region }

func revenueOf(g Group[regionQuarter]) decimal.NullDecimal { return g.Summary.Revenue() }

// QuarterlyTrend is one row of the quarterly trends report.
type QuarterlyTrend struct {
	Year                    int                 `json:"year"`
	Quarter                 int                 `json:"quarter"`
	Region                  string              `json:"region"`
	TotalSales              int                 `json:"total_sales"`
	ActiveReps              int                 `json:"active_reps"`
	QuarterlyRevenue        decimal.NullDecimal `json:"quarterly_revenue"`
	QuarterlyMarketingSpend decimal.NullDecimal `json:"quarterly_marketing_spend"`
	PrevQuarterRevenue      decimal.NullDecimal `json:"prev_quarter_revenue"`
	QoQGrowthRate           decimal.NullDecimal `json:"qoq_growth_rate"`
	MarketingEfficiency     decimal.NullDecimal `json:"marketing_efficiency"`
}

// QuarterlyTrendsTable is the quarterly trends result set.
type QuarterlyTrendsTable []QuarterlyTrend

// BuildQuarterlyTrends aggregates sales per region and quarter, then
// looks back one row within each region for quarter-over-quarter growth.
// A region missing a quarter is compared with its previous present
// quarter.
func BuildQuarterlyTrends(snap *model.Snapshot) QuarterlyTrendsTable {
	groups := groupByRegionQuarter(snap)
	prev := Lag(groups, regionOf, revenueOf, 1)

	out := make(QuarterlyTrendsTable, 0, len(groups))
	for i, g := range groups {
		s := g.Summary
		revenue := s.Revenue()
		out = append(out, QuarterlyTrend{
			Year:                    g.Key.Year,
			Quarter:                 g.Key.Quarter,
			Region:                  g.Key.Region,
			TotalSales:              s.Sales,
			ActiveReps:              s.DistinctReps(),
			QuarterlyRevenue:        revenue,
			QuarterlyMarketingSpend: s.MarketingSpend(),
			PrevQuarterRevenue:      prev[i],
			QoQGrowthRate:           GrowthRate(revenue, prev[i]),
			MarketingEfficiency:     s.MarketingROI(),
		})
	}
	return out
}

// Columns returns the column names in output order.
func (t QuarterlyTrendsTable) Columns() []string {
	return []string{
		"year", "quarter", "region", "total_sales", "active_reps",
		"quarterly_revenue", "quarterly_marketing_spend", "prev_quarter_revenue",
		"qoq_growth_rate", "marketing_efficiency",
	}
}

// Records returns every row formatted as strings.
func (t QuarterlyTrendsTable) Records() [][]string {
	records := make([][]string, 0, len(t))
	for _, r := range t {
		records = append(records, []string{
			fmtInt(r.Year), fmtInt(r.Quarter), r.Region, fmtInt(r.TotalSales), fmtInt(r.ActiveReps),
			fmtNull(r.QuarterlyRevenue), fmtNull(r.QuarterlyMarketingSpend), fmtNull(r.PrevQuarterRevenue),
			fmtNull(r.QoQGrowthRate), fmtNull(r.MarketingEfficiency),
		})
	}
	return records
}

// Len returns the number of rows.
func (t QuarterlyTrendsTable) Len() int { return len(t) }

type quarterlyReport struct{}

func (quarterlyReport) Name() string { return "quarterly_trends" }

func (quarterlyReport) Description() string {
	return "Quarterly revenue per region with quarter-over-quarter growth and marketing efficiency"
}

func (quarterlyReport) Build(snap *model.Snapshot, _ Options) Table {
	return BuildQuarterlyTrends(snap)
}

func init() {
	Register(quarterlyReport{})
}
