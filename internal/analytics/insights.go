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
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/pgEdge/pgedge-pharma/internal/model"
)

// Thresholds used by the insights report.
const (
	// LowPenetrationPrescribers is the prescriber count under which a
	// product counts as under-penetrated.
	LowPenetrationPrescribers = 50

	growthProductLimit = 5
	reallocationLimit  = 3
)

var underperformingRatio = decimal.RequireFromString("0.7")

// Insight is one business finding with a suggested action.
type Insight struct {
	Category       string   `json:"category"`
	Finding        string   `json:"finding"`
	Recommendation string   `json:"recommendation"`
	ExpectedImpact string   `json:"expected_impact"`
	Subjects       []string `json:"subjects"`
}

// UnderperformingTerritory is a high-potential territory whose revenue is
// below 70% of the average for its market potential.
type UnderperformingTerritory struct {
	TerritoryName         string
	Region                string
	TotalRevenue          decimal.Decimal
	AvgRevenueByPotential decimal.Decimal
}

// RegionROI is the marketing return of one territory region.
type RegionROI struct {
	Region         string
	TotalRevenue   decimal.Decimal
	TotalMarketing decimal.Decimal
	ROI            decimal.NullDecimal
}

// GrowthProduct is a high-revenue product with a small prescriber base.
type GrowthProduct struct {
	ProductName     string
	Category        string
	PrescriberCount int
	TotalRevenue    decimal.Decimal
}

// UnderperformingTerritories returns high-potential territories earning
// less than 0.7 times the average revenue of territories with the same
// market potential, highest revenue first.
func UnderperformingTerritories(snap *model.Snapshot) []UnderperformingTerritory {
	groups := GroupBy(snap.Rows, func(r model.Row) *model.Territory { return r.Territory })

	totals := make(map[string]decimal.Decimal)
	counts := make(map[string]int64)
	for _, g := range groups {
		p := g.Key.MarketPotential
		totals[p] = totals[p].Add(g.Summary.revenue)
		counts[p]++
	}

	var out []UnderperformingTerritory
	for _, g := range groups {
		t := g.Key
		if t.MarketPotential != model.PotentialHigh {
			continue
		}
		avg := totals[t.MarketPotential].Div(decimal.NewFromInt(counts[t.MarketPotential]))
		if g.Summary.revenue.LessThan(avg.Mul(underperformingRatio)) {
			out = append(out, UnderperformingTerritory{
				TerritoryName:         t.Name,
				Region:                t.Region,
				TotalRevenue:          g.Summary.revenue,
				AvgRevenueByPotential: avg.Round(ratioPlaces),
			})
		}
	}
	slices.SortStableFunc(out, func(a, b UnderperformingTerritory) int {
		return b.TotalRevenue.Cmp(a.TotalRevenue)
	})
	return out
}

// RegionROIs returns the marketing ROI of every territory region, best
// first. Regions without marketing spend sort last.
func RegionROIs(snap *model.Snapshot) []RegionROI {
	groups := GroupBy(snap.Rows, func(r model.Row) string { return r.Territory.Region })

	out := make([]RegionROI, 0, len(groups))
	for _, g := range groups {
		out = append(out, RegionROI{
			Region:         g.Key,
			TotalRevenue:   g.Summary.revenue,
			TotalMarketing: g.Summary.marketing,
			ROI:            g.Summary.MarketingROI(),
		})
	}
	slices.SortStableFunc(out, func(a, b RegionROI) int {
		if c := compareNullDesc(a.ROI, b.ROI); c != 0 {
			return c
		}
		return strings.Compare(a.Region, b.Region)
	})
	return out
}

// GrowthProducts returns the top revenue products that fewer than
// LowPenetrationPrescribers doctors prescribe.
func GrowthProducts(snap *model.Snapshot) []GrowthProduct {
	groups := GroupBy(snap.Rows, func(r model.Row) *model.Product { return r.Product })

	var out []GrowthProduct
	for _, g := range groups {
		if g.Summary.DistinctDoctors() >= LowPenetrationPrescribers {
			continue
		}
		out = append(out, GrowthProduct{
			ProductName:     g.Key.Name,
			Category:        g.Key.Category,
			PrescriberCount: g.Summary.DistinctDoctors(),
			TotalRevenue:    g.Summary.revenue,
		})
	}
	slices.SortStableFunc(out, func(a, b GrowthProduct) int {
		return b.TotalRevenue.Cmp(a.TotalRevenue)
	})
	if len(out) > growthProductLimit {
		out = out[:growthProductLimit]
	}
	return out
}

// GenerateInsights derives the business insights report from the
// snapshot. Findings with nothing to report are omitted.
func GenerateInsights(snap *model.Snapshot) []Insight {
	var insights []Insight

	if under := UnderperformingTerritories(snap); len(under) > 0 {
		names := lo.Map(under, func(t UnderperformingTerritory, _ int) string { return t.TerritoryName })
		insights = append(insights, Insight{
			Category: "Territory Optimization",
			Finding:  fmt.Sprintf("%d high-potential territories are underperforming", len(under)),
			Recommendation: "Reallocate top-performing reps to: " +
				strings.Join(lo.Slice(names, 0, reallocationLimit), ", "),
			ExpectedImpact: "Potential 15-25% revenue increase in these territories",
			Subjects:       names,
		})
	}

	rois := lo.Filter(RegionROIs(snap), func(r RegionROI, _ int) bool { return r.ROI.Valid })
	if len(rois) > 0 {
		best, worst := rois[0].Region, rois[len(rois)-1].Region
		insights = append(insights, Insight{
			Category:       "Marketing ROI",
			Finding:        fmt.Sprintf("%s has highest ROI, %s has lowest", best, worst),
			Recommendation: fmt.Sprintf("Reduce marketing spend in %s by 20%%, reinvest in %s", worst, best),
			ExpectedImpact: "Projected 10% improvement in overall marketing efficiency",
			Subjects:       []string{best, worst},
		})
	}

	if products := GrowthProducts(snap); len(products) > 0 {
		names := lo.Map(products, func(p GrowthProduct, _ int) string { return p.ProductName })
		insights = append(insights, Insight{
			Category:       "Product Growth",
			Finding:        "Top revenue products have low prescriber penetration",
			Recommendation: "Expand prescriber base for: " + strings.Join(names, ", "),
			ExpectedImpact: "Doubling the prescriber count could add $2-5M in revenue",
			Subjects:       names,
		})
	}

	return insights
}
