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

// Market alignment labels.
const (
	AlignmentUnderutilized  = "Underutilized"
	AlignmentOverperforming = "Overperforming"
	AlignmentExpected       = "Expected"
)

var thousand = decimal.NewFromInt(1000)

// TerritoryAnalysis is one row of the territory analysis report.
type TerritoryAnalysis struct {
	TerritoryKey           int                 `json:"territory_key"`
	TerritoryName          string              `json:"territory_name"`
	Region                 string              `json:"region"`
	State                  string              `json:"state"`
	Population             int64               `json:"population"`
	MarketPotential        string              `json:"market_potential"`
	TotalSales             int                 `json:"total_sales"`
	UniqueReps             int                 `json:"unique_reps"`
	UniqueDoctors          int                 `json:"unique_doctors"`
	TotalRevenue           decimal.NullDecimal `json:"total_revenue"`
	RevenuePer1kPopulation decimal.NullDecimal `json:"revenue_per_1k_population"`
	AvgTerritoryRevenue    decimal.NullDecimal `json:"avg_territory_revenue"`
	MarketAlignment        string              `json:"market_alignment"`
}

// TerritoryAnalysisTable is the territory analysis result set.
type TerritoryAnalysisTable []TerritoryAnalysis

// MarketAlignment classifies a territory's revenue against the average
// revenue of all territories.
func MarketAlignment(potential string, revenue, average decimal.NullDecimal) string {
	if !revenue.Valid || !average.Valid {
		return AlignmentExpected
	}
	switch {
	case potential == model.PotentialHigh && revenue.Decimal.LessThan(average.Decimal):
		return AlignmentUnderutilized
	case potential == model.PotentialLow && revenue.Decimal.GreaterThan(average.Decimal):
		return AlignmentOverperforming
	default:
		return AlignmentExpected
	}
}

// BuildTerritoryAnalysis groups sales by territory and compares each
// territory with the average across the whole result set.
func BuildTerritoryAnalysis(snap *model.Snapshot) TerritoryAnalysisTable {
	groups := GroupBy(snap.Rows, func(r model.Row) *model.Territory { return r.Territory })

	out := make(TerritoryAnalysisTable, 0, len(groups))
	total := decimal.Zero
	defined := 0

	for _, g := range groups {
		t, s := g.Key, g.Summary
		revenue := s.Revenue()
		out = append(out, TerritoryAnalysis{
			TerritoryKey:           t.Key,
			TerritoryName:          t.Name,
			Region:                 t.Region,
			State:                  t.State,
			Population:             t.Population,
			MarketPotential:        t.MarketPotential,
			TotalSales:             s.Sales,
			UniqueReps:             s.DistinctReps(),
			UniqueDoctors:          s.DistinctDoctors(),
			TotalRevenue:           revenue,
			RevenuePer1kPopulation: perThousand(revenue, t.Population),
		})
		if revenue.Valid {
			total = total.Add(revenue.Decimal)
			defined++
		}
	}

	// Global pre-pass result, broadcast to every row.
	average := SafeDiv(some(total), some(decimal.NewFromInt(int64(defined))))

	for i := range out {
		out[i].AvgTerritoryRevenue = round(average, ratioPlaces)
		out[i].MarketAlignment = MarketAlignment(out[i].MarketPotential, out[i].TotalRevenue, average)
	}

	slices.SortStableFunc(out, func(a, b TerritoryAnalysis) int {
		if c := compareNullDesc(a.TotalRevenue, b.TotalRevenue); c != 0 {
			return c
		}
		return a.TerritoryKey - b.TerritoryKey
	})
	return out
}

// perThousand is revenue per 1,000 inhabitants.
func perThousand(revenue decimal.NullDecimal, population int64) decimal.NullDecimal {
	v := SafeDiv(revenue, some(decimal.NewFromInt(population)))
	if !v.Valid {
		return v
	}
	return some(v.Decimal.Mul(thousand).Round(ratioPlaces))
}

// Columns returns the column names in output order.
func (t TerritoryAnalysisTable) Columns() []string {
	return []string{
		"territory_key", "territory_name", "region", "state", "population",
		"market_potential", "total_sales", "unique_reps", "unique_doctors",
		"total_revenue", "revenue_per_1k_population", "avg_territory_revenue",
		"market_alignment",
	}
}

// Records returns every row formatted as strings.
func (t TerritoryAnalysisTable) Records() [][]string {
	records := make([][]string, 0, len(t))
	for _, r := range t {
		records = append(records, []string{
			fmtInt(r.TerritoryKey), r.TerritoryName, r.Region, r.State, fmtInt(r.Population),
			r.MarketPotential, fmtInt(r.TotalSales), fmtInt(r.UniqueReps), fmtInt(r.UniqueDoctors),
			fmtNull(r.TotalRevenue), fmtNull(r.RevenuePer1kPopulation), fmtNull(r.AvgTerritoryRevenue),
			r.MarketAlignment,
		})
	}
	return records
}

// Len returns the number of rows.
func (t TerritoryAnalysisTable) Len() int { return len(t) }

type territoryReport struct{}

func (territoryReport) Name() string { return "territory_analysis" }

func (territoryReport) Description() string {
	return "Territory revenue against the all-territory average and market potential"
}

func (territoryReport) Build(snap *model.Snapshot, _ Options) Table {
	return BuildTerritoryAnalysis(snap)
}

func init() {
	Register(territoryReport{})
}
