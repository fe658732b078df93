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
	"github.com/shopspring/decimal"

	"github.com/pgEdge/pgedge-pharma/internal/model"
)

// DemandFeature is one row of the demand forecasting feature set.
type DemandFeature struct {
	Year             int                 `json:"year"`
	Quarter          int                 `json:"quarter"`
	Region           string              `json:"region"`
	TransactionCount int                 `json:"transaction_count"`
	TotalQuantity    int64               `json:"total_quantity"`
	TotalRevenue     decimal.NullDecimal `json:"total_revenue"`
	TotalMarketing   decimal.NullDecimal `json:"total_marketing"`
	AvgDiscount      decimal.NullDecimal `json:"avg_discount"`
	UniqueDoctors    int                 `json:"unique_doctors"`
	RevenueLag1      decimal.NullDecimal `json:"revenue_lag1"`
	RevenueLag2      decimal.NullDecimal `json:"revenue_lag2"`
}

// DemandFeaturesTable is the demand features result set.
type DemandFeaturesTable []DemandFeature

// BuildDemandFeatures produces per region and quarter aggregates with
// the revenue of the one and two preceding quarters of the same region.
func BuildDemandFeatures(snap *model.Snapshot) DemandFeaturesTable {
	groups := groupByRegionQuarter(snap)
	lag1 := Lag(groups, regionOf, revenueOf, 1)
	lag2 := Lag(groups, regionOf, revenueOf, 2)

	out := make(DemandFeaturesTable, 0, len(groups))
	for i, g := range groups {
		s := g.Summary
		out = append(out, DemandFeature{
			Year:             g.Key.Year,
			Quarter:          g.Key.Quarter,
			Region:           g.Key.Region,
			TransactionCount: s.Sales,
			TotalQuantity:    s.Quantity,
			TotalRevenue:     s.Revenue(),
			TotalMarketing:   s.MarketingSpend(),
			AvgDiscount:      s.AvgDiscount(),
			UniqueDoctors:    s.DistinctDoctors(),
			RevenueLag1:      lag1[i],
			RevenueLag2:      lag2[i],
		})
	}
	return out
}

// Complete returns only the rows that have both lag values, the rows a
// model can train on.
func (t DemandFeaturesTable) Complete() DemandFeaturesTable {
	out := make(DemandFeaturesTable, 0, len(t))
	for _, r := range t {
		if r.RevenueLag1.Valid && r.RevenueLag2.Valid {
			out = append(out, r)
		}
	}
	return out
}

func (t DemandFeaturesTable) Columns() []string {
	return []string{
		"year", "quarter", "region", "transaction_count", "total_quantity",
		"total_revenue", "total_marketing", "avg_discount", "unique_doctors",
		"revenue_lag1", "revenue_lag2",
	}
}

func (t DemandFeaturesTable) Records() [][]string {
	records := make([][]string, 0, len(t))
	for _, r := range t {
		records = append(records, []string{
			fmtInt(r.Year), fmtInt(r.Quarter), r.Region, fmtInt(r.TransactionCount), fmtInt(r.TotalQuantity),
			fmtNull(r.TotalRevenue), fmtNull(r.TotalMarketing), fmtNull(r.AvgDiscount), fmtInt(r.UniqueDoctors),
			fmtNull(r.RevenueLag1), fmtNull(r.RevenueLag2),
		})
	}
	return records
}

func (t DemandFeaturesTable) Len() int { return len(t) }

type demandReport struct{}

func (demandReport) Name() string { return "demand_features" }

func (demandReport) Description() string {
	return "Regional quarterly demand with one and two quarter revenue lags"
}

func (demandReport) Build(snap *model.Snapshot, _ Options) Table {
	return BuildDemandFeatures(snap)
}

func init() {
	Register(demandReport{})
}
