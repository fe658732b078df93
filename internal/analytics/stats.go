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
	"sort"

	"github.com/shopspring/decimal"
)

// PercentileCont returns the p-th percentile (0 <= p <= 1) of values using
// linear interpolation between the two order statistics that bracket the
// fractional rank p*(n-1). Undefined values are ignored; no defined value
// at all gives no value.
func PercentileCont(values []decimal.NullDecimal, p float64) decimal.NullDecimal {
	sorted := make([]decimal.Decimal, 0, len(values))
	for _, v := range values {
		if v.Valid {
			sorted = append(sorted, v.Decimal)
		}
	}
	if len(sorted) == 0 {
		return none()
	}
	slices.SortFunc(sorted, func(a, b decimal.Decimal) int { return a.Cmp(b) })

	if p <= 0 {
		return some(sorted[0])
	}
	if p >= 1 {
		return some(sorted[len(sorted)-1])
	}

	rank := decimal.NewFromFloat(p).Mul(decimal.NewFromInt(int64(len(sorted) - 1)))
	lower := int(rank.Floor().IntPart())
	if lower+1 >= len(sorted) {
		return some(sorted[lower])
	}
	frac := rank.Sub(rank.Floor())
	below, above := sorted[lower], sorted[lower+1]
	return some(below.Add(above.Sub(below).Mul(frac)))
}

// Rank assigns RANK() over values ordered descending: equal values share
// a rank and the next distinct value skips by the size of the tie group.
// Undefined values rank after every defined value. The result is indexed
// like values.
func Rank(values []decimal.NullDecimal) []int {
	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return compareNullDesc(values[order[a]], values[order[b]]) < 0
	})

	ranks := make([]int, len(values))
	for pos, idx := range order {
		if pos > 0 && equalNull(values[idx], values[order[pos-1]]) {
			ranks[idx] = ranks[order[pos-1]]
			continue
		}
		ranks[idx] = pos + 1
	}
	return ranks
}

// RankWithin ranks values separately inside each partition.
func RankWithin[P comparable](partitions []P, values []decimal.NullDecimal) []int {
	members := make(map[P][]int)
	for i, p := range partitions {
		members[p] = append(members[p], i)
	}

	ranks := make([]int, len(values))
	for _, idx := range members {
		sub := make([]decimal.NullDecimal, len(idx))
		for j, i := range idx {
			sub[j] = values[i]
		}
		for j, r := range Rank(sub) {
			ranks[idx[j]] = r
		}
	}
	return ranks
}

// Performance categories assigned from the revenue quartiles.
const (
	CategoryTop     = "Top Performer"
	CategoryAverage = "Average Performer"
	CategoryUnder   = "Underperformer"
)

// Classify places revenue against the 25th and 75th percentiles.
func Classify(revenue, p25, p75 decimal.NullDecimal) string {
	if !revenue.Valid || !p25.Valid || !p75.Valid {
		return CategoryAverage
	}
	switch {
	case revenue.Decimal.GreaterThanOrEqual(p75.Decimal):
		return CategoryTop
	case revenue.Decimal.LessThan(p25.Decimal):
		return CategoryUnder
	default:
		return CategoryAverage
	}
}
