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
)

// Lag returns, for every row, the value of the row offset positions
// earlier within the same partition. Rows must already be in window order;
// the partitions need not be contiguous. Rows with fewer than offset
// predecessors get no value. Gaps in the ordering key are not filled.
func Lag[T any, P comparable](rows []T, partition func(T) P,
	value func(T) decimal.NullDecimal, offset int) []decimal.NullDecimal {
	out := make([]decimal.NullDecimal, len(rows))
	seen := make(map[P][]int)

	for i, r := range rows {
		p := partition(r)
		prior := seen[p]
		if offset > 0 && len(prior) >= offset {
			out[i] = value(rows[prior[len(prior)-offset]])
		}
		seen[p] = append(prior, i)
	}
	return out
}
