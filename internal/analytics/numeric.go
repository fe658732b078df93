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

// Decimal places applied to derived ratios.
const (
	ratioPlaces = 2
	sharePlaces = 4
)

var hundred = decimal.NewFromInt(100)

// some wraps a defined value.
func some(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// none is the explicit "no value" marker.
func none() decimal.NullDecimal {
	return decimal.NullDecimal{}
}

// SafeDiv divides num by den. An undefined operand or a zero denominator
// yields no value instead of a fault.
func SafeDiv(num, den decimal.NullDecimal) decimal.NullDecimal {
	if !num.Valid || !den.Valid || den.Decimal.IsZero() {
		return none()
	}
	return some(num.Decimal.Div(den.Decimal))
}

// GrowthRate returns (cur - prev) / prev * 100 rounded to two places, or
// no value when prev is absent or zero.
func GrowthRate(cur, prev decimal.NullDecimal) decimal.NullDecimal {
	if !cur.Valid || !prev.Valid || prev.Decimal.IsZero() {
		return none()
	}
	return some(cur.Decimal.Sub(prev.Decimal).Div(prev.Decimal).Mul(hundred).Round(ratioPlaces))
}

func round(v decimal.NullDecimal, places int32) decimal.NullDecimal {
	if !v.Valid {
		return v
	}
	return some(v.Decimal.Round(places))
}

// compareNullDesc orders defined values descending with undefined values
// after every defined one. It returns a negative number when a sorts
// before b.
func compareNullDesc(a, b decimal.NullDecimal) int {
	switch {
	case !a.Valid && !b.Valid:
		return 0
	case !a.Valid:
		return 1
	case !b.Valid:
		return -1
	}
	return b.Decimal.Cmp(a.Decimal)
}

func equalNull(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Decimal.Equal(b.Decimal)
}
