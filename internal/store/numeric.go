//-------------------------------------------------------------------------
//
// pgEdge Pharma Analytics
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package store

import (
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// toNumeric converts a decimal into the pgx NUMERIC representation so it
// can be sent in binary format, including through COPY.
func toNumeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: new(big.Int).Set(d.Coefficient()), Exp: d.Exponent(), Valid: true}
}

// fromNumeric converts a scanned NUMERIC back into a decimal. NULL and
// NaN are rejected: every measure column is NOT NULL.
func fromNumeric(n pgtype.Numeric, column string) (decimal.Decimal, error) {
	switch {
	case !n.Valid:
		return decimal.Decimal{}, fmt.Errorf("%s is NULL", column)
	case n.NaN || n.InfinityModifier != pgtype.Finite:
		return decimal.Decimal{}, fmt.Errorf("%s is not a finite number", column)
	case n.Int == nil:
		return decimal.Zero, nil
	}
	return decimal.NewFromBigInt(n.Int, n.Exp), nil
}
