//-------------------------------------------------------------------------
//
// pgEdge Pharma Analytics
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package schema creates and drops the pharmaceutical sales star schema.
package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Table names, in load order: dimensions before the fact table.
const (
	TableDate      = "dim_date"
	TableSalesRep  = "dim_sales_rep"
	TableDoctor    = "dim_doctor"
	TableProduct   = "dim_product"
	TableTerritory = "dim_territory"
	TableSales     = "fact_sales"
	TableRunLog    = "etl_run_log"
)

// Tables lists the star schema tables in load order.
var Tables = []string{TableDate, TableSalesRep, TableDoctor, TableProduct, TableTerritory, TableSales}

// Columns lists the columns of each star schema table in DDL order. The
// CSV exports use the same names as their header row.
var Columns = map[string][]string{
	TableDate: {
		"date_key", "date", "day", "month", "quarter", "year",
		"day_of_week", "month_name", "is_weekend",
	},
	TableSalesRep: {
		"rep_key", "rep_name", "region", "team", "hire_date",
		"experience_years", "performance_tier",
	},
	TableDoctor: {
		"doctor_key", "doctor_name", "specialty", "hospital", "city",
		"prescription_volume",
	},
	TableProduct: {
		"product_key", "product_name", "category", "unit_price", "launch_date",
		"patent_status",
	},
	TableTerritory: {
		"territory_key", "territory_name", "region", "state", "population",
		"market_potential",
	},
	TableSales: {
		"sale_id", "date_key", "rep_key", "doctor_key", "product_key",
		"territory_key", "quantity_sold", "revenue", "discount_percent",
		"marketing_spend",
	},
}

var nullable = map[string]bool{
	"hire_date":           true,
	"experience_years":    true,
	"performance_tier":    true,
	"specialty":           true,
	"hospital":            true,
	"city":                true,
	"prescription_volume": true,
	"launch_date":         true,
	"patent_status":       true,
	"state":               true,
}

// Nullable reports whether column may hold NULL.
func Nullable(column string) bool {
	return nullable[column]
}

// Execer is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Schema SQL for the star schema. %[1]s is the quoted schema name.
const createSchemaSQL = `
CREATE SCHEMA IF NOT EXISTS %[1]s;

-- Date Dimension
CREATE TABLE IF NOT EXISTS %[1]s.dim_date (
    date_key    INTEGER PRIMARY KEY,
    date        DATE NOT NULL UNIQUE,
    day         SMALLINT NOT NULL CHECK (day BETWEEN 1 AND 31),
    month       SMALLINT NOT NULL CHECK (month BETWEEN 1 AND 12),
    quarter     SMALLINT NOT NULL CHECK (quarter BETWEEN 1 AND 4),
    year        SMALLINT NOT NULL,
    day_of_week SMALLINT NOT NULL CHECK (day_of_week BETWEEN 0 AND 6),
    month_name  VARCHAR(9) NOT NULL,
    is_weekend  BOOLEAN NOT NULL
);

-- Sales Rep Dimension
CREATE TABLE IF NOT EXISTS %[1]s.dim_sales_rep (
    rep_key          INTEGER PRIMARY KEY,
    rep_name         VARCHAR(100) NOT NULL,
    region           VARCHAR(50) NOT NULL,
    team             VARCHAR(50) NOT NULL,
    hire_date        DATE,
    experience_years INTEGER,
    performance_tier VARCHAR(20)
);

-- Doctor Dimension
CREATE TABLE IF NOT EXISTS %[1]s.dim_doctor (
    doctor_key          INTEGER PRIMARY KEY,
    doctor_name         VARCHAR(100) NOT NULL,
    specialty           VARCHAR(50),
    hospital            VARCHAR(100),
    city                VARCHAR(100),
    prescription_volume VARCHAR(20)
);

-- Product Dimension
CREATE TABLE IF NOT EXISTS %[1]s.dim_product (
    product_key   INTEGER PRIMARY KEY,
    product_name  VARCHAR(100) NOT NULL,
    category      VARCHAR(50) NOT NULL,
    unit_price    NUMERIC(10,2) NOT NULL CHECK (unit_price > 0),
    launch_date   DATE,
    patent_status VARCHAR(20)
);

-- Territory Dimension
CREATE TABLE IF NOT EXISTS %[1]s.dim_territory (
    territory_key    INTEGER PRIMARY KEY,
    territory_name   VARCHAR(100) NOT NULL,
    region           VARCHAR(50) NOT NULL,
    state            CHAR(2),
    population       BIGINT NOT NULL CHECK (population >= 0),
    market_potential VARCHAR(10) NOT NULL CHECK (market_potential IN ('High', 'Medium', 'Low'))
);

-- Sales Fact
CREATE TABLE IF NOT EXISTS %[1]s.fact_sales (
    sale_id          BIGINT PRIMARY KEY,
    date_key         INTEGER NOT NULL REFERENCES %[1]s.dim_date(date_key),
    rep_key          INTEGER NOT NULL REFERENCES %[1]s.dim_sales_rep(rep_key),
    doctor_key       INTEGER NOT NULL REFERENCES %[1]s.dim_doctor(doctor_key),
    product_key      INTEGER NOT NULL REFERENCES %[1]s.dim_product(product_key),
    territory_key    INTEGER NOT NULL REFERENCES %[1]s.dim_territory(territory_key),
    quantity_sold    INTEGER NOT NULL CHECK (quantity_sold >= 0),
    revenue          NUMERIC(14,2) NOT NULL CHECK (revenue >= 0),
    discount_percent NUMERIC(5,2) NOT NULL CHECK (discount_percent BETWEEN 0 AND 100),
    marketing_spend  NUMERIC(12,2) NOT NULL CHECK (marketing_spend >= 0)
);

-- ETL Run Log
CREATE TABLE IF NOT EXISTS %[1]s.etl_run_log (
    run_id        UUID PRIMARY KEY,
    started_at    TIMESTAMPTZ NOT NULL,
    finished_at   TIMESTAMPTZ,
    status        VARCHAR(20) NOT NULL,
    source        TEXT NOT NULL,
    rows_loaded   JSONB NOT NULL DEFAULT '{}',
    error_message TEXT
);

-- Indexes on the fact foreign keys for the report joins
CREATE INDEX IF NOT EXISTS idx_fact_sales_date ON %[1]s.fact_sales(date_key);
CREATE INDEX IF NOT EXISTS idx_fact_sales_rep ON %[1]s.fact_sales(rep_key);
CREATE INDEX IF NOT EXISTS idx_fact_sales_doctor ON %[1]s.fact_sales(doctor_key);
CREATE INDEX IF NOT EXISTS idx_fact_sales_product ON %[1]s.fact_sales(product_key);
CREATE INDEX IF NOT EXISTS idx_fact_sales_territory ON %[1]s.fact_sales(territory_key);
CREATE INDEX IF NOT EXISTS idx_dim_date_year_quarter ON %[1]s.dim_date(year, quarter);
`

// Drop schema SQL
const dropSchemaSQL = `DROP SCHEMA IF EXISTS %[1]s CASCADE;`

// Quote returns the schema name quoted as an SQL identifier.
func Quote(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// Qualify returns table qualified with the quoted schema name.
func Qualify(name, table string) string {
	return pgx.Identifier{name, table}.Sanitize()
}

// CreateSQL returns the DDL that creates the schema called name.
func CreateSQL(name string) string {
	return fmt.Sprintf(createSchemaSQL, Quote(name))
}

// DropSQL returns the DDL that drops the schema called name.
func DropSQL(name string) string {
	return fmt.Sprintf(dropSchemaSQL, Quote(name))
}

// CreateSchema creates the star schema. It is safe to run repeatedly.
func CreateSchema(ctx context.Context, db Execer, name string) error {
	if _, err := db.Exec(ctx, CreateSQL(name)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", name, err)
	}
	return nil
}

// DropSchema drops the schema and everything in it.
func DropSchema(ctx context.Context, db Execer, name string) error {
	if _, err := db.Exec(ctx, DropSQL(name)); err != nil {
		return fmt.Errorf("failed to drop schema %s: %w", name, err)
	}
	return nil
}

// TruncateSQL empties every star schema table, fact table first.
func TruncateSQL(name string) string {
	qualified := make([]string, 0, len(Tables))
	for i := len(Tables) - 1; i >= 0; i-- {
		qualified = append(qualified, Qualify(name, Tables[i]))
	}
	return "TRUNCATE " + strings.Join(qualified, ", ")
}
