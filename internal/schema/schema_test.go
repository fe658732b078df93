//-------------------------------------------------------------------------
//
// pgEdge Pharma Analytics
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package schema

import (
	"strings"
	"testing"
)

func TestCreateSQLQualifiesEveryTable(t *testing.T) {
	ddl := CreateSQL("pharma")

	if !strings.Contains(ddl, `CREATE SCHEMA IF NOT EXISTS "pharma"`) {
		t.Error("DDL should create the schema")
	}
	for _, table := range append(Tables, TableRunLog) {
		want := `CREATE TABLE IF NOT EXISTS "pharma".` + table + " ("
		if !strings.Contains(ddl, want) {
			t.Errorf("DDL missing %s", want)
		}
	}
	if strings.Contains(ddl, "%!") {
		t.Error("DDL contains a formatting error")
	}
}

func TestCreateSQLForeignKeys(t *testing.T) {
	ddl := CreateSQL("pharma")
	for _, ref := range []string{
		`REFERENCES "pharma".dim_date(date_key)`,
		`REFERENCES "pharma".dim_sales_rep(rep_key)`,
		`REFERENCES "pharma".dim_doctor(doctor_key)`,
		`REFERENCES "pharma".dim_product(product_key)`,
		`REFERENCES "pharma".dim_territory(territory_key)`,
	} {
		if !strings.Contains(ddl, ref) {
			t.Errorf("DDL missing foreign key %s", ref)
		}
	}
}

func TestColumnsMatchDDL(t *testing.T) {
	ddl := CreateSQL("pharma")
	for _, table := range Tables {
		cols, ok := Columns[table]
		if !ok {
			t.Fatalf("no column list for %s", table)
		}
		start := strings.Index(ddl, `"pharma".`+table+" (")
		body := ddl[start:]
		body = body[:strings.Index(body, ");")]
		for _, col := range cols {
			if !strings.Contains(body, "\n    "+col+" ") {
				t.Errorf("%s: column %s not in DDL", table, col)
			}
		}
	}
}

func TestNullableColumnsAreNullInDDL(t *testing.T) {
	ddl := CreateSQL("pharma")
	for _, table := range Tables {
		for _, col := range Columns[table] {
			if !Nullable(col) {
				continue
			}
			for _, line := range strings.Split(ddl, "\n") {
				if strings.HasPrefix(line, "    "+col+" ") && strings.Contains(line, "NOT NULL") {
					t.Errorf("%s is nullable but declared NOT NULL", col)
				}
			}
		}
	}
	if Nullable("sale_id") {
		t.Error("sale_id should not be nullable")
	}
}

func TestQuote(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"pharma", `"pharma"`},
		{`we"ird`, `"we""ird"`},
	}
	for _, tt := range tests {
		if got := Quote(tt.name); got != tt.want {
			t.Errorf("Quote(%q) = %s, want %s", tt.name, got, tt.want)
		}
	}
	if got := Qualify("pharma", TableSales); got != `"pharma"."fact_sales"` {
		t.Errorf("Qualify = %s", got)
	}
}

func TestDropSQL(t *testing.T) {
	if got := DropSQL("pharma"); got != `DROP SCHEMA IF EXISTS "pharma" CASCADE;` {
		t.Errorf("DropSQL = %s", got)
	}
}

func TestTruncateSQLFactFirst(t *testing.T) {
	got := TruncateSQL("pharma")
	if !strings.HasPrefix(got, `TRUNCATE "pharma"."fact_sales", `) {
		t.Errorf("fact table should be truncated first: %s", got)
	}
	if !strings.HasSuffix(got, `"pharma"."dim_date"`) {
		t.Errorf("date dimension should be last: %s", got)
	}
}
