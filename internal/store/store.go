//-------------------------------------------------------------------------
//
// pgEdge Pharma Analytics
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package store reads and writes the star schema in PostgreSQL.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/lo"

	"github.com/pgEdge/pgedge-pharma/internal/logging"
	"github.com/pgEdge/pgedge-pharma/internal/model"
	"github.com/pgEdge/pgedge-pharma/internal/schema"
)

// DefaultBatchSize is the number of rows queued per batch by
// LoadIncremental when none is configured.
const DefaultBatchSize = 5000

// Store is a star schema living in one PostgreSQL schema.
type Store struct {
	pool       *pgxpool.Pool
	schemaName string
	batchSize  int
}

// New returns a store for the schema called schemaName.
func New(pool *pgxpool.Pool, schemaName string, batchSize int) *Store {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Store{pool: pool, schemaName: schemaName, batchSize: batchSize}
}

// Schema returns the name of the schema the store operates on.
func (s *Store) Schema() string {
	return s.schemaName
}

// table returns the qualified, quoted name of a star schema table.
func (s *Store) table(name string) string {
	return schema.Qualify(s.schemaName, name)
}

// LoadDataset reads every table in a single read-only REPEATABLE READ
// transaction so the dimensions and facts come from the same snapshot.
func (s *Store) LoadDataset(ctx context.Context) (*model.Dataset, error) {
	start := time.Now()

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ds := &model.Dataset{}
	if ds.Dates, err = queryRows(ctx, tx, s.selectSQL(schema.TableDate), scanDate); err != nil {
		return nil, err
	}
	if ds.Reps, err = queryRows(ctx, tx, s.selectSQL(schema.TableSalesRep), scanRep); err != nil {
		return nil, err
	}
	if ds.Doctors, err = queryRows(ctx, tx, s.selectSQL(schema.TableDoctor), scanDoctor); err != nil {
		return nil, err
	}
	if ds.Products, err = queryRows(ctx, tx, s.selectSQL(schema.TableProduct), scanProduct); err != nil {
		return nil, err
	}
	if ds.Territories, err = queryRows(ctx, tx, s.selectSQL(schema.TableTerritory), scanTerritory); err != nil {
		return nil, err
	}
	if ds.Sales, err = queryRows(ctx, tx, s.selectSQL(schema.TableSales), scanSale); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit read transaction: %w", err)
	}

	logging.Info().
		Str("schema", s.schemaName).
		Int("sales", len(ds.Sales)).
		Dur("elapsed", time.Since(start)).
		Msg("Loaded dataset")

	return ds, nil
}

// LoadSnapshot loads the dataset and joins it for reporting.
func (s *Store) LoadSnapshot(ctx context.Context) (*model.Snapshot, error) {
	ds, err := s.LoadDataset(ctx)
	if err != nil {
		return nil, err
	}
	return model.NewSnapshot(ds), nil
}

// selectSQL returns the full-table query for table, ordered by its key.
// Nullable text and integer columns are coalesced to their zero value.
func (s *Store) selectSQL(table string) string {
	cols := schema.Columns[table]
	exprs := make([]string, len(cols))
	for i, col := range cols {
		exprs[i] = col
		if def, ok := coalesced[col]; ok {
			exprs[i] = fmt.Sprintf("COALESCE(%s, %s)", col, def)
		}
	}
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(exprs, ", "), s.table(table), cols[0])
}

var coalesced = map[string]string{
	"experience_years":    "0",
	"performance_tier":    "''",
	"specialty":           "''",
	"hospital":            "''",
	"city":                "''",
	"prescription_volume": "''",
	"patent_status":       "''",
	"state":               "''",
}

func queryRows[T any](ctx context.Context, tx pgx.Tx, sql string, scan pgx.RowToFunc[T]) ([]T, error) {
	rows, err := tx.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	items, err := pgx.CollectRows(rows, scan)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return items, nil
}

func scanDate(row pgx.CollectableRow) (model.DateDim, error) {
	var d model.DateDim
	err := row.Scan(&d.Key, &d.Date, &d.Day, &d.Month, &d.Quarter, &d.Year,
		&d.DayOfWeek, &d.MonthName, &d.IsWeekend)
	return d, err
}

func scanRep(row pgx.CollectableRow) (model.SalesRep, error) {
	var r model.SalesRep
	var hired pgtype.Date
	err := row.Scan(&r.Key, &r.Name, &r.Region, &r.Team, &hired,
		&r.ExperienceYears, &r.PerformanceTier)
	r.HireDate = dateOrZero(hired)
	return r, err
}

func scanDoctor(row pgx.CollectableRow) (model.Doctor, error) {
	var d model.Doctor
	err := row.Scan(&d.Key, &d.Name, &d.Specialty, &d.Hospital, &d.City,
		&d.PrescriptionVolume)
	return d, err
}

func scanProduct(row pgx.CollectableRow) (model.Product, error) {
	var p model.Product
	var price pgtype.Numeric
	var launched pgtype.Date
	if err := row.Scan(&p.Key, &p.Name, &p.Category, &price, &launched,
		&p.PatentStatus); err != nil {
		return p, err
	}
	p.LaunchDate = dateOrZero(launched)
	var err error
	p.UnitPrice, err = fromNumeric(price, "unit_price")
	return p, err
}

func scanTerritory(row pgx.CollectableRow) (model.Territory, error) {
	var t model.Territory
	err := row.Scan(&t.Key, &t.Name, &t.Region, &t.State, &t.Population,
		&t.MarketPotential)
	return t, err
}

func scanSale(row pgx.CollectableRow) (model.Sale, error) {
	var s model.Sale
	var revenue, discount, marketing pgtype.Numeric
	if err := row.Scan(&s.ID, &s.DateKey, &s.RepKey, &s.DoctorKey, &s.ProductKey,
		&s.TerritoryKey, &s.QuantitySold, &revenue, &discount, &marketing); err != nil {
		return s, err
	}
	var errs [3]error
	s.Revenue, errs[0] = fromNumeric(revenue, "revenue")
	s.DiscountPercent, errs[1] = fromNumeric(discount, "discount_percent")
	s.MarketingSpend, errs[2] = fromNumeric(marketing, "marketing_spend")
	return s, errors.Join(errs[:]...)
}

func dateOrZero(d pgtype.Date) time.Time {
	if !d.Valid {
		return time.Time{}
	}
	return d.Time
}

// WriteDataset bulk loads ds with COPY inside one transaction. The tables
// are expected to be empty; existing keys make the load fail.
func (s *Store) WriteDataset(ctx context.Context, ds *model.Dataset) (map[string]int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	loaded := make(map[string]int64, len(schema.Tables))
	for _, rows := range datasetRows(ds) {
		n, err := s.copyRows(ctx, tx, rows)
		if err != nil {
			return nil, err
		}
		loaded[rows.table] = n
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit load: %w", err)
	}
	return loaded, nil
}

// LoadIncremental appends ds to the existing tables. Dimension rows whose
// key already exists are left untouched; only sales with an id above the
// current maximum are copied.
func (s *Store) LoadIncremental(ctx context.Context, ds *model.Dataset) (map[string]int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var maxID int64
	err = tx.QueryRow(ctx,
		fmt.Sprintf("SELECT COALESCE(MAX(sale_id), 0) FROM %s", s.table(schema.TableSales)),
	).Scan(&maxID)
	if err != nil {
		return nil, fmt.Errorf("failed to read max sale_id: %w", err)
	}

	incoming := *ds
	incoming.Sales = lo.Filter(ds.Sales, func(sale model.Sale, _ int) bool {
		return sale.ID > maxID
	})

	loaded := make(map[string]int64, len(schema.Tables))
	for _, rows := range datasetRows(&incoming) {
		var n int64
		if rows.table == schema.TableSales {
			n, err = s.copyRows(ctx, tx, rows)
		} else {
			n, err = s.insertMissing(ctx, tx, rows)
		}
		if err != nil {
			return nil, err
		}
		loaded[rows.table] = n
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit load: %w", err)
	}

	logging.Info().
		Int64("after_sale_id", maxID).
		Int64("sales", loaded[schema.TableSales]).
		Msg("Incremental load committed")

	return loaded, nil
}

// MaxSaleID returns the highest sale_id in the fact table, or 0 when the
// table is empty.
func (s *Store) MaxSaleID(ctx context.Context) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT COALESCE(MAX(sale_id), 0) FROM %s", s.table(schema.TableSales)),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to read max sale_id: %w", err)
	}
	return id, nil
}

// Truncate empties every star schema table.
func (s *Store) Truncate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema.TruncateSQL(s.schemaName)); err != nil {
		return fmt.Errorf("failed to truncate tables: %w", err)
	}
	return nil
}

// Counts returns the row count of every star schema table.
func (s *Store) Counts(ctx context.Context) (map[string]int64, error) {
	batch := &pgx.Batch{}
	for _, table := range schema.Tables {
		batch.Queue(fmt.Sprintf("SELECT count(*) FROM %s", s.table(table)))
	}

	results := s.pool.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()

	counts := make(map[string]int64, len(schema.Tables))
	for _, table := range schema.Tables {
		var n int64
		if err := results.QueryRow().Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}

// tableRows adapts one entity slice to the column order of its table.
type tableRows struct {
	table  string
	n      int
	values func(i int) []any
}

// datasetRows returns the tables of ds in load order.
func datasetRows(ds *model.Dataset) []tableRows {
	return []tableRows{
		{schema.TableDate, len(ds.Dates), func(i int) []any {
			d := ds.Dates[i]
			return []any{d.Key, d.Date, d.Day, d.Month, d.Quarter, d.Year,
				d.DayOfWeek, d.MonthName, d.IsWeekend}
		}},
		{schema.TableSalesRep, len(ds.Reps), func(i int) []any {
			r := ds.Reps[i]
			return []any{r.Key, r.Name, r.Region, r.Team, nullDate(r.HireDate),
				r.ExperienceYears, nullText(r.PerformanceTier)}
		}},
		{schema.TableDoctor, len(ds.Doctors), func(i int) []any {
			d := ds.Doctors[i]
			return []any{d.Key, d.Name, nullText(d.Specialty), nullText(d.Hospital),
				nullText(d.City), nullText(d.PrescriptionVolume)}
		}},
		{schema.TableProduct, len(ds.Products), func(i int) []any {
			p := ds.Products[i]
			return []any{p.Key, p.Name, p.Category, toNumeric(p.UnitPrice),
				nullDate(p.LaunchDate), nullText(p.PatentStatus)}
		}},
		{schema.TableTerritory, len(ds.Territories), func(i int) []any {
			t := ds.Territories[i]
			return []any{t.Key, t.Name, t.Region, nullText(t.State), t.Population,
				t.MarketPotential}
		}},
		{schema.TableSales, len(ds.Sales), func(i int) []any {
			s := ds.Sales[i]
			return []any{s.ID, s.DateKey, s.RepKey, s.DoctorKey, s.ProductKey,
				s.TerritoryKey, s.QuantitySold, toNumeric(s.Revenue),
				toNumeric(s.DiscountPercent), toNumeric(s.MarketingSpend)}
		}},
	}
}

func nullText(v string) pgtype.Text {
	return pgtype.Text{String: v, Valid: v != ""}
}

func nullDate(t time.Time) pgtype.Date {
	return pgtype.Date{Time: t, Valid: !t.IsZero()}
}

func (s *Store) copyRows(ctx context.Context, tx pgx.Tx, rows tableRows) (int64, error) {
	if rows.n == 0 {
		return 0, nil
	}
	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{s.schemaName, rows.table},
		schema.Columns[rows.table],
		pgx.CopyFromSlice(rows.n, func(i int) ([]any, error) {
			return rows.values(i), nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to copy %s: %w", rows.table, err)
	}

	logging.Debug().
		Str("table", rows.table).
		Int64("rows", n).
		Msg("Copied rows")

	return n, nil
}

// insertMissing inserts rows in batches, skipping keys that already exist.
func (s *Store) insertMissing(ctx context.Context, tx pgx.Tx, rows tableRows) (int64, error) {
	if rows.n == 0 {
		return 0, nil
	}
	sql := insertSQL(s.table(rows.table), schema.Columns[rows.table])

	var inserted int64
	for _, chunk := range lo.Chunk(lo.Range(rows.n), s.batchSize) {
		batch := &pgx.Batch{}
		for _, i := range chunk {
			batch.Queue(sql, rows.values(i)...)
		}

		results := tx.SendBatch(ctx, batch)
		for range chunk {
			tag, err := results.Exec()
			if err != nil {
				_ = results.Close()
				return 0, fmt.Errorf("failed to insert into %s: %w", rows.table, err)
			}
			inserted += tag.RowsAffected()
		}
		if err := results.Close(); err != nil {
			return 0, fmt.Errorf("failed to insert into %s: %w", rows.table, err)
		}
	}
	return inserted, nil
}

func insertSQL(table string, cols []string) string {
	params := make([]string, len(cols))
	for i := range cols {
		params[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT DO NOTHING",
		table, strings.Join(cols, ", "), strings.Join(params, ", "))
}
