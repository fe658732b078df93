//-------------------------------------------------------------------------
//
// pgEdge Pharma Analytics
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package etl

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pgEdge/pgedge-pharma/internal/logging"
	"github.com/pgEdge/pgedge-pharma/internal/model"
	"github.com/pgEdge/pgedge-pharma/internal/schema"
)

// FileName returns the CSV file name used for table.
func FileName(table string) string {
	return table + ".csv"
}

// codec maps one entity type to and from the columns of its table.
type codec[T any] struct {
	table  string
	encode func(T) []string
	decode func(r *record) T
}

var (
	dateCodec = codec[model.DateDim]{
		table: schema.TableDate,
		encode: func(d model.DateDim) []string {
			return []string{itoa(d.Key), formatDate(d.Date), itoa(d.Day), itoa(d.Month),
				itoa(d.Quarter), itoa(d.Year), itoa(d.DayOfWeek), d.MonthName,
				strconv.FormatBool(d.IsWeekend)}
		},
		decode: func(r *record) model.DateDim {
			return model.DateDim{
				Key:       r.asInt("date_key"),
				Date:      r.asDate("date"),
				Day:       r.asInt("day"),
				Month:     r.asInt("month"),
				Quarter:   r.asInt("quarter"),
				Year:      r.asInt("year"),
				DayOfWeek: r.asInt("day_of_week"),
				MonthName: r.str("month_name"),
				IsWeekend: r.asBool("is_weekend"),
			}
		},
	}

	repCodec = codec[model.SalesRep]{
		table: schema.TableSalesRep,
		encode: func(s model.SalesRep) []string {
			return []string{itoa(s.Key), s.Name, s.Region, s.Team, formatDate(s.HireDate),
				itoa(s.ExperienceYears), s.PerformanceTier}
		},
		decode: func(r *record) model.SalesRep {
			return model.SalesRep{
				Key:             r.asInt("rep_key"),
				Name:            r.str("rep_name"),
				Region:          r.str("region"),
				Team:            r.str("team"),
				HireDate:        r.asDate("hire_date"),
				ExperienceYears: r.asInt("experience_years"),
				PerformanceTier: r.str("performance_tier"),
			}
		},
	}

	doctorCodec = codec[model.Doctor]{
		table: schema.TableDoctor,
		encode: func(d model.Doctor) []string {
			return []string{itoa(d.Key), d.Name, d.Specialty, d.Hospital, d.City,
				d.PrescriptionVolume}
		},
		decode: func(r *record) model.Doctor {
			return model.Doctor{
				Key:                r.asInt("doctor_key"),
				Name:               r.str("doctor_name"),
				Specialty:          r.str("specialty"),
				Hospital:           r.str("hospital"),
				City:               r.str("city"),
				PrescriptionVolume: r.str("prescription_volume"),
			}
		},
	}

	productCodec = codec[model.Product]{
		table: schema.TableProduct,
		encode: func(p model.Product) []string {
			return []string{itoa(p.Key), p.Name, p.Category, p.UnitPrice.StringFixed(2),
				formatDate(p.LaunchDate), p.PatentStatus}
		},
		decode: func(r *record) model.Product {
			return model.Product{
				Key:          r.asInt("product_key"),
				Name:         r.str("product_name"),
				Category:     r.str("category"),
				UnitPrice:    r.asDecimal("unit_price"),
				LaunchDate:   r.asDate("launch_date"),
				PatentStatus: r.str("patent_status"),
			}
		},
	}

	territoryCodec = codec[model.Territory]{
		table: schema.TableTerritory,
		encode: func(t model.Territory) []string {
			return []string{itoa(t.Key), t.Name, t.Region, t.State,
				strconv.FormatInt(t.Population, 10), t.MarketPotential}
		},
		decode: func(r *record) model.Territory {
			return model.Territory{
				Key:             r.asInt("territory_key"),
				Name:            r.str("territory_name"),
				Region:          r.str("region"),
				State:           r.str("state"),
				Population:      r.asInt64("population"),
				MarketPotential: r.str("market_potential"),
			}
		},
	}

	saleCodec = codec[model.Sale]{
		table: schema.TableSales,
		encode: func(s model.Sale) []string {
			return []string{strconv.FormatInt(s.ID, 10), itoa(s.DateKey), itoa(s.RepKey),
				itoa(s.DoctorKey), itoa(s.ProductKey), itoa(s.TerritoryKey),
				strconv.FormatInt(s.QuantitySold, 10), s.Revenue.StringFixed(2),
				s.DiscountPercent.StringFixed(2), s.MarketingSpend.StringFixed(2)}
		},
		decode: func(r *record) model.Sale {
			return model.Sale{
				ID:              r.asInt64("sale_id"),
				DateKey:         r.asInt("date_key"),
				RepKey:          r.asInt("rep_key"),
				DoctorKey:       r.asInt("doctor_key"),
				ProductKey:      r.asInt("product_key"),
				TerritoryKey:    r.asInt("territory_key"),
				QuantitySold:    r.asInt64("quantity_sold"),
				Revenue:         r.asDecimal("revenue"),
				DiscountPercent: r.asDecimal("discount_percent"),
				MarketingSpend:  r.asDecimal("marketing_spend"),
			}
		},
	}
)

func itoa(v int) string {
	return strconv.Itoa(v)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}

// WriteDataset writes one CSV file per table into dir, creating it if
// needed. Each file starts with a header row of column names.
func WriteDataset(dir string, ds *model.Dataset) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	errs := []error{
		writeTable(dir, dateCodec, ds.Dates),
		writeTable(dir, repCodec, ds.Reps),
		writeTable(dir, doctorCodec, ds.Doctors),
		writeTable(dir, productCodec, ds.Products),
		writeTable(dir, territoryCodec, ds.Territories),
		writeTable(dir, saleCodec, ds.Sales),
	}
	return errors.Join(errs...)
}

func writeTable[T any](dir string, c codec[T], items []T) (err error) {
	path := filepath.Join(dir, FileName(c.table))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	w := csv.NewWriter(f)
	if err := w.Write(schema.Columns[c.table]); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	for _, item := range items {
		if err := w.Write(c.encode(item)); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	logging.Debug().
		Str("file", path).
		Int("rows", len(items)).
		Msg("Wrote CSV")

	return nil
}

// ReadDataset reads the six table files from dir. Columns are matched by
// header name, so their order in the file does not matter, and nullable
// columns may be omitted entirely.
func ReadDataset(dir string) (*model.Dataset, error) {
	ds := &model.Dataset{}
	var err error
	if ds.Dates, err = readTable(dir, dateCodec); err != nil {
		return nil, err
	}
	if ds.Reps, err = readTable(dir, repCodec); err != nil {
		return nil, err
	}
	if ds.Doctors, err = readTable(dir, doctorCodec); err != nil {
		return nil, err
	}
	if ds.Products, err = readTable(dir, productCodec); err != nil {
		return nil, err
	}
	if ds.Territories, err = readTable(dir, territoryCodec); err != nil {
		return nil, err
	}
	if ds.Sales, err = readTable(dir, saleCodec); err != nil {
		return nil, err
	}
	return ds, nil
}

func readTable[T any](dir string, c codec[T]) ([]T, error) {
	path := filepath.Join(dir, FileName(c.table))
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	items, err := decodeTable(f, c)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	logging.Info().
		Str("file", path).
		Int("rows", len(items)).
		Msg("Extracted records")

	return items, nil
}

func decodeTable[T any](in io.Reader, c codec[T]) ([]T, error) {
	r := csv.NewReader(in)
	r.ReuseRecord = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, col := range schema.Columns[c.table] {
		if _, ok := index[col]; !ok && !schema.Nullable(col) {
			return nil, fmt.Errorf("missing column %s", col)
		}
	}

	var items []T
	for line := 2; ; line++ {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		rec := &record{line: line, index: index, fields: fields}
		item := c.decode(rec)
		if rec.err != nil {
			return nil, rec.err
		}
		items = append(items, item)
	}
	return items, nil
}

// record decodes the fields of one CSV line. The first conversion error
// is kept and later conversions are skipped.
type record struct {
	line   int
	index  map[string]int
	fields []string
	err    error
}

func (r *record) str(col string) string {
	i, ok := r.index[col]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

func (r *record) fail(col, value string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("line %d: column %s: invalid value %q: %w", r.line, col, value, err)
	}
}

// numeric returns the trimmed field, or "" when it is empty and the
// column is nullable. An empty required field is an error.
func (r *record) numeric(col string) string {
	v := r.str(col)
	if v == "" && !schema.Nullable(col) {
		r.fail(col, v, errors.New("value is required"))
	}
	return v
}

func (r *record) asInt(col string) int {
	return int(r.asInt64(col))
}

func (r *record) asInt64(col string) int64 {
	v := r.numeric(col)
	if v == "" || r.err != nil {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		// Spreadsheet tools write whole numbers as 12.0.
		if f, ferr := strconv.ParseFloat(v, 64); ferr == nil && f == float64(int64(f)) {
			return int64(f)
		}
		r.fail(col, v, err)
	}
	return n
}

func (r *record) asDecimal(col string) decimal.Decimal {
	v := r.numeric(col)
	if v == "" || r.err != nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		r.fail(col, v, err)
	}
	return d
}

func (r *record) asDate(col string) time.Time {
	v := r.numeric(col)
	if v == "" || r.err != nil {
		return time.Time{}
	}
	if len(v) > len(time.DateOnly) {
		v = v[:len(time.DateOnly)]
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		r.fail(col, v, err)
	}
	return t
}

func (r *record) asBool(col string) bool {
	v := r.numeric(col)
	if v == "" || r.err != nil {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(col, v, err)
	}
	return b
}
