//-------------------------------------------------------------------------
//
// pgEdge Pharma Analytics
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package model defines the pharmaceutical sales star schema: five
// dimensions and the sales fact that references them.
package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrIntegrity is returned by strict validation when a row breaks a
// declared invariant of the model.
var ErrIntegrity = errors.New("integrity violation")

// Market potential values for territories.
const (
	PotentialHigh   = "High"
	PotentialMedium = "Medium"
	PotentialLow    = "Low"
)

var monthNames = [...]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// DateDim is one calendar date with its derived attributes.
type DateDim struct {
	Key       int       `json:"date_key"`
	Date      time.Time `json:"date"`
	Day       int       `json:"day"`
	Month     int       `json:"month"`
	Quarter   int       `json:"quarter"`
	Year      int       `json:"year"`
	DayOfWeek int       `json:"day_of_week"` // 0=Monday .. 6=Sunday
	MonthName string    `json:"month_name"`
	IsWeekend bool      `json:"is_weekend"`
}

// NewDateDim builds a date dimension row with every derived field
// computed from date.
func NewDateDim(key int, date time.Time) DateDim {
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	dow := (int(d.Weekday()) + 6) % 7
	return DateDim{
		Key:       key,
		Date:      d,
		Day:       d.Day(),
		Month:     int(d.Month()),
		Quarter:   (int(d.Month())-1)/3 + 1,
		Year:      d.Year(),
		DayOfWeek: dow,
		MonthName: monthNames[d.Month()-1],
		IsWeekend: dow >= 5,
	}
}

// Validate checks that the derived fields agree with Date.
func (d DateDim) Validate() error {
	want := NewDateDim(d.Key, d.Date)
	if d.Day != want.Day || d.Month != want.Month || d.Quarter != want.Quarter ||
		d.Year != want.Year || d.DayOfWeek != want.DayOfWeek ||
		d.MonthName != want.MonthName || d.IsWeekend != want.IsWeekend {
		return fmt.Errorf("%w: date_key %d has derived fields inconsistent with %s",
			ErrIntegrity, d.Key, d.Date.Format(time.DateOnly))
	}
	return nil
}

// QuarterKey identifies a calendar quarter.
type QuarterKey struct {
	Year    int `json:"year"`
	Quarter int `json:"quarter"`
}

// Before orders quarter keys chronologically.
func (q QuarterKey) Before(o QuarterKey) bool {
	if q.Year != o.Year {
		return q.Year < o.Year
	}
	return q.Quarter < o.Quarter
}

// String formats the key as 2024-Q1.
func (q QuarterKey) String() string {
	return fmt.Sprintf("%d-Q%d", q.Year, q.Quarter)
}

// QuarterKey returns the quarter the date falls in.
func (d DateDim) QuarterKey() QuarterKey {
	return QuarterKey{Year: d.Year, Quarter: d.Quarter}
}

// SalesRep is a field sales representative.
type SalesRep struct {
	Key             int       `json:"rep_key"`
	Name            string    `json:"rep_name"`
	Region          string    `json:"region"`
	Team            string    `json:"team"`
	HireDate        time.Time `json:"hire_date"`
	ExperienceYears int       `json:"experience_years"`
	PerformanceTier string    `json:"performance_tier"`
}

// Doctor is a prescribing physician.
type Doctor struct {
	Key                int    `json:"doctor_key"`
	Name               string `json:"doctor_name"`
	Specialty          string `json:"specialty"`
	Hospital           string `json:"hospital"`
	City               string `json:"city"`
	PrescriptionVolume string `json:"prescription_volume"`
}

// Product is a marketed drug.
type Product struct {
	Key          int             `json:"product_key"`
	Name         string          `json:"product_name"`
	Category     string          `json:"category"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	LaunchDate   time.Time       `json:"launch_date"`
	PatentStatus string          `json:"patent_status"`
}

// Validate checks the product invariants.
func (p Product) Validate() error {
	if !p.UnitPrice.IsPositive() {
		return fmt.Errorf("%w: product %d unit_price must be positive", ErrIntegrity, p.Key)
	}
	return nil
}

// Territory is a sales territory.
type Territory struct {
	Key             int    `json:"territory_key"`
	Name            string `json:"territory_name"`
	Region          string `json:"region"`
	State           string `json:"state"`
	Population      int64  `json:"population"`
	MarketPotential string `json:"market_potential"`
}

// Validate checks the territory invariants.
func (t Territory) Validate() error {
	if t.Population < 0 {
		return fmt.Errorf("%w: territory %d population is negative", ErrIntegrity, t.Key)
	}
	switch t.MarketPotential {
	case PotentialHigh, PotentialMedium, PotentialLow:
	default:
		return fmt.Errorf("%w: territory %d market_potential %q",
			ErrIntegrity, t.Key, t.MarketPotential)
	}
	return nil
}

// Sale is one sales transaction, the fact row of the schema.
type Sale struct {
	ID              int64           `json:"sale_id"`
	DateKey         int             `json:"date_key"`
	RepKey          int             `json:"rep_key"`
	DoctorKey       int             `json:"doctor_key"`
	ProductKey      int             `json:"product_key"`
	TerritoryKey    int             `json:"territory_key"`
	QuantitySold    int64           `json:"quantity_sold"`
	Revenue         decimal.Decimal `json:"revenue"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	MarketingSpend  decimal.Decimal `json:"marketing_spend"`
}

var hundred = decimal.NewFromInt(100)

// Validate checks the measure ranges of the sale.
func (s Sale) Validate() error {
	switch {
	case s.QuantitySold < 0:
		return fmt.Errorf("%w: sale %d quantity_sold is negative", ErrIntegrity, s.ID)
	case s.Revenue.IsNegative():
		return fmt.Errorf("%w: sale %d revenue is negative", ErrIntegrity, s.ID)
	case s.DiscountPercent.IsNegative() || s.DiscountPercent.GreaterThan(hundred):
		return fmt.Errorf("%w: sale %d discount_percent out of range", ErrIntegrity, s.ID)
	case s.MarketingSpend.IsNegative():
		return fmt.Errorf("%w: sale %d marketing_spend is negative", ErrIntegrity, s.ID)
	}
	return nil
}
