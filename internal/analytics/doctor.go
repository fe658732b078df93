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
	"time"

	"github.com/shopspring/decimal"

	"github.com/pgEdge/pgedge-pharma/internal/model"
)

// DoctorInsight is one row of the doctor insights report.
type DoctorInsight struct {
	DoctorKey                 int                 `json:"doctor_key"`
	DoctorName                string              `json:"doctor_name"`
	Specialty                 string              `json:"specialty"`
	Hospital                  string              `json:"hospital"`
	City                      string              `json:"city"`
	PrescriptionVolume        string              `json:"prescription_volume"`
	PrescriptionCount         int                 `json:"prescription_count"`
	UniqueProductsPrescribed  int                 `json:"unique_products_prescribed"`
	UniqueRepsEngaged         int                 `json:"unique_reps_engaged"`
	TotalPrescriptionValue    decimal.NullDecimal `json:"total_prescription_value"`
	AvgPrescriptionValue      decimal.NullDecimal `json:"avg_prescription_value"`
	LastPrescriptionDate      *time.Time          `json:"last_prescription_date"`
	DaysSinceLastPrescription *int                `json:"days_since_last_prescription"`
}

// DoctorInsightsTable is the doctor insights result set.
type DoctorInsightsTable []DoctorInsight

// BuildDoctorInsights lists every doctor, including those without any
// sale, with prescription counts, value and recency as of asOf.
func BuildDoctorInsights(snap *model.Snapshot, asOf time.Time) DoctorInsightsTable {
	g := NewGrouper[int]()
	doctors := snap.Dataset.Doctors
	for _, d := range doctors {
		g.Seed(d.Key)
	}
	for _, r := range snap.Rows {
		g.Add(r.Doctor.Key, r)
	}

	out := make(DoctorInsightsTable, 0, len(doctors))
	seen := make(map[int]struct{}, len(doctors))
	for _, d := range doctors {
		if _, dup := seen[d.Key]; dup {
			continue
		}
		seen[d.Key] = struct{}{}

		s := g.Seed(d.Key)
		row := DoctorInsight{
			DoctorKey:                d.Key,
			DoctorName:               d.Name,
			Specialty:                d.Specialty,
			Hospital:                 d.Hospital,
			City:                     d.City,
			PrescriptionVolume:       d.PrescriptionVolume,
			PrescriptionCount:        s.Sales,
			UniqueProductsPrescribed: s.DistinctProducts(),
			UniqueRepsEngaged:        s.DistinctReps(),
			TotalPrescriptionValue:   s.Revenue(),
			AvgPrescriptionValue:     s.AvgRevenue(),
			LastPrescriptionDate:     s.LastSaleDate(),
		}
		if row.LastPrescriptionDate != nil {
			days := daysBetween(*row.LastPrescriptionDate, asOf)
			row.DaysSinceLastPrescription = &days
		}
		out = append(out, row)
	}

	slices.SortStableFunc(out, func(a, b DoctorInsight) int {
		if c := compareNullDesc(a.TotalPrescriptionValue, b.TotalPrescriptionValue); c != 0 {
			return c
		}
		return a.DoctorKey - b.DoctorKey
	})
	return out
}

// daysBetween counts calendar days from from to to.
func daysBetween(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / 24)
}

// Columns returns the column names in output order.
func (t DoctorInsightsTable) Columns() []string {
	return []string{
		"doctor_key", "doctor_name", "specialty", "hospital", "city",
		"prescription_volume", "prescription_count", "unique_products_prescribed",
		"unique_reps_engaged", "total_prescription_value", "avg_prescription_value",
		"last_prescription_date", "days_since_last_prescription",
	}
}

// Records returns every row formatted as strings.
func (t DoctorInsightsTable) Records() [][]string {
	records := make([][]string, 0, len(t))
	for _, r := range t {
		records = append(records, []string{
			fmtInt(r.DoctorKey), r.DoctorName, r.Specialty, r.Hospital, r.City,
			r.PrescriptionVolume, fmtInt(r.PrescriptionCount), fmtInt(r.UniqueProductsPrescribed),
			fmtInt(r.UniqueRepsEngaged), fmtNull(r.TotalPrescriptionValue), fmtNull(r.AvgPrescriptionValue),
			fmtDate(r.LastPrescriptionDate), fmtIntPtr(r.DaysSinceLastPrescription),
		})
	}
	return records
}

// Len returns the number of rows.
func (t DoctorInsightsTable) Len() int { return len(t) }

type doctorReport struct{}

func (doctorReport) Name() string { return "doctor_insights" }

func (doctorReport) Description() string {
	return "Every doctor with prescription count, value and days since last prescription"
}

func (doctorReport) Build(snap *model.Snapshot, opts Options) Table {
	return BuildDoctorInsights(snap, opts.asOf())
}

func init() {
	Register(doctorReport{})
}
