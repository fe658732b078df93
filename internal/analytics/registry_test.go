//-------------------------------------------------------------------------
//
// pgEdge Pharma Analytics
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package analytics_test

import (
	"bytes"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pgEdge/pgedge-pharma/internal/analytics"
	"github.com/pgEdge/pgedge-pharma/internal/model"
)

func TestGet(t *testing.T) {
	knownReports := []string{
		"rep_performance",
		"territory_analysis",
		"doctor_insights",
		"product_performance",
		"quarterly_trends",
		"demand_features",
	}

	for _, name := range knownReports {
		t.Run(name, func(t *testing.T) {
			r, err := analytics.Get(name)
			if err != nil {
				t.Fatalf("Failed to get report '%s': %v", name, err)
			}
			if r.Name() != name {
				t.Errorf("Report name mismatch: expected '%s', got '%s'", name, r.Name())
			}
			if r.Description() == "" {
				t.Error("Report description should not be empty")
			}
		})
	}
}

func TestGetUnknownReport(t *testing.T) {
	_, err := analytics.Get("nonexistent")
	if !errors.Is(err, analytics.ErrUnknownReport) {
		t.Errorf("Expected ErrUnknownReport, got %v", err)
	}
}

func TestListSorted(t *testing.T) {
	names := analytics.List()
	if len(names) != 6 {
		t.Fatalf("Expected 6 reports, got %d: %v", len(names), names)
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Errorf("List not sorted: %v", names)
		}
	}
}

func zeroSaleDoctorSnapshot() *model.Snapshot {
	ds := &model.Dataset{
		Dates: []model.DateDim{model.NewDateDim(1, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))},
		Reps:  []model.SalesRep{{Key: 1, Name: "Alice", Region: "North"}},
		Doctors: []model.Doctor{
			{Key: 1, Name: "Dr. Busy", Specialty: "Oncology"},
			{Key: 2, Name: "Dr. Idle, MD", Specialty: "Oncology"},
		},
		Products:    []model.Product{{Key: 1, Name: "Oncoryx", Category: "Oncology", UnitPrice: decimal.NewFromInt(5)}},
		Territories: []model.Territory{{Key: 1, Name: "Metro", Region: "North", MarketPotential: model.PotentialHigh}},
		Sales: []model.Sale{{
			ID: 1, DateKey: 1, RepKey: 1, DoctorKey: 1, ProductKey: 1, TerritoryKey: 1,
			QuantitySold: 2, Revenue: decimal.NewFromInt(10), MarketingSpend: decimal.NewFromInt(1),
		}},
	}
	return model.NewSnapshot(ds)
}

func TestRenderCSV(t *testing.T) {
	table, err := analytics.Compute(zeroSaleDoctorSnapshot(), "doctor_insights",
		analytics.Options{AsOf: time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC)})
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	var buf bytes.Buffer
	if err := analytics.Render(&buf, table, analytics.FormatCSV); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("Output is not valid CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected header and 2 rows, got %d", len(records))
	}
	if records[0][0] != "doctor_key" {
		t.Errorf("Unexpected header: %v", records[0])
	}

	busy, idle := records[1], records[2]
	if busy[12] != "10" {
		t.Errorf("Expected 10 days since last prescription, got %q", busy[12])
	}
	if idle[1] != "Dr. Idle, MD" {
		t.Errorf("Quoted name not preserved: %q", idle[1])
	}
	if idle[6] != "0" || idle[9] != "" || idle[12] != "" {
		t.Errorf("Idle doctor should have zero count and empty values, got %v", idle)
	}
}

func TestRenderJSON(t *testing.T) {
	table, err := analytics.Compute(zeroSaleDoctorSnapshot(), "doctor_insights", analytics.Options{})
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	var buf bytes.Buffer
	if err := analytics.Render(&buf, table, analytics.FormatJSON); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(buf.String(), `"total_prescription_value": null`) {
		t.Errorf("Expected null for undefined value, got %s", buf.String())
	}
}

func TestRenderText(t *testing.T) {
	table, err := analytics.Compute(zeroSaleDoctorSnapshot(), "rep_performance", analytics.Options{})
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	var buf bytes.Buffer
	if err := analytics.Render(&buf, table, ""); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "rep_key") {
		t.Errorf("Unexpected text output:\n%s", buf.String())
	}
}

func TestRenderUnsupportedFormat(t *testing.T) {
	table, _ := analytics.Compute(zeroSaleDoctorSnapshot(), "rep_performance", analytics.Options{})
	if err := analytics.Render(&bytes.Buffer{}, table, "xml"); err == nil {
		t.Error("Expected error for unsupported format")
	}
}

func TestRenderInsights(t *testing.T) {
	var buf bytes.Buffer
	err := analytics.RenderInsights(&buf, []analytics.Insight{{
		Category: "Marketing ROI", Finding: "North has highest ROI, North has lowest",
	}})
	if err != nil {
		t.Fatalf("RenderInsights failed: %v", err)
	}
	if !strings.Contains(buf.String(), "INSIGHT #1: Marketing ROI") {
		t.Errorf("Missing insight heading:\n%s", buf.String())
	}
}
