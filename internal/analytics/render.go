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
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Output formats understood by Render.
const (
	FormatText = "text"
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// Formats lists the supported output formats.
var Formats = []string{FormatText, FormatCSV, FormatJSON}

// Render writes the table in the given format.
func Render(w io.Writer, t Table, format string) error {
	switch format {
	case FormatText, "":
		return RenderText(w, t)
	case FormatCSV:
		return RenderCSV(w, t)
	case FormatJSON:
		return RenderJSON(w, t)
	default:
		return fmt.Errorf("unsupported format %q (supported: %s)", format, strings.Join(Formats, ", "))
	}
}

// RenderText writes the table as aligned columns.
func RenderText(w io.Writer, t Table) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, strings.Join(t.Columns(), "\t")); err != nil {
		return err
	}
	for _, rec := range t.Records() {
		if _, err := fmt.Fprintln(tw, strings.Join(rec, "\t")); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// RenderCSV writes the table as CSV with a header row.
func RenderCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns()); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Records()); err != nil {
		return err
	}
	return cw.Error()
}

// RenderJSON writes the typed rows of the table as a JSON array.
func RenderJSON(w io.Writer, t Table) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(t)
}

// RenderInsights writes the insights report in a readable layout.
func RenderInsights(w io.Writer, insights []Insight) error {
	rule := strings.Repeat("=", 80)
	var b strings.Builder
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "PHARMACEUTICAL SALES ANALYTICS - INSIGHTS REPORT")
	fmt.Fprintln(&b, rule)
	if len(insights) == 0 {
		fmt.Fprintln(&b, "\nNo insights: the dataset has no sales.")
	}
	for i, in := range insights {
		fmt.Fprintf(&b, "\nINSIGHT #%d: %s\n", i+1, in.Category)
		fmt.Fprintf(&b, "   Finding: %s\n", in.Finding)
		fmt.Fprintf(&b, "   Recommendation: %s\n", in.Recommendation)
		fmt.Fprintf(&b, "   Expected Impact: %s\n", in.ExpectedImpact)
	}
	fmt.Fprintln(&b, "\n"+rule)
	_, err := io.WriteString(w, b.String())
	return err
}
