// Package logging builds humprep's structured logger and the plain-text run
// reports written at the end of a batch.
// This file holds the aligned count tables shared by the report and the console summary.

package logging

import (
	"fmt"
	"math"
	"strings"
)

// MissingValue is the placeholder for empty cells and unavailable values
const MissingValue = "-"

// MetricRow is one labelled line of a table.
// Values are pre-formatted so counts, durations and percentages can share a column.
type MetricRow struct {
	Label          string   // e.g. "Pairs retained"
	Values         []string // one per header; "" renders as MissingValue
	Unit           string   // e.g. "files", "" for unitless
	Interpretation string   // optional note, shown only when some row has one
}

// MetricTable is a set of rows under shared value headers, e.g. ("Count", "Share")
type MetricTable struct {
	Headers []string
	Rows    []MetricRow
}

// NewMetricTable creates an empty table with the given column headers
func NewMetricTable(headers ...string) *MetricTable {
	return &MetricTable{Headers: headers}
}

// AddRow appends a row of pre-formatted values
func (t *MetricTable) AddRow(label string, values []string, unit string, interpretation string) {
	t.Rows = append(t.Rows, MetricRow{
		Label:          label,
		Values:         values,
		Unit:           unit,
		Interpretation: interpretation,
	})
}

// AddCountRow appends count and its share of total, for tables headed ("Count", "Share")
func (t *MetricTable) AddCountRow(label string, count, total int, unit string, interpretation string) {
	t.AddRow(label, []string{fmt.Sprint(count), formatPercent(count, total)}, unit, interpretation)
}

// layout is the measured width of every column
type layout struct {
	label  int
	values []int
	unit   int
	interp bool
}

func (t *MetricTable) measure() layout {
	l := layout{values: make([]int, len(t.Headers))}
	for i, h := range t.Headers {
		l.values[i] = len(h)
	}
	for _, row := range t.Rows {
		l.label = max(l.label, len(row.Label))
		l.unit = max(l.unit, len(row.Unit))
		l.interp = l.interp || row.Interpretation != ""
		for i, v := range row.Values {
			if i < len(l.values) {
				l.values[i] = max(l.values[i], len(v))
			}
		}
	}
	return l
}

// String renders the table: labels left-aligned, values right-aligned in their
// columns, then units and interpretations. An empty table renders as "".
func (t *MetricTable) String() string {
	if len(t.Rows) == 0 {
		return ""
	}

	l := t.measure()
	var sb strings.Builder

	interp := ""
	if l.interp {
		interp = "Interpretation"
	}
	l.writeLine(&sb, "", t.Headers, "", interp, false)

	for _, row := range t.Rows {
		l.writeLine(&sb, row.Label, row.Values, row.Unit, row.Interpretation, true)
	}
	return sb.String()
}

// writeLine pads one line to the layout. fill replaces empty values with MissingValue.
func (l layout) writeLine(sb *strings.Builder, label string, values []string, unit, interp string, fill bool) {
	fmt.Fprintf(sb, "%-*s  ", l.label, label)
	for i, w := range l.values {
		v := ""
		if i < len(values) {
			v = values[i]
		}
		if v == "" && fill {
			v = MissingValue
		}
		fmt.Fprintf(sb, "%*s  ", w, v)
	}
	if l.unit > 0 {
		fmt.Fprintf(sb, "%-*s ", l.unit, unit)
	}
	if l.interp {
		sb.WriteString(interp)
	}
	sb.WriteString("\n")
}

// formatMetric formats value to decimals places. Magnitudes below 0.0001 use
// scientific notation; NaN and Inf render as MissingValue.
func formatMetric(value float64, decimals int) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return MissingValue
	}
	if value != 0 && math.Abs(value) < 0.0001 {
		return fmt.Sprintf("%.2e", value)
	}
	return fmt.Sprintf("%.*f", decimals, value)
}

// formatMetricWithUnit appends unit unless the value is missing
func formatMetricWithUnit(value float64, decimals int, unit string) string {
	formatted := formatMetric(value, decimals)
	if formatted == MissingValue || unit == "" {
		return formatted
	}
	return formatted + " " + unit
}

// formatPercent renders part/total as a percentage, or MissingValue when total is zero
func formatPercent(part, total int) string {
	if total == 0 {
		return MissingValue
	}
	return formatMetric(100*float64(part)/float64(total), 1) + "%"
}
