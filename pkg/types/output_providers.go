package types

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

// OutputProvider persists a finished report and returns where it was written
type OutputProvider interface {
	Write(ctx context.Context, report *Report) (string, error)
}

// ReportKind tells sinks which entity a report's rows describe
type ReportKind string

const (
	ReportServicePrincipals ReportKind = "servicePrincipals"
	ReportApplications      ReportKind = "applications"
	ReportAssignments       ReportKind = "appRoleAssignments"
)

// ExportRow maps a column name to its cell value
type ExportRow map[string]string

// Summary aggregates per-row issues so they can be reported once
type Summary struct {
	Rows           int `json:"rows"`
	Principals     int `json:"principals"`
	Resolved       int `json:"resolved"`
	NotFound       int `json:"notFound"`
	LookupErrors   int `json:"lookupErrors"`
	UnmatchedRoles int `json:"unmatchedRoles"`
}

// Unresolved is the number of principals that ended up classified as Unknown
func (s Summary) Unresolved() int {
	return s.NotFound + s.LookupErrors
}

// Report is a uniformly shaped set of rows ready for a sink
type Report struct {
	Name    string
	Kind    ReportKind
	Columns []string
	Rows    []ExportRow
	Summary Summary
}

// Values returns the row cells in column order
func (r *Report) Values(row ExportRow) []string {
	values := make([]string, len(r.Columns))
	for i, col := range r.Columns {
		values[i] = row[col]
	}
	return values
}

// Table converts the report into a MarkdownTable
func (r *Report) Table() MarkdownTable {
	table := MarkdownTable{
		TableHeading: r.Name,
		Headers:      r.Columns,
		Rows:         make([][]string, 0, len(r.Rows)),
	}
	for _, row := range r.Rows {
		table.Rows = append(table.Rows, r.Values(row))
	}
	return table
}

type MarkdownTable struct {
	TableHeading string
	Headers      []string
	Rows         [][]string
}

// ToString converts the MarkdownTable to a markdown string
func (t MarkdownTable) ToString() string {
	var result strings.Builder

	if t.TableHeading != "" {
		result.WriteString("# " + t.TableHeading + "\n\n")
	}

	if len(t.Headers) == 0 {
		return result.String()
	}

	headers := make([]string, len(t.Headers))
	for i, header := range t.Headers {
		headers[i] = escapeMarkdownCell(header)
	}
	rows := make([][]string, len(t.Rows))
	for r, row := range t.Rows {
		rows[r] = make([]string, min(len(row), len(headers)))
		for i := range rows[r] {
			rows[r][i] = escapeMarkdownCell(row[i])
		}
	}

	// Dynamically determine column width
	colWidths := make([]int, len(headers))
	for i, header := range headers {
		colWidths[i] = utf8.RuneCountInString(header)
	}
	for _, row := range rows {
		for i, cell := range row {
			colWidths[i] = max(colWidths[i], utf8.RuneCountInString(cell))
		}
	}

	headerRow := "|"
	dividerRow := "|"
	for i, header := range headers {
		formatter := fmt.Sprintf(" %%-%ds |", colWidths[i])
		headerRow += fmt.Sprintf(formatter, header)
		dividerRow += fmt.Sprintf(" %s |", strings.Repeat("-", colWidths[i]))
	}
	result.WriteString(headerRow + "\n")
	result.WriteString(dividerRow + "\n")

	for _, row := range rows {
		rowText := "|"
		for i, cell := range row {
			formatter := fmt.Sprintf(" %%-%ds |", colWidths[i])
			rowText += fmt.Sprintf(formatter, cell)
		}
		result.WriteString(rowText + "\n")
	}

	return result.String()
}

var markdownCellEscaper = strings.NewReplacer("|", `\|`, "\r\n", "<br>", "\n", "<br>", "\r", "<br>")

// escapeMarkdownCell keeps a cell on one table line
func escapeMarkdownCell(cell string) string {
	return markdownCellEscaper.Replace(cell)
}
