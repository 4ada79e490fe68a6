package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownTable_ToString(t *testing.T) {
	table := MarkdownTable{
		TableHeading: "Contoso CRM-assignments",
		Headers:      []string{"AppRoleName", "PrincipalName"},
		Rows: [][]string{
			{"CRM Reader", "Adele Vance"},
			{"Read|Write", "Sales\nMarketing"},
		},
	}

	expected := "# Contoso CRM-assignments\n\n" +
		"| AppRoleName | PrincipalName      |\n" +
		"| ----------- | ------------------ |\n" +
		"| CRM Reader  | Adele Vance        |\n" +
		"| Read\\|Write | Sales<br>Marketing |\n"
	assert.Equal(t, expected, table.ToString())
}

func TestMarkdownTable_RowsKeepColumnWidth(t *testing.T) {
	table := MarkdownTable{
		Headers: []string{"Name", "Tags"},
		Rows: [][]string{
			{"Contoso|HR", "a|b|c"},
			{"Zoë", "line one\r\nline two"},
			{"Contoso CRM", ""},
		},
	}

	lines := strings.Split(strings.TrimSuffix(table.ToString(), "\n"), "\n")
	require.Len(t, lines, 5)
	width := len([]rune(lines[0]))
	for _, line := range lines {
		assert.Equal(t, width, len([]rune(line)), line)
	}
}

func TestMarkdownTable_NoHeaders(t *testing.T) {
	assert.Equal(t, "# Empty\n\n", MarkdownTable{TableHeading: "Empty"}.ToString())
}

func TestReportTable(t *testing.T) {
	report := &Report{
		Name:    "service-principals",
		Columns: []string{"DisplayName", "AppId"},
		Rows:    []ExportRow{{"AppId": "app-crm", "DisplayName": "Contoso CRM"}},
	}

	table := report.Table()
	assert.Equal(t, [][]string{{"Contoso CRM", "app-crm"}}, table.Rows)
	assert.Equal(t, report.Columns, table.Headers)
}
