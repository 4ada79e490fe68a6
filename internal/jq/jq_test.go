package jq

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praetorian-inc/approles/pkg/types"
)

func testReport() *types.Report {
	return &types.Report{
		Name:    "Contoso CRM-assignments",
		Columns: []string{"PrincipalName", "PrincipalType", "AppRoleName"},
		Rows: []types.ExportRow{
			{"PrincipalName": "Adele Vance", "PrincipalType": "User", "AppRoleName": "CRM Reader"},
			{"PrincipalName": "Sales and Marketing", "PrincipalType": "Group", "AppRoleName": "CRM.Admin"},
			{"PrincipalName": "", "PrincipalType": "Unknown", "AppRoleName": "Default Access"},
		},
		Summary: types.Summary{Rows: 3},
	}
}

func TestApply(t *testing.T) {
	testCases := []struct {
		name     string
		expr     string
		expected []string
	}{
		{"equality", `.PrincipalType == "User"`, []string{"Adele Vance"}},
		{"negation", `.PrincipalType != "Unknown"`, []string{"Adele Vance", "Sales and Marketing"}},
		{"string function", `.AppRoleName | startswith("CRM")`, []string{"Adele Vance", "Sales and Marketing"}},
		{"select", `select(.PrincipalType == "Group")`, []string{"Sales and Marketing"}},
		{"missing key is null", `.Nope`, []string{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			filter, err := Compile(tc.expr)
			require.NoError(t, err)

			report := testReport()
			dropped, err := filter.Apply(context.Background(), report)
			require.NoError(t, err)

			names := []string{}
			for _, row := range report.Rows {
				names = append(names, row["PrincipalName"])
			}
			assert.Equal(t, tc.expected, names)
			assert.Equal(t, 3-len(tc.expected), dropped)
			assert.Equal(t, len(tc.expected), report.Summary.Rows)
		})
	}
}

func TestCompileErrors(t *testing.T) {
	_, err := Compile("")
	assert.EqualError(t, err, "jq query is empty")

	_, err = Compile(".PrincipalType ==")
	assert.Error(t, err)
}

func TestMatchRuntimeError(t *testing.T) {
	filter, err := Compile(`.PrincipalName | tonumber > 1`)
	require.NoError(t, err)

	_, err = filter.Match(context.Background(), types.ExportRow{"PrincipalName": "Adele"})
	assert.Error(t, err)
}
