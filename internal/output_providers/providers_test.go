package outputproviders

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praetorian-inc/approles/pkg/types"
)

var fixedNow = func() time.Time { return time.Date(2024, 3, 1, 9, 30, 5, 0, time.UTC) }

func testReport() *types.Report {
	return &types.Report{
		Name:    "Contoso CRM-assignments",
		Columns: []string{"AppName", "PrincipalName", "PrincipalType", "PrincipalEmail"},
		Rows: []types.ExportRow{
			{"AppName": "Contoso CRM", "PrincipalName": "Vance, Adele", "PrincipalType": "User", "PrincipalEmail": "adele.vance@contoso.com"},
			{"AppName": "Contoso CRM", "PrincipalName": "", "PrincipalType": "Unknown", "PrincipalEmail": ""},
		},
	}
}

func TestDefaultFileName(t *testing.T) {
	assert.Equal(t, "Contoso-CRM-assignments-20240301-093005.csv", DefaultFileName("Contoso CRM-assignments", "csv", fixedNow()))
	assert.Equal(t, "report-20240301-093005.json", DefaultFileName("../", "json", fixedNow()))
}

func TestCSVFileProvider(t *testing.T) {
	dir := t.TempDir()
	fp := NewCSVFileProvider(filepath.Join(dir, "nested"))
	fp.Now = fixedNow

	path, err := fp.Write(context.Background(), testReport())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "nested", "Contoso-CRM-assignments-20240301-093005.csv"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"AppName", "PrincipalName", "PrincipalType", "PrincipalEmail"}, records[0])
	assert.Equal(t, []string{"Contoso CRM", "Vance, Adele", "User", "adele.vance@contoso.com"}, records[1])
	assert.Equal(t, []string{"Contoso CRM", "", "Unknown", ""}, records[2])
}

func TestCSVFileProvider_EmptyReportWritesHeader(t *testing.T) {
	fp := NewCSVFileProvider(t.TempDir())
	report := &types.Report{Name: "service-principals", Columns: []string{"Id", "DisplayName"}}

	path, err := fp.Write(context.Background(), report)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Id,DisplayName\n", string(data))
}

func TestCreateExclusive_AvoidsCollisions(t *testing.T) {
	dir := t.TempDir()
	fp := NewCSVFileProvider(dir)
	fp.Now = fixedNow

	first, err := fp.Write(context.Background(), testReport())
	require.NoError(t, err)
	second, err := fp.Write(context.Background(), testReport())
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, strings.HasPrefix(filepath.Base(second), "Contoso-CRM-assignments-20240301-093005-"))
	assert.Equal(t, ".csv", filepath.Ext(second))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestCreateExclusive_OutputPathIsAFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "taken")
	require.NoError(t, os.WriteFile(file, nil, 0644))

	_, _, err := CreateExclusive(file, "x.csv")
	assert.ErrorContains(t, err, "is not a directory")
}

func TestWriteAndClose_RemovesFileOnFailure(t *testing.T) {
	dir := t.TempDir()
	file, fullpath, err := CreateExclusive(dir, "Contoso CRM-assignments.csv")
	require.NoError(t, err)

	writeErr := errors.New("disk full")
	err = writeAndClose(file, fullpath, func(w io.Writer) error {
		if _, err := io.WriteString(w, "AppName,PrincipalName\n"); err != nil {
			return err
		}
		return writeErr
	})
	require.ErrorIs(t, err, writeErr)
	assert.NoFileExists(t, fullpath)
}

func TestWriteAndClose_RemovesFileOnCloseFailure(t *testing.T) {
	dir := t.TempDir()
	file, fullpath, err := CreateExclusive(dir, "report.json")
	require.NoError(t, err)
	require.NoError(t, file.Close())

	err = writeAndClose(file, fullpath, func(w io.Writer) error { return nil })
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrClosed)
	assert.NoFileExists(t, fullpath)
}

func TestJsonFileProvider(t *testing.T) {
	fp := NewJsonFileProvider(t.TempDir())
	fp.Now = fixedNow

	path, err := fp.Write(context.Background(), testReport())
	require.NoError(t, err)
	assert.Equal(t, ".json", filepath.Ext(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var rows []map[string]string
	require.NoError(t, json.Unmarshal(data, &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "Vance, Adele", rows[0]["PrincipalName"])
	assert.Equal(t, "Unknown", rows[1]["PrincipalType"])

	empty, err := fp.Write(context.Background(), &types.Report{Name: "applications"})
	require.NoError(t, err)
	data, err = os.ReadFile(empty)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestMarkdownFileProvider(t *testing.T) {
	fp := NewMarkdownFileProvider(t.TempDir())

	path, err := fp.Write(context.Background(), testReport())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.True(t, strings.HasPrefix(content, "# Contoso CRM-assignments\n\n| AppName"))
	assert.Contains(t, content, "| Vance, Adele")
}

func TestConsoleProvider(t *testing.T) {
	var buf bytes.Buffer

	where, err := NewConsoleProvider(&buf).Write(context.Background(), testReport())
	require.NoError(t, err)
	assert.Equal(t, "stdout", where)
	assert.Contains(t, buf.String(), "adele.vance@contoso.com")
}

func TestNew(t *testing.T) {
	for _, format := range []string{"", "csv", "JSON", "md", "markdown", "console"} {
		_, err := New(context.Background(), format, Options{OutputPath: t.TempDir()})
		assert.NoError(t, err, format)
	}
	_, err := New(context.Background(), "xlsx", Options{OutputPath: t.TempDir()})
	assert.Error(t, err)
}
