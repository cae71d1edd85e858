package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/tabdiff/internal/compare"
	"github.com/JonMunkholm/tabdiff/internal/core"
	"github.com/JonMunkholm/tabdiff/internal/store"
)

func TestParseMaps(t *testing.T) {
	pairs, err := parseMaps([]string{"TransactionID=Ref_No", "amount: Amount = Total Amount"})
	require.NoError(t, err)
	assert.Equal(t, []compare.FieldPair{
		{Label: "TransactionID", Column1: "TransactionID", Column2: "Ref_No"},
		{Label: "amount", Column1: "Amount", Column2: "Total Amount"},
	}, pairs)

	// A colon after the equals sign belongs to the column name.
	pairs, err = parseMaps([]string{"Time=Time: UTC"})
	require.NoError(t, err)
	assert.Equal(t, "Time: UTC", pairs[0].Column2)

	// An escaped colon keeps a first column name whole.
	pairs, err = parseMaps([]string{`Time\:Stamp=ts`, `when:Time\:Stamp=ts`})
	require.NoError(t, err)
	assert.Equal(t, []compare.FieldPair{
		{Label: "Time:Stamp", Column1: "Time:Stamp", Column2: "ts"},
		{Label: "when", Column1: "Time:Stamp", Column2: "ts"},
	}, pairs)

	// Without the escape the text before the colon is a label.
	pairs, err = parseMaps([]string{"Time:Stamp=ts"})
	require.NoError(t, err)
	assert.Equal(t, compare.FieldPair{Label: "Time", Column1: "Stamp", Column2: "ts"}, pairs[0])

	for _, bad := range []string{"Amount", "=Total", "Amount=", "label:"} {
		_, err := parseMaps([]string{bad})
		assert.ErrorIs(t, err, core.ErrInvalidMapping, bad)
	}
}

func TestExportReport(t *testing.T) {
	report := &compare.Report{
		TotalRows: compare.RowCounts{File1: 1, File2: 1},
		Fields:    []compare.FieldResult{{Label: "id", Column1: "a", Column2: "b", Matching: []string{"1"}}},
	}
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "out.csv")
	require.NoError(t, exportReport(csvPath, report))
	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Comparison Summary"))

	xlsxPath := filepath.Join(dir, "out.XLSX")
	require.NoError(t, exportReport(xlsxPath, report))
	data, err = os.ReadFile(xlsxPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("PK")))

	assert.Error(t, exportReport(filepath.Join(dir, "out.pdf"), report))
}

func TestLoadOptions(t *testing.T) {
	t.Cleanup(func() { encoding, sheet, delimiter = "", "", "" })

	opts, err := loadOptions()
	require.NoError(t, err)
	assert.Empty(t, opts)

	encoding, sheet, delimiter = "windows-1252", "Data", `\t`
	opts, err = loadOptions()
	require.NoError(t, err)
	assert.Len(t, opts, 3)

	delimiter = ";;"
	_, err = loadOptions()
	assert.Error(t, err)
}

func TestRenderReport(t *testing.T) {
	job := &store.ComparisonJob{
		File1: "ledger.csv",
		File2: "bank.csv",
		Report: &compare.Report{
			TotalRows: compare.RowCounts{File1: 3, File2: 3},
			Fields: []compare.FieldResult{
				{Label: "id", Column1: "TransactionID", Column2: "Ref_No", Matching: []string{"T1"}, OnlyIn1: []string{"T3"}, OnlyIn2: []string{"T4"}},
				{Label: "memo", Column1: "Memo", Column2: "Notes", Error: "column Notes not found in file 2"},
			},
		},
	}

	var buf bytes.Buffer
	renderReport(&buf, job, true)
	out := buf.String()

	assert.Contains(t, out, "ledger.csv: 3 rows, bank.csv: 3 rows")
	assert.Contains(t, out, "TransactionID")
	assert.Contains(t, out, "error: column Notes not found in file 2")
	assert.Contains(t, out, "Only in File 1")
	assert.Contains(t, out, "T4")
}
