package compare

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
)

const notPresent = "Not Present"

// exportRows lays the report out as the downloadable summary: a totals
// block, then one block per field listing every value with its status.
func exportRows(r *Report) [][]string {
	rows := [][]string{
		{"Comparison Summary"},
		{"File 1 Total Rows", strconv.Itoa(r.TotalRows.File1)},
		{"File 2 Total Rows", strconv.Itoa(r.TotalRows.File2)},
		{},
	}

	for _, f := range r.Fields {
		rows = append(rows, []string{"Field Type:", f.Label})
		if f.Failed() {
			rows = append(rows, []string{"Error:", f.Error}, []string{})
			continue
		}

		rows = append(rows,
			[]string{"File 1 Field:", f.Column1},
			[]string{"File 2 Field:", f.Column2},
			[]string{"Matching Values:", strconv.Itoa(len(f.Matching))},
			[]string{"Different Values:", strconv.Itoa(f.DifferentCount())},
			[]string{},
			[]string{"Status", "File 1 Value", "File 2 Value"},
		)
		for _, v := range f.Matching {
			rows = append(rows, []string{"Match", v, v})
		}
		for _, v := range f.OnlyIn1 {
			rows = append(rows, []string{"Only in File 1", v, notPresent})
		}
		for _, v := range f.OnlyIn2 {
			rows = append(rows, []string{"Only in File 2", notPresent, v})
		}
		rows = append(rows, []string{})
	}
	return rows
}

// WriteCSV writes the report as delimited text. Every row has three fields.
func WriteCSV(w io.Writer, r *Report) error {
	cw := csv.NewWriter(w)
	for _, row := range exportRows(r) {
		padded := make([]string, 3)
		copy(padded, row)
		if err := cw.Write(padded); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes the report as a workbook with a Summary sheet holding the
// same layout as WriteCSV.
func WriteXLSX(w io.Writer, r *Report) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Summary"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}

	for i, row := range exportRows(r) {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("write xlsx: %w", err)
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write xlsx: %w", err)
		}
	}

	if err := f.SetColWidth(sheet, "A", "C", 24); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
