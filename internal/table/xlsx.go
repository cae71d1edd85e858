package table

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// loadXLSX reads the selected (or first) worksheet. The first row is the
// header; cells are taken as excelize formats them for display.
func loadXLSX(path string, o loadOptions) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open spreadsheet: %v", ErrMalformedInput, err)
	}
	defer f.Close()

	sheet := o.sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if sheet == "" {
		return nil, fmt.Errorf("%w: no sheets found in workbook", ErrMalformedInput)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %v", ErrMalformedInput, sheet, err)
	}

	// Leading blank rows are common above the real header.
	for len(rows) > 0 && blankRecord(rows[0]) {
		rows = rows[1:]
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: sheet %q is empty", ErrMalformedInput, sheet)
	}

	data := rows[1:]
	header := uniqueHeader(widen(rows[0], data))
	return New(header, toCells(data))
}
