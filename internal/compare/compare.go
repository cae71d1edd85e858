// Package compare diffs the values of mapped column pairs between two tables.
//
// Values are compared as trimmed, case-preserved strings: "1.0" and "1" are
// different values. Missing cells take part in neither the value sets nor
// the row differences; a present cell holding only whitespace is the value "".
package compare

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/JonMunkholm/tabdiff/internal/table"
)

// ErrFieldMissing marks a field pair naming a column absent from its table.
var ErrFieldMissing = errors.New("field missing")

// FieldPair maps a column of the first table to a column of the second.
type FieldPair struct {
	Label   string `json:"field"`
	Column1 string `json:"column1"`
	Column2 string `json:"column2"`
}

// RowDifference is a value present on one side without a partner on the
// other. Exactly one of Value1 and Value2 is set.
type RowDifference struct {
	Value1 *string `json:"file1_value"`
	Value2 *string `json:"file2_value"`
}

// FieldResult is the comparison of one field pair. When Error is set the
// value fields are empty.
type FieldResult struct {
	Label          string          `json:"field_type"`
	Column1        string          `json:"file1_field"`
	Column2        string          `json:"file2_field"`
	Matching       []string        `json:"matching_values,omitempty"`
	OnlyIn1        []string        `json:"only_in_file1,omitempty"`
	OnlyIn2        []string        `json:"only_in_file2,omitempty"`
	RowDifferences []RowDifference `json:"different_values,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// Failed reports whether the field could not be compared.
func (r FieldResult) Failed() bool {
	return r.Error != ""
}

// Err returns the field error wrapping ErrFieldMissing, or nil.
func (r FieldResult) Err() error {
	if r.Error == "" {
		return nil
	}
	return fmt.Errorf("field %q: %w: %s", r.Label, ErrFieldMissing, r.Error)
}

// DifferentCount is the number of distinct values present on only one side.
func (r FieldResult) DifferentCount() int {
	return len(r.OnlyIn1) + len(r.OnlyIn2)
}

// RowCounts holds the row count of each input.
type RowCounts struct {
	File1 int `json:"file1"`
	File2 int `json:"file2"`
}

// Report is the result of comparing two tables.
type Report struct {
	TotalRows RowCounts     `json:"total_rows"`
	Fields    []FieldResult `json:"differences"`
}

// Failed returns the number of field results carrying an error.
func (r *Report) Failed() int {
	n := 0
	for _, f := range r.Fields {
		if f.Failed() {
			n++
		}
	}
	return n
}

// Compare diffs every field pair, in order. A pair naming a missing column
// yields an error result and does not stop the remaining pairs.
func Compare(t1, t2 *table.Table, fields []FieldPair) *Report {
	report := &Report{
		TotalRows: RowCounts{File1: t1.RowCount(), File2: t2.RowCount()},
		Fields:    make([]FieldResult, 0, len(fields)),
	}
	for _, fp := range fields {
		report.Fields = append(report.Fields, compareField(t1, t2, fp))
	}
	return report
}

func compareField(t1, t2 *table.Table, fp FieldPair) FieldResult {
	label := fp.Label
	if label == "" {
		label = fp.Column1
	}
	res := FieldResult{Label: label, Column1: fp.Column1, Column2: fp.Column2}

	c1, ok1 := t1.Column(fp.Column1)
	c2, ok2 := t2.Column(fp.Column2)
	switch {
	case !ok1 && !ok2:
		res.Error = fmt.Sprintf("column not found: %s in file 1, %s in file 2", fp.Column1, fp.Column2)
		return res
	case !ok1:
		res.Error = fmt.Sprintf("column not found in file 1: %s", fp.Column1)
		return res
	case !ok2:
		res.Error = fmt.Sprintf("column not found in file 2: %s", fp.Column2)
		return res
	}
	res.Column1, res.Column2 = c1.Name, c2.Name

	counts1, counts2 := countValues(c1.Cells), countValues(c2.Cells)

	for v := range counts1 {
		if _, ok := counts2[v]; ok {
			res.Matching = append(res.Matching, v)
		} else {
			res.OnlyIn1 = append(res.OnlyIn1, v)
		}
	}
	for v := range counts2 {
		if _, ok := counts1[v]; !ok {
			res.OnlyIn2 = append(res.OnlyIn2, v)
		}
	}
	sort.Strings(res.Matching)
	sort.Strings(res.OnlyIn1)
	sort.Strings(res.OnlyIn2)

	res.RowDifferences = rowDifferences(counts1, counts2)
	return res
}

// Normalize returns the comparable form of a cell: "" when missing,
// otherwise the text with surrounding whitespace removed.
func Normalize(c table.Cell) string {
	if !c.Valid {
		return ""
	}
	return strings.TrimSpace(c.Text)
}

// countValues groups the normalized values of a column's present cells.
// A whitespace-only cell is present and counts as "".
func countValues(cells []table.Cell) map[string]int {
	counts := make(map[string]int)
	for _, c := range cells {
		if c.Valid {
			counts[Normalize(c)]++
		}
	}
	return counts
}

// rowDifferences pairs occurrences of each value across both sides and
// returns the unpaired surplus, ordered by value. A value seen 3 times in
// the first column and once in the second yields 2 unpaired rows.
func rowDifferences(counts1, counts2 map[string]int) []RowDifference {
	values := make([]string, 0, len(counts1)+len(counts2))
	for v := range counts1 {
		values = append(values, v)
	}
	for v := range counts2 {
		if _, ok := counts1[v]; !ok {
			values = append(values, v)
		}
	}
	sort.Strings(values)

	var diffs []RowDifference
	for _, v := range values {
		value := v
		switch n := counts1[v] - counts2[v]; {
		case n > 0:
			for range n {
				diffs = append(diffs, RowDifference{Value1: &value})
			}
		case n < 0:
			for range -n {
				diffs = append(diffs, RowDifference{Value2: &value})
			}
		}
	}
	return diffs
}
