package schema

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JonMunkholm/tabdiff/internal/table"
)

func cells(values ...string) []table.Cell {
	out := make([]table.Cell, len(values))
	for i, v := range values {
		out[i] = table.Text(v)
	}
	return out
}

func seq(from, to int) []string {
	var out []string
	for i := from; i <= to; i++ {
		out = append(out, strconv.Itoa(i))
	}
	return out
}

func TestDetectColumnType(t *testing.T) {
	tests := []struct {
		name   string
		values []table.Cell
		want   SemanticType
	}{
		{
			name: "mostly ISO dates",
			values: cells("2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05",
				"2024-01-06", "2024-01-07", "2024-01-08", "n/a", "unknown"),
			want: TypeDate,
		},
		{
			name:   "european and slashed dates",
			values: cells("01.02.2024", "31/12/2023", "2024/03/04", "05-06-2024"),
			want:   TypeDate,
		},
		{
			name:   "timestamps contain a date",
			values: cells("2024-01-02T10:00:00Z", "2024-01-03 11:30"),
			want:   TypeDate,
		},
		{
			name:   "increasing integers",
			values: cells(seq(1, 10)...),
			want:   TypeID,
		},
		{
			name:   "unrelated floats",
			values: cells("3.14", "1500.2", "0.5", "42.0", "7.77", "1000", "12.5", "9.9", "250.75", "3.3"),
			want:   TypeNumeric,
		},
		{
			name:   "increasing with large steps",
			values: cells("10", "20", "35", "90", "200"),
			want:   TypeNumeric,
		},
		{
			name:   "two values are numeric",
			values: cells("1", "2"),
			want:   TypeNumeric,
		},
		{
			name:   "thousands separators fail strict parse",
			values: cells("1,000", "2,500", "3,750"),
			want:   TypeText,
		},
		{
			name:   "alphanumeric keys",
			values: cells("INV-001", "INV-002", "INV_003", "X9"),
			want:   TypeID,
		},
		{
			name:   "free text",
			values: cells("rent payment", "groceries", "refund for order", "salary"),
			want:   TypeText,
		},
		{
			name:   "no values",
			values: nil,
			want:   TypeUnknown,
		},
		{
			name:   "only missing values",
			values: []table.Cell{table.Null(), table.Null()},
			want:   TypeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectColumnType(tt.values))
		})
	}
}

func TestDetectColumnType_SkipsMissing(t *testing.T) {
	values := []table.Cell{table.Null(), table.Text("1"), table.Null(), table.Text("2"), table.Text("3")}
	assert.Equal(t, TypeID, DetectColumnType(values))
}

func TestDetectColumnType_SamplesFirstHundred(t *testing.T) {
	values := cells(seq(1, SampleSize)...)
	for i := 0; i < 500; i++ {
		values = append(values, table.Text("free text value"))
	}
	assert.Equal(t, TypeID, DetectColumnType(values))
}

func TestDetectColumnType_Deterministic(t *testing.T) {
	values := cells("4.5", "2024-01-01", "abc", "17", "x y z", "99.1")
	first := DetectColumnType(values)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, DetectColumnType(values))
	}
}

func TestNewProfile(t *testing.T) {
	tbl, err := table.New(
		[]string{"ID", "Posted", "Memo"},
		[][]table.Cell{
			cells("1", "2024-01-01", "rent"),
			cells("2", "2024-01-02", "food and drink"),
			cells("3", "2024-01-03", "travel expenses"),
		},
	)
	assert.NoError(t, err)

	p := NewProfile(tbl)
	assert.Equal(t, TypeID, p.Type("id"))
	assert.Equal(t, TypeDate, p.Type("POSTED"))
	assert.Equal(t, TypeText, p.Type("Memo"))
	assert.Equal(t, TypeUnknown, p.Type("nope"))
	assert.Equal(t, map[string]SemanticType{"ID": TypeID, "Posted": TypeDate, "Memo": TypeText}, p.Types())
}
