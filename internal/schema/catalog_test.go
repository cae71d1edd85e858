package schema

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRatio(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"amount", "amount", 100},
		{"Amount", "AMOUNT", 100},
		{"account", "acct_no", 57},
		{"amount", "amounts", 86},
		{"abc", "", 0},
		{"", "", 100},
	}
	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, Ratio(tt.a, tt.b))
			assert.Equal(t, tt.want, Ratio(tt.b, tt.a))
		})
	}
}

func TestNewCatalog(t *testing.T) {
	c := NewCatalog(map[string][]string{
		" Amount ": {"amount", "Total", "total", " ", "sum"},
		"":         {"ignored"},
	})

	assert.Equal(t, []string{"amount"}, c.FieldTypes())
	assert.Equal(t, []string{"amount", "Total", "sum"}, c.Variations("AMOUNT"))
	assert.True(t, c.Contains("amount", "TOTAL"))
	assert.False(t, c.Contains("amount", "price"))
	assert.False(t, c.Contains("date", "amount"))
}

func TestCatalog_WithLeavesOriginalUntouched(t *testing.T) {
	base := NewCatalog(map[string][]string{"amount": {"amount"}})

	next := base.With("amount", "Value", "AMOUNT")
	added := next.With("date", "posting_date")

	assert.Equal(t, []string{"amount"}, base.Variations("amount"))
	assert.Equal(t, []string{"amount", "Value"}, next.Variations("amount"))
	assert.Equal(t, 1, next.Len())
	assert.Equal(t, []string{"amount", "date"}, added.FieldTypes())
}

func TestCatalog_VariationsIsACopy(t *testing.T) {
	c := NewCatalog(map[string][]string{"amount": {"amount", "total"}})
	v := c.Variations("amount")
	v[0] = "changed"
	assert.Equal(t, []string{"amount", "total"}, c.Variations("amount"))
}

func TestCatalog_NilIsEmpty(t *testing.T) {
	var c *Catalog
	assert.Zero(t, c.Len())
	assert.Nil(t, c.Variations("amount"))
	assert.False(t, c.Contains("amount", "amount"))
	assert.Equal(t, []string{"x"}, c.With("amount", "x").Variations("amount"))
}

func TestMergeVariations(t *testing.T) {
	existing := []string{"amount", "total"}
	got := MergeVariations(existing, "Total", "sum")
	assert.Equal(t, []string{"amount", "total", "sum"}, got)
	assert.Equal(t, []string{"amount", "total"}, existing)
}

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	assert.Equal(t,
		[]string{"account", "amount", "date", "description", "transactionid", "type"},
		c.FieldTypes())
	assert.True(t, c.Contains("transactionid", "trans_id"))
	assert.True(t, c.Contains("date", "Value_Date"))
}

func TestCatalogYAML(t *testing.T) {
	c := NewCatalog(map[string][]string{"amount": {"amount", "total"}, "date": {"posted"}})

	var buf bytes.Buffer
	require.NoError(t, WriteCatalogYAML(&buf, c))

	back, err := ParseCatalogYAML(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, c.Map(), back.Map())
}

func TestParseCatalogYAML_Invalid(t *testing.T) {
	_, err := ParseCatalogYAML([]byte("field_types: [not, a, map]"))
	assert.Error(t, err)
}

func TestLoadCatalogYAML_MissingFile(t *testing.T) {
	_, err := LoadCatalogYAML(filepath.Join(t.TempDir(), "none.yaml"))
	assert.Error(t, err)
}
