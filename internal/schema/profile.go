package schema

import (
	"strings"

	"github.com/JonMunkholm/tabdiff/internal/table"
)

// Profile caches the detected type of every column of one table, so a
// table is classified once no matter how many pairings are scored.
type Profile struct {
	columns []string
	types   map[string]SemanticType // lowercase column name
}

// NewProfile classifies every column of t.
func NewProfile(t *table.Table) *Profile {
	p := &Profile{
		columns: t.Columns(),
		types:   make(map[string]SemanticType, t.NumColumns()),
	}
	for i := 0; i < t.NumColumns(); i++ {
		col := t.ColumnAt(i)
		p.types[strings.ToLower(col.Name)] = DetectColumnType(col.Cells)
	}
	return p
}

// Columns returns the profiled column names in table order.
func (p *Profile) Columns() []string {
	return p.columns
}

// Type returns the detected type of the named column, or TypeUnknown.
func (p *Profile) Type(column string) SemanticType {
	if st, ok := p.types[strings.ToLower(column)]; ok {
		return st
	}
	return TypeUnknown
}

// Types returns column name to detected type, keyed by the names as read.
func (p *Profile) Types() map[string]SemanticType {
	out := make(map[string]SemanticType, len(p.columns))
	for _, c := range p.columns {
		out[c] = p.Type(c)
	}
	return out
}
