package schema

import (
	"slices"
	"sort"
	"strings"
)

// Catalog maps canonical field types (e.g. "amount") to the column names
// known to hold them. A Catalog is immutable: With returns a modified copy,
// so one snapshot can be shared by concurrent comparisons.
type Catalog struct {
	fields map[string][]string // lowercase field type -> variations in insertion order
}

// NewCatalog builds a catalog from field type to variations. Field types are
// matched ignoring case; duplicate variations (ignoring case) are dropped.
func NewCatalog(m map[string][]string) *Catalog {
	c := &Catalog{fields: make(map[string][]string, len(m))}
	for ft, vars := range m {
		key := normalizeFieldType(ft)
		if key == "" {
			continue
		}
		c.fields[key] = appendUnique(c.fields[key], vars...)
	}
	return c
}

// Variations returns the known names for fieldType, in insertion order.
func (c *Catalog) Variations(fieldType string) []string {
	if c == nil {
		return nil
	}
	return slices.Clone(c.fields[normalizeFieldType(fieldType)])
}

// FieldTypes returns every field type, sorted.
func (c *Catalog) FieldTypes() []string {
	if c == nil {
		return nil
	}
	out := make([]string, 0, len(c.fields))
	for ft := range c.fields {
		out = append(out, ft)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of field types.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.fields)
}

// Contains reports whether name is a known variation of fieldType.
func (c *Catalog) Contains(fieldType, name string) bool {
	for _, v := range c.Variations(fieldType) {
		if strings.EqualFold(v, name) {
			return true
		}
	}
	return false
}

// With returns a copy of c with variations added to fieldType, creating the
// field type if needed. Variations already present (ignoring case) are skipped.
func (c *Catalog) With(fieldType string, variations ...string) *Catalog {
	next := &Catalog{fields: make(map[string][]string, c.Len()+1)}
	if c != nil {
		for ft, vars := range c.fields {
			next.fields[ft] = slices.Clone(vars)
		}
	}
	key := normalizeFieldType(fieldType)
	if key == "" {
		return next
	}
	next.fields[key] = appendUnique(next.fields[key], variations...)
	return next
}

// Map returns a copy of the catalog contents.
func (c *Catalog) Map() map[string][]string {
	out := make(map[string][]string, c.Len())
	if c == nil {
		return out
	}
	for ft, vars := range c.fields {
		out[ft] = slices.Clone(vars)
	}
	return out
}

func normalizeFieldType(ft string) string {
	return strings.ToLower(strings.TrimSpace(ft))
}

// appendUnique appends trimmed, non-empty variations not already in dst.
func appendUnique(dst []string, variations ...string) []string {
	for _, v := range variations {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if slices.ContainsFunc(dst, func(have string) bool { return strings.EqualFold(have, v) }) {
			continue
		}
		dst = append(dst, v)
	}
	return dst
}

// MergeVariations returns existing plus any of added not already present,
// ignoring case. Used when adding a variation to a stored mapping.
func MergeVariations(existing []string, added ...string) []string {
	return appendUnique(slices.Clone(existing), added...)
}
