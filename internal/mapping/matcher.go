// Package mapping lines up columns across tables: resolving which column
// holds a known field type, and proposing column pairs between two tables.
package mapping

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/tabdiff/internal/schema"
	"github.com/JonMunkholm/tabdiff/internal/table"
)

// ErrColumnNotFound is returned when no column matches a field type.
var ErrColumnNotFound = errors.New("column not found")

// FuzzyThreshold is the minimum schema.Ratio score a fuzzy match must reach.
const FuzzyThreshold = 80

// Match describes how a field type was resolved to a column.
type Match struct {
	Column string `json:"column"`
	Rule   string `json:"rule"`  // "exact", "variation" or "fuzzy"
	Score  int    `json:"score"` // 100 unless fuzzy
}

// Resolve returns the name of the column in t holding fieldType.
// Rules are tried in order: exact name, catalog variation, fuzzy name.
func Resolve(t *table.Table, fieldType string, cat *schema.Catalog) (string, error) {
	m, err := ResolveMatch(t, fieldType, cat)
	if err != nil {
		return "", err
	}
	return m.Column, nil
}

// ResolveMatch is Resolve, also reporting which rule matched.
func ResolveMatch(t *table.Table, fieldType string, cat *schema.Catalog) (Match, error) {
	columns := t.Columns()

	for _, col := range columns {
		if strings.EqualFold(col, fieldType) {
			return Match{Column: col, Rule: "exact", Score: 100}, nil
		}
	}

	for _, v := range cat.Variations(fieldType) {
		for _, col := range columns {
			if strings.EqualFold(col, v) {
				return Match{Column: col, Rule: "variation", Score: 100}, nil
			}
		}
	}

	best, bestScore := "", -1
	for _, col := range columns {
		if s := schema.Ratio(fieldType, col); s > bestScore {
			best, bestScore = col, s
		}
	}
	if best != "" && bestScore >= FuzzyThreshold {
		return Match{Column: best, Rule: "fuzzy", Score: bestScore}, nil
	}

	return Match{}, fmt.Errorf("%w: no column matches field type %q", ErrColumnNotFound, fieldType)
}
