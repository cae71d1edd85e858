package mapping

import (
	"math"
	"strings"

	"github.com/JonMunkholm/tabdiff/internal/schema"
	"github.com/JonMunkholm/tabdiff/internal/table"
)

// MinConfidence is the lowest score (0-1) a pairing needs to be suggested.
const MinConfidence = 0.4

const (
	sharedCategoryBonus  = 0.3
	disjointCategoryCost = 0.5
	typeMismatchCost     = 0.8
	dateMismatchCost     = 0.9
)

// category is a group of keywords; a column name belongs to the category
// when any keyword occurs in it.
type category struct {
	name     string
	keywords []string
}

var categories = []category{
	{"id", []string{"id", "identifier", "key", "code", "no", "number"}},
	{"date", []string{"date", "time", "datetime", "timestamp"}},
	{"amount", []string{"amount", "sum", "total", "price", "value", "payment"}},
	{"account", []string{"account", "acct", "acc"}},
	{"transaction", []string{"transaction", "trans", "trx"}},
	{"description", []string{"description", "desc", "details", "note", "memo"}},
	{"status", []string{"status", "state", "condition"}},
	{"type", []string{"type", "category", "kind"}},
	{"name", []string{"name", "title", "label"}},
}

// Suggestion proposes that Column1 of the first table corresponds to
// Column2 of the second.
type Suggestion struct {
	Column1    string              `json:"field1"`
	Column2    string              `json:"field2"`
	Confidence int                 `json:"confidence"` // 0-100
	Type1      schema.SemanticType `json:"type1"`
	Type2      schema.SemanticType `json:"type2"`
}

// Suggest proposes at most one partner in t2 for each column of t1, in t1's
// column order. Columns without a partner scoring MinConfidence are omitted.
// The result is not symmetric: Suggest(t2, t1) may pair columns differently.
func Suggest(t1, t2 *table.Table) []Suggestion {
	return SuggestProfiles(schema.NewProfile(t1), schema.NewProfile(t2))
}

// SuggestProfiles is Suggest over already profiled tables.
func SuggestProfiles(p1, p2 *schema.Profile) []Suggestion {
	cats2 := make([]map[string]bool, len(p2.Columns()))
	for i, col := range p2.Columns() {
		cats2[i] = categoriesOf(col)
	}

	var out []Suggestion
	for _, col1 := range p1.Columns() {
		cats1 := categoriesOf(col1)
		type1 := p1.Type(col1)

		best, bestScore := -1, 0.0
		for j, col2 := range p2.Columns() {
			s := score(col1, col2, cats1, cats2[j], type1, p2.Type(col2))
			if s > bestScore {
				best, bestScore = j, s
			}
		}

		if best < 0 || bestScore < MinConfidence {
			continue
		}
		col2 := p2.Columns()[best]
		out = append(out, Suggestion{
			Column1:    col1,
			Column2:    col2,
			Confidence: int(math.Round(bestScore * 100)),
			Type1:      type1,
			Type2:      p2.Type(col2),
		})
	}
	return out
}

// score rates a column pairing on [0, 1].
func score(col1, col2 string, cats1, cats2 map[string]bool, type1, type2 schema.SemanticType) float64 {
	s := float64(schema.Ratio(col1, col2)) / 100

	shared := false
	for c := range cats1 {
		if cats2[c] {
			shared = true
			break
		}
	}
	switch {
	case shared:
		s += sharedCategoryBonus
	case len(cats1) > 0 && len(cats2) > 0:
		s -= disjointCategoryCost
	}

	if type1 != type2 {
		if type1 == schema.TypeDate || type2 == schema.TypeDate {
			s -= dateMismatchCost
		} else {
			s -= typeMismatchCost
		}
	}

	return math.Max(0, math.Min(1, s))
}

func categoriesOf(name string) map[string]bool {
	lower := strings.ToLower(name)
	out := make(map[string]bool)
	for _, c := range categories {
		for _, kw := range c.keywords {
			if strings.Contains(lower, kw) {
				out[c.name] = true
				break
			}
		}
	}
	return out
}
