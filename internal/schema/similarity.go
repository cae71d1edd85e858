package schema

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Ratio scores how alike two names are on a 0-100 scale, from the edit
// distance normalized by the longer name. Comparison ignores case.
func Ratio(a, b string) int {
	a, b = strings.ToLower(a), strings.ToLower(b)

	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 100
	}

	dist := levenshtein.ComputeDistance(a, b)
	return int(math.Round(100 * (1 - float64(dist)/float64(longest))))
}
