// Package schema infers what a column holds and keeps the catalog of known
// field names used to line up columns across files.
package schema

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/JonMunkholm/tabdiff/internal/table"
)

// SemanticType classifies a column by its content, independent of its name.
type SemanticType string

const (
	TypeDate    SemanticType = "date"
	TypeNumeric SemanticType = "numeric"
	TypeID      SemanticType = "id"
	TypeText    SemanticType = "text"
	TypeUnknown SemanticType = "unknown"
)

// SampleSize is the number of non-missing values inspected per column.
const SampleSize = 100

// majority is the fraction of the sample a category must exceed.
const majority = 0.7

var (
	// Searched anywhere in the value, so "2024-01-02T10:00:00" counts.
	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\d{4}-\d{2}-\d{2}`),   // YYYY-MM-DD
		regexp.MustCompile(`\d{2}-\d{2}-\d{4}`),   // DD-MM-YYYY
		regexp.MustCompile(`\d{2}/\d{2}/\d{4}`),   // DD/MM/YYYY
		regexp.MustCompile(`\d{4}/\d{2}/\d{2}`),   // YYYY/MM/DD
		regexp.MustCompile(`\d{2}\.\d{2}\.\d{4}`), // DD.MM.YYYY
	}
	idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// DetectColumnType classifies a column from its first SampleSize non-missing
// values. The result is deterministic for a given input.
func DetectColumnType(cells []table.Cell) SemanticType {
	sample := make([]string, 0, SampleSize)
	for _, c := range cells {
		if !c.Valid {
			continue
		}
		sample = append(sample, c.Text)
		if len(sample) == SampleSize {
			break
		}
	}
	if len(sample) == 0 {
		return TypeUnknown
	}

	var dates, numbers, ids int
	for _, s := range sample {
		if isDateLike(s) {
			dates++
		}
		if isNumericLike(s) {
			numbers++
		}
		if idPattern.MatchString(s) {
			ids++
		}
	}

	total := float64(len(sample))
	switch {
	case float64(dates)/total > majority:
		return TypeDate
	case float64(numbers)/total > majority:
		return numericKind(sample)
	case float64(ids)/total > majority:
		return TypeID
	default:
		return TypeText
	}
}

func isDateLike(s string) bool {
	for _, p := range datePatterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// isNumericLike accepts anything that parses as a float once thousands
// separators are removed.
func isNumericLike(s string) bool {
	_, err := parseFloat(strings.ReplaceAll(s, ",", ""))
	return err == nil
}

// numericKind separates sequential keys from measurements. Every sampled
// value must parse strictly (no separator stripping); otherwise the column
// is text.
func numericKind(sample []string) SemanticType {
	nums := make([]float64, len(sample))
	for i, s := range sample {
		f, err := parseFloat(s)
		if err != nil {
			return TypeText
		}
		nums[i] = f
	}

	if isSequential(nums) {
		return TypeID
	}
	return TypeNumeric
}

// isSequential reports whether nums never decrease and the sample standard
// deviation of successive differences is below 1. Fewer than two differences
// leave the deviation undefined, which does not count as sequential.
func isSequential(nums []float64) bool {
	if len(nums) < 3 {
		return false
	}

	diffs := make([]float64, len(nums)-1)
	var sum float64
	for i := 1; i < len(nums); i++ {
		d := nums[i] - nums[i-1]
		if d < 0 || math.IsNaN(d) {
			return false
		}
		diffs[i-1] = d
		sum += d
	}

	mean := sum / float64(len(diffs))
	var sq float64
	for _, d := range diffs {
		sq += (d - mean) * (d - mean)
	}
	std := math.Sqrt(sq / float64(len(diffs)-1))
	return std < 1
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
