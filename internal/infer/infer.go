// Package infer decides a Notion property type for each feed column from
// a sample of its values, subject to an operator override table.
package infer

import (
	"regexp"
	"strings"

	"github.com/appellisync/appellisync/internal/feed"
)

// PropertyType is a Notion data source property type.
type PropertyType string

const (
	TypeNumber      PropertyType = "number"
	TypeCheckbox    PropertyType = "checkbox"
	TypeDate        PropertyType = "date"
	TypeSelect      PropertyType = "select"
	TypeMultiSelect PropertyType = "multi_select"
	TypeRichText    PropertyType = "rich_text"
)

// AllTypes lists the property types the sync engine can write.
var AllTypes = []PropertyType{
	TypeNumber,
	TypeCheckbox,
	TypeDate,
	TypeSelect,
	TypeMultiSelect,
	TypeRichText,
}

// Valid reports whether t is a known property type.
func (t PropertyType) Valid() bool {
	for _, known := range AllTypes {
		if t == known {
			return true
		}
	}
	return false
}

// sampleLimit bounds how many non-null values feed date detection.
const sampleLimit = 50

// datePatterns are tried in order against stringified sample values.
// The bare time-of-day pattern participates in the tally but is
// rejected as a date signal when it wins.
var datePatterns = []struct {
	re       *regexp.Regexp
	layout   string
	hasTime  bool
	timeOnly bool
}{
	{regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`), "02/01/2006", false, false},
	{regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`), "2006-01-02", false, false},
	{regexp.MustCompile(`^\d{2}/\d{2}/\d{4}\s+\d{2}:\d{2}$`), "02/01/2006 15:04", true, false},
	{regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}$`), "2006-01-02T15:04", true, false},
	{regexp.MustCompile(`^\d{2}:\d{2}$`), "15:04", true, true},
}

// HasTimeComponent reports whether a date layout carries a time of day.
func HasTimeComponent(layout string) bool {
	return strings.Contains(layout, "15:04")
}

// Infer decides the property type for one column. Overrides win
// unconditionally; otherwise the ladder is all-boolean, all-numeric,
// date-pattern majority over the first sampleLimit non-null values,
// then rich_text. A date win records its layout in formats.
func Infer(name string, values []feed.Value, ov *Overrides, formats DateFormats) PropertyType {
	if t, ok := ov.Lookup(name); ok {
		return t
	}

	nonNull := make([]feed.Value, 0, len(values))
	for _, v := range values {
		if !v.IsMissing() {
			nonNull = append(nonNull, v)
		}
	}
	if len(nonNull) == 0 {
		// entirely empty column falls through every check
		return TypeRichText
	}

	if allKind(nonNull, feed.KindBool) {
		return TypeCheckbox
	}
	if allKind(nonNull, feed.KindNumber) {
		return TypeNumber
	}

	sample := make([]string, 0, sampleLimit)
	for _, v := range nonNull {
		if len(sample) == sampleLimit {
			break
		}
		sample = append(sample, v.String())
	}
	if layout, ok := detectDateLayout(sample); ok {
		formats.SetDefault(name, layout)
		return TypeDate
	}

	return TypeRichText
}

func allKind(values []feed.Value, kind feed.Kind) bool {
	for _, v := range values {
		if v.Kind != kind {
			return false
		}
	}
	return true
}

// detectDateLayout tallies pattern matches over the sample and returns
// the winning layout when it covers at least half the values. A winning
// time-only pattern is not a date.
func detectDateLayout(sample []string) (string, bool) {
	counts := make(map[int]int)
	for _, s := range sample {
		s = strings.TrimSpace(s)
		for i, p := range datePatterns {
			if p.re.MatchString(s) {
				counts[i]++
				break
			}
		}
	}
	if len(counts) == 0 {
		return "", false
	}

	best, bestCount := -1, 0
	for i := range datePatterns {
		if counts[i] > bestCount {
			best, bestCount = i, counts[i]
		}
	}
	if bestCount*2 < len(sample) {
		return "", false
	}
	if datePatterns[best].timeOnly {
		return "", false
	}
	return datePatterns[best].layout, true
}
