package notion

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/appellisync/appellisync/internal/feed"
	"github.com/appellisync/appellisync/internal/infer"
)

// richTextLimit is the API's maximum text content length.
const richTextLimit = 2000

// valueKind discriminates the property value envelope.
type valueKind int

const (
	kindNumber valueKind = iota
	kindCheckbox
	kindDate
	kindSelect
	kindMultiSelect
	kindRichText
	kindTitle
)

// PropertyValue is one typed value envelope in the remote wire format,
// e.g. {"number": 3} or {"date": {"start": "2025-06-12"}}.
type PropertyValue struct {
	kind       valueKind
	number     *float64 // nil renders as an explicit null number
	checkbox   bool
	dateStart  string
	selectName string
	multi      []string
	text       string
}

func NumberValue(f float64) PropertyValue {
	return PropertyValue{kind: kindNumber, number: &f}
}

// NullNumberValue is the explicit "number with no value" envelope
// emitted when a number cell fails to parse.
func NullNumberValue() PropertyValue { return PropertyValue{kind: kindNumber} }

func CheckboxValue(b bool) PropertyValue { return PropertyValue{kind: kindCheckbox, checkbox: b} }

func DateValue(start string) PropertyValue { return PropertyValue{kind: kindDate, dateStart: start} }

func SelectValue(name string) PropertyValue {
	return PropertyValue{kind: kindSelect, selectName: name}
}

func MultiSelectValue(names []string) PropertyValue {
	return PropertyValue{kind: kindMultiSelect, multi: names}
}

func RichTextValue(s string) PropertyValue {
	return PropertyValue{kind: kindRichText, text: truncate(s, richTextLimit)}
}

// TitleValue is the mandatory page title envelope.
func TitleValue(s string) PropertyValue {
	return PropertyValue{kind: kindTitle, text: truncate(s, richTextLimit)}
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

type textContent struct {
	Text struct {
		Content string `json:"content"`
	} `json:"text"`
}

func textPayload(s string) []textContent {
	var tc textContent
	tc.Text.Content = s
	return []textContent{tc}
}

type optionName struct {
	Name string `json:"name"`
}

func (v PropertyValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindNumber:
		return json.Marshal(map[string]*float64{"number": v.number})
	case kindCheckbox:
		return json.Marshal(map[string]bool{"checkbox": v.checkbox})
	case kindDate:
		return json.Marshal(map[string]map[string]string{"date": {"start": v.dateStart}})
	case kindSelect:
		return json.Marshal(map[string]optionName{"select": {Name: v.selectName}})
	case kindMultiSelect:
		opts := make([]optionName, 0, len(v.multi))
		for _, name := range v.multi {
			opts = append(opts, optionName{Name: name})
		}
		return json.Marshal(map[string][]optionName{"multi_select": opts})
	case kindTitle:
		return json.Marshal(map[string][]textContent{"title": textPayload(v.text)})
	default:
		return json.Marshal(map[string][]textContent{"rich_text": textPayload(v.text)})
	}
}

// genericDateLayouts back the best-effort parse for date columns with no
// stored layout.
var genericDateLayouts = []struct {
	layout  string
	hasTime bool
}{
	{time.RFC3339, true},
	{"2006-01-02T15:04:05", true},
	{"2006-01-02 15:04:05", true},
	{"2006-01-02T15:04", true},
	{"2006-01-02", false},
	{"02/01/2006 15:04", true},
	{"02/01/2006", false},
}

// Coerce converts one cell into its typed envelope. The second return
// is false when the field should be omitted from the write entirely:
// missing input, unparseable dates, labels that sanitize to nothing.
func Coerce(v feed.Value, t infer.PropertyType, column string, formats infer.DateFormats) (PropertyValue, bool) {
	if v.IsMissing() {
		return PropertyValue{}, false
	}

	switch t {
	case infer.TypeNumber:
		return coerceNumber(v), true

	case infer.TypeCheckbox:
		return CheckboxValue(v.Truthy()), true

	case infer.TypeDate:
		return coerceDate(v, column, formats)

	case infer.TypeSelect:
		name := v.String()
		if column == "descrIns" {
			name = SanitizeSelectLabel(name)
			if name == "" {
				return PropertyValue{}, false
			}
		}
		return SelectValue(name), true

	case infer.TypeMultiSelect:
		if v.Kind == feed.KindSequence {
			names := make([]string, 0, len(v.Seq))
			for _, elem := range v.Seq {
				if elem.IsMissing() {
					continue
				}
				names = append(names, elem.String())
			}
			return MultiSelectValue(names), true
		}
		return MultiSelectValue([]string{v.String()}), true

	default:
		return RichTextValue(v.String()), true
	}
}

func coerceNumber(v feed.Value) PropertyValue {
	switch v.Kind {
	case feed.KindNumber:
		return NumberValue(v.Num)
	case feed.KindBool:
		if v.Bool {
			return NumberValue(1)
		}
		return NumberValue(0)
	case feed.KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return NullNumberValue()
		}
		return NumberValue(f)
	default:
		return NullNumberValue()
	}
}

// coerceDate parses with the column's stored layout when one exists;
// otherwise it tries the generic layouts. Either way a parse failure
// drops the field, never the row. Time of day is kept only when the
// layout carries one.
func coerceDate(v feed.Value, column string, formats infer.DateFormats) (PropertyValue, bool) {
	s := strings.TrimSpace(v.String())

	if layout, ok := formats.Layout(column); ok {
		dt, err := time.Parse(layout, s)
		if err != nil {
			return PropertyValue{}, false
		}
		return DateValue(formatStart(dt, infer.HasTimeComponent(layout))), true
	}

	for _, g := range genericDateLayouts {
		if dt, err := time.Parse(g.layout, s); err == nil {
			return DateValue(formatStart(dt, g.hasTime)), true
		}
	}
	return PropertyValue{}, false
}

func formatStart(dt time.Time, withTime bool) string {
	if withTime {
		return dt.Format("2006-01-02T15:04:05")
	}
	return dt.Format("2006-01-02")
}
