package feed

import (
	"encoding/json"
	"math"
	"strconv"
)

// Kind discriminates the scalar union carried in a table cell.
type Kind int

const (
	KindNull Kind = iota
	KindNumber
	KindBool
	KindString
	KindSequence
)

// Value is the tagged union for loosely-typed feed scalars. JSON is
// narrowed into it at the feed boundary; nothing downstream inspects
// runtime types.
type Value struct {
	Kind Kind
	Num  float64
	Bool bool
	Str  string
	Seq  []Value
}

func Null() Value              { return Value{Kind: KindNull} }
func Number(f float64) Value   { return Value{Kind: KindNumber, Num: f} }
func Boolean(b bool) Value     { return Value{Kind: KindBool, Bool: b} }
func String(s string) Value    { return Value{Kind: KindString, Str: s} }
func Sequence(vs ...Value) Value { return Value{Kind: KindSequence, Seq: vs} }

// IsMissing reports whether the value should be treated as absent:
// null, or a not-a-number float.
func (v Value) IsMissing() bool {
	return v.Kind == KindNull || (v.Kind == KindNumber && math.IsNaN(v.Num))
}

// Truthy follows loose boolean coercion: nonzero numbers, true booleans,
// nonempty strings and sequences.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindNumber:
		return v.Num != 0
	case KindBool:
		return v.Bool
	case KindString:
		return v.Str != ""
	case KindSequence:
		return len(v.Seq) > 0
	default:
		return false
	}
}

// String renders the display form of the value. Whole-number floats
// print without a fractional part.
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case KindString:
		return v.Str
	case KindSequence:
		data, _ := json.Marshal(v.Seq)
		return string(data)
	default:
		return ""
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNumber:
		if math.IsNaN(v.Num) {
			return []byte("null"), nil
		}
		return json.Marshal(v.Num)
	case KindBool:
		return json.Marshal(v.Bool)
	case KindString:
		return json.Marshal(v.Str)
	case KindSequence:
		return json.Marshal(v.Seq)
	default:
		return []byte("null"), nil
	}
}

// FromAny narrows a decoded JSON value into the union. Nested objects are
// not expected here; out of caution they render as their JSON text.
func FromAny(raw any) Value {
	switch x := raw.(type) {
	case nil:
		return Null()
	case float64:
		return Number(x)
	case bool:
		return Boolean(x)
	case string:
		return String(x)
	case []any:
		seq := make([]Value, 0, len(x))
		for _, elem := range x {
			seq = append(seq, FromAny(elem))
		}
		return Sequence(seq...)
	default:
		data, err := json.Marshal(raw)
		if err != nil {
			return Null()
		}
		return String(string(data))
	}
}
