package table

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the logical type of a value or column.
type Kind int

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int64"
	case KindFloat:
		return "float64"
	case KindText:
		return "text"
	default:
		return "null"
	}
}

// Numeric reports whether k is an integer or float kind.
func (k Kind) Numeric() bool {
	return k == KindInt || k == KindFloat
}

// Value is a single cell. The zero Value is null.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
}

// Null returns the null value.
func Null() Value { return Value{} }

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a float value. NaN is stored as null, matching how the
// loader treats missing numeric cells.
func Float(f float64) Value {
	if math.IsNaN(f) {
		return Value{}
	}
	return Value{kind: KindFloat, f: f}
}

// Text returns a text value.
func Text(s string) Value { return Value{kind: KindText, s: s} }

// ValueOf converts a Go value to a Value. Supported inputs are nil, string,
// the integer and float types, and Value itself.
func ValueOf(x any) (Value, error) {
	switch v := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return v, nil
	case string:
		return Text(v), nil
	case int:
		return Int(int64(v)), nil
	case int8:
		return Int(int64(v)), nil
	case int16:
		return Int(int64(v)), nil
	case int32:
		return Int(int64(v)), nil
	case int64:
		return Int(v), nil
	case uint8:
		return Int(int64(v)), nil
	case uint16:
		return Int(int64(v)), nil
	case uint32:
		return Int(int64(v)), nil
	case float32:
		return Float(float64(v)), nil
	case float64:
		return Float(v), nil
	default:
		return Null(), fmt.Errorf("%w: unsupported value type %T", ErrInvalidArgument, x)
	}
}

// Kind returns the logical type of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is missing.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsInt returns the integer payload. Float values are truncated.
func (v Value) AsInt() int64 {
	if v.kind == KindFloat {
		return int64(v.f)
	}
	return v.i
}

// AsFloat returns the numeric payload as float64, or NaN for non-numeric values.
func (v Value) AsFloat() float64 {
	switch v.kind {
	case KindInt:
		return float64(v.i)
	case KindFloat:
		return v.f
	default:
		return math.NaN()
	}
}

// AsText returns the text payload; empty for non-text values.
func (v Value) AsText() string { return v.s }

// String renders v the way a text coercion would: null becomes "nan" and
// floats keep a fractional part ("1200.0").
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return formatFloat(v.f)
	case KindText:
		return v.s
	default:
		return "nan"
	}
}

// Equal reports membership equality. Null equals null, and integer and float
// values compare numerically.
func (v Value) Equal(o Value) bool {
	switch {
	case v.kind == KindNull || o.kind == KindNull:
		return v.kind == o.kind
	case v.kind == KindText || o.kind == KindText:
		return v.kind == o.kind && v.s == o.s
	case v.kind == KindInt && o.kind == KindInt:
		return v.i == o.i
	default:
		return v.AsFloat() == o.AsFloat()
	}
}

// MarshalJSON encodes null as null, numbers as JSON numbers and text as a
// string. Infinities have no JSON number form and encode as "inf"/"-inf".
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindInt:
		return json.Marshal(v.i)
	case KindFloat:
		if math.IsInf(v.f, 0) {
			return json.Marshal(formatFloat(v.f))
		}
		return json.Marshal(v.f)
	default:
		return json.Marshal(v.s)
	}
}

// UnmarshalJSON reverses MarshalJSON. A number with no fraction or exponent
// decodes as an integer, so a float that marshalled as "3" comes back as Int(3).
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	switch x := raw.(type) {
	case nil:
		*v = Null()
	case json.Number:
		if !strings.ContainsAny(x.String(), ".eE") {
			if i, err := x.Int64(); err == nil {
				*v = Int(i)
				return nil
			}
		}
		f, err := x.Float64()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		*v = Float(f)
	case string:
		switch x {
		case "inf":
			*v = Float(math.Inf(1))
		case "-inf":
			*v = Float(math.Inf(-1))
		default:
			*v = Text(x)
		}
	default:
		return fmt.Errorf("%w: cannot decode %s into a value", ErrInvalidArgument, data)
	}
	return nil
}

// formatFloat prints the shortest round-tripping representation, switching
// to exponent form outside [1e-4, 1e16).
func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
