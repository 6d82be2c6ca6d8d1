// Package metadata converts caller-supplied metadata into the primitive
// value set every vector store backend accepts.
package metadata

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Kind tags a metadata value.
type Kind int

// Kinds of classified values. Null..Bool form the closed primitive set a
// sanitized value may hold; List, Map and Other need conversion.
const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindList
	KindMap
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "other"
	}
}

// Primitive reports whether values of this kind are stored as-is.
func (k Kind) Primitive() bool {
	return k <= KindBool
}

// Raw is an input value tagged with its classified kind.
type Raw struct {
	kind Kind
	v    any
}

// Kind returns the classified kind.
func (r Raw) Kind() Kind { return r.kind }

// Classify tags an arbitrary value, typically produced by a JSON decoder
// configured with UseNumber.
func Classify(v any) Raw {
	switch x := v.(type) {
	case nil:
		return Raw{kind: KindNull}
	case string:
		return Raw{kind: KindString, v: x}
	case bool:
		return Raw{kind: KindBool, v: x}
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return Raw{kind: KindInt, v: i}
		}
		if f, err := x.Float64(); err == nil && isFinite(f) {
			return Raw{kind: KindFloat, v: f}
		}
		return Raw{kind: KindOther, v: x}
	case float64:
		if !isFinite(x) {
			return Raw{kind: KindOther, v: x}
		}
		return Raw{kind: KindFloat, v: x}
	case float32:
		f := float64(x)
		if !isFinite(f) {
			return Raw{kind: KindOther, v: x}
		}
		return Raw{kind: KindFloat, v: f}
	case []byte:
		return Raw{kind: KindOther, v: x}
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() { //nolint:exhaustive // remaining reflect kinds fall to Other
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Raw{kind: KindInt, v: rv.Int()}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return Raw{kind: KindOther, v: v}
		}
		return Raw{kind: KindInt, v: int64(u)}
	case reflect.Slice, reflect.Array:
		return Raw{kind: KindList, v: v}
	case reflect.Map:
		return Raw{kind: KindMap, v: v}
	default:
		return Raw{kind: KindOther, v: v}
	}
}

// Value is a sanitized metadata value: string, integer, float, boolean or null.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	b    bool
}

// String builds a string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Int builds an integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float builds a float value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Bool builds a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Null builds a null value.
func Null() Value { return Value{kind: KindNull} }

// Kind returns the value kind.
func (v Value) Kind() Kind { return v.kind }

// Any returns the value as a plain Go value (string, int64, float64, bool or nil).
func (v Value) Any() any {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	default:
		return nil
	}
}

// Text returns the value rendered as a string, used by backends that only
// store string metadata.
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return "null"
	}
}

// MarshalJSON encodes the value as its JSON primitive.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.s)
	case KindNull:
		return []byte("null"), nil
	case KindFloat:
		t := v.Text()
		if !strings.ContainsAny(t, ".eE") {
			t += ".0"
		}
		return []byte(t), nil
	default:
		return []byte(v.Text()), nil
	}
}

// Metadata is a sanitized key/value mapping.
type Metadata map[string]Value

// Clone returns a shallow copy.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Map returns the metadata as plain Go values.
func (m Metadata) Map() map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v.Any()
	}
	return out
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// genericString is the fallback rendering for values with no better form.
func genericString(v any) string {
	return fmt.Sprint(v)
}
