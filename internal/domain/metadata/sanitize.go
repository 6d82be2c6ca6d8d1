package metadata

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// ConversionsKey holds the audit note listing every conversion applied.
// It is reserved: a caller value under this key is dropped and noted.
const ConversionsKey = "_metadata_conversions"

// Target forms named in conversion notes.
const (
	formJoined = "comma-joined string"
	formJSON   = "JSON string"
	formString = "string"
	formDrop   = "dropped (reserved key)"
)

// Sanitize maps arbitrary values onto the primitive set. It never fails:
// lists become comma-joined strings, maps become canonical JSON and anything
// else becomes its string form. When a conversion happened the result also
// carries ConversionsKey.
func Sanitize(raw map[string]any) Metadata {
	out := make(Metadata, len(raw))
	notes := make(map[string]string)

	for key, v := range raw {
		r := Classify(v)
		if key == ConversionsKey {
			notes[key] = fmt.Sprintf("%s: %s -> %s", key, sourceKind(r), formDrop)
			continue
		}
		val, form := convert(r)
		out[key] = val
		if form != "" {
			notes[key] = fmt.Sprintf("%s: %s -> %s", key, sourceKind(r), form)
		}
	}

	if len(notes) > 0 {
		keys := make([]string, 0, len(notes))
		for k := range notes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		lines := make([]string, len(keys))
		for i, k := range keys {
			lines[i] = notes[k]
		}
		out[ConversionsKey] = String(strings.Join(lines, "; "))
	}

	return out
}

// FromStored rebuilds metadata read back from a store. Stores only hold
// primitives, so no notes are produced; a stray composite is rendered as text.
func FromStored(raw map[string]any) Metadata {
	out := make(Metadata, len(raw))
	for key, v := range raw {
		val, _ := convert(Classify(v))
		out[key] = val
	}
	return out
}

// convert returns the sanitized value and the target form, or "" when the
// value passed through unchanged.
func convert(r Raw) (Value, string) {
	switch r.kind {
	case KindNull:
		return Null(), ""
	case KindString:
		return String(r.v.(string)), ""
	case KindInt:
		return Int(r.v.(int64)), ""
	case KindFloat:
		return Float(r.v.(float64)), ""
	case KindBool:
		return Bool(r.v.(bool)), ""
	case KindList:
		return String(joinList(r.v)), formJoined
	case KindMap:
		if s, ok := canonicalJSON(r.v); ok {
			return String(s), formJSON
		}
		return String(genericString(r.v)), formString
	default:
		return String(stringForm(r.v)), formString
	}
}

func sourceKind(r Raw) string {
	if r.kind == KindOther {
		return fmt.Sprintf("%T", r.v)
	}
	return r.kind.String()
}

func joinList(v any) string {
	rv := reflect.ValueOf(v)
	parts := make([]string, rv.Len())
	for i := range parts {
		parts[i] = stringForm(rv.Index(i).Interface())
	}
	return strings.Join(parts, ", ")
}

// stringForm renders a single value the way it appears inside a joined list.
func stringForm(v any) string {
	r := Classify(v)
	switch r.kind {
	case KindNull:
		return "null"
	case KindString:
		return r.v.(string)
	case KindInt:
		return strconv.FormatInt(r.v.(int64), 10)
	case KindFloat:
		return strconv.FormatFloat(r.v.(float64), 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(r.v.(bool))
	case KindList, KindMap:
		if s, ok := canonicalJSON(r.v); ok {
			return s
		}
		return genericString(r.v)
	default:
		if n, ok := r.v.(json.Number); ok {
			return n.String()
		}
		if b, ok := r.v.([]byte); ok {
			return string(b)
		}
		return genericString(r.v)
	}
}

// canonicalJSON encodes v with sorted map keys. encoding/json already sorts
// map keys, so the output is deterministic.
func canonicalJSON(v any) (string, bool) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", false
	}
	return string(data), true
}
