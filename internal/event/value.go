package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Value is a sealed interface over the variants an inbound event node can
// take. Only Null, Bool, Int, Float, String, Array, and Object implement it.
//
// Unlike an internal IR, inbound events are produced by someone else's
// client code: floats and nulls are accepted rather than rejected, because
// a malformed or surprising event must degrade to a negative classification
// verdict, never to a decode error.
type Value interface {
	value() // sealed
}

// Null represents a JSON null node.
type Null struct{}

func (Null) value() {}

// Bool represents a JSON boolean node.
type Bool bool

func (Bool) value() {}

// Int represents a JSON number with no fractional part.
// Numbers are decoded as Int whenever they fit in int64.
type Int int64

func (Int) value() {}

// Float represents a JSON number that does not fit Int.
type Float float64

func (Float) value() {}

// String represents a JSON string node.
type String string

func (String) value() {}

// Array represents a JSON array node.
type Array []Value

func (Array) value() {}

// Object represents a JSON object node.
type Object map[string]Value

func (Object) value() {}

// Decode parses raw JSON into a Value tree.
//
// Numbers are decoded with json.Number so integer ids (which routinely
// exceed float64's 53-bit mantissa) survive intact.
func Decode(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return fromAny(raw)
}

// FromAny converts an already-unmarshaled Go value (map[string]any,
// []any, scalars) into a Value tree. Useful for tests and for callers
// that receive events pre-decoded by a transport layer.
func FromAny(v any) (Value, error) {
	return fromAny(v)
}

func fromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return Int(n), nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("number %q is neither int64 nor float64", val)
		}
		return Float(f), nil
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case float64:
		// Pre-decoded trees lose the json.Number distinction; keep
		// whole-valued floats as Int so ids compare cleanly.
		if val == float64(int64(val)) {
			return Int(int64(val)), nil
		}
		return Float(val), nil
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			ev, err := fromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = ev
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			ev, err := fromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = ev
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported event node type: %T", v)
	}
}

// Flatten renders the whole tree as a single string for regex scanning and
// phrase matching. Object keys are emitted in sorted order so the output is
// deterministic; the format is JSON-like but not canonical JSON - it exists
// to be searched, not parsed.
func Flatten(v Value) string {
	var b strings.Builder
	flattenInto(&b, v)
	return b.String()
}

func flattenInto(b *strings.Builder, v Value) {
	switch val := v.(type) {
	case nil, Null:
		b.WriteString("null")
	case Bool:
		b.WriteString(strconv.FormatBool(bool(val)))
	case Int:
		b.WriteString(strconv.FormatInt(int64(val), 10))
	case Float:
		b.WriteString(strconv.FormatFloat(float64(val), 'g', -1, 64))
	case String:
		b.WriteByte('"')
		b.WriteString(string(val))
		b.WriteByte('"')
	case Array:
		b.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				b.WriteString(", ")
			}
			flattenInto(b, elem)
		}
		b.WriteByte(']')
	case Object:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteByte('"')
			b.WriteString(k)
			b.WriteString(`": `)
			flattenInto(b, val[k])
		}
		b.WriteByte('}')
	}
}
