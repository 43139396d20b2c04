package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ValueKind discriminates the closed set of input value types.
type ValueKind int

const (
	// KindString is the zero kind; the zero Value is the empty string.
	KindString ValueKind = iota
	KindNumber
	KindBool
	KindList
)

func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	default:
		return "unknown"
	}
}

// Value is a tagged variant holding one collected input value.
// Collected inputs are loosely typed at the document boundary
// (string/number/boolean/array); representing them as a closed variant keeps
// comparison and coercion logic exhaustive instead of ad hoc type switches.
//
// The zero Value is the empty string, so a JSON null decodes to a value that
// counts as missing for required-field gating.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
	list []Value
}

// String constructs a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number constructs a numeric value.
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

// Bool constructs a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// List constructs a list value.
func List(items ...Value) Value { return Value{kind: KindList, list: items} }

// Kind returns the discriminant.
func (v Value) Kind() ValueKind { return v.kind }

// Str returns the string payload. Zero for non-string kinds.
func (v Value) Str() string { return v.str }

// Num returns the numeric payload. Zero for non-number kinds.
func (v Value) Num() float64 { return v.num }

// Truth returns the boolean payload. Zero for non-bool kinds.
func (v Value) Truth() bool { return v.b }

// Items returns the list payload. Nil for non-list kinds.
func (v Value) Items() []Value { return v.list }

// IsEmpty reports whether the value counts as "not provided" for
// required-field gating: the empty string.
func (v Value) IsEmpty() bool {
	return v.kind == KindString && v.str == ""
}

// AsNumber coerces the value to a float64 where a sensible coercion exists:
// numbers are themselves, numeric strings parse. Booleans and lists do not
// coerce.
func (v Value) AsNumber() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindString:
		n, err := strconv.ParseFloat(v.str, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// Equal reports strict, coercion-free equality: kinds must match and
// payloads must be equal. Lists compare element-wise.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == other.str
	case KindNumber:
		return v.num == other.num
	case KindBool:
		return v.b == other.b
	case KindList:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(other.list[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Interface returns the value as a plain Go type for rendering and logging.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindList:
		items := make([]any, len(v.list))
		for i, item := range v.list {
			items[i] = item.Interface()
		}
		return items
	default:
		return nil
	}
}

// ValueOf converts a decoded JSON/YAML scalar or array into a Value.
// nil maps to the empty string (counts as missing). Nested objects are not
// part of the input model and are rejected.
func ValueOf(raw any) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Value{}, nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case int:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", t.String(), err)
		}
		return Number(n), nil
	case []any:
		items := make([]Value, 0, len(t))
		for _, e := range t {
			item, err := ValueOf(e)
			if err != nil {
				return Value{}, err
			}
			items = append(items, item)
		}
		return List(items...), nil
	default:
		return Value{}, fmt.Errorf("unsupported input value type %T", raw)
	}
}

// MarshalJSON encodes the payload without the discriminant; the kind is
// recovered from the JSON type on decode.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON decodes any of the four supported JSON shapes.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ValueOf(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
