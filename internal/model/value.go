package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ValueKind tags which variant a Value holds.
type ValueKind uint8

const (
	NumberKind ValueKind = iota + 1
	StringKind
	BoolKind
	MapKind
	ListKind
)

// Value is a param or metric value: a number, string, boolean, a list or a
// nested mapping of further values. The zero Value is invalid and marshals as null.
type Value struct {
	kind ValueKind
	num  float64
	str  string
	b    bool
	m    Values
	l    []Value
}

// Values is a string-keyed mapping of Value, the shape of params and metrics.
type Values map[string]Value

func Number(f float64) Value { return Value{kind: NumberKind, num: f} }
func String(s string) Value   { return Value{kind: StringKind, str: s} }
func Bool(b bool) Value       { return Value{kind: BoolKind, b: b} }
func Map(m Values) Value      { return Value{kind: MapKind, m: m} }
func List(l ...Value) Value   { return Value{kind: ListKind, l: l} }

// Kind reports the variant held by v; zero for an invalid Value.
func (v Value) Kind() ValueKind { return v.kind }

// Number returns the numeric payload and whether v is a number.
func (v Value) Number() (float64, bool) { return v.num, v.kind == NumberKind }

// Str returns the string payload and whether v is a string.
func (v Value) Str() (string, bool) { return v.str, v.kind == StringKind }

// Bool returns the boolean payload and whether v is a boolean.
func (v Value) Bool() (bool, bool) { return v.b, v.kind == BoolKind }

// Map returns the nested mapping and whether v is a mapping.
func (v Value) Map() (Values, bool) { return v.m, v.kind == MapKind }

// List returns the elements and whether v is a list.
func (v Value) List() ([]Value, bool) { return v.l, v.kind == ListKind }

// Equal reports deep equality. go-cmp picks this method up in tests.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case NumberKind:
		return v.num == o.num
	case StringKind:
		return v.str == o.str
	case BoolKind:
		return v.b == o.b
	case MapKind:
		return v.m.Equal(o.m)
	case ListKind:
		if len(v.l) != len(o.l) {
			return false
		}
		for i := range v.l {
			if !v.l[i].Equal(o.l[i]) {
				return false
			}
		}
	}
	return true
}

// Equal reports whether both mappings hold the same keys with equal values.
func (vs Values) Equal(o Values) bool {
	if len(vs) != len(o) {
		return false
	}
	for k, v := range vs {
		ov, ok := o[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// String renders v for terminal output. Mappings print as "k: v, k: v"
// with keys sorted.
func (v Value) String() string {
	switch v.kind {
	case NumberKind:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case StringKind:
		return v.str
	case BoolKind:
		return strconv.FormatBool(v.b)
	case MapKind:
		return "{" + v.m.String() + "}"
	case ListKind:
		parts := make([]string, len(v.l))
		for i, e := range v.l {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return "null"
}

func (vs Values) String() string {
	keys := make([]string, 0, len(vs))
	for k := range vs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, vs[k]))
	}
	return strings.Join(parts, ", ")
}

// Any converts v back to plain Go values (float64, string, bool,
// map[string]any, []any). Used by the YAML renderer and the embeddable API.
func (v Value) Any() any {
	switch v.kind {
	case NumberKind:
		return v.num
	case StringKind:
		return v.str
	case BoolKind:
		return v.b
	case MapKind:
		return v.m.Any()
	case ListKind:
		out := make([]any, len(v.l))
		for i, e := range v.l {
			out[i] = e.Any()
		}
		return out
	}
	return nil
}

func (vs Values) Any() map[string]any {
	out := make(map[string]any, len(vs))
	for k, v := range vs {
		out[k] = v.Any()
	}
	return out
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case NumberKind:
		return json.Marshal(v.num)
	case StringKind:
		return json.Marshal(v.str)
	case BoolKind:
		return json.Marshal(v.b)
	case MapKind:
		if v.m == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(map[string]Value(v.m))
	case ListKind:
		if v.l == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.l)
	}
	return []byte("null"), nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty value")
	}
	switch data[0] {
	case 'n':
		*v = Value{}
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = String(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = Bool(b)
	case '{':
		var m map[string]Value
		if err := json.Unmarshal(data, &m); err != nil {
			return err
		}
		*v = Map(Values(m))
	case '[':
		var l []Value
		if err := json.Unmarshal(data, &l); err != nil {
			return err
		}
		*v = List(l...)
	default:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("unsupported value %s: %w", data, err)
		}
		*v = Number(f)
	}
	return nil
}

func (v Value) MarshalYAML() (interface{}, error) {
	return v.Any(), nil
}

// FromAny converts a plain Go value into a Value. Integer and float types
// become numbers; map[string]any and map[string]T nest; []any and common
// slices become lists. Anything else is rejected so serialization stays total.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case Value:
		return t, nil
	case Values:
		return Map(t), nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int8:
		return Number(float64(t)), nil
	case int16:
		return Number(float64(t)), nil
	case int32:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case uint:
		return Number(float64(t)), nil
	case uint8:
		return Number(float64(t)), nil
	case uint16:
		return Number(float64(t)), nil
	case uint32:
		return Number(float64(t)), nil
	case uint64:
		return Number(float64(t)), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, err
		}
		return Number(f), nil
	case map[string]any:
		m, err := ValuesFrom(t)
		if err != nil {
			return Value{}, err
		}
		return Map(m), nil
	case map[string]float64:
		m := make(Values, len(t))
		for k, f := range t {
			m[k] = Number(f)
		}
		return Map(m), nil
	case map[string]string:
		m := make(Values, len(t))
		for k, s := range t {
			m[k] = String(s)
		}
		return Map(m), nil
	case []any:
		l := make([]Value, len(t))
		for i, x := range t {
			v, err := FromAny(x)
			if err != nil {
				return Value{}, fmt.Errorf("index %d: %w", i, err)
			}
			l[i] = v
		}
		return List(l...), nil
	case []float64:
		l := make([]Value, len(t))
		for i, f := range t {
			l[i] = Number(f)
		}
		return List(l...), nil
	case []int:
		l := make([]Value, len(t))
		for i, n := range t {
			l[i] = Number(float64(n))
		}
		return List(l...), nil
	case []string:
		l := make([]Value, len(t))
		for i, s := range t {
			l[i] = String(s)
		}
		return List(l...), nil
	}
	return Value{}, fmt.Errorf("unsupported value type %T", x)
}

// ValuesFrom converts a plain mapping into Values, failing on the first
// unsupported entry. A nil map yields an empty, non-nil Values.
func ValuesFrom(m map[string]any) (Values, error) {
	out := make(Values, len(m))
	for k, x := range m {
		v, err := FromAny(x)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}
