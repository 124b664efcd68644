package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MarshalJSON encodes the value. Doubles always carry a fraction or exponent
// so that decoding restores the Double variant.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.info.Type {
	case TypeInteger:
		return []byte(strconv.Itoa(v.i)), nil
	case TypeDouble:
		if math.IsNaN(v.d) || math.IsInf(v.d, 0) {
			return nil, fmt.Errorf("%w: non-finite double", ErrInvalidValue)
		}
		s := strconv.FormatFloat(v.d, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return []byte(s), nil
	case TypeBoolean:
		return json.Marshal(v.b)
	case TypeString:
		return json.Marshal(v.s)
	case TypeModel:
		return v.m.MarshalJSON()
	case TypeVector:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := item.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: unset value", ErrInvalidValue)
	}
}

// MarshalJSON encodes the model as a JSON object.
func (m *ResourceModel) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range m.AttributeNames() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := m.attrs[name].MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object into the model, replacing its content.
func (m *ResourceModel) UnmarshalJSON(data []byte) error {
	v, err := ParseJSON(data)
	if err != nil {
		return err
	}
	decoded, ok := v.AsModel()
	if !ok {
		return fmt.Errorf("%w: representation must be an object", ErrInvalidValue)
	}
	m.attrs = decoded.attrs
	return nil
}

// ParseJSON decodes a JSON document into a Value.
//
// Numbers without fraction or exponent decode as Integer, other numbers as
// Double. Arrays take the type of their first element; every element must
// share it. Empty arrays decode as List<Integer>.
func ParseJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Value{}, fmt.Errorf("%w: %w", ErrInvalidValue, err)
	}
	return FromAny(raw)
}

// FromAny converts a decoded JSON tree (as produced by encoding/json with
// UseNumber, or plain Go scalars) into a Value.
func FromAny(raw any) (Value, error) {
	switch x := raw.(type) {
	case json.Number:
		s := x.String()
		if !strings.ContainsAny(s, ".eE") {
			if n, err := strconv.Atoi(s); err == nil {
				return Int(n), nil
			}
		}
		f, err := x.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("%w: %w", ErrInvalidValue, err)
		}
		return Double(f), nil
	case int:
		return Int(x), nil
	case int64:
		return Int(int(x)), nil
	case float64:
		return Double(x), nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case map[string]any:
		m := NewResourceModel()
		for name, child := range x {
			v, err := FromAny(child)
			if err != nil {
				return Value{}, fmt.Errorf("attribute %q: %w", name, err)
			}
			m.attrs[name] = v
		}
		return Value{info: ScalarType(TypeModel), m: m}, nil
	case []any:
		return listFromAny(x)
	case nil:
		return Value{}, fmt.Errorf("%w: null", ErrInvalidValue)
	default:
		return Value{}, fmt.Errorf("%w: unsupported %T", ErrInvalidValue, raw)
	}
}

func listFromAny(raw []any) (Value, error) {
	if len(raw) == 0 {
		return ListOf(ScalarType(TypeInteger)), nil
	}
	items := make([]Value, len(raw))
	for i, r := range raw {
		v, err := FromAny(r)
		if err != nil {
			return Value{}, err
		}
		items[i] = v
	}
	elem := items[0].TypeInfo()
	for _, item := range items[1:] {
		if item.TypeInfo() != elem {
			return Value{}, fmt.Errorf("%w: mixed element types %s and %s", ErrInvalidValue, elem, item.TypeInfo())
		}
	}
	if elem.Depth+1 > MaxDepth {
		return Value{}, fmt.Errorf("%w: nesting deeper than %d", ErrInvalidValue, MaxDepth)
	}
	return Value{info: ListType(elem.BaseType, elem.Depth+1), items: items}, nil
}
