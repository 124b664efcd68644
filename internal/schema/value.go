package schema

import (
	"strconv"
	"strings"
)

// MaxDepth is the deepest list nesting a Value may carry (List<List<List<T>>>).
const MaxDepth = 3

// ValueType identifies the variant held by a Value.
type ValueType int

// Value variants. TypeVector marks a list; its element variant is the
// TypeInfo.BaseType.
const (
	TypeUnknown ValueType = iota
	TypeInteger
	TypeDouble
	TypeBoolean
	TypeString
	TypeModel
	TypeVector
)

// String returns the lower-case variant name.
func (t ValueType) String() string {
	switch t {
	case TypeInteger:
		return "integer"
	case TypeDouble:
		return "double"
	case TypeBoolean:
		return "boolean"
	case TypeString:
		return "string"
	case TypeModel:
		return "model"
	case TypeVector:
		return "vector"
	default:
		return "unknown"
	}
}

// ParseValueType converts a variant name (as used in definition files) to a ValueType.
func ParseValueType(s string) ValueType {
	switch strings.ToLower(s) {
	case "integer", "int":
		return TypeInteger
	case "double", "number", "float":
		return TypeDouble
	case "boolean", "bool":
		return TypeBoolean
	case "string":
		return TypeString
	case "model", "object":
		return TypeModel
	case "vector", "array":
		return TypeVector
	default:
		return TypeUnknown
	}
}

// TypeInfo is the structural type of a Value.
//
// For scalars Type == BaseType and Depth == 0. For lists Type is TypeVector,
// BaseType is the innermost element variant and Depth counts the nesting.
// Two TypeInfos are equal iff all three fields match, so == is the comparison.
type TypeInfo struct {
	Type     ValueType
	BaseType ValueType
	Depth    int
}

// ScalarType returns the TypeInfo of a non-list variant.
func ScalarType(t ValueType) TypeInfo {
	return TypeInfo{Type: t, BaseType: t}
}

// ListType returns the TypeInfo of a list of the given base variant and depth.
func ListType(base ValueType, depth int) TypeInfo {
	if depth <= 0 {
		return ScalarType(base)
	}
	return TypeInfo{Type: TypeVector, BaseType: base, Depth: depth}
}

// IsList reports whether the type describes a list.
func (t TypeInfo) IsList() bool {
	return t.Type == TypeVector
}

// Elem returns the element type of a list type. For scalars it returns t.
func (t TypeInfo) Elem() TypeInfo {
	if !t.IsList() {
		return t
	}
	return ListType(t.BaseType, t.Depth-1)
}

// String renders the type as e.g. "integer" or "vector<vector<string>>".
func (t TypeInfo) String() string {
	if !t.IsList() {
		return t.Type.String()
	}
	return strings.Repeat("vector<", t.Depth) + t.BaseType.String() + strings.Repeat(">", t.Depth)
}

// Value is a single attribute value.
//
// The zero Value is invalid (TypeUnknown). Values are built with the
// constructors below and are treated as immutable; Model payloads are
// copied on construction and on Clone.
type Value struct {
	info  TypeInfo
	i     int
	d     float64
	b     bool
	s     string
	m     *ResourceModel
	items []Value
}

// Int returns an Integer value.
func Int(v int) Value { return Value{info: ScalarType(TypeInteger), i: v} }

// Double returns a Double value.
func Double(v float64) Value { return Value{info: ScalarType(TypeDouble), d: v} }

// Bool returns a Boolean value.
func Bool(v bool) Value { return Value{info: ScalarType(TypeBoolean), b: v} }

// String returns a String value.
func String(v string) Value { return Value{info: ScalarType(TypeString), s: v} }

// Model returns a Model value holding a copy of m. A nil model is stored as empty.
func Model(m *ResourceModel) Value {
	if m == nil {
		m = NewResourceModel()
	}
	return Value{info: ScalarType(TypeModel), m: m.Clone()}
}

// ListOf returns a list whose elements have type elem.
//
// Element types are not re-checked here; a list holding mismatched elements
// fails Property validation.
func ListOf(elem TypeInfo, items ...Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{info: ListType(elem.BaseType, elem.Depth+1), items: cp}
}

// IntList returns a List<Integer>.
func IntList(vs ...int) Value {
	items := make([]Value, len(vs))
	for i, v := range vs {
		items[i] = Int(v)
	}
	return ListOf(ScalarType(TypeInteger), items...)
}

// DoubleList returns a List<Double>.
func DoubleList(vs ...float64) Value {
	items := make([]Value, len(vs))
	for i, v := range vs {
		items[i] = Double(v)
	}
	return ListOf(ScalarType(TypeDouble), items...)
}

// BoolList returns a List<Boolean>.
func BoolList(vs ...bool) Value {
	items := make([]Value, len(vs))
	for i, v := range vs {
		items[i] = Bool(v)
	}
	return ListOf(ScalarType(TypeBoolean), items...)
}

// StringList returns a List<String>.
func StringList(vs ...string) Value {
	items := make([]Value, len(vs))
	for i, v := range vs {
		items[i] = String(v)
	}
	return ListOf(ScalarType(TypeString), items...)
}

// TypeInfo returns the structural type of the value.
func (v Value) TypeInfo() TypeInfo { return v.info }

// Type returns the top-level variant.
func (v Value) Type() ValueType { return v.info.Type }

// IsValid reports whether the value holds a variant.
func (v Value) IsValid() bool { return v.info.Type != TypeUnknown }

// AsInt returns the Integer payload.
func (v Value) AsInt() (int, bool) {
	return v.i, v.info.Type == TypeInteger
}

// AsDouble returns the Double payload.
func (v Value) AsDouble() (float64, bool) {
	return v.d, v.info.Type == TypeDouble
}

// AsBool returns the Boolean payload.
func (v Value) AsBool() (bool, bool) {
	return v.b, v.info.Type == TypeBoolean
}

// AsString returns the String payload.
func (v Value) AsString() (string, bool) {
	return v.s, v.info.Type == TypeString
}

// AsModel returns a copy of the Model payload.
func (v Value) AsModel() (*ResourceModel, bool) {
	if v.info.Type != TypeModel {
		return nil, false
	}
	return v.m.Clone(), true
}

// AsList returns a copy of the list elements.
func (v Value) AsList() ([]Value, bool) {
	if !v.info.IsList() {
		return nil, false
	}
	cp := make([]Value, len(v.items))
	copy(cp, v.items)
	return cp, true
}

// Len returns the number of list elements, or 0 for scalars.
func (v Value) Len() int { return len(v.items) }

// Float returns the numeric payload of an Integer or Double value.
func (v Value) Float() (float64, bool) {
	switch v.info.Type {
	case TypeInteger:
		return float64(v.i), true
	case TypeDouble:
		return v.d, true
	default:
		return 0, false
	}
}

// Equal reports deep equality, including the type.
func (v Value) Equal(o Value) bool {
	if v.info != o.info {
		return false
	}
	switch v.info.Type {
	case TypeInteger:
		return v.i == o.i
	case TypeDouble:
		return v.d == o.d
	case TypeBoolean:
		return v.b == o.b
	case TypeString:
		return v.s == o.s
	case TypeModel:
		return v.m.Equal(o.m)
	case TypeVector:
		if len(v.items) != len(o.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(o.items[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// Clone returns a deep copy.
func (v Value) Clone() Value {
	cpy := v
	switch v.info.Type {
	case TypeModel:
		cpy.m = v.m.Clone()
	case TypeVector:
		cpy.items = make([]Value, len(v.items))
		for i, item := range v.items {
			cpy.items[i] = item.Clone()
		}
	}
	return cpy
}

// ConvertTo returns v expressed as type t where a lossless widening exists
// (Integer → Double, element-wise through lists). It is used at decode
// boundaries where JSON does not distinguish 21 from 21.0.
func (v Value) ConvertTo(t TypeInfo) (Value, bool) {
	if v.info == t {
		return v, true
	}
	switch {
	case v.info.Type == TypeInteger && t.Type == TypeDouble:
		return Double(float64(v.i)), true
	case v.info.IsList() && t.IsList() && v.info.Depth == t.Depth:
		elem := t.Elem()
		items := make([]Value, len(v.items))
		for i, item := range v.items {
			c, ok := item.ConvertTo(elem)
			if !ok {
				return Value{}, false
			}
			items[i] = c
		}
		return ListOf(elem, items...), true
	default:
		return Value{}, false
	}
}

// String renders the value for logs and the API.
func (v Value) String() string {
	switch v.info.Type {
	case TypeInteger:
		return strconv.Itoa(v.i)
	case TypeDouble:
		return strconv.FormatFloat(v.d, 'g', -1, 64)
	case TypeBoolean:
		return strconv.FormatBool(v.b)
	case TypeString:
		return v.s
	case TypeModel:
		return v.m.String()
	case TypeVector:
		parts := make([]string, len(v.items))
		for i, item := range v.items {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return "<unknown>"
	}
}
