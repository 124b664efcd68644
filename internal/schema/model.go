package schema

import (
	"sort"
	"strings"
)

// ResourceModel is the representation of a resource: attribute name → Value.
//
// All mutators report failure with false and leave the model untouched;
// automation loops call them on every tick and branch on the result.
//
// Thread Safety: not synchronised. The owning resource guards it.
type ResourceModel struct {
	attrs map[string]Value
}

// NewResourceModel creates an empty model.
func NewResourceModel() *ResourceModel {
	return &ResourceModel{attrs: make(map[string]Value)}
}

// Add inserts a new attribute. It fails if the name is empty, already
// present, or the value is invalid.
func (m *ResourceModel) Add(name string, v Value) bool {
	if name == "" || !v.IsValid() {
		return false
	}
	if _, exists := m.attrs[name]; exists {
		return false
	}
	m.attrs[name] = v.Clone()
	return true
}

// Update replaces the value of an existing attribute. It fails if the name
// is absent or the new value's TypeInfo differs from the stored one.
func (m *ResourceModel) Update(name string, v Value) bool {
	current, exists := m.attrs[name]
	if !exists {
		return false
	}
	if current.TypeInfo() != v.TypeInfo() {
		return false
	}
	m.attrs[name] = v.Clone()
	return true
}

// Set adds the attribute or updates it when the type matches.
func (m *ResourceModel) Set(name string, v Value) bool {
	if m.Contains(name) {
		return m.Update(name, v)
	}
	return m.Add(name, v)
}

// Remove deletes an attribute. It fails if the name is absent.
func (m *ResourceModel) Remove(name string) bool {
	if _, exists := m.attrs[name]; !exists {
		return false
	}
	delete(m.attrs, name)
	return true
}

// Contains reports whether the attribute exists.
func (m *ResourceModel) Contains(name string) bool {
	_, exists := m.attrs[name]
	return exists
}

// Size returns the number of attributes.
func (m *ResourceModel) Size() int {
	return len(m.attrs)
}

// Get returns a copy of the attribute value.
func (m *ResourceModel) Get(name string) (Value, bool) {
	v, exists := m.attrs[name]
	if !exists {
		return Value{}, false
	}
	return v.Clone(), true
}

// TypeOf returns the TypeInfo of the attribute.
func (m *ResourceModel) TypeOf(name string) (TypeInfo, bool) {
	v, exists := m.attrs[name]
	if !exists {
		return TypeInfo{}, false
	}
	return v.TypeInfo(), true
}

// AttributeNames returns the attribute names, sorted for stable output.
func (m *ResourceModel) AttributeNames() []string {
	names := make([]string, 0, len(m.attrs))
	for name := range m.attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy. A nil model clones to nil.
func (m *ResourceModel) Clone() *ResourceModel {
	if m == nil {
		return nil
	}
	cpy := &ResourceModel{attrs: make(map[string]Value, len(m.attrs))}
	for name, v := range m.attrs {
		cpy.attrs[name] = v.Clone()
	}
	return cpy
}

// Equal reports whether both models hold the same attributes and values.
func (m *ResourceModel) Equal(o *ResourceModel) bool {
	if m == nil || o == nil {
		return m == o
	}
	if len(m.attrs) != len(o.attrs) {
		return false
	}
	for name, v := range m.attrs {
		ov, exists := o.attrs[name]
		if !exists || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// String renders the model as {name: value, ...} in name order.
func (m *ResourceModel) String() string {
	if m == nil {
		return "{}"
	}
	names := m.AttributeNames()
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + ": " + m.attrs[name].String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
