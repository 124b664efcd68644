package schema

import (
	"fmt"
	"slices"
)

// ModelProperty is an ordered set of named child properties, each with a
// required flag. It is the root schema of every simulated resource.
type ModelProperty struct {
	base
	names    []string
	children map[string]Property
	required map[string]bool
}

// NewModelProperty creates an empty model schema.
func NewModelProperty() *ModelProperty {
	return &ModelProperty{
		children: make(map[string]Property),
		required: make(map[string]bool),
	}
}

// Add appends a child property.
func (p *ModelProperty) Add(name string, child Property, required bool) error {
	if name == "" {
		return fmt.Errorf("%w: empty property name", ErrBadSchema)
	}
	if child == nil {
		return fmt.Errorf("%w: property %q is nil", ErrBadSchema, name)
	}
	if _, exists := p.children[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateProperty, name)
	}
	p.names = append(p.names, name)
	p.children[name] = child
	if required {
		p.required[name] = true
	}
	return nil
}

// SetRequired marks an existing child as required.
func (p *ModelProperty) SetRequired(name string) error {
	if _, exists := p.children[name]; !exists {
		return fmt.Errorf("%w: %q", ErrUnknownProperty, name)
	}
	p.required[name] = true
	return nil
}

// IsRequired reports whether the child is required.
func (p *ModelProperty) IsRequired(name string) bool { return p.required[name] }

// Remove deletes a child and its required flag.
func (p *ModelProperty) Remove(name string) bool {
	if _, exists := p.children[name]; !exists {
		return false
	}
	delete(p.children, name)
	delete(p.required, name)
	p.names = slices.DeleteFunc(p.names, func(n string) bool { return n == name })
	return true
}

// Get returns the child property.
func (p *ModelProperty) Get(name string) (Property, bool) {
	child, ok := p.children[name]
	return child, ok
}

// Names returns the child names in insertion order.
func (p *ModelProperty) Names() []string { return slices.Clone(p.names) }

// RequiredNames returns the required child names in insertion order.
func (p *ModelProperty) RequiredNames() []string {
	var out []string
	for _, name := range p.names {
		if p.required[name] {
			out = append(out, name)
		}
	}
	return out
}

// Size returns the number of children.
func (p *ModelProperty) Size() int { return len(p.names) }

// Kind implements Property.
func (p *ModelProperty) Kind() ValueType { return TypeModel }

// TypeInfo implements Property.
func (p *ModelProperty) TypeInfo() TypeInfo { return ScalarType(TypeModel) }

// Validate implements Property.
func (p *ModelProperty) Validate(v Value) bool {
	if v.Type() != TypeModel {
		return false
	}
	return p.ValidateModel(v.m)
}

// ValidateModel checks every attribute that has a matching child. Attributes
// without one are ignored; missing required attributes are not an error.
func (p *ModelProperty) ValidateModel(m *ResourceModel) bool {
	if m == nil {
		return true
	}
	for name, v := range m.attrs {
		if !p.ValidateAttribute(name, v) {
			return false
		}
	}
	return true
}

// ValidateAttribute checks a single attribute. Names without a matching
// child are accepted.
func (p *ModelProperty) ValidateAttribute(name string, v Value) bool {
	child, ok := p.children[name]
	if !ok {
		return true
	}
	return child.Validate(v)
}

// BuildValue implements Property.
func (p *ModelProperty) BuildValue() Value {
	return Value{info: ScalarType(TypeModel), m: p.BuildModel()}
}

// BuildModel synthesises a model holding every child's default.
func (p *ModelProperty) BuildModel() *ResourceModel {
	m := NewResourceModel()
	for _, name := range p.names {
		m.Add(name, p.children[name].BuildValue())
	}
	return m
}
