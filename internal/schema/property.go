package schema

// Property is a schema node constraining an attribute's value domain.
//
// The set of implementations is closed: IntegerProperty, DoubleProperty,
// BooleanProperty, StringProperty, ArrayProperty and ModelProperty. Callers
// dispatch on the concrete type with a type switch.
type Property interface {
	// Kind returns the variant the node constrains. Arrays report TypeVector.
	Kind() ValueType

	// TypeInfo returns the type every valid value of this node has.
	TypeInfo() TypeInfo

	// Validate reports whether v satisfies the node. Values of a different
	// variant are always rejected.
	Validate(v Value) bool

	// BuildValue synthesises the node's default value (recursively for
	// arrays and models).
	BuildValue() Value

	// Description returns the free-text description from the definition.
	Description() string

	property()
}

// base carries the fields shared by every property node.
type base struct {
	description string
}

func (b *base) property() {}

// Description returns the property's description.
func (b *base) Description() string { return b.description }

// SetDescription sets the property's description.
func (b *base) SetDescription(d string) { b.description = d }

// numeric is the payload constraint for Integer and Double properties.
type numeric interface {
	~int | ~float64
}

// numericDomain is a default value constrained by either an inclusive range
// or an enumerated value set. The two constraints are mutually exclusive.
type numericDomain[T numeric] struct {
	def      T
	hasRange bool
	min, max T
	values   []T
}

// Default returns the default value.
func (d *numericDomain[T]) Default() T { return d.def }

// SetDefault sets the default value. A value outside the configured domain
// is replaced by the first enumerated value or the range minimum.
func (d *numericDomain[T]) SetDefault(v T) {
	d.def = v
	d.heal()
}

// SetRange constrains values to [min, max] and drops any value set.
func (d *numericDomain[T]) SetRange(min, max T) {
	if min > max {
		min, max = max, min
	}
	d.hasRange = true
	d.min, d.max = min, max
	d.values = nil
	d.heal()
}

// SetValues constrains values to the given set and drops any range.
// An empty set removes the constraint.
func (d *numericDomain[T]) SetValues(values []T) {
	d.values = append([]T(nil), values...)
	d.hasRange = false
	d.heal()
}

// Range returns the configured range.
func (d *numericDomain[T]) Range() (min, max T, ok bool) {
	return d.min, d.max, d.hasRange
}

// Values returns a copy of the enumerated value set.
func (d *numericDomain[T]) Values() []T {
	return append([]T(nil), d.values...)
}

// HasRange reports whether a range is configured.
func (d *numericDomain[T]) HasRange() bool { return d.hasRange }

// HasValues reports whether a value set is configured.
func (d *numericDomain[T]) HasValues() bool { return len(d.values) > 0 }

func (d *numericDomain[T]) allows(v T) bool {
	if d.hasRange {
		return v >= d.min && v <= d.max
	}
	if len(d.values) > 0 {
		for _, allowed := range d.values {
			if v == allowed {
				return true
			}
		}
		return false
	}
	return true
}

func (d *numericDomain[T]) heal() {
	if d.allows(d.def) {
		return
	}
	if len(d.values) > 0 {
		d.def = d.values[0]
		return
	}
	d.def = d.min
}

// IntegerProperty constrains Integer attributes.
type IntegerProperty struct {
	base
	numericDomain[int]
}

// NewIntegerProperty creates an unconstrained integer property.
func NewIntegerProperty(def int) *IntegerProperty {
	return &IntegerProperty{numericDomain: numericDomain[int]{def: def}}
}

// Kind implements Property.
func (p *IntegerProperty) Kind() ValueType { return TypeInteger }

// TypeInfo implements Property.
func (p *IntegerProperty) TypeInfo() TypeInfo { return ScalarType(TypeInteger) }

// Validate implements Property.
func (p *IntegerProperty) Validate(v Value) bool {
	n, ok := v.AsInt()
	return ok && p.allows(n)
}

// BuildValue implements Property.
func (p *IntegerProperty) BuildValue() Value { return Int(p.def) }

// DoubleProperty constrains Double attributes.
type DoubleProperty struct {
	base
	numericDomain[float64]
}

// NewDoubleProperty creates an unconstrained double property.
func NewDoubleProperty(def float64) *DoubleProperty {
	return &DoubleProperty{numericDomain: numericDomain[float64]{def: def}}
}

// Kind implements Property.
func (p *DoubleProperty) Kind() ValueType { return TypeDouble }

// TypeInfo implements Property.
func (p *DoubleProperty) TypeInfo() TypeInfo { return ScalarType(TypeDouble) }

// Validate implements Property.
func (p *DoubleProperty) Validate(v Value) bool {
	f, ok := v.AsDouble()
	return ok && p.allows(f)
}

// BuildValue implements Property.
func (p *DoubleProperty) BuildValue() Value { return Double(p.def) }

// BooleanProperty constrains Boolean attributes. Every boolean is valid.
type BooleanProperty struct {
	base
	def bool
}

// NewBooleanProperty creates a boolean property.
func NewBooleanProperty(def bool) *BooleanProperty {
	return &BooleanProperty{def: def}
}

// Default returns the default value.
func (p *BooleanProperty) Default() bool { return p.def }

// SetDefault sets the default value.
func (p *BooleanProperty) SetDefault(v bool) { p.def = v }

// Kind implements Property.
func (p *BooleanProperty) Kind() ValueType { return TypeBoolean }

// TypeInfo implements Property.
func (p *BooleanProperty) TypeInfo() TypeInfo { return ScalarType(TypeBoolean) }

// Validate implements Property.
func (p *BooleanProperty) Validate(v Value) bool {
	_, ok := v.AsBool()
	return ok
}

// BuildValue implements Property.
func (p *BooleanProperty) BuildValue() Value { return Bool(p.def) }
