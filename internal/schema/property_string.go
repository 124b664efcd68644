package schema

import (
	"slices"
	"strings"
)

// padRune fills defaults that are shorter than the configured minimum length.
const padRune = 'x'

// StringProperty constrains String attributes by length range or by an
// enumerated value set.
type StringProperty struct {
	base
	def      string
	hasRange bool
	min, max int
	values   []string
}

// NewStringProperty creates an unconstrained string property.
func NewStringProperty(def string) *StringProperty {
	return &StringProperty{def: def}
}

// Kind implements Property.
func (p *StringProperty) Kind() ValueType { return TypeString }

// Default returns the default value.
func (p *StringProperty) Default() string { return p.def }

// SetDefault sets the default value, snapping it into the configured domain.
func (p *StringProperty) SetDefault(v string) {
	p.def = v
	p.heal()
}

// SetRange constrains the string length (in runes) to [min, max] and drops
// any value set.
func (p *StringProperty) SetRange(min, max int) {
	if min < 0 {
		min = 0
	}
	if max < 0 {
		max = 0
	}
	if min > max {
		min, max = max, min
	}
	p.hasRange = true
	p.min, p.max = min, max
	p.values = nil
	p.heal()
}

// SetValues constrains values to the given set and drops any length range.
func (p *StringProperty) SetValues(values []string) {
	p.values = slices.Clone(values)
	p.hasRange = false
	p.heal()
}

// Range returns the configured length range.
func (p *StringProperty) Range() (min, max int, ok bool) {
	return p.min, p.max, p.hasRange
}

// Values returns a copy of the enumerated value set.
func (p *StringProperty) Values() []string { return slices.Clone(p.values) }

// HasRange reports whether a length range is configured.
func (p *StringProperty) HasRange() bool { return p.hasRange }

// HasValues reports whether a value set is configured.
func (p *StringProperty) HasValues() bool { return len(p.values) > 0 }

// TypeInfo implements Property.
func (p *StringProperty) TypeInfo() TypeInfo { return ScalarType(TypeString) }

// Validate implements Property.
func (p *StringProperty) Validate(v Value) bool {
	s, ok := v.AsString()
	return ok && p.allows(s)
}

// BuildValue implements Property.
func (p *StringProperty) BuildValue() Value { return String(p.def) }

func (p *StringProperty) allows(s string) bool {
	if p.hasRange {
		n := len([]rune(s))
		return n >= p.min && n <= p.max
	}
	if len(p.values) > 0 {
		return slices.Contains(p.values, s)
	}
	return true
}

func (p *StringProperty) heal() {
	if p.allows(p.def) {
		return
	}
	if len(p.values) > 0 {
		p.def = p.values[0]
		return
	}
	r := []rune(p.def)
	if len(r) > p.max {
		p.def = string(r[:p.max])
		return
	}
	p.def += strings.Repeat(string(padRune), p.min-len(r))
}
