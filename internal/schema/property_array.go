package schema

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// ArrayProperty constrains list attributes. Its element property determines
// the list's base type; the element's own depth may not exceed MaxDepth-1.
type ArrayProperty struct {
	base
	elem     Property
	hasRange bool
	min, max int
	variable bool
	unique   bool
}

// NewArrayProperty creates an array of elem with no length constraint.
func NewArrayProperty(elem Property) (*ArrayProperty, error) {
	p := &ArrayProperty{}
	if err := p.SetElementProperty(elem); err != nil {
		return nil, err
	}
	return p, nil
}

// SetElementProperty sets the element schema. It returns ErrBadSchema when
// elem is nil or nesting it would push the array deeper than MaxDepth.
func (p *ArrayProperty) SetElementProperty(elem Property) error {
	if elem == nil {
		return fmt.Errorf("%w: array has no element property", ErrBadSchema)
	}
	if d := elem.TypeInfo().Depth; d+1 > MaxDepth {
		return fmt.Errorf("%w: array depth %d exceeds %d", ErrBadSchema, d+1, MaxDepth)
	}
	p.elem = elem
	return nil
}

// ElementProperty returns the element schema.
func (p *ArrayProperty) ElementProperty() Property { return p.elem }

// SetRange constrains the number of items to [min, max].
func (p *ArrayProperty) SetRange(min, max int) {
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
}

// Range returns the configured item-count range.
func (p *ArrayProperty) Range() (min, max int, ok bool) {
	return p.min, p.max, p.hasRange
}

// SetVariable allows lists longer than the range maximum.
func (p *ArrayProperty) SetVariable(v bool) { p.variable = v }

// IsVariable reports whether lists may exceed the range maximum.
func (p *ArrayProperty) IsVariable() bool { return p.variable }

// SetUnique requires all items to differ.
func (p *ArrayProperty) SetUnique(v bool) { p.unique = v }

// IsUnique reports whether items must differ.
func (p *ArrayProperty) IsUnique() bool { return p.unique }

// Kind implements Property.
func (p *ArrayProperty) Kind() ValueType { return TypeVector }

// TypeInfo implements Property.
func (p *ArrayProperty) TypeInfo() TypeInfo {
	if p.elem == nil {
		return ListType(TypeUnknown, 1)
	}
	return ListOf(p.elem.TypeInfo()).TypeInfo()
}

// Validate implements Property. Length, uniqueness and every element must
// all pass.
func (p *ArrayProperty) Validate(v Value) bool {
	if p.elem == nil || v.TypeInfo() != p.TypeInfo() {
		return false
	}
	n := len(v.items)
	if p.hasRange {
		if n < p.min {
			return false
		}
		if n > p.max && !p.variable {
			return false
		}
	}
	if p.unique {
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				if v.items[i].Equal(v.items[j]) {
					return false
				}
			}
		}
	}
	for _, item := range v.items {
		if !p.elem.Validate(item) {
			return false
		}
	}
	return true
}

// BuildValue implements Property. The default is the element default
// replicated into a singleton list; when the range forbids a singleton the
// count is clamped into it. Unique arrays draw distinct items from the
// element's domain instead, starting with the element default. Models and
// nested arrays have only their default to offer, so a unique list of two
// or more of them fails Validate; CheckDefault reports that case.
func (p *ArrayProperty) BuildValue() Value {
	if p.elem == nil {
		return Value{}
	}
	count := 1
	if p.hasRange {
		if count < p.min {
			count = p.min
		}
		if count > p.max && !p.variable {
			count = p.max
		}
	}
	if p.unique && count > 1 {
		if items := distinctItems(p.elem, count); len(items) == count {
			return ListOf(p.elem.TypeInfo(), items...)
		}
	}
	items := make([]Value, count)
	for i := range items {
		items[i] = p.elem.BuildValue()
	}
	return ListOf(p.elem.TypeInfo(), items...)
}

// CheckDefault returns ErrBadSchema when the array's own default does not
// validate, as for a unique array whose range demands more items than the
// element domain holds.
func (p *ArrayProperty) CheckDefault() error {
	if p.elem == nil {
		return fmt.Errorf("%w: array has no element property", ErrBadSchema)
	}
	if !p.Validate(p.BuildValue()) {
		return fmt.Errorf("%w: no %d distinct %s items satisfy the element schema",
			ErrBadSchema, p.min, p.elem.TypeInfo())
	}
	return nil
}

// distinctItems returns up to n pairwise distinct values valid for elem,
// the element default first.
func distinctItems(elem Property, n int) []Value {
	out := make([]Value, 0, n)
	add := func(v Value) bool {
		if elem.Validate(v) && !slices.ContainsFunc(out, v.Equal) {
			out = append(out, v)
		}
		return len(out) < n
	}

	if !add(elem.BuildValue()) {
		return out
	}
	switch e := elem.(type) {
	case *IntegerProperty:
		switch min, max, ok := e.Range(); {
		case ok:
			for v := min; add(Int(v)) && v < max; v++ {
			}
		case e.HasValues():
			for _, v := range e.Values() {
				if !add(Int(v)) {
					break
				}
			}
		default:
			for v := e.Default(); v < math.MaxInt && add(Int(v+1)); v++ {
			}
		}
	case *DoubleProperty:
		switch min, max, ok := e.Range(); {
		case ok:
			for v := min; v <= max && add(Double(v)) && v+1 > v; v++ {
			}
		case e.HasValues():
			for _, v := range e.Values() {
				if !add(Double(v)) {
					break
				}
			}
		default:
			for v := e.Default(); v+1 > v && add(Double(v+1)); v++ {
			}
		}
	case *BooleanProperty:
		add(Bool(!e.Default()))
	case *StringProperty:
		if e.HasValues() {
			for _, v := range e.Values() {
				if !add(String(v)) {
					break
				}
			}
			break
		}
		// Base-36 counters, zero-padded up to the minimum length.
		min, max, ok := e.Range()
		for i := int64(0); ; i++ {
			s := strconv.FormatInt(i, 36)
			if len(s) < min {
				s = strings.Repeat("0", min-len(s)) + s
			}
			if ok && len(s) > max {
				break
			}
			if !add(String(s)) {
				break
			}
		}
	}
	return out
}
