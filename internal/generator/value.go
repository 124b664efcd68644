package generator

import (
	"slices"

	"github.com/nerrad567/gray-logic-simulator/internal/schema"
)

// ValueGenerator walks a finite value domain in order.
type ValueGenerator interface {
	// HasNext reports whether Next would produce a value.
	HasNext() bool

	// Next returns the current value and advances. It returns an invalid
	// Value once the domain is exhausted.
	Next() schema.Value

	// Reset rewinds to the first value.
	Reset()
}

// IntRange yields min, min+1, ... max. A range ending at math.MaxInt
// stops there instead of wrapping.
type IntRange struct {
	min, max int
	cur      int
	done     bool
}

// NewIntRange creates a generator over [min, max].
func NewIntRange(min, max int) *IntRange {
	return &IntRange{min: min, max: max, cur: min, done: min > max}
}

// HasNext reports whether a value remains.
func (g *IntRange) HasNext() bool { return !g.done }

// Next returns the current value and advances. It returns an invalid Value
// once max has been produced.
func (g *IntRange) Next() schema.Value {
	if g.done {
		return schema.Value{}
	}
	v := schema.Int(g.cur)
	if g.cur == g.max {
		g.done = true
	} else {
		g.cur++
	}
	return v
}

// Reset rewinds to min.
func (g *IntRange) Reset() {
	g.cur = g.min
	g.done = g.min > g.max
}

// DoubleRange yields min, min+1, ... while the value does not exceed max.
// Steps are whole units, so fractional ranges narrower than one unit
// produce only min. Where a unit step no longer changes the value (large
// magnitudes) the range ends after the current value.
type DoubleRange struct {
	min, max float64
	cur      float64
	done     bool
}

// NewDoubleRange creates a generator over [min, max] with unit steps.
func NewDoubleRange(min, max float64) *DoubleRange {
	return &DoubleRange{min: min, max: max, cur: min, done: !(min <= max)}
}

// HasNext reports whether a value remains.
func (g *DoubleRange) HasNext() bool { return !g.done }

// Next returns the current value and advances by one unit. It returns an
// invalid Value once the range is exhausted.
func (g *DoubleRange) Next() schema.Value {
	if g.done {
		return schema.Value{}
	}
	v := schema.Double(g.cur)
	next := g.cur + 1
	if next <= g.cur || next > g.max {
		g.done = true
	} else {
		g.cur = next
	}
	return v
}

// Reset rewinds to min.
func (g *DoubleRange) Reset() {
	g.cur = g.min
	g.done = !(g.min <= g.max)
}

// ValuesSet iterates a fixed ordered list once.
type ValuesSet struct {
	values []schema.Value
	idx    int
}

// NewValuesSet creates a generator over values.
func NewValuesSet(values ...schema.Value) *ValuesSet {
	return &ValuesSet{values: slices.Clone(values)}
}

// HasNext reports whether a value remains.
func (g *ValuesSet) HasNext() bool { return g.idx < len(g.values) }

// Next returns the current value and advances. It returns an invalid Value
// past the end of the set.
func (g *ValuesSet) Next() schema.Value {
	if !g.HasNext() {
		return schema.Value{}
	}
	v := g.values[g.idx]
	g.idx++
	return v
}

// Reset rewinds to the first value.
func (g *ValuesSet) Reset() { g.idx = 0 }

// Len returns the size of the set.
func (g *ValuesSet) Len() int { return len(g.values) }

// ForProperty selects a generator for the property's domain: a range
// generator when a range is configured, a set generator for an enumerated
// value set, and {true, false} for booleans. It returns nil when the
// property has nothing to enumerate (unconstrained scalars, strings with
// only a length range, arrays and models).
func ForProperty(p schema.Property) ValueGenerator {
	switch p := p.(type) {
	case *schema.IntegerProperty:
		if min, max, ok := p.Range(); ok {
			return NewIntRange(min, max)
		}
		if p.HasValues() {
			return NewValuesSet(mapValues(p.Values(), schema.Int)...)
		}
	case *schema.DoubleProperty:
		if min, max, ok := p.Range(); ok {
			return NewDoubleRange(min, max)
		}
		if p.HasValues() {
			return NewValuesSet(mapValues(p.Values(), schema.Double)...)
		}
	case *schema.StringProperty:
		if p.HasValues() {
			return NewValuesSet(mapValues(p.Values(), schema.String)...)
		}
	case *schema.BooleanProperty:
		return NewValuesSet(schema.Bool(true), schema.Bool(false))
	}
	return nil
}

func mapValues[T any](in []T, wrap func(T) schema.Value) []schema.Value {
	out := make([]schema.Value, len(in))
	for i, v := range in {
		out[i] = wrap(v)
	}
	return out
}
