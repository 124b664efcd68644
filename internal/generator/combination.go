package generator

import (
	"iter"
	"slices"

	"github.com/nerrad567/gray-logic-simulator/internal/schema"
)

// AttributeGenerator pairs an attribute name with the generator of its domain.
type AttributeGenerator struct {
	Name string
	gen  ValueGenerator
}

// NewAttributeGenerator creates an attribute generator.
func NewAttributeGenerator(name string, gen ValueGenerator) *AttributeGenerator {
	return &AttributeGenerator{Name: name, gen: gen}
}

// HasNext reports whether Next would produce a value.
func (a *AttributeGenerator) HasNext() bool { return a.gen != nil && a.gen.HasNext() }

// Next advances and reports whether a value was produced.
func (a *AttributeGenerator) Next() (schema.Value, bool) {
	if !a.HasNext() {
		return schema.Value{}, false
	}
	return a.gen.Next(), true
}

// Reset rewinds the underlying generator.
func (a *AttributeGenerator) Reset() {
	if a.gen != nil {
		a.gen.Reset()
	}
}

// AttributesFor builds one AttributeGenerator per enumerable child of the
// model schema, in schema order. Children with nothing to enumerate are
// skipped.
func AttributesFor(p *schema.ModelProperty) []*AttributeGenerator {
	var out []*AttributeGenerator
	for _, name := range p.Names() {
		child, _ := p.Get(name)
		if gen := ForProperty(child); gen != nil {
			out = append(out, NewAttributeGenerator(name, gen))
		}
	}
	return out
}

// Combinations enumerates the cross-product of several attribute domains
// exactly once, in odometer order with the last attribute advancing fastest.
//
// It is a single-owner iterator: a new instance is needed to enumerate again.
// Every emitted model is an independent copy.
type Combinations struct {
	attrs   []*AttributeGenerator
	current *schema.ResourceModel
	seeded  bool
	done    bool
}

// NewCombinations creates an iterator over attrs. The generators are reset
// first; they must not be shared with another iterator.
func NewCombinations(attrs []*AttributeGenerator) *Combinations {
	c := &Combinations{attrs: slices.Clone(attrs)}
	for _, a := range c.attrs {
		a.Reset()
	}
	if len(c.attrs) == 0 {
		c.done = true
	}
	return c
}

// Next returns the next combination, or false when the product is exhausted.
func (c *Combinations) Next() (*schema.ResourceModel, bool) {
	if c.done {
		return nil, false
	}
	if !c.seeded {
		return c.seed()
	}

	last := len(c.attrs) - 1
	if c.attrs[last].HasNext() {
		c.advance(last)
		return c.current.Clone(), true
	}

	// Carry: rewind exhausted positions from the right and advance the first
	// position that still has a value. Exhaustion at index 0 ends the walk.
	for i := last; i >= 0; i-- {
		if c.attrs[i].HasNext() {
			c.advance(i)
			return c.current.Clone(), true
		}
		if i == 0 {
			break
		}
		c.attrs[i].Reset()
		c.advance(i)
	}
	c.done = true
	return nil, false
}

// All returns the remaining combinations as a sequence.
func (c *Combinations) All() iter.Seq[*schema.ResourceModel] {
	return func(yield func(*schema.ResourceModel) bool) {
		for {
			m, ok := c.Next()
			if !ok || !yield(m) {
				return
			}
		}
	}
}

func (c *Combinations) seed() (*schema.ResourceModel, bool) {
	c.seeded = true
	c.current = schema.NewResourceModel()
	for _, a := range c.attrs {
		v, ok := a.Next()
		if !ok {
			c.done = true
			return nil, false
		}
		c.current.Add(a.Name, v)
	}
	return c.current.Clone(), true
}

func (c *Combinations) advance(i int) {
	a := c.attrs[i]
	v, _ := a.Next()
	c.current.Set(a.Name, v)
}
