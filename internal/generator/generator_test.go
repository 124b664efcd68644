package generator

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"testing"

	"github.com/nerrad567/gray-logic-simulator/internal/schema"
)

func TestIntRange(t *testing.T) {
	g := NewIntRange(2, 4)

	var got []int
	for g.HasNext() {
		n, _ := g.Next().AsInt()
		got = append(got, n)
	}
	if !slices.Equal(got, []int{2, 3, 4}) {
		t.Errorf("sequence = %v, want [2 3 4]", got)
	}
	if g.HasNext() {
		t.Error("HasNext() after exhaustion = true")
	}
	if g.Next().IsValid() {
		t.Error("Next() after exhaustion returned a valid value")
	}

	g.Reset()
	if n, _ := g.Next().AsInt(); n != 2 {
		t.Errorf("first value after Reset() = %d, want 2", n)
	}
}

func TestDoubleRangeUnitStep(t *testing.T) {
	g := NewDoubleRange(0.5, 2.7)
	var got []float64
	for g.HasNext() {
		f, _ := g.Next().AsDouble()
		got = append(got, f)
	}
	if !slices.Equal(got, []float64{0.5, 1.5, 2.5}) {
		t.Errorf("sequence = %v", got)
	}
}

func TestValuesSet(t *testing.T) {
	g := NewValuesSet(schema.String("a"), schema.String("b"))
	first := g.Next()
	g.Next()
	if g.HasNext() {
		t.Error("HasNext() after two values = true")
	}
	g.Reset()
	if !g.Next().Equal(first) {
		t.Error("Reset() did not rewind")
	}
}

func TestForProperty(t *testing.T) {
	ranged := schema.NewIntegerProperty(0)
	ranged.SetRange(1, 3)

	set := schema.NewStringProperty("")
	set.SetValues([]string{"low", "high"})

	lengthOnly := schema.NewStringProperty("")
	lengthOnly.SetRange(1, 5)

	arr, _ := schema.NewArrayProperty(schema.NewIntegerProperty(0))

	tests := []struct {
		name string
		prop schema.Property
		want int
	}{
		{"integer range", ranged, 3},
		{"string set", set, 2},
		{"boolean", schema.NewBooleanProperty(false), 2},
		{"unconstrained integer", schema.NewIntegerProperty(0), -1},
		{"string length range", lengthOnly, -1},
		{"array", arr, -1},
		{"model", schema.NewModelProperty(), -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := ForProperty(tt.prop)
			if tt.want < 0 {
				if g != nil {
					t.Errorf("ForProperty() = %T, want nil", g)
				}
				return
			}
			if g == nil {
				t.Fatal("ForProperty() = nil")
			}
			n := 0
			for g.HasNext() {
				if !tt.prop.Validate(g.Next()) {
					t.Error("generated value fails the property")
				}
				n++
			}
			if n != tt.want {
				t.Errorf("domain size = %d, want %d", n, tt.want)
			}
		})
	}
}

func modelKey(m *schema.ResourceModel, names ...string) string {
	parts := make([]string, len(names))
	for i, name := range names {
		v, _ := m.Get(name)
		parts[i] = v.String()
	}
	return strings.Join(parts, ",")
}

func TestCombinationsOrder(t *testing.T) {
	attrs := []*AttributeGenerator{
		NewAttributeGenerator("power", NewValuesSet(schema.Bool(false), schema.Bool(true))),
		NewAttributeGenerator("mode", NewValuesSet(schema.String("a"), schema.String("b"), schema.String("c"))),
	}

	var got []string
	for m := range NewCombinations(attrs).All() {
		got = append(got, modelKey(m, "power", "mode"))
	}
	want := []string{"false,a", "false,b", "false,c", "true,a", "true,b", "true,c"}
	if !slices.Equal(got, want) {
		t.Errorf("combinations = %v\nwant %v", got, want)
	}
}

func TestCombinationsCount(t *testing.T) {
	tests := [][]int{
		{1},
		{3},
		{1, 1},
		{1, 3},
		{3, 1},
		{2, 1, 2},
		{1, 4, 1},
		{2, 3, 4},
		{0, 2},
		{2, 0},
	}

	for _, sizes := range tests {
		t.Run(fmt.Sprint(sizes), func(t *testing.T) {
			var attrs []*AttributeGenerator
			names := make([]string, len(sizes))
			want := 1
			for i, n := range sizes {
				names[i] = fmt.Sprintf("a%d", i)
				if n == 0 {
					attrs = append(attrs, NewAttributeGenerator(names[i], NewValuesSet()))
				} else {
					attrs = append(attrs, NewAttributeGenerator(names[i], NewIntRange(0, n-1)))
				}
				want *= n
			}

			seen := make(map[string]bool)
			c := NewCombinations(attrs)
			for {
				m, ok := c.Next()
				if !ok {
					break
				}
				key := modelKey(m, names...)
				if seen[key] {
					t.Fatalf("combination %s emitted twice", key)
				}
				seen[key] = true
			}
			if len(seen) != want {
				t.Errorf("emitted %d combinations, want %d", len(seen), want)
			}
			if _, ok := c.Next(); ok {
				t.Error("Next() after exhaustion returned a model")
			}
			if got := countCombinations(attrs); got != want {
				t.Errorf("countCombinations() = %d, want %d", got, want)
			}
		})
	}
}

func TestCombinationsNoAttributes(t *testing.T) {
	if _, ok := NewCombinations(nil).Next(); ok {
		t.Error("zero attributes produced a combination")
	}
}

func TestCombinationsEmitCopies(t *testing.T) {
	attrs := []*AttributeGenerator{NewAttributeGenerator("n", NewIntRange(1, 2))}
	c := NewCombinations(attrs)
	first, _ := c.Next()
	c.Next()
	if v, _ := first.Get("n"); !v.Equal(schema.Int(1)) {
		t.Errorf("first combination changed to %v", v)
	}
}

func TestAttributesFor(t *testing.T) {
	level := schema.NewIntegerProperty(0)
	level.SetRange(0, 2)
	p := schema.NewModelProperty()
	_ = p.Add("power", schema.NewBooleanProperty(false), true)
	_ = p.Add("name", schema.NewStringProperty("x"), false)
	_ = p.Add("level", level, false)

	attrs := AttributesFor(p)
	var names []string
	for _, a := range attrs {
		names = append(names, a.Name)
	}
	if !slices.Equal(names, []string{"power", "level"}) {
		t.Errorf("names = %v", names)
	}
	if got := countCombinations(attrs); got != 6 {
		t.Errorf("countCombinations() = %d, want 6", got)
	}
}

func TestStringCombinations(t *testing.T) {
	params := map[string][]string{
		"unit":  {"C", "F"},
		"scale": {"1", "10"},
		"empty": nil,
	}
	var got []string
	for q := range StringCombinations(params) {
		got = append(got, q["scale"]+q["unit"])
		if _, ok := q["empty"]; ok {
			t.Error("parameter without values was emitted")
		}
	}
	want := []string{"1C", "1F", "10C", "10F"}
	if !slices.Equal(got, want) {
		t.Errorf("combinations = %v, want %v", got, want)
	}

	n := 0
	for q := range StringCombinations(nil) {
		if len(q) != 0 {
			t.Errorf("unexpected params %v", q)
		}
		n++
	}
	if n != 1 {
		t.Errorf("no parameters yielded %d sets, want 1", n)
	}
}

// countCombinations drains each attribute's generator once and multiplies
// the domain sizes. The generators are reset afterwards.
func countCombinations(attrs []*AttributeGenerator) int {
	if len(attrs) == 0 {
		return 0
	}
	total := 1
	for _, a := range attrs {
		a.Reset()
		n := 0
		for a.HasNext() {
			a.Next()
			n++
		}
		a.Reset()
		total *= n
	}
	return total
}

func TestRangeEndsAtLimits(t *testing.T) {
	ints := NewIntRange(math.MaxInt-1, math.MaxInt)
	var got []int
	for i := 0; ints.HasNext() && i < 10; i++ {
		n, _ := ints.Next().AsInt()
		got = append(got, n)
	}
	if len(got) != 2 || got[0] != math.MaxInt-1 || got[1] != math.MaxInt || ints.HasNext() {
		t.Errorf("IntRange(MaxInt-1, MaxInt) = %v, HasNext=%v", got, ints.HasNext())
	}
	if ints.Next().IsValid() {
		t.Error("Next() past the end returned a valid value")
	}
	ints.Reset()
	if !ints.HasNext() {
		t.Error("Reset() did not rewind")
	}

	doubles := NewDoubleRange(1e17, 1e17+4)
	n := 0
	for ; doubles.HasNext() && n < 10; n++ {
		doubles.Next()
	}
	if n != 1 || doubles.HasNext() {
		t.Errorf("DoubleRange(1e17, 1e17+4) produced %d values, HasNext=%v", n, doubles.HasNext())
	}

	if NewIntRange(3, 2).HasNext() || NewDoubleRange(3, 2).HasNext() {
		t.Error("empty range has a next value")
	}
}
