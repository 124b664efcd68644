package generator

import (
	"iter"
	"maps"
	"slices"

	"github.com/nerrad567/gray-logic-simulator/internal/schema"
)

// StringCombinations enumerates the cross-product of query parameter value
// sets. Parameters are ordered by name; parameters with no values are
// dropped. With no parameters left it yields a single empty set, so a
// request without query constraints is still sent once.
func StringCombinations(params map[string][]string) iter.Seq[map[string]string] {
	var attrs []*AttributeGenerator
	for _, name := range slices.Sorted(maps.Keys(params)) {
		values := params[name]
		if len(values) == 0 {
			continue
		}
		attrs = append(attrs, NewAttributeGenerator(name, NewValuesSet(mapValues(values, schema.String)...)))
	}

	return func(yield func(map[string]string) bool) {
		if len(attrs) == 0 {
			yield(map[string]string{})
			return
		}
		for m := range NewCombinations(attrs).All() {
			out := make(map[string]string, m.Size())
			for _, name := range m.AttributeNames() {
				v, _ := m.Get(name)
				out[name], _ = v.AsString()
			}
			if !yield(out) {
				return
			}
		}
	}
}
