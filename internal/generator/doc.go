// Package generator enumerates the value domains described by schema
// properties.
//
// A ValueGenerator walks one attribute's domain (an integer or double range
// with unit steps, or an enumerated value set). Combinations walks the
// cross-product of several attributes in odometer order:
//
//	power ∈ {false, true}   mode ∈ {a, b, c}
//
//	(false, a) (false, b) (false, c) (true, a) (true, b) (true, c)
//
// Automation sessions feed each emitted ResourceModel to a live resource
// (update automation) or into a request payload (request automation).
//
// Generators are single-owner and not safe for concurrent use.
package generator
