// Package schema provides the typed attribute data model of the simulator.
//
// A simulated resource exposes a representation: a named set of attribute
// values (ResourceModel). Every value is a Value, a closed tagged union over
// Integer, Double, Boolean, String, Model and lists of those nested up to
// three levels. The allowed domain of each attribute is described by a
// Property tree which validates values and synthesises defaults.
//
// Architecture:
//
//	┌──────────────────────────────────────────────────────────┐
//	│                 ModelProperty (schema root)              │
//	│   ┌──────────────┐ ┌──────────────┐ ┌────────────────┐   │
//	│   │ IntegerProp. │ │ StringProp.  │ │ ArrayProperty  │   │
//	│   │ range | set  │ │ length | set │ │  └─ element ──▶│   │
//	│   └──────────────┘ └──────────────┘ └────────────────┘   │
//	│            │ Validate(Value)       │ BuildValue()        │
//	│            ▼                       ▼                     │
//	│   ┌──────────────────────────────────────────────────┐   │
//	│   │ ResourceModel: name → Value  (TypeInfo-checked)  │   │
//	│   └──────────────────────────────────────────────────┘   │
//	└──────────────────────────────────────────────────────────┘
//
// # Key Types
//
//   - Value: tagged attribute value with a derived TypeInfo
//   - TypeInfo: {Type, BaseType, Depth} structural type descriptor
//   - ResourceModel: attribute name → Value mapping
//   - Property: schema node (Integer, Double, Boolean, String, Array, Model)
//
// # Failure Modes
//
// Data operations on ResourceModel and Property.Validate report failure with
// a false result; they are called on every automation tick. Structural schema
// defects (an array nested deeper than MaxDepth, an array without an element
// property) are reported with ErrBadSchema when the tree is built.
//
// # Thread Safety
//
// Values are immutable once built. ResourceModel and Property are not
// synchronised; the owner (a simulated resource) guards them with its own lock.
package schema
