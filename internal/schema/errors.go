package schema

import "errors"

// Domain errors for the schema package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, schema.ErrBadSchema) {
//	    // the property tree is malformed
//	}
var (
	// ErrBadSchema is returned when a property tree is structurally invalid,
	// e.g. an array nested deeper than MaxDepth or missing its element property.
	ErrBadSchema = errors.New("schema: bad schema")

	// ErrDuplicateProperty is returned when a model already has a child of that name.
	ErrDuplicateProperty = errors.New("schema: duplicate property")

	// ErrUnknownProperty is returned when a model has no child of that name.
	ErrUnknownProperty = errors.New("schema: unknown property")

	// ErrInvalidValue is returned when a JSON representation cannot be decoded.
	ErrInvalidValue = errors.New("schema: invalid value")
)
