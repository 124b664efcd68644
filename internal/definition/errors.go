package definition

import "errors"

var (
	// ErrInvalidDefinition is returned for a malformed or inconsistent
	// definition file.
	ErrInvalidDefinition = errors.New("definition: invalid definition")
)
