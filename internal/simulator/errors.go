package simulator

import "errors"

// Domain errors for the simulator package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, simulator.ErrInvalidArgument) {
//	    // caller passed a nil callback, unknown attribute, ...
//	}
var (
	// ErrInvalidArgument is returned when an automation is started with a nil
	// callback, an unknown attribute, an attribute with nothing to enumerate,
	// or against a resource that is not running.
	ErrInvalidArgument = errors.New("simulator: invalid argument")

	// ErrNotRunning is returned (wrapped with ErrInvalidArgument for
	// automation starts) when the resource has not been started.
	ErrNotRunning = errors.New("simulator: resource not running")

	// ErrAlreadyRunning is returned when starting a running resource.
	ErrAlreadyRunning = errors.New("simulator: resource already running")

	// ErrUnknownAttribute is returned when an attribute is not in the model or schema.
	ErrUnknownAttribute = errors.New("simulator: unknown attribute")

	// ErrAttributeExists is returned when adding an attribute that already exists.
	ErrAttributeExists = errors.New("simulator: attribute exists")

	// ErrRejectedValue is returned when a value fails the attribute's type or schema.
	ErrRejectedValue = errors.New("simulator: value rejected")

	// ErrResourceNotFound is returned by the Registry for unknown URIs.
	ErrResourceNotFound = errors.New("simulator: resource not found")

	// ErrResourceExists is returned when registering a URI twice.
	ErrResourceExists = errors.New("simulator: resource exists")
)
