package client

import "errors"

// Domain errors for the client package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, client.ErrOperationInProgress) {
//	    // a session of this method is already running
//	}
var (
	// ErrInvalidArgument is returned for a nil callback, an unsupported
	// method or a request model that cannot drive the method.
	ErrInvalidArgument = errors.New("client: invalid argument")

	// ErrOperationInProgress is returned when an automatic request session of
	// the same method is already active on the remote resource.
	ErrOperationInProgress = errors.New("client: operation in progress")

	// ErrNoRequestModel is returned when no request model is set for the method.
	ErrNoRequestModel = errors.New("client: no request model")

	// ErrRemoteNotFound is returned by the Directory for unknown URIs.
	ErrRemoteNotFound = errors.New("client: remote resource not found")
)
