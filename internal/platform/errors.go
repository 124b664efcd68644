package platform

import "errors"

var (
	// ErrNotStarted is returned before Start or after Close.
	ErrNotStarted = errors.New("platform: not started")

	// ErrClosed completes requests still pending when the platform closes.
	ErrClosed = errors.New("platform: closed")

	// ErrTimeout completes a request whose response did not arrive in time.
	ErrTimeout = errors.New("platform: request timed out")

	// ErrRejected is returned when an observe registration is refused.
	ErrRejected = errors.New("platform: request rejected")

	// ErrAlreadyHosted is returned when a URI is registered twice.
	ErrAlreadyHosted = errors.New("platform: uri already hosted")
)
