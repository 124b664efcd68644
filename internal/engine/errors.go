package engine

import "errors"

var (
	// ErrNotLoaded is returned by Start before Load.
	ErrNotLoaded = errors.New("engine: definitions not loaded")

	// ErrNoPlatform is returned by Discover when no platform is configured.
	ErrNoPlatform = errors.New("engine: no platform")
)
