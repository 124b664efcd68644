// Package engine assembles a running simulator from its definition file.
//
// It owns the hosted resource registry and the remote resource directory,
// and connects both to the platform and to the telemetry recorder:
//
//	definition.File ──Load──► simulator.Registry ──Start──► platform.Register
//	                                                          updates (autostart)
//	platform.Discover ──Discover──► client.Directory ──► request models,
//	                                                     auto requests (autostart)
//
// The API server drives automations through the Engine so that every
// session gets the same logging callbacks whichever way it was started.
//
// # Failure Modes
//
// Start keeps going when a single resource or automation fails to start;
// the failures are joined into the returned error. Discovery failures are
// returned but leave the directory as it was.
package engine
