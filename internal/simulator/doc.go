// Package simulator hosts simulated resources and drives their update
// automation.
//
// A Resource owns a schema (ModelProperty) and a live ResourceModel. The
// hosting Platform routes GET/PUT/POST requests and observe registrations to
// it; every model change is pushed to the observers through Platform.Notify.
//
// Architecture:
//
//	┌──────────────────────────────────────────────────────────┐
//	│                        Resource                          │
//	│  RWMutex ─┬─ ResourceModel      observers   callbacks    │
//	│           └─ ModelProperty                               │
//	│                    ▲ apply (lock held per step)          │
//	│  ┌─────────────────┴────────────────────────────────┐    │
//	│  │ UpdateManager  (own mutex, id → UpdateSession)   │    │
//	│  │   session: goroutine                             │    │
//	│  │     for combo := range Combinations {            │    │
//	│  │        apply(combo); wait(interval | stop)       │    │
//	│  │     }                                            │    │
//	│  └──────────────────────────────────────────────────┘    │
//	└──────────────┬───────────────────────────────────────────┘
//	               │ Register / Unregister / Notify
//	               ▼
//	          Platform (MQTT adapter)
//
// # Key Types
//
//   - Resource: simulated resource, model, observers, request handlers
//   - UpdateSession: one background loop applying generated combinations
//   - UpdateManager: registry of a resource's update sessions
//   - Registry: the resources of a process keyed by URI
//
// # Lifecycle
//
// Update sessions move Idle → Running → Completed | Stopped | Aborted.
// OneTime sessions complete after the last combination; Repeat sessions
// re-seed the combination walk until stopped. A failed apply aborts the
// session. Stop (and Resource.Stop) blocks until the goroutine has exited,
// after which the session never touches the resource again.
//
// On exit a session first retires itself from the manager, then reports to
// the Reporter, then invokes the application callback with (uri, id).
//
// # Lock Ordering
//
// Resource lock, then manager lock. The manager lock is never held while a
// session is joined, and neither lock is held while callbacks run.
package simulator
