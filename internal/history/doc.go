// Package history persists finished automation sessions and observer
// registrations in SQLite so they can be listed after the fact.
//
// Records are written when an update session or a request session ends;
// nothing is stored for sessions still running. Timestamps are stored as
// RFC 3339 UTC text.
//
// # Key Types
//
//   - Record: one finished session (update or request)
//   - ObserverEvent: one observer register/unregister
//   - SQLiteRepository: Repository backed by the automation_sessions and
//     observer_events tables (see the migrations package)
package history
