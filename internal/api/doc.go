// Package api implements the HTTP control API and WebSocket event feed of
// the simulator.
//
// This package provides:
//   - REST endpoints to inspect hosted resources and apply representations
//   - Endpoints to start and stop update and request automations
//   - Remote discovery and observe registration
//   - Session history and observer event queries
//   - A WebSocket hub relaying telemetry events
//   - The Prometheus scrape endpoint
//
// Resource URIs contain slashes, so they are taken from the wildcard tail of
// the route: GET /api/v1/resources/a/light addresses "/a/light".
//
// # Security
//
// When security.jwt.secret is set, every /api/v1 route except health
// requires an HS256 bearer token issued by the same secret (see IssueToken).
// WebSocket connections then authenticate with a single-use ticket from
// POST /api/v1/auth/ws-ticket so the token never appears in a URL.
package api
