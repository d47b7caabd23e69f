// Package api implements the HTTP endpoints and WebSocket server of the
// Control4 bridge core.
//
// This package provides:
//   - The three driver endpoints under /api/control4_bridge (sync, commands,
//     ack), authenticated by the X-C4-Bridge-Secret header
//   - REST endpoints under /api/v1 for entities, bridge statistics, the
//     host device registry and the command audit trail
//   - A WebSocket hub broadcasting entity state and device-set changes
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Error Bodies
//
// Driver endpoints answer errors as {"ok":false,"error":"<code>"}, the shape
// the Control4 driver parses. The /api/v1 endpoints use the structured Error
// type.
//
// # Graceful Degradation
//
// The audit trail and host device registry are optional; their endpoints
// answer 503 when the corresponding dependency is not wired.
package api
