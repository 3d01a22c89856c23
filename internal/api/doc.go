// Package api implements the HTTP REST API and WebSocket server for Pilot Core.
//
// This package provides:
//   - REST endpoints for controller lifecycle management and switch requests
//   - Query endpoints over the persisted lifecycle history
//   - WebSocket hub broadcasting controller state and switch events
//   - JWT authentication with ticket-based WebSocket auth
//   - Middleware stack (request ID, logging, recovery, CORS)
//   - TLS support for production deployments
//
// # Architecture
//
// The API server sits between operator tooling and the controller manager.
// Lifecycle operations and switch requests call straight into the manager;
// switch requests block until the update cycle applies them, so their
// handlers can hold the connection for up to the request timeout. Lifecycle
// events flow back through the manager's event sink and are broadcast to
// WebSocket clients.
//
// # Security
//
// Authentication uses JWT bearer tokens signed with the configured secret.
// An empty secret disables authentication entirely, which is intended for
// bench setups only. WebSocket connections use single-use tickets to keep
// tokens out of URLs.
package api
