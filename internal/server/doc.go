// Package server implements the HTTP front end of the puppethook webhook receiver.
//
// This package provides:
//   - POST /payload and POST /module, handed to the webhook orchestrator
//   - Per-IP rate limiting, tighter on the webhook routes
//   - Health and per-environment status endpoints for monitoring
//   - Structured logging of all HTTP requests
//
// The server integrates with other packages:
//   - internal/webhook: signature, authentication, filtering, dispatch and reporting
//   - internal/store: SQLite dispatch history behind the status endpoint
//
// Request limits:
//   - Payload size limit (1MB max)
//   - Request timeout sized from client_timeout and discovery_timeout
package server
