// Package internal contains helpers private to goSession: session handle and
// nonce generation.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - flows: pure-function orchestrators for refresh, verification and
//     compare-and-swap updates
//   - config: service configuration for cmd/sessiond
//   - server: HTTP wiring for cmd/sessiond
//
// # What this package must NOT do
//
//   - Export types that appear in the public goSession API.
//   - Be imported by any package outside the goSession module.
package internal
