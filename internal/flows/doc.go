// Package flows contains pure-function orchestrators for the Engine's
// session operations.
//
// Each flow function (RunRefresh, RunVerify, RunUpdate, RunRevokeMany)
// accepts a typed dependency struct and returns results without side-effects
// beyond those dependencies.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the session store, token codec and
// claim validators. They do NOT own any of these resources; ownership stays
// with the Engine. Audit and metrics are emitted by the Engine from the
// returned failure kind.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goSession (to avoid import cycles).
//   - Retry beyond the bounded compare-and-swap re-read.
package flows
