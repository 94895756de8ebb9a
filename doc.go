// Package goSession is a session engine: it issues, validates, rotates and
// revokes sessions represented as an access-token / refresh-token pair.
//
// The caller authenticates the user; goSession only manages what happens
// after. Engine methods are safe to call from multiple goroutines after
// [Builder.Build].
//
// # Architecture boundaries
//
// goSession is the public surface: [Engine], [Builder], [Config], [Session]
// and the error values. Token signing lives in jwt, persistence in session
// and its subpackages, claim validation in claims and anti-CSRF in csrf.
// Flow orchestration and audit dispatch live under internal/.
//
// # Refresh rotation
//
// Every refresh token carries the rotation counter of its session. A
// refresh with the current counter advances the stored counter through
// compare-and-swap; a refresh with an older counter is token theft and, by
// default, revokes the session.
//
// # What this package must NOT do
//
//   - Verify user identity (passwords, OAuth, MFA).
//   - Set cookies or other per-framework transport attributes.
//   - Hold per-session state in process memory, apart from the optional
//     local deny list in stateless revocation mode.
//
// # Performance contract
//
// GetSession is the hot path: one signature check plus at most one store
// read. RefreshSession costs one read and one compare-and-swap when
// uncontended.
package goSession
