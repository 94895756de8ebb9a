// Package middleware adapts a goSession.Engine to net/http using header
// token transport.
//
// # Transport
//
// Requests carry the access token as "Authorization: Bearer <token>", the
// refresh token in st-refresh-token and the anti-CSRF token in anti-csrf.
// New tokens are returned in the st-access-token, st-refresh-token,
// anti-csrf and front-token response headers.
//
// # Handlers
//
//   - [VerifySession] validates the access token and stores the session in
//     the request context ([SessionFromContext]).
//   - [RequireStateless] and [RequireStrict] pin the revocation check.
//   - [RefreshHandler] rotates tokens.
//   - [SignOutHandler] revokes the caller's session.
//
// # What this package must NOT do
//
//   - Parse or create tokens directly (delegates to Engine).
//   - Set cookies.
//   - Make authorization decisions beyond the Engine result and claim
//     validators.
package middleware
