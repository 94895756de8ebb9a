// Package jwt is the token codec of goSession: it signs and verifies the
// access and refresh tokens of a session using configured keys and strict
// validation semantics.
//
// Verification distinguishes expiry ([ErrExpired]) from every other failure
// ([ErrInvalid]) so the engine can tell a client to refresh rather than
// sign in again.
package jwt
