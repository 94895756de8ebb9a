// Package csrf implements the anti-CSRF guard of goSession.
//
// In VIA_TOKEN mode a token of the form nonce.signature is minted per
// session, where the signature is HMAC-SHA256 over the session handle and
// the nonce. The token travels inside the access token and must be echoed
// by the client. In VIA_CUSTOM_HEADER mode the request only has to carry a
// non-empty custom header.
package csrf
