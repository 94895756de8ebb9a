// Package claims is the ordered, short-circuiting claim validation pipeline
// run against a verified session.
//
// Validators are pure functions of the session state and the request
// context. [Run] stops at the first failure and reports it as a
// *[ValidationError] carrying the validator key and a reason.
package claims
