package claims

import (
	"context"
	"fmt"
)

// Result is the outcome of one validator.
type Result struct {
	Valid  bool
	Reason string
}

// Pass is the successful [Result].
func Pass() Result {
	return Result{Valid: true}
}

// Fail returns a failed [Result] carrying reason.
func Fail(reason string) Result {
	return Result{Reason: reason}
}

// Validator checks one claim of a session. Validate must not mutate the
// subject.
type Validator interface {
	Key() string
	Validate(ctx context.Context, s Subject) Result
}

// Subject is the read-only view of a session given to validators.
type Subject struct {
	Handle   string
	UserID   string
	TenantID string
	// Payload is the access token payload.
	Payload map[string]any

	loadSessionData func(context.Context) (map[string]any, error)
}

// NewSubject builds a [Subject]. load fetches the server-side session data
// on demand and may be nil.
func NewSubject(handle, userID, tenantID string, payload map[string]any, load func(context.Context) (map[string]any, error)) Subject {
	return Subject{
		Handle:          handle,
		UserID:          userID,
		TenantID:        tenantID,
		Payload:         payload,
		loadSessionData: load,
	}
}

// SessionData fetches the server-side data of the session.
func (s Subject) SessionData(ctx context.Context) (map[string]any, error) {
	if s.loadSessionData == nil {
		return map[string]any{}, nil
	}
	return s.loadSessionData(ctx)
}

// ValidationError names the first validator that failed.
type ValidationError struct {
	Key    string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("claim %q failed: %s", e.Key, e.Reason)
}

// Run evaluates validators in order and stops at the first failure, which it
// returns as a *ValidationError. An empty list passes. A cancelled context
// stops evaluation before the next validator.
func Run(ctx context.Context, s Subject, validators []Validator) error {
	for _, v := range validators {
		if err := ctx.Err(); err != nil {
			return err
		}
		res := v.Validate(ctx, s)
		if !res.Valid {
			return &ValidationError{Key: v.Key(), Reason: res.Reason}
		}
	}
	return nil
}

// None returns an empty, non-nil validator list. Passing it as an override
// skips every configured validator.
func None() []Validator {
	return []Validator{}
}
