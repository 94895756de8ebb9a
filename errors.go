package goSession

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorised means the presented token does not identify a live
	// session. The client must sign in again.
	ErrUnauthorised = errors.New("unauthorised")
	// ErrSessionNotFound is the [ErrUnauthorised] returned when the session
	// record is missing, expired or revoked.
	ErrSessionNotFound = fmt.Errorf("%w: session not found", ErrUnauthorised)
	// ErrTryRefreshToken means the access token expired and the client
	// should call refresh.
	ErrTryRefreshToken = errors.New("try refresh token")
	// ErrTokenTheftDetected means a superseded refresh token was replayed.
	ErrTokenTheftDetected = errors.New("token theft detected")
	// ErrAntiCSRFCheckFailed means the request failed the anti-CSRF check.
	ErrAntiCSRFCheckFailed = errors.New("anti-csrf check failed")
	// ErrClaimValidationFailed means a claim validator rejected the session.
	ErrClaimValidationFailed = errors.New("claim validation failed")
	// ErrStoreUnavailable wraps session store outages.
	ErrStoreUnavailable = errors.New("session store unavailable")
	// ErrCodecUnavailable wraps token codec outages.
	ErrCodecUnavailable = errors.New("token codec unavailable")
	// ErrInvalidPayload means a payload holds a value with no JSON form.
	ErrInvalidPayload = errors.New("payload is not JSON-compatible")
	// ErrEngineNotReady is returned by methods called on a nil Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// TokenTheftError reports the session whose refresh lineage was replayed.
// It matches [ErrTokenTheftDetected] under errors.Is.
type TokenTheftError struct {
	Handle string
	UserID string
}

func (e *TokenTheftError) Error() string {
	return fmt.Sprintf("token theft detected for session %s", e.Handle)
}

func (e *TokenTheftError) Is(target error) bool {
	return target == ErrTokenTheftDetected
}

// ClaimValidationError names the first claim validator that failed.
// It matches [ErrClaimValidationFailed] under errors.Is.
type ClaimValidationError struct {
	Key    string
	Reason string
}

func (e *ClaimValidationError) Error() string {
	return fmt.Sprintf("claim validation failed: %s: %s", e.Key, e.Reason)
}

func (e *ClaimValidationError) Is(target error) bool {
	return target == ErrClaimValidationFailed
}

func storeUnavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

func codecUnavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrCodecUnavailable, err)
}
