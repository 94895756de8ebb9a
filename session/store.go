package session

import (
	"context"
	"errors"
)

// ErrNotFound is returned by [Store.Get] when no live record exists for a handle.
var ErrNotFound = errors.New("session not found")

// ErrUnavailable wraps transport and backend failures of a [Store].
var ErrUnavailable = errors.New("session store unavailable")

// ErrCorrupt is returned when a stored record cannot be decoded.
var ErrCorrupt = errors.New("session record corrupt")

// Store persists session records keyed by handle.
//
// Implementations must make every method a single atomic operation on the
// backend so concurrent engine instances stay consistent without in-process
// locks.
type Store interface {
	// Put writes r unconditionally and indexes it under its user.
	Put(ctx context.Context, r *Record) error

	// Get returns the live record for handle or ErrNotFound.
	Get(ctx context.Context, handle string) (*Record, error)

	// CompareAndSwap replaces the stored record with next iff the stored
	// revision equals expected.Revision. It returns false without error when
	// the record is absent or the revision moved.
	CompareAndSwap(ctx context.Context, expected, next *Record) (bool, error)

	// Delete removes the record and its user index entry. It reports whether
	// a record was removed.
	Delete(ctx context.Context, handle string) (bool, error)

	// ListByUser returns the handles of the user's live sessions.
	ListByUser(ctx context.Context, tenantID, userID string) ([]string, error)
}

// Pinger is implemented by stores that can report backend liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NormalizeTenantID maps the empty tenant to the default tenant "0".
func NormalizeTenantID(tenantID string) string {
	if tenantID == "" {
		return "0"
	}
	return tenantID
}
