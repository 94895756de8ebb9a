package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/session"
)

// maxRotateAttempts bounds re-reads after a lost compare-and-swap that left
// the rotation counter untouched.
const maxRotateAttempts = 3

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureDecode
	RefreshFailureExpired
	RefreshFailureCodec
	RefreshFailureSessionNotFound
	RefreshFailureTheft
	RefreshFailureAhead
	RefreshFailureContention
	RefreshFailureStore
	RefreshFailureIssue
)

// Tokens is the output of an issue step.
type Tokens struct {
	Access        string
	AccessExpiry  time.Time
	Refresh       string
	RefreshExpiry time.Time
	AntiCSRF      string
}

// RefreshResult carries either the rotated record and its tokens or failure
// metadata.
type RefreshResult struct {
	Failure  RefreshFailureKind
	Err      error
	Handle   string
	UserID   string
	TenantID string
	// Revoked reports that the session was deleted after theft was detected.
	Revoked bool
	Record  *session.Record
	Tokens  Tokens
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	Verify func(string) (*jwt.Payload, error)
	Store  session.Store
	Now    func() time.Time
	// RefreshLifetime is the lifetime of the rotated refresh token; the
	// record is extended to match.
	RefreshLifetime time.Duration
	// Issue signs tokens for next before it is written.
	Issue      func(next *session.Record) (Tokens, error)
	AutoRevoke bool
	Warn       func(ctx context.Context, msg string, args ...any)
}

// RunRefresh rotates the refresh token lineage of a session.
//
// A token whose counter matches the record is rotated through
// compare-and-swap after the new tokens are signed, so a failed signature
// never burns the presented token. A token behind the record is theft; a
// token ahead of it is rejected as unauthorised.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	p, err := deps.Verify(refreshToken)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrExpired):
			return RefreshResult{Failure: RefreshFailureExpired, Err: err}
		case errors.Is(err, jwt.ErrInvalid):
			return RefreshResult{Failure: RefreshFailureDecode, Err: err}
		default:
			return RefreshResult{Failure: RefreshFailureCodec, Err: err}
		}
	}
	if p.Kind != jwt.KindRefresh {
		return RefreshResult{Failure: RefreshFailureDecode, Err: errors.New("not a refresh token")}
	}

	base := RefreshResult{Handle: p.Handle, UserID: p.UserID, TenantID: p.TenantID}

	for attempt := 0; attempt < maxRotateAttempts; attempt++ {
		rec, err := deps.Store.Get(ctx, p.Handle)
		if err != nil {
			return refreshStoreFailure(base, err)
		}
		if rec.UserID != p.UserID {
			base.Failure = RefreshFailureSessionNotFound
			base.Err = session.ErrNotFound
			return base
		}

		switch {
		case p.Counter < rec.RotationCounter:
			return theft(ctx, base, rec, deps)
		case p.Counter > rec.RotationCounter:
			base.Failure = RefreshFailureAhead
			base.Err = errors.New("refresh token ahead of session record")
			return base
		}

		next := rec.Clone()
		next.RotationCounter++
		next.ExpiresAt = deps.Now().Add(deps.RefreshLifetime).UnixMilli()

		tokens, err := deps.Issue(next)
		if err != nil {
			base.Failure = RefreshFailureIssue
			base.Err = err
			return base
		}

		ok, err := deps.Store.CompareAndSwap(ctx, rec, next)
		if err != nil {
			base.Failure = RefreshFailureStore
			base.Err = err
			return base
		}
		if ok {
			base.Record = next
			base.Tokens = tokens
			base.TenantID = next.TenantID
			return base
		}
		// Lost the race. Re-read: a moved counter turns into theft above.
	}

	base.Failure = RefreshFailureContention
	base.Err = errors.New("refresh rotation contended")
	return base
}

func theft(ctx context.Context, base RefreshResult, rec *session.Record, deps RefreshDeps) RefreshResult {
	base.Failure = RefreshFailureTheft
	base.TenantID = rec.TenantID
	base.Record = rec
	if !deps.AutoRevoke {
		return base
	}
	removed, err := deps.Store.Delete(ctx, rec.Handle)
	if err != nil {
		if deps.Warn != nil {
			deps.Warn(ctx, "goSession: revoke after token theft failed", "error", err)
		}
		return base
	}
	base.Revoked = removed
	return base
}

func refreshStoreFailure(base RefreshResult, err error) RefreshResult {
	if errors.Is(err, session.ErrNotFound) {
		base.Failure = RefreshFailureSessionNotFound
	} else {
		base.Failure = RefreshFailureStore
	}
	base.Err = err
	return base
}
