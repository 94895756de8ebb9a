package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goSession/claims"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/session"
)

// VerifyFailureKind classifies verification failures for root-level mapping.
type VerifyFailureKind int

const (
	VerifyFailureNone VerifyFailureKind = iota
	VerifyFailureUnauthorized
	VerifyFailureTryRefresh
	VerifyFailureCodec
	VerifyFailureAntiCSRF
	VerifyFailureSessionNotFound
	VerifyFailureStore
	VerifyFailureClaims
)

// VerifyResult returns either the verified payload or a classified failure.
// Record is set only when the store was consulted.
type VerifyResult struct {
	Failure VerifyFailureKind
	Err     error
	Payload *jwt.Payload
	Record  *session.Record
}

// VerifyDeps captures access-token verification dependencies.
type VerifyDeps struct {
	Verify func(string) (*jwt.Payload, error)
	// CheckAntiCSRF is nil when the check is skipped.
	CheckAntiCSRF func(*jwt.Payload) error
	// CheckStore selects store-backed revocation for this call.
	CheckStore bool
	Store      session.Store
	// Denied reports handles revoked locally; may be nil.
	Denied     func(handle string) bool
	Validators []claims.Validator
}

// RunVerify validates an access token: codec, anti-CSRF, revocation, then
// claims, stopping at the first failure.
func RunVerify(ctx context.Context, accessToken string, deps VerifyDeps) VerifyResult {
	p, err := deps.Verify(accessToken)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrExpired):
			return VerifyResult{Failure: VerifyFailureTryRefresh, Err: err}
		case errors.Is(err, jwt.ErrInvalid):
			return VerifyResult{Failure: VerifyFailureUnauthorized, Err: err}
		default:
			return VerifyResult{Failure: VerifyFailureCodec, Err: err}
		}
	}
	if p.Kind != jwt.KindAccess {
		return VerifyResult{Failure: VerifyFailureUnauthorized, Err: errors.New("not an access token")}
	}

	if deps.CheckAntiCSRF != nil {
		if err := deps.CheckAntiCSRF(p); err != nil {
			return VerifyResult{Failure: VerifyFailureAntiCSRF, Err: err, Payload: p}
		}
	}

	if deps.Denied != nil && deps.Denied(p.Handle) {
		return VerifyResult{Failure: VerifyFailureSessionNotFound, Err: session.ErrNotFound, Payload: p}
	}

	var rec *session.Record
	if deps.CheckStore {
		rec, err = deps.Store.Get(ctx, p.Handle)
		if err != nil {
			if errors.Is(err, session.ErrNotFound) {
				return VerifyResult{Failure: VerifyFailureSessionNotFound, Err: err, Payload: p}
			}
			return VerifyResult{Failure: VerifyFailureStore, Err: err, Payload: p}
		}
		// Older access tokens stay valid until expiry; a counter the record
		// never reached was not minted by this lineage.
		if rec.UserID != p.UserID || p.Counter > rec.RotationCounter {
			return VerifyResult{Failure: VerifyFailureSessionNotFound, Err: session.ErrNotFound, Payload: p}
		}
	}

	subject := claims.NewSubject(p.Handle, p.UserID, p.TenantID, p.User, SessionDataLoader(deps.Store, p.Handle, rec))
	if err := claims.Run(ctx, subject, deps.Validators); err != nil {
		// Run returns the context error when cancelled mid-pipeline.
		var ve *claims.ValidationError
		if !errors.As(err, &ve) {
			return VerifyResult{Failure: VerifyFailureStore, Err: err, Payload: p, Record: rec}
		}
		return VerifyResult{Failure: VerifyFailureClaims, Err: err, Payload: p, Record: rec}
	}

	return VerifyResult{Payload: p, Record: rec}
}

// SessionDataLoader returns a loader for the session data of handle that
// reuses rec when it was already read.
func SessionDataLoader(store session.Store, handle string, rec *session.Record) func(context.Context) (map[string]any, error) {
	return func(ctx context.Context) (map[string]any, error) {
		if rec == nil {
			var err error
			rec, err = store.Get(ctx, handle)
			if err != nil {
				return nil, err
			}
		}
		if rec.SessionData == nil {
			return map[string]any{}, nil
		}
		return rec.SessionData, nil
	}
}
