package goSession

import (
	"context"
	"errors"
	"maps"
	"time"

	"github.com/MrEthical07/goSession/claims"
	"github.com/MrEthical07/goSession/csrf"
	"github.com/MrEthical07/goSession/internal"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/session"
)

// ErrUserIDRequired is returned by [Engine.CreateNewSession] for an empty
// user id.
var ErrUserIDRequired = errors.New("user id is required")

// CreateNewSession starts a session for an already authenticated user. The
// tenant is taken from ctx (see [WithTenantID]).
//
// The record is written before the tokens are returned, so a store failure
// never hands out tokens for a session that does not exist.
//
//	Performance: 1 store write.
func (e *Engine) CreateNewSession(ctx context.Context, userID string, accessPayload, sessionData Payload) (*Session, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	tenantID := tenantIDFromContext(ctx)

	userPayload, err := normalizePayload(accessPayload)
	if err != nil {
		return nil, err
	}
	data, err := normalizePayload(sessionData)
	if err != nil {
		return nil, err
	}

	handle, err := internal.NewHandle()
	if err != nil {
		return nil, err
	}

	now := e.now()
	rec := &session.Record{
		Handle:             handle.String(),
		UserID:             userID,
		TenantID:           tenantID,
		RotationCounter:    0,
		AccessTokenPayload: userPayload,
		SessionData:        data,
		CreatedAt:          now.UnixMilli(),
		ExpiresAt:          e.tokenExpiry(e.config.JWT.RefreshTTL).UnixMilli(),
	}

	tokens, err := e.issueTokens(rec)
	if err != nil {
		e.metricInc(MetricCodecUnavailable)
		e.emitAudit(ctx, auditEventSessionCreated, false, userID, tenantID, rec.Handle, codecUnavailable(err), nil)
		return nil, codecUnavailable(err)
	}

	if err := e.store.Put(ctx, rec); err != nil {
		mapped := e.storeError(ctx, err)
		e.emitAudit(ctx, auditEventSessionCreated, false, userID, tenantID, rec.Handle, mapped, nil)
		return nil, mapped
	}

	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, auditEventSessionCreated, true, userID, tenantID, rec.Handle, nil, func() map[string]string {
		meta := map[string]string{}
		if ua := userAgentFromContext(ctx); ua != "" {
			meta["user_agent"] = ua
		}
		return meta
	})

	return newSessionFromRecord(e, rec, tokens), nil
}

// GetSession validates an access token and returns its session.
//
// An empty token yields (nil, nil) unless opts.SessionRequired is set. The
// checks run in order: signature and expiry, anti-CSRF, revocation, claims.
//
//	Performance: 0 store reads in RevocationStateless, 1 otherwise.
func (e *Engine) GetSession(ctx context.Context, accessToken string, opts GetSessionOptions) (*Session, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	start := time.Now()
	defer e.metricObserve(MetricGetSessionLatency, start)

	if accessToken == "" {
		if opts.SessionRequired {
			return nil, ErrUnauthorised
		}
		return nil, nil
	}

	res := flows.RunVerify(ctx, accessToken, e.verifyDeps(opts))
	if res.Failure != flows.VerifyFailureNone {
		err := e.verifyError(ctx, res)
		e.metricInc(MetricSessionVerifyFailed)
		var handle, userID, tenantID string
		if res.Payload != nil {
			handle, userID, tenantID = res.Payload.Handle, res.Payload.UserID, res.Payload.TenantID
		}
		e.emitAudit(ctx, verifyAuditEvent(res.Failure), false, userID, tenantID, handle, err, nil)
		return nil, err
	}

	e.metricInc(MetricSessionVerified)
	e.emitAudit(ctx, auditEventSessionVerified, true, res.Payload.UserID, res.Payload.TenantID, res.Payload.Handle, nil, nil)
	return newSessionFromPayload(e, res.Payload, accessToken, res.Record), nil
}

func (e *Engine) verifyDeps(opts GetSessionOptions) flows.VerifyDeps {
	deps := flows.VerifyDeps{
		Verify:     e.codec.Verify,
		CheckStore: e.config.Revocation.Mode == RevocationStoreBacked,
		Store:      e.store,
		Validators: e.validators,
	}
	if opts.CheckDatabase != nil {
		deps.CheckStore = *opts.CheckDatabase
	}
	if opts.OverrideClaimValidators != nil {
		deps.Validators = opts.OverrideClaimValidators
	}
	if e.denied != nil {
		deps.Denied = e.isDenied
	}
	if (opts.AntiCSRFCheck == nil || *opts.AntiCSRFCheck) && e.csrf.Mode() != csrf.ModeNone {
		req := csrf.Request{Token: opts.AntiCSRFToken, HasCustomHeader: opts.HasCustomHeader}
		deps.CheckAntiCSRF = func(p *jwt.Payload) error {
			return e.csrf.Verify(p.Handle, p.AntiCSRF, req)
		}
	}
	return deps
}

func (e *Engine) verifyError(ctx context.Context, res flows.VerifyResult) error {
	switch res.Failure {
	case flows.VerifyFailureTryRefresh:
		e.metricInc(MetricTryRefresh)
		return ErrTryRefreshToken
	case flows.VerifyFailureCodec:
		e.metricInc(MetricCodecUnavailable)
		return codecUnavailable(res.Err)
	case flows.VerifyFailureAntiCSRF:
		e.metricInc(MetricAntiCSRFFailed)
		return ErrAntiCSRFCheckFailed
	case flows.VerifyFailureSessionNotFound:
		return ErrSessionNotFound
	case flows.VerifyFailureStore:
		return e.storeError(ctx, res.Err)
	case flows.VerifyFailureClaims:
		var ve *claims.ValidationError
		if errors.As(res.Err, &ve) {
			e.metricInc(MetricClaimValidationFailed)
			return &ClaimValidationError{Key: ve.Key, Reason: ve.Reason}
		}
		return res.Err
	default:
		return ErrUnauthorised
	}
}

func verifyAuditEvent(kind flows.VerifyFailureKind) string {
	switch kind {
	case flows.VerifyFailureAntiCSRF:
		return auditEventAntiCSRFFailed
	case flows.VerifyFailureClaims:
		return auditEventClaimValidationFailed
	default:
		return auditEventSessionVerifyFailed
	}
}

// RegenerateAccessToken mints a new access token for the session of
// accessToken without touching the refresh lineage. A non-nil newPayload is
// merged into the stored payload first.
//
// The token must be unexpired and its session must still exist.
func (e *Engine) RegenerateAccessToken(ctx context.Context, accessToken string, newPayload Payload) (*Session, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	p, err := e.codec.Verify(accessToken)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrExpired):
			return nil, ErrTryRefreshToken
		case errors.Is(err, jwt.ErrInvalid):
			return nil, ErrUnauthorised
		default:
			return nil, codecUnavailable(err)
		}
	}
	if p.Kind != jwt.KindAccess {
		return nil, ErrUnauthorised
	}

	var rec *session.Record
	if newPayload != nil {
		update, nerr := normalizePayload(newPayload)
		if nerr != nil {
			return nil, nerr
		}
		rec, err = flows.RunUpdate(ctx, e.store, p.Handle, func(r *session.Record) error {
			if r.UserID != p.UserID {
				return session.ErrNotFound
			}
			r.AccessTokenPayload = mergePayload(r.AccessTokenPayload, update)
			return nil
		})
	} else {
		rec, err = e.store.Get(ctx, p.Handle)
		if err == nil && rec.UserID != p.UserID {
			err = session.ErrNotFound
		}
	}
	if err != nil {
		return nil, e.storeError(ctx, err)
	}

	access, err := e.mintAccess(rec.Handle, rec.UserID, rec.TenantID, p.Counter, p.AntiCSRF, rec.AccessTokenPayload)
	if err != nil {
		e.metricInc(MetricCodecUnavailable)
		return nil, codecUnavailable(err)
	}

	e.metricInc(MetricAccessTokenRegenerated)
	e.emitAudit(ctx, auditEventAccessTokenRegenerated, true, rec.UserID, rec.TenantID, rec.Handle, nil, nil)

	s := newSessionFromPayload(e, p, "", rec)
	s.access = access
	s.accessPayload = maps.Clone(Payload(rec.AccessTokenPayload))
	s.accessUpdated = true
	return s, nil
}
