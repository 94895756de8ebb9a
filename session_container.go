package goSession

import (
	"context"
	"errors"
	"maps"
	"time"

	"github.com/MrEthical07/goSession/claims"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/session"
	"github.com/go-viper/mapstructure/v2"
)

// Session is the per-request view of a session returned by the [Engine].
//
// A Session is not safe for concurrent use. Its mutating methods write
// through to the store and update the view in place.
type Session struct {
	engine   *Engine
	handle   string
	userID   string
	tenantID string
	counter  uint64

	accessPayload Payload
	access        Token
	refresh       Token
	antiCSRF      string

	// record is the store view read while building the session, if any.
	record        *session.Record
	accessUpdated bool
}

func newSessionFromRecord(e *Engine, rec *session.Record, tokens flows.Tokens) *Session {
	now := e.now().Truncate(time.Second)
	return &Session{
		engine:        e,
		handle:        rec.Handle,
		userID:        rec.UserID,
		tenantID:      rec.TenantID,
		counter:       rec.RotationCounter,
		accessPayload: maps.Clone(Payload(rec.AccessTokenPayload)),
		access:        Token{Value: tokens.Access, Expiry: tokens.AccessExpiry, CreatedAt: now},
		refresh:       Token{Value: tokens.Refresh, Expiry: tokens.RefreshExpiry, CreatedAt: now},
		antiCSRF:      tokens.AntiCSRF,
		record:        rec,
		accessUpdated: true,
	}
}

func newSessionFromPayload(e *Engine, p *jwt.Payload, accessToken string, rec *session.Record) *Session {
	return &Session{
		engine:        e,
		handle:        p.Handle,
		userID:        p.UserID,
		tenantID:      p.TenantID,
		counter:       p.Counter,
		accessPayload: maps.Clone(Payload(p.User)),
		access:        Token{Value: accessToken, Expiry: p.ExpiresAt, CreatedAt: p.IssuedAt},
		antiCSRF:      p.AntiCSRF,
		record:        rec,
	}
}

func (s *Session) Handle() string   { return s.handle }
func (s *Session) UserID() string   { return s.userID }
func (s *Session) TenantID() string { return s.tenantID }

// RotationCounter is the refresh lineage position the access token was
// minted at.
func (s *Session) RotationCounter() uint64 { return s.counter }

func (s *Session) AccessToken() Token { return s.access }

// RefreshToken is set only on sessions returned by CreateNewSession and
// RefreshSession.
func (s *Session) RefreshToken() Token { return s.refresh }

// AntiCSRFToken is the anti-CSRF token embedded in the access token. It is
// empty unless the mode is csrf.ModeViaToken.
func (s *Session) AntiCSRFToken() string { return s.antiCSRF }

// AccessTokenUpdated reports whether this session carries a newly minted
// access token the caller must send to the client.
func (s *Session) AccessTokenUpdated() bool { return s.accessUpdated }

// AccessTokenPayload returns a copy of the payload in the current access
// token.
func (s *Session) AccessTokenPayload() Payload {
	return maps.Clone(s.accessPayload)
}

// DecodePayload decodes the access-token payload into out, which must be a
// pointer to a struct or map. Struct fields match on their `mapstructure`
// tag or name.
func (s *Session) DecodePayload(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	return dec.Decode(map[string]any(s.accessPayload))
}

// SessionData reads the server-side session data.
func (s *Session) SessionData(ctx context.Context) (Payload, error) {
	rec, err := s.engine.store.Get(ctx, s.handle)
	if err != nil {
		return nil, s.engine.storeError(ctx, err)
	}
	s.record = rec
	return nonNilPayload(rec.SessionData), nil
}

// UpdateSessionData replaces the server-side session data.
func (s *Session) UpdateSessionData(ctx context.Context, data Payload) error {
	return s.engine.UpdateSessionData(ctx, s.handle, data)
}

// MergeSessionData merges data into the server-side session data.
func (s *Session) MergeSessionData(ctx context.Context, data Payload) error {
	return s.engine.MergeSessionData(ctx, s.handle, data)
}

// UpdateAccessTokenPayload merges payload into the stored access-token
// payload and re-mints this session's access token so the change is
// visible immediately. The rotation counter and anti-CSRF token are kept.
func (s *Session) UpdateAccessTokenPayload(ctx context.Context, payload Payload) error {
	rec, err := s.engine.updateAccessPayload(ctx, s.handle, payload, false)
	if err != nil {
		return err
	}
	access, err := s.engine.mintAccess(s.handle, s.userID, s.tenantID, s.counter, s.antiCSRF, rec.AccessTokenPayload)
	if err != nil {
		return codecUnavailable(err)
	}
	s.record = rec
	s.access = access
	s.accessPayload = maps.Clone(Payload(rec.AccessTokenPayload))
	s.accessUpdated = true
	return nil
}

// CheckClaims runs validators against this session. Without arguments the
// engine's configured validators run; pass claims.None()... to run none.
// Failures are returned as *ClaimValidationError.
func (s *Session) CheckClaims(ctx context.Context, validators ...claims.Validator) error {
	if validators == nil {
		validators = s.engine.validators
	}
	subject := claims.NewSubject(s.handle, s.userID, s.tenantID, s.accessPayload,
		flows.SessionDataLoader(s.engine.store, s.handle, s.record))
	err := claims.Run(ctx, subject, validators)
	if err == nil {
		return nil
	}
	var ve *claims.ValidationError
	if errors.As(err, &ve) {
		s.engine.metricInc(MetricClaimValidationFailed)
		return &ClaimValidationError{Key: ve.Key, Reason: ve.Reason}
	}
	return s.engine.storeError(ctx, err)
}

// Revoke deletes this session.
func (s *Session) Revoke(ctx context.Context) error {
	_, err := s.engine.RevokeSession(ctx, s.handle)
	return err
}
