package goSession

import (
	"context"
	"errors"
	"maps"
	"time"

	"github.com/MrEthical07/goSession/claims"
	"github.com/MrEthical07/goSession/csrf"
	"github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/session"
	"github.com/patrickmn/go-cache"
	slogctx "github.com/veqryn/slog-context"
)

// Engine issues, validates, rotates and revokes sessions.
//
// Engine is safe for concurrent use after [Builder.Build]. It holds no
// per-session state; everything mutable lives in the [session.Store].
type Engine struct {
	config     Config
	store      session.Store
	codec      TokenCodec
	csrf       *csrf.Guard
	validators []claims.Validator
	denied     *cache.Cache
	audit      *audit.Dispatcher
	metrics    *Metrics
	now        func() time.Time
}

// Close drains the audit dispatcher. The store and codec are owned by the
// caller and are not closed.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events dropped under
// backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:      map[MetricID]uint64{},
			Histograms:    map[MetricID][]uint64{},
			HistogramSums: map[MetricID]float64{},
		}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// Store returns the session store the engine writes to.
func (e *Engine) Store() session.Store {
	return e.store
}

// AntiCSRFMode reports the configured anti-CSRF mode.
func (e *Engine) AntiCSRFMode() csrf.Mode {
	return e.csrf.Mode()
}

// AntiCSRFHeader is the custom header checked in csrf.ModeViaCustomHeader.
func (e *Engine) AntiCSRFHeader() string {
	return e.csrf.Header()
}

// AccessTokenLifetimeMS returns the access-token lifetime in milliseconds.
func (e *Engine) AccessTokenLifetimeMS() int64 {
	return e.config.JWT.AccessTTL.Milliseconds()
}

// RefreshTokenLifetimeMS returns the refresh-token lifetime in milliseconds.
func (e *Engine) RefreshTokenLifetimeMS() int64 {
	return e.config.JWT.RefreshTTL.Milliseconds()
}

// Ping checks the store when it can report liveness.
func (e *Engine) Ping(ctx context.Context) error {
	if e == nil {
		return ErrEngineNotReady
	}
	p, ok := e.store.(session.Pinger)
	if !ok {
		return nil
	}
	if err := p.Ping(ctx); err != nil {
		return storeUnavailable(err)
	}
	return nil
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricObserve(id MetricID, start time.Time) {
	if e == nil || !e.metrics.LatencyEnabled() {
		return
	}
	e.metrics.Observe(id, time.Since(start))
}

/*
====================================
TOKEN MINTING
====================================
*/

// issueTokens signs a full token set for rec: a fresh anti-CSRF token, an
// access token and a refresh token bound to rec.RotationCounter.
func (e *Engine) issueTokens(rec *session.Record) (flows.Tokens, error) {
	antiCSRF, err := e.csrf.Issue(rec.Handle)
	if err != nil {
		return flows.Tokens{}, err
	}

	access, err := e.mintAccess(rec.Handle, rec.UserID, rec.TenantID, rec.RotationCounter, antiCSRF, rec.AccessTokenPayload)
	if err != nil {
		return flows.Tokens{}, err
	}

	refreshValue, err := e.codec.Sign(jwt.Payload{
		Kind:     jwt.KindRefresh,
		Handle:   rec.Handle,
		UserID:   rec.UserID,
		TenantID: rec.TenantID,
		Counter:  rec.RotationCounter,
	}, e.config.JWT.RefreshTTL)
	if err != nil {
		return flows.Tokens{}, err
	}

	return flows.Tokens{
		Access:        access.Value,
		AccessExpiry:  access.Expiry,
		Refresh:       refreshValue,
		RefreshExpiry: e.tokenExpiry(e.config.JWT.RefreshTTL),
		AntiCSRF:      antiCSRF,
	}, nil
}

func (e *Engine) mintAccess(handle, userID, tenantID string, counter uint64, antiCSRF string, payload map[string]any) (Token, error) {
	value, err := e.codec.Sign(jwt.Payload{
		Kind:     jwt.KindAccess,
		Handle:   handle,
		UserID:   userID,
		TenantID: tenantID,
		Counter:  counter,
		AntiCSRF: antiCSRF,
		User:     maps.Clone(payload),
	}, e.config.JWT.AccessTTL)
	if err != nil {
		return Token{}, err
	}
	return Token{
		Value:     value,
		Expiry:    e.tokenExpiry(e.config.JWT.AccessTTL),
		CreatedAt: e.now().Truncate(time.Second),
	}, nil
}

// tokenExpiry matches the second resolution of JWT numeric dates.
func (e *Engine) tokenExpiry(lifetime time.Duration) time.Time {
	return e.now().Add(lifetime).Truncate(time.Second)
}

/*
====================================
LOCAL DENY LIST
====================================
*/

func (e *Engine) deny(handles ...string) {
	if e.denied == nil {
		return
	}
	for _, h := range handles {
		e.denied.SetDefault(h, struct{}{})
	}
}

func (e *Engine) isDenied(handle string) bool {
	_, found := e.denied.Get(handle)
	return found
}

/*
====================================
ERROR MAPPING
====================================
*/

func (e *Engine) storeError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return ErrSessionNotFound
	case errors.Is(err, flows.ErrUpdateContended):
		e.metricInc(MetricStoreUnavailable)
		return storeUnavailable(err)
	case errors.Is(err, session.ErrUnavailable), errors.Is(err, session.ErrCorrupt):
		e.metricInc(MetricStoreUnavailable)
		slogctx.Warn(ctx, "goSession: session store failure", "error", err)
		return storeUnavailable(err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return storeUnavailable(err)
	default:
		return err
	}
}

func (e *Engine) warn(ctx context.Context, msg string, args ...any) {
	slogctx.Warn(ctx, msg, args...)
}
