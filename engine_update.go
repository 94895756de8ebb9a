package goSession

import (
	"context"
	"maps"
	"time"

	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/session"
)

// UpdateSessionData replaces the server-side session data with data.
//
//	Performance: 1 read + 1 compare-and-swap per attempt.
func (e *Engine) UpdateSessionData(ctx context.Context, handle string, data Payload) error {
	return e.updateSessionData(ctx, handle, data, true)
}

// MergeSessionData merges data into the server-side session data. A nil
// value deletes its key.
func (e *Engine) MergeSessionData(ctx context.Context, handle string, data Payload) error {
	return e.updateSessionData(ctx, handle, data, false)
}

func (e *Engine) updateSessionData(ctx context.Context, handle string, data Payload, replace bool) error {
	if e == nil {
		return ErrEngineNotReady
	}
	update, err := normalizePayload(data)
	if err != nil {
		return err
	}
	_, err = e.updateRecord(ctx, handle, auditEventSessionDataUpdated, MetricSessionDataUpdated, func(r *session.Record) {
		if replace {
			r.SessionData = update
			return
		}
		r.SessionData = mergePayload(r.SessionData, update)
	})
	return err
}

// UpdateAccessTokenPayload merges payload into the stored access-token
// payload. Tokens already issued keep their old payload; the next refresh
// or [Engine.RegenerateAccessToken] picks up the change.
func (e *Engine) UpdateAccessTokenPayload(ctx context.Context, handle string, payload Payload) error {
	if e == nil {
		return ErrEngineNotReady
	}
	_, err := e.updateAccessPayload(ctx, handle, payload, false)
	return err
}

// ReplaceAccessTokenPayload overwrites the stored access-token payload with
// payload.
func (e *Engine) ReplaceAccessTokenPayload(ctx context.Context, handle string, payload Payload) error {
	if e == nil {
		return ErrEngineNotReady
	}
	_, err := e.updateAccessPayload(ctx, handle, payload, true)
	return err
}

func (e *Engine) updateAccessPayload(ctx context.Context, handle string, payload Payload, replace bool) (*session.Record, error) {
	update, err := normalizePayload(payload)
	if err != nil {
		return nil, err
	}
	return e.updateRecord(ctx, handle, auditEventAccessPayloadUpdated, MetricAccessPayloadUpdated, func(r *session.Record) {
		if replace {
			r.AccessTokenPayload = mergePayload(nil, update)
			return
		}
		r.AccessTokenPayload = mergePayload(r.AccessTokenPayload, update)
	})
}

func (e *Engine) updateRecord(ctx context.Context, handle, event string, metric MetricID, mutate func(*session.Record)) (*session.Record, error) {
	rec, err := flows.RunUpdate(ctx, e.store, handle, func(r *session.Record) error {
		mutate(r)
		return nil
	})
	if err != nil {
		mapped := e.storeError(ctx, err)
		e.emitAudit(ctx, event, false, "", "", handle, mapped, nil)
		return nil, mapped
	}
	e.metricInc(metric)
	e.emitAudit(ctx, event, true, rec.UserID, rec.TenantID, handle, nil, nil)
	return rec, nil
}

// GetSessionInformation returns the stored state of a session.
func (e *Engine) GetSessionInformation(ctx context.Context, handle string) (*SessionInformation, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	rec, err := e.store.Get(ctx, handle)
	if err != nil {
		return nil, e.storeError(ctx, err)
	}
	return &SessionInformation{
		Handle:             rec.Handle,
		UserID:             rec.UserID,
		TenantID:           rec.TenantID,
		SessionData:        nonNilPayload(rec.SessionData),
		AccessTokenPayload: nonNilPayload(rec.AccessTokenPayload),
		RotationCounter:    rec.RotationCounter,
		CreatedAt:          time.UnixMilli(rec.CreatedAt),
		Expiry:             time.UnixMilli(rec.ExpiresAt),
	}, nil
}

func nonNilPayload(m map[string]any) Payload {
	if m == nil {
		return Payload{}
	}
	return maps.Clone(Payload(m))
}
