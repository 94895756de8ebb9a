package goSession

import (
	"context"
	"strconv"

	"github.com/MrEthical07/goSession/internal/flows"
)

// RevokeSession deletes the session record. It reports false when the
// session was already gone.
func (e *Engine) RevokeSession(ctx context.Context, handle string) (bool, error) {
	if e == nil {
		return false, ErrEngineNotReady
	}
	removed, err := e.store.Delete(ctx, handle)
	if err != nil {
		mapped := e.storeError(ctx, err)
		e.emitAudit(ctx, auditEventSessionRevoked, false, "", "", handle, mapped, nil)
		return false, mapped
	}
	e.deny(handle)
	if removed {
		e.metricInc(MetricSessionRevoked)
	}
	e.emitAudit(ctx, auditEventSessionRevoked, removed, "", "", handle, nil, nil)
	return removed, nil
}

// RevokeAllSessionsForUser deletes every live session of userID in the
// tenant of ctx and returns the handles removed.
func (e *Engine) RevokeAllSessionsForUser(ctx context.Context, userID string) ([]string, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	tenantID := tenantIDFromContext(ctx)
	removed, err := flows.RunRevokeAllForUser(ctx, e.store, tenantID, userID)
	e.deny(removed...)
	if err != nil {
		mapped := e.storeError(ctx, err)
		e.emitAudit(ctx, auditEventSessionsRevokedForUser, false, userID, tenantID, "", mapped, revokedCount(removed))
		return removed, mapped
	}
	e.metricInc(MetricSessionsRevokedForUser)
	e.emitAudit(ctx, auditEventSessionsRevokedForUser, true, userID, tenantID, "", nil, revokedCount(removed))
	return removed, nil
}

// RevokeMultipleSessions deletes each handle and returns those that
// existed. On a store error the handles removed so far are returned with it.
func (e *Engine) RevokeMultipleSessions(ctx context.Context, handles []string) ([]string, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	removed, err := flows.RunRevokeMany(ctx, e.store, handles)
	e.deny(removed...)
	for _, h := range removed {
		e.metricInc(MetricSessionRevoked)
		e.emitAudit(ctx, auditEventSessionRevoked, true, "", "", h, nil, nil)
	}
	if err != nil {
		return removed, e.storeError(ctx, err)
	}
	return removed, nil
}

// GetAllSessionHandlesForUser lists the live sessions of userID in the
// tenant of ctx.
func (e *Engine) GetAllSessionHandlesForUser(ctx context.Context, userID string) ([]string, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	handles, err := e.store.ListByUser(ctx, tenantIDFromContext(ctx), userID)
	if err != nil {
		return nil, e.storeError(ctx, err)
	}
	return handles, nil
}

func revokedCount(handles []string) func() map[string]string {
	return func() map[string]string {
		return map[string]string{"count": strconv.Itoa(len(handles))}
	}
}
