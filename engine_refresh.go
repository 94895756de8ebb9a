package goSession

import (
	"context"
	"strconv"
	"time"

	"github.com/MrEthical07/goSession/csrf"
	"github.com/MrEthical07/goSession/internal/flows"
)

// RefreshSession rotates the refresh token of a session and returns fresh
// access, refresh and anti-CSRF tokens.
//
// A refresh token older than the stored lineage is treated as stolen: the
// call returns a *TokenTheftError and, with Theft.AutoRevoke, the session
// is deleted first. Of two concurrent refreshes with the same token exactly
// one succeeds.
//
//	Performance: 1 store read + 1 compare-and-swap on the happy path.
func (e *Engine) RefreshSession(ctx context.Context, refreshToken string, opts RefreshOptions) (*Session, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	start := time.Now()
	defer e.metricObserve(MetricRefreshLatency, start)
	tenantID := tenantIDFromContext(ctx)

	if refreshToken == "" {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", tenantID, "", ErrUnauthorised, refreshReason("missing_token"))
		return nil, ErrUnauthorised
	}

	// The refresh token never travels with an anti-CSRF token, so only the
	// custom header mode applies here.
	if e.csrf.Mode() == csrf.ModeViaCustomHeader && !opts.HasCustomHeader {
		e.metricInc(MetricAntiCSRFFailed)
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventAntiCSRFFailed, false, "", tenantID, "", ErrAntiCSRFCheckFailed, refreshReason("missing_custom_header"))
		return nil, ErrAntiCSRFCheckFailed
	}

	res := flows.RunRefresh(ctx, refreshToken, e.refreshDeps())
	if res.TenantID != "" {
		tenantID = res.TenantID
	}

	switch res.Failure {
	case flows.RefreshFailureNone:
		e.metricInc(MetricRefreshSuccess)
		e.emitAudit(ctx, auditEventRefreshSuccess, true, res.UserID, tenantID, res.Handle, nil, func() map[string]string {
			return map[string]string{
				"rotation_counter": strconv.FormatUint(res.Record.RotationCounter, 10),
			}
		})
		return newSessionFromRecord(e, res.Record, res.Tokens), nil

	case flows.RefreshFailureTheft:
		if res.Revoked {
			e.deny(res.Handle)
			e.metricInc(MetricSessionRevoked)
		}
		e.metricInc(MetricTokenTheftDetected)
		e.metricInc(MetricRefreshFailure)
		err := &TokenTheftError{Handle: res.Handle, UserID: res.UserID}
		e.emitAudit(ctx, auditEventTokenTheftDetected, false, res.UserID, tenantID, res.Handle, err, func() map[string]string {
			return map[string]string{
				"revoked": strconv.FormatBool(res.Revoked),
			}
		})
		return nil, err

	case flows.RefreshFailureDecode, flows.RefreshFailureExpired, flows.RefreshFailureAhead:
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, res.UserID, tenantID, res.Handle, ErrUnauthorised, refreshReason(refreshFailureReason(res.Failure)))
		return nil, ErrUnauthorised

	case flows.RefreshFailureSessionNotFound:
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, res.UserID, tenantID, res.Handle, ErrSessionNotFound, refreshReason("session_not_found"))
		return nil, ErrSessionNotFound

	case flows.RefreshFailureCodec, flows.RefreshFailureIssue:
		e.metricInc(MetricCodecUnavailable)
		e.metricInc(MetricRefreshFailure)
		err := codecUnavailable(res.Err)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, res.UserID, tenantID, res.Handle, err, refreshReason(refreshFailureReason(res.Failure)))
		return nil, err

	case flows.RefreshFailureContention:
		e.metricInc(MetricRefreshContention)
		e.metricInc(MetricRefreshFailure)
		err := storeUnavailable(res.Err)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, res.UserID, tenantID, res.Handle, err, refreshReason("contention"))
		return nil, err

	default:
		e.metricInc(MetricRefreshFailure)
		err := e.storeError(ctx, res.Err)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, res.UserID, tenantID, res.Handle, err, refreshReason("store"))
		return nil, err
	}
}

func (e *Engine) refreshDeps() flows.RefreshDeps {
	return flows.RefreshDeps{
		Verify:          e.codec.Verify,
		Store:           e.store,
		Now:             e.now,
		RefreshLifetime: e.config.JWT.RefreshTTL,
		Issue:           e.issueTokens,
		AutoRevoke:      e.config.Theft.AutoRevoke,
		Warn:            e.warn,
	}
}

func refreshFailureReason(kind flows.RefreshFailureKind) string {
	switch kind {
	case flows.RefreshFailureDecode:
		return "decode_failed"
	case flows.RefreshFailureExpired:
		return "expired"
	case flows.RefreshFailureAhead:
		return "counter_ahead"
	case flows.RefreshFailureCodec:
		return "codec"
	case flows.RefreshFailureIssue:
		return "issue_failed"
	default:
		return "unknown"
	}
}

func refreshReason(reason string) func() map[string]string {
	return func() map[string]string {
		return map[string]string{"reason": reason}
	}
}
