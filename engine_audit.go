package goSession

import (
	"context"
	"errors"

	"github.com/MrEthical07/goSession/internal/audit"
)

const (
	auditEventSessionCreated         = "session_created"
	auditEventSessionVerified        = "session_verified"
	auditEventSessionVerifyFailed    = "session_verify_failed"
	auditEventRefreshSuccess         = "refresh_success"
	auditEventRefreshInvalid         = "refresh_invalid"
	auditEventTokenTheftDetected     = "token_theft_detected"
	auditEventSessionRevoked         = "session_revoked"
	auditEventSessionsRevokedForUser = "sessions_revoked_for_user"
	auditEventSessionDataUpdated     = "session_data_updated"
	auditEventAccessPayloadUpdated   = "access_payload_updated"
	auditEventAccessTokenRegenerated = "access_token_regenerated"
	auditEventAntiCSRFFailed         = "anti_csrf_failed"
	auditEventClaimValidationFailed  = "claim_validation_failed"
)

// AuditErrorCode is the stable error label written to [AuditEvent.Error].
type AuditErrorCode string

const (
	auditErrUnauthorised     AuditErrorCode = "unauthorised"
	auditErrSessionNotFound  AuditErrorCode = "session_not_found"
	auditErrTryRefresh       AuditErrorCode = "try_refresh_token"
	auditErrTokenTheft       AuditErrorCode = "token_theft"
	auditErrAntiCSRF         AuditErrorCode = "anti_csrf_failed"
	auditErrClaimValidation  AuditErrorCode = "claim_validation_failed"
	auditErrStoreUnavailable AuditErrorCode = "store_unavailable"
	auditErrCodecUnavailable AuditErrorCode = "codec_unavailable"
	auditErrContextDone      AuditErrorCode = "context_done"
	auditErrInternal         AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	tenantID string,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}
	if tenantID == "" {
		tenantID = tenantIDFromContext(ctx)
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}
	if ve := claimValidationDetail(err); ve != nil {
		if metadata == nil {
			metadata = make(map[string]string, 2)
		}
		metadata["claim_key"] = ve.Key
		metadata["claim_reason"] = ve.Reason
	}

	ts := e.now().UTC()
	event := AuditEvent{
		ID:        audit.NewEventID(ts),
		Timestamp: ts,
		EventType: eventType,
		UserID:    userID,
		TenantID:  tenantID,
		SessionID: sessionID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func claimValidationDetail(err error) *ClaimValidationError {
	var ve *ClaimValidationError
	if errors.As(err, &ve) {
		return ve
	}
	return nil
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrSessionNotFound):
		return auditErrSessionNotFound
	case errors.Is(err, ErrUnauthorised):
		return auditErrUnauthorised
	case errors.Is(err, ErrTryRefreshToken):
		return auditErrTryRefresh
	case errors.Is(err, ErrTokenTheftDetected):
		return auditErrTokenTheft
	case errors.Is(err, ErrAntiCSRFCheckFailed):
		return auditErrAntiCSRF
	case errors.Is(err, ErrClaimValidationFailed):
		return auditErrClaimValidation
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrStoreUnavailable
	case errors.Is(err, ErrCodecUnavailable):
		return auditErrCodecUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return auditErrContextDone
	default:
		return auditErrInternal
	}
}
