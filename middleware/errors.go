package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	goSession "github.com/MrEthical07/goSession"
	slogctx "github.com/veqryn/slog-context"
)

type errorBody struct {
	Message               string          `json:"message"`
	ClaimValidationErrors []claimErrorDTO `json:"claimValidationErrors,omitempty"`
}

type claimErrorDTO struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// StatusFor maps an engine error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, goSession.ErrClaimValidationFailed):
		return http.StatusForbidden
	case errors.Is(err, goSession.ErrUnauthorised),
		errors.Is(err, goSession.ErrTryRefreshToken),
		errors.Is(err, goSession.ErrTokenTheftDetected),
		errors.Is(err, goSession.ErrAntiCSRFCheckFailed):
		return http.StatusUnauthorized
	case errors.Is(err, goSession.ErrStoreUnavailable),
		errors.Is(err, goSession.ErrCodecUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func messageFor(err error) string {
	switch {
	case errors.Is(err, goSession.ErrTryRefreshToken):
		return "try refresh token"
	case errors.Is(err, goSession.ErrTokenTheftDetected):
		return "token theft detected"
	case errors.Is(err, goSession.ErrAntiCSRFCheckFailed):
		return "anti-csrf check failed"
	case errors.Is(err, goSession.ErrClaimValidationFailed):
		return "invalid claim"
	case errors.Is(err, goSession.ErrUnauthorised):
		return "unauthorised"
	case errors.Is(err, goSession.ErrStoreUnavailable),
		errors.Is(err, goSession.ErrCodecUnavailable):
		return "service unavailable"
	default:
		return "internal error"
	}
}

// WriteError writes err as a JSON error response. Theft and unauthorised
// responses also clear the client's tokens.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	body := errorBody{Message: messageFor(err)}

	var ve *goSession.ClaimValidationError
	if errors.As(err, &ve) {
		body.ClaimValidationErrors = []claimErrorDTO{{ID: ve.Key, Reason: ve.Reason}}
	}
	if errors.Is(err, goSession.ErrTokenTheftDetected) || errors.Is(err, goSession.ErrUnauthorised) {
		ClearSessionHeaders(w)
	}
	if status >= http.StatusInternalServerError {
		slogctx.Error(r.Context(), "session request failed", "error", err)
	}

	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
