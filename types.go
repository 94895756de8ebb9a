package goSession

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/MrEthical07/goSession/claims"
	"github.com/MrEthical07/goSession/jwt"
)

// Payload is a JSON-compatible mapping carried in an access token or kept as
// server-side session data.
//
// When merged into existing data a nil value deletes its key and any other
// value overwrites.
type Payload map[string]any

// normalizePayload returns p in the shape it has after a JSON round trip:
// numbers become float64, arrays []any and objects map[string]any. A
// session then looks the same whether it came from CreateNewSession, a
// decoded token or any store.
func normalizePayload(p Payload) (map[string]any, error) {
	if p == nil {
		return nil, nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return out, nil
}

func mergePayload(dst map[string]any, update Payload) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(update))
	}
	for k, v := range update {
		if v == nil {
			delete(dst, k)
			continue
		}
		dst[k] = v
	}
	return dst
}

// Token is a signed token together with its lifetime bounds.
type Token struct {
	Value     string
	Expiry    time.Time
	CreatedAt time.Time
}

// TokenCodec signs and verifies session tokens. [jwt.Manager] implements it.
//
// Verify must return an error matching [jwt.ErrExpired] for expired tokens
// and [jwt.ErrInvalid] for forged or malformed ones. Any other error is
// treated as a codec outage.
type TokenCodec interface {
	Sign(p jwt.Payload, lifetime time.Duration) (string, error)
	Verify(token string) (*jwt.Payload, error)
}

// GetSessionOptions tunes one [Engine.GetSession] call.
type GetSessionOptions struct {
	// AntiCSRFCheck enables the anti-CSRF check. nil means check.
	AntiCSRFCheck *bool
	// SessionRequired makes a missing token an error instead of (nil, nil).
	SessionRequired bool
	// OverrideClaimValidators replaces the configured validators when
	// non-nil; claims.None() skips them all.
	OverrideClaimValidators []claims.Validator
	// AntiCSRFToken is the token echoed by the client.
	AntiCSRFToken string
	// HasCustomHeader reports whether the anti-CSRF custom header was sent.
	HasCustomHeader bool
	// CheckDatabase overrides the configured revocation mode for this call.
	CheckDatabase *bool
}

// RefreshOptions tunes one [Engine.RefreshSession] call.
type RefreshOptions struct {
	// HasCustomHeader reports whether the anti-CSRF custom header was sent.
	HasCustomHeader bool
}

// SessionInformation is the server-side view of a session.
type SessionInformation struct {
	Handle             string
	UserID             string
	TenantID           string
	SessionData        Payload
	AccessTokenPayload Payload
	RotationCounter    uint64
	CreatedAt          time.Time
	Expiry             time.Time
}

// Bool returns a pointer to b, for option fields.
func Bool(b bool) *bool {
	return &b
}
