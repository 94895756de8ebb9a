package session

import "maps"

// Record is the server-side state of one session.
//
// Times are unix milliseconds. Revision increases on every successful write
// and is the version compared by [Store.CompareAndSwap]; RotationCounter only
// moves when a refresh token is rotated.
type Record struct {
	Handle          string `json:"handle"`
	UserID          string `json:"user_id"`
	TenantID        string `json:"tenant_id"`
	RotationCounter uint64 `json:"rotation_counter"`
	Revision        uint64 `json:"revision"`

	AccessTokenPayload map[string]any `json:"user_data_in_jwt,omitempty"`
	SessionData        map[string]any `json:"session_data,omitempty"`

	CreatedAt int64 `json:"created_time"`
	ExpiresAt int64 `json:"expires_at"`
}

// Clone returns a copy whose maps can be mutated without affecting r.
// Nested values are shared.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	out.AccessTokenPayload = maps.Clone(r.AccessTokenPayload)
	out.SessionData = maps.Clone(r.SessionData)
	return &out
}

// Expired reports whether the record is past its expiry at nowMS.
// A record is expired at its expiry instant.
func (r *Record) Expired(nowMS int64) bool {
	return r.ExpiresAt > 0 && nowMS >= r.ExpiresAt
}

// TTLMillis returns the remaining lifetime at nowMS, or 0 when expired.
func (r *Record) TTLMillis(nowMS int64) int64 {
	if r.ExpiresAt <= nowMS {
		return 0
	}
	return r.ExpiresAt - nowMS
}
