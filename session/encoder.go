package session

import (
	"encoding/json"
	"errors"
	"fmt"
)

const recordFormatVersionCurrent = 1

const maxEncodedRecordSize = 64 << 10

// ErrRecordTooLarge is returned by [Encode] when the serialized record
// exceeds the per-session size cap.
var ErrRecordTooLarge = errors.New("session record too large")

// Encode serializes r as a version byte followed by its JSON form.
func Encode(r *Record) ([]byte, error) {
	if r == nil {
		return nil, errors.New("nil record")
	}
	if len(r.UserID) > 255 {
		return nil, errors.New("userID too long")
	}
	if len(r.TenantID) > 255 {
		return nil, errors.New("tenantID too long")
	}

	body, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	if len(body)+1 > maxEncodedRecordSize {
		return nil, ErrRecordTooLarge
	}

	out := make([]byte, 0, len(body)+1)
	out = append(out, recordFormatVersionCurrent)
	out = append(out, body...)
	return out, nil
}

// Decode parses data produced by [Encode]. Unknown versions and malformed
// bodies return an error wrapping [ErrCorrupt].
func Decode(data []byte) (*Record, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty record", ErrCorrupt)
	}
	if data[0] != recordFormatVersionCurrent {
		return nil, fmt.Errorf("%w: invalid record version %d", ErrCorrupt, data[0])
	}

	r := &Record{}
	if err := json.Unmarshal(data[1:], r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if r.Handle == "" || r.UserID == "" {
		return nil, fmt.Errorf("%w: missing handle or user", ErrCorrupt)
	}
	return r, nil
}
