package internal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
)

// Handle is the 128-bit random identifier of a session.
type Handle [16]byte

const nonceSize = 16

// NewHandle draws a fresh handle from crypto/rand.
func NewHandle() (Handle, error) {
	var h Handle
	_, err := rand.Read(h[:])
	return h, err
}

func (h Handle) Bytes() []byte {
	return h[:]
}

func (h Handle) String() string {
	// base64url, no padding, compact
	return base64.RawURLEncoding.EncodeToString(h[:])
}

// ParseHandle decodes the string form produced by [Handle.String].
func ParseHandle(s string) (Handle, error) {
	var h Handle

	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return h, err
	}
	if len(raw) != len(h) {
		return h, errors.New("invalid session handle size")
	}

	copy(h[:], raw)
	return h, nil
}

// NewNonce returns a random base64url string for anti-CSRF tokens.
func NewNonce() (string, error) {
	var b [nonceSize]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b[:]), nil
}
