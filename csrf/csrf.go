package csrf

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/goSession/internal"
)

// Mode selects how requests prove they were not forged cross-site.
type Mode string

const (
	ModeNone            Mode = "NONE"
	ModeViaToken        Mode = "VIA_TOKEN"
	ModeViaCustomHeader Mode = "VIA_CUSTOM_HEADER"
)

// DefaultHeader is the custom header checked in [ModeViaCustomHeader].
const DefaultHeader = "rid"

const minSecretSize = 32

// ErrCheckFailed is returned for every failed anti-CSRF check.
var ErrCheckFailed = errors.New("anti-csrf check failed")

// ParseMode maps a configuration string onto a [Mode]. Matching ignores case.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToUpper(strings.TrimSpace(s))) {
	case "", ModeNone:
		return ModeNone, nil
	case ModeViaToken:
		return ModeViaToken, nil
	case ModeViaCustomHeader:
		return ModeViaCustomHeader, nil
	default:
		return "", fmt.Errorf("unknown anti-csrf mode %q", s)
	}
}

// Request carries the anti-CSRF evidence presented with a request.
type Request struct {
	// Token is the anti-CSRF token sent by the client.
	Token string
	// HasCustomHeader reports whether the configured custom header was set
	// to a non-empty value.
	HasCustomHeader bool
}

// Guard issues and checks anti-CSRF tokens for one configured mode.
//
// Guard is safe for concurrent use.
type Guard struct {
	mode   Mode
	secret []byte
	header string
}

// New returns a [Guard]. [ModeViaToken] requires a secret of at least 32
// bytes; an empty header defaults to [DefaultHeader].
func New(mode Mode, secret []byte, header string) (*Guard, error) {
	switch mode {
	case ModeNone, ModeViaCustomHeader:
	case ModeViaToken:
		if len(secret) < minSecretSize {
			return nil, errors.New("anti-csrf VIA_TOKEN requires a secret of at least 32 bytes")
		}
	default:
		return nil, fmt.Errorf("unknown anti-csrf mode %q", mode)
	}
	if header == "" {
		header = DefaultHeader
	}
	return &Guard{
		mode:   mode,
		secret: append([]byte(nil), secret...),
		header: header,
	}, nil
}

func (g *Guard) Mode() Mode {
	return g.mode
}

// Header is the name of the custom header checked in [ModeViaCustomHeader].
func (g *Guard) Header() string {
	return g.header
}

// Issue mints a token bound to handle. It returns "" unless the mode is
// [ModeViaToken].
func (g *Guard) Issue(handle string) (string, error) {
	if g.mode != ModeViaToken {
		return "", nil
	}
	nonce, err := internal.NewNonce()
	if err != nil {
		return "", err
	}
	return nonce + "." + g.sign(handle, nonce), nil
}

// Verify checks the evidence in req for the session handle. embedded is the
// token carried inside the session's access token.
func (g *Guard) Verify(handle, embedded string, req Request) error {
	switch g.mode {
	case ModeNone:
		return nil
	case ModeViaCustomHeader:
		if !req.HasCustomHeader {
			return ErrCheckFailed
		}
		return nil
	case ModeViaToken:
		if req.Token == "" || embedded == "" {
			return ErrCheckFailed
		}
		if subtle.ConstantTimeCompare([]byte(req.Token), []byte(embedded)) != 1 {
			return ErrCheckFailed
		}
		nonce, sig, ok := strings.Cut(req.Token, ".")
		if !ok || nonce == "" {
			return ErrCheckFailed
		}
		if !hmac.Equal([]byte(sig), []byte(g.sign(handle, nonce))) {
			return ErrCheckFailed
		}
		return nil
	default:
		return ErrCheckFailed
	}
}

func (g *Guard) sign(handle, nonce string) string {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(handle))
	mac.Write([]byte{0})
	mac.Write([]byte(nonce))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
