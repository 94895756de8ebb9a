package middleware

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	goSession "github.com/MrEthical07/goSession"
)

// Request and response header names of the header-based token transport.
const (
	HeaderAuthorization = "Authorization"
	HeaderAccessToken   = "st-access-token"
	HeaderRefreshToken  = "st-refresh-token"
	HeaderAntiCSRF      = "anti-csrf"
	HeaderFrontToken    = "front-token"
)

var exposedHeaders = []string{HeaderAccessToken, HeaderRefreshToken, HeaderAntiCSRF, HeaderFrontToken}

// ExposedHeaders lists the response headers a browser client must be
// allowed to read. CORS configuration should expose them.
func ExposedHeaders() []string {
	return append([]string(nil), exposedHeaders...)
}

// AccessToken reads the bearer token from the Authorization header.
func AccessToken(r *http.Request) string {
	token, _ := bearerToken(r.Header.Get(HeaderAuthorization))
	return token
}

// RefreshToken reads the refresh token header.
func RefreshToken(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(HeaderRefreshToken))
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

type frontToken struct {
	UserID  string            `json:"uid"`
	Expiry  int64             `json:"ate"`
	Payload goSession.Payload `json:"up"`
}

// FrontToken encodes the client-readable session summary: user id, access
// token expiry in unix milliseconds and the access-token payload.
func FrontToken(s *goSession.Session) (string, error) {
	data, err := json.Marshal(frontToken{
		UserID:  s.UserID(),
		Expiry:  s.AccessToken().Expiry.UnixMilli(),
		Payload: s.AccessTokenPayload(),
	})
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// WriteSessionHeaders sets the tokens s carries on the response. Only
// tokens minted for this request are written.
func WriteSessionHeaders(w http.ResponseWriter, s *goSession.Session) error {
	if s == nil || !s.AccessTokenUpdated() {
		return nil
	}
	h := w.Header()
	h.Set(HeaderAccessToken, s.AccessToken().Value)
	if rt := s.RefreshToken().Value; rt != "" {
		h.Set(HeaderRefreshToken, rt)
	}
	if csrf := s.AntiCSRFToken(); csrf != "" {
		h.Set(HeaderAntiCSRF, csrf)
	}
	ft, err := FrontToken(s)
	if err != nil {
		return err
	}
	h.Set(HeaderFrontToken, ft)
	return nil
}

// ClearSessionHeaders tells the client to drop its tokens by sending
// empty values and a "remove" front token.
func ClearSessionHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set(HeaderAccessToken, "")
	h.Set(HeaderRefreshToken, "")
	h.Set(HeaderFrontToken, "remove")
	h.Del(HeaderAntiCSRF)
}
