package middleware

import (
	"net/http"

	goSession "github.com/MrEthical07/goSession"
	slogctx "github.com/veqryn/slog-context"
)

// RefreshHandler rotates the refresh token from the st-refresh-token header
// and writes the new tokens as response headers.
func RefreshHandler(engine *goSession.Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		header := engine.AntiCSRFHeader()
		s, err := engine.RefreshSession(r.Context(), RefreshToken(r), goSession.RefreshOptions{
			HasCustomHeader: header != "" && r.Header.Get(header) != "",
		})
		if err != nil {
			WriteError(w, r, err)
			return
		}
		if err := WriteSessionHeaders(w, s); err != nil {
			WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
	})
}

// SignOutHandler verifies the access token, revokes its session and clears
// the client's tokens.
func SignOutHandler(engine *goSession.Engine) http.Handler {
	signOut := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := SessionFromContext(r.Context())
		if !ok {
			WriteError(w, r, goSession.ErrUnauthorised)
			return
		}
		if err := s.Revoke(r.Context()); err != nil {
			WriteError(w, r, err)
			return
		}
		slogctx.Debug(r.Context(), "session signed out", "session", s.Handle())
		ClearSessionHeaders(w)
		writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
	})

	verify := VerifySession(engine, Options{})(signOut)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		verify.ServeHTTP(w, r)
	})
}
