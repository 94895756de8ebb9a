package middleware

import (
	"context"
	"net/http"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/claims"
)

type sessionContextKey struct{}

// SessionFromContext returns the session VerifySession attached to ctx.
func SessionFromContext(ctx context.Context) (*goSession.Session, bool) {
	s, ok := ctx.Value(sessionContextKey{}).(*goSession.Session)
	return s, ok && s != nil
}

// WithSession attaches s to ctx.
func WithSession(ctx context.Context, s *goSession.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, s)
}

// Options tunes VerifySession. The zero value requires a session and runs
// every configured check.
type Options struct {
	// Optional passes requests without an access token through with no
	// session in the context.
	Optional bool
	// AntiCSRFCheck overrides the anti-CSRF check. nil means check, except
	// for GET, HEAD and OPTIONS requests.
	AntiCSRFCheck *bool
	// OverrideClaimValidators replaces the engine's validators when non-nil.
	OverrideClaimValidators []claims.Validator
	// CheckDatabase overrides the engine's revocation mode.
	CheckDatabase *bool
}

func (o Options) getSessionOptions(r *http.Request, header string) goSession.GetSessionOptions {
	csrfCheck := o.AntiCSRFCheck
	if csrfCheck == nil && isSafeMethod(r.Method) {
		csrfCheck = goSession.Bool(false)
	}
	return goSession.GetSessionOptions{
		AntiCSRFCheck:           csrfCheck,
		SessionRequired:         !o.Optional,
		OverrideClaimValidators: o.OverrideClaimValidators,
		AntiCSRFToken:           r.Header.Get(HeaderAntiCSRF),
		HasCustomHeader:         header != "" && r.Header.Get(header) != "",
		CheckDatabase:           o.CheckDatabase,
	}
}

func isSafeMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}

// VerifySession validates the bearer access token and puts the session in
// the request context. Failures are written with WriteError.
func VerifySession(engine *goSession.Engine, opts Options) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				WriteError(w, r, goSession.ErrEngineNotReady)
				return
			}

			s, err := engine.GetSession(r.Context(), AccessToken(r), opts.getSessionOptions(r, engine.AntiCSRFHeader()))
			if err != nil {
				WriteError(w, r, err)
				return
			}
			if s == nil {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
		})
	}
}
