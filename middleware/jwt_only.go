package middleware

import (
	"net/http"

	goSession "github.com/MrEthical07/goSession"
)

// RequireStateless verifies sessions from the access token alone, skipping
// the store read even when the engine is store-backed.
func RequireStateless(engine *goSession.Engine) func(http.Handler) http.Handler {
	return VerifySession(engine, Options{CheckDatabase: goSession.Bool(false)})
}
