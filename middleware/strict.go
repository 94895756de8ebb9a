package middleware

import (
	"net/http"

	goSession "github.com/MrEthical07/goSession"
)

// RequireStrict verifies sessions against the store even when the engine
// runs in stateless revocation mode.
func RequireStrict(engine *goSession.Engine) func(http.Handler) http.Handler {
	return VerifySession(engine, Options{CheckDatabase: goSession.Bool(true)})
}
