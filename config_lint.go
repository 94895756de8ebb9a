package goSession

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/csrf"
)

// LintSeverity ranks a [LintWarning].
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// LintWarning is a configuration that validates but is probably not what a
// production deployment wants.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the list of warnings returned by [Config.Lint].
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (r LintResult) Codes() []string {
	out := make([]string, len(r))
	for i, w := range r {
		out[i] = w.Code
	}
	return out
}

// BySeverity returns the warnings at or above min.
func (r LintResult) BySeverity(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError joins the warnings at or above min into one error, or returns nil.
func (r LintResult) AsError(min LintSeverity) error {
	ws := r.BySeverity(min)
	if len(ws) == 0 {
		return nil
	}
	parts := make([]string, len(ws))
	for i, w := range ws {
		parts[i] = fmt.Sprintf("[%s] %s: %s", w.Severity, w.Code, w.Message)
	}
	return errors.New("config lint: " + strings.Join(parts, "; "))
}

// Lint reports risky but valid settings. It never fails; use
// [LintResult.AsError] to gate startup on a severity.
func (c *Config) Lint() LintResult {
	var ws LintResult
	add := func(code string, sev LintSeverity, msg string) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: msg})
	}

	if c.JWT.Leeway > time.Minute {
		add("leeway_large", LintWarn, "JWT leeway above 1m extends every token past its expiry")
	}
	if c.JWT.AccessTTL > time.Hour {
		add("access_ttl_long", LintWarn, "access tokens live longer than 1h")
	}
	if c.JWT.RefreshTTL > 180*24*time.Hour {
		add("refresh_ttl_long", LintInfo, "refresh tokens live longer than 180d")
	}
	if c.JWT.SigningMethod == "hs256" {
		add("signing_hs256", LintInfo, "hs256 shares the verification key with every verifier")
	}
	if !c.Theft.AutoRevoke {
		add("theft_autorevoke_disabled", LintHigh, "a replayed refresh token leaves the session alive")
	}
	if c.AntiCSRF.Mode == csrf.ModeNone {
		add("anti_csrf_disabled", LintInfo, "anti-CSRF is off; only safe when tokens travel in headers")
	}
	if c.Revocation.Mode == RevocationStateless {
		if c.JWT.AccessTTL > 15*time.Minute {
			add("stateless_exposure_long", LintHigh, "stateless revocation with access tokens above 15m")
		}
		if !c.Revocation.LocalDenyList {
			add("stateless_without_denylist", LintWarn, "revoked sessions stay usable in this process until expiry")
		}
	}
	if !c.Audit.Enabled {
		add("audit_disabled", LintInfo, "token theft is not audited")
	}

	return ws
}
