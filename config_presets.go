package goSession

import (
	"time"

	"github.com/MrEthical07/goSession/csrf"
)

// HighSecurityConfig returns a preset with short access tokens, store-backed
// revocation, custom-header anti-CSRF and auditing on. Keys are left empty.
func HighSecurityConfig() Config {
	cfg := defaultConfig()
	cfg.JWT.AccessTTL = 10 * time.Minute
	cfg.JWT.RefreshTTL = 14 * 24 * time.Hour
	cfg.JWT.Leeway = 0
	cfg.AntiCSRF.Mode = csrf.ModeViaCustomHeader
	cfg.Revocation.Mode = RevocationStoreBacked
	cfg.Theft.AutoRevoke = true
	cfg.Audit.Enabled = true
	cfg.Audit.DropIfFull = false
	cfg.Metrics.Enabled = true
	return cfg
}

// HighThroughputConfig returns a preset that validates access tokens without
// a store round trip. Revocation reaches other processes within one
// access-token lifetime.
func HighThroughputConfig() Config {
	cfg := defaultConfig()
	cfg.JWT.AccessTTL = 5 * time.Minute
	cfg.Revocation.Mode = RevocationStateless
	cfg.Revocation.LocalDenyList = true
	cfg.Metrics.Enabled = true
	return cfg
}
