package goSession

import (
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/csrf"
	"github.com/MrEthical07/goSession/jwt"
)

// Config defines the behaviour of an [Engine].
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	JWT        JWTConfig
	Session    SessionConfig
	AntiCSRF   AntiCSRFConfig
	Revocation RevocationConfig
	Theft      TheftConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig sets token lifetimes and signing keys. It is ignored for signing
// when a codec is injected with [Builder.WithCodec]; the lifetimes still
// apply.
type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	KeyID         string
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls the default Redis store built by [Builder.WithRedis].
type SessionConfig struct {
	RedisPrefix string
}

/*
====================================
ANTI-CSRF CONFIG
====================================
*/

// AntiCSRFConfig selects the anti-CSRF mode. Secret is required for
// csrf.ModeViaToken.
type AntiCSRFConfig struct {
	Mode         csrf.Mode
	Secret       []byte
	CustomHeader string
}

/*
====================================
REVOCATION CONFIG
====================================
*/

// RevocationMode selects whether [Engine.GetSession] consults the store.
type RevocationMode int

const (
	// RevocationStoreBacked reads the session record on every GetSession.
	RevocationStoreBacked RevocationMode = iota
	// RevocationStateless trusts access tokens until they expire.
	RevocationStateless
)

func (m RevocationMode) String() string {
	switch m {
	case RevocationStoreBacked:
		return "store_backed"
	case RevocationStateless:
		return "stateless"
	default:
		return "unknown"
	}
}

// RevocationConfig defines how revocation reaches access-token validation.
//
// LocalDenyList only has an effect in RevocationStateless: handles revoked
// through this engine are rejected for one access-token lifetime.
type RevocationConfig struct {
	Mode          RevocationMode
	LocalDenyList bool
}

// TheftConfig controls the reaction to a replayed refresh token.
type TheftConfig struct {
	AutoRevoke bool
}

// AuditConfig defines audit dispatch buffering.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles the in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     time.Hour,
			RefreshTTL:    100 * 24 * time.Hour,
			SigningMethod: "ed25519",
		},
		Session: SessionConfig{
			RedisPrefix: "gs",
		},
		AntiCSRF: AntiCSRFConfig{
			Mode:         csrf.ModeNone,
			CustomHeader: csrf.DefaultHeader,
		},
		Revocation: RevocationConfig{
			Mode:          RevocationStoreBacked,
			LocalDenyList: true,
		},
		Theft: TheftConfig{
			AutoRevoke: true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

// DefaultConfig returns the configuration used by [New] before overrides.
func DefaultConfig() Config {
	return defaultConfig()
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	out.AntiCSRF.Secret = cloneBytes(cfg.AntiCSRF.Secret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting. Signing keys are checked only
// by [Config.ValidateKeys], since an injected codec makes them unused.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be >= AccessTTL")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}
	if c.JWT.Audience != "" && strings.TrimSpace(c.JWT.Audience) == "" {
		return errors.New("JWT Audience must not be blank")
	}
	if c.JWT.Issuer != "" && strings.TrimSpace(c.JWT.Issuer) == "" {
		return errors.New("JWT Issuer must not be blank")
	}

	// Anti-CSRF
	switch c.AntiCSRF.Mode {
	case csrf.ModeNone, csrf.ModeViaCustomHeader:
	case csrf.ModeViaToken:
		if len(c.AntiCSRF.Secret) < 32 {
			return errors.New("AntiCSRF VIA_TOKEN requires Secret >= 32 bytes")
		}
	default:
		return errors.New("AntiCSRF Mode is invalid")
	}

	// Revocation
	switch c.Revocation.Mode {
	case RevocationStoreBacked, RevocationStateless:
	default:
		return errors.New("Revocation Mode is invalid")
	}

	// Audit
	if c.Audit.Enabled {
		if c.Audit.BufferSize <= 0 {
			return errors.New("Audit BufferSize must be > 0 when audit is enabled")
		}
	}

	return nil
}

// ValidateKeys checks the JWT signing configuration used when the engine
// builds its own codec.
func (c *Config) ValidateKeys() error {
	switch jwt.SigningMethod(c.JWT.SigningMethod) {
	case jwt.MethodEd25519:
		if len(c.JWT.PrivateKey) == 0 {
			return errors.New("ed25519 requires PrivateKey")
		}
		if len(c.JWT.PublicKey) == 0 {
			return errors.New("ed25519 requires PublicKey")
		}
	case jwt.MethodHS256:
		if len(c.JWT.PrivateKey) < 32 {
			return errors.New("hs256 requires PrivateKey >= 256 bits")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}
	return nil
}
