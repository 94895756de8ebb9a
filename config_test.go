package goSession

import (
	"testing"
	"time"

	"github.com/MrEthical07/goSession/csrf"
)

func TestConfigValidateEnums(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "default valid",
			mutate:    func(*Config) {},
			wantValid: true,
		},
		{
			name: "jwt leeway valid",
			mutate: func(c *Config) {
				c.JWT.Leeway = 45 * time.Second
			},
			wantValid: true,
		},
		{
			name: "jwt leeway invalid",
			mutate: func(c *Config) {
				c.JWT.Leeway = 3 * time.Minute
			},
			wantValid: false,
		},
		{
			name: "jwt audience blank invalid",
			mutate: func(c *Config) {
				c.JWT.Audience = "   "
			},
			wantValid: false,
		},
		{
			name: "jwt issuer blank invalid",
			mutate: func(c *Config) {
				c.JWT.Issuer = "\t"
			},
			wantValid: false,
		},
		{
			name: "access ttl zero invalid",
			mutate: func(c *Config) {
				c.JWT.AccessTTL = 0
			},
			wantValid: false,
		},
		{
			name: "refresh shorter than access invalid",
			mutate: func(c *Config) {
				c.JWT.AccessTTL = time.Hour
				c.JWT.RefreshTTL = time.Minute
			},
			wantValid: false,
		},
		{
			name: "anti csrf custom header valid",
			mutate: func(c *Config) {
				c.AntiCSRF.Mode = csrf.ModeViaCustomHeader
			},
			wantValid: true,
		},
		{
			name: "anti csrf via token without secret invalid",
			mutate: func(c *Config) {
				c.AntiCSRF.Mode = csrf.ModeViaToken
			},
			wantValid: false,
		},
		{
			name: "anti csrf via token with secret valid",
			mutate: func(c *Config) {
				c.AntiCSRF.Mode = csrf.ModeViaToken
				c.AntiCSRF.Secret = testCSRFSecret
			},
			wantValid: true,
		},
		{
			name: "anti csrf mode invalid",
			mutate: func(c *Config) {
				c.AntiCSRF.Mode = csrf.Mode("SOMETIMES")
			},
			wantValid: false,
		},
		{
			name: "revocation stateless valid",
			mutate: func(c *Config) {
				c.Revocation.Mode = RevocationStateless
			},
			wantValid: true,
		},
		{
			name: "revocation mode invalid",
			mutate: func(c *Config) {
				c.Revocation.Mode = RevocationMode(42)
			},
			wantValid: false,
		},
		{
			name: "audit buffer invalid when enabled",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tc.wantValid && err == nil {
				t.Fatalf("expected invalid config")
			}
		})
	}
}

func TestConfigValidateKeys(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name: "ed25519 missing keys",
			mutate: func(c *Config) {
				c.JWT.SigningMethod = "ed25519"
			},
			wantValid: false,
		},
		{
			name: "hs256 short key",
			mutate: func(c *Config) {
				c.JWT.SigningMethod = "hs256"
				c.JWT.PrivateKey = []byte("short")
			},
			wantValid: false,
		},
		{
			name: "hs256 valid",
			mutate: func(c *Config) {
				c.JWT.SigningMethod = "hs256"
				c.JWT.PrivateKey = testSigningKey
			},
			wantValid: true,
		},
		{
			name: "unsupported method",
			mutate: func(c *Config) {
				c.JWT.SigningMethod = "rs256"
				c.JWT.PrivateKey = testSigningKey
			},
			wantValid: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(&cfg)
			err := cfg.ValidateKeys()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid keys, got %v", err)
			}
			if !tc.wantValid && err == nil {
				t.Fatalf("expected invalid keys")
			}
		})
	}
}

func TestDefaultConfigValues(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.JWT.AccessTTL != time.Hour {
		t.Fatalf("expected 1h access ttl, got %v", cfg.JWT.AccessTTL)
	}
	if cfg.JWT.RefreshTTL != 100*24*time.Hour {
		t.Fatalf("expected 100d refresh ttl, got %v", cfg.JWT.RefreshTTL)
	}
	if cfg.AntiCSRF.Mode != csrf.ModeNone || cfg.AntiCSRF.CustomHeader != csrf.DefaultHeader {
		t.Fatalf("unexpected anti-csrf defaults %+v", cfg.AntiCSRF)
	}
	if cfg.Revocation.Mode != RevocationStoreBacked {
		t.Fatalf("expected store-backed revocation by default")
	}
	if !cfg.Theft.AutoRevoke {
		t.Fatalf("expected auto revoke on theft by default")
	}
}

func TestPresetsValidate(t *testing.T) {
	for name, cfg := range map[string]Config{
		"high security":   HighSecurityConfig(),
		"high throughput": HighThroughputConfig(),
	} {
		if err := cfg.Validate(); err != nil {
			t.Fatalf("%s preset invalid: %v", name, err)
		}
	}
}

func TestWithConfigCopiesSecrets(t *testing.T) {
	cfg := testConfig()
	cfg.JWT.PrivateKey = append([]byte(nil), testSigningKey...)
	cfg.AntiCSRF.Mode = csrf.ModeViaToken
	cfg.AntiCSRF.Secret = append([]byte(nil), testCSRFSecret...)

	b := New().WithConfig(cfg)
	cfg.JWT.PrivateKey[0] ^= 0xff
	cfg.AntiCSRF.Secret[0] ^= 0xff

	if b.config.JWT.PrivateKey[0] == cfg.JWT.PrivateKey[0] {
		t.Fatalf("builder must copy the signing key")
	}
	if b.config.AntiCSRF.Secret[0] == cfg.AntiCSRF.Secret[0] {
		t.Fatalf("builder must copy the anti-csrf secret")
	}
}

func TestRevocationModeString(t *testing.T) {
	if RevocationStoreBacked.String() == RevocationStateless.String() {
		t.Fatalf("revocation modes must have distinct names")
	}
}
