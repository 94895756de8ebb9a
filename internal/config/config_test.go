package config

import (
	"crypto/ed25519"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/csrf"
)

const hsSecret = "0123456789abcdef0123456789abcdef!"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  address: ":9090"
  allowedOrigins: ["https://app.example.com"]
  allowDemoCreate: true
store:
  kind: redis
  address: "localhost:6379"
  prefix: "sess"
jwt:
  signingMethod: hs256
  secret: "`+hsSecret+`"
  accessTTL: 10m
  refreshTTL: 48h
  issuer: issuer.example.com
antiCsrf:
  mode: VIA_CUSTOM_HEADER
revocation:
  mode: stateless
  localDenyList: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.Server.AllowDemoCreate)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "redis", cfg.Store.Kind)
	assert.Equal(t, "sess", cfg.Store.Prefix)
	assert.Equal(t, 10*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, 48*time.Hour, cfg.JWT.RefreshTTL)
	assert.Equal(t, "stateless", cfg.Revocation.Mode)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
jwt:
  signingMethod: hs256
  secret: "`+hsSecret+`"
`)
	t.Setenv("SESSIOND_SERVER_ADDRESS", ":7000")
	t.Setenv("SESSIOND_SERVER_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("SESSIOND_JWT_ACCESS_TTL", "2m")
	t.Setenv("SESSIOND_THEFT_AUTO_REVOKE", "false")
	t.Setenv("SESSIOND_STORE_DB", "3")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Server.Address)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 2*time.Minute, cfg.JWT.AccessTTL)
	assert.False(t, cfg.Theft.AutoRevoke)
	assert.Equal(t, 3, cfg.Store.DB)
}

func TestEnvBadDuration(t *testing.T) {
	t.Setenv("SESSIOND_JWT_ACCESS_TTL", "soon")
	t.Setenv("SESSIOND_JWT_EPHEMERAL_KEY", "true")
	_, err := Load("")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		field   string
	}{
		{
			name:   "ephemeral ed25519",
			mutate: func(c *Config) { c.JWT.EphemeralKey = true },
		},
		{
			name:    "ed25519 without key",
			mutate:  func(*Config) {},
			wantErr: true,
		},
		{
			name: "unknown store kind",
			mutate: func(c *Config) {
				c.JWT.EphemeralKey = true
				c.Store.Kind = "sqlite"
			},
			wantErr: true,
			field:   "Config.Store.Kind",
		},
		{
			name: "redis without address",
			mutate: func(c *Config) {
				c.JWT.EphemeralKey = true
				c.Store.Kind = "redis"
			},
			wantErr: true,
			field:   "Config.Store.Address",
		},
		{
			name: "postgres without dsn",
			mutate: func(c *Config) {
				c.JWT.EphemeralKey = true
				c.Store.Kind = "postgres"
			},
			wantErr: true,
			field:   "Config.Store.DSN",
		},
		{
			name: "refresh shorter than access",
			mutate: func(c *Config) {
				c.JWT.EphemeralKey = true
				c.JWT.RefreshTTL = time.Second
			},
			wantErr: true,
			field:   "Config.JWT.RefreshTTL",
		},
		{
			name: "hs256 without secret",
			mutate: func(c *Config) {
				c.JWT.SigningMethod = "hs256"
			},
			wantErr: true,
		},
		{
			name: "via token without secret",
			mutate: func(c *Config) {
				c.JWT.EphemeralKey = true
				c.AntiCSRF.Mode = "VIA_TOKEN"
			},
			wantErr: true,
		},
		{
			name: "unknown log level",
			mutate: func(c *Config) {
				c.JWT.EphemeralKey = true
				c.Log.Level = "trace"
			},
			wantErr: true,
			field:   "Config.Log.Level",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if !tc.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			if tc.field != "" {
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Contains(t, verr.Fields, tc.field)
			}
		})
	}
}

func TestEngineConversion(t *testing.T) {
	cfg := Default()
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.Secret = hsSecret
	cfg.JWT.AccessTTL = 5 * time.Minute
	cfg.Store.Prefix = "svc"
	cfg.AntiCSRF.Mode = "VIA_CUSTOM_HEADER"
	cfg.Revocation.Mode = "stateless"
	cfg.Theft.AutoRevoke = false
	cfg.Audit.Enabled = true
	cfg.Metrics.Enabled = true
	require.NoError(t, cfg.Validate())

	out, err := cfg.Engine()
	require.NoError(t, err)

	assert.Equal(t, []byte(hsSecret), out.JWT.PrivateKey)
	assert.Equal(t, 5*time.Minute, out.JWT.AccessTTL)
	assert.Equal(t, "svc", out.Session.RedisPrefix)
	assert.Equal(t, csrf.ModeViaCustomHeader, out.AntiCSRF.Mode)
	assert.Equal(t, goSession.RevocationStateless, out.Revocation.Mode)
	assert.False(t, out.Theft.AutoRevoke)
	assert.True(t, out.Audit.Enabled)
	assert.True(t, out.Metrics.Enabled)
}

func TestEngineEphemeralKey(t *testing.T) {
	cfg := Default()
	cfg.JWT.EphemeralKey = true
	require.NoError(t, cfg.Validate())

	out, err := cfg.Engine()
	require.NoError(t, err)
	assert.Len(t, out.JWT.PrivateKey, ed25519.PrivateKeySize)
	assert.Len(t, out.JWT.PublicKey, ed25519.PublicKeySize)
}

func TestEngineBase64CSRFSecret(t *testing.T) {
	cfg := Default()
	cfg.JWT.EphemeralKey = true
	cfg.AntiCSRF.Mode = "VIA_TOKEN"
	// 32 zero bytes.
	cfg.AntiCSRF.Secret = "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="
	require.NoError(t, cfg.Validate())

	out, err := cfg.Engine()
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 32), out.AntiCSRF.Secret)
}
