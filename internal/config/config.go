// Package config loads the sessiond service configuration from a YAML file,
// an optional .env file and SESSIOND_* environment variables, in that order
// of increasing precedence.
package config

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
	"github.com/samber/oops"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/csrf"
)

const envPrefix = "SESSIOND_"

type Config struct {
	Server     Server     `yaml:"server"`
	Store      Store      `yaml:"store"`
	JWT        JWT        `yaml:"jwt"`
	AntiCSRF   AntiCSRF   `yaml:"antiCsrf"`
	Revocation Revocation `yaml:"revocation"`
	Theft      Theft      `yaml:"theft"`
	Audit      Audit      `yaml:"audit"`
	Metrics    Metrics    `yaml:"metrics"`
	Log        Log        `yaml:"log"`
}

type Server struct {
	Address         string        `yaml:"address" validate:"required"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" validate:"gt=0"`
	RequestTimeout  time.Duration `yaml:"requestTimeout" validate:"gt=0"`
	AllowedOrigins  []string      `yaml:"allowedOrigins"`
	// AllowDemoCreate exposes POST /auth/session, which mints a session for
	// any user ID in the request body. Never enable it in production.
	AllowDemoCreate bool `yaml:"allowDemoCreate"`
}

// Store selects the session store backend.
type Store struct {
	Kind     string `yaml:"kind" validate:"oneof=memory redis valkey postgres"`
	Address  string `yaml:"address" validate:"required_if=Kind redis,required_if=Kind valkey"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"gte=0"`
	Prefix   string `yaml:"prefix"`
	DSN      string `yaml:"dsn" validate:"required_if=Kind postgres"`
}

type JWT struct {
	SigningMethod  string        `yaml:"signingMethod" validate:"oneof=ed25519 hs256"`
	AccessTTL      time.Duration `yaml:"accessTTL" validate:"gt=0"`
	RefreshTTL     time.Duration `yaml:"refreshTTL" validate:"gtefield=AccessTTL"`
	Issuer         string        `yaml:"issuer"`
	Audience       string        `yaml:"audience"`
	Leeway         time.Duration `yaml:"leeway" validate:"gte=0,lte=2m"`
	KeyID          string        `yaml:"keyID"`
	Secret         string        `yaml:"secret"`
	PrivateKeyFile string        `yaml:"privateKeyFile"`
	PublicKeyFile  string        `yaml:"publicKeyFile"`
	// EphemeralKey generates an ed25519 pair at startup when no key files
	// are set. Tokens do not survive a restart.
	EphemeralKey bool `yaml:"ephemeralKey"`
}

type AntiCSRF struct {
	Mode         string `yaml:"mode" validate:"oneof=NONE VIA_TOKEN VIA_CUSTOM_HEADER"`
	Secret       string `yaml:"secret"`
	CustomHeader string `yaml:"customHeader"`
}

type Revocation struct {
	Mode          string `yaml:"mode" validate:"oneof=store_backed stateless"`
	LocalDenyList bool   `yaml:"localDenyList"`
}

type Theft struct {
	AutoRevoke bool `yaml:"autoRevoke"`
}

type Audit struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"bufferSize" validate:"gte=0"`
	DropIfFull bool `yaml:"dropIfFull"`
	Stdout     bool `yaml:"stdout"`
	NATS       NATS `yaml:"nats"`
}

// NATS configures the optional audit publisher. An empty URL disables it.
type NATS struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subjectPrefix"`
}

type Metrics struct {
	Enabled           bool `yaml:"enabled"`
	LatencyHistograms bool `yaml:"latencyHistograms"`
}

type Log struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json text"`
}

// Default returns the configuration used before the file and environment
// are applied.
func Default() Config {
	defaults := goSession.DefaultConfig()
	return Config{
		Server: Server{
			Address:         ":8080",
			ShutdownTimeout: 5 * time.Second,
			RequestTimeout:  30 * time.Second,
		},
		Store: Store{
			Kind:   "memory",
			Prefix: defaults.Session.RedisPrefix,
		},
		JWT: JWT{
			SigningMethod: defaults.JWT.SigningMethod,
			AccessTTL:     defaults.JWT.AccessTTL,
			RefreshTTL:    defaults.JWT.RefreshTTL,
		},
		AntiCSRF: AntiCSRF{
			Mode:         string(defaults.AntiCSRF.Mode),
			CustomHeader: defaults.AntiCSRF.CustomHeader,
		},
		Revocation: Revocation{
			Mode:          defaults.Revocation.Mode.String(),
			LocalDenyList: defaults.Revocation.LocalDenyList,
		},
		Theft: Theft{
			AutoRevoke: defaults.Theft.AutoRevoke,
		},
		Audit: Audit{
			BufferSize: defaults.Audit.BufferSize,
			DropIfFull: defaults.Audit.DropIfFull,
		},
		Log: Log{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads path (skipped when empty), then the .env file in the working
// directory if present, then SESSIOND_* variables, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, oops.In("config").Wrapf(err, "reading %s", path)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, oops.In("config").Wrapf(err, "parsing %s", path)
		}
	}

	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, oops.In("config").Wrapf(err, "loading .env")
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	var err error
	c.Server.Address = getEnv("SERVER_ADDRESS", c.Server.Address)
	c.Server.AllowedOrigins = getEnvAsList("SERVER_ALLOWED_ORIGINS", c.Server.AllowedOrigins)
	c.Server.AllowDemoCreate = getEnvAsBool("SERVER_ALLOW_DEMO_CREATE", c.Server.AllowDemoCreate)
	if c.Server.ShutdownTimeout, err = getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout); err != nil {
		return err
	}

	c.Store.Kind = getEnv("STORE_KIND", c.Store.Kind)
	c.Store.Address = getEnv("STORE_ADDRESS", c.Store.Address)
	c.Store.Password = getEnv("STORE_PASSWORD", c.Store.Password)
	c.Store.Prefix = getEnv("STORE_PREFIX", c.Store.Prefix)
	c.Store.DSN = getEnv("STORE_DSN", c.Store.DSN)
	c.Store.DB = getEnvAsInt("STORE_DB", c.Store.DB)

	c.JWT.SigningMethod = getEnv("JWT_SIGNING_METHOD", c.JWT.SigningMethod)
	c.JWT.Secret = getEnv("JWT_SECRET", c.JWT.Secret)
	c.JWT.PrivateKeyFile = getEnv("JWT_PRIVATE_KEY_FILE", c.JWT.PrivateKeyFile)
	c.JWT.PublicKeyFile = getEnv("JWT_PUBLIC_KEY_FILE", c.JWT.PublicKeyFile)
	c.JWT.Issuer = getEnv("JWT_ISSUER", c.JWT.Issuer)
	c.JWT.Audience = getEnv("JWT_AUDIENCE", c.JWT.Audience)
	c.JWT.EphemeralKey = getEnvAsBool("JWT_EPHEMERAL_KEY", c.JWT.EphemeralKey)
	if c.JWT.AccessTTL, err = getEnvAsDuration("JWT_ACCESS_TTL", c.JWT.AccessTTL); err != nil {
		return err
	}
	if c.JWT.RefreshTTL, err = getEnvAsDuration("JWT_REFRESH_TTL", c.JWT.RefreshTTL); err != nil {
		return err
	}

	c.AntiCSRF.Mode = getEnv("ANTI_CSRF_MODE", c.AntiCSRF.Mode)
	c.AntiCSRF.Secret = getEnv("ANTI_CSRF_SECRET", c.AntiCSRF.Secret)
	c.Revocation.Mode = getEnv("REVOCATION_MODE", c.Revocation.Mode)
	c.Theft.AutoRevoke = getEnvAsBool("THEFT_AUTO_REVOKE", c.Theft.AutoRevoke)

	c.Audit.Enabled = getEnvAsBool("AUDIT_ENABLED", c.Audit.Enabled)
	c.Audit.Stdout = getEnvAsBool("AUDIT_STDOUT", c.Audit.Stdout)
	c.Audit.NATS.URL = getEnv("AUDIT_NATS_URL", c.Audit.NATS.URL)

	c.Metrics.Enabled = getEnvAsBool("METRICS_ENABLED", c.Metrics.Enabled)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
	return nil
}

var validate = validator.New()

// ValidationError lists the fields that failed struct validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, tag := range e.Fields {
		parts = append(parts, field+" ("+tag+")")
	}
	return "invalid configuration: " + strings.Join(parts, ", ")
}

// Validate checks field constraints, then the engine configuration the
// fields produce.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Namespace()] = fe.Tag()
			}
			return &ValidationError{Fields: fields}
		}
		return oops.In("config").Wrap(err)
	}

	if c.AntiCSRF.Mode == string(csrf.ModeViaToken) && c.AntiCSRF.Secret == "" {
		return oops.In("config").Errorf("antiCsrf.secret is required for VIA_TOKEN")
	}
	if c.JWT.SigningMethod == "hs256" && c.JWT.Secret == "" {
		return oops.In("config").Errorf("jwt.secret is required for hs256")
	}
	if c.JWT.SigningMethod == "ed25519" && c.JWT.PrivateKeyFile == "" && !c.JWT.EphemeralKey {
		return oops.In("config").Errorf("jwt.privateKeyFile or jwt.ephemeralKey is required for ed25519")
	}
	return nil
}

// Engine converts the service configuration into the engine configuration,
// reading key files as needed.
func (c *Config) Engine() (goSession.Config, error) {
	out := goSession.DefaultConfig()

	out.JWT.AccessTTL = c.JWT.AccessTTL
	out.JWT.RefreshTTL = c.JWT.RefreshTTL
	out.JWT.SigningMethod = c.JWT.SigningMethod
	out.JWT.Issuer = c.JWT.Issuer
	out.JWT.Audience = c.JWT.Audience
	out.JWT.Leeway = c.JWT.Leeway
	out.JWT.KeyID = c.JWT.KeyID
	if err := c.loadKeys(&out.JWT); err != nil {
		return goSession.Config{}, err
	}

	if c.Store.Prefix != "" {
		out.Session.RedisPrefix = c.Store.Prefix
	}

	mode, err := csrf.ParseMode(c.AntiCSRF.Mode)
	if err != nil {
		return goSession.Config{}, oops.In("config").Wrap(err)
	}
	out.AntiCSRF.Mode = mode
	if c.AntiCSRF.CustomHeader != "" {
		out.AntiCSRF.CustomHeader = c.AntiCSRF.CustomHeader
	}
	if c.AntiCSRF.Secret != "" {
		secret, err := decodeSecret(c.AntiCSRF.Secret)
		if err != nil {
			return goSession.Config{}, oops.In("config").Wrapf(err, "antiCsrf.secret")
		}
		out.AntiCSRF.Secret = secret
	}

	switch c.Revocation.Mode {
	case goSession.RevocationStateless.String():
		out.Revocation.Mode = goSession.RevocationStateless
	default:
		out.Revocation.Mode = goSession.RevocationStoreBacked
	}
	out.Revocation.LocalDenyList = c.Revocation.LocalDenyList
	out.Theft.AutoRevoke = c.Theft.AutoRevoke

	out.Audit.Enabled = c.Audit.Enabled
	if c.Audit.BufferSize > 0 {
		out.Audit.BufferSize = c.Audit.BufferSize
	}
	out.Audit.DropIfFull = c.Audit.DropIfFull

	out.Metrics.Enabled = c.Metrics.Enabled
	out.Metrics.EnableLatencyHistograms = c.Metrics.LatencyHistograms

	if err := out.Validate(); err != nil {
		return goSession.Config{}, oops.In("config").Wrap(err)
	}
	if err := out.ValidateKeys(); err != nil {
		return goSession.Config{}, oops.In("config").Wrap(err)
	}
	return out, nil
}

func (c *Config) loadKeys(out *goSession.JWTConfig) error {
	if c.JWT.SigningMethod == "hs256" {
		secret, err := decodeSecret(c.JWT.Secret)
		if err != nil {
			return oops.In("config").Wrapf(err, "jwt.secret")
		}
		out.PrivateKey = secret
		return nil
	}

	if c.JWT.PrivateKeyFile == "" {
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return oops.In("config").Wrapf(err, "generating ephemeral key")
		}
		out.PrivateKey = priv
		out.PublicKey = pub
		return nil
	}

	priv, err := os.ReadFile(c.JWT.PrivateKeyFile)
	if err != nil {
		return oops.In("config").Wrapf(err, "reading jwt.privateKeyFile")
	}
	out.PrivateKey = priv
	if c.JWT.PublicKeyFile == "" {
		return oops.In("config").Errorf("jwt.publicKeyFile is required with jwt.privateKeyFile")
	}
	pub, err := os.ReadFile(c.JWT.PublicKeyFile)
	if err != nil {
		return oops.In("config").Wrapf(err, "reading jwt.publicKeyFile")
	}
	out.PublicKey = pub
	return nil
}

// decodeSecret accepts standard base64, falling back to the raw bytes.
func decodeSecret(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("empty secret")
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return []byte(s), nil
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(envPrefix + key); ok {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, oops.In("config").Wrapf(err, "parsing %s%s", envPrefix, key)
	}
	return d, nil
}

func getEnvAsList(key string, defaultValue []string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
