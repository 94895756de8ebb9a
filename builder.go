package goSession

import (
	"errors"
	"time"

	"github.com/MrEthical07/goSession/claims"
	"github.com/MrEthical07/goSession/csrf"
	"github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/session"
	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. A Builder can be built once.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	store  session.Store
	codec  TokenCodec

	validators []claims.Validator
	auditSink  AuditSink
	now        func() time.Time

	built bool
}

// New returns a Builder holding the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. The config is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the session store. It takes precedence over WithRedis.
func (b *Builder) WithStore(store session.Store) *Builder {
	b.store = store
	return b
}

// WithRedis stores sessions in Redis under Config.Session.RedisPrefix.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithCodec replaces the JWT codec built from Config.JWT.
func (b *Builder) WithCodec(codec TokenCodec) *Builder {
	b.codec = codec
	return b
}

// WithClaimValidators sets the validators GetSession runs by default, in
// order.
func (b *Builder) WithClaimValidators(validators ...claims.Validator) *Builder {
	b.validators = append([]claims.Validator(nil), validators...)
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock overrides time.Now for token minting, record expiry and audit
// timestamps. Injected codecs and stores keep their own clocks.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready [Engine].
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	// -------- SESSION STORE --------
	store := b.store
	if store == nil {
		if b.redis == nil {
			return nil, errors.New("session store or redis client required")
		}
		store = session.NewRedisStore(b.redis, cfg.Session.RedisPrefix, now)
	}

	// -------- TOKEN CODEC --------
	codec := b.codec
	if codec == nil {
		if err := cfg.ValidateKeys(); err != nil {
			return nil, err
		}
		jm, err := jwt.NewManager(jwt.Config{
			SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
			PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
			PublicKey:     cloneBytes(cfg.JWT.PublicKey),
			Issuer:        cfg.JWT.Issuer,
			Audience:      cfg.JWT.Audience,
			Leeway:        cfg.JWT.Leeway,
			KeyID:         cfg.JWT.KeyID,
			RequireIAT:    true,
			Now:           now,
		})
		if err != nil {
			return nil, err
		}
		codec = jm
	}

	// -------- ANTI-CSRF --------
	guard, err := csrf.New(cfg.AntiCSRF.Mode, cfg.AntiCSRF.Secret, cfg.AntiCSRF.CustomHeader)
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:     cloneConfig(cfg),
		store:      store,
		codec:      codec,
		csrf:       guard,
		validators: append([]claims.Validator(nil), b.validators...),
		now:        now,
	}

	if cfg.Revocation.Mode == RevocationStateless && cfg.Revocation.LocalDenyList {
		ttl := cfg.JWT.AccessTTL + cfg.JWT.Leeway
		engine.denied = cache.New(ttl, ttl)
	}
	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return engine, nil
}
