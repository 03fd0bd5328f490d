package goCreds

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/MrEthical07/goCreds/internal"
	internalaudit "github.com/MrEthical07/goCreds/internal/audit"
	"github.com/MrEthical07/goCreds/internal/flows"
	"github.com/MrEthical07/goCreds/internal/outbox"
	"github.com/MrEthical07/goCreds/jwt"
	"github.com/MrEthical07/goCreds/password"
)

// Builder assembles an [Engine]. A Builder can be used for one Build call.
type Builder struct {
	config    Config
	store     CredentialStore
	mailer    Mailer
	auditSink AuditSink
	logger    zerolog.Logger
	now       func() time.Time

	built bool
}

// New returns a Builder holding [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
		logger: zerolog.Nop(),
	}
}

// WithConfig replaces the configuration with a copy of cfg.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the persistence backend. Required.
func (b *Builder) WithStore(store CredentialStore) *Builder {
	b.store = store
	return b
}

// WithMailer sets the delivery collaborator. Without one, tokens are
// generated and persisted but never sent.
func (b *Builder) WithMailer(m Mailer) *Builder {
	b.mailer = m
	return b
}

// WithAuditSink sets the audit destination. Audit must also be enabled in
// the configuration; an enabled audit without a sink writes to the logger.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the logger for swallowed side-effect failures.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = logger
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

// withClock overrides the engine clock used for token expiry, login
// attempts and TOTP verification.
func (b *Builder) withClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.store == nil {
		return nil, errors.New("credential store required")
	}

	hasher, err := password.New(password.Options{
		Algorithm:  cfg.Password.Algorithm,
		BcryptCost: cfg.Password.BcryptCost,
		Argon2:     cfg.Password.Argon2,
	})
	if err != nil {
		return nil, err
	}

	codec, err := internal.NewTokenCodec(cfg.Tokens.HashSecret)
	if err != nil {
		return nil, err
	}

	signingKey := cfg.Session.Secret
	if cfg.Session.SigningMethod == string(jwt.MethodEd25519) {
		signingKey = cfg.Session.PrivateKey
	}
	jm, err := jwt.NewManager(jwt.Config{
		TTL:           cfg.Session.TTL,
		SigningMethod: jwt.SigningMethod(cfg.Session.SigningMethod),
		PrivateKey:    cloneBytes(signingKey),
		PublicKey:     cloneBytes(cfg.Session.PublicKey),
		Issuer:        cfg.Session.Issuer,
		Audience:      cfg.Session.Audience,
		Leeway:        cfg.Session.Leeway,
	})
	if err != nil {
		return nil, err
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	engine := &Engine{
		config:  cfg,
		store:   b.store,
		hasher:  hasher,
		codec:   codec,
		totp:    newTOTPManager(cfg.TOTP),
		jwt:     jm,
		metrics: NewMetrics(cfg.Metrics),
		logger:  b.logger.With().Str("component", "gocreds").Logger(),
		now:     now,
	}

	sink := b.auditSink
	if sink == nil {
		sink = NewLoggerSink(b.logger)
	}
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, sink)

	var sender outbox.Sender
	if b.mailer != nil {
		sender = b.mailer
	}
	engine.outbox = outbox.New(outbox.Config{
		BufferSize:  cfg.Delivery.BufferSize,
		DropIfFull:  cfg.Delivery.DropIfFull,
		SendTimeout: cfg.Delivery.SendTimeout,
		OnFailure: func(string, error) {
			engine.metricInc(MetricDeliveryFailure)
		},
	}, sender, b.logger)

	engine.flow = flows.New(engine.flowDeps())

	b.built = true
	return engine, nil
}
