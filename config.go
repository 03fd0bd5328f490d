package goCreds

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/MrEthical07/goCreds/password"
)

const minSecretBytes = 16

// Config is the complete engine configuration. Obtain defaults from
// [DefaultConfig], adjust, and pass to [Builder.WithConfig]. The builder
// copies it, so later mutation of the caller's value has no effect.
type Config struct {
	Session  SessionConfig
	Tokens   TokenConfig
	Password PasswordConfig
	TOTP     TOTPConfig
	Delivery DeliveryConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

// SessionConfig controls the session credential issued by Register and Login.
type SessionConfig struct {
	// SigningMethod is "hs256" (default) or "ed25519".
	SigningMethod string
	// Secret is the HS256 signing key.
	Secret []byte
	// PrivateKey and PublicKey are the Ed25519 keys, raw or PEM.
	PrivateKey []byte
	PublicKey  []byte
	TTL        time.Duration
	Issuer     string
	Audience   string
	Leeway     time.Duration
}

// TokenConfig controls verification and forgot-password tokens.
type TokenConfig struct {
	// HashSecret keys the HMAC under which tokens are stored. Rotating it
	// invalidates every outstanding token.
	HashSecret []byte
	TTL        time.Duration
}

// PasswordConfig selects and tunes the password hasher.
type PasswordConfig struct {
	Algorithm  string
	BcryptCost int
	Argon2     password.Argon2Params
	// UpgradeOnLogin re-hashes a password after a successful login when the
	// stored hash used weaker parameters.
	UpgradeOnLogin bool
}

// TOTPConfig controls second-factor secrets and verification.
type TOTPConfig struct {
	Issuer string
	Digits int
	Period int
	// Skew is the number of adjacent time steps accepted on each side.
	Skew int
}

// DeliveryConfig controls the asynchronous outbox in front of the Mailer.
type DeliveryConfig struct {
	BufferSize  int
	DropIfFull  bool
	SendTimeout time.Duration
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles in-process counters and the login latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns a configuration with every value set except the
// session signing secret and the token hash secret, which callers supply.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Session: SessionConfig{
			SigningMethod: "hs256",
			TTL:           24 * time.Hour,
		},
		Tokens: TokenConfig{
			TTL: 24 * time.Hour,
		},
		Password: PasswordConfig{
			Algorithm:      password.AlgorithmBcrypt,
			BcryptCost:     password.DefaultBcryptCost,
			Argon2:         password.DefaultArgon2Params(),
			UpgradeOnLogin: true,
		},
		TOTP: TOTPConfig{
			Issuer: "goCreds",
			Digits: 6,
			Period: 30,
			Skew:   1,
		},
		Delivery: DeliveryConfig{
			BufferSize:  256,
			DropIfFull:  true,
			SendTimeout: 10 * time.Second,
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

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Session.Secret = cloneBytes(cfg.Session.Secret)
	out.Session.PrivateKey = cloneBytes(cfg.Session.PrivateKey)
	out.Session.PublicKey = cloneBytes(cfg.Session.PublicKey)
	out.Tokens.HashSecret = cloneBytes(cfg.Tokens.HashSecret)
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

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// Session
	switch c.Session.SigningMethod {
	case "hs256":
		if len(c.Session.Secret) < minSecretBytes {
			return errors.New("Session Secret must be at least 16 bytes")
		}
	case "ed25519":
		if len(c.Session.PrivateKey) == 0 || len(c.Session.PublicKey) == 0 {
			return errors.New("Session ed25519 requires PrivateKey and PublicKey")
		}
	default:
		return errors.New("Session SigningMethod must be hs256 or ed25519")
	}
	if c.Session.TTL <= 0 {
		return errors.New("Session TTL must be > 0")
	}
	if c.Session.Leeway < 0 || c.Session.Leeway > 2*time.Minute {
		return errors.New("Session Leeway must be between 0 and 2m")
	}
	if c.Session.Issuer != "" && strings.TrimSpace(c.Session.Issuer) == "" {
		return errors.New("Session Issuer must not be blank")
	}
	if c.Session.Audience != "" && strings.TrimSpace(c.Session.Audience) == "" {
		return errors.New("Session Audience must not be blank")
	}

	// Tokens
	if len(c.Tokens.HashSecret) < minSecretBytes {
		return errors.New("Tokens HashSecret must be at least 16 bytes")
	}
	if c.Tokens.TTL <= 0 {
		return errors.New("Tokens TTL must be > 0")
	}

	// Password
	switch c.Password.Algorithm {
	case password.AlgorithmBcrypt:
		if c.Password.BcryptCost < bcrypt.MinCost || c.Password.BcryptCost > bcrypt.MaxCost {
			return errors.New("Password BcryptCost out of range")
		}
	case password.AlgorithmArgon2id:
		if _, err := password.NewArgon2(c.Password.Argon2); err != nil {
			return err
		}
	default:
		return errors.New("Password Algorithm must be bcrypt or argon2id")
	}

	// TOTP
	if strings.TrimSpace(c.TOTP.Issuer) == "" {
		return errors.New("TOTP Issuer is required")
	}
	if c.TOTP.Digits != 6 && c.TOTP.Digits != 8 {
		return errors.New("TOTP Digits must be 6 or 8")
	}
	if c.TOTP.Period < 15 || c.TOTP.Period > 120 {
		return errors.New("TOTP Period must be between 15 and 120 seconds")
	}
	if c.TOTP.Skew < 0 || c.TOTP.Skew > 2 {
		return errors.New("TOTP Skew must be between 0 and 2")
	}

	// Delivery
	if c.Delivery.BufferSize <= 0 {
		return errors.New("Delivery BufferSize must be > 0")
	}
	if c.Delivery.SendTimeout <= 0 {
		return errors.New("Delivery SendTimeout must be > 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}

// LintWarning is a non-fatal configuration finding.
type LintWarning struct {
	Code    string
	Message string
}

// LintWarnings is the result of [Config.Lint].
type LintWarnings []LintWarning

// Codes returns the warning codes in order.
func (ws LintWarnings) Codes() []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Code)
	}
	return out
}

// Lint reports settings that are valid but unusual. It does not call Validate.
func (c *Config) Lint() LintWarnings {
	var ws LintWarnings
	if c.Session.TTL > 7*24*time.Hour {
		ws = append(ws, LintWarning{Code: "session_ttl_long", Message: "session credentials live longer than 7 days"})
	}
	if c.Tokens.TTL > 72*time.Hour {
		ws = append(ws, LintWarning{Code: "token_ttl_long", Message: "verification and reset tokens live longer than 72 hours"})
	}
	if c.Password.Algorithm == password.AlgorithmBcrypt && c.Password.BcryptCost < password.DefaultBcryptCost {
		ws = append(ws, LintWarning{Code: "bcrypt_cost_low", Message: "bcrypt cost below 10"})
	}
	if len(c.Session.Secret) > 0 && string(c.Session.Secret) == string(c.Tokens.HashSecret) {
		ws = append(ws, LintWarning{Code: "shared_secret", Message: "session secret and token hash secret are identical"})
	}
	if !c.Audit.Enabled {
		ws = append(ws, LintWarning{Code: "audit_disabled", Message: "audit events are not recorded"})
	}
	return ws
}
