// Package config loads the credd process configuration from CREDD_*
// environment variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	goCreds "github.com/MrEthical07/goCreds"
)

const envPrefix = "CREDD_"

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

type SMTPConfig struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT" envDefault:"587"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
}

type Config struct {
	Addr       string `env:"ADDR" envDefault:":8080"`
	Env        string `env:"ENV" envDefault:"development"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	TrustProxy bool   `env:"TRUST_PROXY"`

	JWTSecret         string        `env:"JWT_SECRET,required,notEmpty"`
	HashSecret        string        `env:"HASH_SECRET,required,notEmpty"`
	SessionTTL        time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	TokenTTL          time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	TOTPIssuer        string        `env:"TOTP_ISSUER" envDefault:"goCreds"`
	PasswordAlgorithm string        `env:"PASSWORD_ALGORITHM" envDefault:"bcrypt"`
	BcryptCost        int           `env:"BCRYPT_COST" envDefault:"12"`
	AuditEnabled      bool          `env:"AUDIT_ENABLED" envDefault:"true"`
	MetricsEnabled    bool          `env:"METRICS_ENABLED" envDefault:"true"`

	Store              string        `env:"STORE" envDefault:"memory"`
	PostgresDSN        string        `env:"POSTGRES_DSN"`
	MongoURI           string        `env:"MONGO_URI"`
	MongoDB            string        `env:"MONGO_DB" envDefault:"gocreds"`
	RedisAddr          string        `env:"REDIS_ADDR"`
	RedisPassword      string        `env:"REDIS_PASSWORD"`
	RedisDB            int           `env:"REDIS_DB"`
	TokenSweepInterval time.Duration `env:"TOKEN_SWEEP_INTERVAL" envDefault:"1h"`

	SMTP      SMTPConfig `envPrefix:"SMTP_"`
	MailFrom  string     `env:"MAIL_FROM"`
	VerifyURL string     `env:"VERIFY_URL"`
	ResetURL  string     `env:"RESET_URL"`

	SentryDSN string `env:"SENTRY_DSN"`
}

// Load reads files (default .env) into the process environment when they
// exist, then parses and validates the configuration.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	return parse(env.Options{Prefix: envPrefix})
}

// LoadFrom parses vars instead of the process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	return parse(env.Options{Prefix: envPrefix, Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.PostgresDSN == "" {
			return errors.New("CREDD_POSTGRES_DSN is required for the postgres store")
		}
	case StoreMongo:
		if c.MongoURI == "" {
			return errors.New("CREDD_MONGO_URI is required for the mongo store")
		}
	default:
		return fmt.Errorf("unknown CREDD_STORE %q", c.Store)
	}
	if c.SMTP.Host != "" && c.MailFrom == "" {
		return errors.New("CREDD_MAIL_FROM is required when SMTP is configured")
	}
	return nil
}

// IsProduction reports whether logs should be JSON rather than console.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// MailEnabled reports whether an SMTP server is configured.
func (c Config) MailEnabled() bool {
	return c.SMTP.Host != ""
}

// Engine maps the process settings onto the engine configuration.
func (c Config) Engine() goCreds.Config {
	cfg := goCreds.DefaultConfig()
	cfg.Session.Secret = []byte(c.JWTSecret)
	cfg.Session.TTL = c.SessionTTL
	cfg.Tokens.HashSecret = []byte(c.HashSecret)
	cfg.Tokens.TTL = c.TokenTTL
	cfg.TOTP.Issuer = c.TOTPIssuer
	cfg.Password.Algorithm = c.PasswordAlgorithm
	cfg.Password.BcryptCost = c.BcryptCost
	cfg.Audit.Enabled = c.AuditEnabled
	cfg.Metrics.Enabled = c.MetricsEnabled
	cfg.Metrics.EnableLatencyHistograms = c.MetricsEnabled
	return cfg
}
