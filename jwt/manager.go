package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod names a supported signature algorithm.
type SigningMethod string

const (
	MethodHS256   SigningMethod = "hs256"
	MethodEd25519 SigningMethod = "ed25519"
)

// ErrInvalidSession wraps every verification failure returned by Parse.
var ErrInvalidSession = errors.New("jwt: invalid session credential")

// Config configures a [Manager]. For HS256 PrivateKey is the shared secret.
// For Ed25519 keys may be raw or PEM encoded; VerifyKeys enables rotation by
// "kid" header.
type Config struct {
	TTL           time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	RequireIAT    bool
	MaxFutureIAT  time.Duration
	KeyID         string
	VerifyKeys    map[string][]byte
}

// SessionClaims is the payload of a session credential.
type SessionClaims struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Manager issues and verifies session credentials. Keys are decoded once in
// [NewManager]. It is safe for concurrent use.
type Manager struct {
	ttl          time.Duration
	issuer       string
	audience     string
	keyID        string
	maxFutureIAT time.Duration

	method  jwt.SigningMethod
	signKey any
	// verify is the fallback key; keyring, when non-empty, is consulted by kid.
	verify  any
	keyring map[string]any
	parser  *jwt.Parser

	now func() time.Time
}

// NewManager validates cfg, decodes its keys and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.TTL <= 0 {
		return nil, errors.New("jwt: TTL must be > 0")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("jwt: leeway must be in [0,2m]")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("jwt: MaxFutureIAT must be in (0,24h]")
	}

	m := &Manager{
		ttl:          cfg.TTL,
		issuer:       cfg.Issuer,
		audience:     cfg.Audience,
		keyID:        strings.TrimSpace(cfg.KeyID),
		maxFutureIAT: cfg.MaxFutureIAT,
		keyring:      make(map[string]any, len(cfg.VerifyKeys)),
		now:          time.Now,
	}

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("jwt: hs256 requires a secret")
		}
		m.method = jwt.SigningMethodHS256
		m.signKey = cfg.PrivateKey
		m.verify = cfg.PrivateKey
		for kid, key := range cfg.VerifyKeys {
			m.keyring[kid] = key
		}
	case MethodEd25519:
		m.method = jwt.SigningMethodEdDSA
		if len(cfg.PrivateKey) > 0 {
			priv, err := parseEdPrivateKey(cfg.PrivateKey)
			if err != nil {
				return nil, err
			}
			m.signKey = priv
		}
		if len(cfg.PublicKey) > 0 {
			pub, err := parseEdPublicKey(cfg.PublicKey)
			if err != nil {
				return nil, err
			}
			m.verify = pub
		}
		for kid, key := range cfg.VerifyKeys {
			pub, err := parseEdPublicKey(key)
			if err != nil {
				return nil, fmt.Errorf("jwt: verify key %q: %w", kid, err)
			}
			m.keyring[kid] = pub
		}
		if m.verify == nil && len(m.keyring) == 0 {
			return nil, errors.New("jwt: ed25519 requires a public key or verify keys")
		}
	default:
		return nil, fmt.Errorf("jwt: unsupported signing method %q", cfg.SigningMethod)
	}

	for kid := range m.keyring {
		if strings.TrimSpace(kid) == "" {
			return nil, errors.New("jwt: verify keys contain an empty kid")
		}
	}
	if m.keyID != "" && len(m.keyring) > 0 {
		if _, ok := m.keyring[m.keyID]; !ok {
			return nil, errors.New("jwt: KeyID is not present in VerifyKeys")
		}
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{m.method.Alg()})}
	if cfg.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(cfg.Leeway))
	}
	if cfg.RequireIAT {
		opts = append(opts, jwt.WithIssuedAt())
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	m.parser = jwt.NewParser(opts...)

	return m, nil
}

// TTL returns the configured credential lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a credential for uid and email that expires after the
// configured TTL.
func (m *Manager) Issue(uid, email string) (string, error) {
	if uid == "" {
		return "", errors.New("jwt: session subject is required")
	}
	if m.signKey == nil {
		return "", errors.New("jwt: manager has no signing key")
	}

	now := m.now()
	claims := SessionClaims{
		UID:   uid,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	if m.audience != "" {
		claims.Audience = jwt.ClaimStrings{m.audience}
	}

	token := jwt.NewWithClaims(m.method, claims)
	if m.keyID != "" {
		token.Header["kid"] = m.keyID
	}
	return token.SignedString(m.signKey)
}

// Parse verifies signature, algorithm, expiry, issuer and audience and
// returns the claims. Every failure wraps [ErrInvalidSession].
func (m *Manager) Parse(raw string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := m.parser.ParseWithClaims(raw, claims, m.lookupKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}
	if !token.Valid || claims.UID == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidSession)
	}
	if claims.IssuedAt != nil && claims.IssuedAt.Time.After(m.now().Add(m.maxFutureIAT)) {
		return nil, fmt.Errorf("%w: issued in the future", ErrInvalidSession)
	}
	return claims, nil
}

func (m *Manager) lookupKey(t *jwt.Token) (any, error) {
	kid, _ := t.Header["kid"].(string)

	if len(m.keyring) > 0 {
		key, ok := m.keyring[kid]
		if !ok {
			return nil, fmt.Errorf("unknown kid %q", kid)
		}
		return key, nil
	}
	if m.keyID != "" && kid != m.keyID {
		return nil, fmt.Errorf("unknown kid %q", kid)
	}
	return m.verify, nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("jwt: invalid ed25519 private key")
	}
	priv, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("jwt: invalid ed25519 private key type")
	}
	return priv, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("jwt: invalid ed25519 public key")
	}
	pub, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("jwt: invalid ed25519 public key type")
	}
	return pub, nil
}
