package goCreds

import (
	"crypto/subtle"
	"encoding/base32"
	"strings"
	"time"

	"github.com/xlzd/gotp"
)

// totpSecretBytes is the entropy of a generated secret: 160 bits, which
// gotp encodes as 32 unpadded base32 characters.
const totpSecretBytes = 20

type totpManager struct {
	config TOTPConfig
}

func newTOTPManager(cfg TOTPConfig) *totpManager {
	if cfg.Digits == 0 {
		cfg.Digits = 6
	}
	if cfg.Period == 0 {
		cfg.Period = 30
	}
	return &totpManager{config: cfg}
}

// GenerateSecret returns a fresh base32 secret and its otpauth:// URI.
func (m *totpManager) GenerateSecret(account string) (string, string, error) {
	if m == nil {
		return "", "", ErrEngineNotReady
	}
	secret := gotp.RandomSecret(totpSecretBytes)
	return secret, m.ProvisionURI(secret, account), nil
}

func (m *totpManager) ProvisionURI(secret, account string) string {
	return m.otp(secret).ProvisioningUri(account, m.config.Issuer)
}

// VerifyCode checks code against the steps around now. Malformed codes and
// secrets never match.
func (m *totpManager) VerifyCode(secret, code string, now time.Time) bool {
	if m == nil || !validBase32Secret(secret) {
		return false
	}

	trimmed := strings.TrimSpace(code)
	if len(trimmed) != m.config.Digits || !isNumericString(trimmed) {
		return false
	}

	otp := m.otp(secret)
	period := int64(m.config.Period)
	for step := -m.config.Skew; step <= m.config.Skew; step++ {
		ts := now.Unix() + int64(step)*period
		if ts < 0 {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(otp.At(int(ts))), []byte(trimmed)) == 1 {
			return true
		}
	}
	return false
}

func (m *totpManager) otp(secret string) *gotp.TOTP {
	return gotp.NewTOTP(secret, m.config.Digits, m.config.Period, nil)
}

// gotp panics on secrets it cannot decode, so they are checked with the same
// padding rule first.
func validBase32Secret(secret string) bool {
	if secret == "" {
		return false
	}
	if rem := len(secret) % 8; rem != 0 {
		secret += strings.Repeat("=", 8-rem)
	}
	_, err := base32.StdEncoding.DecodeString(secret)
	return err == nil
}

func isNumericString(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
