package internal

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// OpaqueTokenBytes is the entropy of a raw verification or reset token.
const OpaqueTokenBytes = 16

var errEmptyTokenKey = errors.New("token hash key must not be empty")

// NewOpaqueToken returns OpaqueTokenBytes of crypto/rand output, hex encoded
// (32 characters).
func NewOpaqueToken() (string, error) {
	var raw [OpaqueTokenBytes]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw[:]), nil
}

// TokenCodec derives the stored form of an opaque token.
//
// The stored value is HMAC-SHA256(key, raw) hex encoded. It is deterministic,
// so lookups hash the submitted value and compare. Changing the key makes every
// outstanding token unredeemable.
type TokenCodec struct {
	key []byte
}

// NewTokenCodec copies key and returns a codec.
func NewTokenCodec(key []byte) (*TokenCodec, error) {
	if len(key) == 0 {
		return nil, errEmptyTokenKey
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &TokenCodec{key: k}, nil
}

// Generate returns a fresh raw token.
func (c *TokenCodec) Generate() (string, error) {
	return NewOpaqueToken()
}

// Hash returns the hex HMAC of raw.
func (c *TokenCodec) Hash(raw string) string {
	mac := hmac.New(sha256.New, c.key)
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}
