package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// DefaultMaxPasswordBytes bounds argon2 input when MaxPasswordBytes is zero.
const DefaultMaxPasswordBytes = 1024

var (
	// ErrMalformedHash is returned when a stored hash cannot be decoded.
	ErrMalformedHash = errors.New("password: malformed hash")
	// ErrPasswordTooLong is returned for input above MaxPasswordBytes.
	ErrPasswordTooLong = errors.New("password: input exceeds maximum length")
)

// Argon2Params tunes argon2id. Memory is in KiB.
type Argon2Params struct {
	Memory           uint32
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MaxPasswordBytes int
}

// DefaultArgon2Params returns the parameters used when argon2id is selected
// without explicit tuning.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func (p Argon2Params) validate() error {
	switch {
	case p.Memory < 8*1024:
		return errors.New("password: argon2 memory must be >= 8192 KiB")
	case p.Time < 1:
		return errors.New("password: argon2 time must be >= 1")
	case p.Parallelism < 1:
		return errors.New("password: argon2 parallelism must be >= 1")
	case p.SaltLength < 16:
		return errors.New("password: argon2 salt length must be >= 16")
	case p.KeyLength < 16:
		return errors.New("password: argon2 key length must be >= 16")
	}
	return nil
}

// Argon2 hashes passwords with argon2id in the PHC string format:
//
//	$argon2id$v=19$m=65536,t=3,p=2$<salt>$<key>
type Argon2 struct {
	params Argon2Params
}

// NewArgon2 validates p and returns a hasher.
func NewArgon2(p Argon2Params) (*Argon2, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if p.MaxPasswordBytes <= 0 {
		p.MaxPasswordBytes = DefaultMaxPasswordBytes
	}
	return &Argon2{params: p}, nil
}

// Hash returns an encoded hash with a fresh random salt. Password bytes are
// used as given, without Unicode normalization.
func (a *Argon2) Hash(password string) (string, error) {
	if len(password) > a.params.MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	salt := make([]byte, a.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	p := a.params
	key := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Parallelism, p.KeyLength)
	return encodeArgon2(p, salt, key), nil
}

// Verify recomputes the key with the parameters stored in encodedHash and
// compares in constant time.
func (a *Argon2) Verify(password string, encodedHash string) (bool, error) {
	if len(password) > a.params.MaxPasswordBytes {
		return false, ErrPasswordTooLong
	}

	stored, salt, key, err := decodeArgon2(encodedHash)
	if err != nil {
		return false, err
	}

	got := argon2.IDKey([]byte(password), salt, stored.Time, stored.Memory, stored.Parallelism, uint32(len(key)))
	return subtle.ConstantTimeCompare(got, key) == 1, nil
}

// NeedsUpgrade reports whether encodedHash was produced with weaker
// parameters, or a different key length, than the hasher's.
func (a *Argon2) NeedsUpgrade(encodedHash string) (bool, error) {
	stored, _, key, err := decodeArgon2(encodedHash)
	if err != nil {
		return false, err
	}

	cur := a.params
	return stored.Memory < cur.Memory ||
		stored.Time < cur.Time ||
		stored.Parallelism < cur.Parallelism ||
		uint32(len(key)) != cur.KeyLength, nil
}

func encodeArgon2(p Argon2Params, salt, key []byte) string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Time, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
}

func decodeArgon2(encoded string) (Argon2Params, []byte, []byte, error) {
	var p Argon2Params

	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != "argon2id" {
		return p, nil, nil, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil {
		return p, nil, nil, ErrMalformedHash
	}
	if version != argon2.Version {
		return p, nil, nil, fmt.Errorf("%w: argon2 version %d", ErrMalformedHash, version)
	}

	if n, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Parallelism); err != nil || n != 3 {
		return p, nil, nil, ErrMalformedHash
	}
	if p.Memory < 8*1024 || p.Time < 1 || p.Parallelism < 1 {
		return p, nil, nil, fmt.Errorf("%w: argon2 parameters out of range", ErrMalformedHash)
	}

	salt, err := decodeSegment(fields[4])
	if err != nil || len(salt) < 16 {
		return p, nil, nil, fmt.Errorf("%w: salt", ErrMalformedHash)
	}
	key, err := decodeSegment(fields[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, fmt.Errorf("%w: key", ErrMalformedHash)
	}
	return p, salt, key, nil
}

// decodeSegment accepts both unpadded and padded base64.
func decodeSegment(s string) ([]byte, error) {
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}
