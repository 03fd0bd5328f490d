package password

import (
	"errors"
	"fmt"
)

// Algorithm names accepted by [New].
const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"
)

// ErrUnknownAlgorithm is returned by [New] for an unsupported algorithm name.
var ErrUnknownAlgorithm = errors.New("password: unknown algorithm")

// Hasher hashes and verifies passwords.
//
// Verify returns false with a nil error on mismatch. An error is returned only
// when the stored hash is malformed or uses an unsupported format.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
	NeedsUpgrade(encodedHash string) (bool, error)
}

// Options selects and parameterizes a [Hasher].
type Options struct {
	Algorithm  string
	BcryptCost int
	Argon2     Argon2Params
}

// New returns the hasher named by opts.Algorithm. An empty algorithm selects
// bcrypt.
func New(opts Options) (Hasher, error) {
	switch opts.Algorithm {
	case "", AlgorithmBcrypt:
		return NewBcrypt(opts.BcryptCost)
	case AlgorithmArgon2id:
		return NewArgon2(opts.Argon2)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, opts.Algorithm)
	}
}
