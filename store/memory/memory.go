// Package memory is an in-process goCreds.CredentialStore for tests and
// development. Records are copied on the way in and out.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	goCreds "github.com/MrEthical07/goCreds"
)

var errAttemptExists = errors.New("memory: login attempt already exists")

// Store keeps every entity in maps guarded by one mutex.
type Store struct {
	mu       sync.RWMutex
	users    map[string]goCreds.User
	emails   map[string]string
	tokens   map[goCreds.TokenKind]map[string]goCreds.Token
	attempts map[string]goCreds.LoginAttempt

	tokenTTL time.Duration
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithTokenTTL sets the token lifetime; older tokens are reported missing.
// Zero disables expiry.
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Store) { s.tokenTTL = ttl }
}

// WithClock overrides the clock used for token expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns an empty Store with a 24h token TTL.
func New(opts ...Option) *Store {
	s := &Store{
		users:    make(map[string]goCreds.User),
		emails:   make(map[string]string),
		tokens:   make(map[goCreds.TokenKind]map[string]goCreds.Token),
		attempts: make(map[string]goCreds.LoginAttempt),
		tokenTTL: 24 * time.Hour,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (*goCreds.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emails[email]
	if !ok {
		return nil, goCreds.ErrRecordNotFound
	}
	u := s.users[id]
	return &u, nil
}

func (s *Store) FindUserByID(_ context.Context, id string) (*goCreds.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, goCreds.ErrRecordNotFound
	}
	return &u, nil
}

func (s *Store) CreateUser(_ context.Context, user *goCreds.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.emails[user.Email]; taken {
		return goCreds.ErrDuplicateEmail
	}
	s.users[user.ID] = *user
	s.emails[user.Email] = user.ID
	return nil
}

func (s *Store) SaveUser(_ context.Context, user *goCreds.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.users[user.ID]
	if !ok {
		return goCreds.ErrRecordNotFound
	}
	if prev.Email != user.Email {
		if owner, taken := s.emails[user.Email]; taken && owner != user.ID {
			return goCreds.ErrDuplicateEmail
		}
		delete(s.emails, prev.Email)
		s.emails[user.Email] = user.ID
	}
	s.users[user.ID] = *user
	return nil
}

func (s *Store) CreateToken(_ context.Context, kind goCreds.TokenKind, token *goCreds.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.tokens[kind]
	if !ok {
		bucket = make(map[string]goCreds.Token)
		s.tokens[kind] = bucket
	}
	bucket[token.Hash] = *token
	return nil
}

func (s *Store) FindTokenByHash(_ context.Context, kind goCreds.TokenKind, hash string) (*goCreds.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tokens[kind][hash]
	if !ok || s.expired(t) {
		return nil, goCreds.ErrRecordNotFound
	}
	return &t, nil
}

func (s *Store) DeleteToken(_ context.Context, kind goCreds.TokenKind, hash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tokens[kind][hash]; !ok {
		return false, nil
	}
	delete(s.tokens[kind], hash)
	return true, nil
}

// DeleteExpiredTokens removes tokens created before cutoff and returns how
// many were removed.
func (s *Store) DeleteExpiredTokens(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, bucket := range s.tokens {
		for hash, t := range bucket {
			if t.CreatedAt.Before(cutoff) {
				delete(bucket, hash)
				n++
			}
		}
	}
	return n, nil
}

func (s *Store) expired(t goCreds.Token) bool {
	return s.tokenTTL > 0 && s.now().Sub(t.CreatedAt) > s.tokenTTL
}

func (s *Store) CreateLoginAttempt(_ context.Context, attempt *goCreds.LoginAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.attempts[attempt.ID]; ok {
		return errAttemptExists
	}
	s.attempts[attempt.ID] = *attempt
	return nil
}

func (s *Store) UpdateLoginAttempt(_ context.Context, attempt *goCreds.LoginAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.attempts[attempt.ID]; !ok {
		return goCreds.ErrRecordNotFound
	}
	s.attempts[attempt.ID] = *attempt
	return nil
}

// LoginAttempts returns every stored attempt, oldest first.
func (s *Store) LoginAttempts() []goCreds.LoginAttempt {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]goCreds.LoginAttempt, 0, len(s.attempts))
	for _, a := range s.attempts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// TokenCount returns the number of stored tokens of kind, expired included.
func (s *Store) TokenCount(kind goCreds.TokenKind) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens[kind])
}

var _ goCreds.CredentialStore = (*Store)(nil)
