// Package redisstore keeps goCreds tokens in Redis with native key expiry.
//
// It implements only goCreds.TokenStore; combine it with a user and login
// attempt backend through goCreds.ComposeStore.
package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	goCreds "github.com/MrEthical07/goCreds"
	"github.com/MrEthical07/goCreds/internal/stores"
)

// DefaultTokenTTL matches the engine's default token lifetime.
const DefaultTokenTTL = 24 * time.Hour

// Store is a goCreds.TokenStore over Redis.
type Store struct {
	tokens *stores.TokenStore
	ttl    time.Duration
}

// Option configures a Store.
type Option func(*options)

type options struct {
	prefix string
	ttl    time.Duration
}

// WithPrefix sets the key prefix (default "gct").
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// WithTokenTTL sets the Redis expiry applied to every token.
func WithTokenTTL(ttl time.Duration) Option {
	return func(o *options) { o.ttl = ttl }
}

func New(client redis.UniversalClient, opts ...Option) *Store {
	o := options{ttl: DefaultTokenTTL}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store{
		tokens: stores.NewTokenStore(client, o.prefix),
		ttl:    o.ttl,
	}
}

func (s *Store) CreateToken(ctx context.Context, kind goCreds.TokenKind, token *goCreds.Token) error {
	return s.tokens.Save(ctx, kind.String(), token.Hash, &stores.TokenRecord{
		UserID:    token.UserID,
		CreatedAt: token.CreatedAt,
	}, s.ttl)
}

func (s *Store) FindTokenByHash(ctx context.Context, kind goCreds.TokenKind, hash string) (*goCreds.Token, error) {
	rec, err := s.tokens.Get(ctx, kind.String(), hash)
	if err != nil {
		if errors.Is(err, stores.ErrTokenNotFound) {
			return nil, goCreds.ErrRecordNotFound
		}
		return nil, err
	}
	return &goCreds.Token{
		UserID:    rec.UserID,
		Hash:      hash,
		CreatedAt: rec.CreatedAt,
	}, nil
}

func (s *Store) DeleteToken(ctx context.Context, kind goCreds.TokenKind, hash string) (bool, error) {
	return s.tokens.Delete(ctx, kind.String(), hash)
}

var _ goCreds.TokenStore = (*Store)(nil)
