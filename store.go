package goCreds

import "context"

// UserStore persists users.
//
// CreateUser must enforce email uniqueness (unique index or equivalent) and
// return [ErrDuplicateEmail] on a collision; SaveUser does the same when an
// email change collides. Lookups return [ErrRecordNotFound] for unknown users.
type UserStore interface {
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	FindUserByID(ctx context.Context, id string) (*User, error)
	CreateUser(ctx context.Context, user *User) error
	SaveUser(ctx context.Context, user *User) error
}

// TokenStore persists verification and forgot-password tokens.
//
// FindTokenByHash returns [ErrRecordNotFound] for missing and expired tokens
// alike. DeleteToken reports whether this call removed the record, so that
// when two redeemers race only one observes true.
type TokenStore interface {
	CreateToken(ctx context.Context, kind TokenKind, token *Token) error
	FindTokenByHash(ctx context.Context, kind TokenKind, hash string) (*Token, error)
	DeleteToken(ctx context.Context, kind TokenKind, hash string) (bool, error)
}

// LoginAttemptStore persists login audit records.
type LoginAttemptStore interface {
	CreateLoginAttempt(ctx context.Context, attempt *LoginAttempt) error
	UpdateLoginAttempt(ctx context.Context, attempt *LoginAttempt) error
}

// CredentialStore is the persistence boundary of the engine. Every operation
// is atomic for a single entity; nothing spans entities.
type CredentialStore interface {
	UserStore
	TokenStore
	LoginAttemptStore
}

type composedStore struct {
	UserStore
	TokenStore
	LoginAttemptStore
}

// ComposeStore combines separate backends into one CredentialStore, for
// example users and attempts in postgres with tokens in redis.
func ComposeStore(users UserStore, tokens TokenStore, attempts LoginAttemptStore) CredentialStore {
	return composedStore{UserStore: users, TokenStore: tokens, LoginAttemptStore: attempts}
}
