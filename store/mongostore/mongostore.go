// Package mongostore is a goCreds.CredentialStore backed by MongoDB.
//
// Emails are unique through an index on users.email. Tokens carry an
// expires_at field with a TTL index; lookups also filter on it because the
// server only sweeps expired documents periodically.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	goCreds "github.com/MrEthical07/goCreds"
)

const (
	userCollection         = "users"
	tokenCollection        = "tokens"
	loginAttemptCollection = "login_attempts"

	// DefaultTokenTTL matches the engine's default token lifetime.
	DefaultTokenTTL = 24 * time.Hour
)

type userDoc struct {
	ID             string    `bson:"_id"`
	Email          string    `bson:"email"`
	PasswordHash   string    `bson:"password_hash"`
	IsVerified     bool      `bson:"is_verified"`
	TOTPTempSecret string    `bson:"totp_temp_secret"`
	TOTPSecret     string    `bson:"totp_secret"`
	CreatedAt      time.Time `bson:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at"`
}

type tokenDoc struct {
	ID        string    `bson:"_id"`
	Kind      string    `bson:"kind"`
	Hash      string    `bson:"hash"`
	UserID    string    `bson:"user_id"`
	CreatedAt time.Time `bson:"created_at"`
	ExpiresAt time.Time `bson:"expires_at"`
}

type loginAttemptDoc struct {
	ID               string    `bson:"_id"`
	Email            string    `bson:"email"`
	UserID           string    `bson:"user_id"`
	IPAddress        string    `bson:"ip_address"`
	UserAgent        string    `bson:"user_agent"`
	TwoFactorEnabled bool      `bson:"two_factor_enabled"`
	Successful       bool      `bson:"successful"`
	CreatedAt        time.Time `bson:"created_at"`
}

// Store implements goCreds.CredentialStore.
type Store struct {
	db       *mongo.Database
	tokenTTL time.Duration
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithTokenTTL sets the lifetime written into each token's expires_at.
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

// WithClock overrides the clock used for token expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Connect dials uri and returns a Store over database name. The caller owns
// the returned client and must Disconnect it.
func Connect(ctx context.Context, uri, name string, opts ...Option) (*Store, *mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	s, err := New(ctx, client.Database(name), opts...)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}
	return s, client, nil
}

// New creates the indexes the store relies on and returns a Store over db.
func New(ctx context.Context, db *mongo.Database, opts ...Option) (*Store, error) {
	s := &Store{
		db:       db,
		tokenTTL: DefaultTokenTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := db.Collection(userCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}); err != nil {
		return nil, fmt.Errorf("create user indexes: %w", err)
	}

	if _, err := db.Collection(tokenCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}); err != nil {
		return nil, fmt.Errorf("create token indexes: %w", err)
	}

	if _, err := db.Collection(loginAttemptCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "email", Value: 1}, {Key: "created_at", Value: -1}},
		},
	}); err != nil {
		return nil, fmt.Errorf("create login attempt indexes: %w", err)
	}

	return s, nil
}

func (s *Store) findUser(ctx context.Context, filter bson.M) (*goCreds.User, error) {
	var doc userDoc
	err := s.db.Collection(userCollection).FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, goCreds.ErrRecordNotFound
		}
		return nil, err
	}
	return doc.user(), nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*goCreds.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *Store) FindUserByID(ctx context.Context, id string) (*goCreds.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *Store) CreateUser(ctx context.Context, user *goCreds.User) error {
	_, err := s.db.Collection(userCollection).InsertOne(ctx, newUserDoc(user))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return goCreds.ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (s *Store) SaveUser(ctx context.Context, user *goCreds.User) error {
	doc := newUserDoc(user)
	res, err := s.db.Collection(userCollection).ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return goCreds.ErrDuplicateEmail
		}
		return err
	}
	if res.MatchedCount == 0 {
		return goCreds.ErrRecordNotFound
	}
	return nil
}

func tokenID(kind goCreds.TokenKind, hash string) string {
	return kind.String() + ":" + hash
}

func (s *Store) CreateToken(ctx context.Context, kind goCreds.TokenKind, token *goCreds.Token) error {
	_, err := s.db.Collection(tokenCollection).InsertOne(ctx, tokenDoc{
		ID:        tokenID(kind, token.Hash),
		Kind:      kind.String(),
		Hash:      token.Hash,
		UserID:    token.UserID,
		CreatedAt: token.CreatedAt,
		ExpiresAt: token.CreatedAt.Add(s.tokenTTL),
	})
	return err
}

func (s *Store) FindTokenByHash(ctx context.Context, kind goCreds.TokenKind, hash string) (*goCreds.Token, error) {
	filter := bson.M{
		"_id":        tokenID(kind, hash),
		"expires_at": bson.M{"$gt": s.now()},
	}

	var doc tokenDoc
	err := s.db.Collection(tokenCollection).FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, goCreds.ErrRecordNotFound
		}
		return nil, err
	}
	return &goCreds.Token{
		UserID:    doc.UserID,
		Hash:      doc.Hash,
		CreatedAt: doc.CreatedAt,
	}, nil
}

func (s *Store) DeleteToken(ctx context.Context, kind goCreds.TokenKind, hash string) (bool, error) {
	res, err := s.db.Collection(tokenCollection).DeleteOne(ctx, bson.M{"_id": tokenID(kind, hash)})
	if err != nil {
		return false, err
	}
	return res.DeletedCount == 1, nil
}

// DeleteExpiredTokens removes expired tokens ahead of the TTL monitor.
func (s *Store) DeleteExpiredTokens(ctx context.Context) (int64, error) {
	res, err := s.db.Collection(tokenCollection).DeleteMany(ctx, bson.M{
		"expires_at": bson.M{"$lte": s.now()},
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *Store) CreateLoginAttempt(ctx context.Context, a *goCreds.LoginAttempt) error {
	_, err := s.db.Collection(loginAttemptCollection).InsertOne(ctx, loginAttemptDoc{
		ID:               a.ID,
		Email:            a.Email,
		UserID:           a.UserID,
		IPAddress:        a.IPAddress,
		UserAgent:        a.UserAgent,
		TwoFactorEnabled: a.TwoFactorEnabled,
		Successful:       a.Successful,
		CreatedAt:        a.CreatedAt,
	})
	return err
}

func (s *Store) UpdateLoginAttempt(ctx context.Context, a *goCreds.LoginAttempt) error {
	res, err := s.db.Collection(loginAttemptCollection).UpdateOne(ctx,
		bson.M{"_id": a.ID},
		bson.M{"$set": bson.M{
			"user_id":            a.UserID,
			"two_factor_enabled": a.TwoFactorEnabled,
			"successful":         a.Successful,
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return goCreds.ErrRecordNotFound
	}
	return nil
}

func newUserDoc(u *goCreds.User) userDoc {
	return userDoc{
		ID:             u.ID,
		Email:          u.Email,
		PasswordHash:   u.PasswordHash,
		IsVerified:     u.IsVerified,
		TOTPTempSecret: u.TwoFactor.TempSecret,
		TOTPSecret:     u.TwoFactor.Secret,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func (d userDoc) user() *goCreds.User {
	return &goCreds.User{
		ID:           d.ID,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		IsVerified:   d.IsVerified,
		TwoFactor: goCreds.TwoFactor{
			TempSecret: d.TOTPTempSecret,
			Secret:     d.TOTPSecret,
		},
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

var _ goCreds.CredentialStore = (*Store)(nil)
