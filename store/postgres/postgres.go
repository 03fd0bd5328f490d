// Package postgres is a goCreds.CredentialStore over database/sql with the
// pgx driver. Schema changes ship as embedded goose migrations.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	goCreds "github.com/MrEthical07/goCreds"
	"github.com/MrEthical07/goCreds/store/postgres/migrations"
)

const uniqueViolation = "23505"

// Store implements goCreds.CredentialStore.
type Store struct {
	db       *sql.DB
	tokenTTL time.Duration
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithTokenTTL hides tokens older than ttl from FindTokenByHash. Zero
// disables the filter.
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Store) { s.tokenTTL = ttl }
}

// WithClock overrides the clock used for the token age filter.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New wraps an open database. It does not run migrations.
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{
		db:       db,
		tokenTTL: 24 * time.Hour,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open connects with the pgx driver and applies pending migrations.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	s := New(db, opts...)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return s, nil
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate applies the embedded migrations.
func (s *Store) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return gooseUpContext(ctx, s.db, ".")
}

func (s *Store) Close() error {
	return s.db.Close()
}

const userColumns = `id, email, password_hash, is_verified, totp_temp_secret, totp_secret, created_at, updated_at`

func scanUser(row *sql.Row) (*goCreds.User, error) {
	u := &goCreds.User{}
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.IsVerified,
		&u.TwoFactor.TempSecret, &u.TwoFactor.Secret,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goCreds.ErrRecordNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*goCreds.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (s *Store) FindUserByID(ctx context.Context, id string) (*goCreds.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *Store) CreateUser(ctx context.Context, user *goCreds.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID, user.Email, user.PasswordHash, user.IsVerified,
		user.TwoFactor.TempSecret, user.TwoFactor.Secret,
		user.CreatedAt, user.UpdatedAt,
	)
	return mapWriteError(err)
}

func (s *Store) SaveUser(ctx context.Context, user *goCreds.User) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET email = $2, password_hash = $3, is_verified = $4,
		        totp_temp_secret = $5, totp_secret = $6, updated_at = $7
		 WHERE id = $1`,
		user.ID, user.Email, user.PasswordHash, user.IsVerified,
		user.TwoFactor.TempSecret, user.TwoFactor.Secret, user.UpdatedAt,
	)
	if err != nil {
		return mapWriteError(err)
	}
	return requireOneRow(res)
}

func (s *Store) CreateToken(ctx context.Context, kind goCreds.TokenKind, token *goCreds.Token) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tokens (kind, hash, user_id, created_at) VALUES ($1, $2, $3, $4)`,
		kind.String(), token.Hash, token.UserID, token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *Store) FindTokenByHash(ctx context.Context, kind goCreds.TokenKind, hash string) (*goCreds.Token, error) {
	var cutoff time.Time
	if s.tokenTTL > 0 {
		cutoff = s.now().Add(-s.tokenTTL).UTC()
	}

	t := &goCreds.Token{Hash: hash}
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, created_at FROM tokens WHERE kind = $1 AND hash = $2 AND created_at >= $3`,
		kind.String(), hash, cutoff,
	).Scan(&t.UserID, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goCreds.ErrRecordNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

func (s *Store) DeleteToken(ctx context.Context, kind goCreds.TokenKind, hash string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM tokens WHERE kind = $1 AND hash = $2`,
		kind.String(), hash,
	)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}

// DeleteExpiredTokens removes tokens created before cutoff and returns how
// many were removed.
func (s *Store) DeleteExpiredTokens(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tokens WHERE created_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) CreateLoginAttempt(ctx context.Context, a *goCreds.LoginAttempt) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO login_attempts (id, email, user_id, ip_address, user_agent, two_factor_enabled, successful, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.Email, a.UserID, a.IPAddress, a.UserAgent, a.TwoFactorEnabled, a.Successful, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *Store) UpdateLoginAttempt(ctx context.Context, a *goCreds.LoginAttempt) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE login_attempts SET user_id = $2, two_factor_enabled = $3, successful = $4 WHERE id = $1`,
		a.ID, a.UserID, a.TwoFactorEnabled, a.Successful,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOneRow(res)
}

func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return goCreds.ErrDuplicateEmail
	}
	return fmt.Errorf("db error: %w", err)
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return goCreds.ErrRecordNotFound
	}
	return nil
}

var _ goCreds.CredentialStore = (*Store)(nil)
