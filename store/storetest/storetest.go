// Package storetest holds the behavioral contract every goCreds store
// implementation must satisfy.
package storetest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	goCreds "github.com/MrEthical07/goCreds"
)

func newUser(email string) *goCreds.User {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &goCreds.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuu",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// RunUserStore checks uniqueness and round-tripping of users.
func RunUserStore(t *testing.T, store goCreds.UserStore) {
	t.Helper()
	ctx := context.Background()
	suffix := uuid.NewString()[:8]

	a := newUser("a-" + suffix + "@example.com")
	if err := store.CreateUser(ctx, a); err != nil {
		t.Fatalf("create user: %v", err)
	}

	dup := newUser(a.Email)
	if err := store.CreateUser(ctx, dup); !errors.Is(err, goCreds.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}

	byEmail, err := store.FindUserByEmail(ctx, a.Email)
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}
	if byEmail.ID != a.ID {
		t.Fatalf("expected id %s, got %s", a.ID, byEmail.ID)
	}

	if _, err := store.FindUserByEmail(ctx, "missing-"+suffix+"@example.com"); !errors.Is(err, goCreds.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
	if _, err := store.FindUserByID(ctx, uuid.NewString()); !errors.Is(err, goCreds.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}

	byEmail.IsVerified = true
	byEmail.TwoFactor = goCreds.TwoFactor{Secret: "JBSWY3DPEHPK3PXP"}
	if err := store.SaveUser(ctx, byEmail); err != nil {
		t.Fatalf("save user: %v", err)
	}
	byID, err := store.FindUserByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if !byID.IsVerified || byID.TwoFactor.Secret != "JBSWY3DPEHPK3PXP" {
		t.Fatalf("saved fields not persisted: %+v", byID)
	}

	b := newUser("b-" + suffix + "@example.com")
	if err := store.CreateUser(ctx, b); err != nil {
		t.Fatalf("create second user: %v", err)
	}
	b.Email = a.Email
	if err := store.SaveUser(ctx, b); !errors.Is(err, goCreds.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail on email collision, got %v", err)
	}

	b.Email = "c-" + suffix + "@example.com"
	if err := store.SaveUser(ctx, b); err != nil {
		t.Fatalf("email change: %v", err)
	}
	if _, err := store.FindUserByEmail(ctx, "b-"+suffix+"@example.com"); !errors.Is(err, goCreds.ErrRecordNotFound) {
		t.Fatalf("old email still resolves: %v", err)
	}
}

// RunTokenStore checks namespacing and single-winner deletion of tokens.
func RunTokenStore(t *testing.T, store goCreds.TokenStore) {
	t.Helper()
	ctx := context.Background()

	tok := &goCreds.Token{
		UserID:    uuid.NewString(),
		Hash:      uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
	if err := store.CreateToken(ctx, goCreds.TokenVerification, tok); err != nil {
		t.Fatalf("create token: %v", err)
	}

	got, err := store.FindTokenByHash(ctx, goCreds.TokenVerification, tok.Hash)
	if err != nil {
		t.Fatalf("find token: %v", err)
	}
	if got.UserID != tok.UserID {
		t.Fatalf("expected user %s, got %s", tok.UserID, got.UserID)
	}

	if _, err := store.FindTokenByHash(ctx, goCreds.TokenForgotPassword, tok.Hash); !errors.Is(err, goCreds.ErrRecordNotFound) {
		t.Fatalf("token kinds must not share a namespace, got %v", err)
	}

	deleted, err := store.DeleteToken(ctx, goCreds.TokenVerification, tok.Hash)
	if err != nil || !deleted {
		t.Fatalf("expected first delete to win, got %v %v", deleted, err)
	}
	deleted, err = store.DeleteToken(ctx, goCreds.TokenVerification, tok.Hash)
	if err != nil || deleted {
		t.Fatalf("expected second delete to report false, got %v %v", deleted, err)
	}
	if _, err := store.FindTokenByHash(ctx, goCreds.TokenVerification, tok.Hash); !errors.Is(err, goCreds.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound after delete, got %v", err)
	}
}

// RunConcurrentTokenDelete races n deleters on one token and expects exactly
// one winner.
func RunConcurrentTokenDelete(t *testing.T, store goCreds.TokenStore, n int) {
	t.Helper()
	ctx := context.Background()

	tok := &goCreds.Token{UserID: uuid.NewString(), Hash: uuid.NewString(), CreatedAt: time.Now().UTC()}
	if err := store.CreateToken(ctx, goCreds.TokenForgotPassword, tok); err != nil {
		t.Fatalf("create token: %v", err)
	}

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.DeleteToken(ctx, goCreds.TokenForgotPassword, tok.Hash)
			if err != nil {
				t.Errorf("delete: %v", err)
				return
			}
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins.Load())
	}
}

// RunLoginAttemptStore checks that attempts are updated in place.
func RunLoginAttemptStore(t *testing.T, store goCreds.LoginAttemptStore) {
	t.Helper()
	ctx := context.Background()

	a := &goCreds.LoginAttempt{
		ID:        uuid.NewString(),
		Email:     "login@example.com",
		IPAddress: "203.0.113.7",
		UserAgent: "test-agent",
		CreatedAt: time.Now().UTC(),
	}
	if err := store.CreateLoginAttempt(ctx, a); err != nil {
		t.Fatalf("create attempt: %v", err)
	}

	a.UserID = uuid.NewString()
	a.TwoFactorEnabled = true
	a.Successful = true
	if err := store.UpdateLoginAttempt(ctx, a); err != nil {
		t.Fatalf("update attempt: %v", err)
	}

	missing := &goCreds.LoginAttempt{ID: uuid.NewString()}
	if err := store.UpdateLoginAttempt(ctx, missing); !errors.Is(err, goCreds.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound for unknown attempt, got %v", err)
	}
}
