package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	goCreds "github.com/MrEthical07/goCreds"
	"github.com/MrEthical07/goCreds/store/storetest"
)

func TestStoreContract(t *testing.T) {
	s := New()
	storetest.RunUserStore(t, s)
	storetest.RunTokenStore(t, s)
	storetest.RunConcurrentTokenDelete(t, s, 32)
	storetest.RunLoginAttemptStore(t, s)
}

func TestExpiredTokenReportedMissing(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := New(WithTokenTTL(time.Hour), WithClock(func() time.Time { return now }))
	ctx := context.Background()

	if err := s.CreateToken(ctx, goCreds.TokenVerification, &goCreds.Token{UserID: "u1", Hash: "h1", CreatedAt: now}); err != nil {
		t.Fatalf("create token: %v", err)
	}
	if _, err := s.FindTokenByHash(ctx, goCreds.TokenVerification, "h1"); err != nil {
		t.Fatalf("expected fresh token, got %v", err)
	}

	now = now.Add(time.Hour + time.Second)
	if _, err := s.FindTokenByHash(ctx, goCreds.TokenVerification, "h1"); !errors.Is(err, goCreds.ErrRecordNotFound) {
		t.Fatalf("expected expired token to be missing, got %v", err)
	}
}

func TestDeleteExpiredTokens(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := New(WithTokenTTL(time.Hour), WithClock(func() time.Time { return now }))
	ctx := context.Background()

	tokens := []struct {
		kind goCreds.TokenKind
		hash string
		age  time.Duration
	}{
		{goCreds.TokenVerification, "old-v", 2 * time.Hour},
		{goCreds.TokenVerification, "fresh-v", 10 * time.Minute},
		{goCreds.TokenForgotPassword, "old-r", 3 * time.Hour},
	}
	for _, tk := range tokens {
		if err := s.CreateToken(ctx, tk.kind, &goCreds.Token{UserID: "u1", Hash: tk.hash, CreatedAt: now.Add(-tk.age)}); err != nil {
			t.Fatalf("create token %s: %v", tk.hash, err)
		}
	}

	n, err := s.DeleteExpiredTokens(ctx, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("DeleteExpiredTokens: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 removed, got %d", n)
	}
	if got := s.TokenCount(goCreds.TokenVerification); got != 1 {
		t.Fatalf("expected 1 verification token left, got %d", got)
	}
	if got := s.TokenCount(goCreds.TokenForgotPassword); got != 0 {
		t.Fatalf("expected no reset tokens left, got %d", got)
	}
	if _, err := s.FindTokenByHash(ctx, goCreds.TokenVerification, "fresh-v"); err != nil {
		t.Fatalf("fresh token removed: %v", err)
	}
}

func TestReturnedUsersAreCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	if err := s.CreateUser(ctx, &goCreds.User{ID: "u1", Email: "a@example.com"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	u, _ := s.FindUserByID(ctx, "u1")
	u.IsVerified = true

	again, _ := s.FindUserByID(ctx, "u1")
	if again.IsVerified {
		t.Fatal("mutating a returned user must not change the store")
	}
}

func TestLoginAttemptsOrdered(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Now()
	for i, id := range []string{"b", "a", "c"} {
		_ = s.CreateLoginAttempt(ctx, &goCreds.LoginAttempt{ID: id, CreatedAt: base.Add(time.Duration(2-i) * time.Second)})
	}

	got := s.LoginAttempts()
	if len(got) != 3 || got[0].ID != "c" || got[2].ID != "b" {
		t.Fatalf("unexpected order: %+v", got)
	}
}
