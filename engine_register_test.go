package goCreds_test

import (
	"context"
	"errors"
	"testing"

	goCreds "github.com/MrEthical07/goCreds"
	"github.com/MrEthical07/goCreds/password"
)

func TestRegisterStoresHashNotPlaintext(t *testing.T) {
	te := newTestEngine(t)
	res, _ := te.register(t, "alice@example.com")

	stored := te.user(t, res.User.ID)
	if stored.PasswordHash == testPassword {
		t.Fatal("stored password must not equal the plaintext")
	}
	h, err := password.NewBcrypt(4)
	if err != nil {
		t.Fatalf("NewBcrypt failed: %v", err)
	}
	ok, err := h.Verify(testPassword, stored.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("stored hash must verify the password, ok=%v err=%v", ok, err)
	}
	if stored.IsVerified {
		t.Fatal("new accounts start unverified")
	}
	if stored.TwoFactor.State() != goCreds.TwoFactorDisabled {
		t.Fatalf("new accounts start without two-factor, got %s", stored.TwoFactor.State())
	}
}

func TestRegisterReturnsSession(t *testing.T) {
	te := newTestEngine(t)
	res, _ := te.register(t, "bob@example.com")

	if res.SessionToken == "" {
		t.Fatal("expected a session credential")
	}
	u, err := te.Authenticate(context.Background(), res.SessionToken)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if u.ID != res.User.ID {
		t.Fatalf("session subject %s, want %s", u.ID, res.User.ID)
	}
	if res.User.PasswordHash == "" || res.User.CreatedAt.IsZero() {
		t.Fatalf("result should carry the stored record, got %+v", res.User)
	}
}

func TestRegisterNormalizesEmail(t *testing.T) {
	te := newTestEngine(t)
	res, err := te.Register(context.Background(), "  Carol@Example.COM ", testPassword)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if res.User.Email != "carol@example.com" {
		t.Fatalf("expected normalized email, got %q", res.User.Email)
	}
	msg := te.mailer.next(t)
	if msg.recipient != "carol@example.com" {
		t.Fatalf("expected delivery to normalized address, got %q", msg.recipient)
	}
}

func TestRegisterDuplicateEmailConflict(t *testing.T) {
	te := newTestEngine(t)
	te.register(t, "dave@example.com")

	_, err := te.Register(context.Background(), "DAVE@example.com", "another-password")
	assertErr(t, err, goCreds.ErrEmailTaken)
	if goCreds.KindOf(err) != goCreds.KindConflict {
		t.Fatalf("expected conflict kind, got %s", goCreds.KindOf(err))
	}
	if got := te.counter(goCreds.MetricRegisterDuplicate); got != 1 {
		t.Fatalf("expected one duplicate metric, got %d", got)
	}
	te.mailer.expectNone(t)
}

func TestRegisterRejectsEmptyFields(t *testing.T) {
	te := newTestEngine(t)
	ctx := context.Background()

	_, err := te.Register(ctx, "   ", testPassword)
	assertErr(t, err, goCreds.ErrValidation)
	_, err = te.Register(ctx, "erin@example.com", "")
	assertErr(t, err, goCreds.ErrValidation)
}

func TestRegisterDeliveryNeverCarriesTokenInResult(t *testing.T) {
	te := newTestEngine(t)
	res, raw := te.register(t, "frank@example.com")

	if raw == "" {
		t.Fatal("expected a raw token in the delivery")
	}
	if res.SessionToken == raw {
		t.Fatal("session credential must not be the activation token")
	}
	if n := te.store.TokenCount(goCreds.TokenVerification); n != 1 {
		t.Fatalf("expected one stored verification token, got %d", n)
	}
	if _, err := te.store.FindTokenByHash(context.Background(), goCreds.TokenVerification, raw); err == nil {
		t.Fatal("raw token must not be usable as a store key")
	}
}

func TestMailerFailureDoesNotFailOperation(t *testing.T) {
	te := newTestEngine(t)
	te.mailer.err = errors.New("smtp down")
	ctx := context.Background()

	if _, err := te.Register(ctx, "alice@example.com", testPassword); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if msg := te.mailer.next(t); msg.template != goCreds.TemplateVerificationToken {
		t.Fatalf("expected verification delivery, got %q", msg.template)
	}
	if err := te.RequestPasswordReset(ctx, "alice@example.com"); err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}
	te.mailer.next(t)

	te.Close()
	if got := te.counter(goCreds.MetricDeliveryFailure); got != 2 {
		t.Fatalf("expected 2 delivery failures, got %d", got)
	}
	if stats := te.DeliveryStats(); stats.Failed != 2 || stats.Sent != 0 {
		t.Fatalf("unexpected delivery stats: %+v", stats)
	}
}
