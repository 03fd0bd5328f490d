package goCreds_test

import (
	"context"
	"testing"
	"time"

	goCreds "github.com/MrEthical07/goCreds"
)

func (te *testEngine) requestReset(t *testing.T, email string) string {
	t.Helper()

	if err := te.RequestPasswordReset(context.Background(), email); err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}
	msg := te.mailer.next(t)
	if msg.template != goCreds.TemplateForgotPassword {
		t.Fatalf("expected forgot-password delivery, got %q", msg.template)
	}
	return msg.vars[goCreds.TemplateVarToken]
}

func TestResetPasswordRoundTrip(t *testing.T) {
	te := newTestEngine(t)
	te.register(t, "alice@example.com")
	raw := te.requestReset(t, "alice@example.com")
	ctx := context.Background()

	if err := te.ResetPassword(ctx, raw, "alice@example.com", "brand-new-secret"); err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}
	if _, err := te.Login(ctx, "alice@example.com", "brand-new-secret", ""); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
	_, err := te.Login(ctx, "alice@example.com", testPassword, "")
	assertErr(t, err, goCreds.ErrAuthenticationFailed)

	assertErr(t, te.ResetPassword(ctx, raw, "alice@example.com", "third-secret"), goCreds.ErrInvalidToken)
}

func TestResetPasswordEmailMismatch(t *testing.T) {
	te := newTestEngine(t)
	te.register(t, "bob@example.com")
	te.register(t, "carol@example.com")
	raw := te.requestReset(t, "bob@example.com")
	ctx := context.Background()

	assertErr(t, te.ResetPassword(ctx, raw, "carol@example.com", "brand-new-secret"), goCreds.ErrInvalidToken)
	assertErr(t, te.ResetPassword(ctx, raw, "Bob@example.com", "brand-new-secret"), goCreds.ErrInvalidToken)

	// The token survives a mismatched submission.
	if err := te.ResetPassword(ctx, raw, " bob@example.com ", "brand-new-secret"); err != nil {
		t.Fatalf("ResetPassword with matching email failed: %v", err)
	}
	if _, err := te.Login(ctx, "carol@example.com", testPassword, ""); err != nil {
		t.Fatalf("other account must be untouched: %v", err)
	}
}

func TestResetPasswordExpiredToken(t *testing.T) {
	te := newTestEngine(t)
	te.register(t, "dave@example.com")
	raw := te.requestReset(t, "dave@example.com")

	te.clock.Advance(testConfig().Tokens.TTL + time.Minute)
	assertErr(t, te.ResetPassword(context.Background(), raw, "dave@example.com", "brand-new-secret"), goCreds.ErrInvalidToken)
}

func TestResetPasswordInvalidTokenKind(t *testing.T) {
	te := newTestEngine(t)
	_, activation := te.register(t, "erin@example.com")

	err := te.ResetPassword(context.Background(), activation, "erin@example.com", "brand-new-secret")
	assertErr(t, err, goCreds.ErrInvalidToken)
	if goCreds.KindOf(err) != goCreds.KindInvalidToken {
		t.Fatalf("expected invalid-token kind, got %s", goCreds.KindOf(err))
	}
}

func TestRequestPasswordResetUnknownEmailSilent(t *testing.T) {
	te := newTestEngine(t)

	if err := te.RequestPasswordReset(context.Background(), "ghost@example.com"); err != nil {
		t.Fatalf("expected nil for unknown email, got %v", err)
	}
	te.mailer.expectNone(t)
	if n := te.store.TokenCount(goCreds.TokenForgotPassword); n != 0 {
		t.Fatalf("expected no reset tokens, got %d", n)
	}
	if got := te.counter(goCreds.MetricPasswordResetRequest); got != 1 {
		t.Fatalf("expected request metric, got %d", got)
	}
}

func TestRequestPasswordResetNormalizesEmail(t *testing.T) {
	te := newTestEngine(t)
	te.register(t, "frank@example.com")

	raw := te.requestReset(t, "  FRANK@example.com")
	if raw == "" {
		t.Fatal("expected a reset token")
	}
}
